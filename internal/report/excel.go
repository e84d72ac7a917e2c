// Package report renders movement data into XLSX workbooks for the
// monthly consolidated report and the on-demand export endpoint.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/supervitec/field-movement-api/internal/model"
)

const sheet = "Movements"

var header = []string{
	"User", "Date", "Region", "Kind", "State", "Transport",
	"Distance (km)", "Avg speed (km/h)", "Max speed (km/h)",
	"Duration (min)", "Incidents", "Observations",
}

// MovementsWorkbook renders the given movements into a single-sheet
// workbook. userNames resolves owner ids to display names; unknown
// ids fall back to the numeric id.
func MovementsWorkbook(movements []model.Movement, userNames map[uint64]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, m := range movements {
		name, ok := userNames[m.UserID]
		if !ok {
			name = fmt.Sprintf("user %d", m.UserID)
		}
		row := []interface{}{
			name,
			m.Date.Format("2006-01-02"),
			m.Region,
			m.Kind,
			m.State,
			m.Transport,
			m.DistanceKM,
			m.AvgSpeedKMH,
			m.MaxSpeedKMH,
			m.DurationMin,
			len(m.Incidents),
			m.Observations,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
