package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/supervitec/field-movement-api/internal/model"
)

func TestMovementsWorkbook(t *testing.T) {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	movements := []model.Movement{
		{
			UserID: 1, Kind: model.KindSafetyPatrol, State: model.StateCompleted,
			Region: model.RegionCaldas, Transport: model.TransportMotorcycle,
			DistanceKM: 12.5, AvgSpeedKMH: 35, MaxSpeedKMH: 62, DurationMin: 21,
			Date:      day,
			Incidents: []model.Incident{{Kind: model.IncidentRisk}},
		},
		{
			UserID: 99, Kind: model.KindEmergency, State: model.StateCompleted,
			Region: model.RegionRisaralda, Transport: model.TransportCar,
			DistanceKM: 40, Date: day.AddDate(0, 0, 1),
		},
	}
	names := map[uint64]string{1: "Ana Gómez"}

	data, err := MovementsWorkbook(movements, names)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, header, rows[0])
	assert.Equal(t, "Ana Gómez", rows[1][0])
	assert.Equal(t, "2026-02-10", rows[1][1])
	assert.Equal(t, "1", rows[1][10])
	// Unknown owners fall back to the numeric id.
	assert.Equal(t, "user 99", rows[2][0])
}

func TestMovementsWorkbookEmpty(t *testing.T) {
	data, err := MovementsWorkbook(nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}
