package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/supervitec/field-movement-api/internal/model"
)

type MovementRepo struct{ DB *sql.DB }

func NewMovementRepo(db *sql.DB) *MovementRepo { return &MovementRepo{DB: db} }

// activeOnly is the single soft-delete filter every default read path
// goes through. Admin-facing queries that want deleted records opt
// out explicitly.
const activeOnly = "is_active = TRUE"

const movementColumns = `id, user_id, kind, state,
	start_lat, start_lon, start_time, start_address,
	end_lat, end_lon, end_time, end_address,
	route, distance_km, avg_speed_kmh, max_speed_kmh, duration_min,
	date, ended_at, region, transport, observations, incidents,
	is_active, created_at`

// Create persists a movement and returns its id. Route samples and
// incidents are serialized into JSON columns.
func (r *MovementRepo) Create(ctx context.Context, m model.Movement) (uint64, error) {
	routeJSON, incidentsJSON, err := marshalExtras(m)
	if err != nil {
		return 0, err
	}
	var endLat, endLon interface{}
	var endTime, endAddr interface{}
	if m.End != nil {
		endLat, endLon = m.End.Latitude, m.End.Longitude
		endTime, endAddr = m.End.Timestamp, m.End.Address
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO movements (user_id, kind, state,
			start_lat, start_lon, start_time, start_address,
			end_lat, end_lon, end_time, end_address,
			route, distance_km, avg_speed_kmh, max_speed_kmh, duration_min,
			date, ended_at, region, transport, observations, incidents, is_active)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.UserID, m.Kind, m.State,
		m.Start.Latitude, m.Start.Longitude, m.Start.Timestamp, m.Start.Address,
		endLat, endLon, endTime, endAddr,
		routeJSON, m.DistanceKM, m.AvgSpeedKMH, m.MaxSpeedKMH, m.DurationMin,
		m.Date, m.EndedAt, m.Region, m.Transport, m.Observations, incidentsJSON,
		m.IsActive)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a movement regardless of its active flag; callers
// decide whether a soft-deleted record is visible to the requester.
func (r *MovementRepo) GetByID(ctx context.Context, id uint64) (model.Movement, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+movementColumns+" FROM movements WHERE id=? LIMIT 1", id)
	return scanMovement(row)
}

// Update writes back the allow-listed mutable fields of a movement.
func (r *MovementRepo) Update(ctx context.Context, m model.Movement) error {
	routeJSON, incidentsJSON, err := marshalExtras(m)
	if err != nil {
		return err
	}
	var endLat, endLon interface{}
	var endTime, endAddr interface{}
	if m.End != nil {
		endLat, endLon = m.End.Latitude, m.End.Longitude
		endTime, endAddr = m.End.Timestamp, m.End.Address
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE movements SET state=?,
			end_lat=?, end_lon=?, end_time=?, end_address=?,
			route=?, distance_km=?, avg_speed_kmh=?, max_speed_kmh=?, duration_min=?,
			date=?, ended_at=?, region=?, observations=?, incidents=?
		 WHERE id=?`,
		m.State,
		endLat, endLon, endTime, endAddr,
		routeJSON, m.DistanceKM, m.AvgSpeedKMH, m.MaxSpeedKMH, m.DurationMin,
		m.Date, m.EndedAt, m.Region, m.Observations, incidentsJSON,
		m.ID)
	return err
}

// SoftDelete marks a movement inactive. The record stays queryable by
// admins but disappears from every default listing and aggregate.
func (r *MovementRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE movements SET is_active=FALSE WHERE id=? AND "+activeOnly, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// List returns movements, newest first. userID 0 means all users.
// includeInactive is the admin opt-out of the soft-delete filter.
func (r *MovementRepo) List(ctx context.Context, userID uint64, includeInactive bool) ([]model.Movement, error) {
	var conds []string
	var args []interface{}
	if userID != 0 {
		conds = append(conds, "user_id=?")
		args = append(args, userID)
	}
	if !includeInactive {
		conds = append(conds, activeOnly)
	}
	q := "SELECT " + movementColumns + " FROM movements"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY date DESC, id DESC"
	return r.queryMovements(ctx, q, args...)
}

// ListRange returns active movements with a date inside [from, to).
// userID 0 means all users; an empty region means all regions.
func (r *MovementRepo) ListRange(ctx context.Context, userID uint64, region string, from, to time.Time) ([]model.Movement, error) {
	q := "SELECT " + movementColumns + " FROM movements WHERE " + activeOnly + " AND date >= ? AND date < ?"
	args := []interface{}{from, to}
	if userID != 0 {
		q += " AND user_id=?"
		args = append(args, userID)
	}
	if region != "" {
		q += " AND region=?"
		args = append(args, region)
	}
	q += " ORDER BY date, id"
	return r.queryMovements(ctx, q, args...)
}

// Aggregate is the read-side projection answered for daily and
// monthly queries. An empty result set is a zero-valued aggregate,
// never an error.
type Aggregate struct {
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance_km"`
	AvgSpeed      float64 `json:"avg_speed_kmh"`
	MaxSpeed      float64 `json:"max_speed_kmh"`
}

// AggregateRange computes count/sum/avg/max over the active movements
// with a date inside [from, to). userID 0 means all users.
func (r *MovementRepo) AggregateRange(ctx context.Context, userID uint64, from, to time.Time) (Aggregate, error) {
	q := `SELECT COUNT(*),
		COALESCE(SUM(distance_km), 0),
		COALESCE(AVG(avg_speed_kmh), 0),
		COALESCE(MAX(max_speed_kmh), 0)
	 FROM movements WHERE ` + activeOnly + ` AND date >= ? AND date < ?`
	args := []interface{}{from, to}
	if userID != 0 {
		q += " AND user_id=?"
		args = append(args, userID)
	}
	var agg Aggregate
	err := r.DB.QueryRowContext(ctx, q, args...).
		Scan(&agg.Count, &agg.TotalDistance, &agg.AvgSpeed, &agg.MaxSpeed)
	return agg, err
}

// StatsSince returns the movement count and total distance recorded
// since the cutoff, for the dashboard. userID 0 means all users.
func (r *MovementRepo) StatsSince(ctx context.Context, userID uint64, since time.Time) (count int, distance float64, err error) {
	q := "SELECT COUNT(*), COALESCE(SUM(distance_km), 0) FROM movements WHERE " + activeOnly + " AND date >= ?"
	args := []interface{}{since}
	if userID != 0 {
		q += " AND user_id=?"
		args = append(args, userID)
	}
	err = r.DB.QueryRowContext(ctx, q, args...).Scan(&count, &distance)
	return count, distance, err
}

// Recent returns the newest active movements for the activity feed.
func (r *MovementRepo) Recent(ctx context.Context, limit int) ([]model.Movement, error) {
	return r.queryMovements(ctx,
		"SELECT "+movementColumns+" FROM movements WHERE "+activeOnly+
			" ORDER BY created_at DESC, id DESC LIMIT ?", limit)
}

// RegionMetric aggregates one region's movement activity.
type RegionMetric struct {
	Region        string  `json:"region"`
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance_km"`
}

// MetricsByRegion groups active movements since the cutoff by region.
// Regions with no activity are simply absent.
func (r *MovementRepo) MetricsByRegion(ctx context.Context, since time.Time) ([]RegionMetric, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT region, COUNT(*), COALESCE(SUM(distance_km), 0)
		 FROM movements WHERE `+activeOnly+` AND date >= ?
		 GROUP BY region ORDER BY region`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RegionMetric{}
	for rows.Next() {
		var m RegionMetric
		if err := rows.Scan(&m.Region, &m.Count, &m.TotalDistance); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DayBucket is one day's movement volume for the chart endpoints.
type DayBucket struct {
	Date          string  `json:"date"`
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance_km"`
}

// DailyBuckets groups active movements since the cutoff by calendar
// day, oldest first. Days without movements are absent; charts render
// the gaps.
func (r *MovementRepo) DailyBuckets(ctx context.Context, since time.Time) ([]DayBucket, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DATE_FORMAT(date, '%Y-%m-%d'), COUNT(*), COALESCE(SUM(distance_km), 0)
		 FROM movements WHERE `+activeOnly+` AND date >= ?
		 GROUP BY date ORDER BY date`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DayBucket{}
	for rows.Next() {
		var b DayBucket
		if err := rows.Scan(&b.Date, &b.Count, &b.TotalDistance); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SoftDeleteOlderThan retires active movements dated before the
// cutoff. Used by the weekly cleanup job; returns the number of
// records retired.
func (r *MovementRepo) SoftDeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE movements SET is_active=FALSE WHERE "+activeOnly+" AND date < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *MovementRepo) queryMovements(ctx context.Context, q string, args ...interface{}) ([]model.Movement, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMovement(row rowScanner) (model.Movement, error) {
	var (
		m            model.Movement
		startAddr    sql.NullString
		endLat       sql.NullFloat64
		endLon       sql.NullFloat64
		endTime      sql.NullTime
		endAddr      sql.NullString
		routeJSON    []byte
		observations sql.NullString
		incJSON      []byte
	)
	err := row.Scan(&m.ID, &m.UserID, &m.Kind, &m.State,
		&m.Start.Latitude, &m.Start.Longitude, &m.Start.Timestamp, &startAddr,
		&endLat, &endLon, &endTime, &endAddr,
		&routeJSON, &m.DistanceKM, &m.AvgSpeedKMH, &m.MaxSpeedKMH, &m.DurationMin,
		&m.Date, &m.EndedAt, &m.Region, &m.Transport, &observations, &incJSON,
		&m.IsActive, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Movement{}, ErrNotFound
	}
	if err != nil {
		return model.Movement{}, err
	}
	m.Start.Address = startAddr.String
	m.Observations = observations.String
	if endLat.Valid && endLon.Valid {
		end := model.Location{
			Latitude:  endLat.Float64,
			Longitude: endLon.Float64,
			Address:   endAddr.String,
		}
		if endTime.Valid {
			end.Timestamp = endTime.Time
		}
		m.End = &end
	}
	if len(routeJSON) > 0 {
		_ = json.Unmarshal(routeJSON, &m.Route)
	}
	if len(incJSON) > 0 {
		_ = json.Unmarshal(incJSON, &m.Incidents)
	}
	return m, nil
}

func marshalExtras(m model.Movement) (routeJSON, incidentsJSON interface{}, err error) {
	if len(m.Route) > 0 {
		b, err := json.Marshal(m.Route)
		if err != nil {
			return nil, nil, err
		}
		routeJSON = b
	}
	if len(m.Incidents) > 0 {
		b, err := json.Marshal(m.Incidents)
		if err != nil {
			return nil, nil, err
		}
		incidentsJSON = b
	}
	return routeJSON, incidentsJSON, nil
}
