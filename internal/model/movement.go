package model

import (
	"math"
	"time"
)

// Movement kinds. A plain safety patrol is the baseline kind assumed
// when the client does not say otherwise.
const (
	KindSafetyPatrol      = "safety_patrol"
	KindRoutineInspection = "routine_inspection"
	KindEmergency         = "emergency"
	KindMaintenance       = "maintenance"
)

// Movement lifecycle states.
const (
	StateStarted    = "started"
	StateInProgress = "in_progress"
	StatePaused     = "paused"
	StateCompleted  = "completed"
	StateCancelled  = "cancelled"
)

// Incident classification and severity.
const (
	IncidentRisk      = "risk_detected"
	IncidentAccident  = "accident"
	IncidentEquipment = "equipment_failure"
	IncidentOther     = "other"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ValidKind reports whether k is a known movement kind.
func ValidKind(k string) bool {
	switch k {
	case KindSafetyPatrol, KindRoutineInspection, KindEmergency, KindMaintenance:
		return true
	}
	return false
}

// ValidState reports whether s is a known lifecycle state.
func ValidState(s string) bool {
	switch s {
	case StateStarted, StateInProgress, StatePaused, StateCompleted, StateCancelled:
		return true
	}
	return false
}

// ValidIncidentKind reports whether k is a known incident kind.
func ValidIncidentKind(k string) bool {
	switch k {
	case IncidentRisk, IncidentAccident, IncidentEquipment, IncidentOther:
		return true
	}
	return false
}

// ValidSeverity reports whether s is a known incident severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Location is a geographic fix with the time it was taken.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Address   string    `json:"address,omitempty"`
}

// RoutePoint is one sample of the route followed during a movement.
type RoutePoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Incident is a safety event reported during a movement.
type Incident struct {
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	Severity    string    `json:"severity,omitempty"`
}

// Movement mirrors the `movements` table. Route and Incidents are
// stored as JSON columns. EndedAt is the completion timestamp; it is
// distinct from the optional end location, which may be absent on an
// in-progress record.
type Movement struct {
	ID           uint64       `json:"id"`
	UserID       uint64       `json:"user_id"`
	Kind         string       `json:"kind"`
	State        string       `json:"state"`
	Start        Location     `json:"start_location"`
	End          *Location    `json:"end_location,omitempty"`
	Route        []RoutePoint `json:"route,omitempty"`
	DistanceKM   float64      `json:"distance_km"`
	AvgSpeedKMH  float64      `json:"avg_speed_kmh"`
	MaxSpeedKMH  float64      `json:"max_speed_kmh"`
	DurationMin  float64      `json:"duration_min"`
	Date         time.Time    `json:"date"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	Region       string       `json:"region"`
	Transport    string       `json:"transport"`
	Observations string       `json:"observations,omitempty"`
	Incidents    []Incident   `json:"incidents,omitempty"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Complete transitions the movement to the completed state, stamps
// the end timestamp and recomputes the duration from the start fix.
func (m *Movement) Complete(endedAt time.Time) {
	m.State = StateCompleted
	m.EndedAt = &endedAt
	m.DurationMin = math.Round(endedAt.Sub(m.Start.Timestamp).Minutes())
}
