package model

import (
	"fmt"
	"time"
)

// LocationInput is the client-supplied shape of a location. Pointer
// coordinates distinguish "absent" from a legitimate zero value
// (the equator and the prime meridian are valid fixes).
type LocationInput struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Timestamp *time.Time `json:"timestamp"`
	Address   string     `json:"address,omitempty"`
}

func (l *LocationInput) complete() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// MovementInput carries the fields a client may send when registering
// a movement. Numeric fields are pointers for the same reason as
// LocationInput: zero is accepted (with a warning), absent is not.
type MovementInput struct {
	StartLocation *LocationInput `json:"start_location"`
	EndLocation   *LocationInput `json:"end_location"`
	DistanceKM    *float64       `json:"distance_km"`
	AvgSpeedKMH   *float64       `json:"avg_speed_kmh"`
	MaxSpeedKMH   *float64       `json:"max_speed_kmh"`
	DurationMin   *float64       `json:"duration_min"`
	Date          string         `json:"date"`
	Region        string         `json:"region"`
	Kind          string         `json:"kind"`
	Transport     string         `json:"transport"`
	State         string         `json:"state"`
	Route         []RoutePoint   `json:"route"`
	Observations  string         `json:"observations"`
	Incidents     []Incident     `json:"incidents"`
}

// dateLayouts accepted for the movement date, most specific first.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate parses a movement date in any accepted layout.
func ParseDate(s string) (time.Time, bool) { return parseDate(s) }

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks the input against the registration contract and
// returns the offending field names plus caller-visible warnings.
// An empty fields slice means the input is acceptable. The end
// location is optional (an in-progress record has none), but when
// present it must carry both coordinates.
func (in *MovementInput) Validate() (fields, warnings []string) {
	if !in.StartLocation.complete() {
		fields = append(fields, "start_location")
	}
	if in.EndLocation != nil && !in.EndLocation.complete() {
		fields = append(fields, "end_location")
	}

	numerics := []struct {
		name  string
		value *float64
	}{
		{"distance_km", in.DistanceKM},
		{"avg_speed_kmh", in.AvgSpeedKMH},
		{"max_speed_kmh", in.MaxSpeedKMH},
		{"duration_min", in.DurationMin},
	}
	for _, n := range numerics {
		switch {
		case n.value == nil:
			fields = append(fields, n.name)
		case *n.value < 0:
			fields = append(fields, n.name)
		case *n.value == 0:
			warnings = append(warnings, fmt.Sprintf("%s is zero", n.name))
		}
	}

	if in.Date == "" {
		fields = append(fields, "date")
	} else if _, ok := parseDate(in.Date); !ok {
		fields = append(fields, "date")
	}
	if !ValidRegion(in.Region) {
		fields = append(fields, "region")
	}
	if in.Kind != "" && !ValidKind(in.Kind) {
		fields = append(fields, "kind")
	}
	if in.Transport != "" && !ValidTransport(in.Transport) {
		fields = append(fields, "transport")
	}
	if in.State != "" && !ValidState(in.State) {
		fields = append(fields, "state")
	}
	for _, inc := range in.Incidents {
		if !ValidIncidentKind(inc.Kind) || (inc.Severity != "" && !ValidSeverity(inc.Severity)) {
			fields = append(fields, "incidents")
			break
		}
	}
	return fields, warnings
}

// ToMovement materializes a validated input into a Movement owned by
// the given user, applying the documented defaults: kind falls back
// to safety_patrol, transport to the owner's registered transport and
// the state to completed when an end location was supplied, started
// otherwise. Call Validate first; ToMovement assumes its contract.
func (in *MovementInput) ToMovement(owner User) Movement {
	now := time.Now().UTC()
	date, _ := parseDate(in.Date)

	m := Movement{
		UserID:       owner.ID,
		Kind:         in.Kind,
		State:        in.State,
		DistanceKM:   *in.DistanceKM,
		AvgSpeedKMH:  *in.AvgSpeedKMH,
		MaxSpeedKMH:  *in.MaxSpeedKMH,
		DurationMin:  *in.DurationMin,
		Date:         date,
		Region:       in.Region,
		Transport:    in.Transport,
		Observations: in.Observations,
		Route:        in.Route,
		IsActive:     true,
	}
	if m.Kind == "" {
		m.Kind = KindSafetyPatrol
	}
	if m.Transport == "" {
		m.Transport = owner.Transport
	}

	m.Start = locationFrom(in.StartLocation, now)
	if in.EndLocation != nil {
		end := locationFrom(in.EndLocation, now)
		m.End = &end
	}
	if m.State == "" {
		if m.End != nil {
			m.State = StateCompleted
		} else {
			m.State = StateStarted
		}
	}
	if m.State == StateCompleted {
		endedAt := now
		if m.End != nil {
			endedAt = m.End.Timestamp
		}
		m.EndedAt = &endedAt
	}

	for _, inc := range in.Incidents {
		if inc.Severity == "" {
			inc.Severity = SeverityMedium
		}
		if inc.Timestamp.IsZero() {
			inc.Timestamp = now
		}
		m.Incidents = append(m.Incidents, inc)
	}
	return m
}

func locationFrom(in *LocationInput, fallback time.Time) Location {
	loc := Location{
		Latitude:  *in.Latitude,
		Longitude: *in.Longitude,
		Timestamp: fallback,
		Address:   in.Address,
	}
	if in.Timestamp != nil {
		loc.Timestamp = *in.Timestamp
	}
	return loc
}
