package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func validInput() MovementInput {
	return MovementInput{
		StartLocation: &LocationInput{Latitude: f(5.07), Longitude: f(-75.52)},
		EndLocation:   &LocationInput{Latitude: f(5.06), Longitude: f(-75.50)},
		DistanceKM:    f(12.5),
		AvgSpeedKMH:   f(35),
		MaxSpeedKMH:   f(60),
		DurationMin:   f(21),
		Date:          "2026-03-15",
		Region:        RegionCaldas,
	}
}

func TestValidateAccepts(t *testing.T) {
	in := validInput()
	fields, warnings := in.Validate()
	assert.Empty(t, fields)
	assert.Empty(t, warnings)
}

func TestValidateEnumeratesEveryMissingField(t *testing.T) {
	in := MovementInput{}
	fields, _ := in.Validate()
	assert.ElementsMatch(t, []string{
		"start_location", "distance_km", "avg_speed_kmh",
		"max_speed_kmh", "duration_min", "date", "region",
	}, fields)
}

func TestValidateRejectsNegativeNumerics(t *testing.T) {
	in := validInput()
	in.DistanceKM = f(-1)
	in.MaxSpeedKMH = f(-0.5)
	fields, _ := in.Validate()
	assert.ElementsMatch(t, []string{"distance_km", "max_speed_kmh"}, fields)
}

func TestValidateZeroWarnsInsteadOfRejecting(t *testing.T) {
	in := validInput()
	in.DistanceKM = f(0)
	in.AvgSpeedKMH = f(0)
	fields, warnings := in.Validate()
	assert.Empty(t, fields)
	assert.ElementsMatch(t, []string{"distance_km is zero", "avg_speed_kmh is zero"}, warnings)
}

func TestValidateRejectsUnknownRegion(t *testing.T) {
	in := validInput()
	in.Region = "Antioquia"
	fields, _ := in.Validate()
	assert.Equal(t, []string{"region"}, fields)
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	in := validInput()
	in.Kind = "joyride"
	in.Transport = "helicopter"
	in.State = "done"
	fields, _ := in.Validate()
	assert.ElementsMatch(t, []string{"kind", "transport", "state"}, fields)
}

func TestValidateRejectsIncompleteEndLocation(t *testing.T) {
	in := validInput()
	in.EndLocation = &LocationInput{Latitude: f(5.06)}
	fields, _ := in.Validate()
	assert.Equal(t, []string{"end_location"}, fields)
}

func TestValidateEndLocationOptional(t *testing.T) {
	in := validInput()
	in.EndLocation = nil
	fields, _ := in.Validate()
	assert.Empty(t, fields)
}

func TestValidateAcceptsRFC3339Date(t *testing.T) {
	in := validInput()
	in.Date = "2026-03-15T08:30:00Z"
	fields, _ := in.Validate()
	assert.Empty(t, fields)
}

func TestValidateRejectsBadDate(t *testing.T) {
	in := validInput()
	in.Date = "15/03/2026"
	fields, _ := in.Validate()
	assert.Equal(t, []string{"date"}, fields)
}

func TestValidateRejectsBadIncident(t *testing.T) {
	in := validInput()
	in.Incidents = []Incident{{Kind: "ufo_sighting"}}
	fields, _ := in.Validate()
	assert.Equal(t, []string{"incidents"}, fields)
}

func TestToMovementDefaults(t *testing.T) {
	owner := User{ID: 4, Transport: TransportMotorcycle}
	in := validInput()
	in.EndLocation = nil

	m := in.ToMovement(owner)
	assert.Equal(t, uint64(4), m.UserID)
	assert.Equal(t, KindSafetyPatrol, m.Kind)
	assert.Equal(t, TransportMotorcycle, m.Transport)
	assert.Equal(t, StateStarted, m.State)
	assert.Nil(t, m.End)
	assert.Nil(t, m.EndedAt)
	assert.True(t, m.IsActive)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), m.Date)
}

func TestToMovementCompletedWhenEndPresent(t *testing.T) {
	endStamp := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	in := validInput()
	in.EndLocation.Timestamp = &endStamp

	m := in.ToMovement(User{ID: 4, Transport: TransportCar})
	assert.Equal(t, StateCompleted, m.State)
	require.NotNil(t, m.End)
	require.NotNil(t, m.EndedAt)
	assert.Equal(t, endStamp, *m.EndedAt)
}

func TestToMovementExplicitFieldsWin(t *testing.T) {
	in := validInput()
	in.Kind = KindEmergency
	in.Transport = TransportCar
	in.State = StatePaused

	m := in.ToMovement(User{ID: 4, Transport: TransportMotorcycle})
	assert.Equal(t, KindEmergency, m.Kind)
	assert.Equal(t, TransportCar, m.Transport)
	assert.Equal(t, StatePaused, m.State)
	assert.Nil(t, m.EndedAt)
}

func TestToMovementIncidentSeverityDefault(t *testing.T) {
	in := validInput()
	in.Incidents = []Incident{
		{Kind: IncidentRisk},
		{Kind: IncidentAccident, Severity: SeverityCritical},
	}
	m := in.ToMovement(User{ID: 4})
	require.Len(t, m.Incidents, 2)
	assert.Equal(t, SeverityMedium, m.Incidents[0].Severity)
	assert.Equal(t, SeverityCritical, m.Incidents[1].Severity)
	assert.False(t, m.Incidents[0].Timestamp.IsZero())
}

func TestCompleteRecomputesDuration(t *testing.T) {
	start := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	m := Movement{
		State:       StateInProgress,
		Start:       Location{Latitude: 5, Longitude: -75, Timestamp: start},
		DurationMin: 3,
	}
	end := start.Add(95*time.Minute + 20*time.Second)
	m.Complete(end)

	assert.Equal(t, StateCompleted, m.State)
	require.NotNil(t, m.EndedAt)
	assert.Equal(t, end, *m.EndedAt)
	assert.Equal(t, float64(95), m.DurationMin)
}

func TestPublicUserHidesCredentials(t *testing.T) {
	u := User{
		ID: 9, FullName: "Ana", Email: "ana@example.com",
		PasswordHash: "$2a$10$secret", Role: RoleEngineer,
		Region: RegionQuindio, Transport: TransportCar, IsActive: true,
	}
	p := u.Public()
	assert.Equal(t, u.Email, p.Email)
	assert.Equal(t, u.Role, p.Role)
}
