package auth

import "time"

// Session liveness thresholds. Tokens are stateless; these drive the
// advisory activity tracker, not token expiry.
const (
	// InactivityTimeout flags a session inactive after this much
	// idle time.
	InactivityTimeout = 30 * time.Minute
	// MaxSessionTime is the hard ceiling on a session's total life.
	MaxSessionTime = 8 * time.Hour
)

// Inactivity describes how stale a session is relative to the
// configured thresholds.
type Inactivity struct {
	IsInactive       bool `json:"is_inactive"`
	IsExpiredSession bool `json:"is_expired_session"`
	InactiveMinutes  int  `json:"inactive_minutes"`
}

// CheckInactivity reports whether a session has been idle past the
// inactivity threshold and whether it has exceeded the hard session
// ceiling. It is pure bookkeeping: callers decide whether to force
// re-authentication.
func CheckInactivity(lastActivity time.Time) Inactivity {
	return checkInactivityAt(lastActivity, time.Now())
}

func checkInactivityAt(lastActivity, now time.Time) Inactivity {
	idle := now.Sub(lastActivity)
	return Inactivity{
		IsInactive:       idle > InactivityTimeout,
		IsExpiredSession: idle > MaxSessionTime,
		InactiveMinutes:  int(idle.Minutes()),
	}
}
