// Package queue carries movement lifecycle events over RabbitMQ.
package queue

import "time"

// CompletedQueue is the durable queue completed movements are
// published to.
const CompletedQueue = "movement.completed"

// MovementCompletedEvent is the payload published when a movement
// reaches the completed state, either at registration or via a later
// update.
type MovementCompletedEvent struct {
	MovementID  uint64    `json:"movement_id"`
	UserID      uint64    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Region      string    `json:"region"`
	Kind        string    `json:"kind"`
	DistanceKM  float64   `json:"distance_km"`
	DurationMin float64   `json:"duration_min"`
	EndedAt     time.Time `json:"ended_at"`
}
