// Package session keeps advisory liveness state for issued tokens in
// Redis: one descriptor hash per (user, token id) plus a revocation
// set consulted when refresh tokens are rotated or a logout forces a
// session to end before its natural expiry.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supervitec/field-movement-api/internal/auth"
)

// Descriptor is one concurrent session as shown in the admin view.
type Descriptor struct {
	TokenID      string    `json:"token_id"`
	IP           string    `json:"ip"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Store is safe for concurrent use. A Store with a nil client is a
// no-op: tracking is advisory and must never fail a request.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func sessionKey(userID uint64, tokenID string) string {
	return fmt.Sprintf("session:%d:%s", userID, tokenID)
}

func revokedKey(tokenID string) string { return "revoked:" + tokenID }

// RecordActivity upserts the descriptor for tokenID and refreshes its
// TTL. The key expiring is what enforces the inactivity threshold, so
// no background sweeper is needed for idle sessions.
func (s *Store) RecordActivity(ctx context.Context, userID uint64, tokenID, ip, userAgent string) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	key := sessionKey(userID, tokenID)
	now := time.Now().UTC().Format(time.RFC3339)
	pipe := s.rdb.TxPipeline()
	pipe.HSetNX(ctx, key, "created_at", now)
	pipe.HSet(ctx, key,
		"token_id", tokenID,
		"ip", ip,
		"user_agent", userAgent,
		"last_activity", now)
	pipe.Expire(ctx, key, auth.InactivityTimeout)
	_, err := pipe.Exec(ctx)
	return err
}

// ActiveSessions lists the live descriptors for a user.
func (s *Store) ActiveSessions(ctx context.Context, userID uint64) ([]Descriptor, error) {
	if s == nil || s.rdb == nil {
		return nil, nil
	}
	out := []Descriptor{}
	iter := s.rdb.Scan(ctx, 0, fmt.Sprintf("session:%d:*", userID), 100).Iterator()
	for iter.Next(ctx) {
		vals, err := s.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		out = append(out, descriptorFrom(vals))
	}
	return out, iter.Err()
}

// PruneExpired removes descriptors past the inactivity threshold or
// the hard session ceiling. Idle keys expire on their own via TTL;
// this sweep exists for sessions that keep reporting activity but
// have outlived MaxSessionTime. Idempotent.
func (s *Store) PruneExpired(ctx context.Context, userID uint64) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	now := time.Now().UTC()
	iter := s.rdb.Scan(ctx, 0, fmt.Sprintf("session:%d:*", userID), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		vals, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		d := descriptorFrom(vals)
		tooIdle := !d.LastActivity.IsZero() && now.Sub(d.LastActivity) > auth.InactivityTimeout
		tooOld := !d.CreatedAt.IsZero() && now.Sub(d.CreatedAt) > auth.MaxSessionTime
		if tooIdle || tooOld {
			_ = s.rdb.Del(ctx, key).Err()
		}
	}
	return iter.Err()
}

// EndSession drops a single descriptor, used on logout.
func (s *Store) EndSession(ctx context.Context, userID uint64, tokenID string) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(userID, tokenID)).Err()
}

// RevokeToken adds a token id to the revocation set. The entry lives
// only as long as the token would have anyway, so the set stays small.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if s == nil || s.rdb == nil || ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedKey(tokenID), 1, ttl).Err()
}

// IsRevoked reports whether a token id has been revoked. On a Redis
// failure it reports not revoked; natural expiry remains the backstop.
func (s *Store) IsRevoked(ctx context.Context, tokenID string) bool {
	if s == nil || s.rdb == nil {
		return false
	}
	n, err := s.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	return err == nil && n > 0
}

func descriptorFrom(vals map[string]string) Descriptor {
	d := Descriptor{
		TokenID:   vals["token_id"],
		IP:        vals["ip"],
		UserAgent: vals["user_agent"],
	}
	if t, err := time.Parse(time.RFC3339, vals["created_at"]); err == nil {
		d.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, vals["last_activity"]); err == nil {
		d.LastActivity = t
	}
	return d
}
