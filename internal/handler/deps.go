package handler

import (
	"context"
	"time"

	"github.com/supervitec/field-movement-api/internal/model"
)

// UserStore is the slice of the user repository the auth endpoints
// consume. *repository.UserRepo satisfies it; tests substitute an
// in-memory implementation.
type UserStore interface {
	Create(ctx context.Context, u model.User, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	TouchLogin(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
	SetResetToken(ctx context.Context, id uint64, token string, expires time.Time) error
	GetByResetToken(ctx context.Context, token string) (model.User, error)
	ClearResetToken(ctx context.Context, id uint64) error
}

// SessionStore covers the session tracking and token revocation the
// auth endpoints need. *session.Store satisfies it.
type SessionStore interface {
	RecordActivity(ctx context.Context, userID uint64, tokenID, ip, userAgent string) error
	EndSession(ctx context.Context, userID uint64, tokenID string) error
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) bool
}
