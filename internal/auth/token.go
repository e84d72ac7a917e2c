// Package auth implements the token lifecycle: minting and verifying
// the short-lived access tokens and the longer-lived refresh tokens,
// plus the pure inactivity policy checks.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/supervitec/field-movement-api/internal/model"
)

// Claim values distinguishing the two token classes.
const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

var (
	// ErrTokenInvalid covers bad signatures, malformed tokens and
	// tokens of the wrong class.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when the token verified fine but
	// its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the decoded identity carried by a verified token.
// Refresh tokens only populate UserID and TokenID.
type Claims struct {
	UserID    uint64
	Email     string
	Role      string
	Name      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessToken couples a signed access token with the random id that
// correlates it to its refresh counterpart, and its expiry.
type AccessToken struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// Pair is the access/refresh credential set issued at login,
// registration and refresh.
type Pair struct {
	Access           AccessToken
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Issuer mints and verifies both token classes. Access and refresh
// tokens are signed with distinct secrets so that compromise of one
// class does not allow forging the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewIssuer builds an Issuer from the configured secrets and TTLs
// (access in minutes, refresh in days).
func NewIssuer(accessSecret, refreshSecret string, accessTTLMin, refreshTTLDays int) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     time.Duration(accessTTLMin) * time.Minute,
		refreshTTL:    time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// IssueAccess signs an HS256 access token for the user with a freshly
// generated token id.
func (i *Issuer) IssueAccess(u model.User) (AccessToken, error) {
	tokenID := uuid.NewString()
	now := time.Now().UTC()
	exp := now.Add(i.accessTTL)
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"email":    u.Email,
		"role":     u.Role,
		"name":     u.FullName,
		"token_id": tokenID,
		"typ":      typeAccess,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, TokenID: tokenID, ExpiresAt: exp}, nil
}

// IssueRefresh signs a refresh token carrying the same token id as
// its paired access token.
func (i *Issuer) IssueRefresh(u model.User, tokenID string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.refreshTTL)
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"token_id": tokenID,
		"typ":      typeRefresh,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssuePair mints a correlated access/refresh pair.
func (i *Issuer) IssuePair(u model.User) (Pair, error) {
	access, err := i.IssueAccess(u)
	if err != nil {
		return Pair{}, err
	}
	refresh, exp, err := i.IssueRefresh(u, access.TokenID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, RefreshToken: refresh, RefreshExpiresAt: exp}, nil
}

// VerifyAccess validates an access token against the access secret.
func (i *Issuer) VerifyAccess(raw string) (Claims, error) {
	return i.verify(raw, i.accessSecret, typeAccess)
}

// VerifyRefresh validates a refresh token against the refresh secret.
// Callers are expected to additionally consult the revocation set
// before trusting the result.
func (i *Issuer) VerifyRefresh(raw string) (Claims, error) {
	return i.verify(raw, i.refreshSecret, typeRefresh)
}

func (i *Issuer) verify(raw string, secret []byte, wantType string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if typ, _ := mc["typ"].(string); typ != wantType {
		return Claims{}, ErrTokenInvalid
	}
	return claimsFrom(mc), nil
}

func claimsFrom(mc jwt.MapClaims) Claims {
	c := Claims{
		UserID:  asUint64(mc["sub"]),
		TokenID: asString(mc["token_id"]),
		Email:   asString(mc["email"]),
		Name:    asString(mc["name"]),
	}
	// Tokens minted before the claims schema was unified carried the
	// role under "rol". Accept both until those tokens age out.
	c.Role = asString(mc["role"])
	if c.Role == "" {
		c.Role = asString(mc["rol"])
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case float64:
		return uint64(n)
	case int64:
		return uint64(n)
	case uint64:
		return n
	}
	return 0
}
