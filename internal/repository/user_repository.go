package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/supervitec/field-movement-api/internal/model"
	"github.com/supervitec/field-movement-api/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, full_name, email, password_hash, role, region, transport,
	is_active, last_login, last_activity, reset_token, reset_token_expires,
	created_at, updated_at`

// Create inserts a user with a freshly hashed password and returns
// its id. Emails are normalized to lower case before the uniqueness
// check fires.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (full_name, email, password_hash, role, region, transport, is_active)
		 VALUES (?,?,?,?,?,?,?)`,
		u.FullName, email, hash, u.Role, u.Region, u.Transport, u.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// List returns all users, optionally filtered by region.
func (r *UserRepo) List(ctx context.Context, region string) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	args := []interface{}{}
	if region != "" {
		q += " WHERE region=?"
		args = append(args, region)
	}
	q += " ORDER BY full_name"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile changes the allow-listed profile fields (name and
// email); nil pointers leave the column untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fullName, email *string) error {
	sets := []string{}
	args := []interface{}{}
	if fullName != nil {
		sets = append(sets, "full_name=?")
		args = append(args, *fullName)
	}
	if email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*email)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if isDuplicate(err) {
		return ErrEmailExists
	}
	return err
}

// SetActive toggles the account's active flag.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=? WHERE id=?", active, id)
	return err
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// TouchLogin stamps a successful authentication.
func (r *UserRepo) TouchLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login=UTC_TIMESTAMP(), last_activity=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// TouchActivity stamps request activity for the inactivity policy.
func (r *UserRepo) TouchActivity(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_activity=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// SetResetToken stores a password-recovery token and its expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, token string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token=?, reset_token_expires=? WHERE id=?", token, expires, id)
	return err
}

// GetByResetToken fetches the user holding a still-valid recovery
// token. Expired or unknown tokens come back as ErrNotFound.
func (r *UserRepo) GetByResetToken(ctx context.Context, token string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+` FROM users
		 WHERE reset_token=? AND reset_token_expires > UTC_TIMESTAMP() LIMIT 1`, token)
	return scanUser(row)
}

// ClearResetToken removes a consumed recovery token.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token=NULL, reset_token_expires=NULL WHERE id=?", id)
	return err
}

// DeleteCascade hard-deletes a user and soft-invalidates every
// movement they own, in one transaction.
func (r *UserRepo) DeleteCascade(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE movements SET is_active=FALSE WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE sender_id=? OR recipient_id=?", id, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// InactiveSince returns active field personnel without any movement
// recorded since the cutoff, for the inactivity-notification job.
func (r *UserRepo) InactiveSince(ctx context.Context, cutoff time.Time) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+prefixed(userColumns, "u.")+`
		 FROM users u
		 LEFT JOIN movements m ON m.user_id = u.id AND m.date >= ? AND m.is_active = TRUE
		 WHERE u.is_active = TRUE AND u.role <> ? AND m.id IS NULL`,
		cutoff, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Counts returns the total and active user counts for the dashboard.
func (r *UserRepo) Counts(ctx context.Context) (total, active int, err error) {
	err = r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM users").Scan(&total, &active)
	return total, active, err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role,
		&u.Region, &u.Transport, &u.IsActive, &u.LastLogin, &u.LastActivity,
		&u.ResetToken, &u.ResetTokenExpires, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// requireRowAffected maps a zero-row delete to ErrNotFound.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func prefixed(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
