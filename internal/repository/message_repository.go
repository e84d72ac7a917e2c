package repository

import (
	"context"
	"database/sql"

	"github.com/supervitec/field-movement-api/internal/model"
)

type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

const messageColumns = `m.id, m.sender_id, m.recipient_id, m.kind, m.subject, m.body,
	m.is_read, m.read_at, m.is_active, m.created_at, u.full_name`

// Create stores a message and returns its id.
func (r *MessageRepo) Create(ctx context.Context, msg model.Message) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO messages (sender_id, recipient_id, kind, subject, body)
		 VALUES (?,?,?,?,?)`,
		msg.SenderID, msg.RecipientID, msg.Kind, msg.Subject, msg.Body)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Inbox returns the active messages addressed to a user, newest first,
// with the sender's display name resolved.
func (r *MessageRepo) Inbox(ctx context.Context, recipientID uint64) ([]model.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m JOIN users u ON u.id = m.sender_id
		 WHERE m.recipient_id=? AND m.is_active=TRUE
		 ORDER BY m.created_at DESC, m.id DESC`, recipientID)
}

// CountUnread returns the recipient's unread message count.
func (r *MessageRepo) CountUnread(ctx context.Context, recipientID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE recipient_id=? AND is_read=FALSE AND is_active=TRUE",
		recipientID).Scan(&n)
	return n, err
}

// GetByID fetches a single message with the sender name resolved.
func (r *MessageRepo) GetByID(ctx context.Context, id uint64) (model.Message, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m JOIN users u ON u.id = m.sender_id
		 WHERE m.id=? LIMIT 1`, id)
	return scanMessage(row)
}

// MarkRead flags one of the recipient's messages as read. The
// recipient filter keeps users from touching messages that are not
// theirs.
func (r *MessageRepo) MarkRead(ctx context.Context, id, recipientID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE messages SET is_read=TRUE, read_at=UTC_TIMESTAMP()
		 WHERE id=? AND recipient_id=? AND is_read=FALSE AND is_active=TRUE`,
		id, recipientID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "already read" from "not yours / missing".
		var owner uint64
		err := r.DB.QueryRowContext(ctx,
			"SELECT recipient_id FROM messages WHERE id=? AND is_active=TRUE", id).Scan(&owner)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != recipientID {
			return ErrForbidden
		}
	}
	return nil
}

// MarkAllRead flags every unread message in the recipient's inbox.
func (r *MessageRepo) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE messages SET is_read=TRUE, read_at=UTC_TIMESTAMP()
		 WHERE recipient_id=? AND is_read=FALSE AND is_active=TRUE`,
		recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SoftDelete hides a message from the recipient's inbox.
func (r *MessageRepo) SoftDelete(ctx context.Context, id, recipientID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE messages SET is_active=FALSE WHERE id=? AND recipient_id=? AND is_active=TRUE",
		id, recipientID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// Recent returns the newest active messages for the activity feed.
func (r *MessageRepo) Recent(ctx context.Context, limit int) ([]model.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m JOIN users u ON u.id = m.sender_id
		 WHERE m.is_active=TRUE
		 ORDER BY m.created_at DESC, m.id DESC LIMIT ?`, limit)
}

// ListForUser returns the active messages a user sent or received,
// newest first, for the admin per-user thread view.
func (r *MessageRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m JOIN users u ON u.id = m.sender_id
		 WHERE (m.sender_id=? OR m.recipient_id=?) AND m.is_active=TRUE
		 ORDER BY m.created_at DESC, m.id DESC`, userID, userID)
}

// ListAll returns every active message in the system, for admins.
func (r *MessageRepo) ListAll(ctx context.Context) ([]model.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m JOIN users u ON u.id = m.sender_id
		 WHERE m.is_active=TRUE
		 ORDER BY m.created_at DESC, m.id DESC`)
}

func (r *MessageRepo) queryMessages(ctx context.Context, q string, args ...interface{}) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(row rowScanner) (model.Message, error) {
	var m model.Message
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Kind, &m.Subject,
		&m.Body, &m.IsRead, &m.ReadAt, &m.IsActive, &m.CreatedAt, &m.SenderName)
	if err == sql.ErrNoRows {
		return model.Message{}, ErrNotFound
	}
	return m, err
}
