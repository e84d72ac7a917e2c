package model

import "time"

// Message kinds.
const (
	MessageNotification = "notification"
	MessageAlert        = "alert"
	MessageGeneral      = "general"
	MessageReport       = "report"
)

// ValidMessageKind reports whether k is a known message kind.
func ValidMessageKind(k string) bool {
	switch k {
	case MessageNotification, MessageAlert, MessageGeneral, MessageReport:
		return true
	}
	return false
}

// Message mirrors the `messages` table. Messages flow between field
// personnel and admins; deletion is a soft flag like everywhere else.
type Message struct {
	ID          uint64     `json:"id"`
	SenderID    uint64     `json:"sender_id"`
	RecipientID uint64     `json:"recipient_id"`
	Kind        string     `json:"kind"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	IsActive    bool       `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`

	// SenderName is resolved on read paths for display; it is not a
	// column of the messages table.
	SenderName string `json:"sender_name,omitempty"`
}
