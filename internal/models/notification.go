package models

import "time"

// Notification types emitted by the portal.
const (
	NotificationTypeEnrollSuccess = "ENROLL_SUCCESS"
	NotificationTypeSystem        = "SYSTEM"
)

// NotificationEvent is the in-flight message handed to the dispatcher. It is
// not persisted by the producer; the consumer is the system of record.
type NotificationEvent struct {
	UserID    string  `json:"user_id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Type      string  `json:"type"`
	RelatedID *string `json:"related_id,omitempty"`
}

// Notification is the persisted, deliverable form of an event.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	Content   string     `db:"content" json:"content"`
	Type      string     `db:"type" json:"type"`
	RelatedID *string    `db:"related_id" json:"related_id,omitempty"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
}
