package model

import "time"

// NotificationRecord is a toast as kept in the local history after it has
// been shown.
type NotificationRecord struct {
	// ID is the queue-assigned identifier of the toast.
	ID string `db:"id" json:"id"`

	// Title is the headline text.
	Title string `db:"title" json:"title"`

	// Description is the optional body text.
	Description string `db:"description" json:"description"`

	// Kind is one of default, success, error or warning.
	Kind string `db:"kind" json:"kind"`

	// DurationMS is how long the toast stayed fully visible.
	DurationMS int64 `db:"duration_ms" json:"duration_ms"`

	// CreatedAt is when the toast was enqueued.
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// DismissedAt is when the toast left the queue, nil while active.
	DismissedAt *time.Time `db:"dismissed_at" json:"dismissed_at,omitempty"`
}
