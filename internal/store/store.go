package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/gtdxp-os/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Preference keys.
const (
	PrefTheme = "display.theme"
	PrefLight = "display.light"
)

// Store defines the local persistence used by the client: a history of
// shown toasts and a small key/value table of user preferences.
type Store interface {
	// === Toast history ===

	RecordNotification(ctx context.Context, n model.NotificationRecord) error
	MarkNotificationDismissed(ctx context.Context, id string, at time.Time) error
	ListNotifications(ctx context.Context, limit int) ([]model.NotificationRecord, error)
	PruneNotifications(ctx context.Context, before time.Time) (int64, error)

	// === Preferences ===

	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error

	Close() error
}
