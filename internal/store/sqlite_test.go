package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gtdxp-os/internal/model"
	"github.com/nhle/gtdxp-os/internal/store"
	"github.com/nhle/gtdxp-os/internal/toast"
	"github.com/nhle/gtdxp-os/tests/testutil"
)

func TestSQLiteStore_Migrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "gtdxp.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	require.NoError(t, s.Close())

	// Reopening does not reapply anything.
	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestSQLiteStore_NotificationHistory(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, s.RecordNotification(ctx, model.NotificationRecord{
			ID:         title,
			Title:      title,
			Kind:       "success",
			DurationMS: 3000,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := s.ListNotifications(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].ID)
	assert.Equal(t, "second", records[1].ID)
	assert.Nil(t, records[0].DismissedAt)
	assert.Equal(t, int64(3000), records[0].DurationMS)

	dismissed := base.Add(10 * time.Minute)
	require.NoError(t, s.MarkNotificationDismissed(ctx, "third", dismissed))
	require.NoError(t, s.MarkNotificationDismissed(ctx, "third", dismissed.Add(time.Hour)))

	records, err = s.ListNotifications(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.NotNil(t, records[0].DismissedAt)
	assert.True(t, records[0].DismissedAt.Equal(dismissed), "first dismissal wins")

	err = s.MarkNotificationDismissed(ctx, "missing", dismissed)
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := s.PruneNotifications(ctx, base.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	records, err = s.ListNotifications(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "third", records[0].ID)
}

func TestSQLiteStore_RecordNotificationDefaults(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.RecordNotification(ctx, model.NotificationRecord{Title: "Saved"}))
	assert.Error(t, s.RecordNotification(ctx, model.NotificationRecord{Title: "  "}))

	records, err := s.ListNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, "default", records[0].Kind)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestSQLiteStore_Preferences(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.GetPreference(ctx, store.PrefTheme)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetPreference(ctx, store.PrefTheme, "cyberpunk"))
	require.NoError(t, s.SetPreference(ctx, store.PrefTheme, "space"))

	v, err := s.GetPreference(ctx, store.PrefTheme)
	require.NoError(t, err)
	assert.Equal(t, "space", v)

	assert.Error(t, s.SetPreference(ctx, "", "x"))
}

func TestRecorder_WritesQueueHistory(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	q := toast.New(toast.WithDefaultDuration(time.Hour))

	r := store.NewRecorder(s, q, nil)

	kept, err := q.Enqueue(toast.Request{Title: "Welcome back", Kind: toast.KindSuccess})
	require.NoError(t, err)
	gone, err := q.Enqueue(toast.Request{Title: "Session expired", Kind: toast.KindError})
	require.NoError(t, err)
	require.True(t, q.Dismiss(gone.ID))

	r.Close()
	r.Close()

	// Not recorded: the recorder is closed.
	_, err = q.Enqueue(toast.Request{Title: "after close"})
	require.NoError(t, err)

	records, err := s.ListNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byID := map[string]model.NotificationRecord{}
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	require.Contains(t, byID, kept.ID)
	require.Contains(t, byID, gone.ID)

	assert.Equal(t, "success", byID[kept.ID].Kind)
	assert.Equal(t, time.Hour.Milliseconds(), byID[kept.ID].DurationMS)
	assert.Nil(t, byID[kept.ID].DismissedAt)
	assert.NotNil(t, byID[gone.ID].DismissedAt)

	q.Clear()
}
