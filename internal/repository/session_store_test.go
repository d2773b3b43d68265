package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/session"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore(time.Hour, nil)
	ctx := context.Background()
	sess := session.New("abc", 7, time.Now(), 30)

	require.NoError(t, store.Save(ctx, sess))
	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.OwnerID)

	got.Selection.GradeID = 4
	again, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Zero(t, again.Selection.GradeID)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore(time.Minute, nil)
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Save(context.Background(), session.New("old", 1, now, 30)))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(context.Background(), "old")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Sweep())
}

func TestSessionSnapshotJSON(t *testing.T) {
	sess := session.New("abc", 7, time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC), 30)
	tag, err := sess.BeginGradeSelection(8)
	require.NoError(t, err)
	sess.ApplyRoster(tag, &models.Roster{GradeID: 8, Entries: []models.RosterEntry{{ID: 11, DisplayName: "Amara"}}})
	require.NoError(t, sess.OpenEditor(11, models.AttendanceStatusAbsent))
	require.NoError(t, sess.ConfirmEditor(models.AttendanceDetail{Reason: "sick"}))

	raw, err := json.Marshal(sess)
	require.NoError(t, err)
	var back session.Session
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "sick", back.Details[11].Reason)
	assert.Equal(t, models.AttendanceStatusAbsent, back.Roster[0].AttendanceStatus)
	assert.Equal(t, tag, back.Fetch)
}
