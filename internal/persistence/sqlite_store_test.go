package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subgrab/subgrab/internal/captions"
	"github.com/subgrab/subgrab/internal/jobs"
	"github.com/subgrab/subgrab/internal/subtitle"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestSQLiteStore_TranscriptRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	cues := []subtitle.Cue{
		{Text: "Hi", Start: 0, Duration: 1.5},
		{Text: "There", Start: 1.5, Duration: 2},
	}
	require.NoError(t, store.PutTranscript(ctx, TranscriptEntry{
		VideoID:   "abc123",
		Language:  "en",
		Cues:      cues,
		ExpiresAt: now.Add(time.Hour),
	}))

	got, ok, err := store.GetTranscript(ctx, "abc123", "en", now)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cues, got)

	_, ok, err = store.GetTranscript(ctx, "abc123", "de", now)
	require.NoError(t, err)
	require.False(t, ok)

	// Expired entries behave like misses.
	_, ok, err = store.GetTranscript(ctx, "abc123", "en", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore_TranscriptUpsertReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, text := range []string{"first", "second"} {
		require.NoError(t, store.PutTranscript(ctx, TranscriptEntry{
			VideoID:   "abc123",
			Language:  "en",
			Cues:      []subtitle.Cue{{Text: text, Start: 0, Duration: 1}},
			ExpiresAt: now.Add(time.Hour),
		}))
	}

	got, ok, err := store.GetTranscript(ctx, "abc123", "en", now)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "second", got[0].Text)
}

func TestSQLiteStore_TracksRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	tracks := []captions.Track{
		{LanguageCode: "en", LanguageName: "English", IsTranslatable: true},
		{LanguageCode: "de", LanguageName: "German", IsGenerated: true},
	}
	require.NoError(t, store.PutTracks(ctx, TrackListEntry{
		VideoID:   "abc123",
		Tracks:    tracks,
		ExpiresAt: now.Add(time.Hour),
	}))

	got, ok, err := store.GetTracks(ctx, "abc123", now)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tracks, got)

	_, ok, err = store.GetTracks(ctx, "unknown", now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore_DeleteExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.PutTranscript(ctx, TranscriptEntry{
		VideoID:   "old",
		Language:  "en",
		Cues:      []subtitle.Cue{{Text: "x"}},
		ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, store.PutTranscript(ctx, TranscriptEntry{
		VideoID:   "fresh",
		Language:  "en",
		Cues:      []subtitle.Cue{{Text: "y"}},
		ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, store.PutTracks(ctx, TrackListEntry{
		VideoID:   "old",
		Tracks:    []captions.Track{{LanguageCode: "en"}},
		ExpiresAt: now.Add(-time.Minute),
	}))

	removed, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	_, ok, err := store.GetTranscript(ctx, "fresh", "en", now)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSQLiteStore_JobsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	job := &jobs.FetchJob{
		ID:        "job-1",
		Source:    "manual",
		DedupeKey: "abc123|en",
		Payload:   jobs.JobPayload{VideoID: "abc123", Language: "en"},
		Status:    jobs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.UpsertJob(ctx, job))

	job.Status = jobs.StatusFailed
	job.Error = "boom"
	require.NoError(t, store.UpsertJob(ctx, job))

	loaded, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "job-1", loaded[0].ID)
	require.Equal(t, jobs.StatusFailed, loaded[0].Status)
	require.Equal(t, "boom", loaded[0].Error)
	require.Equal(t, "abc123", loaded[0].Payload.VideoID)
	require.Equal(t, "en", loaded[0].Payload.Language)

	require.NoError(t, store.DeleteJob(ctx, "job-1"))
	loaded, err = store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	ctx := context.Background()
	now := time.Now()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.PutTranscript(ctx, TranscriptEntry{
		VideoID:   "abc123",
		Language:  "en",
		Cues:      []subtitle.Cue{{Text: "Hi", Start: 0, Duration: 1}},
		ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, reopened.Close())
	})

	got, ok, err := reopened.GetTranscript(ctx, "abc123", "en", now)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hi", got[0].Text)
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	require.Error(t, err)
}
