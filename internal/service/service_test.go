package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subgrab/subgrab/internal/captions"
	"github.com/subgrab/subgrab/internal/jobs"
	"github.com/subgrab/subgrab/internal/persistence"
	"github.com/subgrab/subgrab/internal/subtitle"
)

type fakeClient struct {
	mu              sync.Mutex
	listCalls       int
	transcriptCalls int
	delay           time.Duration

	tracks []captions.Track
	cues   []subtitle.Cue
	err    error
}

func (c *fakeClient) ListTracks(ctx context.Context, videoID string) ([]captions.Track, error) {
	c.mu.Lock()
	c.listCalls++
	c.mu.Unlock()
	time.Sleep(c.delay)
	return c.tracks, c.err
}

func (c *fakeClient) FetchTranscript(ctx context.Context, videoID, lang string) ([]subtitle.Cue, error) {
	c.mu.Lock()
	c.transcriptCalls++
	c.mu.Unlock()
	time.Sleep(c.delay)
	return c.cues, c.err
}

type memCache struct {
	mu          sync.Mutex
	tracks      map[string]persistence.TrackListEntry
	transcripts map[string]persistence.TranscriptEntry
}

func newMemCache() *memCache {
	return &memCache{
		tracks:      make(map[string]persistence.TrackListEntry),
		transcripts: make(map[string]persistence.TranscriptEntry),
	}
}

func (m *memCache) GetTracks(_ context.Context, videoID string, now time.Time) ([]captions.Track, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.tracks[videoID]
	if !ok || !entry.ExpiresAt.After(now) {
		return nil, false, nil
	}
	return entry.Tracks, true, nil
}

func (m *memCache) PutTracks(_ context.Context, entry persistence.TrackListEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[entry.VideoID] = entry
	return nil
}

func (m *memCache) GetTranscript(_ context.Context, videoID, lang string, now time.Time) ([]subtitle.Cue, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.transcripts[videoID+"|"+lang]
	if !ok || !entry.ExpiresAt.After(now) {
		return nil, false, nil
	}
	return entry.Cues, true, nil
}

func (m *memCache) PutTranscript(_ context.Context, entry persistence.TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[entry.VideoID+"|"+entry.Language] = entry
	return nil
}

func (m *memCache) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key, entry := range m.transcripts {
		if !entry.ExpiresAt.After(now) {
			delete(m.transcripts, key)
			removed++
		}
	}
	for key, entry := range m.tracks {
		if !entry.ExpiresAt.After(now) {
			delete(m.tracks, key)
			removed++
		}
	}
	return removed, nil
}

func TestCaptionService_ListTracksUsesCache(t *testing.T) {
	client := &fakeClient{tracks: []captions.Track{{LanguageCode: "en", LanguageName: "English"}}}
	svc := NewCaptionService(client, newMemCache(), time.Hour)

	for range 3 {
		tracks, err := svc.ListTracks(context.Background(), "abc123")
		require.NoError(t, err)
		require.Len(t, tracks, 1)
		require.Equal(t, "en", tracks[0].LanguageCode)
	}
	assert.Equal(t, 1, client.listCalls)
}

func TestCaptionService_ListTracksRequiresVideoID(t *testing.T) {
	svc := NewCaptionService(&fakeClient{}, nil, time.Hour)
	_, err := svc.ListTracks(context.Background(), "   ")
	require.Error(t, err)
}

func TestCaptionService_ConcurrentFetchCollapses(t *testing.T) {
	client := &fakeClient{
		cues:  []subtitle.Cue{{Text: "Hi", Start: 0, Duration: 1}},
		delay: 50 * time.Millisecond,
	}
	svc := NewCaptionService(client, nil, time.Hour)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cues, err := svc.Transcript(context.Background(), "abc123", "en")
			assert.NoError(t, err)
			assert.Len(t, cues, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, client.transcriptCalls)
}

func TestCaptionService_TranscriptCacheExpires(t *testing.T) {
	client := &fakeClient{cues: []subtitle.Cue{{Text: "Hi"}}}
	svc := NewCaptionService(client, newMemCache(), time.Hour)

	current := time.Now()
	svc.now = func() time.Time { return current }

	_, err := svc.Transcript(context.Background(), "abc123", "en")
	require.NoError(t, err)
	_, err = svc.Transcript(context.Background(), "abc123", "en")
	require.NoError(t, err)
	assert.Equal(t, 1, client.transcriptCalls)

	current = current.Add(2 * time.Hour)
	_, err = svc.Transcript(context.Background(), "abc123", "en")
	require.NoError(t, err)
	assert.Equal(t, 2, client.transcriptCalls)
}

func TestCaptionService_DownloadTrack(t *testing.T) {
	client := &fakeClient{cues: []subtitle.Cue{
		{Text: "Hello", Start: 0, Duration: 1.5},
	}}
	svc := NewCaptionService(client, nil, time.Hour)

	doc, err := svc.DownloadTrack(context.Background(), "abc123", "en", subtitle.FormatSRT)
	require.NoError(t, err)
	assert.Equal(t, "application/x-subrip", doc.MIMEType)
	assert.Equal(t, "abc123_en.srt", doc.Filename)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n", string(doc.Content))
}

func TestCaptionService_DownloadTrackRejectsFormatBeforeFetch(t *testing.T) {
	client := &fakeClient{}
	svc := NewCaptionService(client, nil, time.Hour)

	_, err := svc.DownloadTrack(context.Background(), "abc123", "en", "xml")
	require.ErrorIs(t, err, subtitle.ErrUnsupportedFormat)
	assert.Zero(t, client.transcriptCalls)
}

func TestCaptionService_Executor(t *testing.T) {
	client := &fakeClient{cues: []subtitle.Cue{{Text: "Hi"}}}
	cache := newMemCache()
	svc := NewCaptionService(client, cache, time.Hour)

	exec := svc.Executor()
	err := exec(context.Background(), &jobs.FetchJob{
		ID:      "job-1",
		Payload: jobs.JobPayload{VideoID: "abc123", Language: "en"},
	})
	require.NoError(t, err)

	cues, ok, err := cache.GetTranscript(context.Background(), "abc123", "en", time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cues, 1)
}

func TestCaptionService_ExecutorPropagatesError(t *testing.T) {
	client := &fakeClient{err: errors.New("boom")}
	svc := NewCaptionService(client, nil, time.Hour)

	err := svc.Executor()(context.Background(), &jobs.FetchJob{
		ID:      "job-1",
		Payload: jobs.JobPayload{VideoID: "abc123", Language: "en"},
	})
	require.Error(t, err)
}

func TestCaptionService_ScheduleCacheSweep(t *testing.T) {
	cache := newMemCache()
	svc := NewCaptionService(&fakeClient{}, cache, time.Hour)

	runner := cron.New()
	id, err := svc.ScheduleCacheSweep(runner, "0 * * * *")
	require.NoError(t, err)
	require.NotZero(t, id)
	require.Len(t, runner.Entries(), 1)

	noStore := NewCaptionService(&fakeClient{}, nil, time.Hour)
	_, err = noStore.ScheduleCacheSweep(runner, "0 * * * *")
	require.Error(t, err)
}
