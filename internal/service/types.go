package service

import (
	"context"
	"time"

	"github.com/subgrab/subgrab/internal/captions"
	"github.com/subgrab/subgrab/internal/persistence"
	"github.com/subgrab/subgrab/internal/subtitle"
)

// CaptionClient fetches track lists and transcripts from the upstream video
// platform.
type CaptionClient interface {
	ListTracks(ctx context.Context, videoID string) ([]captions.Track, error)
	FetchTranscript(ctx context.Context, videoID, lang string) ([]subtitle.Cue, error)
}

// CacheStore persists fetched track lists and transcripts with an expiry.
type CacheStore interface {
	GetTracks(ctx context.Context, videoID string, now time.Time) ([]captions.Track, bool, error)
	PutTracks(ctx context.Context, entry persistence.TrackListEntry) error
	GetTranscript(ctx context.Context, videoID, lang string, now time.Time) ([]subtitle.Cue, bool, error)
	PutTranscript(ctx context.Context, entry persistence.TranscriptEntry) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
