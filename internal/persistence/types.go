package persistence

import (
	"time"

	"github.com/subgrab/subgrab/internal/captions"
	"github.com/subgrab/subgrab/internal/subtitle"
)

// TranscriptEntry is one cached transcript keyed by (video, language).
type TranscriptEntry struct {
	VideoID   string
	Language  string
	Cues      []subtitle.Cue
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// TrackListEntry is one cached track listing keyed by video.
type TrackListEntry struct {
	VideoID   string
	Tracks    []captions.Track
	ExpiresAt time.Time
	UpdatedAt time.Time
}
