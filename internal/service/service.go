package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/subgrab/subgrab/internal/captions"
	"github.com/subgrab/subgrab/internal/jobs"
	"github.com/subgrab/subgrab/internal/persistence"
	"github.com/subgrab/subgrab/internal/subtitle"
	"github.com/subgrab/subgrab/pkg/log"
)

// CaptionService ties the upstream client and the cache together. Concurrent
// requests for the same video collapse into a single upstream fetch.
type CaptionService struct {
	client CaptionClient
	store  CacheStore

	mu  sync.RWMutex
	ttl time.Duration

	flight singleflight.Group
	now    func() time.Time
}

func NewCaptionService(client CaptionClient, store CacheStore, ttl time.Duration) *CaptionService {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &CaptionService{
		client: client,
		store:  store,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetCacheTTL changes the expiry applied to newly cached entries. Existing
// entries keep the expiry they were written with.
func (s *CaptionService) SetCacheTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.ttl = ttl
	s.mu.Unlock()
}

func (s *CaptionService) CacheTTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttl
}

// ListTracks returns the caption tracks available for a video, serving from
// the cache when a fresh entry exists.
func (s *CaptionService) ListTracks(ctx context.Context, videoID string) ([]captions.Track, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("videoId is required")
	}

	now := s.now()
	if s.store != nil {
		tracks, ok, err := s.store.GetTracks(ctx, videoID, now)
		if err != nil {
			log.Warn("Failed to read track cache for %s: %v", videoID, err)
		} else if ok {
			return tracks, nil
		}
	}

	ret, err, _ := s.flight.Do("tracks|"+videoID, func() (any, error) {
		tracks, err := s.client.ListTracks(ctx, videoID)
		if err != nil {
			return nil, err
		}
		if s.store != nil {
			entry := persistence.TrackListEntry{
				VideoID:   videoID,
				Tracks:    tracks,
				ExpiresAt: s.now().Add(s.CacheTTL()),
			}
			if err := s.store.PutTracks(ctx, entry); err != nil {
				log.Warn("Failed to cache tracks for %s: %v", videoID, err)
			}
		}
		return tracks, nil
	})
	if err != nil {
		return nil, err
	}
	return ret.([]captions.Track), nil
}

// Transcript returns the cue list for (videoID, lang), fetching from upstream
// on a cache miss.
func (s *CaptionService) Transcript(ctx context.Context, videoID, lang string) ([]subtitle.Cue, error) {
	videoID = strings.TrimSpace(videoID)
	lang = strings.TrimSpace(lang)
	if videoID == "" {
		return nil, fmt.Errorf("videoId is required")
	}
	if lang == "" {
		return nil, fmt.Errorf("lang is required")
	}

	now := s.now()
	if s.store != nil {
		cues, ok, err := s.store.GetTranscript(ctx, videoID, lang, now)
		if err != nil {
			log.Warn("Failed to read transcript cache for %s/%s: %v", videoID, lang, err)
		} else if ok {
			return cues, nil
		}
	}

	ret, err, _ := s.flight.Do("transcript|"+videoID+"|"+lang, func() (any, error) {
		cues, err := s.client.FetchTranscript(ctx, videoID, lang)
		if err != nil {
			return nil, err
		}
		s.checkDetectedLanguage(videoID, lang, cues)
		if s.store != nil {
			entry := persistence.TranscriptEntry{
				VideoID:   videoID,
				Language:  lang,
				Cues:      cues,
				ExpiresAt: s.now().Add(s.CacheTTL()),
			}
			if err := s.store.PutTranscript(ctx, entry); err != nil {
				log.Warn("Failed to cache transcript for %s/%s: %v", videoID, lang, err)
			}
		}
		return cues, nil
	})
	if err != nil {
		return nil, err
	}
	return ret.([]subtitle.Cue), nil
}

// DownloadTrack fetches the transcript and renders it as a downloadable
// document in the requested format.
func (s *CaptionService) DownloadTrack(ctx context.Context, videoID, lang, format string) (subtitle.Document, error) {
	if !subtitle.SupportedFormat(format) {
		return subtitle.Document{}, fmt.Errorf("%w: %q", subtitle.ErrUnsupportedFormat, format)
	}
	cues, err := s.Transcript(ctx, videoID, lang)
	if err != nil {
		return subtitle.Document{}, err
	}
	return subtitle.Render(videoID, lang, cues, format)
}

// Executor adapts the service into a job queue executor that warms the
// transcript cache.
func (s *CaptionService) Executor() jobs.Executor {
	return func(ctx context.Context, job *jobs.FetchJob) error {
		lang := job.Payload.Language
		if strings.TrimSpace(lang) == "" {
			lang = "en"
		}
		cues, err := s.Transcript(ctx, job.Payload.VideoID, lang)
		if err != nil {
			return err
		}
		log.Info("Prefetched %d cues for %s/%s", len(cues), job.Payload.VideoID, lang)
		return nil
	}
}

// ScheduleCacheSweep registers the expired-entry sweep on the given cron
// runner. Overlapping runs collapse into one.
func (s *CaptionService) ScheduleCacheSweep(c *cron.Cron, expr string) (cron.EntryID, error) {
	if s.store == nil {
		return 0, fmt.Errorf("no cache store configured")
	}
	runFunc := func() {
		_, _, _ = s.flight.Do("cache-sweep", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			removed, err := s.store.DeleteExpired(ctx, s.now())
			if err != nil {
				log.Error("Cache sweep failed: %v", err)
				return nil, err
			}
			if removed > 0 {
				log.Info("Cache sweep removed %d expired entries", removed)
			}
			return nil, nil
		})
	}
	return c.AddFunc(expr, runFunc)
}

// checkDetectedLanguage compares the cue text against the requested track
// language and logs when they disagree. Detection on short transcripts is
// noisy, so a mismatch only warns.
func (s *CaptionService) checkDetectedLanguage(videoID, lang string, cues []subtitle.Cue) {
	detected := subtitle.DetectLanguage(cues)
	if detected == language.Und {
		return
	}
	requested, err := language.Parse(lang)
	if err != nil {
		return
	}
	requestedBase, _ := requested.Base()
	detectedBase, _ := detected.Base()
	if requestedBase != detectedBase {
		log.Warn("Transcript for %s/%s looks like %s", videoID, lang, detected)
	}
}
