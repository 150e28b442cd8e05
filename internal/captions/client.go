package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/subgrab/subgrab/internal/proxy"
	"github.com/subgrab/subgrab/internal/subtitle"
	"github.com/subgrab/subgrab/pkg/log"
)

const (
	defaultBaseURL   = "https://www.youtube.com"
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultTimeout   = 30
)

// Config holds the configuration for the caption client.
type Config struct {
	BaseURL   string // watch page origin, overridable for tests
	Timeout   int    // request timeout in seconds
	UserAgent string
}

// Client retrieves caption tracks and transcripts for a video. Each upstream
// request draws at most one endpoint from the proxy pool and applies it to
// that single call only.
type Client struct {
	baseURL   string
	timeout   time.Duration
	userAgent string
	pool      *proxy.Pool
}

// NewClient creates a caption client. pool may be nil, in which case all
// requests go out directly.
func NewClient(cfg Config, pool *proxy.Pool) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout:   time.Duration(cfg.Timeout) * time.Second,
		userAgent: cfg.UserAgent,
		pool:      pool,
	}
}

// ListTracks returns the caption tracks available for a video.
func (c *Client) ListTracks(ctx context.Context, videoID string) ([]Track, error) {
	raw, err := c.fetchCaptionTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	ret := make([]Track, 0, len(raw))
	for _, track := range raw {
		ret = append(ret, track.toTrack())
	}
	return ret, nil
}

// FetchTranscript downloads and parses the transcript for the given language.
// Language matching is exact first, then by base language (a request for
// "en" matches an "en-GB" track).
func (c *Client) FetchTranscript(ctx context.Context, videoID, lang string) ([]subtitle.Cue, error) {
	raw, err := c.fetchCaptionTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	track, ok := matchTrack(raw, lang)
	if !ok {
		return nil, fmt.Errorf("%w: video %s, language %s", ErrNoTranscript, videoID, lang)
	}

	body, err := c.get(ctx, timedTextURL(track.BaseURL))
	if err != nil {
		return nil, err
	}

	var parsed timedTextResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &UpstreamError{Op: "timedtext parse", Err: err}
	}
	return eventsToCues(parsed.Events), nil
}

// fetchCaptionTracks loads the watch page and extracts the caption track
// list from the embedded player response.
func (c *Client) fetchCaptionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	watchURL := fmt.Sprintf("%s/watch?v=%s&hl=en", c.baseURL, url.QueryEscape(videoID))
	body, err := c.get(ctx, watchURL)
	if err != nil {
		return nil, err
	}

	blob, ok := extractJSONObject(string(body), `"captions":`)
	if !ok {
		return nil, fmt.Errorf("%w: video %s", ErrCaptionsDisabled, videoID)
	}

	var block captionsBlock
	if err := json.Unmarshal([]byte(blob), &block); err != nil {
		return nil, &UpstreamError{Op: "player response parse", Err: err}
	}

	tracks := block.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: video %s", ErrCaptionsDisabled, videoID)
	}
	return tracks, nil
}

// get performs one upstream request through the next proxy in the pool, if
// any is configured.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var endpoint string
	if c.pool != nil {
		if selected, ok := c.pool.Next(); ok {
			endpoint = selected
			log.Debug("Using proxy %s for upstream request", endpoint)
		}
	}
	client := proxy.HTTPClient(endpoint, c.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Op: "fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Op: "read response", Err: err}
	}
	return body, nil
}

func matchTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	for _, track := range tracks {
		if track.LanguageCode == lang {
			return track, true
		}
	}

	want, err := language.Parse(lang)
	if err != nil {
		return captionTrack{}, false
	}
	wantBase, _ := want.Base()
	for _, track := range tracks {
		got, err := language.Parse(track.LanguageCode)
		if err != nil {
			continue
		}
		if gotBase, _ := got.Base(); gotBase == wantBase {
			return track, true
		}
	}
	return captionTrack{}, false
}

func timedTextURL(baseURL string) string {
	if strings.Contains(baseURL, "fmt=") {
		return baseURL
	}
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "fmt=json3"
}

func eventsToCues(events []timedTextEvent) []subtitle.Cue {
	ret := make([]subtitle.Cue, 0, len(events))
	for _, event := range events {
		var b strings.Builder
		for _, seg := range event.Segs {
			b.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		ret = append(ret, subtitle.Cue{
			Text:     text,
			Start:    float64(event.StartMs) / 1000,
			Duration: float64(event.DurationMs) / 1000,
		})
	}
	return ret
}

// extractJSONObject finds marker in src and returns the brace-balanced JSON
// object that follows it.
func extractJSONObject(src, marker string) (string, bool) {
	idx := strings.Index(src, marker)
	if idx < 0 {
		return "", false
	}
	rest := src[idx+len(marker):]
	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(rest); i++ {
		ch := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[start : i+1], true
			}
		}
	}
	return "", false
}
