package captions

import "strings"

// Track describes one caption track available for a video.
type Track struct {
	LanguageCode   string `json:"lang"`
	LanguageName   string `json:"name"`
	IsGenerated    bool   `json:"is_auto_generated"`
	IsTranslatable bool   `json:"is_translatable"`
}

// captionsBlock mirrors the captions object embedded in the watch page
// player response.
type captionsBlock struct {
	PlayerCaptionsTracklistRenderer playerCaptionsTracklistRenderer `json:"playerCaptionsTracklistRenderer"`
}

type playerCaptionsTracklistRenderer struct {
	CaptionTracks []captionTrack `json:"captionTracks"`
}

type captionTrack struct {
	BaseURL        string   `json:"baseUrl"`
	Name           langText `json:"name"`
	VssID          string   `json:"vssId"`
	LanguageCode   string   `json:"languageCode"`
	Kind           string   `json:"kind,omitempty"`
	IsTranslatable bool     `json:"isTranslatable"`
}

type langText struct {
	SimpleText string    `json:"simpleText"`
	Runs       []textRun `json:"runs"`
}

type textRun struct {
	Text string `json:"text"`
}

func (t langText) text() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	parts := make([]string, 0, len(t.Runs))
	for _, run := range t.Runs {
		parts = append(parts, run.Text)
	}
	return strings.Join(parts, "")
}

// asrKind marks auto-generated (speech recognition) tracks.
const asrKind = "asr"

func (t captionTrack) toTrack() Track {
	return Track{
		LanguageCode:   t.LanguageCode,
		LanguageName:   t.Name.text(),
		IsGenerated:    t.Kind == asrKind,
		IsTranslatable: t.IsTranslatable,
	}
}

// timedTextResponse is the fmt=json3 timedtext payload.
type timedTextResponse struct {
	Events []timedTextEvent `json:"events"`
}

type timedTextEvent struct {
	StartMs    int64          `json:"tStartMs"`
	DurationMs int64          `json:"dDurationMs"`
	Segs       []timedTextSeg `json:"segs"`
}

type timedTextSeg struct {
	UTF8 string `json:"utf8"`
}
