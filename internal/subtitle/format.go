package subtitle

import (
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned when a format other than "txt" or "srt"
// is requested.
var ErrUnsupportedFormat = fmt.Errorf("unsupported format, only %q and %q are supported", FormatTXT, FormatSRT)

// SupportedFormat reports whether format is a valid output format.
func SupportedFormat(format string) bool {
	return format == FormatTXT || format == FormatSRT
}

// Format renders cues in the requested output format.
//
// "txt" concatenates each cue's text followed by a newline, in input order.
// "srt" emits, per cue: a 1-based sequence number, a "start --> end"
// timestamp line, the cue text and a blank separator line. Cues are
// renumbered sequentially from 1 regardless of input ordering gaps.
//
// Format is pure: it performs no I/O and either returns the complete
// document or an error, never a truncated result.
func Format(cues []Cue, format string) (string, error) {
	switch format {
	case FormatTXT:
		var b strings.Builder
		for _, cue := range cues {
			b.WriteString(cue.Text)
			b.WriteByte('\n')
		}
		return b.String(), nil
	case FormatSRT:
		var b strings.Builder
		for i, cue := range cues {
			start := formatTimestamp(cue.Start)
			end := formatTimestamp(cue.Start + cue.Duration)
			fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, start, end, cue.Text)
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Render formats cues and wraps the result in a Document carrying the MIME
// type and the <videoId>_<lang>.<ext> attachment filename.
func Render(videoID, lang string, cues []Cue, format string) (Document, error) {
	content, err := Format(cues, format)
	if err != nil {
		return Document{}, err
	}

	mimeType := "application/x-subrip"
	if format == FormatTXT {
		mimeType = "text/plain"
	}
	return Document{
		Content:  []byte(content),
		MIMEType: mimeType,
		Filename: fmt.Sprintf("%s_%s.%s", videoID, lang, format),
	}, nil
}

// formatTimestamp renders a non-negative offset in seconds as the SRT
// timestamp HH:MM:SS,mmm. Milliseconds are truncated toward zero, not
// rounded; hours are unbounded.
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds * 1000)

	hours := ms / 3_600_000
	ms %= 3_600_000
	minutes := ms / 60_000
	ms %= 60_000
	secs := ms / 1_000
	millis := ms % 1_000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
