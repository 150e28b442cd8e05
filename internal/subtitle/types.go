package subtitle

// Cue is one timed caption entry as returned by the caption retrieval
// collaborator. Start and Duration are in seconds and may be fractional.
type Cue struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Supported output formats.
const (
	FormatTXT = "txt"
	FormatSRT = "srt"
)

// Document is a formatted transcript ready to be served as a file download.
type Document struct {
	Content  []byte
	MIMEType string
	Filename string
}
