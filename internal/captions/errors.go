package captions

import (
	"errors"
	"fmt"
)

// ErrCaptionsDisabled indicates the video exposes no caption tracks at all.
var ErrCaptionsDisabled = errors.New("captions are disabled for this video")

// ErrNoTranscript indicates no track matches the requested language.
var ErrNoTranscript = errors.New("no transcript found for the requested language")

// UpstreamError wraps network, proxy and upstream protocol failures so the
// HTTP layer can distinguish them from client mistakes.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err originates from the upstream fetch path.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
