package transcode

import (
	"context"
	"errors"

	"plexctl/internal/plex"
)

// ErrSessionClosed is returned by every Session method after Cancel succeeded.
var ErrSessionClosed = errors.New("transcode session already cancelled")

// errorKind labels err for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, plex.ErrTransport):
		return "transport"
	case errors.Is(err, plex.ErrDeserialization):
		return "deserialization"
	case errors.Is(err, plex.ErrInvalidRequestSettings):
		return "invalid_settings"
	case errors.Is(err, plex.ErrFeatureNotAvailable):
		return "feature_not_available"
	case errors.Is(err, plex.ErrTranscodeRefused):
		return "refused"
	case errors.Is(err, plex.ErrTranscodeError):
		return "transcode_error"
	case errors.Is(err, plex.ErrItemNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionClosed):
		return "closed"
	default:
		return "unexpected"
	}
}
