package plex

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for errors.Is checks at the call site.
var (
	ErrTransport              = errors.New("transport failure")
	ErrDeserialization        = errors.New("response did not match expected schema")
	ErrInvalidRequestSettings = errors.New("invalid request settings")
	ErrFeatureNotAvailable    = errors.New("feature not available")
	ErrTranscodeRefused       = errors.New("transcode refused")
	ErrTranscodeError         = errors.New("transcode error")
	ErrUnexpectedResponse     = errors.New("unexpected response")
	ErrItemNotFound           = errors.New("item not found")
)

// Feature names an account capability the server can gate an operation on.
type Feature string

// FeatureSyncV3 gates offline downloads.
const FeatureSyncV3 Feature = "SyncV3"

// Error carries one of the sentinel markers plus whatever context the failure
// produced. Unwrap exposes both the marker and the nested cause, so
// errors.Is(err, ErrTransport) and errors.Is(err, context.Canceled) both work.
type Error struct {
	Kind    error
	Op      string
	Status  int
	Body    string
	Feature Feature
	Message string
	Err     error
}

func (e *Error) Error() string {
	kind := e.Kind
	if kind == nil {
		kind = ErrUnexpectedResponse
	}
	var b strings.Builder
	b.WriteString("plex")
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(kind.Error())
	if e.Feature != "" {
		fmt.Fprintf(&b, " (%s)", e.Feature)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	kind := e.Kind
	if kind == nil {
		kind = ErrUnexpectedResponse
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}

// NewTranscodeError reports a server-side failure with its human text.
func NewTranscodeError(op, message string) error {
	return &Error{Kind: ErrTranscodeError, Op: op, Message: message}
}

// NewUnexpectedResponse preserves the raw status and body for diagnosis.
func NewUnexpectedResponse(op string, status int, body []byte) error {
	return &Error{Kind: ErrUnexpectedResponse, Op: op, Status: status, Body: truncateBody(body)}
}

// NewItemNotFound reports a missing item or session.
func NewItemNotFound(op string) error {
	return &Error{Kind: ErrItemNotFound, Op: op}
}

// NewInvalidRequestSettings rejects a request before it reaches the network.
func NewInvalidRequestSettings(op, message string) error {
	return &Error{Kind: ErrInvalidRequestSettings, Op: op, Message: message}
}

// StatusCode returns the HTTP status attached to err, or zero.
func StatusCode(err error) int {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Status
	}
	return 0
}

// MissingFeature returns the feature named by a FeatureNotAvailable error.
func MissingFeature(err error) (Feature, bool) {
	var perr *Error
	if errors.As(err, &perr) && errors.Is(perr.Kind, ErrFeatureNotAvailable) {
		return perr.Feature, true
	}
	return "", false
}

const maxErrorBody = 4096

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
