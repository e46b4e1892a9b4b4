package transcode

import (
	"context"
	"log/slog"
	"time"

	"plexctl/internal/logging"
	"plexctl/internal/plex"
)

const (
	codeDirectPlayRefused    = 1000
	codeDownloadsNotAllowed  = 2011
	textDownloadsNotAllowed  = "Downloads not allowed"
	errInvalidProtocolReturn = "Server returned an invalid protocol."
)

// Recorder receives outcome counts for the transcode lifecycle.
// internal/metrics provides a Prometheus implementation.
type Recorder interface {
	ObserveDecision(profile string, protocol plex.Protocol, outcome string, elapsed time.Duration)
	ObserveDownload(outcome string, bytes int64)
	ObserveCancel(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDecision(string, plex.Protocol, string, time.Duration) {}
func (nopRecorder) ObserveDownload(string, int64)                                {}
func (nopRecorder) ObserveCancel(string)                                         {}

// Negotiator exchanges transcode constraints for sessions.
type Negotiator struct {
	client   *plex.Client
	recorder Recorder
	logger   *slog.Logger
	newID    func() string
}

// NegotiatorOption customises a Negotiator.
type NegotiatorOption func(*Negotiator)

// WithRecorder reports decisions, downloads and cancellations to r.
func WithRecorder(r Recorder) NegotiatorOption {
	return func(n *Negotiator) {
		if r != nil {
			n.recorder = r
		}
	}
}

// WithSessionIDs replaces the random session id source.
func WithSessionIDs(fn func() string) NegotiatorOption {
	return func(n *Negotiator) {
		if fn != nil {
			n.newID = fn
		}
	}
}

// NewNegotiator builds a negotiator that talks through client.
func NewNegotiator(client *plex.Client, opts ...NegotiatorOption) *Negotiator {
	n := &Negotiator{
		client:   client,
		recorder: nopRecorder{},
		newID:    NewSessionID,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = logging.NewComponentLogger(client.Logger(), "transcode")
	return n
}

// Video negotiates a video transcode of target.
func (n *Negotiator) Video(ctx context.Context, target Target, tctx Context, protocol plex.Protocol, opts VideoOptions) (*Session, error) {
	return n.Negotiate(ctx, Request{Target: target, Context: tctx, Protocol: protocol, Options: opts})
}

// Music negotiates an audio-only transcode of target.
func (n *Negotiator) Music(ctx context.Context, target Target, tctx Context, protocol plex.Protocol, opts MusicOptions) (*Session, error) {
	return n.Negotiate(ctx, Request{Target: target, Context: tctx, Protocol: protocol, Options: opts})
}

// Negotiate issues a single decision request and binds the answer to a
// Session. Refusals and malformed answers come back as *plex.Error values;
// transport failures are returned unchanged.
func (n *Negotiator) Negotiate(ctx context.Context, req Request) (*Session, error) {
	sessionID := n.newID()
	query, forced, err := AssembleQuery(sessionID, req)
	if err != nil {
		return nil, err
	}
	kind := req.Options.kind()
	path := "/" + kind.pathPrefix() + "/:/transcode/universal/decision"
	op := "GET " + path

	started := time.Now()
	session, err := n.decide(ctx, op, path, query, sessionID, kind, req, forced)
	n.recorder.ObserveDecision(kind.profileType(), req.Protocol, outcomeOf(err), time.Since(started))

	logger := logging.WithContext(logging.WithSessionID(ctx, sessionID), n.logger)
	if err != nil {
		logger.Warn("transcode decision failed",
			logging.String("path", req.Target.Key),
			logging.String(logging.FieldProtocol, req.Protocol.String()),
			logging.Error(err),
		)
		return nil, err
	}
	attrs := []logging.Attr{
		logging.String("path", req.Target.Key),
		logging.String(logging.FieldProtocol, session.Protocol().String()),
		logging.String("container", session.Container().String()),
		logging.Bool("offline", session.Offline()),
	}
	if v, ok := session.Video(); ok {
		attrs = append(attrs, logging.String("video", v.String()))
	}
	if a, ok := session.Audio(); ok {
		attrs = append(attrs, logging.String("audio", a.String()))
	}
	logger.Info("transcode negotiated", logging.Args(attrs...)...)
	return session, nil
}

func (n *Negotiator) decide(ctx context.Context, op, path string, query plex.Query, sessionID string, kind mediaKind, req Request, forced plex.ContainerFormat) (*Session, error) {
	resp, err := n.client.Get(ctx, path, query, plex.Route("decision"))
	if err != nil {
		return nil, err
	}
	body, err := plex.ReadBody(resp)
	if err != nil {
		return nil, &plex.Error{Kind: plex.ErrTransport, Op: op, Status: resp.StatusCode, Err: err}
	}
	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	// Refusal codes arrive inside the body, sometimes with a 200 status and
	// sometimes without, so the body is decoded before the status is judged.
	container, err := plex.DecodeMediaContainer(body, n.client.Strict())
	if err != nil {
		if success {
			return nil, err
		}
		return nil, plex.NewUnexpectedResponse(op, resp.StatusCode, body)
	}

	media, err := interpretDecision(op, container, resp.StatusCode, body, req)
	if err != nil {
		return nil, err
	}
	return newSessionFromDecision(n.client, sessionID, kind, req, forced, query, media, n.recorder), nil
}

// interpretDecision maps a decoded decision response to the selected media or
// a typed refusal.
func interpretDecision(op string, mc *plex.MediaContainer, status int, body []byte, req Request) (plex.Media, error) {
	if mc.GeneralDecisionCode == codeDownloadsNotAllowed && mc.GeneralDecisionText == textDownloadsNotAllowed {
		return plex.Media{}, &plex.Error{
			Kind:    plex.ErrFeatureNotAvailable,
			Op:      op,
			Feature: plex.FeatureSyncV3,
			Message: mc.GeneralDecisionText,
		}
	}
	if mc.DirectPlayDecisionCode == codeDirectPlayRefused {
		return plex.Media{}, &plex.Error{Kind: plex.ErrTranscodeRefused, Op: op, Message: mc.DirectPlayDecisionText}
	}

	media, ok := selectedMedia(mc)
	if !ok {
		if text := decisionText(mc); text != "" {
			return plex.Media{}, plex.NewTranscodeError(op, text)
		}
		return plex.Media{}, plex.NewUnexpectedResponse(op, status, body)
	}

	if req.Context == ContextStreaming && media.Protocol != req.Protocol {
		return plex.Media{}, plex.NewTranscodeError(op, errInvalidProtocolReturn)
	}
	return media, nil
}

func selectedMedia(mc *plex.MediaContainer) (plex.Media, bool) {
	if len(mc.Metadata) != 1 {
		return plex.Media{}, false
	}
	for _, media := range mc.Metadata[0].Media {
		if media.Selected {
			return media, true
		}
	}
	return plex.Media{}, false
}

func decisionText(mc *plex.MediaContainer) string {
	for _, text := range []string{mc.TranscodeDecisionText, mc.GeneralDecisionText, mc.DirectPlayDecisionText} {
		if text != "" {
			return text
		}
	}
	return ""
}

// pickStream returns the selected stream of kind, or the first one when the
// server flagged none.
func pickStream(streams []plex.Stream, kind plex.StreamType) (plex.Stream, bool) {
	var first *plex.Stream
	for i := range streams {
		if streams[i].StreamType != kind {
			continue
		}
		if streams[i].Selected {
			return streams[i], true
		}
		if first == nil {
			first = &streams[i]
		}
	}
	if first == nil {
		return plex.Stream{}, false
	}
	return *first, true
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return errorKind(err)
}
