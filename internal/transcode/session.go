package transcode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"plexctl/internal/plex"
)

const sessionsPath = "/transcode/sessions"

// VideoDecision is the server's verdict on the selected video stream.
type VideoDecision struct {
	Decision plex.Decision
	Codec    plex.VideoCodec
}

func (d VideoDecision) String() string {
	return fmt.Sprintf("%s (%s)", d.Codec, d.Decision)
}

// AudioDecision is the server's verdict on the selected audio stream.
type AudioDecision struct {
	Decision plex.Decision
	Codec    plex.AudioCodec
}

func (d AudioDecision) String() string {
	return fmt.Sprintf("%s (%s)", d.Codec, d.Decision)
}

// Session is a negotiated transcode. Its fields never change after creation;
// progress is read with Status or Stats, which return separate records.
//
// A Session is only obtained from a Negotiator, either fresh from a decision
// or recovered from the server's session listing. It must be cancelled
// explicitly; dropping it leaves the server transcoding.
type Session struct {
	id        string
	kind      mediaKind
	offline   bool
	protocol  plex.Protocol
	container plex.ContainerFormat
	video     *VideoDecision
	audio     *AudioDecision
	query     plex.Query

	client   *plex.Client
	recorder Recorder
	closed   atomic.Bool
}

func newSessionFromDecision(client *plex.Client, id string, kind mediaKind, req Request, forced plex.ContainerFormat, query plex.Query, media plex.Media, recorder Recorder) *Session {
	s := &Session{
		id:        id,
		kind:      kind,
		offline:   req.Context == ContextStatic,
		protocol:  media.Protocol,
		container: media.Container,
		query:     query,
		client:    client,
		recorder:  recorder,
	}
	if s.protocol == "" {
		s.protocol = req.Protocol
	}
	if s.container == "" {
		s.container = forced
	}
	streams := media.Streams()
	if stream, ok := pickStream(streams, plex.StreamTypeVideo); ok {
		s.video = &VideoDecision{Decision: stream.Decision, Codec: stream.VideoCodec()}
	}
	if stream, ok := pickStream(streams, plex.StreamTypeAudio); ok {
		s.audio = &AudioDecision{Decision: stream.Decision, Codec: stream.AudioCodec()}
	}
	return s
}

func newSessionFromStats(client *plex.Client, stats plex.TranscodeStats, recorder Recorder) (*Session, error) {
	id := path.Base(strings.TrimRight(stats.Key, "/"))
	if stats.Key == "" || id == "." || id == "/" {
		return nil, plex.NewInvalidRequestSettings("recover transcode session", "stats record has no session key")
	}
	s := &Session{
		id:        id,
		kind:      kindMusic,
		offline:   stats.OfflineTranscode,
		protocol:  stats.Protocol,
		container: stats.Container,
		client:    client,
		recorder:  recorder,
	}
	if stats.VideoDecision != "" || stats.SourceVideoCodec != "" {
		s.kind = kindVideo
		s.video = &VideoDecision{Decision: stats.VideoDecision, Codec: stats.VideoCodec}
	}
	if stats.AudioDecision != "" || stats.SourceAudioCodec != "" {
		s.audio = &AudioDecision{Decision: stats.AudioDecision, Codec: stats.AudioCodec}
	}
	q := plex.NewQuery().Set("session", id).Set("protocol", s.protocol.String())
	if stats.Context != "" {
		q = q.Set("context", stats.Context)
	}
	if s.offline {
		q = q.SetBool("offlineTranscode", true)
	}
	s.query = q
	return s, nil
}

// ID is the client-generated session identifier.
func (s *Session) ID() string { return s.id }

// Offline reports whether this is a static (download) transcode.
func (s *Session) Offline() bool { return s.offline }

// Protocol is the negotiated delivery protocol.
func (s *Session) Protocol() plex.Protocol { return s.protocol }

// Container is the negotiated container.
func (s *Session) Container() plex.ContainerFormat { return s.container }

// Video returns the selected video decision, if the media has video.
func (s *Session) Video() (VideoDecision, bool) {
	if s.video == nil {
		return VideoDecision{}, false
	}
	return *s.video, true
}

// Audio returns the selected audio decision, if the media has audio.
func (s *Session) Audio() (AudioDecision, bool) {
	if s.audio == nil {
		return AudioDecision{}, false
	}
	return *s.audio, true
}

// Query is the retained request query used to fetch the payload.
func (s *Session) Query() plex.Query { return s.query }

// Extension is the file extension of the payload: mpd for DASH, m3u8 for
// HLS and the container's own extension otherwise.
func (s *Session) Extension() string {
	switch s.protocol {
	case plex.ProtocolDASH:
		return "mpd"
	case plex.ProtocolHLS:
		return "m3u8"
	default:
		return s.container.Extension()
	}
}

// State is the coarse lifecycle of a server-side transcode.
type State int

const (
	StateTranscoding State = iota
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "transcoding"
	}
}

// Status summarises one stats poll.
type Status struct {
	State State
	// Progress is a 0-100 percentage.
	Progress float64
	// Remaining is the server's estimate, nil when it gave none.
	Remaining *time.Duration
}

// StatusFromStats maps a stats record to a Status. Error wins over complete.
func StatusFromStats(stats plex.TranscodeStats) Status {
	switch {
	case stats.Error:
		return Status{State: StateError, Progress: stats.Progress}
	case stats.Complete:
		return Status{State: StateComplete, Progress: 100}
	}
	st := Status{State: StateTranscoding, Progress: stats.Progress}
	if stats.Remaining != nil {
		remaining := time.Duration(*stats.Remaining) * time.Second
		st.Remaining = &remaining
	}
	return st
}

// Status polls the stats endpoint once.
func (s *Session) Status(ctx context.Context) (Status, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return StatusFromStats(stats), nil
}

// Stats returns the raw stats record. A 404 and an empty listing both yield
// plex.ErrItemNotFound.
func (s *Session) Stats(ctx context.Context) (plex.TranscodeStats, error) {
	if s.closed.Load() {
		return plex.TranscodeStats{}, ErrSessionClosed
	}
	return fetchStats(ctx, s.client, s.id)
}

func fetchStats(ctx context.Context, client *plex.Client, id string) (plex.TranscodeStats, error) {
	statsPath := sessionsPath + "/" + id
	mc, err := client.GetContainer(ctx, statsPath, plex.NewQuery(), plex.Route("session_stats"))
	if err != nil {
		return plex.TranscodeStats{}, err
	}
	if len(mc.TranscodeSessions) == 0 {
		return plex.TranscodeStats{}, plex.NewItemNotFound("GET " + statsPath)
	}
	return mc.TranscodeSessions[0], nil
}

// Download streams the transcoded payload into w and returns the bytes
// written. Offline sessions run without a request timeout because the server
// stalls mid-body while it catches up. There is no resume; a failed download
// starts over.
func (s *Session) Download(ctx context.Context, w io.Writer) (int64, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}
	written, err := s.download(ctx, w)
	outcome := "ok"
	if err != nil {
		outcome = errorKind(err)
	}
	s.recorder.ObserveDownload(outcome, written)
	return written, err
}

func (s *Session) download(ctx context.Context, w io.Writer) (int64, error) {
	ext := s.Extension()
	if ext == "" {
		return 0, plex.NewInvalidRequestSettings("download transcode", "session has no container")
	}
	startPath := "/transcode/universal/start." + ext
	op := "GET " + startPath
	opts := []plex.RequestOption{plex.Route("start"), plex.Accept("*/*")}
	if s.offline {
		opts = append(opts, plex.WithoutTimeout())
	}
	resp, err := s.client.Get(ctx, startPath, s.query, opts...)
	if err != nil {
		return 0, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = plex.ReadBody(resp)
		return 0, plex.NewItemNotFound(op)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := plex.ReadBody(resp)
		return 0, plex.NewUnexpectedResponse(op, resp.StatusCode, body)
	}
	defer resp.Body.Close()
	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, &plex.Error{Kind: plex.ErrTransport, Op: op, Status: resp.StatusCode, Err: err}
	}
	return written, nil
}

// Cancel stops the server-side transcode. Both 200 and 404 count as
// stopped. After a successful Cancel every method returns ErrSessionClosed;
// a failed Cancel leaves the session usable so it can be retried.
func (s *Session) Cancel(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}
	err := s.cancel(ctx)
	if err != nil {
		s.closed.Store(false)
		s.recorder.ObserveCancel(errorKind(err))
		return err
	}
	s.recorder.ObserveCancel("ok")
	return nil
}

func (s *Session) cancel(ctx context.Context) error {
	stopPath := "/" + s.kind.pathPrefix() + "/:/transcode/universal/stop"
	resp, err := s.client.Get(ctx, stopPath, plex.NewQuery().Set("session", s.id), plex.Route("stop"))
	if err != nil {
		return err
	}
	body, err := plex.ReadBody(resp)
	if err != nil {
		return &plex.Error{Kind: plex.ErrTransport, Op: "GET " + stopPath, Status: resp.StatusCode, Err: err}
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		return nil
	default:
		return plex.NewUnexpectedResponse("GET "+stopPath, resp.StatusCode, body)
	}
}

// WaitComplete polls Status at most once per interval until the transcode
// completes, fails or ctx ends. progress, when non-nil, sees every poll.
func (s *Session) WaitComplete(ctx context.Context, interval time.Duration, progress func(Status)) (Status, error) {
	if interval <= 0 {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return Status{}, err
		}
		st, err := s.Status(ctx)
		if err != nil {
			return Status{}, err
		}
		if progress != nil {
			progress(st)
		}
		switch st.State {
		case StateComplete:
			return st, nil
		case StateError:
			return st, plex.NewTranscodeError("wait for transcode "+s.id, "server reported a failed transcode")
		}
	}
}

// Recover rebuilds a Session from a stats record, typically one returned by
// Sessions.
func (n *Negotiator) Recover(stats plex.TranscodeStats) (*Session, error) {
	return newSessionFromStats(n.client, stats, n.recorder)
}

// Find looks a session up by id and recovers it.
func (n *Negotiator) Find(ctx context.Context, id string) (*Session, error) {
	stats, err := fetchStats(ctx, n.client, id)
	if err != nil {
		return nil, err
	}
	return n.Recover(stats)
}

// Sessions lists every transcode the server is running.
func (n *Negotiator) Sessions(ctx context.Context) ([]plex.TranscodeStats, error) {
	mc, err := n.client.GetContainer(ctx, sessionsPath, plex.NewQuery(), plex.Route("sessions"))
	if err != nil {
		return nil, err
	}
	return mc.TranscodeSessions, nil
}
