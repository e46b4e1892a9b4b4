package transcode

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"plexctl/internal/plex"
)

const profileExtraKey = "X-Plex-Client-Profile-Extra"

// Target locates the item to transcode.
type Target struct {
	// Key is the server-side item path, for example /library/metadata/42.
	Key        string
	MediaIndex int
	PartIndex  int
}

// Request is everything the decision endpoint needs.
type Request struct {
	Target   Target
	Context  Context
	Protocol plex.Protocol
	Options  Options
}

// NewSessionID returns a random session identifier: 32 lowercase hex digits.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ResolveContainer decides which container the server must produce. Static
// transcodes force nothing and let the server pick from the target list;
// streaming DASH is wrapped in mp4 and streaming HLS in MPEG-TS. Anything
// else cannot be transcoded this way.
func ResolveContainer(ctx Context, protocol plex.Protocol) (plex.ContainerFormat, error) {
	switch {
	case ctx == ContextStatic:
		return "", nil
	case ctx == ContextStreaming && protocol == plex.ProtocolDASH:
		return plex.ContainerMP4, nil
	case ctx == ContextStreaming && protocol == plex.ProtocolHLS:
		return plex.ContainerMPEGTS, nil
	default:
		return "", plex.NewInvalidRequestSettings("resolve container",
			fmt.Sprintf("protocol %q cannot be used in %q context", protocol, ctx))
	}
}

// AssembleQuery builds the ordered decision query for sessionID. It fails
// with plex.ErrInvalidRequestSettings before anything reaches the network.
func AssembleQuery(sessionID string, req Request) (plex.Query, plex.ContainerFormat, error) {
	const op = "assemble transcode query"
	if req.Options == nil {
		return plex.Query{}, "", plex.NewInvalidRequestSettings(op, "transcode options are required")
	}
	if strings.TrimSpace(req.Target.Key) == "" {
		return plex.Query{}, "", plex.NewInvalidRequestSettings(op, "target key is empty")
	}
	if req.Target.MediaIndex < 0 || req.Target.PartIndex < 0 {
		return plex.Query{}, "", plex.NewInvalidRequestSettings(op, "media and part indices must not be negative")
	}
	if err := req.Options.validate(req.Context); err != nil {
		return plex.Query{}, "", plex.NewInvalidRequestSettings(op, err.Error())
	}
	container, err := ResolveContainer(req.Context, req.Protocol)
	if err != nil {
		return plex.Query{}, "", err
	}

	static := req.Context == ContextStatic
	q := plex.NewQuery().
		Set("session", sessionID).
		Set("path", req.Target.Key).
		SetInt("mediaIndex", int64(req.Target.MediaIndex)).
		SetInt("partIndex", int64(req.Target.PartIndex)).
		Set("protocol", req.Protocol.String()).
		Set("context", req.Context.String()).
		SetBool("directPlay", static)
	if static {
		q = q.SetBool("offlineTranscode", true)
	}
	q = q.SetBool("directStream", true).
		SetBool("directStreamAudio", true).
		SetBool("fastSeek", true).
		Set("location", "lan")
	q = req.Options.bounds(q)
	q = q.Set(profileExtraKey, req.Options.profile(req.Context, req.Protocol, container))
	return q, container, nil
}
