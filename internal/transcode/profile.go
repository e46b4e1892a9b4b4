package transcode

import (
	"slices"
	"strings"

	"plexctl/internal/plex"
)

// profileSetting is one entry of the server's profile expression language,
// rendered as action(k1=v1&k2=v2). Values are emitted verbatim; the whole
// profile is escaped once when it is placed in the query string.
type profileSetting struct {
	action string
	params []profileParam
}

type profileParam struct {
	key   string
	value string
}

func newProfileSetting(action string) profileSetting {
	return profileSetting{action: action}
}

func (s profileSetting) param(key, value string) profileSetting {
	s.params = append(s.params[:len(s.params):len(s.params)], profileParam{key: key, value: value})
	return s
}

func (s profileSetting) String() string {
	var b strings.Builder
	b.WriteString(s.action)
	b.WriteByte('(')
	for i, p := range s.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	b.WriteByte(')')
	return b.String()
}

// profile is an ordered list of settings joined with '+'.
type profile []profileSetting

func (p profile) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, "+")
}

func joinTokens[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}

// targetContainers is every acceptable container in source order. A forced
// container the caller did not list is put first so the server can always
// produce it; with no list the forced container stands alone.
func targetContainers(forced plex.ContainerFormat, containers []plex.ContainerFormat) []plex.ContainerFormat {
	if forced == "" || slices.Contains(containers, forced) {
		return containers
	}
	return append([]plex.ContainerFormat{forced}, containers...)
}

func tail[T any](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	return values[1:]
}

// Profile renders the client profile expression for the given context,
// protocol and forced container (empty for none). Identical input yields
// byte-identical output.
func (o VideoOptions) Profile(ctx Context, protocol plex.Protocol, forced plex.ContainerFormat) string {
	return o.profile(ctx, protocol, forced)
}

func (o VideoOptions) profile(ctx Context, protocol plex.Protocol, forced plex.ContainerFormat) string {
	profileType := kindVideo.profileType()
	videoCodecs := joinTokens(o.VideoCodecs)
	audioCodecs := joinTokens(o.AudioCodecs)

	var p profile
	for _, container := range targetContainers(forced, o.Containers) {
		p = append(p, newProfileSetting("add-transcode-target").
			param("type", profileType).
			param("context", ctx.String()).
			param("protocol", protocol.String()).
			param("container", container.String()).
			param("videoCodec", videoCodecs).
			param("audioCodec", audioCodecs))
		if ctx == ContextStatic {
			p = append(p, newProfileSetting("add-direct-play-profile").
				param("type", profileType).
				param("container", container.String()).
				param("videoCodec", videoCodecs).
				param("audioCodec", audioCodecs))
		}
	}
	// The first video codec is already carried by each target.
	for _, codec := range tail(o.VideoCodecs) {
		p = append(p, newProfileSetting("append-transcode-target-codec").
			param("type", profileType).
			param("context", ctx.String()).
			param("protocol", protocol.String()).
			param("videoCodec", codec.String()))
	}
	for _, codec := range o.AudioCodecs {
		p = append(p, newProfileSetting("add-transcode-target-audio-codec").
			param("type", profileType).
			param("context", ctx.String()).
			param("protocol", protocol.String()).
			param("audioCodec", codec.String()))
	}
	for _, l := range o.VideoLimitations {
		p = append(p, l.setting("videoCodec"))
	}
	for _, l := range o.AudioLimitations {
		p = append(p, l.setting("videoAudioCodec"))
	}
	return p.String()
}

// Profile renders the client profile expression for a music transcode.
func (o MusicOptions) Profile(ctx Context, protocol plex.Protocol, forced plex.ContainerFormat) string {
	return o.profile(ctx, protocol, forced)
}

func (o MusicOptions) profile(ctx Context, protocol plex.Protocol, forced plex.ContainerFormat) string {
	profileType := kindMusic.profileType()
	codecs := joinTokens(o.Codecs)

	var p profile
	for _, container := range targetContainers(forced, o.Containers) {
		p = append(p, newProfileSetting("add-transcode-target").
			param("type", profileType).
			param("context", ctx.String()).
			param("protocol", protocol.String()).
			param("container", container.String()).
			param("audioCodec", codecs))
		if ctx == ContextStatic {
			p = append(p, newProfileSetting("add-direct-play-profile").
				param("type", profileType).
				param("container", container.String()).
				param("audioCodec", codecs))
		}
	}
	for _, codec := range o.Codecs {
		p = append(p, newProfileSetting("add-transcode-target-audio-codec").
			param("type", profileType).
			param("context", ctx.String()).
			param("protocol", protocol.String()).
			param("audioCodec", codec.String()))
	}
	for _, l := range o.Limitations {
		p = append(p, l.setting("audioCodec"))
	}
	return p.String()
}
