package transcode

import (
	"fmt"
	"strings"

	"plexctl/internal/plex"
)

// Context selects between real-time playback and background conversion.
type Context string

const (
	// ContextStreaming is real-time HLS or DASH playback.
	ContextStreaming Context = "streaming"
	// ContextStatic is an offline conversion that may end in direct play.
	ContextStatic Context = "static"
)

func (c Context) String() string { return string(c) }

// ParseContext accepts the wire names.
func ParseContext(raw string) (Context, error) {
	switch Context(strings.ToLower(strings.TrimSpace(raw))) {
	case ContextStreaming:
		return ContextStreaming, nil
	case ContextStatic:
		return ContextStatic, nil
	default:
		return "", fmt.Errorf("unknown transcode context %q", raw)
	}
}

// VideoSetting names a video property a limitation can constrain.
type VideoSetting string

const (
	VideoWidth      VideoSetting = "video.width"
	VideoHeight     VideoSetting = "video.height"
	VideoBitDepth   VideoSetting = "video.bitDepth"
	VideoBitrate    VideoSetting = "video.bitrate"
	VideoFrameRate  VideoSetting = "video.frameRate"
	VideoLevel      VideoSetting = "video.level"
	VideoProfile    VideoSetting = "video.profile"
	VideoAnamorphic VideoSetting = "video.anamorphic"
)

// AudioSetting names an audio property a limitation can constrain.
type AudioSetting string

const (
	AudioChannels     AudioSetting = "audio.channels"
	AudioSamplingRate AudioSetting = "audio.samplingRate"
	AudioBitDepth     AudioSetting = "audio.bitDepth"
	AudioBitrate      AudioSetting = "audio.bitrate"
	AudioProfile      AudioSetting = "audio.profile"
)

type constraintKind int

const (
	constraintMax constraintKind = iota + 1
	constraintMin
	constraintMatch
	constraintNotMatch
)

// Constraint bounds one setting. Build it with Max, Min, Match or NotMatch.
type Constraint struct {
	kind   constraintKind
	values []string
}

// Max is an inclusive upper bound.
func Max(value string) Constraint {
	return Constraint{kind: constraintMax, values: []string{value}}
}

// Min is an inclusive lower bound.
func Min(value string) Constraint {
	return Constraint{kind: constraintMin, values: []string{value}}
}

// Match requires the setting to equal one of values.
func Match(values ...string) Constraint {
	return Constraint{kind: constraintMatch, values: append([]string(nil), values...)}
}

// NotMatch forbids one value.
func NotMatch(value string) Constraint {
	return Constraint{kind: constraintNotMatch, values: []string{value}}
}

func (c Constraint) wireType() string {
	switch c.kind {
	case constraintMax:
		return "upperBound"
	case constraintMin:
		return "lowerBound"
	case constraintMatch:
		return "match"
	case constraintNotMatch:
		return "notMatch"
	default:
		return ""
	}
}

func (c Constraint) valid() bool {
	if c.kind == 0 || len(c.values) == 0 {
		return false
	}
	for _, v := range c.values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Limitation constrains a setting either for one codec or, when Codec is the
// zero value, for every codec.
type Limitation[C ~string, S ~string] struct {
	Codec      C
	Setting    S
	Constraint Constraint
}

// VideoLimitation constrains the video stream of a video transcode.
type VideoLimitation = Limitation[plex.VideoCodec, VideoSetting]

// AudioLimitation constrains an audio stream.
type AudioLimitation = Limitation[plex.AudioCodec, AudioSetting]

func (l Limitation[C, S]) setting(scope string) profileSetting {
	scopeName := string(l.Codec)
	if scopeName == "" {
		scopeName = "*"
	}
	s := newProfileSetting("add-limitation").
		param("scope", scope).
		param("scopeName", scopeName).
		param("name", string(l.Setting)).
		param("type", l.Constraint.wireType())
	if l.Constraint.kind == constraintMatch {
		return s.param("list", strings.Join(l.Constraint.values, "|"))
	}
	return s.param("value", l.Constraint.values[0])
}

func (l Limitation[C, S]) validate() error {
	if strings.TrimSpace(string(l.Setting)) == "" {
		return fmt.Errorf("limitation has no setting")
	}
	if !l.Constraint.valid() {
		return fmt.Errorf("limitation on %s has an empty constraint", l.Setting)
	}
	return nil
}

// VideoOptions describes what a video client can play.
type VideoOptions struct {
	// Bitrate is the maximum video bitrate in kbps.
	Bitrate int
	Width   int
	Height  int
	// VideoQuality is 0-100; zero leaves the server default.
	VideoQuality int
	// AudioBoost is a gain percentage; zero leaves audio untouched.
	AudioBoost    int
	BurnSubtitles bool

	Containers       []plex.ContainerFormat
	VideoCodecs      []plex.VideoCodec
	AudioCodecs      []plex.AudioCodec
	VideoLimitations []VideoLimitation
	AudioLimitations []AudioLimitation
}

// DefaultVideoOptions is a 720p h264 profile.
func DefaultVideoOptions() VideoOptions {
	return VideoOptions{
		Bitrate:     2000,
		Width:       1280,
		Height:      720,
		Containers:  []plex.ContainerFormat{plex.ContainerMP4, plex.ContainerMKV},
		VideoCodecs: []plex.VideoCodec{plex.VideoCodecH264},
		AudioCodecs: []plex.AudioCodec{plex.AudioCodecAAC, plex.AudioCodecMP3},
	}
}

// MusicOptions describes what an audio-only client can play.
type MusicOptions struct {
	// Bitrate is the maximum bitrate in kbps.
	Bitrate     int
	Containers  []plex.ContainerFormat
	Codecs      []plex.AudioCodec
	Limitations []AudioLimitation
}

// DefaultMusicOptions is a 192 kbps mp3 profile.
func DefaultMusicOptions() MusicOptions {
	return MusicOptions{
		Bitrate:    192,
		Containers: []plex.ContainerFormat{plex.ContainerMP3},
		Codecs:     []plex.AudioCodec{plex.AudioCodecMP3},
	}
}

// Options is implemented by VideoOptions and MusicOptions.
type Options interface {
	kind() mediaKind
	profile(ctx Context, protocol plex.Protocol, forced plex.ContainerFormat) string
	bounds(q plex.Query) plex.Query
	validate(ctx Context) error
}

type mediaKind int

const (
	kindVideo mediaKind = iota
	kindMusic
)

// pathPrefix is the endpoint namespace of the decision and stop calls.
func (k mediaKind) pathPrefix() string {
	if k == kindMusic {
		return "music"
	}
	return "video"
}

func (k mediaKind) profileType() string {
	if k == kindMusic {
		return "musicProfile"
	}
	return "videoProfile"
}

func (o VideoOptions) kind() mediaKind { return kindVideo }

func (o VideoOptions) validate(ctx Context) error {
	if len(o.VideoCodecs) == 0 {
		return fmt.Errorf("at least one video codec is required")
	}
	if len(o.AudioCodecs) == 0 {
		return fmt.Errorf("at least one audio codec is required")
	}
	if ctx == ContextStatic && len(o.Containers) == 0 {
		return fmt.Errorf("static transcodes need at least one container")
	}
	if o.Bitrate < 0 || o.Width < 0 || o.Height < 0 || o.VideoQuality < 0 || o.VideoQuality > 100 || o.AudioBoost < 0 {
		return fmt.Errorf("bounds must be positive and video quality at most 100")
	}
	for _, l := range o.VideoLimitations {
		if err := l.validate(); err != nil {
			return err
		}
	}
	for _, l := range o.AudioLimitations {
		if err := l.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (o VideoOptions) bounds(q plex.Query) plex.Query {
	if o.Bitrate > 0 {
		q = q.SetInt("maxVideoBitrate", int64(o.Bitrate)).SetInt("videoBitrate", int64(o.Bitrate))
	}
	if o.Width > 0 && o.Height > 0 {
		q = q.Set("videoResolution", fmt.Sprintf("%dx%d", o.Width, o.Height))
	}
	if o.VideoQuality > 0 {
		q = q.SetInt("videoQuality", int64(o.VideoQuality))
	}
	if o.AudioBoost > 0 {
		q = q.SetInt("audioBoost", int64(o.AudioBoost))
	}
	if o.BurnSubtitles {
		return q.Set("subtitles", "burn")
	}
	return q.Set("subtitles", "auto")
}

func (o MusicOptions) kind() mediaKind { return kindMusic }

func (o MusicOptions) validate(ctx Context) error {
	if len(o.Codecs) == 0 {
		return fmt.Errorf("at least one audio codec is required")
	}
	if ctx == ContextStatic && len(o.Containers) == 0 {
		return fmt.Errorf("static transcodes need at least one container")
	}
	if o.Bitrate < 0 {
		return fmt.Errorf("bitrate must be positive")
	}
	for _, l := range o.Limitations {
		if err := l.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (o MusicOptions) bounds(q plex.Query) plex.Query {
	if o.Bitrate > 0 {
		q = q.SetInt("musicBitrate", int64(o.Bitrate))
	}
	return q
}
