package plex

import "strings"

// The wire enums below are string-backed. Known variants are declared as
// constants; any other value the server sends is kept verbatim and reported
// by IsKnown as unknown instead of failing the decode.

// VideoCodec is a video codec wire token.
type VideoCodec string

const (
	VideoCodecH264       VideoCodec = "h264"
	VideoCodecHEVC       VideoCodec = "hevc"
	VideoCodecMPEG1Video VideoCodec = "mpeg1video"
	VideoCodecMPEG2Video VideoCodec = "mpeg2video"
	VideoCodecMPEG4      VideoCodec = "mpeg4"
	VideoCodecMSMPEG4V3  VideoCodec = "msmpeg4v3"
	VideoCodecVC1        VideoCodec = "vc1"
	VideoCodecVP8        VideoCodec = "vp8"
	VideoCodecVP9        VideoCodec = "vp9"
	VideoCodecAV1        VideoCodec = "av1"
	VideoCodecWMV3       VideoCodec = "wmv3"
)

var knownVideoCodecs = setOf(
	VideoCodecH264, VideoCodecHEVC, VideoCodecMPEG1Video, VideoCodecMPEG2Video,
	VideoCodecMPEG4, VideoCodecMSMPEG4V3, VideoCodecVC1, VideoCodecVP8,
	VideoCodecVP9, VideoCodecAV1, VideoCodecWMV3,
)

func (c VideoCodec) String() string { return string(c) }

// IsKnown reports whether c is one of the declared variants.
func (c VideoCodec) IsKnown() bool { return knownVideoCodecs[c] }

// ParseVideoCodec normalizes a raw value into a VideoCodec.
func ParseVideoCodec(raw string) VideoCodec { return VideoCodec(normalizeToken(raw)) }

// AudioCodec is an audio codec wire token.
type AudioCodec string

const (
	AudioCodecAAC    AudioCodec = "aac"
	AudioCodecAC3    AudioCodec = "ac3"
	AudioCodecEAC3   AudioCodec = "eac3"
	AudioCodecMP2    AudioCodec = "mp2"
	AudioCodecMP3    AudioCodec = "mp3"
	AudioCodecFLAC   AudioCodec = "flac"
	AudioCodecALAC   AudioCodec = "alac"
	AudioCodecOpus   AudioCodec = "opus"
	AudioCodecVorbis AudioCodec = "vorbis"
	AudioCodecPCM    AudioCodec = "pcm"
	AudioCodecDCA    AudioCodec = "dca"
	AudioCodecTrueHD AudioCodec = "truehd"
	AudioCodecWMAPro AudioCodec = "wmapro"
	AudioCodecWMAV2  AudioCodec = "wmav2"
)

var knownAudioCodecs = setOf(
	AudioCodecAAC, AudioCodecAC3, AudioCodecEAC3, AudioCodecMP2, AudioCodecMP3,
	AudioCodecFLAC, AudioCodecALAC, AudioCodecOpus, AudioCodecVorbis,
	AudioCodecPCM, AudioCodecDCA, AudioCodecTrueHD, AudioCodecWMAPro,
	AudioCodecWMAV2,
)

func (c AudioCodec) String() string { return string(c) }

// IsKnown reports whether c is one of the declared variants.
func (c AudioCodec) IsKnown() bool { return knownAudioCodecs[c] }

// ParseAudioCodec normalizes a raw value into an AudioCodec.
func ParseAudioCodec(raw string) AudioCodec { return AudioCodec(normalizeToken(raw)) }

// ContainerFormat is a container wire token.
type ContainerFormat string

const (
	ContainerMP4    ContainerFormat = "mp4"
	ContainerMKV    ContainerFormat = "mkv"
	ContainerMPEGTS ContainerFormat = "mpegts"
	ContainerAVI    ContainerFormat = "avi"
	ContainerMOV    ContainerFormat = "mov"
	ContainerWebM   ContainerFormat = "webm"
	ContainerM4A    ContainerFormat = "m4a"
	ContainerMP3    ContainerFormat = "mp3"
	ContainerAAC    ContainerFormat = "aac"
	ContainerFLAC   ContainerFormat = "flac"
	ContainerOgg    ContainerFormat = "ogg"
	ContainerWAV    ContainerFormat = "wav"
	ContainerJPEG   ContainerFormat = "jpeg"
	ContainerPNG    ContainerFormat = "png"
)

var knownContainers = setOf(
	ContainerMP4, ContainerMKV, ContainerMPEGTS, ContainerAVI, ContainerMOV,
	ContainerWebM, ContainerM4A, ContainerMP3, ContainerAAC, ContainerFLAC,
	ContainerOgg, ContainerWAV, ContainerJPEG, ContainerPNG,
)

func (c ContainerFormat) String() string { return string(c) }

// IsKnown reports whether c is one of the declared variants.
func (c ContainerFormat) IsKnown() bool { return knownContainers[c] }

// Extension returns the file extension the server uses for the container.
func (c ContainerFormat) Extension() string {
	switch c {
	case ContainerMPEGTS:
		return "ts"
	case ContainerJPEG:
		return "jpg"
	default:
		return string(c)
	}
}

// ParseContainerFormat normalizes a raw value into a ContainerFormat.
func ParseContainerFormat(raw string) ContainerFormat {
	return ContainerFormat(normalizeToken(raw))
}

// Protocol is the delivery protocol of a transcode.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolHLS  Protocol = "hls"
	ProtocolDASH Protocol = "dash"
	// ProtocolMP4 is only used by extras.
	ProtocolMP4 Protocol = "mp4"
)

var knownProtocols = setOf(ProtocolHTTP, ProtocolHLS, ProtocolDASH, ProtocolMP4)

func (p Protocol) String() string { return string(p) }

// IsKnown reports whether p is one of the declared variants.
func (p Protocol) IsKnown() bool { return knownProtocols[p] }

// ParseProtocol normalizes a raw value into a Protocol.
func ParseProtocol(raw string) Protocol { return Protocol(normalizeToken(raw)) }

// Decision is the server verdict for one stream.
type Decision string

const (
	DecisionCopy       Decision = "copy"
	DecisionTranscode  Decision = "transcode"
	DecisionIgnore     Decision = "ignore"
	DecisionDirectPlay Decision = "directplay"
	DecisionBurn       Decision = "burn"
)

var knownDecisions = setOf(DecisionCopy, DecisionTranscode, DecisionIgnore, DecisionDirectPlay, DecisionBurn)

func (d Decision) String() string { return string(d) }

// IsKnown reports whether d is one of the declared variants.
func (d Decision) IsKnown() bool { return knownDecisions[d] }

// ParseDecision normalizes a raw value into a Decision.
func ParseDecision(raw string) Decision { return Decision(normalizeToken(raw)) }

// StreamType identifies the kind of an elementary stream.
type StreamType int

const (
	StreamTypeVideo    StreamType = 1
	StreamTypeAudio    StreamType = 2
	StreamTypeSubtitle StreamType = 3
	StreamTypeLyrics   StreamType = 4
)

func (t StreamType) String() string {
	switch t {
	case StreamTypeVideo:
		return "video"
	case StreamTypeAudio:
		return "audio"
	case StreamTypeSubtitle:
		return "subtitle"
	case StreamTypeLyrics:
		return "lyrics"
	default:
		return "unknown"
	}
}

func setOf[T comparable](values ...T) map[T]bool {
	out := make(map[T]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func normalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
