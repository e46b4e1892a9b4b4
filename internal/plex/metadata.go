package plex

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// MediaContainer is the envelope the server wraps every JSON response in. Only
// the fields the transcode layer consumes are modelled.
type MediaContainer struct {
	Size                   int              `json:"size"`
	MachineIdentifier      string           `json:"machineIdentifier,omitempty"`
	DirectPlayDecisionCode int              `json:"directPlayDecisionCode,omitempty"`
	DirectPlayDecisionText string           `json:"directPlayDecisionText,omitempty"`
	GeneralDecisionCode    int              `json:"generalDecisionCode,omitempty"`
	GeneralDecisionText    string           `json:"generalDecisionText,omitempty"`
	TranscodeDecisionCode  int              `json:"transcodeDecisionCode,omitempty"`
	TranscodeDecisionText  string           `json:"transcodeDecisionText,omitempty"`
	Metadata               []Metadata       `json:"Metadata,omitempty"`
	TranscodeSessions      []TranscodeStats `json:"TranscodeSession,omitempty"`
}

type mediaContainerEnvelope struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// Metadata is a single catalog item.
type Metadata struct {
	RatingKey string  `json:"ratingKey,omitempty"`
	Key       string  `json:"key,omitempty"`
	Type      string  `json:"type,omitempty"`
	Title     string  `json:"title,omitempty"`
	Media     []Media `json:"Media,omitempty"`
}

// Media is one encoding of an item.
type Media struct {
	ID         int64           `json:"id,omitempty"`
	Duration   int64           `json:"duration,omitempty"`
	Bitrate    int             `json:"bitrate,omitempty"`
	Width      int             `json:"width,omitempty"`
	Height     int             `json:"height,omitempty"`
	Container  ContainerFormat `json:"container,omitempty"`
	VideoCodec VideoCodec      `json:"videoCodec,omitempty"`
	AudioCodec AudioCodec      `json:"audioCodec,omitempty"`
	Protocol   Protocol        `json:"protocol,omitempty"`
	Selected   bool            `json:"selected,omitempty"`
	Parts      []Part          `json:"Part,omitempty"`
}

// Streams returns the streams of every part in order.
func (m Media) Streams() []Stream {
	var out []Stream
	for _, part := range m.Parts {
		out = append(out, part.Streams...)
	}
	return out
}

// Part is one file of a Media.
type Part struct {
	ID        int64           `json:"id,omitempty"`
	Key       string          `json:"key,omitempty"`
	File      string          `json:"file,omitempty"`
	Size      int64           `json:"size,omitempty"`
	Container ContainerFormat `json:"container,omitempty"`
	Decision  Decision        `json:"decision,omitempty"`
	Selected  bool            `json:"selected,omitempty"`
	Streams   []Stream        `json:"Stream,omitempty"`
}

// Stream is an elementary stream inside a Part.
type Stream struct {
	ID           int64      `json:"id,omitempty"`
	StreamType   StreamType `json:"streamType"`
	Index        int        `json:"index,omitempty"`
	Codec        string     `json:"codec,omitempty"`
	Decision     Decision   `json:"decision,omitempty"`
	Selected     bool       `json:"selected,omitempty"`
	Default      bool       `json:"default,omitempty"`
	Location     string     `json:"location,omitempty"`
	LanguageCode string     `json:"languageCode,omitempty"`
	LanguageTag  string     `json:"languageTag,omitempty"`
	DisplayTitle string     `json:"displayTitle,omitempty"`
	Bitrate      int        `json:"bitrate,omitempty"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	Channels     int        `json:"channels,omitempty"`
}

// VideoCodec interprets the stream codec as a video codec.
func (s Stream) VideoCodec() VideoCodec { return ParseVideoCodec(s.Codec) }

// AudioCodec interprets the stream codec as an audio codec.
func (s Stream) AudioCodec() AudioCodec { return ParseAudioCodec(s.Codec) }

// Language resolves the stream language. The BCP 47 tag wins over the
// three-letter code; language.Und is returned when neither parses.
func (s Stream) Language() language.Tag {
	for _, raw := range []string{s.LanguageTag, s.LanguageCode} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if tag, err := language.Parse(raw); err == nil {
			return tag
		}
	}
	return language.Und
}

// TranscodeStats is the server's view of a running transcode session.
type TranscodeStats struct {
	Key                  string          `json:"key"`
	Throttled            bool            `json:"throttled"`
	Complete             bool            `json:"complete"`
	Progress             float64         `json:"progress"`
	Size                 int64           `json:"size"`
	Speed                float64         `json:"speed,omitempty"`
	Error                bool            `json:"error"`
	Duration             int64           `json:"duration,omitempty"`
	Remaining            *int64          `json:"remaining,omitempty"`
	Context              string          `json:"context"`
	SourceVideoCodec     VideoCodec      `json:"sourceVideoCodec,omitempty"`
	SourceAudioCodec     AudioCodec      `json:"sourceAudioCodec,omitempty"`
	VideoDecision        Decision        `json:"videoDecision,omitempty"`
	AudioDecision        Decision        `json:"audioDecision,omitempty"`
	SubtitleDecision     Decision        `json:"subtitleDecision,omitempty"`
	Protocol             Protocol        `json:"protocol"`
	Container            ContainerFormat `json:"container"`
	VideoCodec           VideoCodec      `json:"videoCodec,omitempty"`
	AudioCodec           AudioCodec      `json:"audioCodec,omitempty"`
	OfflineTranscode     bool            `json:"offlineTranscode"`
	TranscodeHWRequested bool            `json:"transcodeHwRequested,omitempty"`
	MinOffsetAvailable   float64         `json:"minOffsetAvailable,omitempty"`
	MaxOffsetAvailable   float64         `json:"maxOffsetAvailable,omitempty"`
}

// DecodeMediaContainer parses a JSON response body. In strict mode any unknown
// enum value is rejected so contract tests notice server vocabulary drift.
func DecodeMediaContainer(body []byte, strict bool) (*MediaContainer, error) {
	var envelope mediaContainerEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Error{Kind: ErrDeserialization, Op: "decode media container", Err: err}
	}
	if strict {
		if unknown := envelope.MediaContainer.unknownValues(); len(unknown) > 0 {
			return nil, &Error{
				Kind:    ErrDeserialization,
				Op:      "decode media container",
				Message: "unknown values: " + strings.Join(unknown, ", "),
			}
		}
	}
	return &envelope.MediaContainer, nil
}

func (mc *MediaContainer) unknownValues() []string {
	var out []string
	add := func(field, value string, known bool) {
		if value != "" && !known {
			out = append(out, fmt.Sprintf("%s=%q", field, value))
		}
	}
	for _, item := range mc.Metadata {
		for _, media := range item.Media {
			add("container", string(media.Container), media.Container.IsKnown())
			add("protocol", string(media.Protocol), media.Protocol.IsKnown())
			add("videoCodec", string(media.VideoCodec), media.VideoCodec.IsKnown())
			add("audioCodec", string(media.AudioCodec), media.AudioCodec.IsKnown())
			for _, part := range media.Parts {
				add("part.decision", string(part.Decision), part.Decision.IsKnown())
				for _, stream := range part.Streams {
					add("stream.decision", string(stream.Decision), stream.Decision.IsKnown())
					switch stream.StreamType {
					case StreamTypeVideo:
						add("stream.codec", stream.Codec, stream.VideoCodec().IsKnown())
					case StreamTypeAudio:
						add("stream.codec", stream.Codec, stream.AudioCodec().IsKnown())
					}
				}
			}
		}
	}
	for _, stats := range mc.TranscodeSessions {
		add("protocol", string(stats.Protocol), stats.Protocol.IsKnown())
		add("container", string(stats.Container), stats.Container.IsKnown())
		add("videoCodec", string(stats.VideoCodec), stats.VideoCodec.IsKnown())
		add("audioCodec", string(stats.AudioCodec), stats.AudioCodec.IsKnown())
		add("videoDecision", string(stats.VideoDecision), stats.VideoDecision.IsKnown())
		add("audioDecision", string(stats.AudioDecision), stats.AudioDecision.IsKnown())
	}
	return out
}
