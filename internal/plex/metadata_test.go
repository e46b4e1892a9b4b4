package plex

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

const decisionFixture = `{
  "MediaContainer": {
    "size": 1,
    "generalDecisionCode": 1001,
    "generalDecisionText": "Direct play not available; Conversion OK.",
    "Metadata": [{
      "ratingKey": "1",
      "key": "/library/metadata/1",
      "type": "movie",
      "title": "Big Buck Bunny",
      "Media": [{
        "id": 7,
        "container": "mp4",
        "protocol": "dash",
        "videoCodec": "h264",
        "audioCodec": "aac",
        "selected": true,
        "Part": [{
          "id": 9,
          "decision": "transcode",
          "Stream": [
            {"id": 1, "streamType": 1, "codec": "h264", "decision": "copy", "selected": true},
            {"id": 2, "streamType": 2, "codec": "aac", "decision": "transcode", "languageTag": "de", "languageCode": "ger"}
          ]
        }]
      }]
    }]
  }
}`

func TestDecodeMediaContainer(t *testing.T) {
	mc, err := DecodeMediaContainer([]byte(decisionFixture), true)
	if err != nil {
		t.Fatalf("DecodeMediaContainer: %v", err)
	}
	media := mc.Metadata[0].Media[0]
	want := []Stream{
		{ID: 1, StreamType: StreamTypeVideo, Codec: "h264", Decision: DecisionCopy, Selected: true},
		{ID: 2, StreamType: StreamTypeAudio, Codec: "aac", Decision: DecisionTranscode, LanguageTag: "de", LanguageCode: "ger"},
	}
	if diff := cmp.Diff(want, media.Streams()); diff != "" {
		t.Fatalf("streams mismatch (-want +got):\n%s", diff)
	}
	if media.Protocol != ProtocolDASH || media.Container != ContainerMP4 {
		t.Fatalf("unexpected media: %+v", media)
	}
	if got := media.Streams()[1].Language(); got != language.German {
		t.Fatalf("language = %v", got)
	}
}

func TestDecodeUnknownValues(t *testing.T) {
	body := []byte(`{"MediaContainer":{"size":1,"TranscodeSession":[{"key":"/transcode/sessions/x","protocol":"smooth","videoCodec":"h267","complete":false}]}}`)

	mc, err := DecodeMediaContainer(body, false)
	if err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	stats := mc.TranscodeSessions[0]
	if stats.Protocol != "smooth" || stats.Protocol.IsKnown() {
		t.Fatalf("unknown protocol should be kept verbatim: %q", stats.Protocol)
	}
	if stats.VideoCodec.IsKnown() {
		t.Fatalf("h267 should be unknown")
	}

	if _, err := DecodeMediaContainer(body, true); !errors.Is(err, ErrDeserialization) {
		t.Fatalf("strict decode should fail, got %v", err)
	}
}

func TestStreamLanguageFallback(t *testing.T) {
	if got := (Stream{LanguageCode: "fra"}).Language(); got != language.French {
		t.Fatalf("language = %v", got)
	}
	if got := (Stream{}).Language(); got != language.Und {
		t.Fatalf("language = %v", got)
	}
}

func TestEnumParsing(t *testing.T) {
	if ParseVideoCodec(" H264 ") != VideoCodecH264 {
		t.Fatal("expected case-insensitive codec parse")
	}
	if ContainerMPEGTS.Extension() != "ts" || ContainerMKV.Extension() != "mkv" {
		t.Fatal("unexpected container extensions")
	}
	if ParseDecision("DirectPlay") != DecisionDirectPlay {
		t.Fatal("expected directplay")
	}
	if StreamTypeSubtitle.String() != "subtitle" {
		t.Fatalf("stream type = %s", StreamTypeSubtitle)
	}
}
