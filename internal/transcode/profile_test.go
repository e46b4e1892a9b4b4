package transcode

import (
	"strings"
	"testing"

	"plexctl/internal/plex"
)

func scenarioOptions() VideoOptions {
	return VideoOptions{
		Bitrate:     2000,
		VideoCodecs: []plex.VideoCodec{plex.VideoCodecH264},
		AudioCodecs: []plex.AudioCodec{plex.AudioCodecMP3, plex.AudioCodecAAC},
		Containers:  []plex.ContainerFormat{plex.ContainerMP4, plex.ContainerMKV},
	}
}

func settingsWithAction(profile, action string) []string {
	var out []string
	for _, entry := range strings.Split(profile, "+") {
		if strings.HasPrefix(entry, action+"(") {
			out = append(out, entry)
		}
	}
	return out
}

func TestProfileIsDeterministic(t *testing.T) {
	opts := scenarioOptions()
	opts.VideoLimitations = []VideoLimitation{
		{Setting: VideoWidth, Constraint: Max("1920")},
		{Codec: plex.VideoCodecH264, Setting: VideoProfile, Constraint: Match("main", "baseline")},
	}
	first := opts.Profile(ContextStatic, plex.ProtocolHTTP, "")
	for i := 0; i < 20; i++ {
		if got := opts.Profile(ContextStatic, plex.ProtocolHTTP, ""); got != first {
			t.Fatalf("profile changed between calls:\n%s\n%s", first, got)
		}
	}
}

func TestProfileStreamingTargetsEveryContainer(t *testing.T) {
	profile := scenarioOptions().Profile(ContextStreaming, plex.ProtocolDASH, plex.ContainerMP4)

	targets := settingsWithAction(profile, "add-transcode-target")
	if len(targets) != 2 {
		t.Fatalf("expected one target per container, got %v", targets)
	}
	for i, container := range []string{"mp4", "mkv"} {
		want := "add-transcode-target(type=videoProfile&context=streaming&protocol=dash&container=" + container + "&videoCodec=h264&audioCodec=mp3,aac)"
		if targets[i] != want {
			t.Fatalf("target %d = %s, want %s", i, targets[i], want)
		}
	}
	if got := settingsWithAction(profile, "add-direct-play-profile"); len(got) != 0 {
		t.Fatalf("streaming profile must not allow direct play: %v", got)
	}
}

func TestProfileForcedContainerIsAlwaysTargeted(t *testing.T) {
	opts := scenarioOptions()
	opts.Containers = []plex.ContainerFormat{plex.ContainerMKV}
	profile := opts.Profile(ContextStreaming, plex.ProtocolHLS, plex.ContainerMPEGTS)

	targets := settingsWithAction(profile, "add-transcode-target")
	if len(targets) != 2 || !strings.Contains(targets[0], "container=mpegts&") || !strings.Contains(targets[1], "container=mkv&") {
		t.Fatalf("targets = %v", targets)
	}

	opts.Containers = nil
	targets = settingsWithAction(opts.Profile(ContextStreaming, plex.ProtocolHLS, plex.ContainerMPEGTS), "add-transcode-target")
	if len(targets) != 1 || !strings.Contains(targets[0], "container=mpegts&") {
		t.Fatalf("targets without a container list = %v", targets)
	}
}

func TestProfileStaticListsEveryContainer(t *testing.T) {
	profile := scenarioOptions().Profile(ContextStatic, plex.ProtocolHTTP, "")

	targets := settingsWithAction(profile, "add-transcode-target")
	if len(targets) != 2 {
		t.Fatalf("expected one target per container, got %v", targets)
	}
	for i, container := range []string{"mp4", "mkv"} {
		want := "add-transcode-target(type=videoProfile&context=static&protocol=http&container=" + container + "&videoCodec=h264&audioCodec=mp3,aac)"
		if targets[i] != want {
			t.Fatalf("target %d = %s, want %s", i, targets[i], want)
		}
	}
	direct := settingsWithAction(profile, "add-direct-play-profile")
	if len(direct) != 2 {
		t.Fatalf("expected one direct play profile per container, got %v", direct)
	}
	if direct[1] != "add-direct-play-profile(type=videoProfile&container=mkv&videoCodec=h264&audioCodec=mp3,aac)" {
		t.Fatalf("direct play profile = %s", direct[1])
	}
}

func TestProfileCodecEntriesKeepSourceOrder(t *testing.T) {
	opts := scenarioOptions()
	opts.VideoCodecs = []plex.VideoCodec{plex.VideoCodecHEVC, plex.VideoCodecH264}
	profile := opts.Profile(ContextStreaming, plex.ProtocolHLS, plex.ContainerMPEGTS)

	video := settingsWithAction(profile, "append-transcode-target-codec")
	if len(video) != 1 || video[0] != "append-transcode-target-codec(type=videoProfile&context=streaming&protocol=hls&videoCodec=h264)" {
		t.Fatalf("only codecs after the first should be appended, got %v", video)
	}
	if got := settingsWithAction(scenarioOptions().Profile(ContextStreaming, plex.ProtocolHLS, plex.ContainerMPEGTS), "append-transcode-target-codec"); len(got) != 0 {
		t.Fatalf("a single video codec needs no append entry, got %v", got)
	}
	audio := settingsWithAction(profile, "add-transcode-target-audio-codec")
	if len(audio) != 2 || !strings.HasSuffix(audio[0], "audioCodec=mp3)") || !strings.HasSuffix(audio[1], "audioCodec=aac)") {
		t.Fatalf("audio codec entries = %v", audio)
	}
	if !strings.Contains(profile, "videoCodec=hevc,h264&") {
		t.Fatalf("joined codec list should keep order: %s", profile)
	}
}

func TestLimitationRendering(t *testing.T) {
	tests := []struct {
		name string
		lim  VideoLimitation
		want string
	}{
		{
			name: "match list",
			lim:  VideoLimitation{Codec: plex.VideoCodecH264, Setting: VideoProfile, Constraint: Match("main", "baseline")},
			want: "add-limitation(scope=videoCodec&scopeName=h264&name=video.profile&type=match&list=main|baseline)",
		},
		{
			name: "upper bound",
			lim:  VideoLimitation{Setting: VideoBitDepth, Constraint: Max("8")},
			want: "add-limitation(scope=videoCodec&scopeName=*&name=video.bitDepth&type=upperBound&value=8)",
		},
		{
			name: "lower bound",
			lim:  VideoLimitation{Setting: VideoHeight, Constraint: Min("240")},
			want: "add-limitation(scope=videoCodec&scopeName=*&name=video.height&type=lowerBound&value=240)",
		},
		{
			name: "not match",
			lim:  VideoLimitation{Setting: VideoAnamorphic, Constraint: NotMatch("1")},
			want: "add-limitation(scope=videoCodec&scopeName=*&name=video.anamorphic&type=notMatch&value=1)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lim.setting("videoCodec").String(); got != tt.want {
				t.Fatalf("got %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestProfileLimitationScopes(t *testing.T) {
	opts := scenarioOptions()
	opts.AudioLimitations = []AudioLimitation{{Codec: plex.AudioCodecAAC, Setting: AudioChannels, Constraint: Max("2")}}
	profile := opts.Profile(ContextStreaming, plex.ProtocolDASH, plex.ContainerMP4)
	want := "add-limitation(scope=videoAudioCodec&scopeName=aac&name=audio.channels&type=upperBound&value=2)"
	if !strings.HasSuffix(profile, "+"+want) {
		t.Fatalf("expected audio limitation last, got %s", profile)
	}

	music := MusicOptions{
		Codecs:      []plex.AudioCodec{plex.AudioCodecMP3},
		Containers:  []plex.ContainerFormat{plex.ContainerMP3},
		Limitations: []AudioLimitation{{Setting: AudioSamplingRate, Constraint: Max("48000")}},
	}
	got := music.Profile(ContextStatic, plex.ProtocolHTTP, "")
	wantMusic := strings.Join([]string{
		"add-transcode-target(type=musicProfile&context=static&protocol=http&container=mp3&audioCodec=mp3)",
		"add-direct-play-profile(type=musicProfile&container=mp3&audioCodec=mp3)",
		"add-transcode-target-audio-codec(type=musicProfile&context=static&protocol=http&audioCodec=mp3)",
		"add-limitation(scope=audioCodec&scopeName=*&name=audio.samplingRate&type=upperBound&value=48000)",
	}, "+")
	if got != wantMusic {
		t.Fatalf("music profile:\n got %s\nwant %s", got, wantMusic)
	}
}
