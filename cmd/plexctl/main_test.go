package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plexctl/internal/plex"
	"plexctl/internal/testsupport/testconfig"
)

func TestConfigInitAndValidate(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Token set: yes")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init without --overwrite to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nurl = \"http://127.0.0.1:32400\"\nbogus = 1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err == nil {
		t.Fatal("expected unknown key to fail validation")
	}
	requireContains(t, err.Error(), "bogus")
}

func TestServersListsAccountServers(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.server.Handle("/api/v2/resources", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<MediaContainer size="2">
  <resource name="Basement" product="Plex Media Server" platform="linux" clientIdentifier="server-1" provides="server" owned="1">
    <connections>
      <connection protocol="http" address="10.0.0.2" port="32400" uri="http://10.0.0.2:32400" local="1"/>
      <connection protocol="https" address="relay.example" port="443" uri="https://relay.example:443" local="0" relay="1"/>
    </connections>
  </resource>
  <resource name="Phone" product="Plex for Android" platform="android" clientIdentifier="player-1" provides="player"/>
</MediaContainer>`)
	})

	out, _, err := runCLI(t, []string{"servers"}, env.configPath)
	if err != nil {
		t.Fatalf("servers: %v", err)
	}
	requireContains(t, out, "Basement")
	requireContains(t, out, "Linux")
	requireContains(t, out, "http://10.0.0.2:32400")
	if strings.Contains(out, "Phone") {
		t.Fatalf("players should be hidden without --players:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"servers", "--players", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("servers --json: %v", err)
	}
	requireContains(t, out, `"name": "Phone"`)
}

func TestSessionsTable(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.server.JSON("/transcode/sessions", http.StatusOK, sessionStatsBody)

	out, _, err := runCLI(t, []string{"sessions"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	requireContains(t, out, "abc123")
	requireContains(t, out, "42.5%")
	requireContains(t, out, "Transcoding")
	requireContains(t, out, "1.0 MiB")
}

func TestSessionsEmpty(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.server.JSON("/transcode/sessions", http.StatusOK, `{"MediaContainer":{"size":0}}`)

	out, _, err := runCLI(t, []string{"sessions"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	requireContains(t, out, "No transcode sessions")
}

func TestTranscodeStartNegotiatesWithConfigDefaults(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t, testconfig.WithMetricsTextfile("plexctl.prom"))
	env.server.JSON("/video/:/transcode/universal/decision", http.StatusOK, `{"MediaContainer":{
  "size": 1,
  "Metadata": [{"key": "/library/metadata/42", "Media": [
    {"id": 2, "protocol": "dash", "container": "mp4", "selected": true, "Part": [{"id": 5, "Stream": [
      {"id": 1, "streamType": 1, "codec": "h264", "decision": "transcode", "selected": true},
      {"id": 3, "streamType": 2, "codec": "aac", "decision": "copy", "selected": true}
    ]}]}
  ]}]
}}`)

	out, _, err := runCLI(t, []string{"transcode", "start", "/library/metadata/42"}, env.configPath)
	if err != nil {
		t.Fatalf("transcode start: %v", err)
	}
	requireContains(t, out, "Protocol:  dash")
	requireContains(t, out, "Video:     h264 (transcode)")
	requireContains(t, out, "Audio:     aac (copy)")

	reqs := env.server.RequestsTo("/video/:/transcode/universal/decision")
	if len(reqs) != 1 {
		t.Fatalf("expected one decision request, got %d", len(reqs))
	}
	requireContains(t, reqs[0].RawQuery, "path=%2Flibrary%2Fmetadata%2F42")
	requireContains(t, reqs[0].RawQuery, "protocol=dash&context=streaming")
	if got := reqs[0].Header.Get("X-Plex-Token"); got != "test-token" {
		t.Fatalf("token header = %q", got)
	}

	data, err := os.ReadFile(env.config.Telemetry.MetricsTextfile)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	requireContains(t, string(data), "plexctl_transcode_decisions_total")
}

func TestTranscodeStartRejectsBadProtocolBeforeRequest(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"transcode", "start", "/library/metadata/42", "--protocol", "http"}, env.configPath)
	if !errors.Is(err, plex.ErrInvalidRequestSettings) {
		t.Fatalf("expected invalid request settings, got %v", err)
	}
	if n := len(env.server.Requests()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestTranscodeStatusAndCancel(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.server.JSON("/transcode/sessions/abc123", http.StatusOK, sessionStatsBody)
	env.server.Status("/video/:/transcode/universal/stop", http.StatusNotFound)

	out, _, err := runCLI(t, []string{"transcode", "status", "abc123", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("transcode status: %v", err)
	}
	requireContains(t, out, `"state": "transcoding"`)
	requireContains(t, out, `"remainingSeconds": 30`)

	out, _, err = runCLI(t, []string{"transcode", "cancel", "abc123"}, env.configPath)
	if err != nil {
		t.Fatalf("transcode cancel: %v", err)
	}
	requireContains(t, out, "Cancelled session abc123")
	stops := env.server.RequestsTo("/video/:/transcode/universal/stop")
	if len(stops) != 1 || stops[0].RawQuery != "session=abc123" {
		t.Fatalf("unexpected stop requests: %+v", stops)
	}
}

func TestTranscodeStatusMissingSession(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.server.JSON("/transcode/sessions/gone", http.StatusOK, `{"MediaContainer":{"size":0}}`)

	_, _, err := runCLI(t, []string{"transcode", "status", "gone"}, env.configPath)
	if !errors.Is(err, plex.ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestTranscodeDownloadWritesFileAtomically(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.server.JSON("/transcode/sessions/abc123", http.StatusOK, sessionStatsBody)
	env.server.Handle("/transcode/universal/start.mp4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	})

	target := filepath.Join(t.TempDir(), "out.mp4")
	out, _, err := runCLI(t, []string{"transcode", "download", "abc123", "-o", target}, env.configPath)
	if err != nil {
		t.Fatalf("transcode download: %v", err)
	}
	requireContains(t, out, "Wrote 7 B to "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected payload %q", data)
	}
	starts := env.server.RequestsTo("/transcode/universal/start.mp4")
	if len(starts) != 1 || starts[0].RawQuery != "session=abc123&protocol=http&context=static&offlineTranscode=1" {
		t.Fatalf("unexpected start requests: %+v", starts)
	}
	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("expected lock file to be removed, stat err = %v", err)
	}
}

func TestTranscodeDownloadFailureKeepsPreviousFile(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.server.JSON("/transcode/sessions/abc123", http.StatusOK, sessionStatsBody)
	env.server.Status("/transcode/universal/start.mp4", http.StatusInternalServerError)

	target := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed output: %v", err)
	}
	if _, _, err := runCLI(t, []string{"transcode", "download", "abc123", "-o", target}, env.configPath); err == nil {
		t.Fatal("expected download to fail")
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "old" {
		t.Fatalf("previous file was replaced: %q", data)
	}
}

func TestArtworkCommand(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.server.Handle("/photo/:/transcode", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	})

	target := filepath.Join(t.TempDir(), "poster.jpg")
	out, _, err := runCLI(t, []string{"artwork", "/library/metadata/42/thumb/1", "--width", "300", "--height", "450", "-o", target}, env.configPath)
	if err != nil {
		t.Fatalf("artwork: %v", err)
	}
	requireContains(t, out, "Wrote 10 B")
	reqs := env.server.RequestsTo("/photo/:/transcode")
	if len(reqs) != 1 {
		t.Fatalf("expected one artwork request, got %d", len(reqs))
	}
	requireContains(t, reqs[0].RawQuery, "width=300&height=450")
}

func TestPartDownloadResumesFromExistingSize(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	const content = "0123456789"
	env.server.Handle("/library/parts/7/0/file.mkv", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "bytes=4-" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(content))
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 4-9/%d", len(content)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte(content[4:]))
	})

	target := filepath.Join(t.TempDir(), "file.mkv")
	if err := os.WriteFile(target, []byte(content[:4]), 0o644); err != nil {
		t.Fatalf("seed partial file: %v", err)
	}
	out, _, err := runCLI(t, []string{"part", "download", "/library/parts/7/0/file.mkv", "-o", target, "--resume"}, env.configPath)
	if err != nil {
		t.Fatalf("part download: %v", err)
	}
	requireContains(t, out, "Resumed at 4 B")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != content {
		t.Fatalf("resumed file = %q, want %q", data, content)
	}
}

func TestServerClientRequiresAddress(t *testing.T) {
	t.Parallel()
	env := setupCLITestEnv(t)
	env.config.Server.URL = ""
	env.config.Server.Name = ""
	writeTestConfig(t, env.configPath, env.config)

	_, _, err := runCLI(t, []string{"sessions"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing server address to fail")
	}
	requireContains(t, err.Error(), "server.url is not configured")
}
