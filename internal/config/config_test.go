package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"plexctl/internal/config"
	"plexctl/internal/plex"
	"plexctl/internal/transcode"
)

func TestLoadDefaultConfigUsesEnv(t *testing.T) {
	t.Setenv("PLEX_URL", "http://10.0.0.5:32400/")
	t.Setenv("PLEX_TOKEN", " env-token ")
	t.Setenv("XDG_STATE_HOME", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "plexctl", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Server.URL != "http://10.0.0.5:32400" {
		t.Fatalf("expected url from env, got %q", cfg.Server.URL)
	}
	if cfg.Server.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.Server.Token)
	}
	if cfg.Client.IdentifierFile != filepath.Join(tempHome, ".local", "state", "plexctl", "client_id") {
		t.Fatalf("unexpected identifier file: %q", cfg.Client.IdentifierFile)
	}
	if cfg.Server.AccountURL != plex.DefaultAccountURL {
		t.Fatalf("unexpected account url: %q", cfg.Server.AccountURL)
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
}

func TestLoadFileOverridesEnv(t *testing.T) {
	t.Setenv("PLEX_URL", "http://env:32400")
	dir := t.TempDir()
	path := filepath.Join(dir, "plexctl.toml")
	content := `
[server]
url = "https://server.example:32400"

[transcode]
context = "static"
protocol = "http"
containers = ["MKV", "mp4", "mkv"]
video_codecs = ["hevc", "h264"]

[logging]
format = "JSON"
file = "` + filepath.ToSlash(filepath.Join(dir, "logs", "plexctl.log")) + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %s to be loaded, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Server.URL != "https://server.example:32400" {
		t.Fatalf("file url should win over env, got %q", cfg.Server.URL)
	}
	if cfg.TranscodeContext() != transcode.ContextStatic || cfg.TranscodeProtocol() != plex.ProtocolHTTP {
		t.Fatalf("unexpected transcode defaults: %s/%s", cfg.TranscodeContext(), cfg.TranscodeProtocol())
	}
	opts := cfg.VideoOptions()
	if diff := cmp.Diff([]plex.ContainerFormat{plex.ContainerMKV, plex.ContainerMP4}, opts.Containers); diff != "" {
		t.Fatalf("containers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]plex.VideoCodec{plex.VideoCodecHEVC, plex.VideoCodecH264}, opts.VideoCodecs); diff != "" {
		t.Fatalf("video codecs mismatch (-want +got):\n%s", diff)
	}
	logOpts := cfg.LoggingOptions()
	if logOpts.Format != "json" || len(logOpts.OutputPaths) != 1 {
		t.Fatalf("unexpected logging options: %+v", logOpts)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"unknown key":         "[server]\nurll = \"http://x\"\n",
		"bad scheme":          "[server]\nurl = \"ftp://x\"\n",
		"streaming mp4":       "[transcode]\ncontext = \"streaming\"\nprotocol = \"mp4\"\n",
		"unknown context":     "[transcode]\ncontext = \"live\"\n",
		"unknown codec":       "[transcode]\nvideo_codecs = [\"h266\"]\n",
		"unknown container":   "[transcode]\ncontainers = [\"zip\"]\n",
		"empty audio codecs":  "[transcode]\naudio_codecs = []\n",
		"quality too high":    "[transcode]\nvideo_quality = 101\n",
		"negative timeout":    "[client]\nrequest_timeout = -1\n",
		"bad log format":      "[logging]\nformat = \"xml\"\n",
		"bad log level":       "[logging]\nlevel = \"loud\"\n",
		"malformed toml file": "[server\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	var fromSample config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &fromSample); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	defaults := config.Default()
	if diff := cmp.Diff(defaults.Transcode, fromSample.Transcode); diff != "" {
		t.Fatalf("sample transcode section drifted (-default +sample):\n%s", diff)
	}
	if fromSample.Client.RequestTimeout != defaults.Client.RequestTimeout || fromSample.Client.IdentifierFile != defaults.Client.IdentifierFile {
		t.Fatalf("sample client section drifted: %+v", fromSample.Client)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[transcode]") {
		t.Fatalf("sample missing transcode section")
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("CreateSample should refuse to overwrite")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample should load cleanly: %v", err)
	}
}

func TestClientIdentifierIsPersisted(t *testing.T) {
	cfg := config.Default()
	cfg.Client.IdentifierFile = filepath.Join(t.TempDir(), "state", "client_id")

	first, err := cfg.ClientIdentifier()
	if err != nil {
		t.Fatalf("ClientIdentifier: %v", err)
	}
	if len(first) != 32 {
		t.Fatalf("unexpected identifier %q", first)
	}
	second, err := cfg.ClientIdentifier()
	if err != nil {
		t.Fatalf("ClientIdentifier: %v", err)
	}
	if first != second {
		t.Fatalf("identifier should be stable: %s vs %s", first, second)
	}

	cfg.Client.Identifier = "fixed"
	identity, err := cfg.Identity()
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if identity.ClientIdentifier != "fixed" || identity.Product != "plexctl" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestPlexOptionsBuildClient(t *testing.T) {
	cfg := config.Default()
	cfg.Client.Identifier = "abc"
	cfg.Client.StrictDecoding = true
	opts, err := cfg.PlexOptions(nil, nil)
	if err != nil {
		t.Fatalf("PlexOptions: %v", err)
	}
	client, err := plex.New("http://127.0.0.1:32400", opts...)
	if err != nil {
		t.Fatalf("plex.New: %v", err)
	}
	if !client.Strict() || client.Identity().ClientIdentifier != "abc" {
		t.Fatalf("options not applied: strict=%v identity=%+v", client.Strict(), client.Identity())
	}
}
