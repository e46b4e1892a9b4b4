package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"plexctl/internal/config"
	"plexctl/internal/testsupport"
	"plexctl/internal/testsupport/testconfig"
)

const sessionStatsBody = `{"MediaContainer":{"size":1,"TranscodeSession":[
  {"key":"/transcode/sessions/abc123","progress":42.5,"remaining":30,"protocol":"http","container":"mp4","context":"static",
   "offlineTranscode":true,"videoDecision":"transcode","videoCodec":"h264","sourceVideoCodec":"hevc",
   "audioDecision":"copy","audioCodec":"aac","size":1048576}
]}}`

type cliTestEnv struct {
	server     *testsupport.FakeServer
	config     *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testconfig.Option) *cliTestEnv {
	t.Helper()
	srv := testsupport.NewFakeServer(t)
	opts = append([]testconfig.Option{
		testconfig.WithServerURL(srv.URL),
		testconfig.WithAccountURL(srv.URL),
	}, opts...)
	cfg := testconfig.New(t, opts...)
	cfg.Logging.Level = "error"
	path := filepath.Join(testconfig.BaseDir(cfg), "config.toml")
	writeTestConfig(t, path, cfg)
	return &cliTestEnv{server: srv, config: cfg, configPath: path}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
