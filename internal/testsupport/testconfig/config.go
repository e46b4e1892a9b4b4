// Package testconfig builds isolated configurations for tests.
package testconfig

import (
	"path/filepath"
	"testing"

	"plexctl/internal/config"
)

// Option allows callers to customize the generated test configuration.
type Option func(*builder)

type builder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// New produces a config whose files live in a per-test temp directory. It
// never reads the user's config or environment.
func New(t testing.TB, opts ...Option) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.URL = "http://127.0.0.1:1"
	cfgVal.Server.Token = "test-token"
	cfgVal.Client.Identifier = "test-client"
	cfgVal.Client.IdentifierFile = filepath.Join(base, "client_id")
	cfgVal.Client.DeviceName = "test-device"
	cfgVal.Client.RequestTimeout = 5

	b := &builder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return b.cfg
}

// WithServerURL points the config at a test server.
func WithServerURL(url string) Option {
	return func(b *builder) {
		b.cfg.Server.URL = url
	}
}

// WithAccountURL points device discovery at a test server.
func WithAccountURL(url string) Option {
	return func(b *builder) {
		b.cfg.Server.AccountURL = url
	}
}

// WithTranscode overrides the default context and protocol.
func WithTranscode(context, protocol string) Option {
	return func(b *builder) {
		b.cfg.Transcode.Context = context
		b.cfg.Transcode.Protocol = protocol
	}
}

// WithMetricsTextfile enables the Prometheus textfile under the temp dir.
func WithMetricsTextfile(name string) Option {
	return func(b *builder) {
		b.cfg.Telemetry.MetricsTextfile = filepath.Join(b.baseDir, name)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Client.IdentifierFile)
}
