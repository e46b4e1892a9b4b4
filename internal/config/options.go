package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"plexctl/internal/logging"
	"plexctl/internal/plex"
	"plexctl/internal/transcode"
)

// ClientIdentifier returns the configured device identifier. When none is
// configured it is read from client.identifier_file, generating and
// persisting a new one on first use so the server sees a stable device.
func (c *Config) ClientIdentifier() (string, error) {
	if c.Client.Identifier != "" {
		return c.Client.Identifier, nil
	}
	path := c.Client.IdentifierFile
	if path == "" {
		return newIdentifier(), nil
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read client identifier: %w", err)
	}

	id := newIdentifier()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create client identifier directory: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write client identifier: %w", err)
	}
	return id, nil
}

func newIdentifier() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Identity builds the device identity sent with every request.
func (c *Config) Identity() (plex.Identity, error) {
	id, err := c.ClientIdentifier()
	if err != nil {
		return plex.Identity{}, err
	}
	return plex.Identity{
		ClientIdentifier: id,
		Product:          c.Client.Product,
		DeviceName:       c.Client.DeviceName,
	}, nil
}

// PlexOptions converts the configuration into client options. logger and
// observer may be nil.
func (c *Config) PlexOptions(logger *slog.Logger, observer plex.RequestObserver) ([]plex.Option, error) {
	identity, err := c.Identity()
	if err != nil {
		return nil, err
	}
	opts := []plex.Option{
		plex.WithIdentity(identity),
		plex.WithToken(c.Server.Token),
		plex.WithTimeout(time.Duration(c.Client.RequestTimeout) * time.Second),
		plex.WithStrictDecoding(c.Client.StrictDecoding),
		plex.WithTracing(c.Telemetry.Tracing),
		plex.WithLogger(logger),
	}
	if observer != nil {
		opts = append(opts, plex.WithRequestObserver(observer))
	}
	return opts, nil
}

// TranscodeContext returns the configured default context.
func (c *Config) TranscodeContext() transcode.Context {
	tctx, err := transcode.ParseContext(c.Transcode.Context)
	if err != nil {
		return transcode.ContextStreaming
	}
	return tctx
}

// TranscodeProtocol returns the configured default protocol.
func (c *Config) TranscodeProtocol() plex.Protocol {
	return plex.ParseProtocol(c.Transcode.Protocol)
}

// VideoOptions converts the [transcode] section into video constraints.
func (c *Config) VideoOptions() transcode.VideoOptions {
	t := c.Transcode
	return transcode.VideoOptions{
		Bitrate:       t.VideoBitrate,
		Width:         t.Width,
		Height:        t.Height,
		VideoQuality:  t.VideoQuality,
		AudioBoost:    t.AudioBoost,
		BurnSubtitles: t.BurnSubtitles,
		Containers:    parseAll(t.Containers, plex.ParseContainerFormat),
		VideoCodecs:   parseAll(t.VideoCodecs, plex.ParseVideoCodec),
		AudioCodecs:   parseAll(t.AudioCodecs, plex.ParseAudioCodec),
	}
}

// MusicOptions converts the [transcode] section into music constraints.
func (c *Config) MusicOptions() transcode.MusicOptions {
	t := c.Transcode
	return transcode.MusicOptions{
		Bitrate:    t.MusicBitrate,
		Containers: parseAll(t.MusicContainers, plex.ParseContainerFormat),
		Codecs:     parseAll(t.MusicCodecs, plex.ParseAudioCodec),
	}
}

// PollInterval is the pacing of status polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Transcode.PollInterval) * time.Second
}

// LoggingOptions converts the [logging] section.
func (c *Config) LoggingOptions() logging.Options {
	opts := logging.Options{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
	}
	if c.Logging.File != "" {
		opts.OutputPaths = []string{c.Logging.File}
	}
	return opts
}

func parseAll[T any](values []string, parse func(string) T) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		out = append(out, parse(v))
	}
	return out
}

// CreateSample writes the sample configuration file atomically. An existing
// file is never overwritten.
func CreateSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := renameio.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
