package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server addresses the media server and the account identity service.
type Server struct {
	URL        string `toml:"url"`
	Token      string `toml:"token"`
	AccountURL string `toml:"account_url"`
	// Name picks a server from the account when URL is empty.
	Name string `toml:"name"`
}

// Client describes this device to the server.
type Client struct {
	Identifier     string `toml:"identifier"`
	IdentifierFile string `toml:"identifier_file"`
	Product        string `toml:"product"`
	DeviceName     string `toml:"device_name"`
	RequestTimeout int    `toml:"request_timeout"`
	StrictDecoding bool   `toml:"strict_decoding"`
}

// Transcode holds the default constraints used by the transcode commands.
type Transcode struct {
	Context         string   `toml:"context"`
	Protocol        string   `toml:"protocol"`
	VideoBitrate    int      `toml:"video_bitrate"`
	Width           int      `toml:"width"`
	Height          int      `toml:"height"`
	VideoQuality    int      `toml:"video_quality"`
	AudioBoost      int      `toml:"audio_boost"`
	BurnSubtitles   bool     `toml:"burn_subtitles"`
	Containers      []string `toml:"containers"`
	VideoCodecs     []string `toml:"video_codecs"`
	AudioCodecs     []string `toml:"audio_codecs"`
	MusicBitrate    int      `toml:"music_bitrate"`
	MusicContainers []string `toml:"music_containers"`
	MusicCodecs     []string `toml:"music_codecs"`
	PollInterval    int      `toml:"poll_interval"`
}

// Telemetry toggles tracing and metric export.
type Telemetry struct {
	Tracing         bool   `toml:"tracing"`
	MetricsTextfile string `toml:"metrics_textfile"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for plexctl.
//
// Configuration sections:
//   - Server: server URL, token and account lookup
//   - Client: device identity, timeouts and decoding strictness
//   - Transcode: default constraints for negotiated sessions
//   - Telemetry: OpenTelemetry transport tracing and Prometheus textfile
//   - Logging: log format, level and destination
type Config struct {
	Server    Server    `toml:"server"`
	Client    Client    `toml:"client"`
	Transcode Transcode `toml:"transcode"`
	Telemetry Telemetry `toml:"telemetry"`
	Logging   Logging   `toml:"logging"`
}

const defaultConfigPath = "~/.config/plexctl/config.toml"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; defaults and environment fallbacks apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strictErr *toml.StrictMissingError
			if errors.As(err, &strictErr) {
				return nil, "", false, fmt.Errorf("parse config: %s", strictErr.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("plexctl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}
