package config

import (
	"os"
	"path/filepath"
	"strings"

	"plexctl/internal/plex"
)

const (
	defaultProduct        = "plexctl"
	defaultRequestTimeout = 30
	defaultPollInterval   = 2
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Server: Server{
			AccountURL: plex.DefaultAccountURL,
		},
		Client: Client{
			IdentifierFile: defaultIdentifierFile(),
			Product:        defaultProduct,
			RequestTimeout: defaultRequestTimeout,
		},
		Transcode: Transcode{
			Context:         "streaming",
			Protocol:        "dash",
			VideoBitrate:    2000,
			Width:           1280,
			Height:          720,
			Containers:      []string{"mp4", "mkv"},
			VideoCodecs:     []string{"h264"},
			AudioCodecs:     []string{"aac", "mp3"},
			MusicBitrate:    192,
			MusicContainers: []string{"mp3"},
			MusicCodecs:     []string{"mp3"},
			PollInterval:    defaultPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultIdentifierFile() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "plexctl", "client_id")
	}
	return "~/.local/state/plexctl/client_id"
}
