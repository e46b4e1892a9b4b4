package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	if err := c.normalizeClient(); err != nil {
		return err
	}
	c.normalizeTranscode()
	if err := c.normalizeTelemetry(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeServer() {
	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
	if c.Server.URL == "" {
		if value, ok := os.LookupEnv("PLEX_URL"); ok {
			c.Server.URL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.Server.Token = strings.TrimSpace(c.Server.Token)
	if c.Server.Token == "" {
		if value, ok := os.LookupEnv("PLEX_TOKEN"); ok {
			c.Server.Token = strings.TrimSpace(value)
		}
	}
	c.Server.AccountURL = strings.TrimRight(strings.TrimSpace(c.Server.AccountURL), "/")
	c.Server.Name = strings.TrimSpace(c.Server.Name)
}

func (c *Config) normalizeClient() error {
	c.Client.Identifier = strings.TrimSpace(c.Client.Identifier)
	c.Client.Product = strings.TrimSpace(c.Client.Product)
	if c.Client.Product == "" {
		c.Client.Product = defaultProduct
	}
	c.Client.DeviceName = strings.TrimSpace(c.Client.DeviceName)
	if c.Client.DeviceName == "" {
		if host, err := os.Hostname(); err == nil {
			c.Client.DeviceName = host
		}
	}
	var err error
	if c.Client.IdentifierFile, err = expandPath(strings.TrimSpace(c.Client.IdentifierFile)); err != nil {
		return fmt.Errorf("client.identifier_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscode() {
	t := &c.Transcode
	t.Context = strings.ToLower(strings.TrimSpace(t.Context))
	t.Protocol = strings.ToLower(strings.TrimSpace(t.Protocol))
	t.Containers = normalizeTokens(t.Containers)
	t.VideoCodecs = normalizeTokens(t.VideoCodecs)
	t.AudioCodecs = normalizeTokens(t.AudioCodecs)
	t.MusicContainers = normalizeTokens(t.MusicContainers)
	t.MusicCodecs = normalizeTokens(t.MusicCodecs)
	if t.PollInterval <= 0 {
		t.PollInterval = defaultPollInterval
	}
}

func (c *Config) normalizeTelemetry() error {
	var err error
	if c.Telemetry.MetricsTextfile, err = expandPath(strings.TrimSpace(c.Telemetry.MetricsTextfile)); err != nil {
		return fmt.Errorf("telemetry.metrics_textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

func normalizeTokens(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
