package config

import (
	"errors"
	"fmt"
	"net/url"

	"plexctl/internal/plex"
	"plexctl/internal/transcode"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	for key, value := range map[string]string{"server.url": c.Server.URL, "server.account_url": c.Server.AccountURL} {
		if value == "" {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http or https url, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateClient() error {
	if c.Client.RequestTimeout < 0 {
		return errors.New("client.request_timeout must be zero or positive")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	t := c.Transcode
	tctx, err := transcode.ParseContext(t.Context)
	if err != nil {
		return fmt.Errorf("transcode.context: %w", err)
	}
	protocol := plex.ParseProtocol(t.Protocol)
	if !protocol.IsKnown() {
		return fmt.Errorf("transcode.protocol: unknown protocol %q", t.Protocol)
	}
	if _, err := transcode.ResolveContainer(tctx, protocol); err != nil {
		return fmt.Errorf("transcode.protocol: %q cannot be used for %s transcodes", t.Protocol, tctx)
	}
	if t.VideoBitrate < 0 || t.Width < 0 || t.Height < 0 || t.MusicBitrate < 0 || t.AudioBoost < 0 {
		return errors.New("transcode bounds must be zero or positive")
	}
	if t.VideoQuality < 0 || t.VideoQuality > 100 {
		return errors.New("transcode.video_quality must be between 0 and 100")
	}
	if len(t.VideoCodecs) == 0 || len(t.AudioCodecs) == 0 || len(t.MusicCodecs) == 0 {
		return errors.New("transcode codec lists must not be empty")
	}
	for key, values := range map[string][]string{
		"transcode.containers":       t.Containers,
		"transcode.music_containers": t.MusicContainers,
	} {
		for _, v := range values {
			if !plex.ParseContainerFormat(v).IsKnown() {
				return fmt.Errorf("%s: unknown container %q", key, v)
			}
		}
	}
	for _, v := range t.VideoCodecs {
		if !plex.ParseVideoCodec(v).IsKnown() {
			return fmt.Errorf("transcode.video_codecs: unknown codec %q", v)
		}
	}
	for key, values := range map[string][]string{
		"transcode.audio_codecs": t.AudioCodecs,
		"transcode.music_codecs": t.MusicCodecs,
	} {
		for _, v := range values {
			if !plex.ParseAudioCodec(v).IsKnown() {
				return fmt.Errorf("%s: unknown codec %q", key, v)
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
