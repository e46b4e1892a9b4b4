package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"plexctl/internal/config"
	"plexctl/internal/logging"
	"plexctl/internal/metrics"
	"plexctl/internal/plex"
	"plexctl/internal/transcode"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	runtimeOnce sync.Once
	logger      *slog.Logger
	registry    *prometheus.Registry
	recorder    *metrics.Recorder
	runtimeErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureRuntime builds the logger and metrics registry shared by every
// client created during one invocation.
func (c *commandContext) ensureRuntime() error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	c.runtimeOnce.Do(func() {
		logger, err := logging.New(cfg.LoggingOptions())
		if err != nil {
			c.runtimeErr = fmt.Errorf("init logging: %w", err)
			return
		}
		c.logger = logger
		c.registry = prometheus.NewRegistry()
		c.recorder = metrics.New(c.registry)
	})
	return c.runtimeErr
}

func (c *commandContext) plexOptions() ([]plex.Option, error) {
	if err := c.ensureRuntime(); err != nil {
		return nil, err
	}
	return c.config.PlexOptions(logging.NewComponentLogger(c.logger, "plex"), c.recorder.ObserveRequest)
}

// accountClient talks to the identity service that lists devices.
func (c *commandContext) accountClient() (*plex.Client, error) {
	opts, err := c.plexOptions()
	if err != nil {
		return nil, err
	}
	accountURL := c.config.Server.AccountURL
	if accountURL == "" {
		accountURL = plex.DefaultAccountURL
	}
	return plex.New(accountURL, opts...)
}

// serverClient returns a client for the configured server. Without
// server.url the server named by server.name is looked up on the account
// and its fastest connection is used.
func (c *commandContext) serverClient(ctx context.Context) (*plex.Client, error) {
	opts, err := c.plexOptions()
	if err != nil {
		return nil, err
	}
	if c.config.Server.URL != "" {
		return plex.New(c.config.Server.URL, opts...)
	}
	name := strings.TrimSpace(c.config.Server.Name)
	if name == "" {
		return nil, errors.New("server.url is not configured; set it or server.name (or export PLEX_URL)")
	}
	account, err := c.accountClient()
	if err != nil {
		return nil, err
	}
	devices, err := account.Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list account devices: %w", err)
	}
	for _, device := range devices {
		if device.IsServer() && strings.EqualFold(device.Name, name) {
			c.logger.Debug("connecting to account server",
				logging.String("server", device.Name),
				logging.Int("connections", len(device.Connections)),
			)
			return account.Connect(ctx, device)
		}
	}
	return nil, fmt.Errorf("no server named %q on the account", name)
}

func (c *commandContext) negotiator(ctx context.Context) (*transcode.Negotiator, error) {
	client, err := c.serverClient(ctx)
	if err != nil {
		return nil, err
	}
	return transcode.NewNegotiator(client, transcode.WithRecorder(c.recorder)), nil
}

// flushMetrics writes the Prometheus textfile when one is configured and
// anything was recorded.
func (c *commandContext) flushMetrics() error {
	if c.config == nil || c.registry == nil {
		return nil
	}
	path := c.config.Telemetry.MetricsTextfile
	if path == "" {
		return nil
	}
	if err := metrics.WriteTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
