package preflight

import (
	"context"
	"log/slog"
	"path/filepath"

	"plexctl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional failures are reported as warnings.
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// Network checks are skipped when no client identity can be established.
func RunAll(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	identity := CheckIdentity(cfg)
	results = append(results, identity)

	if cfg.Telemetry.MetricsTextfile != "" {
		results = append(results, CheckDirectoryAccess("Metrics directory", filepath.Dir(cfg.Telemetry.MetricsTextfile)))
	}

	if !identity.Passed {
		results = append(results, Result{Name: serverCheckName, Detail: "skipped (no client identity)"})
		return results
	}
	opts, err := cfg.PlexOptions(logger, nil)
	if err != nil {
		results = append(results, Result{Name: serverCheckName, Detail: err.Error()})
		return results
	}

	switch {
	case cfg.Server.URL != "":
		results = append(results, CheckServer(ctx, cfg.Server.URL, opts))
		if cfg.Server.Name != "" {
			results = append(results, CheckAccount(ctx, cfg.Server.AccountURL, cfg.Server.Name, opts))
		}
	case cfg.Server.Name != "":
		results = append(results, CheckAccount(ctx, cfg.Server.AccountURL, cfg.Server.Name, opts))
	default:
		results = append(results, Result{Name: serverCheckName, Detail: "server.url and server.name are both empty"})
	}
	return results
}
