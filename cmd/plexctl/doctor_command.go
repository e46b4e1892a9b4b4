package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"plexctl/internal/logging"
	"plexctl/internal/preflight"
)

var errChecksFailed = errors.New("one or more checks failed")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, server reachability and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := ctx.ensureRuntime(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			for _, line := range renderSectionHeader("plexctl doctor", colorize) {
				fmt.Fprintln(out, line)
			}

			failed := false
			for _, result := range preflight.RunAll(cmd.Context(), cfg, logging.NewComponentLogger(ctx.logger, "preflight")) {
				kind := resultKind(result)
				if kind == statusError {
					failed = true
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if failed {
				return errChecksFailed
			}
			return nil
		},
	}
}
