package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plexctl/internal/transcode"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List transcode sessions running on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			negotiator, err := ctx.negotiator(cmd.Context())
			if err != nil {
				return err
			}
			sessions, err := negotiator.Sessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, sessions)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No transcode sessions")
				return nil
			}
			colorize := isTerminal(out)
			rows := make([][]string, 0, len(sessions))
			for _, stats := range sessions {
				status := transcode.StatusFromStats(stats)
				id := stats.Key
				if session, err := negotiator.Recover(stats); err == nil {
					id = session.ID()
				}
				rows = append(rows, []string{
					id,
					stateLabel(status.State, colorize),
					formatProgress(status.Progress),
					orDash(stats.Protocol.String()),
					orDash(stats.Container.String()),
					titleWord(stats.VideoDecision.String()),
					titleWord(stats.AudioDecision.String()),
					yesNo(stats.OfflineTranscode),
					formatBytes(stats.Size),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Session", "State", "Progress", "Protocol", "Container", "Video", "Audio", "Offline", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
