package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"plexctl/internal/plex"
)

type serverView struct {
	Name             string   `json:"name"`
	ClientIdentifier string   `json:"clientIdentifier"`
	Product          string   `json:"product"`
	Platform         string   `json:"platform"`
	Owned            bool     `json:"owned"`
	Connections      []string `json:"connections"`
}

func newServersCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var includePlayers bool

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List media servers registered on the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := ctx.accountClient()
			if err != nil {
				return err
			}
			devices, err := account.Resources(cmd.Context())
			if err != nil {
				return fmt.Errorf("list account devices: %w", err)
			}

			views := make([]serverView, 0, len(devices))
			for _, device := range devices {
				if !device.IsServer() && !(includePlayers && device.IsPlayer()) {
					continue
				}
				view := serverView{
					Name:             device.Name,
					ClientIdentifier: device.ClientIdentifier,
					Product:          device.Product,
					Platform:         device.Platform,
					Owned:            device.Owned,
				}
				for _, conn := range plex.RankConnections(device.Connections) {
					view.Connections = append(view.Connections, conn.URI)
				}
				views = append(views, view)
			}

			if asJSON {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No servers found")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				preferred := "-"
				if len(v.Connections) > 0 {
					preferred = v.Connections[0]
				}
				rows = append(rows, []string{
					v.Name,
					orDash(v.Product),
					titleWord(v.Platform),
					yesNo(v.Owned),
					strconv.Itoa(len(v.Connections)),
					preferred,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Product", "Platform", "Owned", "Connections", "Preferred"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&includePlayers, "players", false, "Include player devices")
	return cmd
}
