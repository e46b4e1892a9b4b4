package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"plexctl/internal/transcode"
)

func newArtworkCommand(ctx *commandContext) *cobra.Command {
	var (
		output  string
		width   int
		height  int
		minSize bool
		upscale bool
	)

	cmd := &cobra.Command{
		Use:   "artwork <image-path>",
		Short: "Resize an item's artwork on the server and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serverClient(cmd.Context())
			if err != nil {
				return err
			}
			target := strings.TrimSpace(output)
			if target == "" {
				return errors.New("--output is required")
			}
			req := transcode.ArtworkRequest{
				Source:  args[0],
				Width:   width,
				Height:  height,
				MinSize: minSize,
				Upscale: upscale,
			}
			written, err := writeAtomic(target, nil, func(w io.Writer) (int64, error) {
				return transcode.Artwork(cmd.Context(), client, w, req)
			})
			if err != nil {
				return fmt.Errorf("transcode artwork: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", formatBytes(written), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination image file")
	cmd.Flags().IntVar(&width, "width", 0, "Target width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Target height in pixels")
	cmd.Flags().BoolVar(&minSize, "min-size", false, "Treat the size as a minimum and keep aspect ratio")
	cmd.Flags().BoolVar(&upscale, "upscale", false, "Allow the server to enlarge small images")
	return cmd
}
