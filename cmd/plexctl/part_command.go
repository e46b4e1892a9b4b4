package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"plexctl/internal/plex"
)

func newPartCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "part",
		Short: "Work with original media parts",
	}
	cmd.AddCommand(newPartDownloadCommand(ctx))
	return cmd
}

func newPartDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		resume bool
	)

	cmd := &cobra.Command{
		Use:   "download <part-key>",
		Short: "Download an original media part without transcoding",
		Long: "Download an original media part without transcoding.\n\n" +
			"With --resume an existing partial file is continued from its current size\n" +
			"using a byte range request.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serverClient(cmd.Context())
			if err != nil {
				return err
			}
			target := strings.TrimSpace(output)
			if target == "" {
				return errors.New("--output is required")
			}

			lock, err := lockDestination(target)
			if err != nil {
				return err
			}
			defer releaseDestination(lock)

			var offset int64
			flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			if resume {
				info, err := os.Stat(target)
				switch {
				case err == nil:
					offset = info.Size()
					flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("stat %s: %w", target, err)
				}
			}

			file, err := os.OpenFile(target, flags, 0o644)
			if err != nil {
				return fmt.Errorf("open %s: %w", target, err)
			}
			defer file.Close()

			var w io.Writer = file
			bar := byteProgress(cmd.ErrOrStderr(), "downloading", 0)
			if bar != nil {
				w = io.MultiWriter(file, bar)
			}
			written, err := client.DownloadPart(cmd.Context(), args[0], w, plex.ByteRange{Start: offset})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return fmt.Errorf("download part: %w", err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close %s: %w", target, err)
			}

			out := cmd.OutOrStdout()
			if offset > 0 {
				fmt.Fprintf(out, "Resumed at %s, wrote %s to %s\n", formatBytes(offset), formatBytes(written), target)
				return nil
			}
			fmt.Fprintf(out, "Wrote %s to %s\n", formatBytes(written), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file")
	cmd.Flags().BoolVar(&resume, "resume", false, "Continue a partial download from the end of the existing file")
	return cmd
}
