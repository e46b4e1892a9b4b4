package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"plexctl/internal/logging"
	"plexctl/internal/plex"
	"plexctl/internal/transcode"
)

type sessionView struct {
	ID        string `json:"id"`
	Offline   bool   `json:"offline"`
	Protocol  string `json:"protocol"`
	Container string `json:"container"`
	Video     string `json:"video,omitempty"`
	Audio     string `json:"audio,omitempty"`
	Extension string `json:"extension"`
}

func newSessionView(s *transcode.Session) sessionView {
	view := sessionView{
		ID:        s.ID(),
		Offline:   s.Offline(),
		Protocol:  s.Protocol().String(),
		Container: s.Container().String(),
		Extension: s.Extension(),
	}
	if video, ok := s.Video(); ok {
		view.Video = video.String()
	}
	if audio, ok := s.Audio(); ok {
		view.Audio = audio.String()
	}
	return view
}

type statusView struct {
	ID        string  `json:"id"`
	State     string  `json:"state"`
	Progress  float64 `json:"progress"`
	Remaining *int64  `json:"remainingSeconds,omitempty"`
}

func newStatusView(id string, st transcode.Status) statusView {
	view := statusView{ID: id, State: st.State.String(), Progress: st.Progress}
	if st.Remaining != nil {
		seconds := int64(st.Remaining.Seconds())
		view.Remaining = &seconds
	}
	return view
}

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Negotiate and manage transcode sessions",
	}

	cmd.AddCommand(newTranscodeStartCommand(ctx))
	cmd.AddCommand(newTranscodeStatusCommand(ctx))
	cmd.AddCommand(newTranscodeWaitCommand(ctx))
	cmd.AddCommand(newTranscodeDownloadCommand(ctx))
	cmd.AddCommand(newTranscodeCancelCommand(ctx))

	return cmd
}

func newTranscodeStartCommand(ctx *commandContext) *cobra.Command {
	var (
		music      bool
		contextArg string
		protocol   string
		mediaIndex int
		partIndex  int
		bitrate    int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "start <item-key>",
		Short: "Negotiate a transcode for a library item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			negotiator, err := ctx.negotiator(cmd.Context())
			if err != nil {
				return err
			}

			tctx := cfg.TranscodeContext()
			if strings.TrimSpace(contextArg) != "" {
				if tctx, err = transcode.ParseContext(contextArg); err != nil {
					return err
				}
			}
			proto := cfg.TranscodeProtocol()
			if strings.TrimSpace(protocol) != "" {
				proto = plex.ParseProtocol(protocol)
			}

			req := transcode.Request{
				Target:   transcode.Target{Key: args[0], MediaIndex: mediaIndex, PartIndex: partIndex},
				Context:  tctx,
				Protocol: proto,
			}
			if music {
				opts := cfg.MusicOptions()
				if bitrate > 0 {
					opts.Bitrate = bitrate
				}
				req.Options = opts
			} else {
				opts := cfg.VideoOptions()
				if bitrate > 0 {
					opts.Bitrate = bitrate
				}
				req.Options = opts
			}

			session, err := negotiator.Negotiate(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("negotiate transcode: %w", err)
			}
			ctx.logger.Info("transcode negotiated",
				logging.String(logging.FieldSessionID, session.ID()),
				logging.String(logging.FieldProtocol, session.Protocol().String()),
			)

			view := newSessionView(session)
			if asJSON {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:   %s\n", view.ID)
			fmt.Fprintf(out, "Offline:   %s\n", yesNo(view.Offline))
			fmt.Fprintf(out, "Protocol:  %s\n", orDash(view.Protocol))
			fmt.Fprintf(out, "Container: %s\n", orDash(view.Container))
			fmt.Fprintf(out, "Video:     %s\n", orDash(view.Video))
			fmt.Fprintf(out, "Audio:     %s\n", orDash(view.Audio))
			return nil
		},
	}

	cmd.Flags().BoolVar(&music, "music", false, "Negotiate a music transcode instead of video")
	cmd.Flags().StringVar(&contextArg, "context", "", "Transcode context: streaming or static (default from config)")
	cmd.Flags().StringVar(&protocol, "protocol", "", "Delivery protocol: dash, hls, http (default from config)")
	cmd.Flags().IntVar(&mediaIndex, "media-index", 0, "Media version index")
	cmd.Flags().IntVar(&partIndex, "part-index", 0, "Part index within the media")
	cmd.Flags().IntVar(&bitrate, "bitrate", 0, "Override the maximum bitrate in kbps")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newTranscodeStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show progress of a transcode session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := findSession(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			st, err := session.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("session status: %w", err)
			}
			view := newStatusView(session.ID(), st)
			if asJSON {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:   %s\n", view.ID)
			fmt.Fprintf(out, "State:     %s\n", stateLabel(st.State, isTerminal(out)))
			fmt.Fprintf(out, "Progress:  %s\n", formatProgress(st.Progress))
			fmt.Fprintf(out, "Remaining: %s\n", formatRemaining(st.Remaining))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newTranscodeWaitCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait <session-id>",
		Short: "Block until a transcode session completes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			session, err := findSession(cmd, ctx, args[0])
			if err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			var bar *progressbar.ProgressBar
			if isTerminal(errOut) {
				bar = progressbar.NewOptions(100,
					progressbar.OptionSetWriter(errOut),
					progressbar.OptionSetDescription("transcoding"),
					progressbar.OptionClearOnFinish(),
				)
			}
			st, err := session.WaitComplete(cmd.Context(), cfg.PollInterval(), func(st transcode.Status) {
				if bar != nil {
					_ = bar.Set(int(st.Progress))
				}
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return fmt.Errorf("wait for %s: %w", session.ID(), err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %s %s\n", session.ID(), strings.ToLower(stateLabel(st.State, false)))
			return nil
		},
	}
	return cmd
}

func newTranscodeDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string
	var wait bool

	cmd := &cobra.Command{
		Use:   "download <session-id>",
		Short: "Download the payload of a transcode session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			session, err := findSession(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			if wait {
				if _, err := session.WaitComplete(cmd.Context(), cfg.PollInterval(), nil); err != nil {
					return fmt.Errorf("wait for %s: %w", session.ID(), err)
				}
			}

			target := strings.TrimSpace(output)
			if target == "" {
				target = session.ID() + "." + session.Extension()
			}
			bar := byteProgress(cmd.ErrOrStderr(), "downloading", 0)
			written, err := writeAtomic(target, progressWriter(bar), func(w io.Writer) (int64, error) {
				return session.Download(cmd.Context(), w)
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return fmt.Errorf("download %s: %w", session.ID(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", formatBytes(written), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default <session>.<ext>)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the transcode to complete first")
	return cmd
}

func newTranscodeCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Stop a transcode session on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := findSession(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			if err := session.Cancel(cmd.Context()); err != nil {
				return fmt.Errorf("cancel %s: %w", session.ID(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled session %s\n", session.ID())
			return nil
		},
	}
}

func findSession(cmd *cobra.Command, ctx *commandContext, id string) (*transcode.Session, error) {
	negotiator, err := ctx.negotiator(cmd.Context())
	if err != nil {
		return nil, err
	}
	session, err := negotiator.Find(cmd.Context(), strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", id, err)
	}
	return session, nil
}
