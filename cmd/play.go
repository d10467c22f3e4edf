package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/moodcap/internal/output"
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play an audio file",
	Long: `Play an audio file with the first available player (ffplay, mpv, vlc,
afplay or aplay), or the one set in playback.player. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := newService()
		if err != nil {
			return err
		}

		pb, err := svc.PlayFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		output.NewFormatter(cmd.OutOrStdout()).Playing(args[0])

		select {
		case <-pb.Done():
		case <-ctx.Done():
			svc.StopPlayback()
			return nil
		}

		if err := pb.Err(); err != nil {
			return err
		}
		return nil
	},
}
