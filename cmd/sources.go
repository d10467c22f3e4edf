package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available audio input sources",
	Long:  `List the microphone sources the configured capture backend can record from.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		sources, err := svc.ListSources()
		if err != nil {
			return fmt.Errorf("failed to list sources: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🎵 Audio Sources (%s, %s backend)\n", runtime.GOOS, cfg.Audio.Backend)
		fmt.Fprintf(out, "═══════════════════════════════════════\n\n")

		fmt.Fprintf(out, "📋 INPUT SOURCES (%d found):\n", len(sources))
		for i, source := range sources {
			fmt.Fprintf(out, "  %d. %s\n", i+1, source)
		}

		fmt.Fprintf(out, "\n💡 Usage:\n")
		fmt.Fprintf(out, "  • Configure in audio.input_device, e.g. \"alsa_input.usb-Blue_Yeti-00.analog-stereo\"\n")
		fmt.Fprintf(out, "  • Leave it empty to record from the default input\n\n")
		return nil
	},
}
