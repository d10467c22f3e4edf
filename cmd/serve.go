package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/server"
	"github.com/audiolibrelab/moodcap/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for remote control",
	Long: `Start the moodcap control server to drive a recording session over HTTP.
This allows you to record and analyze from your smartphone or any device on
the same network.

The server will display the local network URL for easy access from mobile devices.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		if port == "" {
			port = cfg.Server.Port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var opts []service.Option
		// Nobody is at the terminal to answer a prompt
		if cfg.Audio.Microphone == "ask" {
			slog.Warn("Microphone mode 'ask' cannot prompt in server mode, denying access")
			opts = append(opts, service.WithPermissions(audio.StaticPermissions{Granted: false}))
		}

		svc, err := newService(opts...)
		if err != nil {
			return err
		}

		slog.Info("moodcap control server starting", "port", port, "base_url", cfg.Service.BaseURL)

		// Start server (this blocks until interrupted)
		if err := server.New(svc, port).Start(ctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "port for the web server (default from server.port)")
}
