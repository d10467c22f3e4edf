package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/service"
	"github.com/audiolibrelab/moodcap/internal/tui"
)

const logFileName = "moodcap.log"

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record your voice and analyze its emotional tone",
	Long: `Open the interactive record screen. Press space to start and stop a
recording, play it back, then analyze it or discard it and record again.

While the screen is open, logs are written to moodcap.log in the output
directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var opts []service.Option

		// The record screen owns the terminal, so "ask" is answered up front
		if cfg.Audio.Microphone == "ask" {
			prompt := audio.NewPromptPermissions(os.Stdin, os.Stderr)
			granted, err := prompt.Request(ctx)
			if err != nil {
				return fmt.Errorf("microphone permission: %w", err)
			}
			if granted {
				opts = append(opts, service.WithPermissions(prompt))
			} else {
				opts = append(opts, service.WithPermissions(audio.StaticPermissions{Granted: false}))
			}
		}

		svc, err := newService(opts...)
		if err != nil {
			return err
		}

		logFile, err := openLogFile(cfg.Output.Directory)
		if err != nil {
			return err
		}
		defer logFile.Close()
		setLogOutput(logFile, verboseLevel)
		defer setupLogging(verboseLevel)

		slog.Info("Record screen opened", "base_url", cfg.Service.BaseURL, "backend", cfg.Audio.Backend)
		return tui.Run(ctx, svc.NewSession, tea.WithAltScreen())
	},
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, logFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
