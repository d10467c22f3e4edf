package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/audiolibrelab/moodcap/internal/config"
	"github.com/audiolibrelab/moodcap/internal/service"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	baseURL      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "moodcap",
	Short: "Detect the emotional tone of your voice or text",
	Long: `moodcap records a short voice clip, lets you play it back, and sends it
to an emotion analysis service. The dominant emotion and the top detected
emotions are shown with their probabilities.

Free text can be analyzed too, and past analyses can be listed from the
service's history.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure slog based on verbose level
		setupLogging(verboseLevel)

		// Commands that work without a valid configuration
		if cmd.Name() == "version" || cmd == configInitCmd {
			return nil
		}

		// The default file is optional; defaults and MOODCAP_* env apply without it
		path := cfgFile
		if path == "" {
			if _, err := os.Stat(config.DefaultPath()); err == nil {
				path = config.DefaultPath()
			}
		}

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if baseURL != "" {
			cfg.Service.BaseURL = strings.TrimRight(baseURL, "/")
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid --base-url: %w", err)
			}
		}

		slog.Debug("Configuration loaded", "file", path, "base_url", cfg.Service.BaseURL)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/moodcap.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "analysis service base URL (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	// Add subcommands
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// newService builds the service from the loaded configuration.
func newService(opts ...service.Option) (service.Service, error) {
	svc, err := service.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int) {
	setLogOutput(os.Stderr, level)
}

// setLogOutput points the default logger at w.
func setLogOutput(w io.Writer, level int) {
	var slogLevel slog.Level
	switch {
	case level >= 1:
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(w, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)
}
