package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/moodcap/internal/version"
)

const envPrefix = "MOODCAP"

type Config struct {
	Service  ServiceConfig  `mapstructure:"service" yaml:"service"`
	Audio    AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Playback PlaybackConfig `mapstructure:"playback" yaml:"playback"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

type ServiceConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	ClientID       string `mapstructure:"client_id" yaml:"client_id"`
	Token          string `mapstructure:"token" yaml:"token,omitempty"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	HistoryLimit   int    `mapstructure:"history_limit" yaml:"history_limit"`
}

type AudioConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`       // "ffmpeg", "portaudio"
	Microphone  string `mapstructure:"microphone" yaml:"microphone"` // "allow", "deny", "ask"
	InputFormat string `mapstructure:"input_format" yaml:"input_format"`
	InputDevice string `mapstructure:"input_device" yaml:"input_device"`
	SampleRate  int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels    int    `mapstructure:"channels" yaml:"channels"`
}

type PlaybackConfig struct {
	Player string `mapstructure:"player" yaml:"player"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Format    string `mapstructure:"format" yaml:"format"`
	Keep      bool   `mapstructure:"keep" yaml:"keep"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

var SupportedFormats = []string{"m4a", "aac", "3gp", "wav", "mp4"}

var microphoneModes = []string{"allow", "deny", "ask"}

var backends = []string{"ffmpeg", "portaudio"}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:        "http://localhost:8000",
			ClientID:       version.UserAgent(),
			TimeoutSeconds: 60,
			HistoryLimit:   50,
		},
		Audio: AudioConfig{
			Backend:     "ffmpeg",
			Microphone:  "allow",
			InputFormat: defaultInputFormat(),
			InputDevice: "default",
			SampleRate:  44100,
			Channels:    1,
		},
		Output: OutputConfig{
			Directory: filepath.Join(os.TempDir(), "moodcap"),
			Format:    "m4a",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// DefaultPath is $HOME/.config/moodcap.yaml.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "moodcap.yaml"
	}
	return filepath.Join(homeDir, ".config", "moodcap.yaml")
}

// Load reads configFile on top of the defaults and MOODCAP_* environment
// variables. An empty configFile means defaults and environment only.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Output.Directory = expandPath(cfg.Output.Directory)
	cfg.Output.Format = strings.ToLower(strings.TrimPrefix(cfg.Output.Format, "."))
	cfg.Service.BaseURL = strings.TrimRight(cfg.Service.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("service.base_url", d.Service.BaseURL)
	v.SetDefault("service.client_id", d.Service.ClientID)
	v.SetDefault("service.token", d.Service.Token)
	v.SetDefault("service.timeout_seconds", d.Service.TimeoutSeconds)
	v.SetDefault("service.history_limit", d.Service.HistoryLimit)

	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.microphone", d.Audio.Microphone)
	v.SetDefault("audio.input_format", d.Audio.InputFormat)
	v.SetDefault("audio.input_device", d.Audio.InputDevice)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)

	v.SetDefault("playback.player", d.Playback.Player)

	v.SetDefault("output.directory", d.Output.Directory)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.keep", d.Output.Keep)

	v.SetDefault("server.port", d.Server.Port)
}

// Validate checks the fields the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url is required")
	}
	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("service.base_url must be an http(s) URL, got: %s", c.Service.BaseURL)
	}
	if c.Service.TimeoutSeconds <= 0 {
		return fmt.Errorf("service.timeout_seconds must be > 0, got: %d", c.Service.TimeoutSeconds)
	}
	if c.Service.HistoryLimit < 0 {
		return fmt.Errorf("service.history_limit must be >= 0, got: %d", c.Service.HistoryLimit)
	}

	if !contains(backends, c.Audio.Backend) {
		return fmt.Errorf("audio.backend must be one of %s, got: %s", strings.Join(backends, ", "), c.Audio.Backend)
	}
	if !contains(microphoneModes, c.Audio.Microphone) {
		return fmt.Errorf("audio.microphone must be one of %s, got: %s", strings.Join(microphoneModes, ", "), c.Audio.Microphone)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0, got: %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("audio.channels must be 1 or 2, got: %d", c.Audio.Channels)
	}

	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory is required")
	}
	if !contains(SupportedFormats, c.Output.Format) {
		return fmt.Errorf("output.format must be one of %s, got: %s", strings.Join(SupportedFormats, ", "), c.Output.Format)
	}
	// portaudio writes raw PCM
	if c.Audio.Backend == "portaudio" && c.Output.Format != "wav" {
		return fmt.Errorf("audio.backend 'portaudio' requires output.format 'wav', got: %s", c.Output.Format)
	}

	return nil
}

// YAML renders the configuration the way it would be written to disk.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefault writes the default configuration to path. An existing file
// is left untouched unless force is set.
func WriteDefault(path string, force bool) error {
	if path == "" {
		return fmt.Errorf("no config file specified")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists", path)
	}

	data, err := Default().YAML()
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

func defaultInputFormat() string {
	switch {
	case fileExists("/System/Library"):
		return "avfoundation"
	case fileExists("/usr/bin/pactl") || fileExists("/bin/pactl"):
		return "pulse"
	default:
		return "alsa"
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
