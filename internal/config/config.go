// Package config provides configuration management for termsim using Viper
// for loading from files, environment variables and command-line flags.
//
// Values come from .termsim.yml, TERMSIM_-prefixed environment variables
// (TERMSIM_REVEAL_INTERVAL_MS, TERMSIM_SERVER_PORT, ...) and bound flags. Load
// fills defaults for anything left unset and validates the result.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pcstyle/termsim/internal/transcript"
)

// Defaults applied by Load.
const (
	DefaultIntervalMs  = 50
	DefaultCursorGlyph = "|"
	DefaultPromptGlyph = "$"
	DefaultHost        = "localhost"
	DefaultPort        = 8080
	DefaultDebounceMs  = 100
	DefaultDemoText    = "typesim simulates realistic human typing with natural pauses, typos, and corrections. Perfect for demos and presentations!"
)

type Config struct {
	Reveal     RevealConfig     `yaml:"reveal" mapstructure:"reveal"`
	Transcript TranscriptConfig `yaml:"transcript" mapstructure:"transcript"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Watch      WatchConfig      `yaml:"watch" mapstructure:"watch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

type RevealConfig struct {
	IntervalMs  int    `yaml:"interval_ms" mapstructure:"interval_ms"`
	CursorGlyph string `yaml:"cursor_glyph" mapstructure:"cursor_glyph"`
	DemoText    string `yaml:"demo_text" mapstructure:"demo_text"`
}

type TranscriptConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`
	PromptGlyph string `yaml:"prompt_glyph" mapstructure:"prompt_glyph"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`

	// SettingKeywords and CreditMarker replace the typesim vocabulary when set.
	// From the environment, keywords are comma separated.
	SettingKeywords []string `yaml:"setting_keywords" mapstructure:"setting_keywords"`
	CreditMarker    string   `yaml:"credit_marker" mapstructure:"credit_marker"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Host           string   `yaml:"host" mapstructure:"host"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Interval returns the reveal interval as a duration.
func (c RevealConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Debounce returns the watcher debounce delay as a duration.
func (c WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Classifier builds the transcript classifier for this vocabulary. Unset
// fields keep the typesim defaults.
func (c TranscriptConfig) Classifier() *transcript.Classifier {
	if len(c.SettingKeywords) == 0 && c.CreditMarker == "" {
		return transcript.Default()
	}
	return transcript.New(transcript.Options{
		SettingKeywords: c.SettingKeywords,
		CreditMarker:    c.CreditMarker,
	})
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "TERMSIM"

// EnvKeyReplacer maps nested keys such as server.port to SERVER_PORT.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}

// SetDefaults registers every key with v so AutomaticEnv can resolve
// TERMSIM_ variables during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("reveal.interval_ms", DefaultIntervalMs)
	v.SetDefault("reveal.cursor_glyph", DefaultCursorGlyph)
	v.SetDefault("reveal.demo_text", DefaultDemoText)
	v.SetDefault("transcript.path", "")
	v.SetDefault("transcript.prompt_glyph", DefaultPromptGlyph)
	v.SetDefault("transcript.no_color", false)
	v.SetDefault("transcript.setting_keywords", []string{})
	v.SetDefault("transcript.credit_marker", "")
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("watch.debounce_ms", DefaultDebounceMs)
	v.SetDefault("log.format", "text")
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v, applies defaults and validates.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle allowed origins set via viper (workaround for viper slice handling)
	if v.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	// Handle no_color set via env or flag (workaround for viper bool handling)
	if v.IsSet("transcript.no_color") {
		config.Transcript.NoColor = v.GetBool("transcript.no_color")
	}

	// Flags bind "log-level" at the root
	if config.Log.Level == "" && v.IsSet("log-level") {
		config.Log.Level = v.GetString("log-level")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

func applyDefaults(config *Config) {
	if config.Reveal.IntervalMs == 0 {
		config.Reveal.IntervalMs = DefaultIntervalMs
	}
	if config.Reveal.CursorGlyph == "" {
		config.Reveal.CursorGlyph = DefaultCursorGlyph
	}
	if config.Reveal.DemoText == "" {
		config.Reveal.DemoText = DefaultDemoText
	}
	if config.Transcript.PromptGlyph == "" {
		config.Transcript.PromptGlyph = DefaultPromptGlyph
	}
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if config.Watch.DebounceMs == 0 {
		config.Watch.DebounceMs = DefaultDebounceMs
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateRevealConfig(&config.Reveal); err != nil {
		return fmt.Errorf("reveal config: %w", err)
	}

	if err := validateTranscriptConfig(&config.Transcript); err != nil {
		return fmt.Errorf("transcript config: %w", err)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if config.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch config: debounce_ms must not be negative, got %d", config.Watch.DebounceMs)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log config: format must be text or json, got %q", config.Log.Format)
	}

	return nil
}

func validateRevealConfig(config *RevealConfig) error {
	if config.IntervalMs <= 0 {
		return fmt.Errorf("interval_ms must be positive, got %d", config.IntervalMs)
	}
	if strings.ContainsAny(config.CursorGlyph, "\n\r") {
		return fmt.Errorf("cursor_glyph must not contain line breaks")
	}
	return nil
}

func validateTranscriptConfig(config *TranscriptConfig) error {
	if config.Path != "" {
		if err := validatePath(config.Path); err != nil {
			return fmt.Errorf("invalid path '%s': %w", config.Path, err)
		}
	}
	if strings.ContainsAny(config.PromptGlyph, "\n\r") {
		return fmt.Errorf("prompt_glyph must not contain line breaks")
	}
	for _, kw := range config.SettingKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("setting_keywords must not contain blank entries")
		}
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	for _, origin := range config.AllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("allowed origin %q must use http or https", origin)
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
