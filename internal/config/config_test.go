package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcstyle/termsim/internal/transcript"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DefaultIntervalMs, cfg.Reveal.IntervalMs)
	assert.Equal(t, "|", cfg.Reveal.CursorGlyph)
	assert.Equal(t, DefaultDemoText, cfg.Reveal.DemoText)
	assert.Equal(t, "$", cfg.Transcript.PromptGlyph)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, DefaultDebounceMs, cfg.Watch.DebounceMs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "custom reveal settings",
			setup: func(v *viper.Viper) {
				v.Set("reveal.interval_ms", 30)
				v.Set("reveal.cursor_glyph", "█")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30, cfg.Reveal.IntervalMs)
				assert.Equal(t, "30ms", cfg.Reveal.Interval().String())
				assert.Equal(t, "█", cfg.Reveal.CursorGlyph)
			},
		},
		{
			name: "allowed origins slice",
			setup: func(v *viper.Viper) {
				v.Set("server.allowed_origins", []string{"http://localhost:3000"})
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "root log-level flag",
			setup: func(v *viper.Viper) {
				v.Set("log-level", "debug")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Log.Level)
			},
		},
		{
			name: "no color",
			setup: func(v *viper.Viper) {
				v.Set("transcript.no_color", true)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Transcript.NoColor)
			},
		},
		{
			name:        "negative interval",
			setup:       func(v *viper.Viper) { v.Set("reveal.interval_ms", -5) },
			expectError: true,
		},
		{
			name:        "port out of range",
			setup:       func(v *viper.Viper) { v.Set("server.port", 70000) },
			expectError: true,
		},
		{
			name:        "dangerous host",
			setup:       func(v *viper.Viper) { v.Set("server.host", "localhost;rm -rf /") },
			expectError: true,
		},
		{
			name:        "transcript path traversal",
			setup:       func(v *viper.Viper) { v.Set("transcript.path", "../../etc/passwd") },
			expectError: true,
		},
		{
			name:        "bad origin scheme",
			setup:       func(v *viper.Viper) { v.Set("server.allowed_origins", []string{"ftp://x"}) },
			expectError: true,
		},
		{
			name:        "bad log format",
			setup:       func(v *viper.Viper) { v.Set("log.format", "xml") },
			expectError: true,
		},
		{
			name:        "unmarshal failure",
			setup:       func(v *viper.Viper) { v.Set("server.port", "invalid_port") },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".termsim.yml")
	content := `reveal:
  interval_ms: 30
transcript:
  path: demo/settings.txt
server:
  port: 9090
watch:
  debounce_ms: 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Reveal.IntervalMs)
	assert.Equal(t, "demo/settings.txt", cfg.Transcript.Path)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "250ms", cfg.Watch.Debounce().String())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TERMSIM_REVEAL_INTERVAL_MS", "75")
	t.Setenv("TERMSIM_SERVER_PORT", "9191")

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer())
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Reveal.IntervalMs)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestTranscriptVocabulary(t *testing.T) {
	t.Run("defaults share the typesim classifier", func(t *testing.T) {
		assert.Same(t, transcript.Default(), Default().Transcript.Classifier())
	})

	t.Run("keywords from env", func(t *testing.T) {
		t.Setenv("TERMSIM_TRANSCRIPT_SETTING_KEYWORDS", "volume,balance")

		v := viper.New()
		SetDefaults(v)
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(EnvKeyReplacer())
		v.AutomaticEnv()

		cfg, err := LoadFrom(v)
		require.NoError(t, err)
		assert.Equal(t, []string{"volume", "balance"}, cfg.Transcript.SettingKeywords)

		classifier := cfg.Transcript.Classifier()
		assert.Equal(t, transcript.SettingLine, classifier.ClassifyLine("  balance 50%").Category)
		assert.Equal(t, transcript.MenuItem, classifier.ClassifyLine("  speed 1.0x").Category)
	})

	t.Run("blank keyword rejected", func(t *testing.T) {
		v := viper.New()
		v.Set("transcript.setting_keywords", []string{"volume", " "})
		_, err := LoadFrom(v)
		assert.Error(t, err)
	})
}

func TestGlobalLoad(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("server.port", 3000)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("transcripts/demo.txt"))
	assert.Error(t, validatePath("../secret"))
	assert.Error(t, validatePath("demo.txt;ls"))
}
