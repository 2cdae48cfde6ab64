//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "tilde with nested path",
			input:    "~/music/library/albums",
			expected: filepath.Join(home, "music", "library", "albums"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/usr/local/music",
			expected: "/usr/local/music",
		},
		{
			name:     "relative path unchanged",
			input:    "music/albums",
			expected: "music/albums",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandPath(tt.input))
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleftly", "config.toml")

	cfg, used, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, Defaults(), *cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, _, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *again)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
music_directories = ["/srv/music"]
audio_backend = "web"

[library]
prune_missing = true
watch_debounce = "500ms"

[[external_plugins]]
id = "com.example.echo"
path = "/opt/echo"
`)

	cfg, _, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/music"}, cfg.MusicDirectories)
	assert.Equal(t, BackendWeb, cfg.AudioBackend)
	assert.True(t, cfg.Library.PruneMissing)
	assert.Equal(t, 500*time.Millisecond, cfg.Library.WatchDebounce)
	assert.Equal(t, 8, cfg.Library.Workers, "default kept")
	assert.Equal(t, "en", cfg.Locale, "default kept")
	assert.Equal(t, []string{"com.cleftly.mpris"}, cfg.EnabledPlugins, "default kept")
	assert.Equal(t, map[string]string{"com.example.echo": "/opt/echo"}, cfg.ExternalPaths())
}

func TestLoad_CorruptFileIsReset(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "whitespace", content: "  \n\t"},
		{name: "invalid toml", content: "music_directories = [\"/a\""},
		{name: "wrong type", content: "[library]\nworkers = \"many\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			core, logs := observer.New(zapcore.WarnLevel)

			cfg, _, err := Load(path, zap.New(core))
			require.NoError(t, err)
			assert.Equal(t, Defaults(), *cfg)

			entries := logs.FilterMessage("resetting config").All()
			require.Len(t, entries, 1)

			again, _, err := Load(path, nil)
			require.NoError(t, err)
			assert.Equal(t, Defaults(), *again, "file was rewritten")
		})
	}
}

func TestLoad_UnknownBackendFallsBack(t *testing.T) {
	path := writeConfig(t, `audio_backend = "alsa"`)

	cfg, _, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendNative, cfg.AudioBackend)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `locale = "fr"`)
	t.Setenv(EnvPath, path)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "fr", cfg.Locale)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Defaults()
	cfg.MusicDirectories = []string{"/a", "/b"}
	cfg.SetupDone = true
	cfg.LyricsSave = true
	cfg.Lastfm = LastfmConfig{APIKey: "k", APISecret: "s"}
	cfg.ExternalPlugins = []ExternalPlugin{{ID: "x", Path: "/bin/x"}}
	cfg.Library.WatchDebounce = 3 * time.Second

	require.NoError(t, Save(path, &cfg))

	got, _, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, *got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestHasLastfmConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name: "both APIKey and APISecret set",
			config: Config{
				Lastfm: LastfmConfig{
					APIKey:    "my-api-key",
					APISecret: "my-api-secret",
				},
			},
			expected: true,
		},
		{
			name: "only APIKey set",
			config: Config{
				Lastfm: LastfmConfig{
					APIKey: "my-api-key",
				},
			},
			expected: false,
		},
		{
			name:     "neither set",
			config:   Config{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.HasLastfmConfig())
		})
	}
}

func TestEnableDisablePlugin(t *testing.T) {
	cfg := Defaults()

	assert.True(t, cfg.EnablePlugin("com.cleftly.lyrics"))
	assert.False(t, cfg.EnablePlugin("com.cleftly.lyrics"))
	assert.True(t, cfg.PluginEnabled("com.cleftly.lyrics"))

	assert.True(t, cfg.DisablePlugin("com.cleftly.mpris"))
	assert.False(t, cfg.DisablePlugin("com.cleftly.mpris"))
	assert.Equal(t, []string{"com.cleftly.lyrics"}, cfg.EnabledPlugins)
}

func TestAddMusicDirectory(t *testing.T) {
	cfg := Defaults()

	assert.True(t, cfg.AddMusicDirectory("/srv/music/"))
	assert.False(t, cfg.AddMusicDirectory("/srv/music"))
	assert.Equal(t, []string{"/srv/music"}, cfg.MusicDirectories)
}
