package plugin

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestScopedConfig_MissingFileIsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	c := newScopedConfig(dir, "com.test.a", zap.NewNop())

	raw, err := c.Raw()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	data, err := os.ReadFile(ConfigPath(dir, "com.test.a"))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestScopedConfig_CorruptFileIsReset(t *testing.T) {
	for name, content := range map[string]string{
		"empty":       "",
		"whitespace":  "  \n",
		"unparseable": `{"token": `,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(ConfigPath(dir, "com.test.a"), []byte(content), 0o600))
			core, logs := observer.New(zapcore.WarnLevel)
			c := newScopedConfig(dir, "com.test.a", zap.New(core))

			raw, err := c.Raw()
			require.NoError(t, err)
			assert.JSONEq(t, `{}`, string(raw))
			assert.Equal(t, 1, logs.FilterMessage("resetting plugin config").Len())

			data, err := os.ReadFile(c.Path())
			require.NoError(t, err)
			assert.JSONEq(t, `{}`, string(data))
		})
	}
}

func TestScopedConfig_GetKeepsDefaults(t *testing.T) {
	type settings struct {
		Enabled bool   `json:"enabled"`
		Token   string `json:"token"`
	}
	c := newScopedConfig(t.TempDir(), "com.test.a", zap.NewNop())
	require.NoError(t, c.Save(map[string]any{"token": "abc"}))

	got := settings{Enabled: true}
	require.NoError(t, c.Get(&got))
	assert.Equal(t, settings{Enabled: true, Token: "abc"}, got)
}

func TestScopedConfig_IsolatedPerPlugin(t *testing.T) {
	dir := t.TempDir()
	a := newScopedConfig(dir, "com.test.a", zap.NewNop())
	b := newScopedConfig(dir, "com.test.b", zap.NewNop())

	require.NoError(t, a.Save(map[string]string{"k": "a"}))
	require.NoError(t, b.Save(map[string]string{"k": "b"}))

	raw, err := a.Raw()
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"a"}`, string(raw))
	raw, err = b.Raw()
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"b"}`, string(raw))
}
