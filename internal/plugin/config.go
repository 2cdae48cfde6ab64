package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ScopedConfig is one plugin's persistent JSON document. It is always read
// and written whole.
type ScopedConfig struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

// ConfigPath returns where the config document of id lives under dir.
func ConfigPath(dir, id string) string {
	return filepath.Join(dir, id+".config.json")
}

// OpenConfig returns the config document of plugin id stored under dir,
// for use outside a running plugin.
func OpenConfig(dir, id string, log *zap.Logger) *ScopedConfig {
	if log == nil {
		log = zap.NewNop()
	}
	return newScopedConfig(dir, id, log)
}

func newScopedConfig(dir, id string, log *zap.Logger) *ScopedConfig {
	return &ScopedConfig{path: ConfigPath(dir, id), log: log}
}

// Path returns the backing file.
func (c *ScopedConfig) Path() string { return c.path }

// Raw returns the stored document. A missing, empty or unparseable file is
// reset to {} and rewritten.
func (c *ScopedConfig) Raw() (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// Get decodes the stored document into v. Fields absent from the document keep
// the values v already holds, so callers can pass a struct filled with defaults.
func (c *ScopedConfig) Get(v any) error {
	raw, err := c.Raw()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", c.path, err)
	}
	return nil
}

// Save replaces the stored document with v.
func (c *ScopedConfig) Save(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(data)
}

func (c *ScopedConfig) read() (json.RawMessage, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return c.reset()
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		c.log.Warn("resetting plugin config", zap.String("path", c.path), zap.Error(ErrConfigCorrupt))
		return c.reset()
	}
	return data, nil
}

func (c *ScopedConfig) reset() (json.RawMessage, error) {
	empty := json.RawMessage("{}")
	if err := c.write(empty); err != nil {
		return nil, err
	}
	return empty, nil
}

// write replaces the file atomically.
func (c *ScopedConfig) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
