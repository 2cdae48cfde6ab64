package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrPluginLoad matches every LoadError.
	ErrPluginLoad = errors.New("plugin load failed")
	// ErrDuplicatePlugin is returned when loading an id that is already active.
	ErrDuplicatePlugin = errors.New("plugin already loaded")
	// ErrUnknownPlugin means the id is neither built in nor configured as external.
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrNotLoaded is returned when unloading an id that is not active.
	ErrNotLoaded = errors.New("plugin not loaded")
	// ErrConfigCorrupt is logged when a plugin config file is reset.
	ErrConfigCorrupt = errors.New("plugin config corrupt")
)

// LoadError reports a plugin that could not be resolved or constructed.
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load plugin %s: %v", e.ID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPluginLoad) hold.
func (e *LoadError) Is(target error) bool { return target == ErrPluginLoad }
