package app

import (
	"context"
	"errors"

	"github.com/cleftly/cleftly/internal/plugin"
)

// PluginInfo is a known plugin and whether the configuration enables it.
type PluginInfo struct {
	plugin.Info
	Enabled bool
}

// PluginList lists every built-in and external plugin.
func (a *App) PluginList() []PluginInfo {
	infos := a.Plugins.List()
	out := make([]PluginInfo, len(infos))
	for i, info := range infos {
		out[i] = PluginInfo{Info: info, Enabled: a.Config.PluginEnabled(info.Descriptor.ID)}
	}
	return out
}

// EnablePlugin loads id and adds it to the enabled plugins. The
// configuration is only changed when the plugin loads.
func (a *App) EnablePlugin(ctx context.Context, id string) error {
	if err := a.Plugins.Load(ctx, id); err != nil && !errors.Is(err, plugin.ErrDuplicatePlugin) {
		return err
	}
	if a.Config.EnablePlugin(id) {
		return a.SaveConfig()
	}
	return nil
}

// DisablePlugin unloads id when it is active and removes it from the enabled plugins.
func (a *App) DisablePlugin(ctx context.Context, id string) error {
	var unloadErr error
	if a.Plugins.Status(id) == plugin.StatusActive {
		unloadErr = a.Plugins.Unload(ctx, id)
	}
	if a.Config.DisablePlugin(id) {
		return errors.Join(unloadErr, a.SaveConfig())
	}
	return unloadErr
}
