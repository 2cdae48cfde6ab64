package plugin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime/debug"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/session"
)

// Options configure a Runtime.
type Options struct {
	// Builtins is the static registry, keyed by descriptor id.
	Builtins []Factory
	// External maps plugin ids to executables.
	External map[string]string
	Events   events.PubSub
	State    session.StateReader
	// ConfigDir holds one <id>.config.json per plugin.
	ConfigDir string
	Log       *zap.Logger
}

// Info is a plugin as listed by the runtime.
type Info struct {
	Descriptor Descriptor
	Status     Status
	Builtin    bool
	Path       string
}

type instance struct {
	desc   Descriptor
	status Status
	plugin Plugin
	events *ScopedEvents
}

// Runtime owns every loaded plugin.
type Runtime struct {
	builtins  map[string]Factory
	external  map[string]string
	bus       events.PubSub
	state     session.StateReader
	configDir string
	log       *zap.Logger
	command   func(path string) *exec.Cmd

	mu        sync.Mutex
	instances map[string]*instance
}

// NewRuntime creates a runtime with nothing loaded.
func NewRuntime(opts Options) *Runtime {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runtime{
		builtins:  make(map[string]Factory, len(opts.Builtins)),
		external:  make(map[string]string, len(opts.External)),
		bus:       opts.Events,
		state:     opts.State,
		configDir: opts.ConfigDir,
		log:       log.Named("plugin"),
		command:   func(path string) *exec.Cmd { return exec.Command(path) },
		instances: make(map[string]*instance),
	}
	for _, f := range opts.Builtins {
		r.builtins[f.Descriptor.ID] = f
	}
	for id, path := range opts.External {
		r.external[id] = path
	}
	return r
}

// resolve finds the factory for id: built-ins first, then external paths.
func (r *Runtime) resolve(id string) (Factory, error) {
	if f, ok := r.builtins[id]; ok {
		return f, nil
	}
	if path, ok := r.external[id]; ok {
		return r.externalFactory(id, path), nil
	}
	return Factory{}, ErrUnknownPlugin
}

// Load resolves and constructs one plugin. Loading an id that is already
// initializing or active fails with ErrDuplicatePlugin and leaves the running
// instance untouched.
func (r *Runtime) Load(ctx context.Context, id string) error {
	factory, err := r.resolve(id)
	if err != nil {
		return &LoadError{ID: id, Err: err}
	}
	if !factory.Descriptor.Valid() || factory.Descriptor.ID != id {
		return &LoadError{ID: id, Err: errors.New("descriptor id mismatch")}
	}

	r.mu.Lock()
	if inst, ok := r.instances[id]; ok && (inst.status == StatusInitializing || inst.status == StatusActive) {
		r.mu.Unlock()
		return &LoadError{ID: id, Err: ErrDuplicatePlugin}
	}
	scoped := newScopedEvents(r.bus)
	inst := &instance{desc: factory.Descriptor, status: StatusInitializing, events: scoped}
	r.instances[id] = inst
	r.mu.Unlock()

	log := r.log.With(zap.String("plugin", id))
	log.Info("initializing plugin",
		zap.String("name", factory.Descriptor.Name),
		zap.String("version", factory.Descriptor.Version),
		zap.String("author", factory.Descriptor.Author))

	api := &API{
		ID:     id,
		Config: newScopedConfig(r.configDir, id, log),
		Events: scoped,
		State:  r.state,
		Log:    log,
	}

	p, err := construct(factory, api)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
		_ = p.Destroy(context.WithoutCancel(ctx))
	}
	if err != nil {
		scoped.revoke()
		r.mu.Lock()
		delete(r.instances, id)
		r.mu.Unlock()
		return &LoadError{ID: id, Err: err}
	}

	r.mu.Lock()
	inst.plugin = p
	inst.status = StatusActive
	if d, ok := p.(describer); ok {
		inst.desc = d.Descriptor()
	}
	r.mu.Unlock()

	log.Info("loaded plugin")
	return nil
}

// construct calls the factory, turning a panic into an error.
func construct(f Factory, api *API) (p Plugin, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			api.Log.Debug("plugin constructor panic", zap.ByteString("stack", debug.Stack()))
		}
	}()
	p, err = f.New(api)
	if err == nil && p == nil {
		err = errors.New("factory returned no plugin")
	}
	return p, err
}

// LoadEnabled loads every id that is not already active, concurrently.
// A failing plugin never stops the others; all failures are logged and
// returned joined.
func (r *Runtime) LoadEnabled(ctx context.Context, ids []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, id := range dedupe(ids) {
		if r.Status(id) == StatusActive {
			continue
		}
		wg.Go(func() {
			err := r.Load(ctx, id)
			if errors.Is(err, ErrDuplicatePlugin) {
				return
			}
			if err != nil {
				r.log.Error("plugin failed to load", zap.String("plugin", id), zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Unload runs the plugin's teardown hook, then revokes any subscription the
// plugin did not release itself.
func (r *Runtime) Unload(ctx context.Context, id string) error {
	r.mu.Lock()
	inst, ok := r.instances[id]
	if !ok || inst.status != StatusActive {
		r.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrNotLoaded)
	}
	inst.status = StatusDestroyed
	r.mu.Unlock()

	log := r.log.With(zap.String("plugin", id))
	err := destroy(ctx, inst.plugin)
	if err != nil {
		log.Warn("plugin teardown failed", zap.Error(err))
	}
	if leaked := inst.events.revoke(); leaked > 0 {
		log.Warn("revoked subscriptions left by plugin", zap.Int("count", leaked))
	}

	r.mu.Lock()
	if r.instances[id] == inst {
		delete(r.instances, id)
	}
	r.mu.Unlock()

	log.Info("unloaded plugin")
	return err
}

func destroy(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in teardown: %v", rec)
		}
	}()
	return p.Destroy(ctx)
}

// UnloadAll unloads every active plugin concurrently.
func (r *Runtime) UnloadAll(ctx context.Context) error {
	r.mu.Lock()
	var ids []string
	for id, inst := range r.instances {
		if inst.status == StatusActive {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, id := range ids {
		wg.Go(func() {
			if err := r.Unload(ctx, id); err != nil && !errors.Is(err, ErrNotLoaded) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Status returns where id is in its lifecycle.
func (r *Runtime) Status(id string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[id]; ok {
		return inst.status
	}
	return StatusUnloaded
}

// Plugin returns the running instance for id.
func (r *Runtime) Plugin(id string) (Plugin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok || inst.status != StatusActive {
		return nil, false
	}
	return inst.plugin, true
}

// List returns every known plugin, built-in, external or loaded, sorted by id.
func (r *Runtime) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := make(map[string]Info)
	for id, f := range r.builtins {
		byID[id] = Info{Descriptor: f.Descriptor, Builtin: true}
	}
	for id, path := range r.external {
		if _, ok := byID[id]; !ok {
			byID[id] = Info{Descriptor: Descriptor{ID: id}, Path: path}
		}
	}
	for id, inst := range r.instances {
		info := byID[id]
		info.Descriptor = inst.desc
		info.Status = inst.status
		byID[id] = info
	}

	out := make([]Info, 0, len(byID))
	for _, info := range byID {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Descriptor.ID < out[j].Descriptor.ID })
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
