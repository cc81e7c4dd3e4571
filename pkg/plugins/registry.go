package plugins

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/platinummonkey/hangar/pkg/dependencies"
	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/platinummonkey/hangar/pkg/semver"
	"github.com/sirupsen/logrus"
)

// Observer is notified after every successful lifecycle transition
type Observer func(name string, from, to Status)

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry logger
func WithLogger(log *logrus.Entry) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// WithObserver registers a transition observer
func WithObserver(obs Observer) Option {
	return func(r *Registry) {
		r.observers = append(r.observers, obs)
	}
}

// entry is the registry's mutable wrapper around a descriptor.
// opMu serialises one plugin's transitions and is held while its hooks run;
// mu guards the fields and is only held briefly, so hooks may read the registry.
type entry struct {
	opMu sync.Mutex

	mu        sync.RWMutex
	desc      Descriptor
	edges     []dependencies.Edge
	status    Status
	pc        *Context
	updatedAt time.Time
}

func (e *entry) snapshot() Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Record{Descriptor: e.desc, Status: e.status, UpdatedAt: e.updatedAt}
}

func (e *entry) currentStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Registry owns plugin records and drives them through their lifecycle
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	// installMu keeps install passes from overlapping
	installMu sync.Mutex

	log       *logrus.Entry
	observers []Observer
	now       func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logrus.NewEntry(logrus.StandardLogger())
	}
	r.log = r.log.WithField("component", "registry")
	return r
}

// Register validates and stores a descriptor. No hooks run.
func (r *Registry) Register(desc Descriptor) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}

	edges := desc.Edges()
	desc.Keywords = append([]string(nil), desc.Keywords...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, desc.Name)
	}

	r.entries[desc.Name] = &entry{
		desc:   desc,
		edges:  edges,
		status: StatusRegistered,
		pc: &Context{
			Name:    desc.Name,
			Version: desc.Version,
			State:   make(map[string]any),
			Logger:  r.log.WithField("plugin", desc.Name),
		},
		updatedAt: r.now(),
	}
	r.order = append(r.order, desc.Name)

	r.log.WithFields(logrus.Fields{
		"plugin":  desc.Name,
		"version": desc.Version,
	}).Debug("Registered plugin")
	return nil
}

func validateDescriptor(desc Descriptor) error {
	if desc.Name == "" {
		return &ValidationError{Field: "name", Message: ErrMissingName.Error(), Err: ErrMissingName}
	}
	if !semver.IsValid(desc.Version) {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("%q is not a valid semantic version", desc.Version),
			Err:     ErrInvalidVersion,
		}
	}
	for _, edge := range desc.Edges() {
		if edge.To == "" {
			return &ValidationError{Field: "dependencies", Message: "dependency name is required", Err: ErrInvalidDependency}
		}
		if _, err := semver.ParseRange(edge.Range); err != nil {
			return &ValidationError{
				Field:   "dependencies",
				Message: fmt.Sprintf("%s: %v", edge.To, err),
				Err:     ErrInvalidDependency,
			}
		}
	}
	return nil
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, nil
}

// Install runs the plugin's install hook and marks it INSTALLED.
// Every dependency must already be installed and satisfy its declared range.
func (r *Registry) Install(ctx context.Context, name string, s *sdk.SDK) error {
	r.installMu.Lock()
	defer r.installMu.Unlock()

	e, err := r.lookup(name)
	if err != nil {
		return err
	}
	return r.install(ctx, e, s)
}

// InstallAll resolves install order across every registered plugin and installs
// those still REGISTERED, sequentially. Resolution failures install nothing; the
// first install failure stops the pass.
func (r *Registry) InstallAll(ctx context.Context, s *sdk.SDK) error {
	r.installMu.Lock()
	defer r.installMu.Unlock()

	order, err := dependencies.Resolve(r.DependencyNodes())
	if err != nil {
		r.log.WithError(err).Error("Dependency resolution failed")
		return err
	}

	r.log.WithField("order", order).Debug("Resolved install order")

	for _, name := range order {
		e, err := r.lookup(name)
		if err != nil {
			return err
		}
		if e.currentStatus() != StatusRegistered {
			continue
		}
		if err := r.install(ctx, e, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) install(ctx context.Context, e *entry, s *sdk.SDK) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	rec := e.snapshot()
	if rec.Status != StatusRegistered {
		return &StateError{Name: rec.Name(), From: rec.Status, Op: "install"}
	}
	if err := r.checkDependencies(e); err != nil {
		return err
	}

	if hook := rec.Descriptor.Install; hook != nil {
		if err := hook(ctx, e.pc, s.ForPlugin(rec.Name())); err != nil {
			r.log.WithError(err).WithField("plugin", rec.Name()).Error("Install hook failed")
			return &HookError{Plugin: rec.Name(), Hook: "install", Err: err}
		}
	}

	r.transition(e, StatusInstalled)
	return nil
}

func (r *Registry) checkDependencies(e *entry) error {
	for _, edge := range e.edges {
		dep, err := r.lookup(edge.To)
		if err != nil {
			return &dependencies.MissingDependencyError{Name: edge.To, RequiredBy: edge.From}
		}
		rec := dep.snapshot()
		if edge.Range != "" && !semver.Satisfies(rec.Descriptor.Version, edge.Range) {
			return &dependencies.VersionMismatchError{
				Plugin:     edge.From,
				Dependency: edge.To,
				Actual:     rec.Descriptor.Version,
				Required:   edge.Range,
			}
		}
		if !rec.Status.IsInstalled() {
			return fmt.Errorf("%w: %q requires %q (%s)", ErrDependencyNotInstalled, edge.From, edge.To, rec.Status)
		}
	}
	return nil
}

// Activate runs the activate hook of an INSTALLED or INACTIVE plugin and marks it ACTIVE
func (r *Registry) Activate(ctx context.Context, name string) error {
	return r.run(ctx, name, "activate", StatusActive, func(from Status) error {
		switch from {
		case StatusInstalled, StatusInactive:
			return nil
		case StatusRegistered, StatusUninstalled:
			return ErrNotInstalled
		default:
			return &StateError{Name: name, From: from, Op: "activate"}
		}
	}, func(d Descriptor) Hook { return d.Activate })
}

// Deactivate runs the deactivate hook of an ACTIVE plugin and marks it INACTIVE
func (r *Registry) Deactivate(ctx context.Context, name string) error {
	return r.run(ctx, name, "deactivate", StatusInactive, func(from Status) error {
		if from != StatusActive {
			return &StateError{Name: name, From: from, Op: "deactivate"}
		}
		return nil
	}, func(d Descriptor) Hook { return d.Deactivate })
}

// Uninstall runs the uninstall hook of an installed plugin and marks it UNINSTALLED.
// The record is kept.
func (r *Registry) Uninstall(ctx context.Context, name string) error {
	return r.run(ctx, name, "uninstall", StatusUninstalled, func(from Status) error {
		if !from.IsInstalled() {
			return &StateError{Name: name, From: from, Op: "uninstall"}
		}
		return nil
	}, func(d Descriptor) Hook { return d.Uninstall })
}

func (r *Registry) run(ctx context.Context, name, op string, to Status, guard func(Status) error, hookOf func(Descriptor) Hook) error {
	e, err := r.lookup(name)
	if err != nil {
		return err
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	rec := e.snapshot()
	if err := guard(rec.Status); err != nil {
		return err
	}

	if hook := hookOf(rec.Descriptor); hook != nil {
		if err := hook(ctx, e.pc); err != nil {
			r.log.WithError(err).WithField("plugin", name).Errorf("%s hook failed", op)
			return &HookError{Plugin: name, Hook: op, Err: err}
		}
	}

	r.transition(e, to)
	return nil
}

func (r *Registry) transition(e *entry, to Status) {
	e.mu.Lock()
	from := e.status
	e.status = to
	e.updatedAt = r.now()
	name := e.desc.Name
	e.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"plugin": name,
		"from":   from.String(),
		"to":     to.String(),
	}).Info("Plugin transitioned")

	for _, obs := range r.observers {
		obs(name, from, to)
	}
}

// Get returns a snapshot of the named plugin
func (r *Registry) Get(name string) (*Record, bool) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, false
	}
	rec := e.snapshot()
	return &rec, true
}

// GetAll returns snapshots of every plugin in registration order
func (r *Registry) GetAll() []Record {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, r.entries[name])
	}
	r.mu.RUnlock()

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.snapshot())
	}
	return records
}

// Len returns the number of registered plugins
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// CountByStatus returns the number of plugins in each status
func (r *Registry) CountByStatus() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, rec := range r.GetAll() {
		counts[rec.Status]++
	}
	return counts
}

// DependencyNodes returns the dependency graph nodes in registration order
func (r *Registry) DependencyNodes() []dependencies.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]dependencies.Node, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		nodes = append(nodes, dependencies.Node{
			Name:    name,
			Version: e.desc.Version,
			Edges:   e.edges,
		})
	}
	return nodes
}
