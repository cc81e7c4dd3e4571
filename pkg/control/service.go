package control

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/platinummonkey/hangar/pkg/plugins"
	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/sirupsen/logrus"
)

// ErrNotLoaded is returned when the service is used before Load
var ErrNotLoaded = errors.New("plugin manifest not loaded")

// DefaultSource is recorded for plugins installed without an explicit source
const DefaultSource = "local"

// Kernel is the part of the plugin registry the control service drives
type Kernel interface {
	Get(name string) (*plugins.Record, bool)
	GetAll() []plugins.Record
	Install(ctx context.Context, name string, s *sdk.SDK) error
	Activate(ctx context.Context, name string) error
	Deactivate(ctx context.Context, name string) error
	Uninstall(ctx context.Context, name string) error
}

// Option configures a Service
type Option func(*Service)

// WithKernel binds the service to a registry and the SDK its install hooks receive
func WithKernel(kernel Kernel, s *sdk.SDK) Option {
	return func(svc *Service) {
		svc.kernel = kernel
		svc.sdk = s
	}
}

// WithLogger sets the service logger
func WithLogger(log *logrus.Entry) Option {
	return func(svc *Service) {
		svc.log = log
	}
}

// Service manages plugin configuration and lifecycle over the persisted manifest.
// Mutations validate the current state first and report false when it does not allow them.
// A non-nil error is an infrastructure or hook failure.
type Service struct {
	store   ManifestStore
	kernel  Kernel
	sdk     *sdk.SDK
	log     *logrus.Entry
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]*ManifestEntry
}

// NewService creates a new control service
func NewService(store ManifestStore, opts ...Option) *Service {
	svc := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.log == nil {
		svc.log = logrus.NewEntry(logrus.StandardLogger())
	}
	svc.log = svc.log.WithField("component", "control")
	return svc
}

// Load reads the manifest from the store
func (s *Service) Load(ctx context.Context) error {
	entries, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load plugin manifest: %w", err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.log.WithField("plugins", len(entries)).Info("Loaded plugin manifest")
	return nil
}

// Enabled reports whether name should be activated at startup.
// Plugins the manifest has never seen are enabled.
func (s *Service) Enabled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return true
	}
	return e.Enabled && e.Installed()
}

// Reconcile records every installed kernel plugin the manifest has no entry for,
// and refreshes the version of installed entries
func (s *Service) Reconcile(ctx context.Context) error {
	if s.kernel == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return ErrNotLoaded
	}

	for _, rec := range s.kernel.GetAll() {
		if !rec.Status.IsInstalled() {
			continue
		}
		name := rec.Name()

		existing, ok := s.entries[name]
		var entry *ManifestEntry
		switch {
		case !ok:
			now := s.now().UTC()
			entry = &ManifestEntry{
				Name:        name,
				Enabled:     rec.Status == plugins.StatusActive,
				Version:     rec.Descriptor.Version,
				InstalledAt: &now,
				Source:      DefaultSource,
			}
		case existing.Installed() && existing.Version != rec.Descriptor.Version:
			entry = existing.clone()
			entry.Version = rec.Descriptor.Version
		default:
			continue
		}

		if err := s.persist(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// List returns every known plugin sorted by name
func (s *Service) List(ctx context.Context) []PluginSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.names()
	list := make([]PluginSummary, 0, len(names))
	for _, name := range names {
		rec, entry := s.lookup(name)
		list = append(list, summarize(name, rec, entry))
	}
	return list
}

// Get returns the detail of a plugin, including its config schema and saved config
func (s *Service) Get(ctx context.Context, name string) (*PluginDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known(name) {
		return nil, false
	}

	rec, entry := s.lookup(name)
	detail := &PluginDetail{
		PluginSummary: summarize(name, rec, entry),
		Config:        map[string]any{},
	}
	if rec != nil {
		d := rec.Descriptor
		detail.Author = d.Author
		detail.Homepage = d.Homepage
		detail.Keywords = d.Keywords
		detail.ConfigSchema = d.ConfigSchema
		if edges := d.Edges(); len(edges) > 0 {
			detail.Dependencies = make(map[string]string, len(edges))
			for _, e := range edges {
				r := e.Range
				if r == "" {
					r = "*"
				}
				detail.Dependencies[e.To] = r
			}
		}
	}
	if entry != nil && entry.Config != nil {
		detail.Config = entry.clone().Config
	}
	return detail, true
}

// Exists reports whether name is a known plugin
func (s *Service) Exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known(name)
}

// SaveConfig replaces the saved config of a plugin. False if the plugin is unknown.
func (s *Service) SaveConfig(ctx context.Context, name string, config map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known(name) {
		return false, nil
	}

	entry := s.entryFor(name)
	entry.Config = config
	if err := s.persist(ctx, entry); err != nil {
		return false, err
	}

	s.log.WithField("plugin", name).Info("Plugin configuration saved")
	return true, nil
}

// Enable marks an installed plugin enabled and activates it.
// False if the plugin is unknown or not installed.
func (s *Service) Enable(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.installedEntry(name)
	if !ok {
		return false, nil
	}

	if rec, ok := s.record(name); ok {
		switch rec.Status {
		case plugins.StatusInstalled, plugins.StatusInactive:
			if err := s.kernel.Activate(ctx, name); err != nil {
				return false, fmt.Errorf("failed to activate plugin %q: %w", name, err)
			}
		}
	}

	entry.Enabled = true
	if err := s.persist(ctx, entry); err != nil {
		return false, err
	}

	s.log.WithField("plugin", name).Info("Plugin enabled")
	return true, nil
}

// Disable marks an installed plugin disabled and deactivates it.
// False if the plugin is unknown or not installed.
func (s *Service) Disable(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.installedEntry(name)
	if !ok {
		return false, nil
	}

	if rec, ok := s.record(name); ok && rec.Status == plugins.StatusActive {
		if err := s.kernel.Deactivate(ctx, name); err != nil {
			return false, fmt.Errorf("failed to deactivate plugin %q: %w", name, err)
		}
	}

	entry.Enabled = false
	if err := s.persist(ctx, entry); err != nil {
		return false, err
	}

	s.log.WithField("plugin", name).Info("Plugin disabled")
	return true, nil
}

// Install records a plugin as installed from source.
// False if the plugin is unknown or already installed; use Exists to tell them apart.
// A plugin the kernel has only registered is installed through the kernel. A plugin
// the kernel uninstalled in this process is recorded and installed on the next start.
func (s *Service) Install(ctx context.Context, name, source string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known(name) {
		return false, nil
	}
	entry := s.entryFor(name)
	if entry.Installed() {
		return false, nil
	}

	if rec, ok := s.record(name); ok {
		switch rec.Status {
		case plugins.StatusRegistered:
			if err := s.kernel.Install(ctx, name, s.sdk); err != nil {
				return false, fmt.Errorf("failed to install plugin %q: %w", name, err)
			}
		case plugins.StatusUninstalled:
			s.log.WithField("plugin", name).Warn("Plugin was uninstalled in this process, install takes effect after restart")
		}
		entry.Version = rec.Descriptor.Version
	}

	if source == "" {
		source = DefaultSource
	}
	now := s.now().UTC()
	entry.InstalledAt = &now
	entry.Source = source
	entry.Enabled = false
	if err := s.persist(ctx, entry); err != nil {
		return false, err
	}

	s.log.WithFields(logrus.Fields{
		"plugin": name,
		"source": source,
	}).Info("Plugin installed")
	return true, nil
}

// Uninstall runs the plugin's uninstall hook and clears its installation.
// The manifest entry and its config are kept. False if unknown or not installed.
func (s *Service) Uninstall(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.installedEntry(name)
	if !ok {
		return false, nil
	}

	if rec, ok := s.record(name); ok && rec.Status.IsInstalled() {
		if err := s.kernel.Uninstall(ctx, name); err != nil {
			return false, fmt.Errorf("failed to uninstall plugin %q: %w", name, err)
		}
	}

	entry.InstalledAt = nil
	entry.Enabled = false
	if err := s.persist(ctx, entry); err != nil {
		return false, err
	}

	s.log.WithField("plugin", name).Info("Plugin uninstalled")
	return true, nil
}

// names returns the union of registry and manifest names, sorted. Caller holds mu.
func (s *Service) names() []string {
	seen := make(map[string]bool)
	if s.kernel != nil {
		for _, rec := range s.kernel.GetAll() {
			seen[rec.Name()] = true
		}
	}
	for name := range s.entries {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Service) known(name string) bool {
	if _, ok := s.entries[name]; ok {
		return true
	}
	_, ok := s.record(name)
	return ok
}

func (s *Service) record(name string) (*plugins.Record, bool) {
	if s.kernel == nil {
		return nil, false
	}
	return s.kernel.Get(name)
}

func (s *Service) lookup(name string) (*plugins.Record, *ManifestEntry) {
	rec, _ := s.record(name)
	return rec, s.entries[name]
}

// entryFor returns a copy of the entry for name, or a fresh one
func (s *Service) entryFor(name string) *ManifestEntry {
	if e, ok := s.entries[name]; ok {
		return e.clone()
	}
	e := &ManifestEntry{Name: name}
	if rec, ok := s.record(name); ok {
		e.Version = rec.Descriptor.Version
	}
	return e
}

func (s *Service) installedEntry(name string) (*ManifestEntry, bool) {
	e, ok := s.entries[name]
	if !ok || !e.Installed() {
		return nil, false
	}
	return e.clone(), true
}

// persist saves entry and, on success, makes it the in-memory entry
func (s *Service) persist(ctx context.Context, entry *ManifestEntry) error {
	if s.entries == nil {
		return ErrNotLoaded
	}
	entry.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, entry); err != nil {
		s.log.WithError(err).WithField("plugin", entry.Name).Error("Failed to persist plugin manifest")
		return fmt.Errorf("failed to persist plugin manifest: %w", err)
	}
	s.entries[entry.Name] = entry
	return nil
}
