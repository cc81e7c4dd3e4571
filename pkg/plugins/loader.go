package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/sirupsen/logrus"
)

// ModuleRef is what declarative loaders resolve to: the bundle a host renderer should load
type ModuleRef struct {
	Plugin string `json:"plugin"`
	Module string `json:"module"`
}

// Loader discovers declarative plugins from plugin.yaml manifests
type Loader struct {
	log *logrus.Entry
}

// NewLoader creates a new plugin loader
func NewLoader(log *logrus.Entry) *Loader {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loader{log: log.WithField("component", "loader")}
}

// Discover scans each directory for plugin subdirectories containing a manifest.
// Invalid plugins are logged and skipped; results follow directory order.
func (l *Loader) Discover(ctx context.Context, dirs ...string) ([]Descriptor, error) {
	var descriptors []Descriptor

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			l.log.Debugf("Plugin directory does not exist: %s", dir)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			pluginDir := filepath.Join(dir, entry.Name())
			desc, err := l.Load(pluginDir)
			if err != nil {
				l.log.Warnf("Failed to load plugin from %s: %v", pluginDir, err)
				continue
			}
			descriptors = append(descriptors, desc)
		}
	}

	return descriptors, nil
}

// Load reads and validates the manifest in pluginDir and builds its descriptor
func (l *Loader) Load(pluginDir string) (Descriptor, error) {
	manifest, err := LoadManifestFromDir(pluginDir)
	if err != nil {
		return Descriptor{}, err
	}

	if errs := ValidateManifest(manifest); len(errs) > 0 {
		return Descriptor{}, fmt.Errorf("manifest validation failed: %w", joinValidationErrors(errs))
	}

	l.log.Infof("Discovered plugin: %s v%s", manifest.Name, manifest.Version)
	return manifest.Descriptor(), nil
}

// Descriptor builds a descriptor whose install hook registers everything the manifest declares
func (m *Manifest) Descriptor() Descriptor {
	manifest := *m

	return Descriptor{
		Name:         manifest.Name,
		Version:      manifest.Version,
		Dependencies: manifest.Dependencies.Dependencies,
		Description:  manifest.Description,
		Author:       manifest.Author,
		Homepage:     manifest.Homepage,
		Keywords:     manifest.Keywords,
		ConfigSchema: manifest.ConfigSchema,
		Install: func(ctx context.Context, pc *Context, s *sdk.PluginSDK) error {
			return manifest.install(s)
		},
		Activate: func(ctx context.Context, pc *Context) error {
			pc.State["active"] = true
			return nil
		},
		Deactivate: func(ctx context.Context, pc *Context) error {
			pc.State["active"] = false
			return nil
		},
	}
}

func (m *Manifest) install(s *sdk.PluginSDK) error {
	modules := make(map[string]string, len(m.Components))
	for _, c := range m.Components {
		modules[c.Name] = c.Module
		if err := s.AddComponent(c.Name, moduleLoader(m.Name, c.Module)); err != nil {
			return fmt.Errorf("component %s: %w", c.Name, err)
		}
	}

	for _, route := range m.Routes {
		module := route.Module
		if module == "" {
			module = modules[route.Component]
		}
		err := s.AddRoute(sdk.Route{
			Path: route.Path,
			Name: route.Name,
			Load: moduleLoader(m.Name, module),
			Meta: route.Meta,
		})
		if err != nil {
			return fmt.Errorf("route %s: %w", route.Path, err)
		}
	}

	for _, locale := range sortedLocales(m.Translations) {
		if err := s.AddTranslations(locale, m.Translations[locale]); err != nil {
			return fmt.Errorf("translations %s: %w", locale, err)
		}
	}

	names := make([]string, 0, len(m.Stores))
	for name := range m.Stores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := s.CreateStore(name, m.Stores[name]); err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
	}

	return nil
}

func moduleLoader(plugin, module string) sdk.Loader {
	ref := ModuleRef{Plugin: plugin, Module: module}
	return func(ctx context.Context) (sdk.Module, error) {
		return ref, nil
	}
}
