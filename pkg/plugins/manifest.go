package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/platinummonkey/hangar/pkg/semver"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the file name looked up in each plugin directory
const ManifestFile = "plugin.yaml"

// CurrentAPIVersion is the plugin API version this host implements
const CurrentAPIVersion = "1.0.0"

// Manifest is the on-disk declaration of a plugin (plugin.yaml)
type Manifest struct {
	Name         string                         `yaml:"name"`
	Version      string                         `yaml:"version"`
	APIVersion   string                         `yaml:"api_version"`
	Description  string                         `yaml:"description"`
	Author       string                         `yaml:"author"`
	Homepage     string                         `yaml:"homepage"`
	Keywords     []string                       `yaml:"keywords"`
	Dependencies ManifestDependencies           `yaml:"dependencies"`
	Routes       []ManifestRoute                `yaml:"routes"`
	Components   []ManifestComponent            `yaml:"components"`
	Translations map[string]map[string]any      `yaml:"translations"`
	Stores       map[string]sdk.StoreDefinition `yaml:"stores"`
	ConfigSchema map[string]any                 `yaml:"config_schema"`
}

// ManifestRoute declares a page. Module names the bundle the host renderer loads;
// Component may reference a declared component instead.
type ManifestRoute struct {
	Path      string        `yaml:"path"`
	Name      string        `yaml:"name"`
	Module    string        `yaml:"module"`
	Component string        `yaml:"component"`
	Meta      sdk.RouteMeta `yaml:"meta"`
}

// ManifestComponent declares a named UI component
type ManifestComponent struct {
	Name   string `yaml:"name"`
	Module string `yaml:"module"`
}

// ManifestDependencies accepts either a YAML sequence of names or a mapping of name to range
type ManifestDependencies struct {
	Dependencies
}

// UnmarshalYAML decodes the list or mapping form
func (d *ManifestDependencies) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return fmt.Errorf("dependencies: %w", err)
		}
		d.Dependencies = DependencyList(names)
	case yaml.MappingNode:
		var ranges map[string]string
		if err := value.Decode(&ranges); err != nil {
			return fmt.Errorf("dependencies: %w", err)
		}
		d.Dependencies = DependencyRanges(ranges)
	case yaml.ScalarNode:
		if value.Tag != "!!null" {
			return fmt.Errorf("dependencies: expected a list or a mapping at line %d", value.Line)
		}
		d.Dependencies = nil
	default:
		return fmt.Errorf("dependencies: expected a list or a mapping at line %d", value.Line)
	}
	return nil
}

// MarshalYAML writes the list or mapping form back out
func (d ManifestDependencies) MarshalYAML() (interface{}, error) {
	switch deps := d.Dependencies.(type) {
	case DependencyList:
		return []string(deps), nil
	case DependencyRanges:
		return map[string]string(deps), nil
	default:
		return nil, nil
	}
}

// LoadManifest loads and parses a plugin manifest from a file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	return &manifest, nil
}

// LoadManifestFromDir loads a plugin manifest from a directory (looks for plugin.yaml)
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFile))
}

// SaveManifest saves a plugin manifest to a file
func SaveManifest(manifest *Manifest, path string) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// ValidateManifest performs basic validation on a plugin manifest
func ValidateManifest(manifest *Manifest) []*ValidationError {
	var errs []*ValidationError

	if manifest.Name == "" {
		errs = append(errs, &ValidationError{Field: "name", Message: "Plugin name is required", Err: ErrMissingName})
	}

	if manifest.Version == "" {
		errs = append(errs, &ValidationError{Field: "version", Message: "Version is required", Err: ErrInvalidVersion})
	} else if !semver.IsValid(manifest.Version) {
		errs = append(errs, &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("Invalid semantic version: %s", manifest.Version),
			Err:     ErrInvalidVersion,
		})
	}

	if manifest.APIVersion != "" && !IsCompatibleAPIVersion(manifest.APIVersion, CurrentAPIVersion) {
		errs = append(errs, &ValidationError{
			Field:   "api_version",
			Message: fmt.Sprintf("Plugin requires API %s, host implements %s", manifest.APIVersion, CurrentAPIVersion),
		})
	}

	components := make(map[string]bool, len(manifest.Components))
	for i, c := range manifest.Components {
		if c.Name == "" || c.Module == "" {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("components[%d]", i),
				Message: "Component name and module are required",
			})
		}
		components[c.Name] = true
	}

	for i, route := range manifest.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if route.Path == "" {
			errs = append(errs, &ValidationError{Field: field, Message: "Route path is required"})
		}
		if route.Module == "" && route.Component == "" {
			errs = append(errs, &ValidationError{Field: field, Message: "Route needs a module or a component"})
		}
		if route.Component != "" && !components[route.Component] {
			errs = append(errs, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("Unknown component: %s", route.Component),
			})
		}
	}

	return errs
}

// IsCompatibleAPIVersion reports whether a plugin built against pluginAPIVersion runs on hostAPIVersion.
// Versions are compatible within the same major version.
func IsCompatibleAPIVersion(pluginAPIVersion, hostAPIVersion string) bool {
	plugin, err := semver.Parse(pluginAPIVersion)
	if err != nil {
		return false
	}
	host, err := semver.Parse(hostAPIVersion)
	if err != nil {
		return false
	}
	return plugin.Major == host.Major && plugin.Compare(host) <= 0
}

// joinValidationErrors combines manifest validation failures into one error
func joinValidationErrors(errs []*ValidationError) error {
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

// sortedLocales returns the translation locales in a stable order
func sortedLocales(translations map[string]map[string]any) []string {
	locales := make([]string, 0, len(translations))
	for locale := range translations {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}
