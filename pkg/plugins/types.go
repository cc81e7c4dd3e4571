package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/platinummonkey/hangar/pkg/dependencies"
	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/sirupsen/logrus"
)

// Status is a plugin's position in the lifecycle state machine
type Status int

const (
	StatusRegistered Status = iota
	StatusInstalled
	StatusActive
	StatusInactive
	StatusUninstalled
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{StatusRegistered, StatusInstalled, StatusActive, StatusInactive, StatusUninstalled}

func (s Status) String() string {
	switch s {
	case StatusRegistered:
		return "REGISTERED"
	case StatusInstalled:
		return "INSTALLED"
	case StatusActive:
		return "ACTIVE"
	case StatusInactive:
		return "INACTIVE"
	case StatusUninstalled:
		return "UNINSTALLED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsInstalled reports whether the plugin's install hook has completed and it has not been uninstalled
func (s Status) IsInstalled() bool {
	return s == StatusInstalled || s == StatusActive || s == StatusInactive
}

// MarshalText encodes the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name, case-insensitively
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a status name such as "ACTIVE"
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, s := range Statuses {
		if s.String() == upper {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown plugin status %q", name)
}

// Dependencies is either a DependencyList or a DependencyRanges
type Dependencies interface {
	// Edges normalizes the declaration into dependency edges originating at from
	Edges(from string) []dependencies.Edge
	isDependencies()
}

// DependencyList declares dependencies by name with no version constraint
type DependencyList []string

// DependencyRanges maps dependency names to semver range expressions
type DependencyRanges map[string]string

func (DependencyList) isDependencies()   {}
func (DependencyRanges) isDependencies() {}

// Edges keeps declaration order
func (d DependencyList) Edges(from string) []dependencies.Edge {
	edges := make([]dependencies.Edge, 0, len(d))
	for _, name := range d {
		edges = append(edges, dependencies.Edge{From: from, To: name})
	}
	return edges
}

// Edges are sorted by dependency name so resolution is deterministic
func (d DependencyRanges) Edges(from string) []dependencies.Edge {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)

	edges := make([]dependencies.Edge, 0, len(names))
	for _, name := range names {
		edges = append(edges, dependencies.Edge{From: from, To: name, Range: d[name]})
	}
	return edges
}

// InstallHook runs when a plugin is installed and receives the plugin-scoped SDK
type InstallHook func(ctx context.Context, pc *Context, s *sdk.PluginSDK) error

// Hook runs on activate, deactivate and uninstall
type Hook func(ctx context.Context, pc *Context) error

// Descriptor declares a plugin. It is immutable once registered.
type Descriptor struct {
	Name         string
	Version      string
	Dependencies Dependencies

	Description string
	Author      string
	Homepage    string
	Keywords    []string

	// ConfigSchema describes the configuration the plugin accepts
	ConfigSchema map[string]any

	Install    InstallHook
	Activate   Hook
	Deactivate Hook
	Uninstall  Hook
}

// Edges returns the normalized dependency edges of the descriptor
func (d Descriptor) Edges() []dependencies.Edge {
	if d.Dependencies == nil {
		return nil
	}
	return d.Dependencies.Edges(d.Name)
}

// MarshalJSON renders the descriptor's data fields; hooks are omitted
func (d Descriptor) MarshalJSON() ([]byte, error) {
	deps := make(map[string]string)
	for _, e := range d.Edges() {
		r := e.Range
		if r == "" {
			r = "*"
		}
		deps[e.To] = r
	}
	return json.Marshal(struct {
		Name         string            `json:"name"`
		Version      string            `json:"version"`
		Description  string            `json:"description,omitempty"`
		Author       string            `json:"author,omitempty"`
		Homepage     string            `json:"homepage,omitempty"`
		Keywords     []string          `json:"keywords,omitempty"`
		Dependencies map[string]string `json:"dependencies,omitempty"`
		ConfigSchema map[string]any    `json:"config_schema,omitempty"`
	}{d.Name, d.Version, d.Description, d.Author, d.Homepage, d.Keywords, deps, d.ConfigSchema})
}

// Context is the per-plugin state handed to every hook.
// State persists across the plugin's hook calls.
type Context struct {
	Name    string
	Version string
	State   map[string]any
	Logger  *logrus.Entry
}

// Record is a snapshot of a registered plugin
type Record struct {
	Descriptor Descriptor `json:"descriptor"`
	Status     Status     `json:"status"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Name is shorthand for r.Descriptor.Name
func (r Record) Name() string {
	return r.Descriptor.Name
}
