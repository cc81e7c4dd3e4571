package control

import (
	"time"

	"github.com/platinummonkey/hangar/pkg/plugins"
)

// ManifestEntry is the persisted management state of one plugin
type ManifestEntry struct {
	Name        string         `json:"name"`
	Enabled     bool           `json:"enabled"`
	Version     string         `json:"version"`
	InstalledAt *time.Time     `json:"installedAt"`
	Source      string         `json:"source,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Installed reports whether the entry records an installation
func (e *ManifestEntry) Installed() bool {
	return e.InstalledAt != nil
}

func (e *ManifestEntry) clone() *ManifestEntry {
	c := *e
	if e.InstalledAt != nil {
		t := *e.InstalledAt
		c.InstalledAt = &t
	}
	if e.Config != nil {
		c.Config = make(map[string]any, len(e.Config))
		for k, v := range e.Config {
			c.Config[k] = v
		}
	}
	return &c
}

// PluginSummary is one row of the plugin list
type PluginSummary struct {
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Enabled     bool       `json:"enabled"`
	Installed   bool       `json:"installed"`
	InstalledAt *time.Time `json:"installedAt,omitempty"`
	Source      string     `json:"source,omitempty"`
}

// PluginDetail is the full view of one plugin
type PluginDetail struct {
	PluginSummary
	Author       string            `json:"author,omitempty"`
	Homepage     string            `json:"homepage,omitempty"`
	Keywords     []string          `json:"keywords,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	ConfigSchema map[string]any    `json:"configSchema,omitempty"`
	Config       map[string]any    `json:"config"`
}

// PluginList is the body of GET /_plugins
type PluginList struct {
	Plugins []PluginSummary `json:"plugins"`
	Total   int             `json:"total"`
}

// InstallRequest is the optional body of POST /_plugins/{name}/install
type InstallRequest struct {
	Source string `json:"source,omitempty"`
}

func summarize(name string, rec *plugins.Record, entry *ManifestEntry) PluginSummary {
	s := PluginSummary{Name: name}
	if rec != nil {
		s.Version = rec.Descriptor.Version
		s.Description = rec.Descriptor.Description
		s.Status = rec.Status.String()
	}
	if entry != nil {
		if s.Version == "" {
			s.Version = entry.Version
		}
		s.Enabled = entry.Enabled
		s.Installed = entry.Installed()
		s.InstalledAt = entry.InstalledAt
		s.Source = entry.Source
	}
	return s
}
