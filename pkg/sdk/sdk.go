package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

var (
	// ErrSealed is returned by mutations after the host has sealed the SDK
	ErrSealed = errors.New("platform sdk is sealed")
	// ErrStoreExists is returned when a store name is already taken
	ErrStoreExists = errors.New("store already exists")
	// ErrInvalidRoute is returned when a route has no path
	ErrInvalidRoute = errors.New("route path is required")
)

// Module is whatever a Loader resolves to. The kernel never inspects it.
type Module any

// Loader lazily produces a UI module. It is stored and handed back to the
// host renderer, never invoked by the kernel.
type Loader func(ctx context.Context) (Module, error)

// RouteMeta is route metadata consumed by the host router
type RouteMeta struct {
	RequiresAuth bool           `json:"requires_auth" yaml:"requires_auth"`
	Title        string         `json:"title,omitempty" yaml:"title"`
	Extra        map[string]any `json:"extra,omitempty" yaml:"extra"`
}

// Route is a page contributed by a plugin
type Route struct {
	Path   string    `json:"path"`
	Name   string    `json:"name"`
	Load   Loader    `json:"-"`
	Meta   RouteMeta `json:"meta"`
	Plugin string    `json:"plugin"`
}

// Component is a named lazy component factory
type Component struct {
	Name   string `json:"name"`
	Load   Loader `json:"-"`
	Plugin string `json:"plugin"`
}

// APIClient is the host's general-purpose HTTP client; *http.Client satisfies it
type APIClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SDK holds everything plugins contribute during installation.
// One SDK exists per host process; plugins reach it through ForPlugin.
type SDK struct {
	mu           sync.RWMutex
	routes       []Route
	components   map[string]Component
	translations map[string]map[string]map[string]any // locale -> plugin -> fragment
	stores       map[string]*Store
	sealed       bool

	api    APIClient
	events EventBus
}

// New creates an SDK handing api and events to every plugin unmodified
func New(api APIClient, events EventBus) *SDK {
	return &SDK{
		components:   make(map[string]Component),
		translations: make(map[string]map[string]map[string]any),
		stores:       make(map[string]*Store),
		api:          api,
		events:       events,
	}
}

// ForPlugin returns the facade passed to the named plugin's install hook
func (s *SDK) ForPlugin(name string) *PluginSDK {
	return &PluginSDK{sdk: s, plugin: name}
}

// Seal makes the SDK read-only
func (s *SDK) Seal() {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()
}

// Sealed reports whether Seal has been called
func (s *SDK) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// API returns the host-owned API client
func (s *SDK) API() APIClient {
	return s.api
}

// Events returns the host-owned event bus
func (s *SDK) Events() EventBus {
	return s.events
}

// Routes returns a copy of the routes in registration order
func (s *SDK) Routes() []Route {
	s.mu.RLock()
	defer s.mu.RUnlock()

	routes := make([]Route, len(s.routes))
	copy(routes, s.routes)
	return routes
}

// Route returns the first route registered for path
func (s *SDK) Route(path string) (Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Components returns a copy of the component map
func (s *SDK) Components() map[string]Component {
	s.mu.RLock()
	defer s.mu.RUnlock()

	components := make(map[string]Component, len(s.components))
	for name, c := range s.components {
		components[name] = c
	}
	return components
}

// Stores returns the registered stores keyed by name
func (s *SDK) Stores() map[string]*Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stores := make(map[string]*Store, len(s.stores))
	for name, st := range s.stores {
		stores[name] = st
	}
	return stores
}

// Store returns a single store by name
func (s *SDK) Store(name string) (*Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stores[name]
	return st, ok
}

// Translations returns a deep copy of locale -> plugin -> fragment
func (s *SDK) Translations() map[string]map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]map[string]any, len(s.translations))
	for locale, byPlugin := range s.translations {
		out[locale] = make(map[string]map[string]any, len(byPlugin))
		for plugin, fragment := range byPlugin {
			out[locale][plugin] = deepCopyMap(fragment)
		}
	}
	return out
}

// PluginSDK is the capability object one plugin receives during install.
// Everything it registers is attributed to that plugin.
type PluginSDK struct {
	sdk    *SDK
	plugin string
}

// Plugin returns the name contributions are attributed to
func (p *PluginSDK) Plugin() string {
	return p.plugin
}

// API returns the host-owned API client
func (p *PluginSDK) API() APIClient {
	return p.sdk.api
}

// Events returns the host-owned event bus
func (p *PluginSDK) Events() EventBus {
	return p.sdk.events
}

// AddRoute appends a route. On path collision the earliest route wins at lookup time.
func (p *PluginSDK) AddRoute(route Route) error {
	if route.Path == "" {
		return ErrInvalidRoute
	}

	s := p.sdk
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}
	route.Plugin = p.plugin
	s.routes = append(s.routes, route)
	return nil
}

// AddComponent registers a named component loader, replacing any earlier one
func (p *PluginSDK) AddComponent(name string, load Loader) error {
	s := p.sdk
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}
	s.components[name] = Component{Name: name, Load: load, Plugin: p.plugin}
	return nil
}

// AddTranslations merges fragment into the locale catalog under this plugin's namespace
func (p *PluginSDK) AddTranslations(locale string, fragment map[string]any) error {
	s := p.sdk
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}

	byPlugin, ok := s.translations[locale]
	if !ok {
		byPlugin = make(map[string]map[string]any)
		s.translations[locale] = byPlugin
	}
	existing, ok := byPlugin[p.plugin]
	if !ok {
		existing = make(map[string]any)
		byPlugin[p.plugin] = existing
	}
	mergeInto(existing, fragment)
	return nil
}

// CreateStore registers an isolated store. Names are global across plugins.
func (p *PluginSDK) CreateStore(name string, def StoreDefinition) (*Store, error) {
	s := p.sdk
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return nil, ErrSealed
	}
	if existing, ok := s.stores[name]; ok {
		return nil, fmt.Errorf("%w: %q (owned by %q)", ErrStoreExists, name, existing.Plugin())
	}

	store := newStore(name, p.plugin, def)
	s.stores[name] = store
	return store, nil
}

// mergeInto deep-merges src into dst; nested maps merge, other values replace
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				mergeInto(dstMap, srcMap)
				continue
			}
			dst[k] = deepCopyMap(srcMap)
			continue
		}
		dst[k] = deepCopyValue(v)
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}
