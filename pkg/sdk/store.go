package sdk

import "sync"

// StoreDefinition describes an isolated store's initial state
type StoreDefinition struct {
	Initial map[string]any `json:"initial,omitempty" yaml:"initial"`
}

// Store is an isolated key/value container owned by one plugin
type Store struct {
	name   string
	plugin string

	mu    sync.RWMutex
	state map[string]any
}

func newStore(name, plugin string, def StoreDefinition) *Store {
	state := deepCopyMap(def.Initial)
	if state == nil {
		state = make(map[string]any)
	}
	return &Store{name: name, plugin: plugin, state: state}
}

// Name returns the store name
func (s *Store) Name() string { return s.name }

// Plugin returns the plugin that created the store
func (s *Store) Plugin() string { return s.plugin }

// Get returns the value for key
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	return v, ok
}

// Set stores value under key
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.state[key] = value
	s.mu.Unlock()
}

// Delete removes key
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.state, key)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.state)
}
