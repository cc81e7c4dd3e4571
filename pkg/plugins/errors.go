package plugins

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingName is wrapped by ValidationError when a descriptor has no name
	ErrMissingName = errors.New("plugin name is required")
	// ErrInvalidVersion is wrapped by ValidationError when a version is not valid semver
	ErrInvalidVersion = errors.New("invalid plugin version")
	// ErrInvalidDependency is wrapped by ValidationError when a dependency declaration is malformed
	ErrInvalidDependency = errors.New("invalid dependency declaration")
	// ErrDuplicateName is returned when a plugin name is already registered
	ErrDuplicateName = errors.New("plugin already registered")
	// ErrNotFound is returned for operations on an unknown plugin
	ErrNotFound = errors.New("plugin not found")
	// ErrNotInstalled is returned when activating a plugin that is not installed
	ErrNotInstalled = errors.New("Plugin must be installed before activation")
	// ErrDependencyNotInstalled is returned when installing a plugin whose dependency is not installed
	ErrDependencyNotInstalled = errors.New("dependency is not installed")
)

// ValidationError reports a malformed descriptor or manifest field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StateError reports a lifecycle operation attempted from a state that does not allow it
type StateError struct {
	Name string
	From Status
	Op   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s plugin %q in state %s", e.Op, e.Name, e.From)
}

// HookError wraps an error returned by a plugin hook
type HookError struct {
	Plugin string
	Hook   string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %q %s hook failed: %v", e.Plugin, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
