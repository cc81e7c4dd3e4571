package dependencies

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDependency is matched by every resolution failure
	ErrDependency = errors.New("dependency resolution failed")
	// ErrCircularDependency is returned when the graph contains a cycle
	ErrCircularDependency = errors.New("circular dependency detected")
	// ErrMissingDependency is returned when a dependency is not registered
	ErrMissingDependency = errors.New("missing dependency")
	// ErrVersionMismatch is returned when a dependency's version is outside the required range
	ErrVersionMismatch = errors.New("dependency version mismatch")
)

// CircularDependencyError reports a dependency cycle.
// Path starts and ends with the same plugin.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return ErrCircularDependency.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(e.Path, " -> "))
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrDependency || target == ErrCircularDependency
}

// MissingDependencyError reports a dependency that is not registered
type MissingDependencyError struct {
	Name       string
	RequiredBy string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s: %q (required by %q)", ErrMissingDependency, e.Name, e.RequiredBy)
}

func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrDependency || target == ErrMissingDependency
}

// VersionMismatchError reports a registered dependency whose version does not satisfy the declared range
type VersionMismatchError struct {
	Plugin     string
	Dependency string
	Actual     string
	Required   string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("%s: %q requires %q %s, found %s",
		ErrVersionMismatch, e.Plugin, e.Dependency, e.Required, e.Actual)
}

func (e *VersionMismatchError) Is(target error) bool {
	return target == ErrDependency || target == ErrVersionMismatch
}
