// Package semver parses semantic versions and checks them against range expressions.
//
// # Overview
//
// Plugin descriptors declare a version and, optionally, the range of versions they
// accept for each dependency. This package answers "does version X satisfy range R"
// for the range forms plugin authors use.
//
// # Usage Example
//
//	semver.Satisfies("2.5.0", "^2.0.0") // true
//	semver.Satisfies("1.5.0", "^2.0.0") // false
//	semver.Satisfies("0.3.4", "~0.3.1") // true
//
// Pre-release and build suffixes are accepted by Parse but ignored by range checks.
//
// # Related Packages
//
//   - pkg/dependencies: Uses ranges while resolving install order
//   - pkg/plugins: Validates descriptor versions at registration
package semver
