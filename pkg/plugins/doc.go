// Package plugins implements the plugin registry and lifecycle engine.
//
// # Overview
//
// A Descriptor declares a plugin's name, version, dependencies and optional
// lifecycle hooks. The Registry validates descriptors on Register, resolves
// install order with pkg/dependencies on InstallAll, and drives each plugin
// through its state machine:
//
//	REGISTERED -> INSTALLED -> ACTIVE <-> INACTIVE
//	INSTALLED | ACTIVE | INACTIVE -> UNINSTALLED
//
// Hooks receive an explicit *Context holding the plugin's own mutable state.
// A hook error leaves the plugin in its previous state and is returned as a
// *HookError.
//
// # Usage Example
//
//	reg := plugins.NewRegistry(plugins.WithLogger(log))
//	reg.Register(plugins.Descriptor{
//		Name:         "billing",
//		Version:      "1.2.0",
//		Dependencies: plugins.DependencyRanges{"core": "^1.0.0"},
//		Install: func(ctx context.Context, pc *plugins.Context, s *sdk.PluginSDK) error {
//			return s.AddRoute(sdk.Route{Path: "/billing", Name: "billing"})
//		},
//	})
//	if err := reg.InstallAll(ctx, platform); err != nil {
//		return err
//	}
//
// # Declarative Plugins
//
// Loader reads plugin.yaml manifests and turns them into descriptors whose
// install hook registers the declared routes, components, translations and
// stores:
//
//	name: billing
//	version: 1.2.0
//	dependencies:
//	  core: ^1.0.0
//	routes:
//	  - path: /billing
//	    name: billing
//	    module: billing/index.js
//	translations:
//	  en:
//	    title: Billing
//
// # Related Packages
//
//   - pkg/dependencies: install order resolution
//   - pkg/sdk: capability surface handed to install hooks
//   - pkg/host: bootstrap sequence driving the registry
package plugins
