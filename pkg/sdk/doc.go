// Package sdk is the capability surface plugins use to extend the host.
//
// A plugin's install hook receives a *PluginSDK scoped to that plugin. Through
// it the plugin adds routes, named component loaders, translation fragments
// and isolated stores. Translations are kept per plugin, so two plugins can
// both define "greeting" for the same locale without colliding.
//
// After installation the host calls Seal and reads the accumulated state:
//
//	s := sdk.New(http.DefaultClient, sdk.NewEventBus())
//	// registry.InstallAll(ctx, s)
//	s.Seal()
//	for _, route := range s.Routes() {
//		mount(route)
//	}
//
// Loaders are opaque: the SDK stores them and hands them back to the host
// renderer, it never calls them.
package sdk
