// Package host wires the plugin kernel into a running host process.
//
// Bootstrap performs the startup sequence: register every descriptor,
// install in dependency order, activate the plugins enabled in the persisted
// manifest and seal the SDK. Handlers exposes the sealed SDK state read-only
// under /_host/ for the view layer.
package host
