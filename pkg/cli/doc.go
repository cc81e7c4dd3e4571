// Package cli provides the hangarctl command-line interface for plugin management.
//
// # Overview
//
// hangarctl talks to a running host over the signed control protocol. Every
// request is signed with the shared secret, so the CLI needs the same secret
// the host was started with.
//
// # Commands
//
// list: Show every plugin with its status
//
//	hangarctl list --server http://localhost:8080
//
// show: Show one plugin, including its config schema and saved config
//
//	hangarctl show chat --output json
//
// config: Replace a plugin's saved config
//
//	hangarctl config chat --file ./chat.json
//	hangarctl config chat --set theme=dark --set limit=10
//
// enable, disable, install, uninstall: Lifecycle changes
//
//	hangarctl enable chat
//	hangarctl install chat --source https://plugins.example.com/chat-1.2.0.tgz
//
// # Environment
//
// HANGAR_SERVER and HANGAR_SHARED_SECRET supply defaults for --server and --secret.
package cli
