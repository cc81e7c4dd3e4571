/*
Package control serves plugin management over the signed control protocol.

The Service keeps a persisted manifest of per-plugin management state
(enabled flag, version, install time, source and saved config) and drives
the plugin registry when that state changes. Each mutating operation checks
the current state first and returns false when the operation does not apply;
Handlers map false to 404, or 400 for an install of an installed plugin.

Manifests are stored by a ManifestStore:

	store, err := control.NewFileStore("/var/lib/hangar/plugins.json")
	svc := control.NewService(store, control.WithKernel(registry, sdk))
	if err := svc.Load(ctx); err != nil {
		return err
	}

SQLStore keeps the same data in SQLite or PostgreSQL.
*/
package control
