package host

import (
	"context"
	"fmt"

	"github.com/platinummonkey/hangar/pkg/plugins"
	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/sirupsen/logrus"
)

// Kernel is the part of the registry the bootstrap sequence drives
type Kernel interface {
	Register(desc plugins.Descriptor) error
	InstallAll(ctx context.Context, s *sdk.SDK) error
	Activate(ctx context.Context, name string) error
	GetAll() []plugins.Record
}

// Bootstrap registers every descriptor, installs them in dependency order,
// activates the enabled ones and seals the SDK. The first failure is returned
// and the host is expected to exit.
func Bootstrap(ctx context.Context, kernel Kernel, s *sdk.SDK, descriptors []plugins.Descriptor, enabled func(name string) bool, log *logrus.Entry) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "bootstrap")

	for _, desc := range descriptors {
		if err := kernel.Register(desc); err != nil {
			return fmt.Errorf("failed to register plugin %q: %w", desc.Name, err)
		}
	}

	if err := kernel.InstallAll(ctx, s); err != nil {
		return fmt.Errorf("failed to install plugins: %w", err)
	}

	activated := 0
	for _, rec := range kernel.GetAll() {
		if rec.Status != plugins.StatusInstalled || enabled == nil || !enabled(rec.Name()) {
			continue
		}
		if err := kernel.Activate(ctx, rec.Name()); err != nil {
			return fmt.Errorf("failed to activate plugin %q: %w", rec.Name(), err)
		}
		activated++
	}

	s.Seal()

	log.WithFields(logrus.Fields{
		"plugins":   len(descriptors),
		"activated": activated,
		"routes":    len(s.Routes()),
	}).Info("Plugin kernel ready")
	return nil
}

// Catalog flattens the translations for locale into {plugin: fragment}
func Catalog(s *sdk.SDK, locale string) map[string]map[string]any {
	catalog := s.Translations()[locale]
	if catalog == nil {
		return map[string]map[string]any{}
	}
	return catalog
}
