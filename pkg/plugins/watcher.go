package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ManifestChange describes a plugin.yaml that changed on disk
type ManifestChange struct {
	Plugin string
	Path   string
	Op     string
}

// Watcher reports manifest changes under plugin directories. Plugins are never
// reloaded in process; callers decide how to surface the change.
type Watcher struct {
	fsw *fsnotify.Watcher
	log *logrus.Entry
}

// NewWatcher watches each existing directory and its plugin subdirectories
func NewWatcher(log *logrus.Entry, dirs ...string) (*Watcher, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{fsw: fsw, log: log.WithField("component", "watcher")}
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
	}

	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := w.fsw.Add(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to watch %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Run delivers changes to onChange until ctx is done, then closes the watcher
func (w *Watcher) Run(ctx context.Context, onChange func(ManifestChange)) error {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event, onChange)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Plugin directory watch error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, onChange func(ManifestChange)) {
	// A new plugin directory: watch it and report a manifest moved in with it
	if event.Has(fsnotify.Create) {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.log.WithError(err).Warnf("Failed to watch new directory %s", event.Name)
			}
			manifest := filepath.Join(event.Name, ManifestFile)
			if _, err := os.Stat(manifest); err == nil {
				onChange(ManifestChange{Plugin: filepath.Base(event.Name), Path: manifest, Op: fsnotify.Create.String()})
			}
			return
		}
	}

	if filepath.Base(event.Name) != ManifestFile {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	onChange(ManifestChange{
		Plugin: filepath.Base(filepath.Dir(event.Name)),
		Path:   event.Name,
		Op:     event.Op.String(),
	})
}
