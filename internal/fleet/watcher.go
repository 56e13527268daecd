package fleet

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"shipsense/internal/logging"
)

// Watcher reloads the vessel catalog when its YAML file changes on disk.
// Reload failures keep the previous catalog.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	onLoad  func(*Catalog)
}

// NewCatalogWatcher watches path and calls onLoad with each successfully
// reloaded catalog. The parent directory is watched so editor
// rename-and-replace saves are picked up.
func NewCatalogWatcher(path string, onLoad func(*Catalog)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{path: path, watcher: fsw, onLoad: onLoad}, nil
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			catalog, err := LoadCatalog(w.path)
			if err != nil {
				logging.FleetWarn("catalog reload failed for %s: %v", w.path, err)
				continue
			}
			logging.Fleet("catalog reloaded from %s (%d vessels)", w.path, len(catalog.Vessels))
			w.onLoad(catalog)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.FleetWarn("catalog watcher error: %v", err)
		}
	}
}
