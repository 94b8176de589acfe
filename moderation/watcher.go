package moderation

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a gate's policy whenever its YAML file changes.
// The parent directory is watched so editors that replace the file on save
// are handled.
type Watcher struct {
	gate    *Gate
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewWatcher loads the policy at path into gate and prepares to watch it.
func NewWatcher(gate *Gate, path string) (*Watcher, error) {
	if gate == nil {
		return nil, ErrGateRequired
	}
	if path == "" {
		return nil, ErrPolicyPathRequired
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	policy, err := LoadPolicy(abs)
	if err != nil {
		return nil, err
	}
	if err := gate.SetPolicy(policy); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		gate:    gate,
		path:    abs,
		watcher: fw,
		logger:  slog.Default().With("component", "moderation-watcher"),
	}, nil
}

// Run processes file events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("policy watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	policy, err := LoadPolicy(w.path)
	if err != nil {
		w.logger.Warn("keeping previous moderation policy", "path", w.path, "err", err)
		return
	}
	if err := w.gate.SetPolicy(policy); err != nil {
		w.logger.Warn("keeping previous moderation policy", "path", w.path, "err", err)
		return
	}
	w.logger.Info("reloaded moderation policy", "path", w.path, "categories", len(policy.Categories))
}
