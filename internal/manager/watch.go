package manager

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"predictd/internal/common/fsutil"
	"predictd/pkg/types"
)

// Watch reloads services whose bundle or metadata file changes. It watches
// parent directories so editors that replace files by rename are caught.
// Bursts of events for one service are coalesced over the debounce window.
// The watcher runs until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	targets := m.watchTargets()
	if len(targets) == 0 {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for path := range targets {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				m.log.Warn().Str("dir", dir).Msg("bundle directory missing, not watched")
				continue
			}
			_ = w.Close()
			return err
		}
		dirs[dir] = true
	}
	m.log.Info().Int("files", len(targets)).Int("dirs", len(dirs)).Msg("watching bundles")
	go m.watchLoop(ctx, w, targets)
	return nil
}

// watchTargets maps absolute file paths to the services built from them.
func (m *Manager) watchTargets() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string)
	for _, id := range m.order {
		svc := m.services[id]
		if svc == nil {
			continue
		}
		if p := bundlePath(svc); p != "" {
			out[p] = append(out[p], id)
		}
		if svc.spec.MetadataPath != "" {
			if p, err := fsutil.AbsPath(svc.spec.MetadataPath); err == nil {
				out[p] = append(out[p], id)
			}
		}
	}
	return out
}

// bundlePath is the file a bundle service loads from. A service whose first
// load failed has no LocalPath yet, so local sources are resolved directly.
func bundlePath(svc *service) string {
	if p := svc.loaded.LocalPath; p != "" {
		return p
	}
	if svc.spec.Kind == types.KindProxy || svc.spec.Source == "" {
		return ""
	}
	if u, err := url.Parse(svc.spec.Source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return ""
	}
	p, err := fsutil.AbsPath(svc.spec.Source)
	if err != nil {
		return ""
	}
	return p
}

func (m *Manager) watchLoop(ctx context.Context, w *fsnotify.Watcher, targets map[string][]string) {
	defer w.Close()
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			t.Stop()
		}
		mu.Unlock()
	}()
	schedule := func(id string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[id]; ok {
			t.Reset(m.debounce)
			return
		}
		pending[id] = time.AfterFunc(m.debounce, func() {
			mu.Lock()
			delete(pending, id)
			mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			if err := m.Reload(ctx, id); err != nil {
				m.log.Warn().Err(err).Str("service", id).Msg("reload after change failed")
				return
			}
			m.log.Info().Str("service", id).Msg("reloaded after change")
		})
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			for _, id := range targets[filepath.Clean(ev.Name)] {
				schedule(id)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			m.log.Warn().Err(err).Msg("bundle watcher")
		}
	}
}
