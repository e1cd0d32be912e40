// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/planar"
)

type fileEntry struct {
	path  string
	state LoadState
	store *planar.Store
}

// FileServer is a Server over planar files on disk.
//
// Load returns immediately; the file is decoded in the background and the
// handle reports Loading until then. Loaded files are watched: when a file
// is rewritten it is decoded again, the handle resolves to the new store
// and the OnChange callback runs. A reload that fails to decode keeps the
// previous store.
type FileServer struct {
	mu       sync.RWMutex
	byPath   map[string]Handle
	entries  map[Handle]*fileEntry
	dirs     map[string]int
	onChange func(Handle)
	closed   bool

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewFileServer starts a file server and its watcher.
func NewFileServer() (*FileServer, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("asset: create watcher: %w", err)
	}
	s := &FileServer{
		byPath:  make(map[string]Handle),
		entries: make(map[Handle]*fileEntry),
		dirs:    make(map[string]int),
		watcher: w,
	}
	s.wg.Add(1)
	go s.watch()
	return s, nil
}

// OnChange registers fn to run, on the watcher goroutine, after a loaded
// file has been reloaded. It replaces any earlier callback.
func (s *FileServer) OnChange(fn func(Handle)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load starts loading path and returns its handle. Loading the same path
// twice returns the same handle.
func (s *FileServer) Load(path string) Handle {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	s.mu.Lock()
	if h, ok := s.byPath[abs]; ok {
		s.mu.Unlock()
		return h
	}
	h := NewHandle()
	s.byPath[abs] = h
	s.entries[h] = &fileEntry{path: abs, state: Loading}
	closed := s.closed
	if !closed {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if closed {
		s.finish(h, nil, fmt.Errorf("asset: file server closed"))
		return h
	}
	go func() {
		defer s.wg.Done()
		store, err := decodeFile(abs)
		s.finish(h, store, err)
	}()
	return h
}

// finish records the outcome of the initial load of h.
func (s *FileServer) finish(h Handle, store *planar.Store, err error) {
	s.mu.Lock()
	e, ok := s.entries[h]
	if !ok {
		s.mu.Unlock()
		return
	}
	if err != nil {
		e.state = Missing
		s.mu.Unlock()
		planar.Logger().Warn("asset: load failed", "path", e.path, "err", err)
		return
	}
	e.state, e.store = Loaded, store
	s.watchDir(filepath.Dir(e.path))
	s.mu.Unlock()
	planar.Logger().Info("asset: loaded", "path", e.path, "handle", h, "len", store.Len())
}

// watchDir adds dir to the watcher on first use. Called with mu held.
func (s *FileServer) watchDir(dir string) {
	if s.closed {
		return
	}
	if s.dirs[dir] == 0 {
		if err := s.watcher.Add(dir); err != nil {
			planar.Logger().Warn("asset: watch failed", "dir", dir, "err", err)
			return
		}
	}
	s.dirs[dir]++
}

// Unload forgets h and stops watching its file.
func (s *FileServer) Unload(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[h]
	if !ok {
		return
	}
	delete(s.entries, h)
	delete(s.byPath, e.path)
	if e.state != Loaded {
		return
	}
	dir := filepath.Dir(e.path)
	if s.dirs[dir]--; s.dirs[dir] <= 0 {
		delete(s.dirs, dir)
		if !s.closed {
			_ = s.watcher.Remove(dir)
		}
	}
}

// Path returns the file behind h.
func (s *FileServer) Path(h Handle) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[h]
	if !ok {
		return "", false
	}
	return e.path, true
}

// LoadState implements Server.
func (s *FileServer) LoadState(h Handle) LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[h]; ok {
		return e.state
	}
	return Missing
}

// Resolve implements Server.
func (s *FileServer) Resolve(h Handle) (*planar.Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[h]
	if !ok || e.state != Loaded {
		return nil, false
	}
	return e.store, true
}

func (s *FileServer) watch() {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				s.reload(filepath.Clean(event.Name))
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			planar.Logger().Warn("asset: watcher error", "err", err)
		}
	}
}

func (s *FileServer) reload(path string) {
	s.mu.RLock()
	h, ok := s.byPath[path]
	var loaded bool
	if ok {
		loaded = s.entries[h].state == Loaded
	}
	s.mu.RUnlock()
	if !ok || !loaded {
		return
	}

	store, err := decodeFile(path)
	if err != nil {
		// Writers often truncate before writing; the next event retries.
		planar.Logger().Debug("asset: reload skipped", "path", path, "err", err)
		return
	}

	s.mu.Lock()
	e, ok := s.entries[h]
	if ok {
		e.store = store
	}
	fn := s.onChange
	s.mu.Unlock()
	if !ok {
		return
	}
	planar.Logger().Info("asset: reloaded", "path", path, "handle", h, "len", store.Len())
	if fn != nil {
		fn(h)
	}
}

// Close stops the watcher and waits for pending loads. Handles keep
// resolving to what they were loaded with.
func (s *FileServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

func decodeFile(path string) (*planar.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	store, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}

var _ Server = (*FileServer)(nil)
