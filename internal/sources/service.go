// Package sources tracks the storage volumes local music can live on:
// the internal music directory plus any removable mounts. Volumes appearing
// or vanishing are detected through filesystem events and surfaced as a
// change signal so library listings can refresh.
package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/watch"
)

// debounceWindow coalesces bursts of mount events into one rescan.
const debounceWindow = 500 * time.Millisecond

// Volume is one storage location music can be read from.
type Volume struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Available bool   `json:"available"`
}

// Service watches a set of configured volume roots.
type Service struct {
	mu      sync.RWMutex
	roots   []string
	volumes []Volume

	changed   *watch.Signal
	debouncer *Debouncer
	watcher   *fsnotify.Watcher
}

// NewService creates a service for the given volume roots. The first root
// is conventionally the internal music directory.
func NewService(roots []string) *Service {
	s := &Service{
		roots:   roots,
		changed: watch.NewSignal(),
	}
	s.debouncer = NewDebouncer(debounceWindow, s.rescan)
	s.Scan()
	return s
}

// Changed signals after the set of available volumes changes.
func (s *Service) Changed() *watch.Signal { return s.changed }

// Volumes returns the last scanned volume list.
func (s *Service) Volumes() []Volume {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Volume, len(s.volumes))
	copy(out, s.volumes)
	return out
}

// AvailablePaths returns the paths of all currently available volumes.
func (s *Service) AvailablePaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, v := range s.volumes {
		if v.Available {
			out = append(out, v.Path)
		}
	}
	return out
}

// Scan stats every root and rebuilds the volume list. It reports whether
// availability changed since the previous scan.
func (s *Service) Scan() bool {
	volumes := make([]Volume, 0, len(s.roots))
	for _, root := range s.roots {
		info, err := os.Stat(root)
		volumes = append(volumes, Volume{
			ID:        root,
			Name:      filepath.Base(root),
			Path:      root,
			Available: err == nil && info.IsDir(),
		})
	}

	s.mu.Lock()
	changed := !volumesEqual(s.volumes, volumes)
	s.volumes = volumes
	s.mu.Unlock()
	return changed
}

// Start begins watching the parents of every root for mount events.
func (s *Service) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create volume watcher: %w", err)
	}
	s.watcher = watcher

	watched := make(map[string]bool)
	for _, root := range s.roots {
		parent := filepath.Dir(root)
		if watched[parent] {
			continue
		}
		if err := watcher.Add(parent); err != nil {
			log.Warn().Err(err).Str("dir", parent).Msg("Cannot watch volume parent")
			continue
		}
		watched[parent] = true
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					s.debouncer.Trigger()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Volume watcher error")
			}
		}
	}()

	log.Info().Int("roots", len(s.roots)).Msg("Volume watcher started")
	return nil
}

// Close stops watching.
func (s *Service) Close() error {
	s.debouncer.Stop()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Service) rescan() {
	if s.Scan() {
		log.Info().Msg("Volume availability changed")
		s.changed.Notify()
	}
}

func volumesEqual(a, b []Volume) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
