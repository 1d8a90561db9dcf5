// Package resumption persists the playback queue across restarts and
// repairs it on load: tracks that no longer resolve, because a provider
// was removed or files vanished, are dropped and the saved index and
// position are adjusted to keep pointing at the same music.
package resumption

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
)

// ResolveFunc checks whether an audio URI still resolves to a playable
// track. The repository's routed Audio lookup is the production resolver.
type ResolveFunc func(ctx context.Context, uri media.URI) status.Status[media.Audio]

// State is the current playback queue.
type State struct {
	Queue      []media.URI
	Index      int
	PositionMs int64
}

// Empty reports whether there is nothing to resume.
func (s State) Empty() bool { return len(s.Queue) == 0 }

// Manager keeps the playback queue in memory and writes every change
// through to the store, so a crash at any point resumes from the last
// observed queue state.
type Manager struct {
	store   *store.Store
	resolve ResolveFunc

	mu    sync.Mutex
	state State
}

func NewManager(st *store.Store, resolve ResolveFunc) *Manager {
	return &Manager{store: st, resolve: resolve}
}

// Load reads the persisted queue, repairs it against the current set of
// providers and returns the result. The repaired queue is written back
// when it differs from what was stored.
func (m *Manager) Load(ctx context.Context) (State, error) {
	rec, ok, err := m.store.LoadResumption()
	if err != nil {
		return State{}, err
	}
	if !ok {
		return State{}, nil
	}

	state, dropped := m.repair(ctx, rec)
	if dropped > 0 {
		log.Info().
			Int("dropped", dropped).
			Int("remaining", len(state.Queue)).
			Msg("Repaired resumption queue")
		if err := m.persist(state); err != nil {
			return State{}, err
		}
	}

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	return state, nil
}

// repair drops queue entries that no longer resolve. Only a definite
// not-found removes an entry: a provider that is merely unreachable keeps
// its tracks, since they may resolve again later.
func (m *Manager) repair(ctx context.Context, rec store.ResumptionRecord) (State, int) {
	state := State{PositionMs: rec.StartPositionMs}
	index := rec.StartIndex
	startDropped := false

	for i, raw := range rec.URIs {
		uri := media.URI(raw)
		resolved := m.resolve(ctx, uri)
		if resolved.IsError() && resolved.Kind() == status.NotFound {
			log.Debug().Str("uri", raw).Msg("Dropping unresolvable queue entry")
			if i < rec.StartIndex {
				index--
			} else if i == rec.StartIndex {
				startDropped = true
			}
			continue
		}
		state.Queue = append(state.Queue, uri)
	}

	if len(state.Queue) == 0 {
		return State{}, len(rec.URIs)
	}
	if startDropped {
		// the track playback stopped inside is gone, so the saved
		// position means nothing for whatever now sits at the index
		state.PositionMs = 0
	}
	if index < 0 {
		index = 0
	}
	if index >= len(state.Queue) {
		index = len(state.Queue) - 1
		state.PositionMs = 0
	}
	state.Index = index
	return state, len(rec.URIs) - len(state.Queue)
}

// SetQueue replaces the queue, typically when the user starts playing a
// new collection.
func (m *Manager) SetQueue(queue []media.URI, index int, positionMs int64) error {
	if index < 0 || (len(queue) > 0 && index >= len(queue)) {
		index = 0
	}
	state := State{Queue: queue, Index: index, PositionMs: positionMs}
	if len(queue) == 0 {
		state = State{}
	}

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	return m.persist(state)
}

// OnTrackChanged records a move to another queue index, resetting the
// position within the track.
func (m *Manager) OnTrackChanged(index int) error {
	m.mu.Lock()
	if index < 0 || index >= len(m.state.Queue) {
		m.mu.Unlock()
		return nil
	}
	m.state.Index = index
	m.state.PositionMs = 0
	state := m.state
	m.mu.Unlock()
	return m.persist(state)
}

// OnPositionChanged records progress within the current track.
func (m *Manager) OnPositionChanged(positionMs int64) error {
	m.mu.Lock()
	if m.state.Empty() {
		m.mu.Unlock()
		return nil
	}
	m.state.PositionMs = positionMs
	state := m.state
	m.mu.Unlock()
	return m.persist(state)
}

// Clear forgets the queue, typically when playback stops explicitly.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()
	return m.store.ClearResumption()
}

// Current returns the in-memory queue state.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) persist(state State) error {
	rec := store.ResumptionRecord{
		StartIndex:      state.Index,
		StartPositionMs: state.PositionMs,
	}
	for _, uri := range state.Queue {
		rec.URIs = append(rec.URIs, string(uri))
	}
	return m.store.SaveResumption(rec)
}
