// Package repository is the aggregation core: it materializes configured
// providers into live data sources, routes every call to the right source
// by URI prefix, and exposes reactive streams that re-run when providers,
// preferences or playlists change.
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/datasource"
	"github.com/anuragxone/twelve-remix/internal/datasource/jellyfin"
	"github.com/anuragxone/twelve-remix/internal/datasource/local"
	"github.com/anuragxone/twelve-remix/internal/datasource/qobuz"
	"github.com/anuragxone/twelve-remix/internal/datasource/subsonic"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/prefs"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/store"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

// Binding pairs a provider with its live data source.
type Binding struct {
	Provider provider.Provider
	Source   datasource.Source
}

// Config carries the optional collaborators. A nil Local means the process
// runs without a local library; a nil QobuzCatalog uses the real API.
type Config struct {
	Local        *local.Source
	QobuzCatalog func(cfg store.QobuzConfig) (qobuz.Catalog, error)
}

// cached tracks one materialized source together with a fingerprint of the
// configuration it was built from, so credential edits rebuild the source
// while unrelated recomputations keep it, preserving its change signals.
type cached struct {
	fingerprint string
	source      datasource.Source
}

// Repository owns the provider registry and the router.
type Repository struct {
	store *store.Store
	prefs *prefs.Prefs
	local *local.Source
	dummy *datasource.Dummy

	newQobuzCatalog func(cfg store.QobuzConfig) (qobuz.Catalog, error)

	ctx context.Context

	mu       sync.RWMutex
	cache    map[provider.Identifier]cached
	wired    map[provider.Identifier]bool
	bindings *watch.Value[[]Binding]

	// coalesced playlist change signal across all live sources
	playlistsChanged *watch.Signal
}

// New wires a repository. Call Start before using it.
func New(st *store.Store, pf *prefs.Prefs, cfg Config) *Repository {
	newCatalog := cfg.QobuzCatalog
	if newCatalog == nil {
		newCatalog = func(store.QobuzConfig) (qobuz.Catalog, error) {
			return qobuz.NewCatalog(qobuz.AppCredentials{})
		}
	}
	return &Repository{
		store:            st,
		prefs:            pf,
		local:            cfg.Local,
		dummy:            datasource.NewDummy(),
		newQobuzCatalog:  newCatalog,
		cache:            make(map[provider.Identifier]cached),
		wired:            make(map[provider.Identifier]bool),
		bindings:         watch.NewValue[[]Binding](),
		playlistsChanged: watch.NewSignal(),
	}
}

// Start computes the initial binding list and launches the listeners that
// keep it current. ctx bounds the repository's lifetime.
func (r *Repository) Start(ctx context.Context) error {
	r.ctx = ctx
	if err := r.rebuild(); err != nil {
		return err
	}

	go r.rebuildOn(ctx, r.store.ProvidersChanged())
	go r.rebuildOn(ctx, r.prefs.Changed())

	if r.local != nil {
		go func() {
			if err := r.local.GCStats(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to garbage collect local media stats")
			}
		}()
	}
	return nil
}

func (r *Repository) rebuildOn(ctx context.Context, sig *watch.Signal) {
	for range sig.Subscribe(ctx) {
		if err := r.rebuild(); err != nil {
			log.Error().Err(err).Msg("Failed to rebuild provider bindings")
		}
	}
}

// rebuild recomputes the full binding list from the store. Sources whose
// configuration is unchanged are reused so their in-memory state, such as
// playlist change signals, survives the recomputation.
func (r *Repository) rebuild() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Binding
	live := make(map[provider.Identifier]bool)

	if r.local != nil {
		id := r.local.Provider()
		live[id] = true
		r.wireSource(id, r.local)
		out = append(out, Binding{
			Provider: provider.Provider{Identifier: id, Name: "This device", Visible: true},
			Source:   r.local,
		})
	}

	subsonics, err := r.store.SubsonicProviders()
	if err != nil {
		return fmt.Errorf("failed to list subsonic providers: %w", err)
	}
	for _, cfg := range subsonics {
		id := provider.Identifier{Kind: provider.KindSubsonic, InstanceID: cfg.ID}
		fingerprint := fmt.Sprintf("%s\x00%s\x00%s\x00%t", cfg.URL, cfg.Username, cfg.Password, cfg.UseLegacyAuthentication)
		src := r.materialize(id, fingerprint, func() datasource.Source {
			return subsonic.New(id, cfg, r.store)
		})
		live[id] = true
		out = append(out, Binding{
			Provider: provider.Provider{Identifier: id, Name: cfg.Name, Visible: true},
			Source:   src,
		})
	}

	jellyfins, err := r.store.JellyfinProviders()
	if err != nil {
		return fmt.Errorf("failed to list jellyfin providers: %w", err)
	}
	for _, cfg := range jellyfins {
		id := provider.Identifier{Kind: provider.KindJellyfin, InstanceID: cfg.ID}
		fingerprint := fmt.Sprintf("%s\x00%s\x00%s\x00%s", cfg.URL, cfg.Username, cfg.Password, cfg.DeviceID)
		src := r.materialize(id, fingerprint, func() datasource.Source {
			return jellyfin.New(id, cfg, r.store)
		})
		live[id] = true
		out = append(out, Binding{
			Provider: provider.Provider{Identifier: id, Name: cfg.Name, Visible: true},
			Source:   src,
		})
	}

	qobuzes, err := r.store.QobuzProviders()
	if err != nil {
		return fmt.Errorf("failed to list qobuz providers: %w", err)
	}
	for _, cfg := range qobuzes {
		id := provider.Identifier{Kind: provider.KindQobuz, InstanceID: cfg.ID}
		fingerprint := fmt.Sprintf("%s\x00%s", cfg.Email, cfg.Password)
		src := r.materialize(id, fingerprint, func() datasource.Source {
			catalog, err := r.newQobuzCatalog(cfg)
			if err != nil {
				log.Error().Err(err).Int64("id", cfg.ID).Msg("Failed to build qobuz catalog")
				return nil
			}
			return qobuz.New(id, cfg, catalog, r.store)
		})
		if src == nil {
			continue
		}
		live[id] = true
		out = append(out, Binding{
			Provider: provider.Provider{Identifier: id, Name: cfg.Name, Visible: true},
			Source:   src,
		})
	}

	for id := range r.cache {
		if !live[id] {
			delete(r.cache, id)
			delete(r.wired, id)
		}
	}

	log.Debug().Int("providers", len(out)).Msg("Rebuilt provider bindings")
	r.bindings.Set(out)
	return nil
}

// materialize returns the cached source when the configuration fingerprint
// is unchanged, otherwise builds a fresh one.
func (r *Repository) materialize(id provider.Identifier, fingerprint string, build func() datasource.Source) datasource.Source {
	if entry, ok := r.cache[id]; ok && entry.fingerprint == fingerprint {
		return entry.source
	}
	src := build()
	if src == nil {
		return nil
	}
	r.cache[id] = cached{fingerprint: fingerprint, source: src}
	r.wireSource(id, src)
	return src
}

// wireSource forwards a source's playlist change signal into the
// repository-wide one, once per source instance.
func (r *Repository) wireSource(id provider.Identifier, src datasource.Source) {
	if r.wired[id] || r.ctx == nil {
		return
	}
	r.wired[id] = true
	go func(ch <-chan struct{}) {
		for range ch {
			r.playlistsChanged.Notify()
		}
	}(src.PlaylistsChanged().Subscribe(r.ctx))
}

// Bindings returns the current provider bindings snapshot.
func (r *Repository) Bindings() []Binding {
	b, _ := r.bindings.Get()
	return b
}

// AllVisibleProviders lists providers for a provider-switcher surface.
func (r *Repository) AllVisibleProviders() []provider.Provider {
	var out []provider.Provider
	for _, b := range r.Bindings() {
		if b.Provider.Visible {
			out = append(out, b.Provider)
		}
	}
	return out
}

// Source returns the live source for one provider identity.
func (r *Repository) Source(id provider.Identifier) (datasource.Source, bool) {
	for _, b := range r.Bindings() {
		if b.Provider.Identifier == id {
			return b.Source, true
		}
	}
	return nil, false
}

// sourceOfURIs returns the single source compatible with every given URI,
// or nil when zero or more than one source claims them.
func (r *Repository) sourceOfURIs(uris ...media.URI) datasource.Source {
	var match datasource.Source
	for _, b := range r.Bindings() {
		all := true
		for _, uri := range uris {
			if !b.Source.CompatibleWith(uri) {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		if match != nil {
			return nil
		}
		match = b.Source
	}
	return match
}

// navigationSource resolves the source all URI-less calls go to: the
// persisted selection when it is still live, else the first visible
// provider, else the dummy.
func (r *Repository) navigationSource() datasource.Source {
	bindings := r.Bindings()
	if id, ok := r.prefs.NavigationProvider(); ok {
		for _, b := range bindings {
			if b.Provider.Identifier == id && b.Provider.Visible {
				return b.Source
			}
		}
	}
	for _, b := range bindings {
		if b.Provider.Visible {
			return b.Source
		}
	}
	return r.dummy
}

// NavigationProvider returns the provider URI-less calls are served by.
func (r *Repository) NavigationProvider() provider.Identifier {
	return r.navigationSource().Provider()
}

// SetNavigationProvider persists a new navigation provider selection. The
// id must name a live provider.
func (r *Repository) SetNavigationProvider(id provider.Identifier) error {
	if _, ok := r.Source(id); !ok {
		return fmt.Errorf("no such provider: %s", id)
	}
	return r.prefs.SetNavigationProvider(id)
}

// PlaylistsChanged aggregates every live source's playlist change signal.
func (r *Repository) PlaylistsChanged() *watch.Signal { return r.playlistsChanged }
