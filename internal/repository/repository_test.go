package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gompd "github.com/fhs/gompd/v2/mpd"

	"github.com/anuragxone/twelve-remix/internal/datasource/local"
	"github.com/anuragxone/twelve-remix/internal/infra/mpd"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/prefs"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
)

type fakeCatalog struct{ songs []gompd.Attrs }

func (f *fakeCatalog) Ping() error { return nil }

func (f *fakeCatalog) ListAlbums() ([]mpd.AlbumInfo, error) {
	seen := make(map[string]bool)
	var out []mpd.AlbumInfo
	for _, song := range f.songs {
		key := song["AlbumArtist"] + "\x00" + song["Album"]
		if !seen[key] {
			seen[key] = true
			out = append(out, mpd.AlbumInfo{Album: song["Album"], AlbumArtist: song["AlbumArtist"]})
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListTag(tag string) ([]string, error) { return nil, nil }

func (f *fakeCatalog) FindAlbumTracks(album, albumArtist string) ([]gompd.Attrs, error) {
	return nil, nil
}

func (f *fakeCatalog) FindByTag(tag, value string) ([]gompd.Attrs, error) { return nil, nil }

func (f *fakeCatalog) FindFile(path string) (gompd.Attrs, error) {
	for _, song := range f.songs {
		if song["file"] == path {
			return song, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) Search(query string) ([]gompd.Attrs, error) { return nil, nil }

func okSubsonic(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

const emptyAlbumList = `{"subsonic-response":{"status":"ok","albumList2":{"album":[]}}}`

func newTestRepo(t *testing.T) (*Repository, *store.Store, *local.Source) {
	t.Helper()
	dir := t.TempDir()

	st := store.New(filepath.Join(dir, "test.db"))
	if err := st.Open(); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	pf := prefs.New(filepath.Join(dir, "prefs.yaml"))
	if err := pf.Load(); err != nil {
		t.Fatalf("load prefs: %v", err)
	}

	catalog := &fakeCatalog{songs: []gompd.Attrs{
		{"file": "music/a.flac", "Title": "A", "Artist": "X", "AlbumArtist": "X", "Album": "Alpha", "Time": "100"},
	}}
	localSrc := local.New(catalog, st, nil)

	repo := New(st, pf, Config{Local: localSrc})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := repo.Start(ctx); err != nil {
		t.Fatalf("start repo: %v", err)
	}
	return repo, st, localSrc
}

func addSubsonic(t *testing.T, repo *Repository, serverURL string) provider.Identifier {
	t.Helper()
	id, err := repo.AddProvider(provider.KindSubsonic, "Test server", map[string]string{
		"server":   serverURL,
		"username": "alice",
		"password": "pw",
	})
	if err != nil {
		t.Fatalf("add provider: %v", err)
	}
	return id
}

func TestRoutingUniqueness(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	server := httptest.NewServer(okSubsonic(emptyAlbumList))
	t.Cleanup(server.Close)
	id := addSubsonic(t, repo, server.URL)

	localURI := media.URI("local/audio/music%2Fa.flac")
	if src := repo.sourceOfURIs(localURI); src == nil || src.Provider().Kind != provider.KindLocal {
		t.Fatalf("local uri routed to %v", src)
	}
	subsonicURI := media.URI("subsonic").Append("1", "albums", "al-1")
	if src := repo.sourceOfURIs(subsonicURI); src == nil || src.Provider() != id {
		t.Fatalf("subsonic uri routed wrong")
	}
	if src := repo.sourceOfURIs(media.URI("jellyfin/1/albums/x")); src != nil {
		t.Fatal("unknown prefix should match nothing")
	}
	// URIs from two different sources never share a route
	if src := repo.sourceOfURIs(localURI, subsonicURI); src != nil {
		t.Fatal("mixed uri set should match nothing")
	}
}

func TestRouterSynthesizesNotFound(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	got := repo.Audio(context.Background(), media.URI("nowhere/1/audio/x"))
	if !got.IsError() || got.Kind() != status.NotFound {
		t.Fatalf("got state=%v kind=%v, want NotFound", got.State(), got.Kind())
	}
}

func TestNavigationFallsBackToFirstVisible(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	if got := repo.NavigationProvider(); got.Kind != provider.KindLocal {
		t.Fatalf("navigation provider = %v, want local", got)
	}
}

func TestNavigationProviderSwitch(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "getAlbumList2") {
			hits++
		}
		w.Write([]byte(emptyAlbumList))
	}))
	t.Cleanup(server.Close)
	id := addSubsonic(t, repo, server.URL)

	if err := repo.SetNavigationProvider(id); err != nil {
		t.Fatalf("set navigation provider: %v", err)
	}
	if got := repo.NavigationProvider(); got != id {
		t.Fatalf("navigation provider = %v, want %v", got, id)
	}
	if res := repo.Albums(context.Background()); !res.IsSuccess() {
		t.Fatalf("Albums state=%v kind=%v", res.State(), res.Kind())
	}
	if hits == 0 {
		t.Fatal("listing did not reach the selected provider")
	}
}

func TestSetNavigationProviderRejectsUnknown(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	err := repo.SetNavigationProvider(provider.Identifier{Kind: provider.KindSubsonic, InstanceID: 99})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestAddProviderValidation(t *testing.T) {
	repo, st, _ := newTestRepo(t)

	_, err := repo.AddProvider(provider.KindSubsonic, "bad", map[string]string{
		"server":   "not a url",
		"username": "alice",
		"password": "pw",
	})
	if err == nil {
		t.Fatal("expected URL validation error")
	}
	_, err = repo.AddProvider(provider.KindSubsonic, "bad", map[string]string{
		"server":   "http://example.com",
		"username": "alice",
	})
	if err == nil {
		t.Fatal("expected missing-password error")
	}
	if rows, _ := st.SubsonicProviders(); len(rows) != 0 {
		t.Fatalf("rejected providers were persisted: %v", rows)
	}
	if _, err := repo.AddProvider(provider.KindLocal, "nope", nil); err == nil {
		t.Fatal("local providers must not be creatable")
	}
}

func TestSourceIdentityStableAcrossRebuild(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	server := httptest.NewServer(okSubsonic(emptyAlbumList))
	t.Cleanup(server.Close)
	id := addSubsonic(t, repo, server.URL)

	before, ok := repo.Source(id)
	if !ok {
		t.Fatal("source missing")
	}
	if err := repo.rebuild(); err != nil {
		t.Fatal(err)
	}
	after, _ := repo.Source(id)
	if before != after {
		t.Fatal("unchanged config must keep the same source instance")
	}

	// a credential edit rebuilds the source
	if err := repo.UpdateProvider(id, "Test server", map[string]string{
		"server":   server.URL,
		"username": "alice",
		"password": "different",
	}); err != nil {
		t.Fatal(err)
	}
	rebuilt, _ := repo.Source(id)
	if rebuilt == before {
		t.Fatal("changed config must produce a fresh source instance")
	}
}

func TestDeleteProviderDropsBinding(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	server := httptest.NewServer(okSubsonic(emptyAlbumList))
	t.Cleanup(server.Close)
	id := addSubsonic(t, repo, server.URL)

	if err := repo.DeleteProvider(id); err != nil {
		t.Fatal(err)
	}
	if _, ok := repo.Source(id); ok {
		t.Fatal("deleted provider still bound")
	}
	if got := len(repo.AllVisibleProviders()); got != 1 {
		t.Fatalf("visible providers = %d, want 1 (local)", got)
	}
}

// collectUntil reads stream emissions until the predicate matches or the
// timeout expires.
func collectUntil[T any](t *testing.T, ch <-chan status.Status[T], match func(status.Status[T]) bool) status.Status[T] {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatal("stream closed early")
			}
			if match(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for emission")
		}
	}
}

func TestPlaylistChangePropagatesToStream(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := repo.WatchPlaylists(ctx)

	// first terminal emission: empty list
	collectUntil(t, stream, func(s status.Status[[]media.Playlist]) bool {
		lists, ok := s.Get()
		return ok && len(lists) == 0
	})

	created := repo.CreatePlaylist(context.Background(), "Road trip")
	if !created.IsSuccess() {
		t.Fatalf("create: state=%v kind=%v", created.State(), created.Kind())
	}

	// without resubscribing, the stream converges on the new list
	collectUntil(t, stream, func(s status.Status[[]media.Playlist]) bool {
		lists, ok := s.Get()
		if !ok {
			return false
		}
		for _, p := range lists {
			if p.Name == "Road trip" {
				return true
			}
		}
		return false
	})
}

func TestWatchProvidersReplays(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	select {
	case providers := <-repo.WatchProviders(ctx):
		if len(providers) != 1 || providers[0].Identifier.Kind != provider.KindLocal {
			t.Fatalf("providers = %+v", providers)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no replay")
	}
}

func TestCrossSourcePlaylistMutationIsNotFound(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	server := httptest.NewServer(okSubsonic(emptyAlbumList))
	t.Cleanup(server.Close)
	addSubsonic(t, repo, server.URL)

	got := repo.AddAudioToPlaylist(context.Background(),
		media.URI("local/playlists/1"),
		media.URI("subsonic/1/audio/tr-1"))
	if !got.IsError() || got.Kind() != status.NotFound {
		t.Fatalf("got state=%v kind=%v, want NotFound", got.State(), got.Kind())
	}
}
