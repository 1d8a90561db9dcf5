package qobuz

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
)

type fakeCatalog struct {
	loginErr   error
	loginCalls int
	albums     map[string]AlbumDetail
	streams    map[int]StreamInfo
	tracks     []TrackSummary
}

func (f *fakeCatalog) Login(email, password string) error {
	f.loginCalls++
	return f.loginErr
}

func (f *fakeCatalog) SearchAlbums(query string, limit int) ([]AlbumSummary, error) {
	var out []AlbumSummary
	for _, album := range f.albums {
		out = append(out, album.AlbumSummary)
	}
	return out, nil
}

func (f *fakeCatalog) SearchArtists(query string, limit int) ([]ArtistSummary, error) {
	return nil, nil
}

func (f *fakeCatalog) SearchTracks(query string, limit int) ([]TrackSummary, error) {
	return f.tracks, nil
}

func (f *fakeCatalog) Album(id string) (AlbumDetail, error) {
	album, ok := f.albums[id]
	if !ok {
		return AlbumDetail{}, errors.New("album not found")
	}
	return album, nil
}

func (f *fakeCatalog) Artist(id int) (ArtistDetail, error) {
	return ArtistDetail{}, errors.New("404")
}

func (f *fakeCatalog) Playlist(id int) (PlaylistDetail, error) {
	return PlaylistDetail{}, errors.New("404")
}

func (f *fakeCatalog) TrackStream(id int) (StreamInfo, error) {
	stream, ok := f.streams[id]
	if !ok {
		return StreamInfo{}, errors.New("not found")
	}
	return stream, nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		albums: map[string]AlbumDetail{
			"ab12": {
				AlbumSummary: AlbumSummary{ID: "ab12", Title: "Homogenic", ArtistName: "Björk", Year: 1997},
				Tracks: []TrackSummary{
					{ID: 100, Title: "Hunter", ArtistName: "Björk", AlbumID: "ab12", AlbumTitle: "Homogenic", DurationMs: 255_000, TrackNumber: 1},
					{ID: 101, Title: "Jóga", ArtistName: "Björk", AlbumID: "ab12", AlbumTitle: "Homogenic", DurationMs: 305_000, TrackNumber: 2},
				},
			},
		},
		streams: map[int]StreamInfo{
			100: {URL: "https://streaming.qobuz.com/file/100.flac", MimeType: "audio/flac"},
			101: {URL: "https://streaming.qobuz.com/file/101.flac", MimeType: "audio/flac"},
		},
	}
}

func newTestSource(t *testing.T, catalog Catalog) (*Source, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err := st.Open(); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	id := provider.Identifier{Kind: provider.KindQobuz, InstanceID: 3}
	cfg := store.QobuzConfig{ID: 3, Name: "Qobuz", Email: "alice@example.com", Password: "pw"}
	return New(id, cfg, catalog, st), st
}

func TestAudioResolvesThroughAlbum(t *testing.T) {
	src, _ := newTestSource(t, testCatalog())
	got := src.Audio(context.Background(), media.URI("qobuz/3/audio/ab12/101"))
	audio, ok := got.Get()
	if !ok {
		t.Fatalf("Audio state=%v kind=%v", got.State(), got.Kind())
	}
	if audio.Title != "Jóga" || audio.TrackNumber != 2 {
		t.Errorf("audio = %+v", audio)
	}
	if audio.PlaybackURI != "https://streaming.qobuz.com/file/101.flac" {
		t.Errorf("playback uri = %q", audio.PlaybackURI)
	}
	if audio.AlbumURI != media.URI("qobuz/3/albums/ab12") {
		t.Errorf("album uri = %q", audio.AlbumURI)
	}
}

func TestAudioUnknownTrackIsNotFound(t *testing.T) {
	src, _ := newTestSource(t, testCatalog())
	got := src.Audio(context.Background(), media.URI("qobuz/3/audio/ab12/999"))
	if !got.IsError() || got.Kind() != status.NotFound {
		t.Fatalf("got state=%v kind=%v, want NotFound", got.State(), got.Kind())
	}
}

func TestLoginFailureIsInvalidCredentials(t *testing.T) {
	catalog := testCatalog()
	catalog.loginErr = errors.New("login failed")
	src, _ := newTestSource(t, catalog)

	got := src.Album(context.Background(), media.URI("qobuz/3/albums/ab12"))
	if !got.IsError() || got.Kind() != status.InvalidCredentials {
		t.Fatalf("got state=%v kind=%v, want InvalidCredentials", got.State(), got.Kind())
	}
}

func TestLoginHappensOnce(t *testing.T) {
	catalog := testCatalog()
	src, _ := newTestSource(t, catalog)
	ctx := context.Background()

	src.Album(ctx, media.URI("qobuz/3/albums/ab12"))
	src.Album(ctx, media.URI("qobuz/3/albums/ab12"))
	if catalog.loginCalls != 1 {
		t.Fatalf("login calls = %d, want 1", catalog.loginCalls)
	}
}

func TestListingsAreNotImplemented(t *testing.T) {
	src, _ := newTestSource(t, testCatalog())
	ctx := context.Background()

	checks := []status.ErrorKind{
		src.Albums(ctx, media.SortingRule{}).Kind(),
		src.Artists(ctx, media.SortingRule{}).Kind(),
		src.Genres(ctx, media.SortingRule{}).Kind(),
		src.Playlists(ctx, media.SortingRule{}).Kind(),
		src.CreatePlaylist(ctx, "x").Kind(),
		src.DeletePlaylist(ctx, media.URI("qobuz/3/playlists/1")).Kind(),
	}
	for i, kind := range checks {
		if kind != status.NotImplemented {
			t.Errorf("check %d: kind = %v, want NotImplemented", i, kind)
		}
	}
}

func TestForeignURIIsNotFound(t *testing.T) {
	src, _ := newTestSource(t, testCatalog())
	got := src.Album(context.Background(), media.URI("qobuz/9/albums/ab12"))
	if !got.IsError() || got.Kind() != status.NotFound {
		t.Fatalf("got state=%v kind=%v, want NotFound", got.State(), got.Kind())
	}
}

func TestOnAudioPlayedRecordsStreamURL(t *testing.T) {
	src, st := newTestSource(t, testCatalog())
	got := src.OnAudioPlayed(context.Background(), media.URI("qobuz/3/audio/ab12/100"))
	if !got.IsSuccess() {
		t.Fatalf("OnAudioPlayed state=%v kind=%v", got.State(), got.Kind())
	}
	location, ok, err := st.LastPlayed("qobuz:alice@example.com")
	if err != nil || !ok {
		t.Fatalf("LastPlayed: ok=%v err=%v", ok, err)
	}
	if location != "https://streaming.qobuz.com/file/100.flac" {
		t.Errorf("location = %q", location)
	}
}

func TestSearchMixesKinds(t *testing.T) {
	catalog := testCatalog()
	catalog.tracks = catalog.albums["ab12"].Tracks
	src, _ := newTestSource(t, catalog)

	got := src.Search(context.Background(), "björk")
	items, ok := got.Get()
	if !ok {
		t.Fatalf("Search state=%v", got.State())
	}
	var albums, audios int
	for _, item := range items {
		switch item.(type) {
		case media.Album:
			albums++
		case media.Audio:
			audios++
		}
	}
	if albums != 1 || audios != 2 {
		t.Fatalf("albums=%d audios=%d", albums, audios)
	}
}
