package local

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gompd "github.com/fhs/gompd/v2/mpd"

	"github.com/anuragxone/twelve-remix/internal/infra/mpd"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
)

// fakeCatalog serves a tiny in-memory library of MPD attribute maps.
type fakeCatalog struct {
	songs []gompd.Attrs
	err   error
}

func (f *fakeCatalog) Ping() error { return f.err }

func (f *fakeCatalog) ListAlbums() ([]mpd.AlbumInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[string]bool)
	var out []mpd.AlbumInfo
	for _, song := range f.songs {
		key := song["AlbumArtist"] + "\x00" + song["Album"]
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, mpd.AlbumInfo{Album: song["Album"], AlbumArtist: song["AlbumArtist"]})
	}
	return out, nil
}

func (f *fakeCatalog) ListTag(tag string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := map[string]string{"albumartist": "AlbumArtist", "genre": "Genre"}[tag]
	seen := make(map[string]bool)
	var out []string
	for _, song := range f.songs {
		v := song[key]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeCatalog) FindAlbumTracks(album, albumArtist string) ([]gompd.Attrs, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []gompd.Attrs
	for _, song := range f.songs {
		if song["Album"] == album && song["AlbumArtist"] == albumArtist {
			out = append(out, song)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FindByTag(tag, value string) ([]gompd.Attrs, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := map[string]string{"albumartist": "AlbumArtist", "genre": "Genre"}[tag]
	var out []gompd.Attrs
	for _, song := range f.songs {
		if song[key] == value {
			out = append(out, song)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FindFile(path string) (gompd.Attrs, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, song := range f.songs {
		if song["file"] == path {
			return song, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) Search(query string) ([]gompd.Attrs, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []gompd.Attrs
	for _, song := range f.songs {
		if song["Title"] == query {
			out = append(out, song)
		}
	}
	return out, nil
}

func testLibrary() *fakeCatalog {
	return &fakeCatalog{songs: []gompd.Attrs{
		{
			"file": "music/dummy/01.flac", "Title": "Wandering Star", "Artist": "Portishead",
			"AlbumArtist": "Portishead", "Album": "Dummy", "Track": "3", "Disc": "1",
			"Time": "292", "Genre": "Trip-Hop", "Date": "1994-08-22",
		},
		{
			"file": "music/dummy/02.flac", "Title": "Sour Times", "Artist": "Portishead",
			"AlbumArtist": "Portishead", "Album": "Dummy", "Track": "4", "Disc": "1",
			"Time": "251", "Genre": "Trip-Hop", "Date": "1994-08-22",
		},
		{
			"file": "music/mezzanine/01.flac", "Title": "Angel", "Artist": "Massive Attack",
			"AlbumArtist": "Massive Attack", "Album": "Mezzanine", "Track": "1", "Disc": "1",
			"Time": "379", "Genre": "Trip-Hop", "Date": "1998",
		},
	}}
}

func newTestSource(t *testing.T) (*Source, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err := st.Open(); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(testLibrary(), st, nil), st
}

func TestAudioRoundTrip(t *testing.T) {
	src, _ := newTestSource(t)
	ctx := context.Background()

	uri := audioURI("music/dummy/01.flac")
	got := src.Audio(ctx, uri)
	audio, ok := got.Get()
	if !ok {
		t.Fatalf("Audio() state=%v kind=%v", got.State(), got.Kind())
	}
	if audio.Title != "Wandering Star" {
		t.Errorf("title = %q", audio.Title)
	}
	if audio.DurationMs != 292_000 {
		t.Errorf("duration = %d", audio.DurationMs)
	}
	if audio.Year != 1994 {
		t.Errorf("year = %d", audio.Year)
	}
	if audio.URI != uri || audio.PlaybackURI != uri {
		t.Errorf("uris = %q / %q", audio.URI, audio.PlaybackURI)
	}
}

func TestAudioUnknownFileIsNotFound(t *testing.T) {
	src, _ := newTestSource(t)
	got := src.Audio(context.Background(), audioURI("music/missing.flac"))
	if !got.IsError() || got.Kind() != status.NotFound {
		t.Fatalf("got state=%v kind=%v, want NotFound", got.State(), got.Kind())
	}
}

func TestForeignURIIsNotFound(t *testing.T) {
	src, _ := newTestSource(t)
	got := src.Audio(context.Background(), media.URI("subsonic/1/audio/tr-1"))
	if !got.IsError() || got.Kind() != status.NotFound {
		t.Fatalf("got state=%v kind=%v, want NotFound", got.State(), got.Kind())
	}
}

func TestAlbumGroupsTracks(t *testing.T) {
	src, _ := newTestSource(t)
	got := src.Album(context.Background(), albumURI("Portishead", "Dummy"))
	album, ok := got.Get()
	if !ok {
		t.Fatalf("Album() state=%v kind=%v", got.State(), got.Kind())
	}
	if album.Album.Title != "Dummy" || album.Album.ArtistName != "Portishead" {
		t.Errorf("album = %+v", album.Album)
	}
	if len(album.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(album.Tracks))
	}
	if album.Album.Year != 1994 {
		t.Errorf("year = %d", album.Album.Year)
	}
}

func TestAlbumUnknownIsNotFound(t *testing.T) {
	src, _ := newTestSource(t)
	got := src.Album(context.Background(), albumURI("Nobody", "Nothing"))
	if !got.IsError() || got.Kind() != status.NotFound {
		t.Fatalf("got state=%v kind=%v, want NotFound", got.State(), got.Kind())
	}
}

func TestAlbumsSorted(t *testing.T) {
	src, _ := newTestSource(t)
	got := src.Albums(context.Background(), media.SortingRule{Strategy: media.SortByName})
	albums, ok := got.Get()
	if !ok {
		t.Fatalf("Albums() state=%v", got.State())
	}
	if len(albums) != 2 || albums[0].Title != "Dummy" || albums[1].Title != "Mezzanine" {
		t.Fatalf("albums = %+v", albums)
	}
}

func TestCatalogFailureIsIO(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err := st.Open(); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	src := New(&fakeCatalog{err: errors.New("connection refused")}, st, nil)
	got := src.Albums(context.Background(), media.SortingRule{})
	if !got.IsError() || got.Kind() != status.IO {
		t.Fatalf("got state=%v kind=%v, want IO", got.State(), got.Kind())
	}
}

func TestGenreCollectsAlbumsAndAudios(t *testing.T) {
	src, _ := newTestSource(t)
	got := src.Genre(context.Background(), genreURI("Trip-Hop"))
	content, ok := got.Get()
	if !ok {
		t.Fatalf("Genre() state=%v kind=%v", got.State(), got.Kind())
	}
	if len(content.Audios) != 3 {
		t.Errorf("audios = %d, want 3", len(content.Audios))
	}
	if len(content.AppearsInAlbums) != 2 {
		t.Errorf("albums = %d, want 2", len(content.AppearsInAlbums))
	}
}

func TestPlaylistLifecycle(t *testing.T) {
	src, _ := newTestSource(t)
	ctx := context.Background()

	created := src.CreatePlaylist(ctx, "Evening")
	uri, ok := created.Get()
	if !ok {
		t.Fatalf("CreatePlaylist state=%v", created.State())
	}

	track := audioURI("music/dummy/01.flac")
	if res := src.AddAudioToPlaylist(ctx, uri, track); !res.IsSuccess() {
		t.Fatalf("add: state=%v kind=%v", res.State(), res.Kind())
	}

	loaded := src.Playlist(ctx, uri)
	playlist, ok := loaded.Get()
	if !ok {
		t.Fatalf("Playlist state=%v", loaded.State())
	}
	if playlist.Playlist.Name != "Evening" || len(playlist.Tracks) != 1 {
		t.Fatalf("playlist = %+v", playlist)
	}

	// removing a non-member succeeds without touching anything
	if res := src.RemoveAudioFromPlaylist(ctx, uri, audioURI("music/mezzanine/01.flac")); !res.IsSuccess() {
		t.Fatalf("remove non-member: state=%v kind=%v", res.State(), res.Kind())
	}

	memberships := src.AudioPlaylistsStatus(ctx, track)
	rows, ok := memberships.Get()
	if !ok || len(rows) != 1 || !rows[0].HasAudio {
		t.Fatalf("memberships = %+v", rows)
	}

	if res := src.DeletePlaylist(ctx, uri); !res.IsSuccess() {
		t.Fatalf("delete: state=%v kind=%v", res.State(), res.Kind())
	}
	if res := src.Playlist(ctx, uri); !res.IsError() || res.Kind() != status.NotFound {
		t.Fatalf("after delete: state=%v kind=%v", res.State(), res.Kind())
	}
}

func TestPlaylistDropsVanishedTracks(t *testing.T) {
	src, st := newTestSource(t)
	ctx := context.Background()

	id, err := st.CreatePlaylist("Mixed")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.AddToPlaylist(id, string(audioURI("music/dummy/01.flac"))); err != nil {
		t.Fatal(err)
	}
	if err := st.AddToPlaylist(id, string(audioURI("music/gone.flac"))); err != nil {
		t.Fatal(err)
	}

	loaded := src.Playlist(ctx, playlistURI(id))
	playlist, ok := loaded.Get()
	if !ok {
		t.Fatalf("Playlist state=%v", loaded.State())
	}
	if len(playlist.Tracks) != 1 || playlist.Tracks[0].Title != "Wandering Star" {
		t.Fatalf("tracks = %+v", playlist.Tracks)
	}
}

func TestOnAudioPlayedFeedsMostPlayed(t *testing.T) {
	src, _ := newTestSource(t)
	ctx := context.Background()

	if res := src.OnAudioPlayed(ctx, audioURI("music/mezzanine/01.flac")); !res.IsSuccess() {
		t.Fatalf("OnAudioPlayed state=%v kind=%v", res.State(), res.Kind())
	}
	src.OnAudioPlayed(ctx, audioURI("music/dummy/02.flac"))

	got := src.Activity(ctx)
	tabs, ok := got.Get()
	if !ok || len(tabs) != 2 {
		t.Fatalf("tabs = %+v", tabs)
	}
	if tabs[0].Title != "Most played" || len(tabs[0].Items) != 2 {
		t.Fatalf("tab = %+v", tabs[0])
	}
	titles := make(map[string]bool)
	for _, item := range tabs[0].Items {
		audio, ok := item.(media.Audio)
		if !ok {
			t.Fatalf("non-audio item %+v", item)
		}
		titles[audio.Title] = true
	}
	if !titles["Angel"] || !titles["Sour Times"] {
		t.Fatalf("most played titles = %v", titles)
	}
	if tabs[1].Title != "Recently played" {
		t.Fatalf("second tab = %+v", tabs[1])
	}
	recent, ok := tabs[1].Items[0].(media.Audio)
	if !ok || recent.Title != "Sour Times" {
		t.Fatalf("most recent item = %+v", tabs[1].Items[0])
	}
}

func TestGCStatsDropsVanished(t *testing.T) {
	src, st := newTestSource(t)
	ctx := context.Background()

	if err := st.RecordPlayback(string(audioURI("music/dummy/01.flac"))); err != nil {
		t.Fatal(err)
	}
	if err := st.RecordPlayback(string(audioURI("music/deleted.flac"))); err != nil {
		t.Fatal(err)
	}

	if err := src.GCStats(ctx); err != nil {
		t.Fatalf("GCStats: %v", err)
	}
	uris, err := st.StatsURIs()
	if err != nil {
		t.Fatal(err)
	}
	if len(uris) != 1 || uris[0] != string(audioURI("music/dummy/01.flac")) {
		t.Fatalf("remaining = %v", uris)
	}
}

func TestSearchMixesKinds(t *testing.T) {
	src, _ := newTestSource(t)
	got := src.Search(context.Background(), "Angel")
	items, ok := got.Get()
	if !ok {
		t.Fatalf("Search state=%v", got.State())
	}
	var foundAudio bool
	for _, item := range items {
		if audio, ok := item.(media.Audio); ok && audio.Title == "Angel" {
			foundAudio = true
		}
	}
	if !foundAudio {
		t.Fatalf("song not found in %+v", items)
	}
}
