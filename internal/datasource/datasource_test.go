package datasource

import (
	"context"
	"testing"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/status"
)

func TestDummyEverythingIsNotFound(t *testing.T) {
	d := NewDummy()
	ctx := context.Background()

	results := []interface {
		IsError() bool
		Kind() status.ErrorKind
		State() status.State
	}{
		d.Status(ctx),
		d.TypeOf(ctx, "anything/audio/1"),
		d.Activity(ctx),
		d.Albums(ctx, media.SortingRule{}),
		d.Artists(ctx, media.SortingRule{}),
		d.Genres(ctx, media.SortingRule{}),
		d.Playlists(ctx, media.SortingRule{}),
		d.Search(ctx, "anything"),
		d.Audio(ctx, "anything/audio/1"),
		d.Album(ctx, "anything/albums/1"),
		d.Artist(ctx, "anything/artists/1"),
		d.Genre(ctx, "anything/genres/1"),
		d.Playlist(ctx, "anything/playlists/1"),
		d.AudioPlaylistsStatus(ctx, "anything/audio/1"),
		d.CreatePlaylist(ctx, "x"),
		d.RenamePlaylist(ctx, "anything/playlists/1", "y"),
		d.DeletePlaylist(ctx, "anything/playlists/1"),
		d.AddAudioToPlaylist(ctx, "anything/playlists/1", "anything/audio/1"),
		d.RemoveAudioFromPlaylist(ctx, "anything/playlists/1", "anything/audio/1"),
		d.OnAudioPlayed(ctx, "anything/audio/1"),
	}
	for i, got := range results {
		if !got.IsError() || got.Kind() != status.NotFound {
			t.Errorf("call %d: got state=%v kind=%v, want not_found", i, got.State(), got.Kind())
		}
	}
	if d.CompatibleWith("anything/audio/1") {
		t.Fatal("dummy should claim no URIs")
	}
}

func TestClassifyURI(t *testing.T) {
	prefix := media.URI("subsonic/2")
	cases := []struct {
		uri  media.URI
		want media.ItemType
		ok   bool
	}{
		{"subsonic/2/albums/al-1", media.ItemTypeAlbum, true},
		{"subsonic/2/artists/ar-1", media.ItemTypeArtist, true},
		{"subsonic/2/audio/tr-1", media.ItemTypeAudio, true},
		{"subsonic/2/genres/Rock", media.ItemTypeGenre, true},
		{"subsonic/2/playlists/pl-1", media.ItemTypePlaylist, true},
		{"subsonic/2/videos/v-1", 0, false},
		{"subsonic/3/albums/al-1", 0, false},
		{"subsonic/2", 0, false},
	}
	for _, c := range cases {
		got, ok := ClassifyURI(prefix, c.uri)
		if got != c.want || ok != c.ok {
			t.Errorf("ClassifyURI(%q) = (%v, %v), want (%v, %v)", c.uri, got, ok, c.want, c.ok)
		}
	}
}
