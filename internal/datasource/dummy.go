package datasource

import (
	"context"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

// Dummy is the source of last resort, used as the navigation provider when
// no real provider exists. Every operation fails with NotFound: there is
// nothing behind it, so callers never need a nil check and surfaces render
// the error state uniformly.
type Dummy struct {
	playlistsChanged *watch.Signal
}

// NewDummy returns the empty fallback source.
func NewDummy() *Dummy {
	return &Dummy{playlistsChanged: watch.NewSignal()}
}

func (d *Dummy) Provider() provider.Identifier {
	return provider.Identifier{Kind: provider.KindLocal, InstanceID: -1}
}

func (d *Dummy) CompatibleWith(uri media.URI) bool { return false }

func (d *Dummy) Status(ctx context.Context) status.Status[[]InfoField] {
	return status.Error[[]InfoField](status.NotFound, nil)
}

func (d *Dummy) TypeOf(ctx context.Context, uri media.URI) status.Status[media.ItemType] {
	return status.Error[media.ItemType](status.NotFound, nil)
}

func (d *Dummy) Activity(ctx context.Context) status.Status[[]media.ActivityTab] {
	return status.Error[[]media.ActivityTab](status.NotFound, nil)
}

func (d *Dummy) Albums(ctx context.Context, sort media.SortingRule) status.Status[[]media.Album] {
	return status.Error[[]media.Album](status.NotFound, nil)
}

func (d *Dummy) Artists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Artist] {
	return status.Error[[]media.Artist](status.NotFound, nil)
}

func (d *Dummy) Genres(ctx context.Context, sort media.SortingRule) status.Status[[]media.Genre] {
	return status.Error[[]media.Genre](status.NotFound, nil)
}

func (d *Dummy) Playlists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Playlist] {
	return status.Error[[]media.Playlist](status.NotFound, nil)
}

func (d *Dummy) Search(ctx context.Context, query string) status.Status[[]media.Item] {
	return status.Error[[]media.Item](status.NotFound, nil)
}

func (d *Dummy) Audio(ctx context.Context, uri media.URI) status.Status[media.Audio] {
	return status.Error[media.Audio](status.NotFound, nil)
}

func (d *Dummy) Album(ctx context.Context, uri media.URI) status.Status[media.AlbumWithTracks] {
	return status.Error[media.AlbumWithTracks](status.NotFound, nil)
}

func (d *Dummy) Artist(ctx context.Context, uri media.URI) status.Status[media.ArtistWorks] {
	return status.Error[media.ArtistWorks](status.NotFound, nil)
}

func (d *Dummy) Genre(ctx context.Context, uri media.URI) status.Status[media.GenreContent] {
	return status.Error[media.GenreContent](status.NotFound, nil)
}

func (d *Dummy) Playlist(ctx context.Context, uri media.URI) status.Status[media.PlaylistWithTracks] {
	return status.Error[media.PlaylistWithTracks](status.NotFound, nil)
}

func (d *Dummy) AudioPlaylistsStatus(ctx context.Context, audioURI media.URI) status.Status[[]media.PlaylistMembership] {
	return status.Error[[]media.PlaylistMembership](status.NotFound, nil)
}

func (d *Dummy) CreatePlaylist(ctx context.Context, name string) status.Status[media.URI] {
	return status.Error[media.URI](status.NotFound, nil)
}

func (d *Dummy) RenamePlaylist(ctx context.Context, uri media.URI, name string) status.Status[media.Playlist] {
	return status.Error[media.Playlist](status.NotFound, nil)
}

func (d *Dummy) DeletePlaylist(ctx context.Context, uri media.URI) status.Status[Unit] {
	return status.Error[Unit](status.NotFound, nil)
}

func (d *Dummy) AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[Unit] {
	return status.Error[Unit](status.NotFound, nil)
}

func (d *Dummy) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[Unit] {
	return status.Error[Unit](status.NotFound, nil)
}

func (d *Dummy) OnAudioPlayed(ctx context.Context, audioURI media.URI) status.Status[Unit] {
	return status.Error[Unit](status.NotFound, nil)
}

func (d *Dummy) PlaylistsChanged() *watch.Signal { return d.playlistsChanged }
