// Package datasource defines the contract every backend adapter fulfills.
// A data source translates one backend's catalog into the shared media
// entities, mints URIs under its own prefix, and maps backend failures into
// the canonical error taxonomy. All calls are plain request/response; change
// signals let the repository re-run affected queries.
package datasource

import (
	"context"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

// Unit is the payload of operations that carry no data on success.
type Unit = struct{}

// InfoField is one line of a source's health/info report.
type InfoField struct {
	Name  string
	Value string
}

// Source is one backend adapter.
//
// Every URI-taking method must be called only with URIs the source reported
// as compatible; behavior on foreign URIs is a NotFound error, never a
// panic. Listings honor the sorting rule on a best-effort basis: sources
// whose backend cannot sort by the requested field return their native
// order.
type Source interface {
	// Provider returns the configured provider instance this source serves.
	Provider() provider.Identifier

	// CompatibleWith reports whether uri was minted by this source.
	CompatibleWith(uri media.URI) bool

	// Status probes the backend and returns health/info fields. It never
	// panics; an unreachable or rejecting backend surfaces as an IO or
	// InvalidCredentials error.
	Status(ctx context.Context) status.Status[[]InfoField]

	// TypeOf classifies a compatible URI.
	TypeOf(ctx context.Context, uri media.URI) status.Status[media.ItemType]

	// Activity returns the backend's suggestion rows for the home feed.
	Activity(ctx context.Context) status.Status[[]media.ActivityTab]

	// Albums lists all albums.
	Albums(ctx context.Context, sort media.SortingRule) status.Status[[]media.Album]

	// Artists lists all artists.
	Artists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Artist]

	// Genres lists all genres.
	Genres(ctx context.Context, sort media.SortingRule) status.Status[[]media.Genre]

	// Playlists lists all playlists.
	Playlists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Playlist]

	// Search returns items matching the query across all entity classes.
	Search(ctx context.Context, query string) status.Status[[]media.Item]

	// Audio resolves one audio item, including its playback URI.
	Audio(ctx context.Context, uri media.URI) status.Status[media.Audio]

	// Album resolves one album with its tracks.
	Album(ctx context.Context, uri media.URI) status.Status[media.AlbumWithTracks]

	// Artist resolves one artist with their works.
	Artist(ctx context.Context, uri media.URI) status.Status[media.ArtistWorks]

	// Genre resolves one genre with its content.
	Genre(ctx context.Context, uri media.URI) status.Status[media.GenreContent]

	// Playlist resolves one playlist with its tracks.
	Playlist(ctx context.Context, uri media.URI) status.Status[media.PlaylistWithTracks]

	// AudioPlaylistsStatus reports, for every playlist, whether the audio
	// item is a member.
	AudioPlaylistsStatus(ctx context.Context, audioURI media.URI) status.Status[[]media.PlaylistMembership]

	// CreatePlaylist creates an empty playlist and returns its URI.
	CreatePlaylist(ctx context.Context, name string) status.Status[media.URI]

	// RenamePlaylist changes a playlist's name.
	RenamePlaylist(ctx context.Context, uri media.URI, name string) status.Status[media.Playlist]

	// DeletePlaylist removes a playlist.
	DeletePlaylist(ctx context.Context, uri media.URI) status.Status[Unit]

	// AddAudioToPlaylist appends an audio item to a playlist.
	AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[Unit]

	// RemoveAudioFromPlaylist removes an audio item from a playlist.
	// Removing a non-member succeeds without effect.
	RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[Unit]

	// OnAudioPlayed records that playback of a compatible audio item
	// started, for backends that track a last-played position.
	OnAudioPlayed(ctx context.Context, audioURI media.URI) status.Status[Unit]

	// PlaylistsChanged signals after any mutation that can change playlist
	// listings or contents on this source.
	PlaylistsChanged() *watch.Signal
}

// LastPlayedProvider is implemented by sources that can resolve their
// recorded last-played pointer back into a full audio item.
type LastPlayedProvider interface {
	LastPlayedAudio(ctx context.Context) status.Status[media.Audio]
}

// ContentWatcher is implemented by sources whose catalog can change
// underneath them, such as the local library when a volume mounts.
type ContentWatcher interface {
	ContentChanged() *watch.Signal
}
