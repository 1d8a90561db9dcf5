package repository

import (
	"context"

	"github.com/anuragxone/twelve-remix/internal/datasource"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
)

// The router half of the repository: every method here either resolves its
// URIs to the single compatible source or dispatches to the navigation
// source. When no source, or more than one, claims the URI set, the call
// is NotFound — callers cannot tell "no adapter matched" apart from "the
// adapter said no", and must not need to.

// sortingRule reads the persisted rule for a listing key, defaulting to
// name order.
func (r *Repository) sortingRule(key string) media.SortingRule {
	if rule, ok := r.prefs.SortingRule(key); ok {
		return rule
	}
	return media.SortingRule{Strategy: media.SortByName}
}

func (r *Repository) TypeOf(ctx context.Context, uri media.URI) status.Status[media.ItemType] {
	src := r.sourceOfURIs(uri)
	if src == nil {
		return status.Error[media.ItemType](status.NotFound, nil)
	}
	return src.TypeOf(ctx, uri)
}

func (r *Repository) Activity(ctx context.Context) status.Status[[]media.ActivityTab] {
	return r.navigationSource().Activity(ctx)
}

func (r *Repository) Albums(ctx context.Context) status.Status[[]media.Album] {
	return r.navigationSource().Albums(ctx, r.sortingRule("albums"))
}

func (r *Repository) Artists(ctx context.Context) status.Status[[]media.Artist] {
	return r.navigationSource().Artists(ctx, r.sortingRule("artists"))
}

func (r *Repository) Genres(ctx context.Context) status.Status[[]media.Genre] {
	return r.navigationSource().Genres(ctx, r.sortingRule("genres"))
}

func (r *Repository) Playlists(ctx context.Context) status.Status[[]media.Playlist] {
	return r.navigationSource().Playlists(ctx, r.sortingRule("playlists"))
}

func (r *Repository) Search(ctx context.Context, query string) status.Status[[]media.Item] {
	return r.navigationSource().Search(ctx, query)
}

func (r *Repository) Audio(ctx context.Context, uri media.URI) status.Status[media.Audio] {
	src := r.sourceOfURIs(uri)
	if src == nil {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	return src.Audio(ctx, uri)
}

func (r *Repository) Album(ctx context.Context, uri media.URI) status.Status[media.AlbumWithTracks] {
	src := r.sourceOfURIs(uri)
	if src == nil {
		return status.Error[media.AlbumWithTracks](status.NotFound, nil)
	}
	return src.Album(ctx, uri)
}

func (r *Repository) Artist(ctx context.Context, uri media.URI) status.Status[media.ArtistWorks] {
	src := r.sourceOfURIs(uri)
	if src == nil {
		return status.Error[media.ArtistWorks](status.NotFound, nil)
	}
	return src.Artist(ctx, uri)
}

func (r *Repository) Genre(ctx context.Context, uri media.URI) status.Status[media.GenreContent] {
	src := r.sourceOfURIs(uri)
	if src == nil {
		return status.Error[media.GenreContent](status.NotFound, nil)
	}
	return src.Genre(ctx, uri)
}

func (r *Repository) Playlist(ctx context.Context, uri media.URI) status.Status[media.PlaylistWithTracks] {
	src := r.sourceOfURIs(uri)
	if src == nil {
		return status.Error[media.PlaylistWithTracks](status.NotFound, nil)
	}
	return src.Playlist(ctx, uri)
}

func (r *Repository) AudioPlaylistsStatus(ctx context.Context, audioURI media.URI) status.Status[[]media.PlaylistMembership] {
	src := r.sourceOfURIs(audioURI)
	if src == nil {
		return status.Error[[]media.PlaylistMembership](status.NotFound, nil)
	}
	return src.AudioPlaylistsStatus(ctx, audioURI)
}

// CreatePlaylist creates a playlist on the navigation provider.
func (r *Repository) CreatePlaylist(ctx context.Context, name string) status.Status[media.URI] {
	return r.navigationSource().CreatePlaylist(ctx, name)
}

func (r *Repository) RenamePlaylist(ctx context.Context, uri media.URI, name string) status.Status[media.Playlist] {
	src := r.sourceOfURIs(uri)
	if src == nil {
		return status.Error[media.Playlist](status.NotFound, nil)
	}
	return src.RenamePlaylist(ctx, uri, name)
}

func (r *Repository) DeletePlaylist(ctx context.Context, uri media.URI) status.Status[datasource.Unit] {
	src := r.sourceOfURIs(uri)
	if src == nil {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	return src.DeletePlaylist(ctx, uri)
}

// AddAudioToPlaylist requires both URIs to belong to the same source;
// cross-provider playlist membership does not exist.
func (r *Repository) AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[datasource.Unit] {
	src := r.sourceOfURIs(playlistURI, audioURI)
	if src == nil {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	return src.AddAudioToPlaylist(ctx, playlistURI, audioURI)
}

func (r *Repository) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[datasource.Unit] {
	src := r.sourceOfURIs(playlistURI, audioURI)
	if src == nil {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	return src.RemoveAudioFromPlaylist(ctx, playlistURI, audioURI)
}

func (r *Repository) OnAudioPlayed(ctx context.Context, audioURI media.URI) status.Status[datasource.Unit] {
	src := r.sourceOfURIs(audioURI)
	if src == nil {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	return src.OnAudioPlayed(ctx, audioURI)
}

// LastPlayedAudio resolves the navigation provider's last-played pointer
// into a full audio item.
func (r *Repository) LastPlayedAudio(ctx context.Context) status.Status[media.Audio] {
	nav := r.navigationSource()
	lp, ok := nav.(datasource.LastPlayedProvider)
	if !ok {
		return status.Error[media.Audio](status.NotImplemented, nil)
	}
	return lp.LastPlayedAudio(ctx)
}

// ProviderStatus probes one provider's backend.
func (r *Repository) ProviderStatus(ctx context.Context, id provider.Identifier) status.Status[[]datasource.InfoField] {
	src, ok := r.Source(id)
	if !ok {
		return status.Error[[]datasource.InfoField](status.NotFound, nil)
	}
	return src.Status(ctx)
}
