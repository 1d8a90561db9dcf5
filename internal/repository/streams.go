package repository

import (
	"context"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

// The reactive half: every Watch method returns a stream that emits
// Loading, then the call result, and re-runs whenever one of its triggers
// fires. Re-runs are latest-wins: a new trigger cancels the in-flight
// evaluation and its result is discarded. The channel closes when ctx is
// done.

func watchStatus[T any](ctx context.Context, triggers []*watch.Signal, run func(ctx context.Context) status.Status[T]) <-chan status.Status[T] {
	out := make(chan status.Status[T], 1)
	kick := make(chan struct{}, 1)
	for _, sig := range triggers {
		go func(ch <-chan struct{}) {
			for range ch {
				watch.SendLatest(kick, struct{}{})
			}
		}(sig.Subscribe(ctx))
	}

	go func() {
		defer close(out)
		for {
			evalCtx, cancel := context.WithCancel(ctx)
			watch.SendLatest(out, status.Loading[T]())

			done := make(chan status.Status[T], 1)
			go func() { done <- run(evalCtx) }()

			select {
			case result := <-done:
				cancel()
				watch.SendLatest(out, result)
				select {
				case <-kick:
				case <-ctx.Done():
					return
				}
			case <-kick:
				// superseded; abandon the in-flight evaluation
				cancel()
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()
	return out
}

// listingTriggers re-run URI-less queries: the provider set changed, a
// preference (navigation provider, sorting) changed, or the local catalog
// changed underneath us.
func (r *Repository) listingTriggers() []*watch.Signal {
	triggers := []*watch.Signal{r.store.ProvidersChanged(), r.prefs.Changed()}
	if r.local != nil {
		triggers = append(triggers, r.local.ContentChanged())
	}
	return triggers
}

func (r *Repository) playlistTriggers() []*watch.Signal {
	return append(r.listingTriggers(), r.playlistsChanged)
}

func (r *Repository) WatchActivity(ctx context.Context) <-chan status.Status[[]media.ActivityTab] {
	return watchStatus(ctx, r.listingTriggers(), r.Activity)
}

func (r *Repository) WatchAlbums(ctx context.Context) <-chan status.Status[[]media.Album] {
	return watchStatus(ctx, r.listingTriggers(), r.Albums)
}

func (r *Repository) WatchArtists(ctx context.Context) <-chan status.Status[[]media.Artist] {
	return watchStatus(ctx, r.listingTriggers(), r.Artists)
}

func (r *Repository) WatchGenres(ctx context.Context) <-chan status.Status[[]media.Genre] {
	return watchStatus(ctx, r.listingTriggers(), r.Genres)
}

func (r *Repository) WatchPlaylists(ctx context.Context) <-chan status.Status[[]media.Playlist] {
	return watchStatus(ctx, r.playlistTriggers(), r.Playlists)
}

func (r *Repository) WatchSearch(ctx context.Context, query string) <-chan status.Status[[]media.Item] {
	return watchStatus(ctx, r.listingTriggers(), func(ctx context.Context) status.Status[[]media.Item] {
		return r.Search(ctx, query)
	})
}

func (r *Repository) WatchAlbum(ctx context.Context, uri media.URI) <-chan status.Status[media.AlbumWithTracks] {
	return watchStatus(ctx, r.listingTriggers(), func(ctx context.Context) status.Status[media.AlbumWithTracks] {
		return r.Album(ctx, uri)
	})
}

func (r *Repository) WatchArtist(ctx context.Context, uri media.URI) <-chan status.Status[media.ArtistWorks] {
	return watchStatus(ctx, r.listingTriggers(), func(ctx context.Context) status.Status[media.ArtistWorks] {
		return r.Artist(ctx, uri)
	})
}

func (r *Repository) WatchGenre(ctx context.Context, uri media.URI) <-chan status.Status[media.GenreContent] {
	return watchStatus(ctx, r.listingTriggers(), func(ctx context.Context) status.Status[media.GenreContent] {
		return r.Genre(ctx, uri)
	})
}

func (r *Repository) WatchPlaylist(ctx context.Context, uri media.URI) <-chan status.Status[media.PlaylistWithTracks] {
	return watchStatus(ctx, r.playlistTriggers(), func(ctx context.Context) status.Status[media.PlaylistWithTracks] {
		return r.Playlist(ctx, uri)
	})
}

func (r *Repository) WatchAudioPlaylistsStatus(ctx context.Context, audioURI media.URI) <-chan status.Status[[]media.PlaylistMembership] {
	return watchStatus(ctx, r.playlistTriggers(), func(ctx context.Context) status.Status[[]media.PlaylistMembership] {
		return r.AudioPlaylistsStatus(ctx, audioURI)
	})
}

func (r *Repository) WatchLastPlayedAudio(ctx context.Context) <-chan status.Status[media.Audio] {
	triggers := []*watch.Signal{
		r.store.ProvidersChanged(),
		r.prefs.Changed(),
		r.store.LastPlayedChanged(),
	}
	return watchStatus(ctx, triggers, r.LastPlayedAudio)
}

// WatchProviders streams the visible provider list, replaying the current
// one to new subscribers.
func (r *Repository) WatchProviders(ctx context.Context) <-chan []provider.Provider {
	out := make(chan []provider.Provider, 1)
	in := r.bindings.Watch(ctx)
	go func() {
		defer close(out)
		for bindings := range in {
			var providers []provider.Provider
			for _, b := range bindings {
				if b.Provider.Visible {
					providers = append(providers, b.Provider)
				}
			}
			watch.SendLatest(out, providers)
		}
	}()
	return out
}
