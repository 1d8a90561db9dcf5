// Package jellyfin adapts a Jellyfin server to the data source contract.
//
// Jellyfin item ids are UUIDs; a URI whose id segment does not parse as one
// cannot exist on the server and resolves to NotFound without a network
// call. Playlist deletion is not exposed by the client API surface we
// authenticate with, so it reports NotImplemented.
package jellyfin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/datasource"
	"github.com/anuragxone/twelve-remix/internal/infra/jellyfinapi"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

// Source is one configured Jellyfin server.
type Source struct {
	id     provider.Identifier
	cfg    store.JellyfinConfig
	client *jellyfinapi.Client
	store  *store.Store
	prefix media.URI

	playlistsChanged *watch.Signal
}

// New creates a source for one configured server.
func New(id provider.Identifier, cfg store.JellyfinConfig, st *store.Store) *Source {
	return &Source{
		id:               id,
		cfg:              cfg,
		client:           jellyfinapi.NewClient(cfg.URL, cfg.Username, cfg.Password, cfg.DeviceID),
		store:            st,
		prefix:           media.URI("jellyfin").Append(strconv.FormatInt(id.InstanceID, 10)),
		playlistsChanged: watch.NewSignal(),
	}
}

func (s *Source) Provider() provider.Identifier { return s.id }

func (s *Source) CompatibleWith(uri media.URI) bool { return uri.HasPrefix(s.prefix) }

func (s *Source) PlaylistsChanged() *watch.Signal { return s.playlistsChanged }

func (s *Source) lastPlayedKey() string {
	return fmt.Sprintf("jellyfin:%s@%s", s.cfg.Username, s.cfg.URL)
}

// Status fetches the server identity, verifying the session on the way.
func (s *Source) Status(ctx context.Context) status.Status[[]datasource.InfoField] {
	info, err := s.client.System(ctx)
	if err != nil {
		return mapError[[]datasource.InfoField](err)
	}
	return status.Success([]datasource.InfoField{
		{Name: "Server", Value: info.ServerName},
		{Name: "Version", Value: info.Version},
		{Name: "Username", Value: s.cfg.Username},
	})
}

// LastPlayedAudio resolves the recorded stream location back into the
// audio item it was minted from. Locations look like
// {base}/Audio/{id}/stream.
func (s *Source) LastPlayedAudio(ctx context.Context) status.Status[media.Audio] {
	location, ok, err := s.store.LastPlayed(s.lastPlayedKey())
	if err != nil {
		return status.Error[media.Audio](status.IO, err)
	}
	if !ok {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	trimmed := strings.TrimSuffix(location, "/stream")
	id := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if _, err := uuid.Parse(id); err != nil {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	item, err := s.client.Item(ctx, id)
	if err != nil {
		return mapError[media.Audio](err)
	}
	return status.Success(s.toAudio(*item))
}

// mapError translates a backend failure into the canonical taxonomy.
func mapError[T any](err error) status.Status[T] {
	var statusErr *jellyfinapi.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return status.Error[T](status.NotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return status.Error[T](status.InvalidCredentials, err)
		default:
			return status.Error[T](status.IO, err)
		}
	}
	return status.Error[T](status.IO, err)
}

// entityID extracts and validates the backend UUID from one of this
// source's URIs.
func (s *Source) entityID(uri media.URI, want media.ItemType) (string, bool) {
	got, ok := datasource.ClassifyURI(s.prefix, uri)
	if !ok || got != want {
		return "", false
	}
	id := uri.LastSegment()
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func (s *Source) albumURI(id string) media.URI    { return s.prefix.Append("albums", id) }
func (s *Source) artistURI(id string) media.URI   { return s.prefix.Append("artists", id) }
func (s *Source) audioURI(id string) media.URI    { return s.prefix.Append("audio", id) }
func (s *Source) genreURI(id string) media.URI    { return s.prefix.Append("genres", id) }
func (s *Source) playlistURI(id string) media.URI { return s.prefix.Append("playlists", id) }

func firstRef(refs []jellyfinapi.NamedRef) jellyfinapi.NamedRef {
	if len(refs) == 0 {
		return jellyfinapi.NamedRef{}
	}
	return refs[0]
}

func (s *Source) toAlbum(item jellyfinapi.Item) media.Album {
	artist := firstRef(item.AlbumArtists)
	return media.Album{
		URI:        s.albumURI(item.ID),
		Title:      item.Name,
		ArtistURI:  s.artistURI(artist.ID),
		ArtistName: item.AlbumArtist,
		Year:       item.ProductionYear,
		Thumbnail:  media.URI(s.client.ImageURL(item.ID, item.ImageTags.Primary)),
	}
}

func (s *Source) toArtist(item jellyfinapi.Item) media.Artist {
	return media.Artist{
		URI:       s.artistURI(item.ID),
		Name:      item.Name,
		Thumbnail: media.URI(s.client.ImageURL(item.ID, item.ImageTags.Primary)),
	}
}

func (s *Source) toGenre(item jellyfinapi.Item) media.Genre {
	return media.Genre{URI: s.genreURI(item.ID), Name: item.Name}
}

func (s *Source) toPlaylist(item jellyfinapi.Item) media.Playlist {
	return media.Playlist{URI: s.playlistURI(item.ID), Name: item.Name}
}

func (s *Source) toAudio(item jellyfinapi.Item) media.Audio {
	artist := firstRef(item.ArtistItems)
	genre := firstRef(item.GenreItems)
	return media.Audio{
		URI:         s.audioURI(item.ID),
		PlaybackURI: media.URI(s.client.StreamURL(item.ID)),
		MimeType:    "audio/*",
		Title:       item.Name,
		Type:        media.AudioTypeMusic,
		DurationMs:  item.DurationMs(),
		ArtistURI:   s.artistURI(artist.ID),
		ArtistName:  artist.Name,
		AlbumURI:    s.albumURI(item.AlbumID),
		AlbumTitle:  item.Album,
		DiscNumber:  item.ParentIndex,
		TrackNumber: item.IndexNumber,
		GenreURI:    s.genreURI(genre.ID),
		GenreName:   genre.Name,
		Year:        item.ProductionYear,
	}
}

func (s *Source) TypeOf(ctx context.Context, uri media.URI) status.Status[media.ItemType] {
	if t, ok := datasource.ClassifyURI(s.prefix, uri); ok {
		return status.Success(t)
	}
	return status.Error[media.ItemType](status.NotFound, nil)
}

func (s *Source) Activity(ctx context.Context) status.Status[[]media.ActivityTab] {
	var tabs []media.ActivityTab

	latest, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "MusicAlbum",
		SortBy:           "DateCreated",
		SortOrder:        "Descending",
	})
	if err != nil {
		return mapError[[]media.ActivityTab](err)
	}
	if len(latest) > 20 {
		latest = latest[:20]
	}
	if len(latest) > 0 {
		items := make([]media.Item, 0, len(latest))
		for _, item := range latest {
			items = append(items, s.toAlbum(item))
		}
		tabs = append(tabs, media.ActivityTab{
			URI:   s.prefix.Append("activity", "latest"),
			Title: "Recently added",
			Items: items,
		})
	}

	random, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "Audio",
		SortBy:           "Random",
	})
	if err != nil {
		return mapError[[]media.ActivityTab](err)
	}
	if len(random) > 20 {
		random = random[:20]
	}
	if len(random) > 0 {
		items := make([]media.Item, 0, len(random))
		for _, item := range random {
			items = append(items, s.toAudio(item))
		}
		tabs = append(tabs, media.ActivityTab{
			URI:   s.prefix.Append("activity", "random"),
			Title: "Random",
			Items: items,
		})
	}
	return status.Success(tabs)
}

// sortOptions maps a sorting rule to the server-side sort parameters, so
// listings are ordered by the backend instead of locally.
func sortOptions(rule media.SortingRule) (sortBy, sortOrder string) {
	switch rule.Strategy {
	case media.SortByCreationDate:
		sortBy = "DateCreated"
	case media.SortByModificationDate:
		sortBy = "DateLastContentAdded"
	case media.SortByArtistName:
		sortBy = "AlbumArtist,SortName"
	case media.SortByPlayCount:
		sortBy = "PlayCount"
	default:
		sortBy = "SortName"
	}
	sortOrder = "Ascending"
	if rule.Reverse {
		sortOrder = "Descending"
	}
	return sortBy, sortOrder
}

func (s *Source) Albums(ctx context.Context, sort media.SortingRule) status.Status[[]media.Album] {
	sortBy, sortOrder := sortOptions(sort)
	items, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "MusicAlbum",
		SortBy:           sortBy,
		SortOrder:        sortOrder,
	})
	if err != nil {
		return mapError[[]media.Album](err)
	}
	out := make([]media.Album, 0, len(items))
	for _, item := range items {
		out = append(out, s.toAlbum(item))
	}
	return status.Success(out)
}

func (s *Source) Artists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Artist] {
	sortBy, sortOrder := sortOptions(sort)
	items, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "MusicArtist",
		SortBy:           sortBy,
		SortOrder:        sortOrder,
	})
	if err != nil {
		return mapError[[]media.Artist](err)
	}
	out := make([]media.Artist, 0, len(items))
	for _, item := range items {
		out = append(out, s.toArtist(item))
	}
	return status.Success(out)
}

func (s *Source) Genres(ctx context.Context, sort media.SortingRule) status.Status[[]media.Genre] {
	items, err := s.client.MusicGenres(ctx)
	if err != nil {
		return mapError[[]media.Genre](err)
	}
	out := make([]media.Genre, 0, len(items))
	for _, item := range items {
		out = append(out, s.toGenre(item))
	}
	out = media.SortedBy(out, sort.Reverse, func(a, b media.Genre) bool { return a.Name < b.Name })
	return status.Success(out)
}

func (s *Source) Playlists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Playlist] {
	sortBy, sortOrder := sortOptions(sort)
	items, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "Playlist",
		SortBy:           sortBy,
		SortOrder:        sortOrder,
	})
	if err != nil {
		return mapError[[]media.Playlist](err)
	}
	out := make([]media.Playlist, 0, len(items))
	for _, item := range items {
		out = append(out, s.toPlaylist(item))
	}
	return status.Success(out)
}

func (s *Source) Search(ctx context.Context, query string) status.Status[[]media.Item] {
	found, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "MusicAlbum,MusicArtist,Audio,Playlist",
		SearchTerm:       query,
	})
	if err != nil {
		return mapError[[]media.Item](err)
	}
	items := make([]media.Item, 0, len(found))
	for _, item := range found {
		switch item.Type {
		case "MusicAlbum":
			items = append(items, s.toAlbum(item))
		case "MusicArtist":
			items = append(items, s.toArtist(item))
		case "Audio":
			items = append(items, s.toAudio(item))
		case "Playlist":
			items = append(items, s.toPlaylist(item))
		}
	}
	return status.Success(items)
}

func (s *Source) Audio(ctx context.Context, uri media.URI) status.Status[media.Audio] {
	id, ok := s.entityID(uri, media.ItemTypeAudio)
	if !ok {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	item, err := s.client.Item(ctx, id)
	if err != nil {
		return mapError[media.Audio](err)
	}
	return status.Success(s.toAudio(*item))
}

func (s *Source) Album(ctx context.Context, uri media.URI) status.Status[media.AlbumWithTracks] {
	id, ok := s.entityID(uri, media.ItemTypeAlbum)
	if !ok {
		return status.Error[media.AlbumWithTracks](status.NotFound, nil)
	}
	item, err := s.client.Item(ctx, id)
	if err != nil {
		return mapError[media.AlbumWithTracks](err)
	}
	songs, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "Audio",
		ParentID:         id,
		SortBy:           "ParentIndexNumber,IndexNumber",
	})
	if err != nil {
		return mapError[media.AlbumWithTracks](err)
	}
	tracks := make([]media.Audio, 0, len(songs))
	for _, song := range songs {
		tracks = append(tracks, s.toAudio(song))
	}
	return status.Success(media.AlbumWithTracks{Album: s.toAlbum(*item), Tracks: tracks})
}

func (s *Source) Artist(ctx context.Context, uri media.URI) status.Status[media.ArtistWorks] {
	id, ok := s.entityID(uri, media.ItemTypeArtist)
	if !ok {
		return status.Error[media.ArtistWorks](status.NotFound, nil)
	}
	item, err := s.client.Item(ctx, id)
	if err != nil {
		return mapError[media.ArtistWorks](err)
	}
	albums, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "MusicAlbum",
		AlbumArtistIDs:   id,
		SortBy:           "ProductionYear,SortName",
	})
	if err != nil {
		return mapError[media.ArtistWorks](err)
	}
	works := media.ArtistWorks{Artist: s.toArtist(*item)}
	for _, album := range albums {
		works.Albums = append(works.Albums, s.toAlbum(album))
	}
	return status.Success(works)
}

func (s *Source) Genre(ctx context.Context, uri media.URI) status.Status[media.GenreContent] {
	id, ok := s.entityID(uri, media.ItemTypeGenre)
	if !ok {
		return status.Error[media.GenreContent](status.NotFound, nil)
	}
	item, err := s.client.Item(ctx, id)
	if err != nil {
		return mapError[media.GenreContent](err)
	}
	content := media.GenreContent{Genre: s.toGenre(*item)}

	albums, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "MusicAlbum",
		GenreIDs:         id,
	})
	if err != nil {
		return mapError[media.GenreContent](err)
	}
	for _, album := range albums {
		content.AppearsInAlbums = append(content.AppearsInAlbums, s.toAlbum(album))
	}

	audios, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{
		IncludeItemTypes: "Audio",
		GenreIDs:         id,
	})
	if err != nil {
		return mapError[media.GenreContent](err)
	}
	for _, audio := range audios {
		content.Audios = append(content.Audios, s.toAudio(audio))
	}
	return status.Success(content)
}

func (s *Source) Playlist(ctx context.Context, uri media.URI) status.Status[media.PlaylistWithTracks] {
	id, ok := s.entityID(uri, media.ItemTypePlaylist)
	if !ok {
		return status.Error[media.PlaylistWithTracks](status.NotFound, nil)
	}
	item, err := s.client.Item(ctx, id)
	if err != nil {
		return mapError[media.PlaylistWithTracks](err)
	}
	entries, err := s.client.PlaylistItems(ctx, id)
	if err != nil {
		return mapError[media.PlaylistWithTracks](err)
	}
	tracks := make([]media.Audio, 0, len(entries))
	for _, entry := range entries {
		tracks = append(tracks, s.toAudio(entry))
	}
	return status.Success(media.PlaylistWithTracks{Playlist: s.toPlaylist(*item), Tracks: tracks})
}

func (s *Source) AudioPlaylistsStatus(ctx context.Context, audioURI media.URI) status.Status[[]media.PlaylistMembership] {
	id, ok := s.entityID(audioURI, media.ItemTypeAudio)
	if !ok {
		return status.Error[[]media.PlaylistMembership](status.NotFound, nil)
	}
	playlists, err := s.client.Items(ctx, jellyfinapi.ItemsOptions{IncludeItemTypes: "Playlist"})
	if err != nil {
		return mapError[[]media.PlaylistMembership](err)
	}
	out := make([]media.PlaylistMembership, 0, len(playlists))
	for _, playlist := range playlists {
		entries, err := s.client.PlaylistItems(ctx, playlist.ID)
		if err != nil {
			return mapError[[]media.PlaylistMembership](err)
		}
		member := false
		for _, entry := range entries {
			if entry.ID == id {
				member = true
				break
			}
		}
		out = append(out, media.PlaylistMembership{Playlist: s.toPlaylist(playlist), HasAudio: member})
	}
	return status.Success(out)
}

func (s *Source) CreatePlaylist(ctx context.Context, name string) status.Status[media.URI] {
	id, err := s.client.CreatePlaylist(ctx, name)
	if err != nil {
		return mapError[media.URI](err)
	}
	s.playlistsChanged.Notify()
	return status.Success(s.playlistURI(id))
}

func (s *Source) RenamePlaylist(ctx context.Context, uri media.URI, name string) status.Status[media.Playlist] {
	id, ok := s.entityID(uri, media.ItemTypePlaylist)
	if !ok {
		return status.Error[media.Playlist](status.NotFound, nil)
	}
	if err := s.client.RenamePlaylist(ctx, id, name); err != nil {
		return mapError[media.Playlist](err)
	}
	s.playlistsChanged.Notify()
	return status.Success(media.Playlist{URI: uri, Name: name})
}

func (s *Source) DeletePlaylist(ctx context.Context, uri media.URI) status.Status[datasource.Unit] {
	return status.Error[datasource.Unit](status.NotImplemented, nil)
}

func (s *Source) AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[datasource.Unit] {
	playlistID, ok := s.entityID(playlistURI, media.ItemTypePlaylist)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	audioID, ok := s.entityID(audioURI, media.ItemTypeAudio)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	if err := s.client.AddToPlaylist(ctx, playlistID, []string{audioID}); err != nil {
		return mapError[datasource.Unit](err)
	}
	s.playlistsChanged.Notify()
	return status.Success(datasource.Unit{})
}

func (s *Source) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[datasource.Unit] {
	playlistID, ok := s.entityID(playlistURI, media.ItemTypePlaylist)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	audioID, ok := s.entityID(audioURI, media.ItemTypeAudio)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}

	entries, err := s.client.PlaylistItems(ctx, playlistID)
	if err != nil {
		return mapError[datasource.Unit](err)
	}
	// removal goes by playlist entry id, not item id
	var entryIDs []string
	for _, entry := range entries {
		if entry.ID == audioID && entry.PlaylistItemID != "" {
			entryIDs = append(entryIDs, entry.PlaylistItemID)
		}
	}
	if len(entryIDs) == 0 {
		return status.Success(datasource.Unit{})
	}
	if err := s.client.RemoveFromPlaylist(ctx, playlistID, entryIDs); err != nil {
		return mapError[datasource.Unit](err)
	}
	s.playlistsChanged.Notify()
	return status.Success(datasource.Unit{})
}

func (s *Source) OnAudioPlayed(ctx context.Context, audioURI media.URI) status.Status[datasource.Unit] {
	id, ok := s.entityID(audioURI, media.ItemTypeAudio)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	// persist without the static-stream suffix so the stored location stays
	// valid across transcoding settings
	location := strings.TrimSuffix(s.client.StreamURL(id), "?static=true")
	if err := s.store.SetLastPlayed(s.lastPlayedKey(), location); err != nil {
		log.Warn().Err(err).Msg("Failed to record last played")
		return status.Error[datasource.Unit](status.IO, err)
	}
	return status.Success(datasource.Unit{})
}
