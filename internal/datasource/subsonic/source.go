// Package subsonic adapts a Subsonic-compatible server (Navidrome,
// Airsonic, gonic and friends) to the data source contract.
package subsonic

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/datasource"
	"github.com/anuragxone/twelve-remix/internal/infra/subsonicapi"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

// listPageSize is how many entries each paged backend call requests.
const listPageSize = 500

// Source is one configured Subsonic server.
type Source struct {
	id     provider.Identifier
	cfg    store.SubsonicConfig
	client *subsonicapi.Client
	store  *store.Store
	prefix media.URI

	playlistsChanged *watch.Signal
}

// New creates a source for one configured server.
func New(id provider.Identifier, cfg store.SubsonicConfig, st *store.Store) *Source {
	return &Source{
		id:               id,
		cfg:              cfg,
		client:           subsonicapi.NewClient(cfg.URL, cfg.Username, cfg.Password, cfg.UseLegacyAuthentication),
		store:            st,
		prefix:           media.URI("subsonic").Append(strconv.FormatInt(id.InstanceID, 10)),
		playlistsChanged: watch.NewSignal(),
	}
}

func (s *Source) Provider() provider.Identifier { return s.id }

func (s *Source) CompatibleWith(uri media.URI) bool { return uri.HasPrefix(s.prefix) }

func (s *Source) PlaylistsChanged() *watch.Signal { return s.playlistsChanged }

// Status pings the server, which also verifies the credentials.
func (s *Source) Status(ctx context.Context) status.Status[[]datasource.InfoField] {
	if err := s.client.Ping(ctx); err != nil {
		return mapError[[]datasource.InfoField](err)
	}
	return status.Success([]datasource.InfoField{
		{Name: "Server", Value: s.cfg.URL},
		{Name: "Username", Value: s.cfg.Username},
	})
}

// LastPlayedAudio resolves the recorded stream location back into the
// audio item it was minted from.
func (s *Source) LastPlayedAudio(ctx context.Context) status.Status[media.Audio] {
	location, ok, err := s.store.LastPlayed(s.lastPlayedKey())
	if err != nil {
		return status.Error[media.Audio](status.IO, err)
	}
	if !ok {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	parsed, err := url.Parse(location)
	if err != nil || parsed.Query().Get("id") == "" {
		return status.Error[media.Audio](status.NotFound, err)
	}
	song, err := s.client.GetSong(ctx, parsed.Query().Get("id"))
	if err != nil {
		return mapError[media.Audio](err)
	}
	return status.Success(s.toAudio(*song))
}

// lastPlayedKey identifies this account in the last-played table.
func (s *Source) lastPlayedKey() string {
	return fmt.Sprintf("subsonic:%s@%s", s.cfg.Username, s.cfg.URL)
}

// mapError translates a backend failure into the canonical taxonomy. The
// credential-related protocol codes (40-60) all surface as
// InvalidCredentials; 70 is the API's not-found code; everything else,
// including transport failures, is IO.
func mapError[T any](err error) status.Status[T] {
	var apiErr *subsonicapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case subsonicapi.CodeNotFound:
			return status.Error[T](status.NotFound, err)
		case subsonicapi.CodeWrongCredentials,
			subsonicapi.CodeTokenNotSupported,
			subsonicapi.CodeAuthMechanismNotSup,
			subsonicapi.CodeMultipleConflicting,
			subsonicapi.CodeAPIKeyNotEnabled,
			subsonicapi.CodeNotAuthorized,
			subsonicapi.CodeTrialExpired:
			return status.Error[T](status.InvalidCredentials, err)
		default:
			return status.Error[T](status.IO, err)
		}
	}
	return status.Error[T](status.IO, err)
}

func (s *Source) albumURI(id string) media.URI    { return s.prefix.Append("albums", id) }
func (s *Source) artistURI(id string) media.URI   { return s.prefix.Append("artists", id) }
func (s *Source) audioURI(id string) media.URI    { return s.prefix.Append("audio", id) }
func (s *Source) genreURI(name string) media.URI  { return s.prefix.Append("genres", name) }
func (s *Source) playlistURI(id string) media.URI { return s.prefix.Append("playlists", id) }

func (s *Source) toAlbum(a subsonicapi.Album) media.Album {
	return media.Album{
		URI:        s.albumURI(a.ID),
		Title:      a.Name,
		ArtistURI:  s.artistURI(a.ArtistID),
		ArtistName: a.Artist,
		Year:       a.Year,
		Thumbnail:  media.URI(s.client.CoverArtURL(a.CoverArt)),
	}
}

func (s *Source) toArtist(a subsonicapi.Artist) media.Artist {
	return media.Artist{
		URI:       s.artistURI(a.ID),
		Name:      a.Name,
		Thumbnail: media.URI(s.client.CoverArtURL(a.CoverArt)),
	}
}

func (s *Source) toGenre(g subsonicapi.Genre) media.Genre {
	return media.Genre{URI: s.genreURI(g.Value), Name: g.Value}
}

func (s *Source) toPlaylist(p subsonicapi.Playlist) media.Playlist {
	return media.Playlist{URI: s.playlistURI(p.ID), Name: p.Name}
}

func (s *Source) toAudio(c subsonicapi.Child) media.Audio {
	audioType := media.AudioTypeMusic
	if c.Type == "podcast" {
		audioType = media.AudioTypePodcast
	} else if c.Type == "audiobook" {
		audioType = media.AudioTypeAudiobook
	}
	return media.Audio{
		URI:         s.audioURI(c.ID),
		PlaybackURI: media.URI(s.client.StreamURL(c.ID)),
		MimeType:    c.ContentType,
		Title:       c.Title,
		Type:        audioType,
		DurationMs:  int64(c.Duration) * 1000,
		ArtistURI:   s.artistURI(c.ArtistID),
		ArtistName:  c.Artist,
		AlbumURI:    s.albumURI(c.AlbumID),
		AlbumTitle:  c.Album,
		DiscNumber:  c.DiscNumber,
		TrackNumber: c.Track,
		GenreURI:    s.genreURI(c.Genre),
		GenreName:   c.Genre,
		Year:        c.Year,
	}
}

// entityID extracts the backend id from one of this source's URIs.
func (s *Source) entityID(uri media.URI, want media.ItemType) (string, bool) {
	got, ok := datasource.ClassifyURI(s.prefix, uri)
	if !ok || got != want {
		return "", false
	}
	return uri.LastSegment(), true
}

func (s *Source) TypeOf(ctx context.Context, uri media.URI) status.Status[media.ItemType] {
	if t, ok := datasource.ClassifyURI(s.prefix, uri); ok {
		return status.Success(t)
	}
	return status.Error[media.ItemType](status.NotFound, nil)
}

func (s *Source) Activity(ctx context.Context) status.Status[[]media.ActivityTab] {
	tabs := make([]media.ActivityTab, 0, 4)

	if songs, err := s.client.GetRandomSongs(ctx, 20); err == nil && len(songs) > 0 {
		items := make([]media.Item, 0, len(songs))
		for _, song := range songs {
			items = append(items, s.toAudio(song))
		}
		tabs = append(tabs, media.ActivityTab{
			URI:   s.prefix.Append("activity", "random"),
			Title: "Random",
			Items: items,
		})
	}

	for _, section := range []struct {
		listType string
		title    string
	}{
		{"newest", "Recently added"},
		{"recent", "Recently played"},
		{"frequent", "Most played"},
	} {
		albums, err := s.client.GetAlbumList2(ctx, section.listType, 20, 0)
		if err != nil {
			return mapError[[]media.ActivityTab](err)
		}
		if len(albums) == 0 {
			continue
		}
		items := make([]media.Item, 0, len(albums))
		for _, album := range albums {
			items = append(items, s.toAlbum(album))
		}
		tabs = append(tabs, media.ActivityTab{
			URI:   s.prefix.Append("activity", section.listType),
			Title: section.title,
			Items: items,
		})
	}
	return status.Success(tabs)
}

func (s *Source) Albums(ctx context.Context, sort media.SortingRule) status.Status[[]media.Album] {
	var albums []media.Album
	for offset := 0; ; offset += listPageSize {
		page, err := s.client.GetAlbumList2(ctx, "alphabeticalByName", listPageSize, offset)
		if err != nil {
			return mapError[[]media.Album](err)
		}
		for _, a := range page {
			// servers can report albums whose every track was deleted
			if a.SongCount == 0 {
				continue
			}
			albums = append(albums, s.toAlbum(a))
		}
		if len(page) < listPageSize {
			break
		}
	}
	return status.Success(sortAlbums(albums, sort))
}

func (s *Source) Artists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Artist] {
	artists, err := s.client.GetArtists(ctx)
	if err != nil {
		return mapError[[]media.Artist](err)
	}
	out := make([]media.Artist, 0, len(artists))
	for _, a := range artists {
		out = append(out, s.toArtist(a))
	}
	out = media.SortedBy(out, sort.Reverse, func(a, b media.Artist) bool { return a.Name < b.Name })
	return status.Success(out)
}

func (s *Source) Genres(ctx context.Context, sort media.SortingRule) status.Status[[]media.Genre] {
	genres, err := s.client.GetGenres(ctx)
	if err != nil {
		return mapError[[]media.Genre](err)
	}
	out := make([]media.Genre, 0, len(genres))
	for _, g := range genres {
		out = append(out, s.toGenre(g))
	}
	out = media.SortedBy(out, sort.Reverse, func(a, b media.Genre) bool { return a.Name < b.Name })
	return status.Success(out)
}

func (s *Source) Playlists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Playlist] {
	playlists, err := s.client.GetPlaylists(ctx)
	if err != nil {
		return mapError[[]media.Playlist](err)
	}
	out := make([]media.Playlist, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, s.toPlaylist(p))
	}
	if sort.Strategy == media.SortByName {
		out = media.SortedBy(out, sort.Reverse, func(a, b media.Playlist) bool { return a.Name < b.Name })
	}
	return status.Success(out)
}

func (s *Source) Search(ctx context.Context, query string) status.Status[[]media.Item] {
	result, err := s.client.Search3(ctx, query, 20)
	if err != nil {
		return mapError[[]media.Item](err)
	}
	items := make([]media.Item, 0, len(result.Artist)+len(result.Album)+len(result.Song))
	for _, a := range result.Artist {
		items = append(items, s.toArtist(a))
	}
	for _, a := range result.Album {
		items = append(items, s.toAlbum(a))
	}
	for _, song := range result.Song {
		items = append(items, s.toAudio(song))
	}
	return status.Success(items)
}

func (s *Source) Audio(ctx context.Context, uri media.URI) status.Status[media.Audio] {
	id, ok := s.entityID(uri, media.ItemTypeAudio)
	if !ok {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	song, err := s.client.GetSong(ctx, id)
	if err != nil {
		return mapError[media.Audio](err)
	}
	if song == nil {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	return status.Success(s.toAudio(*song))
}

func (s *Source) Album(ctx context.Context, uri media.URI) status.Status[media.AlbumWithTracks] {
	id, ok := s.entityID(uri, media.ItemTypeAlbum)
	if !ok {
		return status.Error[media.AlbumWithTracks](status.NotFound, nil)
	}
	album, err := s.client.GetAlbum(ctx, id)
	if err != nil {
		return mapError[media.AlbumWithTracks](err)
	}
	if album == nil {
		return status.Error[media.AlbumWithTracks](status.NotFound, nil)
	}
	tracks := make([]media.Audio, 0, len(album.Song))
	for _, song := range album.Song {
		tracks = append(tracks, s.toAudio(song))
	}
	return status.Success(media.AlbumWithTracks{Album: s.toAlbum(*album), Tracks: tracks})
}

func (s *Source) Artist(ctx context.Context, uri media.URI) status.Status[media.ArtistWorks] {
	id, ok := s.entityID(uri, media.ItemTypeArtist)
	if !ok {
		return status.Error[media.ArtistWorks](status.NotFound, nil)
	}
	artist, err := s.client.GetArtist(ctx, id)
	if err != nil {
		return mapError[media.ArtistWorks](err)
	}
	if artist == nil {
		return status.Error[media.ArtistWorks](status.NotFound, nil)
	}
	albums := make([]media.Album, 0, len(artist.Album))
	for _, album := range artist.Album {
		albums = append(albums, s.toAlbum(album))
	}
	return status.Success(media.ArtistWorks{
		Artist: s.toArtist(*artist),
		Albums: albums,
	})
}

func (s *Source) Genre(ctx context.Context, uri media.URI) status.Status[media.GenreContent] {
	name, ok := s.entityID(uri, media.ItemTypeGenre)
	if !ok {
		return status.Error[media.GenreContent](status.NotFound, nil)
	}

	content := media.GenreContent{Genre: media.Genre{URI: uri, Name: name}}
	for offset := 0; ; offset += listPageSize {
		page, err := s.client.GetAlbumsByGenre(ctx, name, listPageSize, offset)
		if err != nil {
			return mapError[media.GenreContent](err)
		}
		for _, album := range page {
			content.AppearsInAlbums = append(content.AppearsInAlbums, s.toAlbum(album))
		}
		if len(page) < listPageSize {
			break
		}
	}
	for offset := 0; ; offset += listPageSize {
		page, err := s.client.GetSongsByGenre(ctx, name, listPageSize, offset)
		if err != nil {
			return mapError[media.GenreContent](err)
		}
		for _, song := range page {
			content.Audios = append(content.Audios, s.toAudio(song))
		}
		if len(page) < listPageSize {
			break
		}
	}
	return status.Success(content)
}

func (s *Source) Playlist(ctx context.Context, uri media.URI) status.Status[media.PlaylistWithTracks] {
	id, ok := s.entityID(uri, media.ItemTypePlaylist)
	if !ok {
		return status.Error[media.PlaylistWithTracks](status.NotFound, nil)
	}
	playlist, err := s.client.GetPlaylist(ctx, id)
	if err != nil {
		return mapError[media.PlaylistWithTracks](err)
	}
	if playlist == nil {
		return status.Error[media.PlaylistWithTracks](status.NotFound, nil)
	}
	tracks := make([]media.Audio, 0, len(playlist.Entry))
	for _, entry := range playlist.Entry {
		tracks = append(tracks, s.toAudio(entry))
	}
	return status.Success(media.PlaylistWithTracks{
		Playlist: s.toPlaylist(*playlist),
		Tracks:   tracks,
	})
}

func (s *Source) AudioPlaylistsStatus(ctx context.Context, audioURI media.URI) status.Status[[]media.PlaylistMembership] {
	id, ok := s.entityID(audioURI, media.ItemTypeAudio)
	if !ok {
		return status.Error[[]media.PlaylistMembership](status.NotFound, nil)
	}
	playlists, err := s.client.GetPlaylists(ctx)
	if err != nil {
		return mapError[[]media.PlaylistMembership](err)
	}
	out := make([]media.PlaylistMembership, 0, len(playlists))
	for _, p := range playlists {
		full, err := s.client.GetPlaylist(ctx, p.ID)
		if err != nil {
			return mapError[[]media.PlaylistMembership](err)
		}
		if full == nil {
			return status.Error[[]media.PlaylistMembership](status.NotFound, nil)
		}
		member := false
		for _, entry := range full.Entry {
			if entry.ID == id {
				member = true
				break
			}
		}
		out = append(out, media.PlaylistMembership{Playlist: s.toPlaylist(p), HasAudio: member})
	}
	return status.Success(out)
}

func (s *Source) CreatePlaylist(ctx context.Context, name string) status.Status[media.URI] {
	playlist, err := s.client.CreatePlaylist(ctx, name)
	if err != nil {
		return mapError[media.URI](err)
	}
	if playlist == nil {
		return status.Error[media.URI](status.IO, nil)
	}
	s.playlistsChanged.Notify()
	return status.Success(s.playlistURI(playlist.ID))
}

func (s *Source) RenamePlaylist(ctx context.Context, uri media.URI, name string) status.Status[media.Playlist] {
	id, ok := s.entityID(uri, media.ItemTypePlaylist)
	if !ok {
		return status.Error[media.Playlist](status.NotFound, nil)
	}
	if err := s.client.UpdatePlaylist(ctx, id, name, nil, nil); err != nil {
		return mapError[media.Playlist](err)
	}
	s.playlistsChanged.Notify()
	return status.Success(media.Playlist{URI: uri, Name: name})
}

func (s *Source) DeletePlaylist(ctx context.Context, uri media.URI) status.Status[datasource.Unit] {
	id, ok := s.entityID(uri, media.ItemTypePlaylist)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	if err := s.client.DeletePlaylist(ctx, id); err != nil {
		return mapError[datasource.Unit](err)
	}
	s.playlistsChanged.Notify()
	return status.Success(datasource.Unit{})
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
	if err := s.client.UpdatePlaylist(ctx, playlistID, "", []string{audioID}, nil); err != nil {
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

	playlist, err := s.client.GetPlaylist(ctx, playlistID)
	if err != nil {
		return mapError[datasource.Unit](err)
	}
	if playlist == nil {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	var indexes []int
	for i, entry := range playlist.Entry {
		if entry.ID == audioID {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		// not a member, nothing to do
		return status.Success(datasource.Unit{})
	}
	if err := s.client.UpdatePlaylist(ctx, playlistID, "", nil, indexes); err != nil {
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
	if err := s.store.SetLastPlayed(s.lastPlayedKey(), s.client.StreamURL(id)); err != nil {
		log.Warn().Err(err).Msg("Failed to record last played")
		return status.Error[datasource.Unit](status.IO, err)
	}
	return status.Success(datasource.Unit{})
}

func sortAlbums(albums []media.Album, rule media.SortingRule) []media.Album {
	switch rule.Strategy {
	case media.SortByArtistName:
		return media.SortedBy(albums, rule.Reverse, func(a, b media.Album) bool {
			if a.ArtistName != b.ArtistName {
				return a.ArtistName < b.ArtistName
			}
			return a.Title < b.Title
		})
	case media.SortByCreationDate, media.SortByModificationDate:
		return media.SortedBy(albums, rule.Reverse, func(a, b media.Album) bool {
			if a.Year != b.Year {
				return a.Year < b.Year
			}
			return a.Title < b.Title
		})
	default:
		return media.SortedBy(albums, rule.Reverse, func(a, b media.Album) bool { return a.Title < b.Title })
	}
}
