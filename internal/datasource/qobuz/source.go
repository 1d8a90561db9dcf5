package qobuz

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/anuragxone/twelve-remix/internal/datasource"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

const searchPageSize = 20

// Source exposes a Qobuz account as a data source.
type Source struct {
	id      provider.Identifier
	cfg     store.QobuzConfig
	catalog Catalog
	store   *store.Store
	prefix  media.URI

	mu       sync.Mutex
	loggedIn bool

	playlistsChanged *watch.Signal
}

// New creates a Qobuz source. Login happens lazily on the first call that
// needs authentication.
func New(id provider.Identifier, cfg store.QobuzConfig, catalog Catalog, st *store.Store) *Source {
	return &Source{
		id:               id,
		cfg:              cfg,
		catalog:          catalog,
		store:            st,
		prefix:           media.URI("qobuz").Append(strconv.FormatInt(id.InstanceID, 10)),
		playlistsChanged: watch.NewSignal(),
	}
}

func (s *Source) Provider() provider.Identifier { return s.id }

func (s *Source) CompatibleWith(uri media.URI) bool { return uri.HasPrefix(s.prefix) }

func (s *Source) PlaylistsChanged() *watch.Signal { return s.playlistsChanged }

// Status verifies the account by logging in.
func (s *Source) Status(ctx context.Context) status.Status[[]datasource.InfoField] {
	if err := s.ensureLogin(); err != nil {
		return status.Error[[]datasource.InfoField](status.InvalidCredentials, err)
	}
	return status.Success([]datasource.InfoField{
		{Name: "Account", Value: s.cfg.Email},
	})
}

func (s *Source) lastPlayedKey() string {
	return fmt.Sprintf("qobuz:%s", s.cfg.Email)
}

// ensureLogin authenticates once per source lifetime. A failed login is
// an invalid-credentials condition regardless of the transport error
// underneath, since that is what the caller can act on.
func (s *Source) ensureLogin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn {
		return nil
	}
	if err := s.catalog.Login(s.cfg.Email, s.cfg.Password); err != nil {
		return err
	}
	s.loggedIn = true
	return nil
}

// mapError classifies catalog failures. Qobuz errors arrive as opaque
// strings, so classification is by message shape.
func mapError[T any](err error) status.Status[T] {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "404") || strings.Contains(msg, "not found") {
		return status.Error[T](status.NotFound, err)
	}
	if strings.Contains(msg, "401") || strings.Contains(msg, "invalid") || strings.Contains(msg, "unauthorized") {
		return status.Error[T](status.InvalidCredentials, err)
	}
	return status.Error[T](status.IO, err)
}

func (s *Source) albumURI(id string) media.URI { return s.prefix.Append("albums", id) }

func (s *Source) artistURI(id int) media.URI {
	return s.prefix.Append("artists", strconv.Itoa(id))
}

// audioURI binds a track to the album it was reached through, because
// resolving a lone Qobuz track id back to metadata requires the album.
func (s *Source) audioURI(albumID string, trackID int) media.URI {
	return s.prefix.Append("audio", albumID, strconv.Itoa(trackID))
}

func (s *Source) playlistURI(id int) media.URI {
	return s.prefix.Append("playlists", strconv.Itoa(id))
}

func (s *Source) toAlbum(a AlbumSummary) media.Album {
	return media.Album{
		URI:        s.albumURI(a.ID),
		Title:      a.Title,
		ArtistName: a.ArtistName,
		Year:       a.Year,
		Thumbnail:  media.URI(a.Cover),
	}
}

func (s *Source) toArtist(a ArtistSummary) media.Artist {
	return media.Artist{
		URI:       s.artistURI(a.ID),
		Name:      a.Name,
		Thumbnail: media.URI(a.Cover),
	}
}

func (s *Source) toAudio(t TrackSummary) media.Audio {
	return media.Audio{
		URI:         s.audioURI(t.AlbumID, t.ID),
		MimeType:    "audio/flac",
		Title:       t.Title,
		Type:        media.AudioTypeMusic,
		DurationMs:  t.DurationMs,
		ArtistName:  t.ArtistName,
		AlbumURI:    s.albumURI(t.AlbumID),
		AlbumTitle:  t.AlbumTitle,
		TrackNumber: t.TrackNumber,
	}
}

// entitySegments validates a URI against this source and returns the
// segments after the collection name.
func (s *Source) entitySegments(uri media.URI, want media.ItemType, arity int) ([]string, bool) {
	got, ok := datasource.ClassifyURI(s.prefix, uri)
	if !ok || got != want {
		return nil, false
	}
	segments := uri.Segments()[3:]
	if len(segments) != arity {
		return nil, false
	}
	return segments, true
}

func (s *Source) TypeOf(ctx context.Context, uri media.URI) status.Status[media.ItemType] {
	if t, ok := datasource.ClassifyURI(s.prefix, uri); ok {
		return status.Success(t)
	}
	return status.Error[media.ItemType](status.NotFound, nil)
}

func (s *Source) Activity(ctx context.Context) status.Status[[]media.ActivityTab] {
	return status.Error[[]media.ActivityTab](status.NotImplemented, nil)
}

func (s *Source) Albums(ctx context.Context, sort media.SortingRule) status.Status[[]media.Album] {
	return status.Error[[]media.Album](status.NotImplemented, nil)
}

func (s *Source) Artists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Artist] {
	return status.Error[[]media.Artist](status.NotImplemented, nil)
}

func (s *Source) Genres(ctx context.Context, sort media.SortingRule) status.Status[[]media.Genre] {
	return status.Error[[]media.Genre](status.NotImplemented, nil)
}

func (s *Source) Playlists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Playlist] {
	return status.Error[[]media.Playlist](status.NotImplemented, nil)
}

func (s *Source) Search(ctx context.Context, query string) status.Status[[]media.Item] {
	if err := s.ensureLogin(); err != nil {
		return status.Error[[]media.Item](status.InvalidCredentials, err)
	}

	var items []media.Item
	if artists, err := s.catalog.SearchArtists(query, searchPageSize); err == nil {
		for _, artist := range artists {
			items = append(items, s.toArtist(artist))
		}
	}
	if albums, err := s.catalog.SearchAlbums(query, searchPageSize); err == nil {
		for _, album := range albums {
			items = append(items, s.toAlbum(album))
		}
	}
	tracks, err := s.catalog.SearchTracks(query, searchPageSize)
	if err != nil {
		return mapError[[]media.Item](err)
	}
	for _, track := range tracks {
		items = append(items, s.toAudio(track))
	}
	return status.Success(items)
}

func (s *Source) Audio(ctx context.Context, uri media.URI) status.Status[media.Audio] {
	segments, ok := s.entitySegments(uri, media.ItemTypeAudio, 2)
	if !ok {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	albumID := segments[0]
	trackID, err := strconv.Atoi(segments[1])
	if err != nil {
		return status.Error[media.Audio](status.NotFound, nil)
	}

	if err := s.ensureLogin(); err != nil {
		return status.Error[media.Audio](status.InvalidCredentials, err)
	}
	album, err := s.catalog.Album(albumID)
	if err != nil {
		return mapError[media.Audio](err)
	}
	for _, track := range album.Tracks {
		if track.ID != trackID {
			continue
		}
		audio := s.toAudio(track)
		if stream, err := s.catalog.TrackStream(trackID); err == nil {
			audio.PlaybackURI = media.URI(stream.URL)
			audio.MimeType = stream.MimeType
		}
		return status.Success(audio)
	}
	return status.Error[media.Audio](status.NotFound, nil)
}

func (s *Source) Album(ctx context.Context, uri media.URI) status.Status[media.AlbumWithTracks] {
	segments, ok := s.entitySegments(uri, media.ItemTypeAlbum, 1)
	if !ok {
		return status.Error[media.AlbumWithTracks](status.NotFound, nil)
	}
	if err := s.ensureLogin(); err != nil {
		return status.Error[media.AlbumWithTracks](status.InvalidCredentials, err)
	}
	album, err := s.catalog.Album(segments[0])
	if err != nil {
		return mapError[media.AlbumWithTracks](err)
	}
	out := media.AlbumWithTracks{Album: s.toAlbum(album.AlbumSummary)}
	for _, track := range album.Tracks {
		out.Tracks = append(out.Tracks, s.toAudio(track))
	}
	return status.Success(out)
}

func (s *Source) Artist(ctx context.Context, uri media.URI) status.Status[media.ArtistWorks] {
	segments, ok := s.entitySegments(uri, media.ItemTypeArtist, 1)
	if !ok {
		return status.Error[media.ArtistWorks](status.NotFound, nil)
	}
	id, err := strconv.Atoi(segments[0])
	if err != nil {
		return status.Error[media.ArtistWorks](status.NotFound, nil)
	}
	if err := s.ensureLogin(); err != nil {
		return status.Error[media.ArtistWorks](status.InvalidCredentials, err)
	}
	artist, err := s.catalog.Artist(id)
	if err != nil {
		return mapError[media.ArtistWorks](err)
	}
	works := media.ArtistWorks{Artist: s.toArtist(artist.ArtistSummary)}
	for _, album := range artist.Albums {
		works.Albums = append(works.Albums, s.toAlbum(album))
	}
	return status.Success(works)
}

func (s *Source) Genre(ctx context.Context, uri media.URI) status.Status[media.GenreContent] {
	return status.Error[media.GenreContent](status.NotImplemented, nil)
}

func (s *Source) Playlist(ctx context.Context, uri media.URI) status.Status[media.PlaylistWithTracks] {
	segments, ok := s.entitySegments(uri, media.ItemTypePlaylist, 1)
	if !ok {
		return status.Error[media.PlaylistWithTracks](status.NotFound, nil)
	}
	id, err := strconv.Atoi(segments[0])
	if err != nil {
		return status.Error[media.PlaylistWithTracks](status.NotFound, nil)
	}
	if err := s.ensureLogin(); err != nil {
		return status.Error[media.PlaylistWithTracks](status.InvalidCredentials, err)
	}
	playlist, err := s.catalog.Playlist(id)
	if err != nil {
		return mapError[media.PlaylistWithTracks](err)
	}
	out := media.PlaylistWithTracks{
		Playlist: media.Playlist{URI: uri, Name: playlist.Name},
	}
	for _, track := range playlist.Tracks {
		out.Tracks = append(out.Tracks, s.toAudio(track))
	}
	return status.Success(out)
}

func (s *Source) AudioPlaylistsStatus(ctx context.Context, audioURI media.URI) status.Status[[]media.PlaylistMembership] {
	return status.Error[[]media.PlaylistMembership](status.NotImplemented, nil)
}

func (s *Source) CreatePlaylist(ctx context.Context, name string) status.Status[media.URI] {
	return status.Error[media.URI](status.NotImplemented, nil)
}

func (s *Source) RenamePlaylist(ctx context.Context, uri media.URI, name string) status.Status[media.Playlist] {
	return status.Error[media.Playlist](status.NotImplemented, nil)
}

func (s *Source) DeletePlaylist(ctx context.Context, uri media.URI) status.Status[datasource.Unit] {
	return status.Error[datasource.Unit](status.NotImplemented, nil)
}

func (s *Source) AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[datasource.Unit] {
	return status.Error[datasource.Unit](status.NotImplemented, nil)
}

func (s *Source) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[datasource.Unit] {
	return status.Error[datasource.Unit](status.NotImplemented, nil)
}

func (s *Source) OnAudioPlayed(ctx context.Context, audioURI media.URI) status.Status[datasource.Unit] {
	segments, ok := s.entitySegments(audioURI, media.ItemTypeAudio, 2)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	trackID, err := strconv.Atoi(segments[1])
	if err != nil {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	if err := s.ensureLogin(); err != nil {
		return status.Error[datasource.Unit](status.InvalidCredentials, err)
	}
	stream, err := s.catalog.TrackStream(trackID)
	if err != nil {
		return mapError[datasource.Unit](err)
	}
	if err := s.store.SetLastPlayed(s.lastPlayedKey(), stream.URL); err != nil {
		return status.Error[datasource.Unit](status.IO, err)
	}
	return status.Success(datasource.Unit{})
}
