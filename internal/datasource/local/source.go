// Package local adapts the device's own music library to the data source
// contract. The catalog comes from MPD's database, playlists and playback
// statistics live in the store, and volume mounts feed content change
// notifications.
package local

import (
	"context"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	gompd "github.com/fhs/gompd/v2/mpd"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/artwork"
	"github.com/anuragxone/twelve-remix/internal/datasource"
	"github.com/anuragxone/twelve-remix/internal/infra/mpd"
	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

// Prefix is the URI prefix of the local library. There is exactly one
// local source per process.
const Prefix = media.URI("local")

// Catalog is the slice of the MPD client the local source needs. It is an
// interface so tests can run without a daemon.
type Catalog interface {
	Ping() error
	ListAlbums() ([]mpd.AlbumInfo, error)
	ListTag(tag string) ([]string, error)
	FindAlbumTracks(album, albumArtist string) ([]gompd.Attrs, error)
	FindByTag(tag, value string) ([]gompd.Attrs, error)
	FindFile(path string) (gompd.Attrs, error)
	Search(query string) ([]gompd.Attrs, error)
}

// Source is the local music library.
type Source struct {
	id      provider.Identifier
	catalog Catalog
	store   *store.Store
	artwork *artwork.Service

	contentChanged *watch.Signal
}

// New creates the local source.
func New(catalog Catalog, st *store.Store, art *artwork.Service) *Source {
	return &Source{
		id:             provider.Identifier{Kind: provider.KindLocal, InstanceID: 0},
		catalog:        catalog,
		store:          st,
		artwork:        art,
		contentChanged: watch.NewSignal(),
	}
}

func (s *Source) Provider() provider.Identifier { return s.id }

func (s *Source) CompatibleWith(uri media.URI) bool { return uri.HasPrefix(Prefix) }

// PlaylistsChanged follows the store: local playlists are rows there.
func (s *Source) PlaylistsChanged() *watch.Signal { return s.store.PlaylistsChanged() }

// ContentChanged signals after the underlying catalog changes: an MPD
// database update or a volume mount.
func (s *Source) ContentChanged() *watch.Signal { return s.contentChanged }

// NotifyContentChanged is called by the wiring layer when MPD reports a
// database update or a volume appears or vanishes.
func (s *Source) NotifyContentChanged() { s.contentChanged.Notify() }

// Status pings the daemon and reports catalog size.
func (s *Source) Status(ctx context.Context) status.Status[[]datasource.InfoField] {
	if err := s.catalog.Ping(); err != nil {
		return status.Error[[]datasource.InfoField](status.IO, err)
	}
	fields := []datasource.InfoField{{Name: "Backend", Value: "mpd"}}
	if albums, err := s.catalog.ListAlbums(); err == nil {
		fields = append(fields, datasource.InfoField{
			Name:  "Albums",
			Value: strconv.Itoa(len(albums)),
		})
	}
	return status.Success(fields)
}

// LastPlayedAudio returns the most recently played local track, from the
// stats table OnAudioPlayed writes.
func (s *Source) LastPlayedAudio(ctx context.Context) status.Status[media.Audio] {
	stats, err := s.store.RecentlyPlayed(1)
	if err != nil {
		return status.Error[media.Audio](status.IO, err)
	}
	if len(stats) == 0 {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	return s.Audio(ctx, media.URI(stats[0].AudioURI))
}

func albumURI(albumArtist, album string) media.URI {
	return Prefix.Append("albums", albumArtist, album)
}

func artistURI(name string) media.URI { return Prefix.Append("artists", name) }

func audioURI(path string) media.URI { return Prefix.Append("audio", path) }

func genreURI(name string) media.URI { return Prefix.Append("genres", name) }

func playlistURI(id int64) media.URI {
	return Prefix.Append("playlists", strconv.FormatInt(id, 10))
}

func (s *Source) toAudio(attrs gompd.Attrs) media.Audio {
	path := attrs["file"]
	title := attrs["Title"]
	if title == "" {
		title = filepath.Base(path)
	}
	artist := attrs["Artist"]
	albumArtist := attrs["AlbumArtist"]
	if albumArtist == "" {
		albumArtist = artist
	}

	var durationMs int64
	if seconds, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
		durationMs = int64(seconds * 1000)
	} else if seconds, err := strconv.Atoi(attrs["Time"]); err == nil {
		durationMs = int64(seconds) * 1000
	}

	track, _ := strconv.Atoi(attrs["Track"])
	disc, _ := strconv.Atoi(attrs["Disc"])
	year, _ := strconv.Atoi(firstField(attrs["Date"], "-"))

	uri := audioURI(path)
	return media.Audio{
		URI:         uri,
		PlaybackURI: uri,
		MimeType:    mime.TypeByExtension(filepath.Ext(path)),
		Title:       title,
		Type:        media.AudioTypeMusic,
		DurationMs:  durationMs,
		ArtistURI:   artistURI(artist),
		ArtistName:  artist,
		AlbumURI:    albumURI(albumArtist, attrs["Album"]),
		AlbumTitle:  attrs["Album"],
		DiscNumber:  disc,
		TrackNumber: track,
		GenreURI:    genreURI(attrs["Genre"]),
		GenreName:   attrs["Genre"],
		Year:        year,
	}
}

func firstField(s, sep string) string {
	if i := strings.Index(s, sep); i > 0 {
		return s[:i]
	}
	return s
}

// thumbnail resolves a cached cover for a representative track, returning
// an empty URI when the track has no artwork.
func (s *Source) thumbnail(trackPath string) media.URI {
	if s.artwork == nil || trackPath == "" {
		return ""
	}
	path, err := s.artwork.Thumbnail(trackPath, artwork.SizeMedium)
	if err != nil {
		return ""
	}
	return media.URI("file://" + path)
}

func (s *Source) TypeOf(ctx context.Context, uri media.URI) status.Status[media.ItemType] {
	if t, ok := datasource.ClassifyURI(Prefix, uri); ok {
		return status.Success(t)
	}
	return status.Error[media.ItemType](status.NotFound, nil)
}

func (s *Source) Activity(ctx context.Context) status.Status[[]media.ActivityTab] {
	var tabs []media.ActivityTab

	mostPlayed, err := s.store.MostPlayed(20)
	if err != nil {
		return status.Error[[]media.ActivityTab](status.IO, err)
	}
	if items := s.resolveStats(ctx, mostPlayed); len(items) > 0 {
		tabs = append(tabs, media.ActivityTab{
			URI:   Prefix.Append("activity", "most_played"),
			Title: "Most played",
			Items: items,
		})
	}

	recent, err := s.store.RecentlyPlayed(20)
	if err != nil {
		return status.Error[[]media.ActivityTab](status.IO, err)
	}
	if items := s.resolveStats(ctx, recent); len(items) > 0 {
		tabs = append(tabs, media.ActivityTab{
			URI:   Prefix.Append("activity", "recently_played"),
			Title: "Recently played",
			Items: items,
		})
	}

	if tabs == nil {
		tabs = []media.ActivityTab{}
	}
	return status.Success(tabs)
}

// resolveStats turns stats rows back into audios, skipping rows whose
// track no longer exists in the catalog.
func (s *Source) resolveStats(ctx context.Context, stats []store.MediaStat) []media.Item {
	var items []media.Item
	for _, stat := range stats {
		resolved := s.Audio(ctx, media.URI(stat.AudioURI))
		if audio, ok := resolved.Get(); ok {
			items = append(items, audio)
		}
	}
	return items
}

func (s *Source) Albums(ctx context.Context, sort media.SortingRule) status.Status[[]media.Album] {
	infos, err := s.catalog.ListAlbums()
	if err != nil {
		return status.Error[[]media.Album](status.IO, err)
	}
	albums := make([]media.Album, 0, len(infos))
	for _, info := range infos {
		albums = append(albums, media.Album{
			URI:        albumURI(info.AlbumArtist, info.Album),
			Title:      info.Album,
			ArtistURI:  artistURI(info.AlbumArtist),
			ArtistName: info.AlbumArtist,
		})
	}
	if sort.Strategy == media.SortByArtistName {
		albums = media.SortedBy(albums, sort.Reverse, func(a, b media.Album) bool {
			if a.ArtistName != b.ArtistName {
				return a.ArtistName < b.ArtistName
			}
			return a.Title < b.Title
		})
	} else {
		albums = media.SortedBy(albums, sort.Reverse, func(a, b media.Album) bool { return a.Title < b.Title })
	}
	return status.Success(albums)
}

func (s *Source) Artists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Artist] {
	names, err := s.catalog.ListTag("albumartist")
	if err != nil {
		return status.Error[[]media.Artist](status.IO, err)
	}
	artists := make([]media.Artist, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		artists = append(artists, media.Artist{URI: artistURI(name), Name: name})
	}
	artists = media.SortedBy(artists, sort.Reverse, func(a, b media.Artist) bool { return a.Name < b.Name })
	return status.Success(artists)
}

func (s *Source) Genres(ctx context.Context, sort media.SortingRule) status.Status[[]media.Genre] {
	names, err := s.catalog.ListTag("genre")
	if err != nil {
		return status.Error[[]media.Genre](status.IO, err)
	}
	genres := make([]media.Genre, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		genres = append(genres, media.Genre{URI: genreURI(name), Name: name})
	}
	genres = media.SortedBy(genres, sort.Reverse, func(a, b media.Genre) bool { return a.Name < b.Name })
	return status.Success(genres)
}

func (s *Source) Playlists(ctx context.Context, sort media.SortingRule) status.Status[[]media.Playlist] {
	rows, err := s.store.Playlists()
	if err != nil {
		return status.Error[[]media.Playlist](status.IO, err)
	}
	playlists := make([]media.Playlist, 0, len(rows))
	for _, row := range rows {
		playlists = append(playlists, media.Playlist{URI: playlistURI(row.ID), Name: row.Name})
	}
	if sort.Strategy == media.SortByName {
		playlists = media.SortedBy(playlists, sort.Reverse, func(a, b media.Playlist) bool { return a.Name < b.Name })
	}
	return status.Success(playlists)
}

func (s *Source) Search(ctx context.Context, query string) status.Status[[]media.Item] {
	var items []media.Item

	// fuzzy match artists and albums from the tag indexes
	if names, err := s.catalog.ListTag("albumartist"); err == nil {
		for _, rank := range fuzzy.RankFindFold(query, names) {
			items = append(items, media.Artist{URI: artistURI(rank.Target), Name: rank.Target})
		}
	}
	if infos, err := s.catalog.ListAlbums(); err == nil {
		titles := make([]string, len(infos))
		for i, info := range infos {
			titles[i] = info.Album
		}
		for _, rank := range fuzzy.RankFindFold(query, titles) {
			info := infos[rank.OriginalIndex]
			items = append(items, media.Album{
				URI:        albumURI(info.AlbumArtist, info.Album),
				Title:      info.Album,
				ArtistURI:  artistURI(info.AlbumArtist),
				ArtistName: info.AlbumArtist,
			})
		}
	}

	songs, err := s.catalog.Search(query)
	if err != nil {
		return status.Error[[]media.Item](status.IO, err)
	}
	for _, song := range songs {
		items = append(items, s.toAudio(song))
	}
	return status.Success(items)
}

// entitySegments validates a URI against this source and returns the
// segments after the collection name.
func entitySegments(uri media.URI, want media.ItemType, arity int) ([]string, bool) {
	got, ok := datasource.ClassifyURI(Prefix, uri)
	if !ok || got != want {
		return nil, false
	}
	segments := uri.Segments()[2:]
	if len(segments) != arity {
		return nil, false
	}
	return segments, true
}

func (s *Source) Audio(ctx context.Context, uri media.URI) status.Status[media.Audio] {
	segments, ok := entitySegments(uri, media.ItemTypeAudio, 1)
	if !ok {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	attrs, err := s.catalog.FindFile(segments[0])
	if err != nil {
		return status.Error[media.Audio](status.IO, err)
	}
	if attrs == nil {
		return status.Error[media.Audio](status.NotFound, nil)
	}
	return status.Success(s.toAudio(attrs))
}

func (s *Source) Album(ctx context.Context, uri media.URI) status.Status[media.AlbumWithTracks] {
	segments, ok := entitySegments(uri, media.ItemTypeAlbum, 2)
	if !ok {
		return status.Error[media.AlbumWithTracks](status.NotFound, nil)
	}
	albumArtist, title := segments[0], segments[1]

	songs, err := s.catalog.FindAlbumTracks(title, albumArtist)
	if err != nil {
		return status.Error[media.AlbumWithTracks](status.IO, err)
	}
	if len(songs) == 0 {
		return status.Error[media.AlbumWithTracks](status.NotFound, nil)
	}

	tracks := make([]media.Audio, 0, len(songs))
	for _, song := range songs {
		tracks = append(tracks, s.toAudio(song))
	}
	year := tracks[0].Year
	return status.Success(media.AlbumWithTracks{
		Album: media.Album{
			URI:        uri,
			Title:      title,
			ArtistURI:  artistURI(albumArtist),
			ArtistName: albumArtist,
			Year:       year,
			Thumbnail:  s.thumbnail(songs[0]["file"]),
		},
		Tracks: tracks,
	})
}

func (s *Source) Artist(ctx context.Context, uri media.URI) status.Status[media.ArtistWorks] {
	segments, ok := entitySegments(uri, media.ItemTypeArtist, 1)
	if !ok {
		return status.Error[media.ArtistWorks](status.NotFound, nil)
	}
	name := segments[0]

	songs, err := s.catalog.FindByTag("albumartist", name)
	if err != nil {
		return status.Error[media.ArtistWorks](status.IO, err)
	}
	if len(songs) == 0 {
		return status.Error[media.ArtistWorks](status.NotFound, nil)
	}

	seen := make(map[string]bool)
	works := media.ArtistWorks{Artist: media.Artist{URI: uri, Name: name}}
	for _, song := range songs {
		album := song["Album"]
		if album == "" || seen[album] {
			continue
		}
		seen[album] = true
		works.Albums = append(works.Albums, media.Album{
			URI:        albumURI(name, album),
			Title:      album,
			ArtistURI:  uri,
			ArtistName: name,
		})
	}
	return status.Success(works)
}

func (s *Source) Genre(ctx context.Context, uri media.URI) status.Status[media.GenreContent] {
	segments, ok := entitySegments(uri, media.ItemTypeGenre, 1)
	if !ok {
		return status.Error[media.GenreContent](status.NotFound, nil)
	}
	name := segments[0]

	songs, err := s.catalog.FindByTag("genre", name)
	if err != nil {
		return status.Error[media.GenreContent](status.IO, err)
	}

	content := media.GenreContent{Genre: media.Genre{URI: uri, Name: name}}
	seen := make(map[string]bool)
	for _, song := range songs {
		audio := s.toAudio(song)
		content.Audios = append(content.Audios, audio)

		key := audio.ArtistName + "\x00" + audio.AlbumTitle
		if audio.AlbumTitle != "" && !seen[key] {
			seen[key] = true
			content.AppearsInAlbums = append(content.AppearsInAlbums, media.Album{
				URI:        audio.AlbumURI,
				Title:      audio.AlbumTitle,
				ArtistURI:  audio.ArtistURI,
				ArtistName: audio.ArtistName,
			})
		}
	}
	return status.Success(content)
}

func (s *Source) Playlist(ctx context.Context, uri media.URI) status.Status[media.PlaylistWithTracks] {
	id, ok := s.playlistID(uri)
	if !ok {
		return status.Error[media.PlaylistWithTracks](status.NotFound, nil)
	}
	row, err := s.store.Playlist(id)
	if err == store.ErrNotFound {
		return status.Error[media.PlaylistWithTracks](status.NotFound, err)
	}
	if err != nil {
		return status.Error[media.PlaylistWithTracks](status.IO, err)
	}

	uris, err := s.store.PlaylistTracks(id)
	if err != nil {
		return status.Error[media.PlaylistWithTracks](status.IO, err)
	}
	var tracks []media.Audio
	for _, trackURI := range uris {
		resolved := s.Audio(ctx, media.URI(trackURI))
		if audio, ok := resolved.Get(); ok {
			tracks = append(tracks, audio)
		} else {
			log.Debug().Str("uri", trackURI).Msg("Dropping unresolvable playlist track")
		}
	}
	return status.Success(media.PlaylistWithTracks{
		Playlist: media.Playlist{URI: uri, Name: row.Name},
		Tracks:   tracks,
	})
}

func (s *Source) AudioPlaylistsStatus(ctx context.Context, audioURI media.URI) status.Status[[]media.PlaylistMembership] {
	if _, ok := entitySegments(audioURI, media.ItemTypeAudio, 1); !ok {
		return status.Error[[]media.PlaylistMembership](status.NotFound, nil)
	}
	rows, err := s.store.PlaylistsWithMembership(string(audioURI))
	if err != nil {
		return status.Error[[]media.PlaylistMembership](status.IO, err)
	}
	out := make([]media.PlaylistMembership, 0, len(rows))
	for _, row := range rows {
		out = append(out, media.PlaylistMembership{
			Playlist: media.Playlist{URI: playlistURI(row.Playlist.ID), Name: row.Playlist.Name},
			HasAudio: row.HasAudio,
		})
	}
	return status.Success(out)
}

func (s *Source) CreatePlaylist(ctx context.Context, name string) status.Status[media.URI] {
	id, err := s.store.CreatePlaylist(name)
	if err != nil {
		return status.Error[media.URI](status.IO, err)
	}
	return status.Success(playlistURI(id))
}

func (s *Source) RenamePlaylist(ctx context.Context, uri media.URI, name string) status.Status[media.Playlist] {
	id, ok := s.playlistID(uri)
	if !ok {
		return status.Error[media.Playlist](status.NotFound, nil)
	}
	err := s.store.RenamePlaylist(id, name)
	if err == store.ErrNotFound {
		return status.Error[media.Playlist](status.NotFound, err)
	}
	if err != nil {
		return status.Error[media.Playlist](status.IO, err)
	}
	return status.Success(media.Playlist{URI: uri, Name: name})
}

func (s *Source) DeletePlaylist(ctx context.Context, uri media.URI) status.Status[datasource.Unit] {
	id, ok := s.playlistID(uri)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	err := s.store.DeletePlaylist(id)
	if err == store.ErrNotFound {
		return status.Error[datasource.Unit](status.NotFound, err)
	}
	if err != nil {
		return status.Error[datasource.Unit](status.IO, err)
	}
	return status.Success(datasource.Unit{})
}

func (s *Source) AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[datasource.Unit] {
	id, ok := s.playlistID(playlistURI)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	if _, ok := entitySegments(audioURI, media.ItemTypeAudio, 1); !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	err := s.store.AddToPlaylist(id, string(audioURI))
	if err == store.ErrNotFound {
		return status.Error[datasource.Unit](status.NotFound, err)
	}
	if err != nil {
		return status.Error[datasource.Unit](status.IO, err)
	}
	return status.Success(datasource.Unit{})
}

func (s *Source) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI media.URI) status.Status[datasource.Unit] {
	id, ok := s.playlistID(playlistURI)
	if !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	err := s.store.RemoveFromPlaylist(id, string(audioURI))
	if err == store.ErrNotFound {
		return status.Error[datasource.Unit](status.NotFound, err)
	}
	if err != nil {
		return status.Error[datasource.Unit](status.IO, err)
	}
	return status.Success(datasource.Unit{})
}

func (s *Source) OnAudioPlayed(ctx context.Context, audioURI media.URI) status.Status[datasource.Unit] {
	if _, ok := entitySegments(audioURI, media.ItemTypeAudio, 1); !ok {
		return status.Error[datasource.Unit](status.NotFound, nil)
	}
	if err := s.store.RecordPlayback(string(audioURI)); err != nil {
		return status.Error[datasource.Unit](status.IO, err)
	}
	return status.Success(datasource.Unit{})
}

// GCStats drops statistics rows whose audio no longer resolves, typically
// after files were deleted or a volume was permanently removed.
func (s *Source) GCStats(ctx context.Context) error {
	uris, err := s.store.StatsURIs()
	if err != nil {
		return err
	}
	var stale []string
	for _, uri := range uris {
		resolved := s.Audio(ctx, media.URI(uri))
		if resolved.IsError() && resolved.Kind() == status.NotFound {
			stale = append(stale, uri)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	log.Info().Int("count", len(stale)).Msg("Dropping stats for vanished tracks")
	return s.store.DeleteStats(stale)
}

func (s *Source) playlistID(uri media.URI) (int64, bool) {
	segments, ok := entitySegments(uri, media.ItemTypePlaylist, 1)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
