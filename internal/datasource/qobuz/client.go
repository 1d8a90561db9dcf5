package qobuz

import (
	"fmt"

	"github.com/markhc/gobuz"
)

// Catalog is the slice of the Qobuz API the source needs. Implemented by
// gobuzCatalog in production and by fakes in tests.
type Catalog interface {
	Login(email, password string) error
	SearchAlbums(query string, limit int) ([]AlbumSummary, error)
	SearchArtists(query string, limit int) ([]ArtistSummary, error)
	SearchTracks(query string, limit int) ([]TrackSummary, error)
	Album(id string) (AlbumDetail, error)
	Artist(id int) (ArtistDetail, error)
	Playlist(id int) (PlaylistDetail, error)
	TrackStream(id int) (StreamInfo, error)
}

// AlbumSummary is a Qobuz album as returned by search and artist pages.
type AlbumSummary struct {
	ID         string
	Title      string
	ArtistName string
	Cover      string
	Year       int
}

type ArtistSummary struct {
	ID    int
	Name  string
	Cover string
}

type TrackSummary struct {
	ID          int
	Title       string
	ArtistName  string
	AlbumID     string
	AlbumTitle  string
	Cover       string
	DurationMs  int64
	TrackNumber int
}

type AlbumDetail struct {
	AlbumSummary
	Tracks []TrackSummary
}

type ArtistDetail struct {
	ArtistSummary
	Albums []AlbumSummary
}

type PlaylistDetail struct {
	ID     int
	Name   string
	Tracks []TrackSummary
}

// StreamInfo describes a resolved playback URL.
type StreamInfo struct {
	URL      string
	MimeType string
}

// gobuzCatalog backs Catalog with the gobuz API bindings.
type gobuzCatalog struct {
	api *gobuz.QobuzAPI
}

// NewCatalog builds a Qobuz catalog. When creds is the zero value the app
// id and secret are scraped from the web player, which needs network
// access and can take a few seconds.
func NewCatalog(creds AppCredentials) (Catalog, error) {
	if creds.AppID == "" {
		fetched, err := FetchAppCredentials()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain app credentials: %w", err)
		}
		creds = fetched
	}
	api := gobuz.NewQobuzAPI(
		gobuz.WithApplicationCredentials(creds.AppID, creds.AppSecret),
	)
	return &gobuzCatalog{api: api}, nil
}

func (c *gobuzCatalog) Login(email, password string) error {
	return c.api.Login(email, password)
}

func (c *gobuzCatalog) SearchAlbums(query string, limit int) ([]AlbumSummary, error) {
	results, err := c.api.SearchAlbums(query).WithLimit(limit).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to search albums: %w", err)
	}
	var out []AlbumSummary
	for _, album := range results.Albums.Items {
		summary := AlbumSummary{
			ID:    album.ID,
			Title: album.Title,
			Cover: album.Image.Large,
			Year:  album.ReleasedAt.Year(),
		}
		if album.Artist != nil {
			summary.ArtistName = album.Artist.Name
		}
		out = append(out, summary)
	}
	return out, nil
}

func (c *gobuzCatalog) SearchArtists(query string, limit int) ([]ArtistSummary, error) {
	results, err := c.api.SearchArtists(query).WithLimit(limit).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to search artists: %w", err)
	}
	var out []ArtistSummary
	for _, artist := range results.Artists.Items {
		out = append(out, ArtistSummary{
			ID:    artist.ID,
			Name:  artist.Name,
			Cover: artist.Image.Large,
		})
	}
	return out, nil
}

func (c *gobuzCatalog) SearchTracks(query string, limit int) ([]TrackSummary, error) {
	results, err := c.api.SearchTracks(query).WithLimit(limit).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	var out []TrackSummary
	for _, track := range results.Tracks.Items {
		out = append(out, TrackSummary{
			ID:         track.ID,
			Title:      track.Title,
			ArtistName: track.Performer.Name,
			AlbumID:    track.Album.ID,
			AlbumTitle: track.Album.Title,
			Cover:      track.Album.Image.Large,
			DurationMs: int64(track.Duration) * 1000,
		})
	}
	return out, nil
}

func (c *gobuzCatalog) Album(id string) (AlbumDetail, error) {
	album, err := c.api.GetAlbum(id).WithAuth().Run()
	if err != nil {
		return AlbumDetail{}, fmt.Errorf("failed to get album: %w", err)
	}
	detail := AlbumDetail{AlbumSummary: AlbumSummary{
		ID:    id,
		Title: album.Title,
		Cover: album.Image.Large,
		Year:  album.ReleasedAt.Year(),
	}}
	if album.Artist != nil {
		detail.ArtistName = album.Artist.Name
	}
	for _, track := range album.Tracks.Items {
		detail.Tracks = append(detail.Tracks, TrackSummary{
			ID:          track.ID,
			Title:       track.Title,
			ArtistName:  track.Performer.Name,
			AlbumID:     id,
			AlbumTitle:  album.Title,
			Cover:       album.Image.Large,
			DurationMs:  int64(track.Duration) * 1000,
			TrackNumber: track.TrackNumber,
		})
	}
	return detail, nil
}

func (c *gobuzCatalog) Artist(id int) (ArtistDetail, error) {
	artist, err := c.api.GetArtist(id).WithAuth().WithExtra("albums").Run()
	if err != nil {
		return ArtistDetail{}, fmt.Errorf("failed to get artist: %w", err)
	}
	detail := ArtistDetail{ArtistSummary: ArtistSummary{
		ID:    id,
		Name:  artist.Name,
		Cover: artist.Image.Large,
	}}
	for _, album := range artist.Albums.Items {
		detail.Albums = append(detail.Albums, AlbumSummary{
			ID:         album.ID,
			Title:      album.Title,
			ArtistName: artist.Name,
			Cover:      album.Image.Large,
			Year:       album.ReleasedAt.Year(),
		})
	}
	return detail, nil
}

func (c *gobuzCatalog) Playlist(id int) (PlaylistDetail, error) {
	playlist, err := c.api.GetPlaylist(id).WithAuth().Run()
	if err != nil {
		return PlaylistDetail{}, fmt.Errorf("failed to get playlist: %w", err)
	}
	detail := PlaylistDetail{ID: id, Name: playlist.Name}
	for _, track := range playlist.Tracks {
		detail.Tracks = append(detail.Tracks, TrackSummary{
			ID:         track.ID,
			Title:      track.Title,
			ArtistName: track.Performer.Name,
			AlbumID:    track.Album.ID,
			AlbumTitle: track.Album.Title,
			Cover:      track.Album.Image.Large,
			DurationMs: int64(track.Duration) * 1000,
		})
	}
	return detail, nil
}

// TrackStream resolves a playback URL, stepping down from hi-res to CD
// quality FLAC until one format is available for the account tier.
func (c *gobuzCatalog) TrackStream(id int) (StreamInfo, error) {
	formats := []gobuz.TrackFormat{
		gobuz.TrackFormatHiRes24Bit192Khz,
		gobuz.TrackFormatHiRes24Bit96Khz,
		gobuz.TrackFormatFLAC,
	}
	var lastErr error
	for _, format := range formats {
		fileURL, err := c.api.GetTrackFileUrl(id, format)
		if err == nil {
			return StreamInfo{URL: fileURL.URL, MimeType: fileURL.MimeType}, nil
		}
		lastErr = err
	}
	return StreamInfo{}, fmt.Errorf("failed to resolve stream url: %w", lastErr)
}
