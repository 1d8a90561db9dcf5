// Package subsonicapi is a minimal client for the Subsonic REST API
// (protocol 1.16.1, JSON responses). It covers the browsing, search and
// playlist endpoints the Subsonic data source needs, with both token and
// legacy password authentication.
package subsonicapi

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	protocolVersion = "1.16.1"
	clientName      = "twelve"
)

// Error is a failed subsonic-response envelope.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("subsonic error %d: %s", e.Code, e.Message)
}

// Subsonic error codes, per the API specification.
const (
	CodeGeneric             = 0
	CodeMissingParameter    = 10
	CodeClientTooOld        = 20
	CodeServerTooOld        = 30
	CodeWrongCredentials    = 40
	CodeTokenNotSupported   = 41
	CodeAuthMechanismNotSup = 42
	CodeMultipleConflicting = 43
	CodeAPIKeyNotEnabled    = 44
	CodeNotAuthorized       = 50
	CodeTrialExpired        = 60
	CodeNotFound            = 70
)

// Client talks to one Subsonic server.
type Client struct {
	baseURL    string
	username   string
	password   string
	useLegacy  bool
	salt       string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given server. When useLegacyAuth is
// set, the password is sent hex-obfuscated instead of as a salted token,
// for servers predating protocol 1.13.0. The salt is drawn once per client
// so minted URLs (stream, cover art) stay stable for the client's lifetime.
func NewClient(baseURL, username, password string, useLegacyAuth bool) *Client {
	saltBytes := make([]byte, 8)
	rand.Read(saltBytes)
	salt := hex.EncodeToString(saltBytes)
	sum := md5.Sum([]byte(password + salt))
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		useLegacy:  useLegacyAuth,
		salt:       salt,
		token:      hex.EncodeToString(sum[:]),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// authParams returns the authentication query parameters for one request.
func (c *Client) authParams() url.Values {
	params := url.Values{}
	params.Set("u", c.username)
	params.Set("v", protocolVersion)
	params.Set("c", clientName)
	params.Set("f", "json")

	if c.useLegacy {
		params.Set("p", "enc:"+hex.EncodeToString([]byte(c.password)))
		return params
	}
	params.Set("s", c.salt)
	params.Set("t", c.token)
	return params
}

// URL builds a fully-authenticated request URL for an endpoint. Exposed so
// stream and cover art locations can be handed to a player directly.
func (c *Client) URL(endpoint string, extra url.Values) string {
	params := c.authParams()
	for key, values := range extra {
		for _, v := range values {
			params.Add(key, v)
		}
	}
	return fmt.Sprintf("%s/rest/%s?%s", c.baseURL, endpoint, params.Encode())
}

// StreamURL returns the authenticated stream location for a song id.
func (c *Client) StreamURL(id string) string {
	return c.URL("stream", url.Values{"id": []string{id}})
}

// CoverArtURL returns the authenticated cover art location for an id.
func (c *Client) CoverArtURL(id string) string {
	if id == "" {
		return ""
	}
	return c.URL("getCoverArt", url.Values{"id": []string{id}})
}

type envelope struct {
	Response response `json:"subsonic-response"`
}

type response struct {
	Status        string         `json:"status"`
	Error         *Error         `json:"error"`
	AlbumList2    *albumList2    `json:"albumList2"`
	Artists       *artistIndexes `json:"artists"`
	Artist        *Artist        `json:"artist"`
	Album         *Album         `json:"album"`
	Song          *Child         `json:"song"`
	Genres        *genreList     `json:"genres"`
	SongsByGenre  *songList      `json:"songsByGenre"`
	RandomSongs   *songList      `json:"randomSongs"`
	Playlists     *playlistList  `json:"playlists"`
	Playlist      *Playlist      `json:"playlist"`
	SearchResult3 *SearchResult3 `json:"searchResult3"`
}

type albumList2 struct {
	Album []Album `json:"album"`
}

type artistIndexes struct {
	Index []struct {
		Artist []Artist `json:"artist"`
	} `json:"index"`
}

type genreList struct {
	Genre []Genre `json:"genre"`
}

type songList struct {
	Song []Child `json:"song"`
}

type playlistList struct {
	Playlist []Playlist `json:"playlist"`
}

// Album is an ID3 album, with songs populated by getAlbum.
type Album struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Artist    string  `json:"artist"`
	ArtistID  string  `json:"artistId"`
	CoverArt  string  `json:"coverArt"`
	Year      int     `json:"year"`
	SongCount int     `json:"songCount"`
	Song      []Child `json:"song"`
}

// Artist is an ID3 artist, with albums populated by getArtist.
type Artist struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	CoverArt string  `json:"coverArt"`
	Album    []Album `json:"album"`
}

// Genre is one genre with its usage counts.
type Genre struct {
	Value      string `json:"value"`
	SongCount  int    `json:"songCount"`
	AlbumCount int    `json:"albumCount"`
}

// Child is a song entry.
type Child struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Album       string `json:"album"`
	AlbumID     string `json:"albumId"`
	Artist      string `json:"artist"`
	ArtistID    string `json:"artistId"`
	Track       int    `json:"track"`
	DiscNumber  int    `json:"discNumber"`
	Year        int    `json:"year"`
	Genre       string `json:"genre"`
	CoverArt    string `json:"coverArt"`
	Duration    int    `json:"duration"`
	ContentType string `json:"contentType"`
	Type        string `json:"type"`
}

// Playlist is a playlist, with entries populated by getPlaylist.
type Playlist struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	SongCount int     `json:"songCount"`
	Entry     []Child `json:"entry"`
}

// SearchResult3 is the search3 response.
type SearchResult3 struct {
	Artist []Artist `json:"artist"`
	Album  []Album  `json:"album"`
	Song   []Child  `json:"song"`
}

func (c *Client) get(ctx context.Context, endpoint string, extra url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpoint, extra), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	if env.Response.Status != "ok" {
		if env.Response.Error != nil {
			return nil, env.Response.Error
		}
		return nil, fmt.Errorf("%s failed without error detail", endpoint)
	}
	return &env.Response, nil
}

// Ping checks connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", nil)
	return err
}

// GetAlbumList2 pages through ID3 albums. listType is one of the API's
// list types, for example alphabeticalByName, newest, frequent or random.
func (c *Client) GetAlbumList2(ctx context.Context, listType string, size, offset int) ([]Album, error) {
	resp, err := c.get(ctx, "getAlbumList2", url.Values{
		"type":   []string{listType},
		"size":   []string{strconv.Itoa(size)},
		"offset": []string{strconv.Itoa(offset)},
	})
	if err != nil {
		return nil, err
	}
	if resp.AlbumList2 == nil {
		return nil, nil
	}
	return resp.AlbumList2.Album, nil
}

// GetAlbumsByGenre pages through the albums carrying a genre.
func (c *Client) GetAlbumsByGenre(ctx context.Context, genre string, size, offset int) ([]Album, error) {
	resp, err := c.get(ctx, "getAlbumList2", url.Values{
		"type":   []string{"byGenre"},
		"genre":  []string{genre},
		"size":   []string{strconv.Itoa(size)},
		"offset": []string{strconv.Itoa(offset)},
	})
	if err != nil {
		return nil, err
	}
	if resp.AlbumList2 == nil {
		return nil, nil
	}
	return resp.AlbumList2.Album, nil
}

// GetArtists returns all ID3 artists, flattened across index groups.
func (c *Client) GetArtists(ctx context.Context) ([]Artist, error) {
	resp, err := c.get(ctx, "getArtists", nil)
	if err != nil {
		return nil, err
	}
	if resp.Artists == nil {
		return nil, nil
	}
	var out []Artist
	for _, idx := range resp.Artists.Index {
		out = append(out, idx.Artist...)
	}
	return out, nil
}

// GetArtist returns one artist with their albums.
func (c *Client) GetArtist(ctx context.Context, id string) (*Artist, error) {
	resp, err := c.get(ctx, "getArtist", url.Values{"id": []string{id}})
	if err != nil {
		return nil, err
	}
	return resp.Artist, nil
}

// GetAlbum returns one album with its songs.
func (c *Client) GetAlbum(ctx context.Context, id string) (*Album, error) {
	resp, err := c.get(ctx, "getAlbum", url.Values{"id": []string{id}})
	if err != nil {
		return nil, err
	}
	return resp.Album, nil
}

// GetSong returns one song.
func (c *Client) GetSong(ctx context.Context, id string) (*Child, error) {
	resp, err := c.get(ctx, "getSong", url.Values{"id": []string{id}})
	if err != nil {
		return nil, err
	}
	return resp.Song, nil
}

// GetGenres returns all genres.
func (c *Client) GetGenres(ctx context.Context) ([]Genre, error) {
	resp, err := c.get(ctx, "getGenres", nil)
	if err != nil {
		return nil, err
	}
	if resp.Genres == nil {
		return nil, nil
	}
	return resp.Genres.Genre, nil
}

// GetSongsByGenre pages through the songs carrying a genre.
func (c *Client) GetSongsByGenre(ctx context.Context, genre string, count, offset int) ([]Child, error) {
	resp, err := c.get(ctx, "getSongsByGenre", url.Values{
		"genre":  []string{genre},
		"count":  []string{strconv.Itoa(count)},
		"offset": []string{strconv.Itoa(offset)},
	})
	if err != nil {
		return nil, err
	}
	if resp.SongsByGenre == nil {
		return nil, nil
	}
	return resp.SongsByGenre.Song, nil
}

// GetRandomSongs returns up to size random songs.
func (c *Client) GetRandomSongs(ctx context.Context, size int) ([]Child, error) {
	resp, err := c.get(ctx, "getRandomSongs", url.Values{"size": []string{strconv.Itoa(size)}})
	if err != nil {
		return nil, err
	}
	if resp.RandomSongs == nil {
		return nil, nil
	}
	return resp.RandomSongs.Song, nil
}

// GetPlaylists returns all playlists visible to the user.
func (c *Client) GetPlaylists(ctx context.Context) ([]Playlist, error) {
	resp, err := c.get(ctx, "getPlaylists", nil)
	if err != nil {
		return nil, err
	}
	if resp.Playlists == nil {
		return nil, nil
	}
	return resp.Playlists.Playlist, nil
}

// GetPlaylist returns one playlist with its entries.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	resp, err := c.get(ctx, "getPlaylist", url.Values{"id": []string{id}})
	if err != nil {
		return nil, err
	}
	return resp.Playlist, nil
}

// CreatePlaylist creates an empty playlist and returns it.
func (c *Client) CreatePlaylist(ctx context.Context, name string) (*Playlist, error) {
	resp, err := c.get(ctx, "createPlaylist", url.Values{"name": []string{name}})
	if err != nil {
		return nil, err
	}
	return resp.Playlist, nil
}

// UpdatePlaylist renames a playlist and adds or removes songs. name may be
// empty to keep the current one; removals are zero-based entry indexes.
func (c *Client) UpdatePlaylist(ctx context.Context, id, name string, songIDsToAdd []string, indexesToRemove []int) error {
	params := url.Values{"playlistId": []string{id}}
	if name != "" {
		params.Set("name", name)
	}
	for _, songID := range songIDsToAdd {
		params.Add("songIdToAdd", songID)
	}
	for _, idx := range indexesToRemove {
		params.Add("songIndexToRemove", strconv.Itoa(idx))
	}
	_, err := c.get(ctx, "updatePlaylist", params)
	return err
}

// DeletePlaylist removes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	_, err := c.get(ctx, "deletePlaylist", url.Values{"id": []string{id}})
	return err
}

// Search3 searches songs, albums and artists.
func (c *Client) Search3(ctx context.Context, query string, count int) (*SearchResult3, error) {
	n := strconv.Itoa(count)
	resp, err := c.get(ctx, "search3", url.Values{
		"query":       []string{query},
		"songCount":   []string{n},
		"albumCount":  []string{n},
		"artistCount": []string{n},
	})
	if err != nil {
		return nil, err
	}
	if resp.SearchResult3 == nil {
		return &SearchResult3{}, nil
	}
	return resp.SearchResult3, nil
}
