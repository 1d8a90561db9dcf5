// Package jellyfinapi is a minimal client for the Jellyfin HTTP API,
// covering the music browsing, search and playlist endpoints the Jellyfin
// data source needs. Authentication is lazy: the first request logs in with
// AuthenticateByName, the token is cached, and a 401 triggers exactly one
// re-authentication and retry.
package jellyfinapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const clientVersion = "1.0.0"

// StatusError is a non-2xx HTTP response from the server.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jellyfin %s returned HTTP %d", e.Endpoint, e.StatusCode)
}

// Client talks to one Jellyfin server on behalf of one user.
type Client struct {
	baseURL    string
	username   string
	password   string
	deviceID   string
	httpClient *http.Client

	mu     sync.Mutex
	token  string
	userID string
}

// NewClient creates a client. deviceID must be stable across restarts so
// the server keeps recognizing the session.
func NewClient(baseURL, username, password, deviceID string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type authResponse struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID string `json:"Id"`
	} `json:"User"`
}

func (c *Client) authHeader() string {
	return fmt.Sprintf(`MediaBrowser Client="twelve", Device="twelve", DeviceId="%s", Version="%s"`,
		c.deviceID, clientVersion)
}

// authenticate logs in and caches the access token and user id.
func (c *Client) authenticate(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"Username": c.username,
		"Pw":       c.password,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/Users/AuthenticateByName", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Endpoint: "AuthenticateByName"}
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	c.mu.Lock()
	c.token = auth.AccessToken
	c.userID = auth.User.ID
	c.mu.Unlock()
	return nil
}

// session returns the cached token and user id, authenticating first if
// needed.
func (c *Client) session(ctx context.Context) (token, userID string, err error) {
	c.mu.Lock()
	token, userID = c.token, c.userID
	c.mu.Unlock()
	if token != "" {
		return token, userID, nil
	}
	if err := c.authenticate(ctx); err != nil {
		return "", "", err
	}
	c.mu.Lock()
	token, userID = c.token, c.userID
	c.mu.Unlock()
	return token, userID, nil
}

func (c *Client) invalidate(stale string) {
	c.mu.Lock()
	if c.token == stale {
		c.token = ""
	}
	c.mu.Unlock()
}

// do performs one authenticated request, re-authenticating once on 401.
// The returned body is fully read.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		token, _, err := c.session(ctx)
		if err != nil {
			return nil, err
		}

		endpoint := c.baseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", c.authHeader())
		req.Header.Set("X-Emby-Token", token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call %s: %w", path, err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.invalidate(token)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: path}
		}
		return data, nil
	}
}

// Item is one library entry of any type.
type Item struct {
	ID             string     `json:"Id"`
	Name           string     `json:"Name"`
	Type           string     `json:"Type"`
	Album          string     `json:"Album"`
	AlbumID        string     `json:"AlbumId"`
	AlbumArtist    string     `json:"AlbumArtist"`
	AlbumArtists   []NamedRef `json:"AlbumArtists"`
	ArtistItems    []NamedRef `json:"ArtistItems"`
	GenreItems     []NamedRef `json:"GenreItems"`
	ProductionYear int        `json:"ProductionYear"`
	IndexNumber    int        `json:"IndexNumber"`
	ParentIndex    int        `json:"ParentIndexNumber"`
	RunTimeTicks   int64      `json:"RunTimeTicks"`
	PlaylistItemID string     `json:"PlaylistItemId"`
	ImageTags      struct {
		Primary string `json:"Primary"`
	} `json:"ImageTags"`
}

// NamedRef is an id/name pair referencing another item.
type NamedRef struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// DurationMs converts the item's runtime from ticks (100ns) to
// milliseconds.
func (i Item) DurationMs() int64 {
	return i.RunTimeTicks / 10_000
}

type itemsPage struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// ItemsOptions narrows an item listing.
type ItemsOptions struct {
	IncludeItemTypes string
	ParentID         string
	AlbumArtistIDs   string
	GenreIDs         string
	SearchTerm       string
	SortBy           string
	SortOrder        string
}

// Items lists library entries for the authenticated user.
func (c *Client) Items(ctx context.Context, opts ItemsOptions) ([]Item, error) {
	_, userID, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	query := url.Values{"Recursive": []string{"true"}}
	if opts.IncludeItemTypes != "" {
		query.Set("IncludeItemTypes", opts.IncludeItemTypes)
	}
	if opts.ParentID != "" {
		query.Set("ParentId", opts.ParentID)
	}
	if opts.AlbumArtistIDs != "" {
		query.Set("AlbumArtistIds", opts.AlbumArtistIDs)
	}
	if opts.GenreIDs != "" {
		query.Set("GenreIds", opts.GenreIDs)
	}
	if opts.SearchTerm != "" {
		query.Set("SearchTerm", opts.SearchTerm)
	}
	if opts.SortBy != "" {
		query.Set("SortBy", opts.SortBy)
	}
	if opts.SortOrder != "" {
		query.Set("SortOrder", opts.SortOrder)
	}

	data, err := c.do(ctx, http.MethodGet, "/Users/"+userID+"/Items", query, nil)
	if err != nil {
		return nil, err
	}
	var page itemsPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return page.Items, nil
}

// Item returns one library entry.
func (c *Client) Item(ctx context.Context, id string) (*Item, error) {
	_, userID, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, "/Users/"+userID+"/Items/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}

// SystemInfo describes the server, as reported by /System/Info.
type SystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
}

// System returns the server's identity. It needs an authenticated session,
// so it doubles as a credential check.
func (c *Client) System(ctx context.Context) (*SystemInfo, error) {
	data, err := c.do(ctx, http.MethodGet, "/System/Info", nil, nil)
	if err != nil {
		return nil, err
	}
	var info SystemInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode system info: %w", err)
	}
	return &info, nil
}

// MusicGenres lists all music genres.
func (c *Client) MusicGenres(ctx context.Context) ([]Item, error) {
	data, err := c.do(ctx, http.MethodGet, "/MusicGenres", nil, nil)
	if err != nil {
		return nil, err
	}
	var page itemsPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode genres: %w", err)
	}
	return page.Items, nil
}

// PlaylistItems lists a playlist's entries in order.
func (c *Client) PlaylistItems(ctx context.Context, playlistID string) ([]Item, error) {
	_, userID, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, "/Playlists/"+playlistID+"/Items",
		url.Values{"UserId": []string{userID}}, nil)
	if err != nil {
		return nil, err
	}
	var page itemsPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode playlist items: %w", err)
	}
	return page.Items, nil
}

// CreatePlaylist creates an empty audio playlist and returns its id.
func (c *Client) CreatePlaylist(ctx context.Context, name string) (string, error) {
	_, userID, err := c.session(ctx)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(map[string]string{
		"Name":      name,
		"UserId":    userID,
		"MediaType": "Audio",
	})
	if err != nil {
		return "", err
	}
	data, err := c.do(ctx, http.MethodPost, "/Playlists", nil, body)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("failed to decode created playlist: %w", err)
	}
	return created.ID, nil
}

// RenamePlaylist updates a playlist's name.
func (c *Client) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	body, err := json.Marshal(map[string]any{
		"Id":   playlistID,
		"Name": name,
	})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/Items/"+playlistID, nil, body)
	return err
}

// AddToPlaylist appends items to a playlist.
func (c *Client) AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error {
	_, userID, err := c.session(ctx)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/Playlists/"+playlistID+"/Items", url.Values{
		"Ids":    []string{strings.Join(itemIDs, ",")},
		"UserId": []string{userID},
	}, nil)
	return err
}

// RemoveFromPlaylist removes entries from a playlist by their playlist
// entry ids, not their item ids.
func (c *Client) RemoveFromPlaylist(ctx context.Context, playlistID string, entryIDs []string) error {
	_, err := c.do(ctx, http.MethodDelete, "/Playlists/"+playlistID+"/Items", url.Values{
		"EntryIds": []string{strings.Join(entryIDs, ",")},
	}, nil)
	return err
}

// StreamURL returns the direct stream location for an audio item.
func (c *Client) StreamURL(itemID string) string {
	return c.baseURL + "/Audio/" + itemID + "/stream?static=true"
}

// ImageURL returns the primary image location for an item, or "" when the
// item has no primary image tag.
func (c *Client) ImageURL(itemID, imageTag string) string {
	if imageTag == "" {
		return ""
	}
	return c.baseURL + "/Items/" + itemID + "/Images/Primary?tag=" + url.QueryEscape(imageTag)
}
