// Package mpd provides a wrapper around the gompd MPD client, scoped to
// the catalog side of the protocol: tag listings, finds, search and album
// art. The local data source builds its library view on top of it.
package mpd

import (
	"fmt"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"
)

// Client wraps the MPD client with reconnection logic.
type Client struct {
	mu       sync.RWMutex
	client   *mpd.Client
	watcher  *mpd.Watcher
	host     string
	port     int
	password string
}

// NewClient creates a new MPD client wrapper.
func NewClient(host string, port int, password string) *Client {
	return &Client{
		host:     host,
		port:     port,
		password: password,
	}
}

// Connect establishes connection to MPD.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked()
}

// connectLocked establishes connection (must hold lock).
func (c *Client) connectLocked() error {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	log.Info().Str("addr", addr).Msg("Connecting to MPD")

	client, err := mpd.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to MPD: %w", err)
	}

	if c.password != "" {
		if err := client.Command("password %s", c.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("MPD authentication failed: %w", err)
		}
	}

	c.client = client
	log.Info().Msg("Connected to MPD")
	return nil
}

// ensureConnected checks connection and reconnects if needed.
func (c *Client) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return c.connectLocked()
	}

	// Try a ping to check if connection is alive
	if err := c.client.Ping(); err != nil {
		log.Warn().Err(err).Msg("MPD connection lost, reconnecting...")
		c.client.Close()
		c.client = nil
		return c.connectLocked()
	}

	return nil
}

// Close closes the MPD connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}

	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// Ping checks if the connection is alive.
func (c *Client) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return fmt.Errorf("not connected")
	}
	return c.client.Ping()
}

// Watch starts watching for MPD subsystem changes.
// Returns a channel that receives subsystem names when they change.
func (c *Client) Watch(subsystems ...string) (<-chan string, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)

	watcher, err := mpd.NewWatcher("tcp", addr, c.password, subsystems...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	ch := make(chan string, 10)

	go func() {
		defer close(ch)
		for {
			select {
			case subsystem, ok := <-watcher.Event:
				if !ok {
					return
				}
				ch <- subsystem
			case err := <-watcher.Error:
				log.Error().Err(err).Msg("MPD watcher error")
				// Try to reconnect after a delay
				time.Sleep(time.Second)
			}
		}
	}()

	return ch, nil
}

// ListAllInfo lists all songs under a database path.
func (c *Client) ListAllInfo(uri string) ([]mpd.Attrs, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.ListAllInfo(uri)
}

// ReadPicture retrieves embedded album art for a song.
func (c *Client) ReadPicture(uri string) ([]byte, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.ReadPicture(uri)
}

// AlbumArt retrieves album art from the music directory (cover.jpg, etc).
func (c *Client) AlbumArt(uri string) ([]byte, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.AlbumArt(uri)
}

// AlbumInfo represents an album with its metadata from the MPD database.
type AlbumInfo struct {
	Album       string
	AlbumArtist string
}

// ListAlbums returns all unique albums grouped by album artist. Uses MPD's
// "list" command, which is much faster than scanning directories.
func (c *Client) ListAlbums() ([]AlbumInfo, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// AttrsList("Album") tells the parser that each new entry starts with "Album:" key
	attrs, err := c.client.Command("list album group albumartist").AttrsList("Album")
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}

	var albums []AlbumInfo
	for _, attr := range attrs {
		album := attr["Album"]
		artist := attr["AlbumArtist"]
		if album != "" {
			albums = append(albums, AlbumInfo{
				Album:       album,
				AlbumArtist: artist,
			})
		}
	}

	return albums, nil
}

// ListTag returns the distinct values of one tag across the database, for
// example "albumartist" or "genre".
func (c *Client) ListTag(tag string) ([]string, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	values, err := c.client.List(tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", tag, err)
	}
	return values, nil
}

// FindAlbumTracks finds all tracks for a specific album and optionally
// album artist.
func (c *Client) FindAlbumTracks(album string, albumArtist string) ([]mpd.Attrs, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var cmd *mpd.Command
	if albumArtist != "" {
		cmd = c.client.Command("find album %s albumartist %s", album, albumArtist)
	} else {
		cmd = c.client.Command("find album %s", album)
	}

	// AttrsList("file") tells the parser each song starts with "file:" key
	return cmd.AttrsList("file")
}

// FindByTag finds all songs carrying an exact tag value.
func (c *Client) FindByTag(tag, value string) ([]mpd.Attrs, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.Command("find "+tag+" %s", value).AttrsList("file")
}

// FindFile returns the song attrs for an exact database path, or nil when
// the path is unknown.
func (c *Client) FindFile(path string) (mpd.Attrs, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	songs, err := c.client.Command("find file %s", path).AttrsList("file")
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", path, err)
	}
	if len(songs) == 0 {
		return nil, nil
	}
	return songs[0], nil
}

// Search performs a case-insensitive substring search across any tag.
func (c *Client) Search(query string) ([]mpd.Attrs, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.Command("search any %s", query).AttrsList("file")
}
