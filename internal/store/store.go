// Package store persists everything the aggregation core owns locally:
// configured provider instances, local playlists, playback statistics,
// last-played positions and the resumption queue. It is a SQLite database
// with per-concern change signals so the repository layer can re-run
// queries when the underlying rows move.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/anuragxone/twelve-remix/internal/watch"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the database.
	DefaultDBPath = "data/twelve.db"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("row not found")

// Store is the SQLite-backed persistence layer.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string

	providersChanged  *watch.Signal
	playlistsChanged  *watch.Signal
	lastPlayedChanged *watch.Signal
}

// New creates a Store instance for the given database path.
func New(path string) *Store {
	if path == "" {
		path = DefaultDBPath
	}
	return &Store{
		path:              path,
		providersChanged:  watch.NewSignal(),
		playlistsChanged:  watch.NewSignal(),
		lastPlayedChanged: watch.NewSignal(),
	}
}

// ProvidersChanged signals after any provider row is added, updated or
// removed.
func (s *Store) ProvidersChanged() *watch.Signal { return s.providersChanged }

// PlaylistsChanged signals after any local playlist or its membership rows
// change.
func (s *Store) PlaylistsChanged() *watch.Signal { return s.playlistsChanged }

// LastPlayedChanged signals after a last-played position is written.
func (s *Store) LastPlayedChanged() *watch.Signal { return s.lastPlayedChanged }

// Open opens the database and initializes the schema.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.path+"?_journal=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s.db = db

	if err := s.initSchema(); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", s.path).Msg("Store database opened")
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// initSchema initializes the database schema.
func (s *Store) initSchema() error {
	currentVersion := s.getSchemaVersion()

	if currentVersion == "" {
		if err := s.createSchema(); err != nil {
			return err
		}
		return s.setMeta("schema_version", CurrentSchemaVersion)
	}

	if currentVersion != CurrentSchemaVersion {
		log.Info().
			Str("current", currentVersion).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating store schema")
		// Add migration logic here when schema changes
		return s.setMeta("schema_version", CurrentSchemaVersion)
	}

	return nil
}

// createSchema creates all database tables.
func (s *Store) createSchema() error {
	schema := `
	-- Configured Subsonic servers
	CREATE TABLE IF NOT EXISTS subsonic_provider (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		use_legacy_authentication INTEGER NOT NULL DEFAULT 0,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- Configured Jellyfin servers
	CREATE TABLE IF NOT EXISTS jellyfin_provider (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		device_identifier TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- Configured Qobuz accounts
	CREATE TABLE IF NOT EXISTS qobuz_provider (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- Last played stream per account key
	CREATE TABLE IF NOT EXISTS last_played (
		key TEXT PRIMARY KEY,
		uri TEXT NOT NULL,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- Play statistics for local media
	CREATE TABLE IF NOT EXISTS local_media_stats (
		audio_uri TEXT PRIMARY KEY,
		play_count INTEGER NOT NULL DEFAULT 0,
		last_played_at TEXT
	);

	-- Local playlists
	CREATE TABLE IF NOT EXISTS playlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlist_item_cross_ref (
		playlist_id INTEGER NOT NULL,
		audio_uri TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (playlist_id, audio_uri),
		FOREIGN KEY (playlist_id) REFERENCES playlist(id) ON DELETE CASCADE
	);

	-- Persisted playback queue for session resumption (single row)
	CREATE TABLE IF NOT EXISTS resumption_playlist (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		start_index INTEGER NOT NULL,
		start_position_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resumption_item (
		position INTEGER PRIMARY KEY,
		audio_uri TEXT NOT NULL
	);

	-- Store metadata
	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_cross_ref_playlist ON playlist_item_cross_ref(playlist_id, position);
	CREATE INDEX IF NOT EXISTS idx_stats_count ON local_media_stats(play_count DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info().Msg("Store schema created")
	return nil
}

// getSchemaVersion returns the current schema version.
func (s *Store) getSchemaVersion() string {
	var version string
	err := s.db.QueryRow("SELECT value FROM store_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

// setMeta sets a metadata value.
func (s *Store) setMeta(key, value string) error {
	now := time.Now().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO store_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, now, value, now)
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not open")
	}
	return s.db, nil
}
