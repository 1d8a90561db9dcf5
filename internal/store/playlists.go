package store

import (
	"database/sql"
	"fmt"
)

// PlaylistRow is one local playlist.
type PlaylistRow struct {
	ID   int64
	Name string
}

// PlaylistMembershipRow pairs a playlist with whether a given audio URI is
// a member of it.
type PlaylistMembershipRow struct {
	Playlist PlaylistRow
	HasAudio bool
}

// CreatePlaylist inserts an empty playlist and returns its id.
func (s *Store) CreatePlaylist(name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.Exec("INSERT INTO playlist (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create playlist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.playlistsChanged.Notify()
	return id, nil
}

// RenamePlaylist changes a playlist's name.
func (s *Store) RenamePlaylist(id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec("UPDATE playlist SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to rename playlist: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	s.playlistsChanged.Notify()
	return nil
}

// DeletePlaylist removes a playlist and its membership rows.
func (s *Store) DeletePlaylist(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec("DELETE FROM playlist WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	s.playlistsChanged.Notify()
	return nil
}

// Playlists lists all local playlists.
func (s *Store) Playlists() ([]PlaylistRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query("SELECT id, name FROM playlist ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var out []PlaylistRow
	for rows.Next() {
		var row PlaylistRow
		if err := rows.Scan(&row.ID, &row.Name); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Playlist returns one local playlist.
func (s *Store) Playlist(id int64) (PlaylistRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return PlaylistRow{}, err
	}
	var row PlaylistRow
	err = db.QueryRow("SELECT id, name FROM playlist WHERE id = ?", id).Scan(&row.ID, &row.Name)
	if err == sql.ErrNoRows {
		return PlaylistRow{}, ErrNotFound
	}
	if err != nil {
		return PlaylistRow{}, err
	}
	return row, nil
}

// PlaylistTracks returns the audio URIs of a playlist in order.
func (s *Store) PlaylistTracks(id int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT audio_uri FROM playlist_item_cross_ref
		WHERE playlist_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, err
		}
		out = append(out, uri)
	}
	return out, rows.Err()
}

// AddToPlaylist appends an audio URI to a playlist. Adding an existing
// member is a no-op.
func (s *Store) AddToPlaylist(id int64, audioURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := s.playlistLocked(id); err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO playlist_item_cross_ref (playlist_id, audio_uri, position)
		SELECT ?, ?, COALESCE(MAX(position), -1) + 1
		FROM playlist_item_cross_ref WHERE playlist_id = ?
		ON CONFLICT(playlist_id, audio_uri) DO NOTHING
	`, id, audioURI, id)
	if err != nil {
		return fmt.Errorf("failed to add to playlist: %w", err)
	}
	s.playlistsChanged.Notify()
	return nil
}

// RemoveFromPlaylist removes an audio URI from a playlist. Removing a
// non-member succeeds without effect.
func (s *Store) RemoveFromPlaylist(id int64, audioURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := s.playlistLocked(id); err != nil {
		return err
	}
	_, err = db.Exec(`
		DELETE FROM playlist_item_cross_ref WHERE playlist_id = ? AND audio_uri = ?
	`, id, audioURI)
	if err != nil {
		return fmt.Errorf("failed to remove from playlist: %w", err)
	}
	s.playlistsChanged.Notify()
	return nil
}

// PlaylistsWithMembership lists every playlist together with whether the
// given audio URI is a member of it.
func (s *Store) PlaylistsWithMembership(audioURI string) ([]PlaylistMembershipRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT p.id, p.name,
			EXISTS (
				SELECT 1 FROM playlist_item_cross_ref r
				WHERE r.playlist_id = p.id AND r.audio_uri = ?
			)
		FROM playlist p ORDER BY p.id
	`, audioURI)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist membership: %w", err)
	}
	defer rows.Close()

	var out []PlaylistMembershipRow
	for rows.Next() {
		var row PlaylistMembershipRow
		var has int
		if err := rows.Scan(&row.Playlist.ID, &row.Playlist.Name, &has); err != nil {
			return nil, err
		}
		row.HasAudio = has != 0
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) playlistLocked(id int64) (PlaylistRow, error) {
	var row PlaylistRow
	err := s.db.QueryRow("SELECT id, name FROM playlist WHERE id = ?", id).Scan(&row.ID, &row.Name)
	if err == sql.ErrNoRows {
		return PlaylistRow{}, ErrNotFound
	}
	if err != nil {
		return PlaylistRow{}, err
	}
	return row, nil
}
