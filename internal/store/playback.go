package store

import (
	"database/sql"
	"fmt"
	"time"
)

// LastPlayed returns the most recently played stream URI for an account
// key, or ok=false when none was recorded.
func (s *Store) LastPlayed(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return "", false, err
	}
	var uri string
	err = db.QueryRow("SELECT uri FROM last_played WHERE key = ?", key).Scan(&uri)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return uri, true, nil
}

// SetLastPlayed records the most recently played stream URI for an account
// key.
func (s *Store) SetLastPlayed(key, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	now := time.Now().Format(time.RFC3339)
	_, err = db.Exec(`
		INSERT INTO last_played (key, uri, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET uri = ?, updated_at = ?
	`, key, uri, now, uri, now)
	if err != nil {
		return fmt.Errorf("failed to record last played: %w", err)
	}
	s.lastPlayedChanged.Notify()
	return nil
}

// MediaStat is one playback counter for a local audio URI.
type MediaStat struct {
	AudioURI     string
	PlayCount    int64
	LastPlayedAt time.Time
}

// playbackRetryWindow is how long a repeated playback notification for the
// same URI is treated as a retry of the previous one rather than a new play.
const playbackRetryWindow = 10 * time.Second

// RecordPlayback bumps the play counter for a local audio URI. The call is
// idempotent under retry: a second notification for the same URI inside the
// retry window counts once.
func (s *Store) RecordPlayback(audioURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	now := time.Now()
	var at string
	err = db.QueryRow(
		"SELECT COALESCE(last_played_at, '') FROM local_media_stats WHERE audio_uri = ?",
		audioURI,
	).Scan(&at)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read playback row: %w", err)
	}
	if at != "" {
		if prev, perr := time.Parse(time.RFC3339, at); perr == nil && now.Sub(prev) < playbackRetryWindow {
			return nil
		}
	}

	stamp := now.Format(time.RFC3339)
	_, err = db.Exec(`
		INSERT INTO local_media_stats (audio_uri, play_count, last_played_at) VALUES (?, 1, ?)
		ON CONFLICT(audio_uri) DO UPDATE SET play_count = play_count + 1, last_played_at = ?
	`, audioURI, stamp, stamp)
	if err != nil {
		return fmt.Errorf("failed to record playback: %w", err)
	}
	return nil
}

// MostPlayed returns up to limit stats rows ordered by descending play
// count.
func (s *Store) MostPlayed(limit int) ([]MediaStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT audio_uri, play_count, COALESCE(last_played_at, '')
		FROM local_media_stats ORDER BY play_count DESC, audio_uri LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query media stats: %w", err)
	}
	defer rows.Close()

	var out []MediaStat
	for rows.Next() {
		var stat MediaStat
		var at string
		if err := rows.Scan(&stat.AudioURI, &stat.PlayCount, &at); err != nil {
			return nil, err
		}
		if at != "" {
			stat.LastPlayedAt, _ = time.Parse(time.RFC3339, at)
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

// RecentlyPlayed returns up to limit stats rows ordered by most recent
// playback.
func (s *Store) RecentlyPlayed(limit int) ([]MediaStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT audio_uri, play_count, COALESCE(last_played_at, '')
		FROM local_media_stats
		WHERE last_played_at IS NOT NULL
		ORDER BY last_played_at DESC, audio_uri LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query media stats: %w", err)
	}
	defer rows.Close()

	var out []MediaStat
	for rows.Next() {
		var stat MediaStat
		var at string
		if err := rows.Scan(&stat.AudioURI, &stat.PlayCount, &at); err != nil {
			return nil, err
		}
		if at != "" {
			stat.LastPlayedAt, _ = time.Parse(time.RFC3339, at)
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

// StatsURIs returns every audio URI with a stats row.
func (s *Store) StatsURIs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query("SELECT audio_uri FROM local_media_stats")
	if err != nil {
		return nil, err
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

// DeleteStats removes the stats rows for the given audio URIs. Used by the
// startup garbage collection pass once a URI no longer resolves.
func (s *Store) DeleteStats(audioURIs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, uri := range audioURIs {
		if _, err := tx.Exec("DELETE FROM local_media_stats WHERE audio_uri = ?", uri); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to delete stats row: %w", err)
		}
	}
	return tx.Commit()
}
