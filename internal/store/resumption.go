package store

import (
	"database/sql"
	"fmt"
)

// ResumptionRecord is the persisted playback queue: the ordered stream URIs
// plus the index and position within the track playback stopped at.
type ResumptionRecord struct {
	URIs            []string
	StartIndex      int
	StartPositionMs int64
}

// SaveResumption replaces the persisted queue atomically.
func (s *Store) SaveResumption(rec ResumptionRecord) error {
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
	if _, err := tx.Exec("DELETE FROM resumption_item"); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear resumption items: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM resumption_playlist"); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear resumption record: %w", err)
	}
	if len(rec.URIs) > 0 {
		if _, err := tx.Exec(`
			INSERT INTO resumption_playlist (id, start_index, start_position_ms) VALUES (0, ?, ?)
		`, rec.StartIndex, rec.StartPositionMs); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save resumption record: %w", err)
		}
		for i, uri := range rec.URIs {
			if _, err := tx.Exec(`
				INSERT INTO resumption_item (position, audio_uri) VALUES (?, ?)
			`, i, uri); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to save resumption item: %w", err)
			}
		}
	}
	return tx.Commit()
}

// LoadResumption returns the persisted queue, or ok=false when none exists.
func (s *Store) LoadResumption() (ResumptionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return ResumptionRecord{}, false, err
	}
	var rec ResumptionRecord
	err = db.QueryRow(`
		SELECT start_index, start_position_ms FROM resumption_playlist WHERE id = 0
	`).Scan(&rec.StartIndex, &rec.StartPositionMs)
	if err == sql.ErrNoRows {
		return ResumptionRecord{}, false, nil
	}
	if err != nil {
		return ResumptionRecord{}, false, err
	}

	rows, err := db.Query("SELECT audio_uri FROM resumption_item ORDER BY position")
	if err != nil {
		return ResumptionRecord{}, false, fmt.Errorf("failed to query resumption items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return ResumptionRecord{}, false, err
		}
		rec.URIs = append(rec.URIs, uri)
	}
	if err := rows.Err(); err != nil {
		return ResumptionRecord{}, false, err
	}
	return rec, true, nil
}

// ClearResumption drops the persisted queue.
func (s *Store) ClearResumption() error {
	return s.SaveResumption(ResumptionRecord{})
}
