package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// SubsonicConfig is one configured Subsonic server.
type SubsonicConfig struct {
	ID                      int64
	Name                    string
	URL                     string
	Username                string
	Password                string
	UseLegacyAuthentication bool
}

// JellyfinConfig is one configured Jellyfin server. DeviceID is minted once
// on creation and reused for every authentication against that server.
type JellyfinConfig struct {
	ID       int64
	Name     string
	URL      string
	Username string
	Password string
	DeviceID string
}

// QobuzConfig is one configured Qobuz account.
type QobuzConfig struct {
	ID       int64
	Name     string
	Email    string
	Password string
}

// AddSubsonicProvider inserts a Subsonic server and returns its id.
func (s *Store) AddSubsonicProvider(cfg SubsonicConfig) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.Exec(`
		INSERT INTO subsonic_provider (name, url, username, password, use_legacy_authentication)
		VALUES (?, ?, ?, ?, ?)
	`, cfg.Name, cfg.URL, cfg.Username, cfg.Password, boolToInt(cfg.UseLegacyAuthentication))
	if err != nil {
		return 0, fmt.Errorf("failed to insert subsonic provider: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.providersChanged.Notify()
	return id, nil
}

// UpdateSubsonicProvider rewrites a Subsonic server's configuration.
func (s *Store) UpdateSubsonicProvider(cfg SubsonicConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec(`
		UPDATE subsonic_provider
		SET name = ?, url = ?, username = ?, password = ?, use_legacy_authentication = ?
		WHERE id = ?
	`, cfg.Name, cfg.URL, cfg.Username, cfg.Password, boolToInt(cfg.UseLegacyAuthentication), cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to update subsonic provider: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	s.providersChanged.Notify()
	return nil
}

// DeleteSubsonicProvider removes a Subsonic server.
func (s *Store) DeleteSubsonicProvider(id int64) error {
	return s.deleteProvider("subsonic_provider", id)
}

// SubsonicProviders lists all configured Subsonic servers.
func (s *Store) SubsonicProviders() ([]SubsonicConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT id, name, url, username, password, use_legacy_authentication
		FROM subsonic_provider ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subsonic providers: %w", err)
	}
	defer rows.Close()

	var out []SubsonicConfig
	for rows.Next() {
		var cfg SubsonicConfig
		var legacy int
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Username, &cfg.Password, &legacy); err != nil {
			return nil, err
		}
		cfg.UseLegacyAuthentication = legacy != 0
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// SubsonicProvider returns one configured Subsonic server.
func (s *Store) SubsonicProvider(id int64) (SubsonicConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return SubsonicConfig{}, err
	}
	var cfg SubsonicConfig
	var legacy int
	err = db.QueryRow(`
		SELECT id, name, url, username, password, use_legacy_authentication
		FROM subsonic_provider WHERE id = ?
	`, id).Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Username, &cfg.Password, &legacy)
	if err == sql.ErrNoRows {
		return SubsonicConfig{}, ErrNotFound
	}
	if err != nil {
		return SubsonicConfig{}, err
	}
	cfg.UseLegacyAuthentication = legacy != 0
	return cfg, nil
}

// AddJellyfinProvider inserts a Jellyfin server, minting its device
// identifier, and returns its id.
func (s *Store) AddJellyfinProvider(cfg JellyfinConfig) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}
	res, err := db.Exec(`
		INSERT INTO jellyfin_provider (name, url, username, password, device_identifier)
		VALUES (?, ?, ?, ?, ?)
	`, cfg.Name, cfg.URL, cfg.Username, cfg.Password, cfg.DeviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert jellyfin provider: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.providersChanged.Notify()
	return id, nil
}

// UpdateJellyfinProvider rewrites a Jellyfin server's configuration. The
// device identifier is kept.
func (s *Store) UpdateJellyfinProvider(cfg JellyfinConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec(`
		UPDATE jellyfin_provider
		SET name = ?, url = ?, username = ?, password = ?
		WHERE id = ?
	`, cfg.Name, cfg.URL, cfg.Username, cfg.Password, cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to update jellyfin provider: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	s.providersChanged.Notify()
	return nil
}

// DeleteJellyfinProvider removes a Jellyfin server.
func (s *Store) DeleteJellyfinProvider(id int64) error {
	return s.deleteProvider("jellyfin_provider", id)
}

// JellyfinProviders lists all configured Jellyfin servers.
func (s *Store) JellyfinProviders() ([]JellyfinConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT id, name, url, username, password, device_identifier
		FROM jellyfin_provider ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jellyfin providers: %w", err)
	}
	defer rows.Close()

	var out []JellyfinConfig
	for rows.Next() {
		var cfg JellyfinConfig
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Username, &cfg.Password, &cfg.DeviceID); err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// JellyfinProvider returns one configured Jellyfin server.
func (s *Store) JellyfinProvider(id int64) (JellyfinConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return JellyfinConfig{}, err
	}
	var cfg JellyfinConfig
	err = db.QueryRow(`
		SELECT id, name, url, username, password, device_identifier
		FROM jellyfin_provider WHERE id = ?
	`, id).Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Username, &cfg.Password, &cfg.DeviceID)
	if err == sql.ErrNoRows {
		return JellyfinConfig{}, ErrNotFound
	}
	if err != nil {
		return JellyfinConfig{}, err
	}
	return cfg, nil
}

// AddQobuzProvider inserts a Qobuz account and returns its id.
func (s *Store) AddQobuzProvider(cfg QobuzConfig) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.Exec(`
		INSERT INTO qobuz_provider (name, email, password) VALUES (?, ?, ?)
	`, cfg.Name, cfg.Email, cfg.Password)
	if err != nil {
		return 0, fmt.Errorf("failed to insert qobuz provider: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.providersChanged.Notify()
	return id, nil
}

// UpdateQobuzProvider rewrites a Qobuz account's configuration.
func (s *Store) UpdateQobuzProvider(cfg QobuzConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec(`
		UPDATE qobuz_provider SET name = ?, email = ?, password = ? WHERE id = ?
	`, cfg.Name, cfg.Email, cfg.Password, cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to update qobuz provider: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	s.providersChanged.Notify()
	return nil
}

// DeleteQobuzProvider removes a Qobuz account.
func (s *Store) DeleteQobuzProvider(id int64) error {
	return s.deleteProvider("qobuz_provider", id)
}

// QobuzProviders lists all configured Qobuz accounts.
func (s *Store) QobuzProviders() ([]QobuzConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`SELECT id, name, email, password FROM qobuz_provider ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query qobuz providers: %w", err)
	}
	defer rows.Close()

	var out []QobuzConfig
	for rows.Next() {
		var cfg QobuzConfig
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.Email, &cfg.Password); err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// QobuzProvider returns one configured Qobuz account.
func (s *Store) QobuzProvider(id int64) (QobuzConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return QobuzConfig{}, err
	}
	var cfg QobuzConfig
	err = db.QueryRow(`SELECT id, name, email, password FROM qobuz_provider WHERE id = ?`, id).
		Scan(&cfg.ID, &cfg.Name, &cfg.Email, &cfg.Password)
	if err == sql.ErrNoRows {
		return QobuzConfig{}, ErrNotFound
	}
	if err != nil {
		return QobuzConfig{}, err
	}
	return cfg, nil
}

func (s *Store) deleteProvider(table string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec("DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	s.providersChanged.Notify()
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
