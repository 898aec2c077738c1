// Package store persists the platform's state in a local SQLite
// database: registered apps, permission grants, and health records.
// Records are stored with canonical kilocalories; the energy quadruple
// is derived again on the way out.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

// Store owns the daemon's SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the database at dbPath, creating it and its schema if
// necessary. Pass ":memory:" for an ephemeral store (used in tests).
func Open(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty in-memory
		// database, so the pool must stay at one connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS apps (
		id TEXT PRIMARY KEY,
		first_seen_ms INTEGER NOT NULL,
		last_seen_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS grants (
		app_id TEXT NOT NULL,
		access_type TEXT NOT NULL,
		record_type TEXT NOT NULL,
		granted_at_ms INTEGER NOT NULL,
		PRIMARY KEY (app_id, access_type, record_type),
		FOREIGN KEY (app_id) REFERENCES apps(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		record_type TEXT NOT NULL,
		start_ms INTEGER NOT NULL,
		end_ms INTEGER NOT NULL,
		kcal REAL NOT NULL,
		data_origin TEXT NOT NULL DEFAULT '',
		last_modified_ms INTEGER NOT NULL,
		created_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_type_start ON records(record_type, start_ms);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// RegisterApp records that an app introduced itself to the platform,
// creating it on first contact and bumping last-seen afterwards.
func (s *Store) RegisterApp(appID string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(`
		INSERT INTO apps (id, first_seen_ms, last_seen_ms) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_ms = excluded.last_seen_ms`,
		appID, now, now)
	if err != nil {
		return fmt.Errorf("failed to register app %s: %w", appID, err)
	}
	return nil
}

// AppKnown reports whether an app has ever initialized.
func (s *Store) AppKnown(appID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM apps WHERE id = ?`, appID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up app %s: %w", appID, err)
	}
	return true, nil
}

// Grant stores permissions for an app. Granting an already-granted
// permission is a no-op, so the call is idempotent.
func (s *Store) Grant(appID string, perms []permission.Permission) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, p := range perms {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO grants (app_id, access_type, record_type, granted_at_ms)
			VALUES (?, ?, ?, ?)`,
			appID, string(p.AccessType), p.RecordType, now); err != nil {
			return fmt.Errorf("failed to grant %s to %s: %w", p, appID, err)
		}
	}
	return tx.Commit()
}

// Revoke removes permissions from an app. Revoking a permission the
// app never had is a no-op.
func (s *Store) Revoke(appID string, perms []permission.Permission) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range perms {
		if _, err := tx.Exec(`
			DELETE FROM grants WHERE app_id = ? AND access_type = ? AND record_type = ?`,
			appID, string(p.AccessType), p.RecordType); err != nil {
			return fmt.Errorf("failed to revoke %s from %s: %w", p, appID, err)
		}
	}
	return tx.Commit()
}

// GrantsFor returns the app's granted permissions in a stable order.
func (s *Store) GrantsFor(appID string) ([]permission.Permission, error) {
	rows, err := s.db.Query(`
		SELECT access_type, record_type FROM grants
		WHERE app_id = ? ORDER BY record_type, access_type`, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants for %s: %w", appID, err)
	}
	defer rows.Close()

	perms := []permission.Permission{}
	for rows.Next() {
		var access, recordType string
		if err := rows.Scan(&access, &recordType); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		perms = append(perms, permission.Permission{
			AccessType: permission.AccessType(access),
			RecordType: recordType,
		})
	}
	return perms, rows.Err()
}

// InsertRecords appends records of one type. A record without a
// metadata id gets a fresh uuid; a record without a data origin gets
// fallbackOrigin. The platform stamps last-modified itself. Returns
// how many records were stored.
func (s *Store) InsertRecords(recordType, fallbackOrigin string, rs []record.CalorieRecord) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, r := range rs {
		id := r.Metadata.ID
		if id == "" {
			id = uuid.NewString()
		}
		origin := r.Metadata.DataOrigin
		if origin == "" {
			origin = fallbackOrigin
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO records
			(id, record_type, start_ms, end_ms, kcal, data_origin, last_modified_ms, created_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, recordType,
			r.StartTime.UnixMilli(), r.EndTime.UnixMilli(),
			r.Energy.Kilocalories, origin, now, now); err != nil {
			return 0, fmt.Errorf("failed to insert record %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rs), nil
}

// QueryRecords returns records of one type whose interval overlaps
// [from, to], ordered by start time (ties broken by id so the order is
// stable). Timestamps come back in UTC.
func (s *Store) QueryRecords(recordType string, from, to time.Time) ([]record.CalorieRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, start_ms, end_ms, kcal, data_origin, last_modified_ms
		FROM records
		WHERE record_type = ? AND end_ms >= ? AND start_ms <= ?
		ORDER BY start_ms ASC, id ASC`,
		recordType, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	rs := []record.CalorieRecord{}
	for rows.Next() {
		var (
			id, origin            string
			startMS, endMS, modMS int64
			kcal                  float64
		)
		if err := rows.Scan(&id, &startMS, &endMS, &kcal, &origin, &modMS); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rs = append(rs, record.CalorieRecord{
			StartTime: time.UnixMilli(startMS).UTC(),
			EndTime:   time.UnixMilli(endMS).UTC(),
			Energy:    record.EnergyFromKilocalories(kcal),
			Metadata: record.Metadata{
				ID:               id,
				LastModifiedTime: time.UnixMilli(modMS).UTC().Format(time.RFC3339),
				DataOrigin:       origin,
			},
		})
	}
	return rs, rows.Err()
}

// CountRecords reports how many records of one type exist.
func (s *Store) CountRecords(recordType string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE record_type = ?`, recordType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes records of every type that ended before the
// cutoff and reports how many went away.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM records WHERE end_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}
	return res.RowsAffected()
}
