package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS snapshot_versions (
	version_id     TEXT PRIMARY KEY,
	parent_id      TEXT,
	iteration      INTEGER NOT NULL,
	snapshot_json  TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES snapshot_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshot_versions(version_id)
);
`
// #endregion schema

// #region store-struct
// Store persists versioned controller snapshots in SQLite. This is the
// persistence collaborator: the controller itself never touches storage.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. the
// decision log).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region save
// SaveSnapshot inserts a new version with the current active version as
// its parent, and moves the active pointer, atomically.
func (s *Store) SaveSnapshot(snap controller.Snapshot) (VersionRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return VersionRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	var parentID string
	err = tx.QueryRow(`SELECT version_id FROM active_snapshot WHERE id = 1`).Scan(&parentID)
	if err == nil {
		parentPtr = parentID
	} else if err != sql.ErrNoRows {
		return VersionRecord{}, fmt.Errorf("read active: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO snapshot_versions (version_id, parent_id, iteration, snapshot_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, parentPtr, snap.Iteration, string(snapJSON), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_snapshot (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		id,
	)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return VersionRecord{}, fmt.Errorf("commit: %w", err)
	}

	return VersionRecord{
		VersionID: id,
		ParentID:  parentID,
		Iteration: snap.Iteration,
		Snapshot:  snap,
		CreatedAt: now,
	}, nil
}
// #endregion save

// #region get-current
// GetCurrent reads the active snapshot version.
func (s *Store) GetCurrent() (VersionRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_snapshot WHERE id = 1`).Scan(&versionID)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}
// #endregion get-current

// #region get-version
// GetVersion retrieves a specific snapshot version by ID.
func (s *Store) GetVersion(id string) (VersionRecord, error) {
	var rec VersionRecord
	var parentID sql.NullString
	var snapJSON string
	var createdStr string

	err := s.db.QueryRow(
		`SELECT version_id, parent_id, iteration, snapshot_json, created_at
		 FROM snapshot_versions WHERE version_id = ?`, id,
	).Scan(&rec.VersionID, &parentID, &rec.Iteration, &snapJSON, &createdStr)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}

	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(snapJSON), &rec.Snapshot); err != nil {
		return VersionRecord{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)

	return rec, nil
}
// #endregion get-version

// #region rollback
// Rollback sets the active pointer to a previous version. The supervisor
// uses this to restart a fresh controller from the last good snapshot.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM snapshot_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(`UPDATE active_snapshot SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
// #endregion rollback

// #region list-versions
// ListVersions returns the most recent snapshot versions.
func (s *Store) ListVersions(limit int) ([]VersionRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, iteration, snapshot_json, created_at
		 FROM snapshot_versions ORDER BY created_at DESC, iteration DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []VersionRecord
	for rows.Next() {
		var rec VersionRecord
		var parentID sql.NullString
		var snapJSON string
		var createdStr string

		if err := rows.Scan(&rec.VersionID, &parentID, &rec.Iteration, &snapJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if parentID.Valid {
			rec.ParentID = parentID.String
		}
		if err := json.Unmarshal([]byte(snapJSON), &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-versions
