package results

import (
	"database/sql"

	"codeberg.org/mutker/wearsim/internal/errors"
	"codeberg.org/mutker/wearsim/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS ttf_samples (
	       component    TEXT    NOT NULL,
	       trial        INTEGER NOT NULL,
	       ttf_seconds  REAL    NOT NULL,
	       PRIMARY KEY (component, trial)
	   );
	   CREATE INDEX IF NOT EXISTS idx_ttf_component ON ttf_samples (component);`

	insertSampleSQL = `
    INSERT OR REPLACE INTO ttf_samples (component, trial, ttf_seconds)
    VALUES (?, ?, ?)`
)

// InitSchema creates a new database schema with the current version.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(ErrSchemaFailed, err)
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.Wrap(ErrSchemaFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaFailed, err)
	}
	committed = true

	log.Debug().Int("version", SchemaVersion).Msg("Results schema initialized")

	return nil
}

// GetSchemaVersion returns the schema version recorded in the database, or
// zero for a fresh database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := tableExists(db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaFailed, err)
	}

	return version, nil
}

// ValidateAndUpdateSchema brings the database to the current schema version.
// Results databases are derived artifacts, regenerable by rerunning, so a
// version mismatch drops and recreates the tables rather than migrating.
func ValidateAndUpdateSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}
	if version == SchemaVersion {
		return nil
	}

	if version != 0 {
		log.Warn().
			Int("found", version).
			Int("want", SchemaVersion).
			Msg("Results schema version mismatch, recreating")
		if _, err := db.Exec(`DROP TABLE IF EXISTS ttf_samples; DROP TABLE IF EXISTS schema_versions`); err != nil {
			return errFactory.Wrap(ErrSchemaFailed, err)
		}
	}

	return InitSchema(db, log)
}

func tableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().Wrap(ErrSchemaFailed, err)
	}
	return exists, nil
}
