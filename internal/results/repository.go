// Package results persists and formats simulation output: the per-component
// TTF samples, the derived MTTF statistics and the per-unit aging-rate
// reports.
package results

import (
	"database/sql"
	"os"
	"path/filepath"

	"codeberg.org/mutker/wearsim/internal/errors"
	"codeberg.org/mutker/wearsim/internal/logger"
	"codeberg.org/mutker/wearsim/internal/platform"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultDirPerm   = 0o755
	defaultBatchSize = 256
)

// Config configures the TTF sample store.
type Config struct {
	DBPath    string
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		BatchSize: defaultBatchSize,
	}
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New().New(ErrInvalidDBPath)
	}
	return nil
}

// Repository stores TTF samples from a simulation run.
type Repository interface {
	Record(component string, trial int, ttfSeconds float64) error
	Close() error
}

type sample struct {
	component string
	trial     int
	ttf       float64
}

type repository struct {
	db     *sql.DB
	log    logger.Logger
	cfg    Config
	buffer []sample
}

// NewRepository opens (or creates) the results database at cfg.DBPath and
// brings its schema up to date. Inserts are buffered and flushed in batched
// transactions.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := ValidateAndUpdateSchema(db, log); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Msg("Results repository initialized")

	return &repository{
		db:     db,
		log:    log,
		cfg:    cfg,
		buffer: make([]sample, 0, cfg.BatchSize),
	}, nil
}

func (r *repository) Record(component string, trial int, ttfSeconds float64) error {
	r.buffer = append(r.buffer, sample{component: component, trial: trial, ttf: ttfSeconds})

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	if err := r.flush(); err != nil {
		return err
	}

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	r.log.Debug().Msg("Results repository closed")

	return nil
}

func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrStorageFailed, err)
	}

	stmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrStorageFailed, err)
	}
	defer stmt.Close()

	for _, s := range r.buffer {
		if _, err := stmt.Exec(s.component, s.trial, s.ttf); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Error().Err(rbErr).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrStorageFailed, err)
	}

	r.log.Debug().Int("records", len(r.buffer)).Msg("Flushed TTF samples to database")
	r.buffer = r.buffer[:0]

	return nil
}

// Store writes every component's accumulated TTF samples to the repository.
// The trial index is the position in the component's sample list.
func Store(repo Repository, root platform.Component) error {
	var storeErr error
	platform.Walk(root, func(c platform.Component) {
		if storeErr != nil {
			return
		}
		for trial, ttf := range c.Lifetimes().Values() {
			if err := repo.Record(c.Name(), trial, ttf); err != nil {
				storeErr = err
				return
			}
		}
	})
	return storeErr
}
