package results

import "codeberg.org/mutker/wearsim/internal/errors"

const (
	// Storage errors
	ErrInvalidDBPath = errors.ErrInvalidDBPath
	ErrStorageInit   = errors.ErrInitResults
	ErrStorageClose  = errors.ErrCloseResults
	ErrStorageFailed = errors.ErrStorageFailed

	// Schema errors
	ErrSchemaFailed = errors.ErrSchemaFailed

	// Recording errors
	ErrRecordFailed = errors.ErrRecordFailed

	// Report errors
	ErrWriteReport     = errors.ErrWriteReport
	ErrInvalidTimeUnit = errors.ErrInvalidTimeUnit
)
