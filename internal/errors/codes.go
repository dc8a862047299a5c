package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"

	// Configuration errors
	ErrInvalidConfig     ErrorCode = "invalid_configuration"
	ErrMissingConfig     ErrorCode = "missing_configuration"
	ErrBindFlags         ErrorCode = "bind_flags_failed"
	ErrReadConfig        ErrorCode = "read_config_failed"
	ErrInvalidIterations ErrorCode = "invalid_iterations"
	ErrInvalidTimeUnit   ErrorCode = "invalid_time_unit"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Reliability model errors
	ErrIncompatibleShapes ErrorCode = "incompatible_weibull_shapes"
	ErrInvalidSegments    ErrorCode = "invalid_mttf_segments"

	// Mechanism errors
	ErrReadParameters   ErrorCode = "read_parameters_failed"
	ErrUnknownMechanism ErrorCode = "unknown_mechanism"
	ErrNoMechanisms     ErrorCode = "no_mechanisms_selected"

	// Trace errors
	ErrReadTrace       ErrorCode = "read_trace_failed"
	ErrParseTrace      ErrorCode = "parse_trace_failed"
	ErrMissingQuantity ErrorCode = "missing_quantity"

	// Platform errors
	ErrReadPlatform    ErrorCode = "read_platform_failed"
	ErrParsePlatform   ErrorCode = "parse_platform_failed"
	ErrUnknownUnitKind ErrorCode = "unknown_unit_kind"
	ErrUnknownUnit     ErrorCode = "unknown_unit"

	// Simulation errors
	ErrSimulationAborted ErrorCode = "simulation_aborted"

	// Results errors
	ErrInitResults    ErrorCode = "init_results_failed"
	ErrCloseResults   ErrorCode = "close_results_failed"
	ErrWriteReport    ErrorCode = "write_report_failed"
	ErrInvalidDBPath  ErrorCode = "invalid_db_path"
	ErrSchemaFailed   ErrorCode = "schema_failed"
	ErrStorageFailed  ErrorCode = "storage_failed"
	ErrRecordFailed   ErrorCode = "record_ttf_failed"
	ErrOperationError ErrorCode = "operation_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:           "Internal error occurred",
	ErrInvalidArgument:    "Invalid argument provided",
	ErrNotImplemented:     "Operation not implemented",
	ErrInvalidConfig:      "Invalid configuration",
	ErrMissingConfig:      "Missing configuration",
	ErrBindFlags:          "Failed to bind flags",
	ErrReadConfig:         "Failed to read configuration",
	ErrInvalidIterations:  "Invalid iteration count",
	ErrInvalidTimeUnit:    "Unknown time unit",
	ErrInvalidLogLevel:    "Invalid log level",
	ErrIncompatibleShapes: "Cannot combine Weibull distributions with different shape parameters",
	ErrInvalidSegments:    "Invalid MTTF segment sequence",
	ErrReadParameters:     "Failed to read parameter file",
	ErrUnknownMechanism:   "Unknown aging mechanism",
	ErrNoMechanisms:       "No aging mechanisms selected",
	ErrReadTrace:          "Failed to read trace file",
	ErrParseTrace:         "Failed to parse trace file",
	ErrMissingQuantity:    "Required quantity missing from trace and defaults",
	ErrReadPlatform:       "Failed to read platform description",
	ErrParsePlatform:      "Failed to parse platform description",
	ErrUnknownUnitKind:    "Unknown unit kind",
	ErrUnknownUnit:        "Unit referenced in component tree is not defined",
	ErrSimulationAborted:  "Simulation aborted",
	ErrInitResults:        "Failed to initialize results storage",
	ErrCloseResults:       "Failed to close results storage",
	ErrWriteReport:        "Failed to write report",
	ErrInvalidDBPath:      "Invalid results database path",
	ErrSchemaFailed:       "Results schema operation failed",
	ErrStorageFailed:      "Results storage operation failed",
	ErrRecordFailed:       "Failed to record TTF sample",
	ErrOperationError:     "Operation failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
