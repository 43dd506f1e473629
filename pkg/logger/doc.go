// Package logger builds *slog.Logger values for the gate and its services.
//
// New assembles a JSON or text handler from options and wraps it in a
// LogHandlerDecorator, which runs ContextExtractor callbacks on every record.
// That is how request and execution IDs end up on log lines emitted deep
// inside an admitted action:
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithContextExtractors(requestid.LogAttr, gate.LogAttr),
//	)
//
// FromConfig does the same from an env-loaded Config (LOG_LEVEL,
// LOG_FORMAT, LOG_SERVICE with the "LOG_" prefix).
//
// The attribute helpers (Key, Reason, Strategy, Outcome, ExecutionID, ...)
// fix the field names used across packages. Error and Errors return an empty
// attribute for nil errors, so they can be passed unconditionally.
//
// Discard is the default logger of every package that accepts one.
package logger
