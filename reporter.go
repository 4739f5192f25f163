// Package webcodecsgo (reporter.go) re-exports internal/telemetry's
// structured logger, regrounded from the teacher's internal/reporter
// re-export facade: callers get a Logger type and its constructor
// without importing internal/telemetry directly.
package webcodecsgo

import "github.com/five82/webcodecsgo/internal/telemetry"

// Logger is the structured logger a codec facade can be bound to via its
// AttachTelemetry method, so every configure/fail transition afterward
// is logged with that instance's id, codec, and generation.
type Logger = telemetry.Telemetry

// NewLogger sets up a Logger writing to a timestamped file under logDir.
// Returns nil, nil if noLog is true, matching the teacher's pattern of a
// possibly-nil logger when logging is disabled.
var NewLogger = telemetry.Setup

// DefaultLogDir is the XDG-based default log directory.
var DefaultLogDir = telemetry.DefaultLogDir
