// Package telemetry provides structured logging for the codec engine. It
// keeps the shape of the teacher's internal/logging (Setup/Info/Debug/
// Writer) but logs structured fields through a zerolog.Logger instead of
// a hand-rolled log.Logger, since an engine juggling many concurrent
// codec instances needs each log line tagged with which instance and
// which generation produced it.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLogDir returns the default log directory following the XDG Base
// Directory spec: $XDG_STATE_HOME/webcodecsgo/logs, defaulting to
// ~/.local/state/webcodecsgo/logs.
func DefaultLogDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "webcodecsgo", "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "webcodecsgo", "logs")
	}
	return filepath.Join(home, ".local", "state", "webcodecsgo", "logs")
}

// Telemetry wraps a zerolog.Logger writing to a timestamped log file,
// with level filtering (info vs. debug) controlled at Setup time.
type Telemetry struct {
	logger zerolog.Logger
	file   *os.File
}

// Setup creates a Telemetry writing to a timestamped log file under
// logDir. Returns nil, nil if logging is disabled (noLog=true). cmdArgs
// is logged as the invoking command line.
func Setup(logDir string, verbose, noLog bool, cmdArgs []string) (*Telemetry, error) {
	if noLog {
		return nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filePath := filepath.Join(logDir, fmt.Sprintf("webcodecsgo_run_%s.log", timestamp))

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(file).Level(level).With().Timestamp().Logger()

	t := &Telemetry{logger: logger, file: file}
	t.Info("command started", map[string]any{"args": cmdArgs})
	if verbose {
		t.Debug("debug level logging enabled", nil)
	}
	t.Info("log file opened", map[string]any{"path": filePath})

	return t, nil
}

// Close closes the log file. A nil receiver is a no-op, matching the
// teacher's pattern of a possibly-nil Logger when logging is disabled.
func (t *Telemetry) Close() error {
	if t == nil || t.file == nil {
		return nil
	}
	return t.file.Close()
}

// Info logs an info-level event with structured fields.
func (t *Telemetry) Info(msg string, fields map[string]any) {
	if t == nil {
		return
	}
	ev := t.logger.Info()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Debug logs a debug-level event, filtered out unless verbose was set at
// Setup time.
func (t *Telemetry) Debug(msg string, fields map[string]any) {
	if t == nil {
		return
	}
	ev := t.logger.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Error logs an error-level event, optionally attaching err.
func (t *Telemetry) Error(msg string, err error, fields map[string]any) {
	if t == nil {
		return
	}
	ev := t.logger.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Writer returns an io.Writer over the log file, for redirecting other
// writers (e.g. a container muxer's diagnostic output) into the same
// file.
func (t *Telemetry) Writer() io.Writer {
	if t == nil || t.file == nil {
		return io.Discard
	}
	return t.file
}

// ForInstance returns a child logger with codec/instance fields
// pre-bound, so every subsequent log line from one codec instance's
// lifecycle (configure, encode, flush, error) carries its identity
// without repeating it at each call site.
func (t *Telemetry) ForInstance(instanceID, codec string) *InstanceLogger {
	if t == nil {
		return nil
	}
	return &InstanceLogger{t: t, instanceID: instanceID, codec: codec}
}

// InstanceLogger binds a codec instance's identity to every event it
// logs, plus whatever generation/state fields each call site supplies.
type InstanceLogger struct {
	t          *Telemetry
	instanceID string
	codec      string
}

// Rebind returns a copy of l bound to a new codec string, for an
// instance that just (re)configured with a different codec.
func (l *InstanceLogger) Rebind(codec string) *InstanceLogger {
	return &InstanceLogger{t: l.t, instanceID: l.instanceID, codec: codec}
}

func (l *InstanceLogger) merge(fields map[string]any) map[string]any {
	out := map[string]any{"instance": l.instanceID, "codec": l.codec}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (l *InstanceLogger) Info(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.t.Info(msg, l.merge(fields))
}

func (l *InstanceLogger) Debug(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.t.Debug(msg, l.merge(fields))
}

func (l *InstanceLogger) Error(msg string, err error, fields map[string]any) {
	if l == nil {
		return
	}
	l.t.Error(msg, err, l.merge(fields))
}
