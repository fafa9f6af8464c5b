// Package logging provides a leveled, sink-swappable logger for the store.
//
// Output is suppressed entirely in MCP mode so stdio stays protocol-clean,
// whatever sink is configured, a log file from InitLogFile included.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level orders log severity from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MCPMode suppresses all log output, whatever the sink (set by the CLI when
// it switches to serving MCP over stdio).
var MCPMode = false

var (
	mu         sync.Mutex
	output     io.Writer
	outputFile *os.File
	minLevel   = LevelDebug
)

// SetMCPMode toggles suppression of log output.
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetMinLevel sets the minimum level that is written to the sink.
func SetMinLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput sets a custom writer for log output. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitLogFile opens a timestamped log file under the OS temp directory and
// routes all subsequent output there. Returns the file path.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "zlsd-logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("zlsd-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("opening log file: %w", err)
	}

	outputFile = f
	output = f
	return path, nil
}

// Close closes the log file if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if outputFile != nil {
		err := outputFile.Close()
		outputFile = nil
		output = nil
		return err
	}
	return nil
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Logf writes a leveled, component-tagged log line. It is a no-op in MCP
// mode and when the level is below the configured minimum.
func Logf(level Level, component, format string, args ...interface{}) {
	if MCPMode || level < minLevel {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "[%s:%s] %s\n", level, component, msg)
}

// Debugf logs at debug level, used for benign absences (e.g. no
// zls.build.json next to a build.zig).
func Debugf(component, format string, args ...interface{}) {
	Logf(LevelDebug, component, format, args...)
}

// Errorf logs at error level, used for load failures such as a
// non-absolute or unparsable URI.
func Errorf(component, format string, args ...interface{}) {
	Logf(LevelError, component, format, args...)
}

// Warnf logs at warn level.
func Warnf(component, format string, args ...interface{}) {
	Logf(LevelWarn, component, format, args...)
}

// Infof logs at info level.
func Infof(component, format string, args ...interface{}) {
	Logf(LevelInfo, component, format, args...)
}
