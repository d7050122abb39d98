package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Level is the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a level name to a Level. Unknown names yield LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// Logger is a small concurrency-safe leveled logger.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	prefix string
	color  bool
	now    func() time.Time
}

// New creates a Logger. Colour is enabled when out is a terminal.
func New(out io.Writer, level Level, prefix string) *Logger {
	return &Logger{
		out:    out,
		level:  level,
		prefix: prefix,
		color:  IsTerminal(out),
		now:    time.Now,
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) SetColor(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = enabled
}

func (l *Logger) paint(code, text string) string {
	if !l.color || code == "" {
		return text
	}
	return code + text + ansiReset
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	var name, code string
	switch level {
	case LevelDebug:
		name, code = "DEBUG", ansiDim
	case LevelInfo:
		name = "INFO"
	case LevelWarn:
		name, code = "WARN", ansiYellow
	default:
		name, code = "ERROR", ansiRed
	}

	line := fmt.Sprintf("[%s] %s %s: %s", l.now().Format("15:04:05"), name, l.prefix, fmt.Sprintf(format, args...))
	_, _ = fmt.Fprintln(l.out, l.paint(code, line))
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// Writer returns an io.Writer that logs every line written to it at level.
// It lets gin and net/http share the logger.
func (l *Logger) Writer(level Level) io.Writer {
	return lineWriter{l: l, level: level}
}

type lineWriter struct {
	l     *Logger
	level Level
}

func (w lineWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.l.log(w.level, "%s", line)
		}
	}
	return len(p), nil
}

var defaultLogger = New(os.Stderr, LevelInfo, "seoaudit")

// Default returns the process wide logger.
func Default() *Logger {
	return defaultLogger
}
