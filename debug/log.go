package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink selects where log lines go
type Sink int

const (
	SinkNone   Sink = iota // discard everything
	SinkFile               // truncating debug file, for the TUI
	SinkStderr             // console on stderr, for headless commands
)

// Options configures New
type Options struct {
	Sink  Sink
	Level string    // debug, info, warn, error
	Path  string    // file sink path, DefaultPath() when empty
	Out   io.Writer // overrides the sink's writer when set
}

// DefaultPath returns ~/.config/go-recplay/debug.log
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "go-recplay", "debug.log")
}

// ParseLevel maps a level name to a zap level, defaulting to info
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds the process logger. The returned func flushes and releases the
// sink; call it on exit.
func New(opts Options) (*zap.Logger, func(), error) {
	if opts.Sink == SinkNone && opts.Out == nil {
		return zap.NewNop(), func() {}, nil
	}

	var (
		ws      zapcore.WriteSyncer
		closeFn = func() {}
	)
	switch {
	case opts.Out != nil:
		ws = zapcore.AddSync(opts.Out)
	case opts.Sink == SinkFile:
		path := opts.Path
		if path == "" {
			path = DefaultPath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("debug log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("debug log: %w", err)
		}
		ws = zapcore.AddSync(f)
		closeFn = func() { f.Close() }
	default:
		ws = zapcore.Lock(os.Stderr)
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if opts.Sink == SinkStderr && opts.Out == nil {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), ws, ParseLevel(opts.Level))
	log := zap.New(core, zap.AddCaller())
	log.Info("=== Debug logging started ===")

	return log, func() {
		log.Sync()
		closeFn()
	}, nil
}
