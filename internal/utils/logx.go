package utils

import (
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogxManager hands out one zap logger per node name. With a base path
// each node gets its own directory of level-split files; without one,
// everything goes to a shared console core on stderr.
type LogxManager struct {
	basePath string
	console  bool
	nop      bool
	loggers  map[string]*zap.Logger
}

func NewManager(base string) *LogxManager {
	m := &LogxManager{basePath: base, loggers: make(map[string]*zap.Logger)}

	if err := os.MkdirAll(m.basePath, 0744); err != nil {
		log.Printf("failed to create base log dir %s: %v", m.basePath, err)
	}
	return m
}

// NewConsoleManager logs every node to stderr. Used when no log path is
// configured.
func NewConsoleManager() *LogxManager {
	return &LogxManager{console: true, loggers: make(map[string]*zap.Logger)}
}

// NewNopManager discards everything. Used by tests.
func NewNopManager() *LogxManager {
	return &LogxManager{nop: true, loggers: make(map[string]*zap.Logger)}
}

func (m *LogxManager) Get(node string) *zap.Logger {
	if lg, ok := m.loggers[node]; ok {
		return lg
	}
	var lg *zap.Logger
	switch {
	case m.nop:
		lg = zap.NewNop()
	case m.console:
		encCfg := zapcore.EncoderConfig{
			MessageKey: "msg", NameKey: "node", LineEnding: zapcore.DefaultLineEnding,
		}
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), zapcore.InfoLevel)
		lg = zap.New(core).Named(node)
	default:
		lg = m.fileLogger(node)
	}
	m.loggers[node] = lg
	return lg
}

func (m *LogxManager) fileLogger(node string) *zap.Logger {
	dir := filepath.Join(m.basePath, node)
	if err := os.MkdirAll(dir, 0744); err != nil {
		log.Printf("failed to create log dir %s: %v", dir, err)
	}

	encCfg := zapcore.EncoderConfig{MessageKey: "msg", LineEnding: zapcore.DefaultLineEnding}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	infoOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "info.log")))
	errorOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "error.log")))
	dbgOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "debug.log")))

	infoLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.InfoLevel || l == zapcore.WarnLevel })
	errLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
	dbgLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.DebugLevel })

	tee := zapcore.NewTee(
		zapcore.NewCore(encoder, infoOut, infoLv),
		zapcore.NewCore(encoder, errorOut, errLv),
		zapcore.NewCore(encoder, dbgOut, dbgLv),
	)
	return zap.New(tee)
}

func (m *LogxManager) openLogFile(path string) *os.File {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", path, err)
		return os.Stdout
	}
	return f
}
