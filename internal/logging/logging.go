// Package logging provides category-scoped, rotation-aware logging for
// the orchestration core. Every component gets its own child logger via
// For(category) so log lines are attributable without grepping for a
// package name string, scoping by Category the familiar way but backed
// by zap instead of a hand-rolled *log.Logger.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Category names the subsystem emitting a log line.
type Category string

const (
	CategoryOrchestrator   Category = "orchestrator"
	CategoryPlanner        Category = "planner"
	CategoryVerifier       Category = "verifier"
	CategoryLLM            Category = "llm"
	CategoryTools          Category = "tools"
	CategoryFileCache      Category = "filecache"
	CategoryAnalysisCache  Category = "analysiscache"
	CategoryRepoContext    Category = "repocontext"
	CategoryCheckpoint     Category = "checkpoint"
	CategoryTransaction    Category = "transaction"
	CategorySubAgent       Category = "subagent"
	CategoryRouter         Category = "router"
)

var (
	mu       sync.RWMutex
	root     *zap.Logger
	children = make(map[Category]*zap.Logger)
	debug    bool
)

// Options configures the root logger.
type Options struct {
	// Dir is the directory log files are written under (e.g. .revcore/logs).
	// Empty disables file output (stderr only), used by tests.
	Dir string
	// Debug raises the level to debug and enables stack traces on Error.
	Debug bool
	// MaxSizeMB is the lumberjack rotation threshold.
	MaxSizeMB int
}

// Init wires the root logger. Safe to call more than once; the last
// call wins. Tests typically call Init(Options{}) for a stderr-only,
// info-level logger.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	debug = opts.Debug
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var writer zapcore.WriteSyncer
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return err
		}
		maxSize := opts.MaxSizeMB
		if maxSize == 0 {
			maxSize = 50
		}
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Dir + "/revcore.log",
			MaxSize:    maxSize,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	} else {
		writer = zapcore.AddSync(os.Stderr)
	}

	core := zapcore.NewCore(encoder, writer, level)
	logOpts := []zap.Option{}
	if opts.Debug {
		logOpts = append(logOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	root = zap.New(core, logOpts...)
	children = make(map[Category]*zap.Logger)
	return nil
}

func ensureRoot() *zap.Logger {
	mu.RLock()
	r := root
	mu.RUnlock()
	if r != nil {
		return r
	}
	_ = Init(Options{})
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// For returns (and memoizes) the child logger for a category.
func For(category Category) *zap.Logger {
	mu.RLock()
	l, ok := children[category]
	mu.RUnlock()
	if ok {
		return l
	}

	r := ensureRoot()
	mu.Lock()
	defer mu.Unlock()
	if l, ok := children[category]; ok {
		return l
	}
	l = r.With(zap.String("category", string(category)))
	children[category] = l
	return l
}

// DebugEnabled reports whether debug-level logging (and thus stack
// traces on error) is currently active.
func DebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debug
}

// Sync flushes buffered log entries; call on process shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}
