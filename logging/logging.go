package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output selects the streams log entries are written to
type Output int

const (
	// OutputSplit writes errors to stderr and everything else to stdout
	OutputSplit Output = iota
	// OutputStderr writes every entry to stderr, keeping stdout for command output
	OutputStderr
)

var (
	stdout zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
	stderr zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	output = OutputSplit
)

var (
	logger  *zap.SugaredLogger
	wrapped *zap.SugaredLogger // skips the helper frame when reporting callers
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logFile *os.File
	mu      sync.Mutex
	isSetup bool
)

func init() {
	setLogger(newLogger(nil))
}

func setLogger(l *zap.Logger) {
	logger = l.Sugar()
	wrapped = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// newLogger builds a JSON logger writing to the streams chosen by output.
// A non-nil file receives every level.
func newLogger(file *os.File) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	var cores []zapcore.Core
	if output == OutputStderr {
		cores = append(cores, zapcore.NewCore(encoder, stderr, level))
	} else {
		stderrLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return level.Enabled(lvl) && lvl >= zapcore.ErrorLevel
		})
		stdoutLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return level.Enabled(lvl) && lvl < zapcore.ErrorLevel
		})
		cores = append(cores,
			zapcore.NewCore(encoder, stderr, stderrLevel),
			zapcore.NewCore(encoder, stdout, stdoutLevel),
		)
	}
	if file != nil {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(file), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// SetLevel changes the minimum level for every output
func SetLevel(lvl zapcore.Level) {
	level.SetLevel(lvl)
}

// SetOutput rebuilds the logger for the given streams, keeping the log file if one is open
func SetOutput(o Output) {
	mu.Lock()
	defer mu.Unlock()

	output = o
	setLogger(newLogger(logFile))
}

// SetupLogger additionally writes every log entry to the specified log file
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = f
	setLogger(newLogger(logFile))
	logger.Infof("photosearch log started at %s", time.Now().Format(time.RFC3339))

	isSetup = true
	return nil
}

// CloseLogger flushes the logger and closes the log file
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	_ = logger.Sync()
	if logFile != nil {
		logFile.Close()
		logFile = nil
		setLogger(newLogger(nil))
		isSetup = false
	}
}

// Logger returns the shared structured logger
func Logger() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func helper() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return wrapped
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	helper().Infof(format, args...)
}

// DebugLog logs a message at debug level
func DebugLog(format string, args ...interface{}) {
	helper().Debugf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	helper().Errorf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	helper().Warnf(format, args...)
}

// LogImageProcessed logs the outcome of processing a single image
func LogImageProcessed(path string, routine string, err error) {
	if err == nil {
		helper().Debugw("image processed", "path", path, "routine", routine)
		return
	}
	helper().Warnw("image processing failed", "path", path, "routine", routine, "error", err)
}
