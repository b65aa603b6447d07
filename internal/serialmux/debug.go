package serialmux

import (
	"io"
	"log"
	"sync"
)

var (
	mu          sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three logging streams for the serialmux package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger("[serial] ", ops)
	diagLogger = newLogger("[serial] ", diag)
	traceLogger = newLogger("[serial] ", trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func logf(l **log.Logger, format string, args ...interface{}) {
	mu.RLock()
	lg := *l
	mu.RUnlock()
	if lg != nil {
		lg.Printf(format, args...)
	}
}

// opsf logs to the ops stream (actionable warnings, errors, data loss).
func opsf(format string, args ...interface{}) { logf(&opsLogger, format, args...) }

// diagf logs to the diag stream (day-to-day diagnostics).
func diagf(format string, args ...interface{}) { logf(&diagLogger, format, args...) }

// tracef logs to the trace stream (per-chunk telemetry).
func tracef(format string, args ...interface{}) { logf(&traceLogger, format, args...) }
