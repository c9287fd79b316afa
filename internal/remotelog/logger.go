// Package remotelog implements the per-run event stream: a single-writer
// logger that serializes LogEvents as newline-delimited JSON onto an
// in-process byte pipe whose readable side is handed to the HTTP layer as a
// response body. The pipe preserves write order, so events are observed by
// the consumer exactly in emission order.
package remotelog

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphaarc/platform/internal/domain"
)

// Tap observes every event written to a logger. Taps are best-effort
// mirrors (e.g. for live watchers); they must not block.
type Tap func(domain.LogEvent)

// Option configures a Logger.
type Option func(*Logger)

// WithTap registers a tap invoked after each event is written to the stream.
func WithTap(tap Tap) Option {
	return func(l *Logger) { l.tap = tap }
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// Logger relays LogEvents from one producer (the run task) to one consumer
// (the HTTP response) with no intermediate buffering. The producer side is
// single-writer by contract: Log and Close must be called from the run task
// only, and Close exactly once. Abandon may be called from the consumer side
// at any time.
type Logger struct {
	pr  *io.PipeReader
	pw  *io.PipeWriter
	tap Tap
	now func() time.Time

	tsMu sync.Mutex
	last time.Time

	closed    atomic.Bool
	abandoned atomic.Bool
}

// New creates a Logger backed by an in-process pipe.
func New(opts ...Option) *Logger {
	pr, pw := io.Pipe()
	l := &Logger{pr: pr, pw: pw, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reader returns the readable side of the stream, suitable for use as an
// HTTP response body. The reader sees EOF after Close.
func (l *Logger) Reader() io.Reader { return l.pr }

// Log emits an event with no structured payload.
func (l *Logger) Log(t domain.LogType, msg string) {
	l.LogData(t, msg, nil)
}

// LogData emits an event carrying a structured payload. Calling LogData
// after Close is a programming error and panics. If the consumer is gone
// (Abandon was called), the event is dropped silently and the run may finish
// its remaining work without a stream.
func (l *Logger) LogData(t domain.LogType, msg string, data any) {
	if l.closed.Load() {
		panic("remotelog: Log after Close")
	}
	if l.abandoned.Load() {
		return
	}
	ev := domain.LogEvent{
		Timestamp: l.stamp(),
		Type:      t,
		Message:   msg,
		Data:      data,
	}
	line, err := json.Marshal(ev)
	if err != nil {
		// Unmarshalable payload: keep the stream intact, drop the data.
		ev.Data = nil
		line, _ = json.Marshal(ev)
	}
	line = append(line, '\n')
	if _, werr := l.pw.Write(line); werr != nil {
		if errors.Is(werr, io.ErrClosedPipe) {
			l.abandoned.Store(true)
		}
		return
	}
	if l.tap != nil {
		l.tap(ev)
	}
}

// stamp returns a wall-clock timestamp that never goes backwards within
// this logger instance.
func (l *Logger) stamp() time.Time {
	l.tsMu.Lock()
	defer l.tsMu.Unlock()
	ts := l.now()
	if ts.Before(l.last) {
		ts = l.last
	}
	l.last = ts
	return ts
}

// Close finalizes the stream: the reader observes EOF and the HTTP response
// completes. Close must be called exactly once per run; a second call is a
// programming error and panics.
func (l *Logger) Close() {
	if l.closed.Swap(true) {
		panic("remotelog: Close called twice")
	}
	l.pw.Close()
}

// Abandoned reports whether the consumer has gone away.
func (l *Logger) Abandoned() bool { return l.abandoned.Load() }

// Abandon tears down the readable side after the consumer disconnects.
// Pending and subsequent Log calls are dropped rather than treated as
// errors: the run is allowed to finish its side effects without a stream.
// Close must still be called exactly once by the owner.
func (l *Logger) Abandon(err error) {
	l.abandoned.Store(true)
	l.pr.CloseWithError(err)
}
