// Package eventlog records workflow invocations in a bounded, append-only log.
//
// Writing to the log is best effort: failures are logged as warnings and never reach the caller.
package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wansing/docflow/metrics"
)

// An Entry describes one workflow invocation.
type Entry struct {
	ID     string
	Seq    int64 // ascending
	Time   time.Time
	User   string
	Class  string // workflow
	Method string
	Args   string // json
	Result string // json
	Path   string // document path affected
	Error  string // empty on success
}

type EventDB interface {
	AppendEvent(ctx context.Context, e *Entry) error
	PruneEvents(ctx context.Context, keep int) (int64, error) // removes the oldest entries so that keep entries remain
	RecentEvents(ctx context.Context, limit int) ([]*Entry, error) // newest first
}

type Mode string

const (
	Truncate Mode = "truncate"
	Fold     Mode = "fold" // not available, behaves like Truncate
)

type Config struct {
	MaxEntries int // zero means unbounded
	Mode       Mode
}

type Logger struct {
	db      EventDB
	cfg     Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	lastSeq int64
}

func New(db EventDB, cfg Config, log zerolog.Logger, m *metrics.Metrics) *Logger {
	if cfg.Mode == "" {
		cfg.Mode = Truncate
	}
	if cfg.Mode == Fold {
		log.Warn().Msg("event log mode fold is not available, truncating oldest entries instead")
		cfg.Mode = Truncate
	}
	return &Logger{
		db:      db,
		cfg:     cfg,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

func (l *Logger) nextSeq(t time.Time) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	seq := t.UnixNano()
	if seq <= l.lastSeq {
		seq = l.lastSeq + 1
	}
	l.lastSeq = seq
	return seq
}

// Log appends e and prunes the oldest entries if the log exceeds its bound. It never fails.
// A nil *Logger discards everything.
func (l *Logger) Log(ctx context.Context, e Entry) {

	if l == nil || l.db == nil {
		return
	}

	if e.Time.IsZero() {
		e.Time = l.now()
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Seq = l.nextSeq(e.Time)

	if err := l.db.AppendEvent(ctx, &e); err != nil {
		l.metrics.EventLogFailed()
		l.log.Warn().Err(err).Str("class", e.Class).Str("method", e.Method).Str("path", e.Path).Msg("could not write event log entry")
		return
	}

	if l.cfg.MaxEntries <= 0 {
		return
	}

	pruned, err := l.db.PruneEvents(ctx, l.cfg.MaxEntries)
	if err != nil {
		l.metrics.EventLogFailed()
		l.log.Warn().Err(err).Int("max_entries", l.cfg.MaxEntries).Msg("could not truncate event log")
		return
	}
	l.metrics.EventLogTruncated(pruned)
}

// Recent returns up to limit entries, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if l == nil || l.db == nil {
		return []*Entry{}, nil
	}
	return l.db.RecentEvents(ctx, limit)
}
