package csvlog

// Package csvlog appends every published snapshot as a CSV row. Rows are
// queued to a background writer and dropped when it falls behind, so that
// publishing never waits on disk I/O.

import (
	"encoding/csv"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/croessner/ldapsampler/internal/sampler"
)

const flushInterval = 2 * time.Second

var header = func() []string {
	h := []string{"timestamp", "series"}
	for _, b := range sampler.AllBuckets() {
		h = append(h, b.String())
	}

	return append(h, "dropped", "wraps")
}()

type row struct {
	at   time.Time
	snap sampler.Snapshot
}

// Logger writes snapshot rows to a CSV file in batches.
type Logger struct {
	path    string
	batch   int
	logger  *slog.Logger
	ch      chan row
	stopCh  chan struct{}
	wg      sync.WaitGroup
	skipped atomic.Uint64
	now     func() time.Time
}

// New starts a Logger appending to path. When path is empty, New returns nil;
// a nil *Logger ignores every call.
func New(path string, batch int, logger *slog.Logger) *Logger {
	if path == "" {
		return nil
	}

	if batch <= 0 {
		batch = 64
	}

	if logger == nil {
		logger = slog.Default()
	}

	l := &Logger{
		path:   path,
		batch:  batch,
		logger: logger,
		ch:     make(chan row, batch*4),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}

	l.wg.Add(1)
	go l.run()

	return l
}

// Publish queues snap for writing.
func (l *Logger) Publish(snap sampler.Snapshot) {
	if l == nil {
		return
	}

	select {
	case l.ch <- row{at: l.now(), snap: snap}:
	default:
		l.skipped.Add(1)
	}
}

// Skipped returns the number of rows discarded on backpressure.
func (l *Logger) Skipped() uint64 {
	if l == nil {
		return 0
	}

	return l.skipped.Load()
}

// Close flushes pending rows and stops the writer.
func (l *Logger) Close() {
	if l == nil {
		return
	}

	close(l.stopCh)
	l.wg.Wait()
}

func record(r row) []string {
	rec := make([]string, 0, len(header))
	rec = append(rec, r.at.Format(time.RFC3339Nano), r.snap.Name)

	for _, b := range sampler.AllBuckets() {
		rec = append(rec, strconv.FormatInt(r.snap.Value(b), 10))
	}

	return append(rec,
		strconv.FormatUint(r.snap.Dropped, 10),
		strconv.FormatUint(r.snap.Wraps, 10),
	)
}

func (l *Logger) run() {
	defer l.wg.Done()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.logger.Error("Summary log disabled", "path", l.path, "error", err)
		<-l.stopCh

		return
	}

	defer f.Close()

	w := csv.NewWriter(f)
	if st, err := f.Stat(); err == nil && st.Size() == 0 {
		_ = w.Write(header)
		w.Flush()
	}

	buf := make([]row, 0, l.batch)
	flush := func() {
		if len(buf) == 0 {
			return
		}

		for _, r := range buf {
			_ = w.Write(record(r))
		}

		w.Flush()
		if err := w.Error(); err != nil {
			l.logger.Warn("Summary log write failed", "path", l.path, "error", err)
		}

		buf = buf[:0]
	}

	add := func(r row) {
		buf = append(buf, r)
		if len(buf) >= l.batch {
			flush()
		}
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			for {
				select {
				case r := <-l.ch:
					add(r)
				default:
					flush()

					return
				}
			}
		case r := <-l.ch:
			add(r)
		case <-ticker.C:
			flush()
		}
	}
}
