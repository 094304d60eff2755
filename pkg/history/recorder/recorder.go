package recorder

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"mercator-hq/exceller/pkg/history"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
)

// Config configures the recorder.
type Config struct {
	// AsyncBuffer is the capacity of the write queue.
	AsyncBuffer int

	// WriteTimeout bounds a single storage write and the wait for queue room.
	WriteTimeout time.Duration

	// MaxErrorLength truncates stored error messages.
	MaxErrorLength int
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		MaxErrorLength: 500,
	}
}

// Reporter observes storage writes.
type Reporter interface {
	RecordHistoryWrite(err error)
}

// Run describes one finished transformation.
type Run struct {
	RunID         string
	Schema        string
	SchemaVersion string
	StartedAt     time.Time
	Duration      time.Duration
	Input         any
	Output        any
	Err           error
}

// Recorder turns runs into history records and writes them in the
// background. Record never blocks on storage.
type Recorder struct {
	storage  history.Storage
	config   *Config
	reporter Reporter
	logger   *slog.Logger
	now      func() time.Time

	queue     chan *history.Record
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithReporter reports every write outcome to r.
func WithReporter(r Reporter) Option {
	return func(rec *Recorder) { rec.reporter = r }
}

// New starts a recorder writing to storage.
func New(storage history.Storage, cfg *Config, logger *slog.Logger, opts ...Option) *Recorder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "history.recorder"),
		now:     time.Now,
		queue:   make(chan *history.Record, cfg.AsyncBuffer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()
	return r
}

// Build creates the record for run without storing it.
func (r *Recorder) Build(run Run) *history.Record {
	rec := &history.Record{
		ID:            uuid.New().String(),
		RunID:         run.RunID,
		Schema:        run.Schema,
		SchemaVersion: run.SchemaVersion,
		StartedAt:     run.StartedAt.UTC(),
		Duration:      run.Duration,
		Status:        history.StatusSuccess,
		RecordedAt:    r.now().UTC(),
	}
	if rec.RunID == "" {
		rec.RunID = rec.ID
	}

	var err error
	if rec.InputHash, rec.InputSize, err = HashValue(run.Input); err != nil {
		r.logger.Warn("Failed to hash run input", "run_id", rec.RunID, "error", err)
	}

	if run.Err != nil {
		rec.Status = history.StatusError
		rec.ErrorKind = string(schemaerrors.KindOf(run.Err))
		if rec.ErrorKind == "" {
			rec.ErrorKind = "internal"
		}
		rec.ErrorMessage = r.truncate(firstLine(run.Err.Error()))
		return rec
	}

	if rec.OutputHash, rec.OutputSize, err = HashValue(run.Output); err != nil {
		r.logger.Warn("Failed to hash run output", "run_id", rec.RunID, "error", err)
	}
	return rec
}

// Record queues run for writing and returns the record ID. It fails when
// the queue stays full for WriteTimeout or the recorder is closed.
func (r *Recorder) Record(run Run) (string, error) {
	rec := r.Build(run)

	select {
	case <-r.done:
		return "", &history.RecorderError{RecordID: rec.ID, Cause: context.Canceled}
	default:
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.queue <- rec:
		return rec.ID, nil
	case <-timer.C:
		r.logger.Error("History queue full, dropping record",
			"record_id", rec.ID,
			"schema", rec.Schema,
			"capacity", r.config.AsyncBuffer,
		)
		r.report(context.DeadlineExceeded)
		return "", &history.RecorderError{RecordID: rec.ID, Cause: context.DeadlineExceeded}
	case <-r.done:
		return "", &history.RecorderError{RecordID: rec.ID, Cause: context.Canceled}
	}
}

// Close drains the queue and waits for pending writes.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Debug("History recorder stopped")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		case <-r.done:
			for {
				select {
				case rec := <-r.queue:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *history.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := r.storage.Store(ctx, rec)
	r.report(err)
	if err != nil {
		r.logger.Error("Failed to store history record",
			"record_id", rec.ID,
			"schema", rec.Schema,
			"error", err,
		)
		return
	}

	elapsed := time.Since(start)
	r.logger.Debug("History recorded",
		"record_id", rec.ID,
		"schema", rec.Schema,
		"status", rec.Status,
		"duration_ms", elapsed.Milliseconds(),
	)
	if elapsed > r.config.WriteTimeout/2 {
		r.logger.Warn("Slow history write",
			"record_id", rec.ID,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
}

func (r *Recorder) report(err error) {
	if r.reporter != nil {
		r.reporter.RecordHistoryWrite(err)
	}
}

func (r *Recorder) truncate(s string) string {
	if r.config.MaxErrorLength <= 0 || len(s) <= r.config.MaxErrorLength {
		return s
	}
	cut := r.config.MaxErrorLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
