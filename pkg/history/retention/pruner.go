package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/history"
)

// Config configures retention.
type Config struct {
	// RetentionDays drops records older than this many days. 0 keeps them.
	RetentionDays int

	// MaxRecords keeps at most this many records. 0 means unlimited.
	MaxRecords int64

	// Schedule is the standard cron expression the scheduler runs on.
	// Empty disables scheduling.
	Schedule string
}

// ConfigFrom converts the history.retention configuration section.
func ConfigFrom(cfg *config.RetentionConfig) *Config {
	if cfg == nil {
		return &Config{
			RetentionDays: config.DefaultHistoryRetentionDays,
			Schedule:      config.DefaultHistoryRetentionSchedule,
		}
	}
	return &Config{
		RetentionDays: cfg.Days,
		MaxRecords:    int64(cfg.MaxRecords),
		Schedule:      cfg.Schedule,
	}
}

// Reporter observes pruning.
type Reporter interface {
	RecordHistoryPruned(n int64)
}

// Pruner deletes history records past their retention.
type Pruner struct {
	storage  history.Storage
	config   *Config
	reporter Reporter
	logger   *slog.Logger
	now      func() time.Time
}

// NewPruner creates a pruner. reporter may be nil.
func NewPruner(storage history.Storage, cfg *Config, reporter Reporter, logger *slog.Logger) *Pruner {
	if cfg == nil {
		cfg = ConfigFrom(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage:  storage,
		config:   cfg,
		reporter: reporter,
		logger:   logger.With("component", "history.retention"),
		now:      time.Now,
	}
}

// Prune removes records older than the retention period, then the oldest
// records beyond MaxRecords. It returns the number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		n, err := p.pruneByAge(ctx)
		if err != nil {
			return total, &history.RetentionError{RetentionDays: p.config.RetentionDays, Cause: err}
		}
		total += n
	}

	if p.config.MaxRecords > 0 {
		n, err := p.pruneByCount(ctx)
		if err != nil {
			return total, &history.RetentionError{RetentionDays: p.config.RetentionDays, Cause: err}
		}
		total += n
	}

	if p.reporter != nil && total > 0 {
		p.reporter.RecordHistoryPruned(total)
	}
	if total > 0 {
		p.logger.Info("History pruned",
			"deleted_count", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Debug("No history records pruned")
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	n, err := p.storage.Delete(ctx, &history.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("prune by age failed: %w", err)
	}
	return n, nil
}

// pruneByCount deletes everything up to the start time of the newest
// record that has to go. Records sharing that instant go with it.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	excess := count - p.config.MaxRecords
	if excess <= 0 {
		return 0, nil
	}

	oldest, err := p.storage.Query(ctx, &history.Query{Limit: int(excess), SortOrder: "asc"})
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].StartedAt
	n, err := p.storage.Delete(ctx, &history.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("prune by count failed: %w", err)
	}
	return n, nil
}
