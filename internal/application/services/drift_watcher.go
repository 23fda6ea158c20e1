package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DriftReportFunc receives the outcome of one scheduled drift check
type DriftReportFunc func(results []*FieldSchemaResult, err error)

// DriftWatcher runs drift checks on a cron schedule
type DriftWatcher struct {
	logger   *zap.Logger
	handler  *SchemaHandler
	schedule cron.Schedule
	report   DriftReportFunc

	stopChan chan struct{}
	mu       sync.Mutex
	running  bool
	stopped  bool
}

// ParseSchedule parses a standard five-field cron expression
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// NewDriftWatcher creates a watcher. report may be nil.
func NewDriftWatcher(logger *zap.Logger, handler *SchemaHandler, expr string, report DriftReportFunc) (*DriftWatcher, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	if report == nil {
		report = func([]*FieldSchemaResult, error) {}
	}
	return &DriftWatcher{
		logger:   logger,
		handler:  handler,
		schedule: schedule,
		report:   report,
		stopChan: make(chan struct{}),
	}, nil
}

// NextRun returns the first scheduled time after now
func (w *DriftWatcher) NextRun(now time.Time) time.Time {
	return w.schedule.Next(now)
}

// RunOnce performs one drift check and hands the result to the report func
func (w *DriftWatcher) RunOnce(ctx context.Context) ([]*FieldSchemaResult, error) {
	results, err := w.handler.Drift(ctx)
	if err != nil {
		w.logger.Error("❌ Drift check failed", zap.Error(err))
	} else if len(results) == 0 {
		w.logger.Info("✅ No schema drift")
	} else {
		for _, r := range results {
			w.logger.Warn("⚠️ Schema drift detected",
				zap.String("entity", r.Entity),
				zap.String("table", r.Table),
				zap.Bool("tableMissing", r.TableMissing),
				zap.Strings("missing", r.Missing))
		}
	}
	w.report(results, err)
	return results, err
}

// Start blocks, running a check at every scheduled time until Stop is called
// or ctx is done
func (w *DriftWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("⏰ Drift watcher starting...")
	for {
		next := w.NextRun(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			_, _ = w.RunOnce(ctx)
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("⏰ Drift watcher stopped")
			return
		case <-w.stopChan:
			timer.Stop()
			w.logger.Info("⏰ Drift watcher stopped")
			return
		}
	}
}

// Stop ends the loop started by Start; calling it twice is harmless
func (w *DriftWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	w.running = false
	close(w.stopChan)
}
