package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"go.uber.org/zap"
)

// PollPolicy is the backoff curve used while waiting for a deploy job
type PollPolicy struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

// DefaultPollPolicy starts at 500ms and grows by half each round, capped at 30s
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Initial:    constants.DeployPollInitial,
		Multiplier: constants.DeployPollMultiplier,
		Max:        constants.DeployPollMax,
	}
}

// Next returns the wait that follows cur
func (p PollPolicy) Next(cur time.Duration) time.Duration {
	next := time.Duration(float64(cur) * p.Multiplier)
	if next > p.Max {
		return p.Max
	}
	return next
}

// normalized replaces the parts of the curve that would keep it from
// growing: a non-positive start, a shrinking multiplier, a cap below the start.
func (p PollPolicy) normalized() PollPolicy {
	def := DefaultPollPolicy()
	if p.Initial <= 0 {
		p.Initial = def.Initial
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Max < p.Initial {
		p.Max = max(def.Max, p.Initial)
	}
	return p
}

// WriterOptions configure a SchemaWriter
type WriterOptions struct {
	APIVersion string
	// Delete turns the batch into a destructive deploy
	Delete bool
	Purge  bool
	// Strict makes any per-item deploy failure fatal
	Strict bool
	Poll   PollPolicy
}

// SchemaWriter accumulates one deploy batch. Write consumes the batch; a
// writer cannot be reused afterwards.
type SchemaWriter struct {
	logger *zap.Logger
	opts   WriterOptions
	sleep  func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	objects  []*schema.CustomObject
	fields   []*schema.CustomField
	seen     map[string]struct{}
	consumed bool
}

// NewSchemaWriter creates an empty batch
func NewSchemaWriter(logger *zap.Logger, opts WriterOptions) *SchemaWriter {
	if opts.APIVersion == "" {
		opts.APIVersion = constants.DefaultAPIVersion
	}
	opts.Poll = opts.Poll.normalized()
	return &SchemaWriter{
		logger: logger,
		opts:   opts,
		sleep:  sleepContext,
		seen:   make(map[string]struct{}),
	}
}

// IsDelete reports whether the batch removes schema
func (w *SchemaWriter) IsDelete() bool {
	return w.opts.Delete
}

// AddCustomObject queues an object with any fields it carries
func (w *SchemaWriter) AddCustomObject(obj *schema.CustomObject) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.consumed {
		return errors.ErrBatchConsumed
	}
	key := strings.ToLower(obj.FullName)
	if _, dup := w.seen[key]; dup {
		// Entities sharing a table contribute to the same object
		for _, queued := range w.objects {
			if strings.EqualFold(queued.FullName, obj.FullName) {
				for _, f := range obj.Fields {
					if !hasField(queued, f.FullName) {
						queued.Fields = append(queued.Fields, f)
					}
				}
			}
		}
		return nil
	}
	w.seen[key] = struct{}{}
	w.objects = append(w.objects, obj)
	return nil
}

// AddCustomField queues a field on an existing object
func (w *SchemaWriter) AddCustomField(field *schema.CustomField) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.consumed {
		return errors.ErrBatchConsumed
	}
	key := strings.ToLower(field.QualifiedName())
	if _, dup := w.seen[key]; dup {
		return nil
	}
	w.seen[key] = struct{}{}
	w.fields = append(w.fields, field)
	return nil
}

// IsEmpty reports whether nothing has been queued
func (w *SchemaWriter) IsEmpty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.objects) == 0 && len(w.fields) == 0
}

// Objects returns the queued objects
func (w *SchemaWriter) Objects() []*schema.CustomObject {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*schema.CustomObject(nil), w.objects...)
}

// Fields returns the queued fields
func (w *SchemaWriter) Fields() []*schema.CustomField {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*schema.CustomField(nil), w.fields...)
}

// Write deploys the batch and waits for the job to finish. An empty batch
// is a no-op returning a nil result.
func (w *SchemaWriter) Write(ctx context.Context, conn ports.Connection) (*ports.DeployResult, error) {
	w.mu.Lock()
	if w.consumed {
		w.mu.Unlock()
		return nil, errors.ErrBatchConsumed
	}
	w.consumed = true
	objects, fields := w.objects, w.fields
	w.mu.Unlock()

	if len(objects) == 0 && len(fields) == 0 {
		return nil, nil
	}
	if conn == nil {
		return nil, errors.ErrNoConnection
	}

	files, err := buildPackage(w.opts.APIVersion, w.opts.Delete, objects, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build deploy package: %w", err)
	}
	zipFile, err := zipPackage(files)
	if err != nil {
		return nil, fmt.Errorf("failed to zip deploy package: %w", err)
	}

	w.logger.Info("📦 Deploying schema package",
		zap.Int("objects", len(objects)),
		zap.Int("fields", len(fields)),
		zap.Bool("delete", w.opts.Delete))

	job, err := conn.Deploy(ctx, zipFile, ports.DeployOptions{
		RollbackOnError: w.opts.Strict,
		SinglePackage:   true,
		PurgeOnDelete:   w.opts.Purge,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit deploy: %w", err)
	}

	if err := w.waitForJob(ctx, conn, job); err != nil {
		return nil, err
	}

	result, err := conn.CheckDeployStatus(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read deploy result %s: %w", job.ID, err)
	}

	failures := result.Failures()
	if len(failures) == 0 && !result.Success && result.ErrorMessage != "" {
		failures = append(failures, ports.DeployMessage{FileName: constants.PackageManifest, Problem: result.ErrorMessage})
	}
	if len(failures) > 0 {
		if w.opts.Strict {
			items := make([]errors.DeployFailure, 0, len(failures))
			for _, f := range failures {
				items = append(items, errors.DeployFailure{FileName: f.FileName, FullName: f.FullName, Problem: f.Problem})
			}
			return result, errors.NewDeployError(job.ID, items)
		}
		for _, f := range failures {
			w.logger.Warn("⚠️ Deploy item failed",
				zap.String("job", job.ID),
				zap.String("file", f.FileName),
				zap.String("component", f.FullName),
				zap.String("problem", f.Problem))
		}
	}

	w.logger.Info("✅ Deploy finished", zap.String("job", job.ID), zap.Int("failures", len(failures)))
	return result, nil
}

// waitForJob polls until the job is done, backing off between rounds
func (w *SchemaWriter) waitForJob(ctx context.Context, conn ports.Connection, job *ports.AsyncResult) error {
	wait := w.opts.Poll.Initial
	for !job.Done {
		if err := w.sleep(ctx, wait); err != nil {
			return fmt.Errorf("deploy %s abandoned: %w", job.ID, err)
		}
		statuses, err := conn.CheckStatus(ctx, []string{job.ID})
		if err != nil {
			return fmt.Errorf("failed to check deploy status %s: %w", job.ID, err)
		}
		if len(statuses) == 0 {
			return errors.NewInternalError(fmt.Sprintf("no status returned for deploy %s", job.ID), nil)
		}
		job = statuses[0]
		if job.StatusCode != "" {
			return fmt.Errorf("deploy %s failed with %s: %s", job.ID, job.StatusCode, job.Message)
		}
		w.logger.Debug("⏳ Deploy in progress",
			zap.String("job", job.ID),
			zap.String("state", job.State),
			zap.Duration("waited", wait))
		wait = w.opts.Poll.Next(wait)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
