package bulk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/cartlimits-backend/internal/limits"
	"github.com/angelmondragon/cartlimits-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/metrics"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

// BatchWriter writes one limit value to a batch of customers in a single store call.
type BatchWriter interface {
	WriteLimitBatch(ctx context.Context, ids []string, kind limits.Kind, value int64) (int, error)
}

// Request is a bulk edit of one limit for every customer.
type Request struct {
	Kind  limits.Kind
	Value int64
}

// Result is the user-facing outcome of a bulk edit.
type Result struct {
	Success      bool
	TotalUpdated int
	Batches      int
	Message      string
	Error        string
}

// Coordinator applies one limit to every customer in bounded, sequential batches.
type Coordinator struct {
	lister    CustomerLister
	writer    BatchWriter
	batchSize int
	pageSize  int
	metrics   *metrics.LimitMetrics
	jobs      *metrics.JobMetrics
	logger    *logger.Logger
}

// NewCoordinator wires the bulk coordinator.
func NewCoordinator(lister CustomerLister, writer BatchWriter, cfg config.LimitsConfig, m *metrics.LimitMetrics, jobs *metrics.JobMetrics, logg *logger.Logger) (*Coordinator, error) {
	if lister == nil {
		return nil, fmt.Errorf("customer lister required")
	}
	if writer == nil {
		return nil, fmt.Errorf("batch writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	batchSize := cfg.BulkBatchSize
	if batchSize <= 0 || batchSize > shopify.MaxMetafieldsPerSet {
		batchSize = shopify.MaxMetafieldsPerSet
	}
	return &Coordinator{
		lister:    lister,
		writer:    writer,
		batchSize: batchSize,
		pageSize:  cfg.BulkPageSize,
		metrics:   m,
		jobs:      jobs,
		logger:    logg,
	}, nil
}

// ApplyToAll writes req to every customer. Failed batches do not stop later ones; nothing is rolled back.
func (c *Coordinator) ApplyToAll(ctx context.Context, req Request) Result {
	if !req.Kind.IsValid() {
		return Result{Error: fmt.Sprintf("unknown limit kind %q", req.Kind)}
	}
	if req.Value < 0 {
		return Result{Error: "limit must be a non-negative number"}
	}

	job := "bulk_apply_" + string(req.Kind)
	started := time.Now()
	ctx = c.logger.WithFields(ctx, map[string]any{"limit_kind": string(req.Kind), "limit_value": req.Value})

	var (
		errs    error
		total   int
		batches int
		pending []string
	)
	flush := func(ids []string) {
		batches++
		n, err := c.writer.WriteLimitBatch(ctx, ids, req.Kind, req.Value)
		c.metrics.ObserveBulkBatch(string(req.Kind), n, err)
		if err != nil {
			c.logger.Error(c.logger.WithField(ctx, "batch", batches), "bulk batch failed", err)
			errs = multierr.Append(errs, err)
			return
		}
		total += n
	}

	pager := NewPager(c.lister, c.pageSize, "")
	for {
		ids, ok, err := pager.Next(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if !ok {
			break
		}
		pending = append(pending, ids...)
		for len(pending) >= c.batchSize {
			flush(pending[:c.batchSize])
			pending = pending[c.batchSize:]
		}
	}
	if len(pending) > 0 {
		flush(pending)
	}

	c.jobs.ObserveDuration(job, time.Since(started))
	result := Result{TotalUpdated: total, Batches: batches}
	if errs != nil {
		c.jobs.IncFailure(job)
		result.Error = fmt.Sprintf("Updated %d customers, but encountered errors: %s", total, firstMessage(errs))
		c.logger.Warn(c.logger.WithFields(ctx, map[string]any{
			"total_updated": total,
			"error_count":   len(multierr.Errors(errs)),
		}), "bulk apply finished with errors")
		return result
	}

	c.jobs.IncSuccess(job)
	result.Success = true
	result.Message = fmt.Sprintf("Successfully updated %d customers", total)
	c.logger.Info(c.logger.WithField(ctx, "total_updated", total), "bulk apply finished")
	return result
}

func firstMessage(err error) string {
	all := multierr.Errors(err)
	if len(all) == 0 {
		return "Unknown error"
	}
	first := all[0]
	if typed := pkgerrors.As(first); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	if msg := first.Error(); msg != "" {
		return msg
	}
	return "Unknown error"
}
