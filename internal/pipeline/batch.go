package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/joshmcarthur/cap-alerts/internal/capdoc"
	"github.com/joshmcarthur/cap-alerts/internal/domain"
)

// RowFailure records a row that could not be normalized.
type RowFailure struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// BatchStats summarizes one pass over the source rows.
type BatchStats struct {
	RowsRead int          `json:"rowsRead"`
	Alerts   int          `json:"alerts"`
	Skipped  int          `json:"skipped"`
	Failures []RowFailure `json:"failures,omitempty"`
	Groups   int          `json:"groups"`
	Warnings int          `json:"warnings"`
}

// BatchResult holds the alerts of one pass in row order.
type BatchResult struct {
	Alerts []domain.Alert
	Stats  BatchStats
}

// ProgressFunc is called after each row with the number of rows finished.
// It may be called from several goroutines at once.
type ProgressFunc func(done, total int)

type rowOutcome struct {
	alert domain.Alert
	err   error
}

// ProcessBatch runs Process over rows with at most workers in flight and
// recombines the results in row order. Row-level problems are collected in
// the stats; only a missing parser or a cancelled context fails the batch.
func (p *RowProcessor) ProcessBatch(ctx context.Context, rows []domain.RawRow, workers int, progress ProgressFunc) (BatchResult, error) {
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]rowOutcome, len(rows))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.safeProcess(gctx, row, i)
			if progress != nil {
				progress(int(done.Add(1)), len(rows))
			}
			if errors.Is(outcomes[i].err, capdoc.ErrParserUnavailable) {
				return outcomes[i].err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{
		Alerts: make([]domain.Alert, 0, len(rows)),
		Stats:  BatchStats{RowsRead: len(rows)},
	}
	for i, o := range outcomes {
		switch {
		case o.err == nil:
			result.Alerts = append(result.Alerts, o.alert)
		case errors.Is(o.err, ErrSkipped):
			result.Stats.Skipped++
			p.logger.Debug("skipping row without alert document", "row", i)
		default:
			result.Stats.Failures = append(result.Stats.Failures, RowFailure{Row: i, Message: o.err.Error()})
			p.logger.Warn("row processing failed, skipping", "row", i, "error", o.err)
		}
	}
	result.Stats.Alerts = len(result.Alerts)
	return result, nil
}

// safeProcess converts a panic in one row into a row failure.
func (p *RowProcessor) safeProcess(ctx context.Context, row domain.RawRow, index int) (out rowOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = rowOutcome{err: fmt.Errorf("row %d: panic: %v", index, r)}
		}
	}()
	alert, err := p.Process(ctx, row, index)
	return rowOutcome{alert: alert, err: err}
}
