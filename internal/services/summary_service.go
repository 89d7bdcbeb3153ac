package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finay/internal/core"
	"finay/internal/storage"
)

// SummaryService produces read-only period summaries. It never mutates
// state and tolerates a snapshot that trails concurrent mutations.
type SummaryService struct {
	storage *storage.SQLiteRepository
}

func NewSummaryService(storage *storage.SQLiteRepository) *SummaryService {
	return &SummaryService{storage: storage}
}

// Summarize aggregates an owner's transactions over a named period or an
// explicit range. An explicit range wins over the period token.
func (s *SummaryService) Summarize(ctx context.Context, ownerID string, period core.Period, explicit *core.Range) (core.Summary, error) {
	var rng core.Range
	if explicit != nil {
		rng = *explicit
	} else {
		resolved, err := core.ResolvePeriod(period, time.Now().UTC())
		if err != nil {
			return core.Summary{}, err
		}
		rng = resolved
	}

	summary := core.Summary{
		Range:      rng,
		ByCategory: []core.CategoryAmount{},
		TimeSeries: []core.SeriesPoint{},
	}

	// The three aggregates are independent reads over the same range.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		income, expense, err := s.storage.IncomeExpenseTotals(gctx, ownerID, rng)
		if err != nil {
			return err
		}
		summary.IncomeTotal = income
		summary.ExpenseTotal = expense
		return nil
	})

	var byCategory []core.CategoryAmount
	g.Go(func() error {
		rows, err := s.storage.ExpenseByCategory(gctx, ownerID, rng)
		if err != nil {
			return err
		}
		byCategory = rows
		return nil
	})

	var series []core.SeriesPoint
	g.Go(func() error {
		points, err := s.storage.TimeSeries(gctx, ownerID, rng)
		if err != nil {
			return err
		}
		series = points
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("summarize: %w", err)
	}

	if byCategory != nil {
		summary.ByCategory = byCategory
	}
	if series != nil {
		summary.TimeSeries = series
	}
	summary.Savings = summary.IncomeTotal.Add(summary.ExpenseTotal.Neg())

	return summary, nil
}
