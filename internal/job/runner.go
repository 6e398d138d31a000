/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ajjensen13/markethub/internal/actions"
	"github.com/ajjensen13/markethub/internal/ingest"
	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/store"
	"github.com/ajjensen13/markethub/internal/util"
)

// ErrBusy marks job triggers rejected because the runner is already
// executing a job.
var ErrBusy = errors.New("a job is already running")

// SymbolSource lists the symbols a job should cover.
type SymbolSource interface {
	ActiveSymbols(ctx context.Context) ([]model.Symbol, error)
}

// BarJobs is the ingestion slice the runner drives.
type BarJobs interface {
	IngestRange(ctx context.Context, symbol string, start, end time.Time) (store.UpsertInfo, error)
	Repair(ctx context.Context, symbol string, start, end time.Time) (ingest.RepairInfo, error)
}

// ActionJobs is the corporate-action slice the runner drives.
type ActionJobs interface {
	IngestActions(ctx context.Context, symbol string, since time.Time) (actions.IngestInfo, error)
}

// QualityJobs is the quality-check slice the runner drives.
type QualityJobs interface {
	RunAll(ctx context.Context, symbol string, start, end time.Time) ([]model.QualityFinding, error)
}

// Runner executes maintenance jobs over the active symbols. Only one job
// runs at a time; concurrent triggers fail fast with ErrBusy instead of
// queueing.
type Runner struct {
	symbols SymbolSource
	bars    BarJobs
	actions ActionJobs
	quality QualityJobs
	tz      *time.Location
	now     func() time.Time
	cfg     Config

	mu      sync.Mutex
	running Kind
}

func NewRunner(symbols SymbolSource, bars BarJobs, actions ActionJobs, quality QualityJobs, tz *time.Location, cfg Config) *Runner {
	return &Runner{
		symbols: symbols,
		bars:    bars,
		actions: actions,
		quality: quality,
		tz:      tz,
		now:     time.Now,
		cfg:     cfg.withDefaults(),
	}
}

// State returns the kind of the job currently running, or the empty Kind
// when the runner is idle.
func (r *Runner) State() Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// RunIngestion pulls recent daily bars. An explicit symbol set restricts
// the run to those symbols; an empty set covers every active symbol.
func (r *Runner) RunIngestion(ctx context.Context, symbols ...string) (Summary, error) {
	end := r.now().In(r.tz)
	return r.RunIngestionRange(ctx, end.AddDate(0, 0, -r.cfg.IngestDays), end, symbols...)
}

// RunIngestionRange ingests an explicit window instead of the configured
// lookback.
func (r *Runner) RunIngestionRange(ctx context.Context, start, end time.Time, symbols ...string) (Summary, error) {
	return r.run(ctx, KindIngestion, symbols, func(ctx context.Context, symbol string) SymbolResult {
		info, err := r.bars.IngestRange(ctx, symbol, start, end)
		return SymbolResult{Symbol: symbol, Written: info.Written, Err: err}
	})
}

// RunRepair backfills missing sessions across the repair window.
func (r *Runner) RunRepair(ctx context.Context, symbols ...string) (Summary, error) {
	end := r.now().In(r.tz)
	start := end.AddDate(0, 0, -r.cfg.RepairDays)
	return r.run(ctx, KindRepair, symbols, func(ctx context.Context, symbol string) SymbolResult {
		info, err := r.bars.Repair(ctx, symbol, start, end)
		return SymbolResult{Symbol: symbol, Written: info.Written, Err: err}
	})
}

// RunCorporateActions tracks recent splits and dividends.
func (r *Runner) RunCorporateActions(ctx context.Context, symbols ...string) (Summary, error) {
	since := r.now().In(r.tz).AddDate(0, 0, -r.cfg.ActionsDays)
	return r.run(ctx, KindCorporateActions, symbols, func(ctx context.Context, symbol string) SymbolResult {
		info, err := r.actions.IngestActions(ctx, symbol, since)
		return SymbolResult{Symbol: symbol, Written: info.Stored, Err: err}
	})
}

// RunQualityChecks examines the quality window. A symbol's result can carry
// both findings and an error when some of its checks failed.
func (r *Runner) RunQualityChecks(ctx context.Context, symbols ...string) (Summary, error) {
	end := r.now().In(r.tz)
	return r.RunQualityChecksRange(ctx, end.AddDate(0, 0, -r.cfg.QualityDays), end, symbols...)
}

// RunQualityChecksRange checks an explicit window instead of the configured
// lookback.
func (r *Runner) RunQualityChecksRange(ctx context.Context, start, end time.Time, symbols ...string) (Summary, error) {
	return r.run(ctx, KindQualityChecks, symbols, func(ctx context.Context, symbol string) SymbolResult {
		findings, err := r.quality.RunAll(ctx, symbol, start, end)
		res := SymbolResult{Symbol: symbol, Err: err}
		for _, f := range findings {
			res.Issues += f.IssueCount
		}
		return res
	})
}

// RunCycle runs every job once in dependency order: bars arrive before gaps
// are measured, gaps are repaired before history is judged. A failing job
// does not stop the later ones; their errors come back joined.
func (r *Runner) RunCycle(ctx context.Context, symbols ...string) ([]Summary, error) {
	jobs := []func(context.Context, ...string) (Summary, error){
		r.RunIngestion,
		r.RunRepair,
		r.RunCorporateActions,
		r.RunQualityChecks,
	}

	ret := make([]Summary, 0, len(jobs))
	var errs []error
	for _, runJob := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sum, err := runJob(ctx, symbols...)
		if err != nil {
			errs = append(errs, err)
		}
		if sum.Kind != "" {
			ret = append(ret, sum)
		}
	}
	return ret, errors.Join(errs...)
}

// resolve expands an explicit symbol set, or falls back to the registry's
// active symbols when none was given.
func (r *Runner) resolve(ctx context.Context, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		ret := make([]string, len(explicit))
		for i, s := range explicit {
			ret[i] = strings.ToUpper(s)
		}
		return ret, nil
	}

	active, err := r.symbols.ActiveSymbols(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]string, len(active))
	for i, sym := range active {
		ret[i] = sym.Symbol
	}
	return ret, nil
}

// run executes work for every resolved symbol under the configured
// parallelism. Each symbol reports through its own slot in Results, so
// worker goroutines never contend. Cancellation is cooperative: symbols
// already in flight finish their current call, queued ones are skipped.
func (r *Runner) run(ctx context.Context, kind Kind, explicit []string, work func(ctx context.Context, symbol string) SymbolResult) (Summary, error) {
	if err := r.begin(kind); err != nil {
		return Summary{}, err
	}
	defer r.end()

	runID := uuid.New()
	ctx = util.WithLoggerValue(ctx, "job", string(kind))
	ctx = util.WithLoggerValue(ctx, "run_id", runID.String())

	started := r.now()
	symbols, err := r.resolve(ctx, explicit)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list active symbols for %s: %w", kind, err)
	}

	sum := Summary{RunID: runID, Kind: kind, Started: started, Symbols: len(symbols), Results: make([]SymbolResult, len(symbols))}
	util.Logf(ctx, logging.Info, "%s started for %d symbols", kind, len(symbols))

	var grp errgroup.Group
	grp.SetLimit(r.cfg.Parallelism)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				sum.Results[i] = SymbolResult{Symbol: symbol, Err: fmt.Errorf("skipped: %w", err)}
				return nil
			}
			sum.Results[i] = work(ctx, symbol)
			return nil
		})
	}
	_ = grp.Wait()

	for _, res := range sum.Results {
		sum.Written += res.Written
		sum.Issues += res.Issues
		if res.Err != nil {
			sum.Failed++
			util.Logf(ctx, logging.Error, "%s failed for stock %q: %v", kind, res.Symbol, res.Err)
		}
	}
	sum.Finished = r.now()

	util.Logf(ctx, logging.Info, "%s finished in %s: %d symbols, %d failed, %d written, %d issues", kind, sum.Duration(), sum.Symbols, sum.Failed, sum.Written, sum.Issues)
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("%s interrupted: %w", kind, err)
	}
	return sum, nil
}

func (r *Runner) begin(kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running != "" {
		return fmt.Errorf("cannot start %s while %s is running: %w", kind, r.running, ErrBusy)
	}
	r.running = kind
	return nil
}

func (r *Runner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = ""
}
