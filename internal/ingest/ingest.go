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

// Package ingest pulls daily bars into the store and keeps the stored series
// complete. Gap repair is convergent: running it again after the upstream
// catches up fills whatever the previous run could not.
package ingest

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/logging"

	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/store"
	"github.com/ajjensen13/markethub/internal/util"
)

// BarProvider is the upstream slice ingestion depends on.
type BarProvider interface {
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
}

// BarStore is the persistence slice ingestion depends on.
type BarStore interface {
	UpsertBars(ctx context.Context, symbol string, bars []model.Bar) (store.UpsertInfo, error)
	FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
}

// Service ingests and repairs daily bar history for one symbol at a time.
type Service struct {
	provider BarProvider
	store    BarStore
	tz       *time.Location
}

func New(provider BarProvider, store BarStore, tz *time.Location) *Service {
	return &Service{provider: provider, store: store, tz: tz}
}

// RepairInfo summarizes one repair pass.
type RepairInfo struct {
	Missing int // sessions without a bar before the pass
	Written int // bars written during the pass
	Runs    int // contiguous gap runs requested upstream
}

// IngestRange fetches the daily bars for symbol between start and end
// inclusive and upserts them. An empty upstream response is not an error;
// replaying a range yields the same result as the first pass.
func (s *Service) IngestRange(ctx context.Context, symbol string, start, end time.Time) (store.UpsertInfo, error) {
	ctx = util.WithLoggerValue(ctx, "action", "ingest_range")

	start = model.SessionDate(start, s.tz)
	end = model.SessionDate(end, s.tz)

	bars, err := s.provider.DailyBars(ctx, symbol, start, end)
	if err != nil {
		return store.UpsertInfo{}, fmt.Errorf("failed to fetch daily bars for stock %q: %w", symbol, err)
	}
	if len(bars) == 0 {
		util.Logf(ctx, logging.Info, "no daily bars upstream for stock %q between %s and %s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
		return store.UpsertInfo{}, nil
	}

	info, err := s.store.UpsertBars(ctx, symbol, bars)
	if err != nil {
		return info, fmt.Errorf("failed to store daily bars for stock %q: %w", symbol, err)
	}

	util.Logf(ctx, logging.Info, "ingested %d daily bars for stock %q (%d modified, %d rejected)", info.Written, symbol, info.Modified, len(info.Rejected))
	return info, nil
}

// FindMissing returns the expected sessions between start and end inclusive
// that have no stored bar, ascending.
func (s *Service) FindMissing(ctx context.Context, symbol string, start, end time.Time) ([]time.Time, error) {
	start = model.SessionDate(start, s.tz)
	end = model.SessionDate(end, s.tz)

	stored, err := s.store.FetchRange(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stored bars for stock %q: %w", symbol, err)
	}

	observed := make(map[time.Time]struct{}, len(stored))
	for _, bar := range stored {
		observed[model.SessionDate(bar.Timestamp, s.tz)] = struct{}{}
	}

	var missing []time.Time
	for _, session := range sessionsBetween(start, end, s.tz) {
		if _, ok := observed[session]; !ok {
			missing = append(missing, session)
		}
	}
	return missing, nil
}

// Repair backfills the missing sessions for symbol between start and end.
// Each contiguous gap run becomes one upstream request, and only bars for
// sessions that were actually missing are written. Sessions the upstream
// still has nothing for stay missing without failing the pass; they were
// likely holidays, or they will arrive later.
func (s *Service) Repair(ctx context.Context, symbol string, start, end time.Time) (RepairInfo, error) {
	ctx = util.WithLoggerValue(ctx, "action", "repair")

	missing, err := s.FindMissing(ctx, symbol, start, end)
	if err != nil {
		return RepairInfo{}, err
	}
	if len(missing) == 0 {
		util.Logf(ctx, logging.Debug, "no missing sessions for stock %q", symbol)
		return RepairInfo{}, nil
	}

	runs := missingRuns(missing)
	ret := RepairInfo{Missing: len(missing), Runs: len(runs)}
	for _, run := range runs {
		wanted := make(map[time.Time]struct{}, len(run))
		for _, session := range run {
			wanted[session] = struct{}{}
		}

		bars, err := s.provider.DailyBars(ctx, symbol, run[0], run[len(run)-1])
		if err != nil {
			return ret, fmt.Errorf("failed to fetch gap bars for stock %q: %w", symbol, err)
		}

		fill := bars[:0:0]
		for _, bar := range bars {
			if _, ok := wanted[model.SessionDate(bar.Timestamp, s.tz)]; ok {
				fill = append(fill, bar)
			}
		}
		if len(fill) == 0 {
			util.Logf(ctx, logging.Info, "upstream has no bars for stock %q between %s and %s", symbol, run[0].Format("2006-01-02"), run[len(run)-1].Format("2006-01-02"))
			continue
		}

		info, err := s.store.UpsertBars(ctx, symbol, fill)
		ret.Written += info.Written
		if err != nil {
			return ret, fmt.Errorf("failed to store gap bars for stock %q: %w", symbol, err)
		}
	}

	util.Logf(ctx, logging.Info, "repaired %d of %d missing sessions for stock %q across %d gaps", ret.Written, ret.Missing, symbol, ret.Runs)
	return ret, nil
}
