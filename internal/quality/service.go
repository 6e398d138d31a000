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

// Package quality runs data-quality checks over stored bar history. Every
// check invocation persists a finding, issues or not, so the quality log
// doubles as proof the checks ran.
package quality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/logging"

	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/store"
	"github.com/ajjensen13/markethub/internal/util"
)

// Check thresholds used when the configuration leaves them unset.
const (
	DefaultMinBarsPerMonth = 20
	DefaultPriceSigma      = 5
	DefaultVolumeZ         = 10
)

// Store is the persistence slice the checks depend on.
type Store interface {
	FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
	CountByMonth(ctx context.Context, symbol string, start, end time.Time) (map[model.YearMonth]int, error)
	FindDuplicateBars(ctx context.Context, symbol string, start, end time.Time) ([]store.DuplicateKey, error)
	InsertFinding(ctx context.Context, f model.QualityFinding) (int64, error)
	RecentFindings(ctx context.Context, symbol string, since time.Time, severity model.Severity) ([]model.QualityFinding, error)
}

// Service runs the quality checks for one symbol at a time.
type Service struct {
	store           Store
	tz              *time.Location
	now             func() time.Time
	minBarsPerMonth int
	priceSigma      float64
	volumeZ         float64
}

// New returns a Service checking against the given thresholds. Zero or
// negative thresholds fall back to the defaults.
func New(store Store, tz *time.Location, minBarsPerMonth int, priceSigma, volumeZ float64) *Service {
	if minBarsPerMonth <= 0 {
		minBarsPerMonth = DefaultMinBarsPerMonth
	}
	if priceSigma <= 0 {
		priceSigma = DefaultPriceSigma
	}
	if volumeZ <= 0 {
		volumeZ = DefaultVolumeZ
	}
	return &Service{
		store:           store,
		tz:              tz,
		now:             time.Now,
		minBarsPerMonth: minBarsPerMonth,
		priceSigma:      priceSigma,
		volumeZ:         volumeZ,
	}
}

// RunAll executes every check for symbol over start through end inclusive
// and persists each finding. One failing check does not stop the others; the
// errors of whatever failed come back joined, alongside the findings that
// succeeded.
func (s *Service) RunAll(ctx context.Context, symbol string, start, end time.Time) ([]model.QualityFinding, error) {
	ctx = util.WithLoggerValue(ctx, "action", "quality_checks")

	start = model.SessionDate(start, s.tz)
	end = model.SessionDate(end, s.tz)

	checks := []func(ctx context.Context, symbol string, start, end time.Time) (model.QualityFinding, error){
		s.checkDuplicates,
		s.checkCompleteness,
		s.checkPriceAnomalies,
		s.checkVolumeAnomalies,
	}

	ret := make([]model.QualityFinding, 0, len(checks))
	var errs []error
	for _, check := range checks {
		finding, err := check(ctx, symbol, start, end)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		id, err := s.store.InsertFinding(ctx, finding)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to persist %s finding for stock %q: %w", finding.CheckType, symbol, err))
			continue
		}
		finding.ID = id

		if finding.IssueCount > 0 {
			util.Logf(ctx, logging.Warning, "%s check found %d issues for stock %q between %s and %s", finding.CheckType, finding.IssueCount, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		ret = append(ret, finding)
	}

	return ret, errors.Join(errs...)
}

// RecentFindings returns the unresolved findings recorded during the last
// days days. An empty symbol or severity leaves that filter open.
func (s *Service) RecentFindings(ctx context.Context, symbol string, days int, severity model.Severity) ([]model.QualityFinding, error) {
	if days <= 0 {
		days = 7
	}
	ret, err := s.store.RecentFindings(ctx, symbol, s.now().AddDate(0, 0, -days), severity)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent findings: %w", err)
	}
	return ret, nil
}

func (s *Service) checkDuplicates(ctx context.Context, symbol string, start, end time.Time) (model.QualityFinding, error) {
	dups, err := s.store.FindDuplicateBars(ctx, symbol, start, end)
	if err != nil {
		return model.QualityFinding{}, fmt.Errorf("duplicate check failed for stock %q: %w", symbol, err)
	}
	return duplicateFinding(symbol, start, end, s.now(), dups), nil
}

func (s *Service) checkCompleteness(ctx context.Context, symbol string, start, end time.Time) (model.QualityFinding, error) {
	counts, err := s.store.CountByMonth(ctx, symbol, start, end)
	if err != nil {
		return model.QualityFinding{}, fmt.Errorf("completeness check failed for stock %q: %w", symbol, err)
	}
	return completenessFinding(symbol, start, end, s.now(), counts, s.minBarsPerMonth), nil
}

func (s *Service) checkPriceAnomalies(ctx context.Context, symbol string, start, end time.Time) (model.QualityFinding, error) {
	bars, err := s.store.FetchRange(ctx, symbol, start, end)
	if err != nil {
		return model.QualityFinding{}, fmt.Errorf("price anomaly check failed for stock %q: %w", symbol, err)
	}
	return priceAnomalyFinding(symbol, start, end, s.now(), bars, s.priceSigma), nil
}

func (s *Service) checkVolumeAnomalies(ctx context.Context, symbol string, start, end time.Time) (model.QualityFinding, error) {
	bars, err := s.store.FetchRange(ctx, symbol, start, end)
	if err != nil {
		return model.QualityFinding{}, fmt.Errorf("volume anomaly check failed for stock %q: %w", symbol, err)
	}
	return volumeAnomalyFinding(symbol, start, end, s.now(), bars, s.volumeZ), nil
}
