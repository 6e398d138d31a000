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

package quality

import (
	"encoding/json"
	"math"
	"time"

	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/store"
)

// maxDetailEntries bounds the per-finding detail list so a pathological range
// cannot bloat the quality log.
const maxDetailEntries = 100

type duplicateDetail struct {
	Date string `json:"date"`
	Rows int    `json:"rows"`
}

type monthDetail struct {
	Month string `json:"month"`
	Bars  int    `json:"bars"`
}

type anomalyDetail struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Score float64 `json:"score"`
}

func marshalDetails(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func newFinding(symbol string, checkType model.CheckType, start, end, now time.Time) model.QualityFinding {
	return model.QualityFinding{
		Symbol:     symbol,
		CheckType:  checkType,
		Severity:   model.SeverityWarning,
		CheckTime:  now,
		RangeStart: start,
		RangeEnd:   end,
	}
}

// duplicateFinding reports timestamps holding more than one row. The issue
// count is the total number of participating rows, so a doubled session
// counts 2. Any duplicate at all is an error: the primary key should have
// made this impossible.
func duplicateFinding(symbol string, start, end, now time.Time, dups []store.DuplicateKey) model.QualityFinding {
	f := newFinding(symbol, model.CheckDuplicate, start, end, now)
	if len(dups) == 0 {
		return f
	}

	var details struct {
		Duplicates []duplicateDetail `json:"duplicates"`
		Truncated  bool              `json:"truncated,omitempty"`
	}
	for _, dup := range dups {
		f.IssueCount += dup.Rows
		if len(details.Duplicates) < maxDetailEntries {
			details.Duplicates = append(details.Duplicates, duplicateDetail{Date: dup.Timestamp.Format("2006-01-02"), Rows: dup.Rows})
			continue
		}
		details.Truncated = true
	}

	f.Severity = model.SeverityError
	f.Details = marshalDetails(details)
	return f
}

// completenessFinding reports calendar months holding fewer than minBars
// bars. Every month the range touches is judged, so a month with no bars at
// all is an issue rather than an absence.
func completenessFinding(symbol string, start, end, now time.Time, counts map[model.YearMonth]int, minBars int) model.QualityFinding {
	f := newFinding(symbol, model.CheckCompleteness, start, end, now)

	var details struct {
		MinBars   int           `json:"min_bars"`
		Months    []monthDetail `json:"months"`
		Truncated bool          `json:"truncated,omitempty"`
	}
	details.MinBars = minBars

	for _, ym := range model.MonthsBetween(start, end) {
		bars := counts[ym]
		if bars >= minBars {
			continue
		}
		f.IssueCount++
		if len(details.Months) < maxDetailEntries {
			details.Months = append(details.Months, monthDetail{Month: ym.String(), Bars: bars})
			continue
		}
		details.Truncated = true
	}

	if f.IssueCount == 0 {
		return f
	}
	f.Details = marshalDetails(details)
	return f
}

// priceAnomalyFinding reports sessions whose close-to-close return deviates
// from the range's mean return by more than sigma standard deviations.
// Fewer than two usable closes, or a flat series, yields a zero-issue
// finding since there is no distribution to test against.
func priceAnomalyFinding(symbol string, start, end, now time.Time, bars []model.Bar, sigma float64) model.QualityFinding {
	f := newFinding(symbol, model.CheckPriceAnomaly, start, end, now)

	dates, rets := dailyReturns(bars)
	if len(rets) < 2 {
		return f
	}
	m, sd := mean(rets), stddev(rets)
	if sd == 0 {
		return f
	}

	var details struct {
		Mean      float64         `json:"mean"`
		StdDev    float64         `json:"std_dev"`
		Threshold float64         `json:"threshold"`
		Anomalies []anomalyDetail `json:"anomalies"`
		Truncated bool            `json:"truncated,omitempty"`
	}
	details.Mean = m
	details.StdDev = sd
	details.Threshold = sigma

	for i, r := range rets {
		if math.Abs(r-m) <= sigma*sd {
			continue
		}
		f.IssueCount++
		if len(details.Anomalies) < maxDetailEntries {
			details.Anomalies = append(details.Anomalies, anomalyDetail{Date: dates[i].Format("2006-01-02"), Value: r, Score: (r - m) / sd})
			continue
		}
		details.Truncated = true
	}

	if f.IssueCount == 0 {
		return f
	}
	f.Details = marshalDetails(details)
	return f
}

// volumeAnomalyFinding reports sessions whose volume z-score exceeds z in
// either direction. The score is computed over raw volumes for the range.
func volumeAnomalyFinding(symbol string, start, end, now time.Time, bars []model.Bar, z float64) model.QualityFinding {
	f := newFinding(symbol, model.CheckVolumeAnomaly, start, end, now)

	if len(bars) < 2 {
		return f
	}
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		volumes[i] = float64(bar.Volume)
	}
	m, sd := mean(volumes), stddev(volumes)
	if sd == 0 {
		return f
	}

	var details struct {
		Mean      float64         `json:"mean"`
		StdDev    float64         `json:"std_dev"`
		Threshold float64         `json:"threshold"`
		Anomalies []anomalyDetail `json:"anomalies"`
		Truncated bool            `json:"truncated,omitempty"`
	}
	details.Mean = m
	details.StdDev = sd
	details.Threshold = z

	for i, v := range volumes {
		score := (v - m) / sd
		if math.Abs(score) <= z {
			continue
		}
		f.IssueCount++
		if len(details.Anomalies) < maxDetailEntries {
			details.Anomalies = append(details.Anomalies, anomalyDetail{Date: bars[i].Timestamp.Format("2006-01-02"), Value: v, Score: score})
			continue
		}
		details.Truncated = true
	}

	if f.IssueCount == 0 {
		return f
	}
	f.Details = marshalDetails(details)
	return f
}
