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

package model

import (
	"fmt"
	"time"
)

// Bar is one trading session's OHLCV data for a symbol. Identity is the
// (Symbol, Timestamp) pair; there is no surrogate id. Timestamp is the
// session date at midnight in the store's timezone.
type Bar struct {
	Symbol           string    `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Timestamp        time.Time `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	Open             float64   `yaml:"open,omitempty" json:"open,omitempty"`
	High             float64   `yaml:"high,omitempty" json:"high,omitempty"`
	Low              float64   `yaml:"low,omitempty" json:"low,omitempty"`
	Close            float64   `yaml:"close,omitempty" json:"close,omitempty"`
	Volume           int64     `yaml:"volume,omitempty" json:"volume,omitempty"`
	AdjustedClose    *float64  `yaml:"adjusted_close,omitempty" json:"adjusted_close,omitempty"`
	SplitAdjusted    bool      `yaml:"split_adjusted,omitempty" json:"split_adjusted,omitempty"`
	DividendAdjusted bool      `yaml:"dividend_adjusted,omitempty" json:"dividend_adjusted,omitempty"`
	CreatedAt        time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`
}

// Validate checks the OHLCV invariants. It returns a *ValidationError
// describing the first violation, or nil for a well-formed bar.
func (b *Bar) Validate() error {
	var reason string
	switch {
	case b.Symbol == "":
		reason = "missing symbol"
	case b.Timestamp.IsZero():
		reason = "missing timestamp"
	case b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0:
		reason = "non-positive price"
	case b.Volume < 0:
		reason = "negative volume"
	case b.High < b.Open || b.High < b.Close || b.High < b.Low:
		reason = "high below open, close, or low"
	case b.Low > b.Open || b.Low > b.Close:
		reason = "low above open or close"
	default:
		return nil
	}
	return &ValidationError{Symbol: b.Symbol, Timestamp: b.Timestamp, Reason: reason}
}

// ValidationError reports a bar that violates the OHLCV invariants. Callers
// reject the offending row and continue with the rest of the batch.
type ValidationError struct {
	Symbol    string
	Timestamp time.Time
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid bar %s@%s: %s", e.Symbol, e.Timestamp.Format("2006-01-02"), e.Reason)
}
