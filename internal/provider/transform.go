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

package provider

import (
	"fmt"
	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/ajjensen13/markethub/internal/model"
	"github.com/shopspring/decimal"
	"time"
)

// barsFromCandles converts a candle response into bars ascending by session.
// Timestamps collapse to session dates in tz. A no_data status or an empty
// series returns nil without error; mismatched series lengths are an error
// since pairing values across them would be a guess.
func barsFromCandles(symbol string, in finnhub.StockCandles, tz *time.Location) ([]model.Bar, error) {
	if in.S == statusNoData {
		return nil, nil
	}

	cnt := len(in.T)
	switch {
	case cnt == 0:
		return nil, nil
	case len(in.O) != cnt:
		return nil, fmt.Errorf("len(open) = %d but len(timestamp) = %d for stock %q", len(in.O), cnt, symbol)
	case len(in.H) != cnt:
		return nil, fmt.Errorf("len(high) = %d but len(timestamp) = %d for stock %q", len(in.H), cnt, symbol)
	case len(in.L) != cnt:
		return nil, fmt.Errorf("len(low) = %d but len(timestamp) = %d for stock %q", len(in.L), cnt, symbol)
	case len(in.C) != cnt:
		return nil, fmt.Errorf("len(close) = %d but len(timestamp) = %d for stock %q", len(in.C), cnt, symbol)
	case len(in.V) != cnt:
		return nil, fmt.Errorf("len(volume) = %d but len(timestamp) = %d for stock %q", len(in.V), cnt, symbol)
	}

	ret := make([]model.Bar, cnt)
	for ndx, ts := range in.T {
		ret[ndx] = model.Bar{
			Symbol:    symbol,
			Timestamp: model.SessionDate(time.Unix(ts, 0), tz),
			Open:      float64(in.O[ndx]),
			High:      float64(in.H[ndx]),
			Low:       float64(in.L[ndx]),
			Close:     float64(in.C[ndx]),
			Volume:    int64(in.V[ndx]),
		}
	}
	return ret, nil
}

// actionFromSplit converts an upstream split event. The ratio is stored as
// to/from, so a 2-for-1 split becomes 2 and a 1-for-10 reverse split 0.1.
func actionFromSplit(symbol string, in finnhub.Split, tz *time.Location) (model.CorporateAction, error) {
	exDate, err := time.ParseInLocation("2006-01-02", in.Date, tz)
	if err != nil {
		return model.CorporateAction{}, fmt.Errorf("failed to parse split date %q for stock %q: %w", in.Date, symbol, err)
	}
	if in.FromFactor <= 0 || in.ToFactor <= 0 {
		return model.CorporateAction{}, fmt.Errorf("split factors %v:%v for stock %q are not positive", in.ToFactor, in.FromFactor, symbol)
	}

	ratio := decimal.NewFromFloat32(in.ToFactor).Div(decimal.NewFromFloat32(in.FromFactor))
	return model.CorporateAction{
		Symbol:     symbol,
		Type:       model.ActionSplit,
		ExDate:     exDate,
		SplitRatio: decimal.NullDecimal{Decimal: ratio, Valid: true},
	}, nil
}

// actionFromDividend converts an upstream dividend event. Zero-amount events
// are placeholders the upstream emits for some listings and carry no signal.
func actionFromDividend(symbol string, in finnhub.Dividends, tz *time.Location) (model.CorporateAction, error) {
	exDate, err := time.ParseInLocation("2006-01-02", in.Date, tz)
	if err != nil {
		return model.CorporateAction{}, fmt.Errorf("failed to parse dividend date %q for stock %q: %w", in.Date, symbol, err)
	}
	if in.Amount <= 0 {
		return model.CorporateAction{}, fmt.Errorf("dividend amount %v for stock %q is not positive", in.Amount, symbol)
	}

	return model.CorporateAction{
		Symbol:         symbol,
		Type:           model.ActionDividend,
		ExDate:         exDate,
		DividendAmount: decimal.NullDecimal{Decimal: decimal.NewFromFloat32(in.Amount), Valid: true},
	}, nil
}
