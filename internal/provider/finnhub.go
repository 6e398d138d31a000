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
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/util"
	"github.com/antihax/optional"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"sort"
	"time"
)

const dailyResolution = "D"

// statusNoData is the candle response status for a range the upstream has
// nothing for. It is a normal outcome, not an error.
const statusNoData = "no_data"

// Finnhub requests market data from the finnhub service. All calls share one
// rate limiter so concurrent symbol jobs stay inside the upstream quota, and
// every call retries with backoff under a per-attempt timeout.
type Finnhub struct {
	client     *finnhub.DefaultApiService
	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
	notify     backoff.Notify
	tz         *time.Location
}

// NewFinnhub returns a Finnhub that requests through client. The limiter
// gates every upstream call; newBackOff produces a fresh retry policy per
// call and notify observes each retried error.
func NewFinnhub(client *finnhub.DefaultApiService, limiter *rate.Limiter, newBackOff func() backoff.BackOff, notify backoff.Notify, tz *time.Location) *Finnhub {
	return &Finnhub{client: client, limiter: limiter, newBackOff: newBackOff, notify: notify, tz: tz}
}

// DailyBars returns the daily bars for symbol between start and end
// inclusive, ascending by session. An empty range returns no bars and no
// error.
func (f *Finnhub) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	ctx = util.WithLoggerValue(ctx, "action", "request_daily_bars")

	var resp finnhub.StockCandles
	err := f.do(ctx, fmt.Sprintf("daily candles for stock %q", symbol), func(ctx context.Context) (*http.Response, error) {
		var httpResp *http.Response
		var err error
		resp, httpResp, err = f.client.StockCandles(ctx, symbol, dailyResolution, start.Unix(), end.Unix(), nil)
		return httpResp, err
	})
	if err != nil {
		return nil, err
	}

	bars, err := barsFromCandles(symbol, resp, f.tz)
	if err != nil {
		return nil, err
	}

	util.Logf(ctx, logging.Debug, "requested %d daily bars for stock %q (%s to %s)", len(bars), symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	return bars, nil
}

// CorporateActions returns the splits and dividends for symbol with an
// ex-date on or after since, ascending by ex-date. Malformed upstream events
// are skipped with a warning rather than failing the call.
func (f *Finnhub) CorporateActions(ctx context.Context, symbol string, since time.Time) ([]model.CorporateAction, error) {
	ctx = util.WithLoggerValue(ctx, "action", "request_corporate_actions")

	from := model.SessionDate(since, f.tz).Format("2006-01-02")
	to := time.Now().In(f.tz).Format("2006-01-02")

	var splits []finnhub.Split
	err := f.do(ctx, fmt.Sprintf("splits for stock %q", symbol), func(ctx context.Context) (*http.Response, error) {
		var httpResp *http.Response
		var err error
		splits, httpResp, err = f.client.StockSplits(ctx, symbol, from, to)
		return httpResp, err
	})
	if err != nil {
		return nil, err
	}

	var dividends []finnhub.Dividends
	err = f.do(ctx, fmt.Sprintf("dividends for stock %q", symbol), func(ctx context.Context) (*http.Response, error) {
		var httpResp *http.Response
		var err error
		dividends, httpResp, err = f.client.StockDividends(ctx, symbol, from, to)
		return httpResp, err
	})
	if err != nil {
		return nil, err
	}

	ret := make([]model.CorporateAction, 0, len(splits)+len(dividends))
	for _, split := range splits {
		action, err := actionFromSplit(symbol, split, f.tz)
		if err != nil {
			util.Logf(ctx, logging.Warning, "skipping split for stock %q: %v", symbol, err)
			continue
		}
		ret = append(ret, action)
	}
	for _, dividend := range dividends {
		action, err := actionFromDividend(symbol, dividend, f.tz)
		if err != nil {
			util.Logf(ctx, logging.Warning, "skipping dividend for stock %q: %v", symbol, err)
			continue
		}
		ret = append(ret, action)
	}

	sort.Slice(ret, func(i, j int) bool {
		if !ret[i].ExDate.Equal(ret[j].ExDate) {
			return ret[i].ExDate.Before(ret[j].ExDate)
		}
		return ret[i].Type < ret[j].Type
	})

	util.Logf(ctx, logging.Debug, "requested %d corporate actions for stock %q since %s", len(ret), symbol, from)
	return ret, nil
}

// Symbols returns the listings for exchange. Listings without a symbol are
// skipped with a warning.
func (f *Finnhub) Symbols(ctx context.Context, exchange string) ([]Listing, error) {
	ctx = util.WithLoggerValue(ctx, "action", "request_symbols")

	var resp []finnhub.Stock
	err := f.do(ctx, fmt.Sprintf("symbols for exchange %q", exchange), func(ctx context.Context) (*http.Response, error) {
		var httpResp *http.Response
		var err error
		resp, httpResp, err = f.client.StockSymbols(ctx, exchange)
		return httpResp, err
	})
	if err != nil {
		return nil, err
	}

	ret := make([]Listing, 0, len(resp))
	for _, stock := range resp {
		if stock.Symbol == "" {
			util.Logf(ctx, logging.Warning, "skipping listing because it is invalid: %v", stock)
			continue
		}
		ret = append(ret, Listing{Symbol: stock.Symbol, DisplaySymbol: stock.DisplaySymbol, Description: stock.Description})
	}

	util.Logf(ctx, logging.Debug, "requested %d listings for exchange %q", len(ret), exchange)
	return ret, nil
}

// Profile returns the company profile for symbol. An unknown symbol yields a
// zero-valued profile, which the upstream signals with an empty body rather
// than an error status.
func (f *Finnhub) Profile(ctx context.Context, symbol string) (Profile, error) {
	ctx = util.WithLoggerValue(ctx, "action", "request_profile")

	var resp finnhub.CompanyProfile2
	err := f.do(ctx, fmt.Sprintf("company profile for stock %q", symbol), func(ctx context.Context) (*http.Response, error) {
		var httpResp *http.Response
		var err error
		resp, httpResp, err = f.client.CompanyProfile2(ctx, &finnhub.CompanyProfile2Opts{Symbol: optional.NewString(symbol)})
		return httpResp, err
	})
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		Symbol:   symbol,
		Name:     resp.Name,
		Exchange: resp.Exchange,
		Industry: resp.FinnhubIndustry,
		Country:  resp.Country,
		Currency: resp.Currency,
	}, nil
}

// do runs op with retries. Each attempt waits for the shared rate limiter,
// then runs under its own timeout. Client errors other than rate limiting
// abort the retry loop since repeating them cannot succeed.
func (f *Finnhub) do(ctx context.Context, msg string, op func(ctx context.Context) (*http.Response, error)) error {
	bo := backoff.WithContext(f.newBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("aborted waiting to request %s: %w", msg, err))
		}

		ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
		defer cancel()

		httpResp, err := op(ctx)
		if err != nil {
			return handleErr(fmt.Sprintf("error while requesting %s", msg), httpResp, err)
		}
		return nil
	}, bo, f.notify)
}

// handleErr folds the response status and body into err. Rate-limited
// responses are wrapped in ErrTooManyRequests and stay retryable; other
// client errors are permanent.
func handleErr(msg string, resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("%s: %w", msg, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", msg, ErrTooManyRequests)
	}

	if resp.Body != nil {
		body, rerr := io.ReadAll(resp.Body)
		if rerr == nil && len(body) > 0 {
			msg = fmt.Sprintf("%s (%s)", msg, string(body))
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(fmt.Errorf("%s: %w", msg, err))
	}
	return fmt.Errorf("%s: %w", msg, err)
}
