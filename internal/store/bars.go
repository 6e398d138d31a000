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

package store

import (
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/util"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"time"
)

const upsertBarSQL = `
	INSERT INTO market_data.bars
		(symbol, timestamp, open, high, low, close, volume, adjusted_close, split_adjusted, dividend_adjusted, created_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
	ON CONFLICT
		(symbol, timestamp)
	DO UPDATE
		SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			adjusted_close = excluded.adjusted_close
		WHERE
			bars.open IS DISTINCT FROM excluded.open OR
			bars.high IS DISTINCT FROM excluded.high OR
			bars.low IS DISTINCT FROM excluded.low OR
			bars.close IS DISTINCT FROM excluded.close OR
			bars.volume IS DISTINCT FROM excluded.volume OR
			bars.adjusted_close IS DISTINCT FROM excluded.adjusted_close`

// UpsertBars writes one batch of bars for symbol at key (symbol, timestamp).
// Each bar is validated before any SQL runs; invalid bars are returned in
// UpsertInfo.Rejected and the rest of the batch proceeds, unless the store
// was built with atomicIngest, in which case any invalid bar fails the whole
// batch before it touches the database. Re-applying the same input is a
// no-op for stored state and reports the same Written count.
func (s *Store) UpsertBars(ctx context.Context, symbol string, bars []model.Bar) (UpsertInfo, error) {
	ctx = util.WithLoggerValue(ctx, "action", "upsert_bars")
	ctx = util.WithLoggerValue(ctx, "symbol", symbol)

	valid, rejected := partitionValid(symbol, bars)
	for _, r := range rejected {
		util.Logf(ctx, logging.Warning, "rejected bar: %v", r.Err)
	}

	if s.atomic && len(rejected) > 0 {
		return UpsertInfo{Rejected: rejected}, fmt.Errorf("store: atomic batch for %q rejected: %d of %d bars invalid: %w", symbol, len(rejected), len(bars), rejected[0].Err)
	}

	ret := UpsertInfo{Rejected: rejected}
	if len(valid) == 0 {
		return ret, nil
	}

	err := s.retry(ctx, util.MedReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		var modified int64
		for _, b := range valid {
			r, err := tx.Exec(ctx, upsertBarSQL, b.Symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume, b.AdjustedClose, b.SplitAdjusted, b.DividendAdjusted)
			if err != nil {
				return fmt.Errorf("failed to upsert bar %s@%s: %w", b.Symbol, b.Timestamp.Format("2006-01-02"), err)
			}
			modified += r.RowsAffected()
		}

		ret.Written = len(valid)
		ret.Modified = modified
		util.Logf(ctx, logging.Debug, "successfully upserted %d of %d bars for %s (%d rows modified)", ret.Written, len(bars), symbol, modified)
		return nil
	})
	if err != nil {
		return UpsertInfo{Rejected: rejected}, wrapStoreErr("upsert bars", err)
	}

	return ret, nil
}

func partitionValid(symbol string, bars []model.Bar) (valid []model.Bar, rejected []RejectedBar) {
	for _, b := range bars {
		if b.Symbol != symbol {
			rejected = append(rejected, RejectedBar{Bar: b, Err: &model.ValidationError{
				Symbol:    b.Symbol,
				Timestamp: b.Timestamp,
				Reason:    fmt.Sprintf("bar symbol %q does not match batch symbol %q", b.Symbol, symbol),
			}})
			continue
		}
		if err := b.Validate(); err != nil {
			rejected = append(rejected, RejectedBar{Bar: b, Err: err})
			continue
		}
		valid = append(valid, b)
	}
	return valid, rejected
}

// FetchRange returns the stored bars for symbol in [start, end] ascending by
// timestamp. No rows is an empty slice, not an error.
func (s *Store) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	ctx = util.WithLoggerValue(ctx, "action", "fetch_range")

	var ret []model.Bar
	err := s.retry(ctx, util.MedReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT symbol, timestamp, open, high, low, close, volume, adjusted_close, split_adjusted, dividend_adjusted, created_at
			FROM market_data.bars
			WHERE symbol = $1 AND timestamp BETWEEN $2 AND $3
			ORDER BY timestamp`, symbol, start, end)
		if err != nil {
			return fmt.Errorf("failed to query bars for %q: %w", symbol, err)
		}
		defer rows.Close()

		ret = ret[:0]
		for rows.Next() {
			var b model.Bar
			var adj pgtype.Float8
			err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &adj, &b.SplitAdjusted, &b.DividendAdjusted, &b.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to scan bar for %q: %w", symbol, err)
			}
			if adj.Status == pgtype.Present {
				f := adj.Float
				b.AdjustedClose = &f
			}
			ret = append(ret, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapStoreErr("fetch range", err)
	}

	return ret, nil
}

// CountByMonth buckets stored bar counts by calendar month over [start, end].
// Only months with at least one bar appear; completeness checks must
// enumerate the expected months themselves.
func (s *Store) CountByMonth(ctx context.Context, symbol string, start, end time.Time) (map[model.YearMonth]int, error) {
	ctx = util.WithLoggerValue(ctx, "action", "count_by_month")

	var ret map[model.YearMonth]int
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT date_trunc('month', timestamp) AS month, count(*)
			FROM market_data.bars
			WHERE symbol = $1 AND timestamp BETWEEN $2 AND $3
			GROUP BY 1
			ORDER BY 1`, symbol, start, end)
		if err != nil {
			return fmt.Errorf("failed to count bars by month for %q: %w", symbol, err)
		}
		defer rows.Close()

		ret = make(map[model.YearMonth]int)
		for rows.Next() {
			var month time.Time
			var n int64
			if err := rows.Scan(&month, &n); err != nil {
				return fmt.Errorf("failed to scan month count for %q: %w", symbol, err)
			}
			ret[model.YearMonthOf(month)] = int(n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapStoreErr("count by month", err)
	}

	return ret, nil
}

// FindDuplicateBars returns the timestamps in [start, end] holding more than
// one row for symbol. The primary key makes this unreachable through the
// upsert path; it exists to catch bulk loads that bypassed it.
func (s *Store) FindDuplicateBars(ctx context.Context, symbol string, start, end time.Time) ([]DuplicateKey, error) {
	ctx = util.WithLoggerValue(ctx, "action", "find_duplicates")

	var ret []DuplicateKey
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT timestamp, count(*)
			FROM market_data.bars
			WHERE symbol = $1 AND timestamp BETWEEN $2 AND $3
			GROUP BY timestamp
			HAVING count(*) > 1
			ORDER BY timestamp`, symbol, start, end)
		if err != nil {
			return fmt.Errorf("failed to query duplicate bars for %q: %w", symbol, err)
		}
		defer rows.Close()

		ret = ret[:0]
		for rows.Next() {
			var d DuplicateKey
			if err := rows.Scan(&d.Timestamp, &d.Rows); err != nil {
				return fmt.Errorf("failed to scan duplicate bar for %q: %w", symbol, err)
			}
			ret = append(ret, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapStoreErr("find duplicates", err)
	}

	return ret, nil
}
