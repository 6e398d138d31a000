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
)

// AddSymbol registers a symbol. Returns false when the symbol already
// exists; existing rows are left untouched (registration is not an update).
func (s *Store) AddSymbol(ctx context.Context, sym model.Symbol) (bool, error) {
	ctx = util.WithLoggerValue(ctx, "action", "add_symbol")

	var created bool
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		r, err := tx.Exec(ctx, `
			INSERT INTO market_data.symbol_map
				(symbol, name, exchange, asset_type, sector, industry, is_active, data_source, created_at, updated_at)
			VALUES
				($1, $2, $3, $4, $5, $6, TRUE, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT (symbol) DO NOTHING`,
			sym.Symbol, sym.Name, sym.Exchange, string(sym.AssetType), sym.Sector, sym.Industry, sym.DataSource)
		if err != nil {
			return fmt.Errorf("failed to add symbol %q: %w", sym.Symbol, err)
		}
		created = r.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, wrapStoreErr("add symbol", err)
	}

	util.Logf(ctx, logging.Debug, "add symbol %s: created=%t", sym.Symbol, created)
	return created, nil
}

// ListSymbols returns registered symbols ordered by ticker. Inactive rows
// are excluded unless includeInactive is set.
func (s *Store) ListSymbols(ctx context.Context, includeInactive bool) ([]model.Symbol, error) {
	ctx = util.WithLoggerValue(ctx, "action", "list_symbols")

	sql := `
		SELECT symbol, name, exchange, asset_type, sector, industry, is_active, data_source, created_at, updated_at
		FROM market_data.symbol_map`
	if !includeInactive {
		sql += `
		WHERE is_active`
	}
	sql += `
		ORDER BY symbol`

	var ret []model.Symbol
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, sql)
		if err != nil {
			return fmt.Errorf("failed to query symbols: %w", err)
		}
		defer rows.Close()

		ret = ret[:0]
		for rows.Next() {
			sym, err := scanSymbol(rows)
			if err != nil {
				return err
			}
			ret = append(ret, sym)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapStoreErr("list symbols", err)
	}

	return ret, nil
}

// ActiveSymbols is the orchestrator's view of the tracked universe.
func (s *Store) ActiveSymbols(ctx context.Context) ([]model.Symbol, error) {
	return s.ListSymbols(ctx, false)
}

func scanSymbol(rows pgx.Rows) (model.Symbol, error) {
	var sym model.Symbol
	var name, exchange, assetType, sector, industry, dataSource pgtype.Text
	err := rows.Scan(&sym.Symbol, &name, &exchange, &assetType, &sector, &industry, &sym.IsActive, &dataSource, &sym.CreatedAt, &sym.UpdatedAt)
	if err != nil {
		return model.Symbol{}, fmt.Errorf("failed to scan symbol: %w", err)
	}

	sym.Name = name.String
	sym.Exchange = exchange.String
	sym.Sector = sector.String
	sym.Industry = industry.String
	sym.DataSource = dataSource.String

	at, err := model.ParseAssetType(assetType.String)
	if err != nil {
		return model.Symbol{}, fmt.Errorf("failed to scan symbol %q: %w", sym.Symbol, err)
	}
	sym.AssetType = at

	return sym, nil
}

// SetActive toggles a symbol's lifecycle flag. Returns false when the symbol
// is not registered. Rows are never hard-deleted.
func (s *Store) SetActive(ctx context.Context, symbol string, active bool) (bool, error) {
	ctx = util.WithLoggerValue(ctx, "action", "set_active")

	var found bool
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		r, err := tx.Exec(ctx, `
			UPDATE market_data.symbol_map
			SET is_active = $2, updated_at = CURRENT_TIMESTAMP
			WHERE symbol = $1`, symbol, active)
		if err != nil {
			return fmt.Errorf("failed to set symbol %q active=%t: %w", symbol, active, err)
		}
		found = r.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, wrapStoreErr("set active", err)
	}

	return found, nil
}

// EnrichSymbol fills registry metadata from a provider profile. Empty inputs
// leave the stored value alone so operator-entered data wins over missing
// provider data.
func (s *Store) EnrichSymbol(ctx context.Context, symbol, name, exchange, industry string) (bool, error) {
	ctx = util.WithLoggerValue(ctx, "action", "enrich_symbol")

	var found bool
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		r, err := tx.Exec(ctx, `
			UPDATE market_data.symbol_map
			SET
				name = COALESCE(NULLIF($2, ''), name),
				exchange = COALESCE(NULLIF($3, ''), exchange),
				industry = COALESCE(NULLIF($4, ''), industry),
				updated_at = CURRENT_TIMESTAMP
			WHERE symbol = $1`, symbol, name, exchange, industry)
		if err != nil {
			return fmt.Errorf("failed to enrich symbol %q: %w", symbol, err)
		}
		found = r.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, wrapStoreErr("enrich symbol", err)
	}

	return found, nil
}
