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

// InsertActions stores corporate actions that are not already present under
// the natural key (symbol, ex_date, action_type). Storage carries a
// surrogate id and no unique constraint on the triple, so the existence
// check runs inside the insert transaction. Returns the number of newly
// stored events; replays count zero.
func (s *Store) InsertActions(ctx context.Context, actions []model.CorporateAction) (int, error) {
	ctx = util.WithLoggerValue(ctx, "action", "insert_actions")

	if len(actions) == 0 {
		return 0, nil
	}

	var stored int
	err := s.retry(ctx, util.MedReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		n := 0
		for _, a := range actions {
			r, err := tx.Exec(ctx, `
				INSERT INTO market_data.corporate_actions
					(symbol, action_type, ex_date, split_ratio, dividend_amount, processed, created_at)
				SELECT $1, $2, $3, $4, $5, FALSE, CURRENT_TIMESTAMP
				WHERE NOT EXISTS (
					SELECT 1 FROM market_data.corporate_actions
					WHERE symbol = $1 AND ex_date = $3 AND action_type = $2
				)`, a.Symbol, string(a.Type), a.ExDate, a.SplitRatio, a.DividendAmount)
			if err != nil {
				return fmt.Errorf("failed to insert %s %s@%s: %w", a.Type, a.Symbol, a.ExDate.Format("2006-01-02"), err)
			}
			n += int(r.RowsAffected())
		}

		stored = n
		util.Logf(ctx, logging.Debug, "stored %d of %d corporate actions (%d already known)", n, len(actions), len(actions)-n)
		return nil
	})
	if err != nil {
		return 0, wrapStoreErr("insert actions", err)
	}

	return stored, nil
}

// UnprocessedActions lists events awaiting the downstream adjustment
// consumer, ascending by ex-date. An empty symbol selects all symbols.
func (s *Store) UnprocessedActions(ctx context.Context, symbol string) ([]model.CorporateAction, error) {
	ctx = util.WithLoggerValue(ctx, "action", "unprocessed_actions")

	var ret []model.CorporateAction
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, symbol, action_type, ex_date, split_ratio, dividend_amount, processed, processed_at, created_at
			FROM market_data.corporate_actions
			WHERE processed = FALSE AND ($1 = '' OR symbol = $1)
			ORDER BY ex_date, symbol`, symbol)
		if err != nil {
			return fmt.Errorf("failed to query unprocessed actions: %w", err)
		}
		defer rows.Close()

		ret = ret[:0]
		for rows.Next() {
			a, err := scanAction(rows)
			if err != nil {
				return err
			}
			ret = append(ret, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapStoreErr("unprocessed actions", err)
	}

	return ret, nil
}

func scanAction(rows pgx.Rows) (model.CorporateAction, error) {
	var a model.CorporateAction
	var actionType string
	var processedAt pgtype.Timestamptz
	err := rows.Scan(&a.ID, &a.Symbol, &actionType, &a.ExDate, &a.SplitRatio, &a.DividendAmount, &a.Processed, &processedAt, &a.CreatedAt)
	if err != nil {
		return model.CorporateAction{}, fmt.Errorf("failed to scan corporate action: %w", err)
	}

	t, err := model.ParseActionType(actionType)
	if err != nil {
		return model.CorporateAction{}, fmt.Errorf("failed to scan corporate action %d: %w", a.ID, err)
	}
	a.Type = t

	if processedAt.Status == pgtype.Present {
		ts := processedAt.Time
		a.ProcessedAt = &ts
	}

	return a, nil
}

// MarkProcessed flips an action's processed flag. The flag flips exactly
// once: a second call for the same id returns false and changes nothing.
func (s *Store) MarkProcessed(ctx context.Context, id int64) (bool, error) {
	ctx = util.WithLoggerValue(ctx, "action", "mark_processed")

	var flipped bool
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		r, err := tx.Exec(ctx, `
			UPDATE market_data.corporate_actions
			SET processed = TRUE, processed_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND processed = FALSE`, id)
		if err != nil {
			return fmt.Errorf("failed to mark action %d processed: %w", id, err)
		}
		flipped = r.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, wrapStoreErr("mark processed", err)
	}

	return flipped, nil
}
