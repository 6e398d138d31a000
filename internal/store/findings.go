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
	"context"
	"fmt"
	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/util"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"time"
)

// InsertFinding persists one quality-check result and returns its id.
// Zero-issue findings are stored like any other so the log shows the check
// ran.
func (s *Store) InsertFinding(ctx context.Context, f model.QualityFinding) (int64, error) {
	ctx = util.WithLoggerValue(ctx, "action", "insert_finding")

	var id int64
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO market_data.data_quality_log
				(symbol, check_type, severity, check_time, date_range_start, date_range_end, issue_count, details, resolved)
			VALUES
				($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), FALSE)
			RETURNING id`,
			f.Symbol, string(f.CheckType), string(f.Severity), f.CheckTime, f.RangeStart, f.RangeEnd, f.IssueCount, f.Details).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to insert %s finding for %q: %w", f.CheckType, f.Symbol, err)
		}
		return nil
	})
	if err != nil {
		return 0, wrapStoreErr("insert finding", err)
	}

	return id, nil
}

// RecentFindings returns unresolved findings with check_time at or after
// since, newest first. Empty symbol or severity means no filter on that
// column.
func (s *Store) RecentFindings(ctx context.Context, symbol string, since time.Time, severity model.Severity) ([]model.QualityFinding, error) {
	ctx = util.WithLoggerValue(ctx, "action", "recent_findings")

	var ret []model.QualityFinding
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, symbol, check_type, severity, check_time, date_range_start, date_range_end, issue_count, details, resolved, resolved_at
			FROM market_data.data_quality_log
			WHERE resolved = FALSE
				AND check_time >= $1
				AND ($2 = '' OR symbol = $2)
				AND ($3 = '' OR severity = $3)
			ORDER BY check_time DESC`, since, symbol, string(severity))
		if err != nil {
			return fmt.Errorf("failed to query findings: %w", err)
		}
		defer rows.Close()

		ret = ret[:0]
		for rows.Next() {
			f, err := scanFinding(rows)
			if err != nil {
				return err
			}
			ret = append(ret, f)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapStoreErr("recent findings", err)
	}

	return ret, nil
}

func scanFinding(rows pgx.Rows) (model.QualityFinding, error) {
	var f model.QualityFinding
	var checkType, severity string
	var details pgtype.Text
	var resolvedAt pgtype.Timestamptz
	err := rows.Scan(&f.ID, &f.Symbol, &checkType, &severity, &f.CheckTime, &f.RangeStart, &f.RangeEnd, &f.IssueCount, &details, &f.Resolved, &resolvedAt)
	if err != nil {
		return model.QualityFinding{}, fmt.Errorf("failed to scan finding: %w", err)
	}

	ct, err := model.ParseCheckType(checkType)
	if err != nil {
		return model.QualityFinding{}, fmt.Errorf("failed to scan finding %d: %w", f.ID, err)
	}
	f.CheckType = ct

	sev, err := model.ParseSeverity(severity)
	if err != nil {
		return model.QualityFinding{}, fmt.Errorf("failed to scan finding %d: %w", f.ID, err)
	}
	f.Severity = sev

	f.Details = details.String
	if resolvedAt.Status == pgtype.Present {
		ts := resolvedAt.Time
		f.ResolvedAt = &ts
	}

	return f, nil
}
