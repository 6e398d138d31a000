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

// Package store is the gateway to the market_data schema. It is the sole
// writer of bars, symbols, corporate actions, and quality findings; every
// operation runs inside a transaction with a request timeout and a retry
// policy for transient failures.
package store

import (
	"context"
	"errors"
	"fmt"
	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/util"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"strings"
	"time"
)

type Store struct {
	pool       *pgxpool.Pool
	newBackOff func() backoff.BackOff
	notify     backoff.Notify
	atomic     bool
}

// New wires a gateway over pool. newBackOff produces a fresh retry policy
// per operation; notify observes retry waits. atomicIngest switches
// UpsertBars from per-row resilience to all-or-nothing batches.
func New(pool *pgxpool.Pool, newBackOff func() backoff.BackOff, notify backoff.Notify, atomicIngest bool) *Store {
	return &Store{pool: pool, newBackOff: newBackOff, notify: notify, atomic: atomicIngest}
}

// UpsertInfo reports the outcome of an upsert batch. Written counts bars
// accepted and applied (stable across re-runs of the same input); Modified
// counts rows the database actually changed, which drops to zero when the
// batch is a replay.
type UpsertInfo struct {
	Written  int
	Modified int64
	Rejected []RejectedBar
}

// RejectedBar is a bar that failed validation. The error is always a
// *model.ValidationError.
type RejectedBar struct {
	Bar model.Bar
	Err error
}

// DuplicateKey is a (symbol, timestamp) key that appears on more than one
// row. Rows is the total row count for the key, not the overage.
type DuplicateKey struct {
	Timestamp time.Time
	Rows      int
}

func (s *Store) retry(ctx context.Context, timeout time.Duration, op func(ctx context.Context, tx pgx.Tx) error) error {
	return backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := util.RunTx(ctx, s.pool, op)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(s.newBackOff(), ctx), s.notify)
}

// retryable reports whether an error is worth another attempt. Integrity
// violations, malformed data, and SQL errors will not heal on retry.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return true
	}
	switch {
	case strings.HasPrefix(pgErr.Code, "22"): // data exception
		return false
	case strings.HasPrefix(pgErr.Code, "23"): // integrity constraint violation
		return false
	case strings.HasPrefix(pgErr.Code, "42"): // syntax error or access rule violation
		return false
	}
	return true
}

func wrapStoreErr(op string, err error) error {
	return fmt.Errorf("store: %s: %w", op, err)
}
