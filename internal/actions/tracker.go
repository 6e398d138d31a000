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

// Package actions tracks splits and dividends. Tracked actions queue for a
// downstream adjustment pass; each is handed out until marked processed,
// and marking is a one-way transition.
package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/logging"

	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/util"
)

// ErrNotPending marks attempts to process an action that is unknown or was
// already processed.
var ErrNotPending = errors.New("corporate action is not pending")

// Provider is the upstream slice the tracker depends on.
type Provider interface {
	CorporateActions(ctx context.Context, symbol string, since time.Time) ([]model.CorporateAction, error)
}

// Store is the persistence slice the tracker depends on.
type Store interface {
	InsertActions(ctx context.Context, actions []model.CorporateAction) (int, error)
	UnprocessedActions(ctx context.Context, symbol string) ([]model.CorporateAction, error)
	MarkProcessed(ctx context.Context, id int64) (bool, error)
}

// Tracker ingests corporate actions and manages their processing state.
type Tracker struct {
	provider Provider
	store    Store
}

func New(provider Provider, store Store) *Tracker {
	return &Tracker{provider: provider, store: store}
}

// IngestInfo summarizes one action ingestion pass.
type IngestInfo struct {
	Fetched int // actions the upstream reported
	Stored  int // actions not seen before
}

// IngestActions fetches the corporate actions for symbol with an ex-date on
// or after since and stores the ones not already tracked. Re-ingesting an
// overlapping window stores nothing new.
func (t *Tracker) IngestActions(ctx context.Context, symbol string, since time.Time) (IngestInfo, error) {
	ctx = util.WithLoggerValue(ctx, "action", "ingest_corporate_actions")

	fetched, err := t.provider.CorporateActions(ctx, symbol, since)
	if err != nil {
		return IngestInfo{}, fmt.Errorf("failed to fetch corporate actions for stock %q: %w", symbol, err)
	}
	if len(fetched) == 0 {
		util.Logf(ctx, logging.Debug, "no corporate actions upstream for stock %q since %s", symbol, since.Format("2006-01-02"))
		return IngestInfo{}, nil
	}

	stored, err := t.store.InsertActions(ctx, fetched)
	if err != nil {
		return IngestInfo{Fetched: len(fetched)}, fmt.Errorf("failed to store corporate actions for stock %q: %w", symbol, err)
	}

	util.Logf(ctx, logging.Info, "tracked %d corporate actions for stock %q (%d new)", len(fetched), symbol, stored)
	return IngestInfo{Fetched: len(fetched), Stored: stored}, nil
}

// ListUnprocessed returns the actions awaiting processing, oldest ex-date
// first. An empty symbol lists every symbol.
func (t *Tracker) ListUnprocessed(ctx context.Context, symbol string) ([]model.CorporateAction, error) {
	ret, err := t.store.UnprocessedActions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed corporate actions: %w", err)
	}
	return ret, nil
}

// MarkProcessed records that the action identified by id has been applied
// downstream. Marking an action twice returns ErrNotPending, so concurrent
// processors cannot both claim it.
func (t *Tracker) MarkProcessed(ctx context.Context, id int64) error {
	flipped, err := t.store.MarkProcessed(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to mark corporate action %d processed: %w", id, err)
	}
	if !flipped {
		return fmt.Errorf("failed to mark corporate action %d processed: %w", id, ErrNotPending)
	}
	return nil
}
