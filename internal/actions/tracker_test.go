package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajjensen13/markethub/internal/model"
)

func testAction(symbol string, exDate time.Time, typ model.ActionType) model.CorporateAction {
	action := model.CorporateAction{Symbol: symbol, Type: typ, ExDate: exDate}
	switch typ {
	case model.ActionSplit:
		action.SplitRatio = decimal.NullDecimal{Decimal: decimal.NewFromInt(2), Valid: true}
	case model.ActionDividend:
		action.DividendAmount = decimal.NullDecimal{Decimal: decimal.RequireFromString("0.82"), Valid: true}
	}
	return action
}

type fakeActionProvider struct {
	actions []model.CorporateAction
	err     error
}

func (f *fakeActionProvider) CorporateActions(_ context.Context, symbol string, since time.Time) ([]model.CorporateAction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ret []model.CorporateAction
	for _, action := range f.actions {
		if action.Symbol == symbol && !action.ExDate.Before(since) {
			ret = append(ret, action)
		}
	}
	return ret, nil
}

type actionKey struct {
	symbol string
	exDate int64
	typ    model.ActionType
}

type fakeActionStore struct {
	actions map[actionKey]model.CorporateAction
	nextID  int64
}

func (f *fakeActionStore) InsertActions(_ context.Context, actions []model.CorporateAction) (int, error) {
	if f.actions == nil {
		f.actions = make(map[actionKey]model.CorporateAction)
	}
	var stored int
	for _, action := range actions {
		key := actionKey{symbol: action.Symbol, exDate: action.ExDate.Unix(), typ: action.Type}
		if _, ok := f.actions[key]; ok {
			continue
		}
		f.nextID++
		action.ID = f.nextID
		f.actions[key] = action
		stored++
	}
	return stored, nil
}

func (f *fakeActionStore) UnprocessedActions(_ context.Context, symbol string) ([]model.CorporateAction, error) {
	var ret []model.CorporateAction
	for _, action := range f.actions {
		if action.Processed {
			continue
		}
		if symbol != "" && action.Symbol != symbol {
			continue
		}
		ret = append(ret, action)
	}
	return ret, nil
}

func (f *fakeActionStore) MarkProcessed(_ context.Context, id int64) (bool, error) {
	for key, action := range f.actions {
		if action.ID == id && !action.Processed {
			action.Processed = true
			f.actions[key] = action
			return true, nil
		}
	}
	return false, nil
}

func TestIngestActions(t *testing.T) {
	exDate := time.Date(2020, time.August, 31, 0, 0, 0, 0, time.UTC)
	provider := &fakeActionProvider{actions: []model.CorporateAction{
		testAction("AAPL", exDate, model.ActionSplit),
		testAction("AAPL", exDate.AddDate(0, 0, -21), model.ActionDividend),
	}}
	st := &fakeActionStore{}
	tracker := New(provider, st)

	since := exDate.AddDate(0, -1, 0)
	info, err := tracker.IngestActions(context.Background(), "AAPL", since)
	if err != nil {
		t.Fatalf("IngestActions() error = %v", err)
	}
	if info.Fetched != 2 || info.Stored != 2 {
		t.Errorf("IngestActions() = %+v, want Fetched 2 Stored 2", info)
	}

	// An overlapping window must not duplicate what is already tracked.
	info, err = tracker.IngestActions(context.Background(), "AAPL", since)
	if err != nil {
		t.Fatalf("IngestActions() replay error = %v", err)
	}
	if info.Fetched != 2 || info.Stored != 0 {
		t.Errorf("replay = %+v, want Fetched 2 Stored 0", info)
	}
	if len(st.actions) != 2 {
		t.Errorf("store tracks %d actions, want 2", len(st.actions))
	}
}

func TestIngestActionsEmptyUpstream(t *testing.T) {
	st := &fakeActionStore{}
	tracker := New(&fakeActionProvider{}, st)

	info, err := tracker.IngestActions(context.Background(), "AAPL", time.Date(2020, time.August, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("IngestActions() error = %v", err)
	}
	if info.Fetched != 0 || info.Stored != 0 {
		t.Errorf("IngestActions() = %+v, want nothing fetched or stored", info)
	}
}

func TestIngestActionsProviderError(t *testing.T) {
	tracker := New(&fakeActionProvider{err: errors.New("upstream down")}, &fakeActionStore{})

	if _, err := tracker.IngestActions(context.Background(), "AAPL", time.Now()); err == nil {
		t.Fatal("IngestActions() succeeded with a failing provider")
	}
}

func TestMarkProcessedFlipsExactlyOnce(t *testing.T) {
	exDate := time.Date(2020, time.August, 31, 0, 0, 0, 0, time.UTC)
	st := &fakeActionStore{}
	if _, err := st.InsertActions(context.Background(), []model.CorporateAction{testAction("AAPL", exDate, model.ActionSplit)}); err != nil {
		t.Fatalf("InsertActions() error = %v", err)
	}
	tracker := New(&fakeActionProvider{}, st)

	pending, err := tracker.ListUnprocessed(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("ListUnprocessed() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("ListUnprocessed() returned %d actions, want 1", len(pending))
	}

	if err := tracker.MarkProcessed(context.Background(), pending[0].ID); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}

	err = tracker.MarkProcessed(context.Background(), pending[0].ID)
	if !errors.Is(err, ErrNotPending) {
		t.Errorf("second MarkProcessed() = %v, want ErrNotPending", err)
	}

	pending, err = tracker.ListUnprocessed(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("ListUnprocessed() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("ListUnprocessed() returned %d actions after processing, want 0", len(pending))
	}
}

func TestMarkProcessedUnknownID(t *testing.T) {
	tracker := New(&fakeActionProvider{}, &fakeActionStore{})

	err := tracker.MarkProcessed(context.Background(), 42)
	if !errors.Is(err, ErrNotPending) {
		t.Errorf("MarkProcessed(42) = %v, want ErrNotPending", err)
	}
}
