package ingest

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/store"
)

func testBar(symbol string, ts time.Time) model.Bar {
	return model.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      100,
		High:      105,
		Low:       99,
		Close:     102,
		Volume:    1000,
	}
}

type fakeProvider struct {
	bars  []model.Bar
	err   error
	calls int
}

func (f *fakeProvider) DailyBars(_ context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var ret []model.Bar
	for _, bar := range f.bars {
		if bar.Symbol != symbol || bar.Timestamp.Before(start) || bar.Timestamp.After(end) {
			continue
		}
		ret = append(ret, bar)
	}
	return ret, nil
}

type fakeBarStore struct {
	bars    map[int64]model.Bar
	upserts int
}

func (f *fakeBarStore) UpsertBars(_ context.Context, symbol string, bars []model.Bar) (store.UpsertInfo, error) {
	if f.bars == nil {
		f.bars = make(map[int64]model.Bar)
	}
	f.upserts++
	var info store.UpsertInfo
	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			info.Rejected = append(info.Rejected, store.RejectedBar{Bar: bar, Err: err})
			continue
		}
		if _, ok := f.bars[bar.Timestamp.Unix()]; !ok {
			info.Modified++
		}
		f.bars[bar.Timestamp.Unix()] = bar
		info.Written++
	}
	return info, nil
}

func (f *fakeBarStore) FetchRange(_ context.Context, _ string, start, end time.Time) ([]model.Bar, error) {
	var ret []model.Bar
	for _, bar := range f.bars {
		if bar.Timestamp.Before(start) || bar.Timestamp.After(end) {
			continue
		}
		ret = append(ret, bar)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Timestamp.Before(ret[j].Timestamp) })
	return ret, nil
}

func weekBars(symbol string) []model.Bar {
	var ret []model.Bar
	for _, d := range []int{3, 4, 5, 6, 7} { // Monday through Friday
		ret = append(ret, testBar(symbol, day(2020, time.August, d)))
	}
	return ret
}

func TestIngestRange(t *testing.T) {
	provider := &fakeProvider{bars: weekBars("AAPL")}
	st := &fakeBarStore{}
	svc := New(provider, st, time.UTC)

	info, err := svc.IngestRange(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("IngestRange() error = %v", err)
	}
	if info.Written != 5 {
		t.Errorf("Written = %d, want 5", info.Written)
	}
	if len(st.bars) != 5 {
		t.Errorf("store holds %d bars, want 5", len(st.bars))
	}

	// Replaying the same range must not change the outcome.
	info, err = svc.IngestRange(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("IngestRange() replay error = %v", err)
	}
	if info.Written != 5 {
		t.Errorf("replay Written = %d, want 5", info.Written)
	}
	if len(st.bars) != 5 {
		t.Errorf("store holds %d bars after replay, want 5", len(st.bars))
	}

	got, err := st.FetchRange(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("FetchRange() error = %v", err)
	}
	want := weekBars("AAPL")
	if len(got) != len(want) {
		t.Fatalf("FetchRange() returned %d bars, want %d", len(got), len(want))
	}
	for i, bar := range got {
		if i > 0 && !got[i-1].Timestamp.Before(bar.Timestamp) {
			t.Errorf("bars are not ascending at %d: %v then %v", i, got[i-1].Timestamp, bar.Timestamp)
		}
		if bar != want[i] {
			t.Errorf("bar[%d] = %+v, want the ingested values %+v", i, bar, want[i])
		}
	}
}

func TestIngestRangeEmptyUpstream(t *testing.T) {
	provider := &fakeProvider{}
	st := &fakeBarStore{}
	svc := New(provider, st, time.UTC)

	info, err := svc.IngestRange(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("IngestRange() error = %v", err)
	}
	if info.Written != 0 {
		t.Errorf("Written = %d, want 0", info.Written)
	}
	if st.upserts != 0 {
		t.Errorf("store was written %d times for an empty response, want 0", st.upserts)
	}
}

func TestIngestRangeProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream down")}
	st := &fakeBarStore{}
	svc := New(provider, st, time.UTC)

	if _, err := svc.IngestRange(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7)); err == nil {
		t.Fatal("IngestRange() succeeded with a failing provider")
	}
	if st.upserts != 0 {
		t.Errorf("store was written %d times after a provider failure, want 0", st.upserts)
	}
}

func TestFindMissing(t *testing.T) {
	st := &fakeBarStore{}
	for _, d := range []int{3, 4, 6, 7} { // Wednesday the 5th is absent
		_, _ = st.UpsertBars(context.Background(), "AAPL", []model.Bar{testBar("AAPL", day(2020, time.August, d))})
	}
	svc := New(&fakeProvider{}, st, time.UTC)

	missing, err := svc.FindMissing(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("FindMissing() error = %v", err)
	}
	if len(missing) != 1 || !missing[0].Equal(day(2020, time.August, 5)) {
		t.Errorf("FindMissing() = %v, want [2020-08-05]", missing)
	}
}

func TestFindMissingIgnoresWeekends(t *testing.T) {
	st := &fakeBarStore{}
	_, _ = st.UpsertBars(context.Background(), "AAPL", []model.Bar{
		testBar("AAPL", day(2020, time.August, 7)),
		testBar("AAPL", day(2020, time.August, 10)),
	})
	svc := New(&fakeProvider{}, st, time.UTC)

	missing, err := svc.FindMissing(context.Background(), "AAPL", day(2020, time.August, 7), day(2020, time.August, 10))
	if err != nil {
		t.Fatalf("FindMissing() error = %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("FindMissing() = %v, want none across a covered weekend", missing)
	}
}

func TestRepair(t *testing.T) {
	provider := &fakeProvider{bars: weekBars("AAPL")}
	st := &fakeBarStore{}
	// Seed Monday, Tuesday, and Friday. Wednesday and Thursday form one gap.
	for _, d := range []int{3, 4, 7} {
		_, _ = st.UpsertBars(context.Background(), "AAPL", []model.Bar{testBar("AAPL", day(2020, time.August, d))})
	}
	svc := New(provider, st, time.UTC)

	info, err := svc.Repair(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if info.Missing != 2 || info.Written != 2 || info.Runs != 1 {
		t.Errorf("Repair() = %+v, want Missing 2 Written 2 Runs 1", info)
	}
	if provider.calls != 1 {
		t.Errorf("provider was asked %d times, want 1 request for the contiguous gap", provider.calls)
	}
	if len(st.bars) != 5 {
		t.Errorf("store holds %d bars after repair, want 5", len(st.bars))
	}

	info, err = svc.Repair(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("Repair() second pass error = %v", err)
	}
	if info.Missing != 0 || info.Written != 0 {
		t.Errorf("second pass = %+v, want nothing left to repair", info)
	}
}

func TestRepairSpansWeekendAsOneRun(t *testing.T) {
	provider := &fakeProvider{bars: []model.Bar{
		testBar("AAPL", day(2020, time.August, 7)),  // Friday
		testBar("AAPL", day(2020, time.August, 8)),  // Saturday, upstream artifact
		testBar("AAPL", day(2020, time.August, 10)), // Monday
	}}
	st := &fakeBarStore{}
	svc := New(provider, st, time.UTC)

	info, err := svc.Repair(context.Background(), "AAPL", day(2020, time.August, 7), day(2020, time.August, 10))
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if info.Runs != 1 {
		t.Errorf("Runs = %d, want the Friday-Monday gap fetched as one run", info.Runs)
	}
	if info.Written != 2 {
		t.Errorf("Written = %d, want 2", info.Written)
	}
	if _, ok := st.bars[day(2020, time.August, 8).Unix()]; ok {
		t.Error("a Saturday bar was written; repair must only fill missing sessions")
	}
}

func TestRepairConvergesAsUpstreamCatchesUp(t *testing.T) {
	provider := &fakeProvider{bars: []model.Bar{
		testBar("AAPL", day(2020, time.August, 3)),
		testBar("AAPL", day(2020, time.August, 4)),
		// Wednesday the 5th is not available upstream yet.
		testBar("AAPL", day(2020, time.August, 6)),
		testBar("AAPL", day(2020, time.August, 7)),
	}}
	st := &fakeBarStore{}
	svc := New(provider, st, time.UTC)

	info, err := svc.Repair(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if info.Missing != 5 || info.Written != 4 {
		t.Errorf("Repair() = %+v, want Missing 5 Written 4", info)
	}

	missing, err := svc.FindMissing(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("FindMissing() error = %v", err)
	}
	if len(missing) != 1 || !missing[0].Equal(day(2020, time.August, 5)) {
		t.Fatalf("missing after first pass = %v, want [2020-08-05]", missing)
	}

	// The upstream catches up; the next pass converges.
	provider.bars = append(provider.bars, testBar("AAPL", day(2020, time.August, 5)))

	info, err = svc.Repair(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("Repair() second pass error = %v", err)
	}
	if info.Written != 1 {
		t.Errorf("second pass Written = %d, want 1", info.Written)
	}

	missing, err = svc.FindMissing(context.Background(), "AAPL", day(2020, time.August, 3), day(2020, time.August, 7))
	if err != nil {
		t.Fatalf("FindMissing() error = %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing after second pass = %v, want none", missing)
	}
}
