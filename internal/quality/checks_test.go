package quality

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/store"
)

var checkTime = time.Date(2020, time.October, 1, 12, 0, 0, 0, time.UTC)

func rangeDays(start time.Time, n int) (time.Time, time.Time) {
	return start, start.AddDate(0, 0, n-1)
}

// seqBars builds one valid bar per consecutive calendar day, closing at the
// given prices.
func seqBars(symbol string, start time.Time, closes []float64) []model.Bar {
	ret := make([]model.Bar, len(closes))
	for i, c := range closes {
		ret[i] = model.Bar{
			Symbol:    symbol,
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return ret
}

func TestDuplicateFinding(t *testing.T) {
	start, end := rangeDays(time.Date(2020, time.August, 3, 0, 0, 0, 0, time.UTC), 5)
	dups := []store.DuplicateKey{
		{Timestamp: start, Rows: 2},
		{Timestamp: start.AddDate(0, 0, 2), Rows: 3},
	}

	f := duplicateFinding("AAPL", start, end, checkTime, dups)
	if f.IssueCount != 5 {
		t.Errorf("IssueCount = %d, want 5 participating rows", f.IssueCount)
	}
	if f.Severity != model.SeverityError {
		t.Errorf("Severity = %q, want error", f.Severity)
	}

	var details struct {
		Duplicates []duplicateDetail `json:"duplicates"`
	}
	if err := json.Unmarshal([]byte(f.Details), &details); err != nil {
		t.Fatalf("details are not valid JSON: %v", err)
	}
	if len(details.Duplicates) != 2 || details.Duplicates[0].Date != "2020-08-03" || details.Duplicates[0].Rows != 2 {
		t.Errorf("details = %+v, want both duplicate keys listed", details.Duplicates)
	}
}

func TestDuplicateFindingClean(t *testing.T) {
	start, end := rangeDays(time.Date(2020, time.August, 3, 0, 0, 0, 0, time.UTC), 5)

	f := duplicateFinding("AAPL", start, end, checkTime, nil)
	if f.IssueCount != 0 {
		t.Errorf("IssueCount = %d, want 0", f.IssueCount)
	}
	if f.Severity != model.SeverityWarning {
		t.Errorf("Severity = %q, want warning on a clean run", f.Severity)
	}
	if f.Details != "" {
		t.Errorf("Details = %q, want empty", f.Details)
	}
}

func TestCompletenessFinding(t *testing.T) {
	start := time.Date(2020, time.August, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.September, 30, 0, 0, 0, 0, time.UTC)

	// August is thin and September has no bars at all; both are issues.
	counts := map[model.YearMonth]int{
		{Year: 2020, Month: time.August}: 15,
	}

	f := completenessFinding("AAPL", start, end, checkTime, counts, 20)
	if f.IssueCount != 2 {
		t.Errorf("IssueCount = %d, want 2 deficient months", f.IssueCount)
	}
	if f.Severity != model.SeverityWarning {
		t.Errorf("Severity = %q, want warning", f.Severity)
	}

	var details struct {
		MinBars int           `json:"min_bars"`
		Months  []monthDetail `json:"months"`
	}
	if err := json.Unmarshal([]byte(f.Details), &details); err != nil {
		t.Fatalf("details are not valid JSON: %v", err)
	}
	if details.MinBars != 20 || len(details.Months) != 2 {
		t.Fatalf("details = %+v, want min_bars 20 and both months", details)
	}
	if details.Months[0].Month != "2020-08" || details.Months[0].Bars != 15 {
		t.Errorf("months[0] = %+v, want 2020-08 with 15 bars", details.Months[0])
	}
	if details.Months[1].Month != "2020-09" || details.Months[1].Bars != 0 {
		t.Errorf("months[1] = %+v, want 2020-09 with 0 bars", details.Months[1])
	}
}

func TestCompletenessFindingHealthy(t *testing.T) {
	start := time.Date(2020, time.August, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.September, 30, 0, 0, 0, 0, time.UTC)
	counts := map[model.YearMonth]int{
		{Year: 2020, Month: time.August}:    21,
		{Year: 2020, Month: time.September}: 22,
	}

	f := completenessFinding("AAPL", start, end, checkTime, counts, 20)
	if f.IssueCount != 0 {
		t.Errorf("IssueCount = %d, want 0", f.IssueCount)
	}
	if f.Details != "" {
		t.Errorf("Details = %q, want empty on a healthy range", f.Details)
	}
}

func TestPriceAnomalyFinding(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%2)*0.1
	}
	closes[59] = closes[58] * 1.3 // one outsized move

	start := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	bars := seqBars("AAPL", start, closes)
	f := priceAnomalyFinding("AAPL", bars[0].Timestamp, bars[len(bars)-1].Timestamp, checkTime, bars, 5)

	if f.IssueCount != 1 {
		t.Fatalf("IssueCount = %d, want exactly the outsized move", f.IssueCount)
	}

	var details struct {
		Anomalies []anomalyDetail `json:"anomalies"`
	}
	if err := json.Unmarshal([]byte(f.Details), &details); err != nil {
		t.Fatalf("details are not valid JSON: %v", err)
	}
	if len(details.Anomalies) != 1 {
		t.Fatalf("details list %d anomalies, want 1", len(details.Anomalies))
	}
	if want := bars[59].Timestamp.Format("2006-01-02"); details.Anomalies[0].Date != want {
		t.Errorf("anomaly date = %q, want %q", details.Anomalies[0].Date, want)
	}
	if details.Anomalies[0].Score <= 5 {
		t.Errorf("anomaly score = %v, want above the 5 sigma threshold", details.Anomalies[0].Score)
	}
}

func TestPriceAnomalyFindingFlatSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}

	start := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	bars := seqBars("AAPL", start, closes)
	f := priceAnomalyFinding("AAPL", bars[0].Timestamp, bars[len(bars)-1].Timestamp, checkTime, bars, 5)

	if f.IssueCount != 0 {
		t.Errorf("IssueCount = %d, want 0 for a flat series", f.IssueCount)
	}
	if f.Severity != model.SeverityWarning {
		t.Errorf("Severity = %q, want warning", f.Severity)
	}
}

func TestPriceAnomalyFindingInsufficientData(t *testing.T) {
	start := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	bars := seqBars("AAPL", start, []float64{100})
	f := priceAnomalyFinding("AAPL", start, start, checkTime, bars, 5)

	if f.IssueCount != 0 {
		t.Errorf("IssueCount = %d, want 0 when there is nothing to compare", f.IssueCount)
	}
}

func TestVolumeAnomalyFinding(t *testing.T) {
	start := time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100
	}
	bars := seqBars("AAPL", start, closes)
	bars[60].Volume = 10_000_000 // one outsized session against a 1000 baseline

	f := volumeAnomalyFinding("AAPL", bars[0].Timestamp, bars[len(bars)-1].Timestamp, checkTime, bars, 10)
	if f.IssueCount != 1 {
		t.Fatalf("IssueCount = %d, want exactly the outsized session", f.IssueCount)
	}

	var details struct {
		Anomalies []anomalyDetail `json:"anomalies"`
	}
	if err := json.Unmarshal([]byte(f.Details), &details); err != nil {
		t.Fatalf("details are not valid JSON: %v", err)
	}
	if want := bars[60].Timestamp.Format("2006-01-02"); len(details.Anomalies) != 1 || details.Anomalies[0].Date != want {
		t.Errorf("anomalies = %+v, want one on %s", details.Anomalies, want)
	}
}

func TestVolumeAnomalyFindingConstantVolume(t *testing.T) {
	start := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	bars := seqBars("AAPL", start, closes)

	f := volumeAnomalyFinding("AAPL", bars[0].Timestamp, bars[len(bars)-1].Timestamp, checkTime, bars, 10)
	if f.IssueCount != 0 {
		t.Errorf("IssueCount = %d, want 0 for constant volume", f.IssueCount)
	}
}

func TestDetailListIsCapped(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	dups := make([]store.DuplicateKey, maxDetailEntries+25)
	for i := range dups {
		dups[i] = store.DuplicateKey{Timestamp: start.AddDate(0, 0, i), Rows: 2}
	}

	f := duplicateFinding("AAPL", start, start.AddDate(0, 0, len(dups)), checkTime, dups)
	if f.IssueCount != 2*(maxDetailEntries+25) {
		t.Errorf("IssueCount = %d, want all rows counted even when details are capped", f.IssueCount)
	}

	var details struct {
		Duplicates []duplicateDetail `json:"duplicates"`
		Truncated  bool              `json:"truncated"`
	}
	if err := json.Unmarshal([]byte(f.Details), &details); err != nil {
		t.Fatalf("details are not valid JSON: %v", err)
	}
	if len(details.Duplicates) != maxDetailEntries || !details.Truncated {
		t.Errorf("details list %d entries (truncated=%v), want %d with the truncation flag", len(details.Duplicates), details.Truncated, maxDetailEntries)
	}
}
