package model

import (
	"testing"
	"time"
)

func TestSessionDate(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	tests := []struct {
		name string
		in   time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			"utc afternoon truncates to utc midnight",
			time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC),
			time.UTC,
			time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			"early utc lands on previous local day",
			time.Date(2024, 3, 4, 1, 30, 0, 0, time.UTC),
			est,
			time.Date(2024, 3, 3, 0, 0, 0, 0, est),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SessionDate(tt.in, tt.loc)
			if !got.Equal(tt.want) {
				t.Errorf("SessionDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time {
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
	tests := []struct {
		name       string
		start, end time.Time
		want       []YearMonth
	}{
		{"single month", d(2024, 3, 5), d(2024, 3, 25), []YearMonth{{2024, 3}}},
		{"spans three months", d(2024, 1, 15), d(2024, 3, 2), []YearMonth{{2024, 1}, {2024, 2}, {2024, 3}}},
		{"crosses year boundary", d(2023, 11, 30), d(2024, 2, 1), []YearMonth{{2023, 11}, {2023, 12}, {2024, 1}, {2024, 2}}},
		{"end before start", d(2024, 3, 5), d(2024, 3, 4), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthsBetween(tt.start, tt.end)
			if len(got) != len(tt.want) {
				t.Fatalf("MonthsBetween() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("MonthsBetween()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestYearMonthString(t *testing.T) {
	if got := (YearMonth{2024, time.March}).String(); got != "2024-03" {
		t.Errorf("String() = %q, want %q", got, "2024-03")
	}
	if got := (YearMonth{2023, time.December}).Next(); got != (YearMonth{2024, time.January}) {
		t.Errorf("Next() = %v, want 2024-01", got)
	}
}
