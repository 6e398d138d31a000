package model

import (
	"errors"
	"testing"
	"time"
)

func validBar() Bar {
	return Bar{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Open:      100,
		High:      105,
		Low:       99,
		Close:     102,
		Volume:    1000000,
	}
}

func TestBarValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Bar)
		wantReason string
	}{
		{"valid", func(b *Bar) {}, ""},
		{"zero volume is valid", func(b *Bar) { b.Volume = 0 }, ""},
		{"high equal to low is valid", func(b *Bar) { b.Open, b.High, b.Low, b.Close = 100, 100, 100, 100 }, ""},
		{"missing symbol", func(b *Bar) { b.Symbol = "" }, "missing symbol"},
		{"missing timestamp", func(b *Bar) { b.Timestamp = time.Time{} }, "missing timestamp"},
		{"zero open", func(b *Bar) { b.Open = 0 }, "non-positive price"},
		{"negative close", func(b *Bar) { b.Close = -1 }, "non-positive price"},
		{"negative volume", func(b *Bar) { b.Volume = -5 }, "negative volume"},
		{"high below low", func(b *Bar) { b.High = 98 }, "high below open, close, or low"},
		{"high below close", func(b *Bar) { b.Close = 106 }, "high below open, close, or low"},
		{"low above open", func(b *Bar) { b.Low = 101 }, "low above open or close"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBar()
			tt.mutate(&b)
			err := b.Validate()
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Reason != tt.wantReason {
				t.Errorf("Validate() reason = %q, want %q", verr.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	b := validBar()
	b.High = 1 // below low
	err := b.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	want := "invalid bar AAPL@2024-03-04: high below open, close, or low"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
