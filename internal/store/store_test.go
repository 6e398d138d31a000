package store

import (
	"errors"
	"fmt"
	"github.com/ajjensen13/markethub/internal/model"
	"github.com/jackc/pgconn"
	"testing"
	"time"
)

func testBar(symbol string, day int) model.Bar {
	return model.Bar{
		Symbol:    symbol,
		Timestamp: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Open:      100,
		High:      105,
		Low:       99,
		Close:     102,
		Volume:    50000,
	}
}

func TestPartitionValid(t *testing.T) {
	good := testBar("AAPL", 4)

	bad := testBar("AAPL", 5)
	bad.High = 1 // below low

	stray := testBar("MSFT", 6)

	valid, rejected := partitionValid("AAPL", []model.Bar{good, bad, stray})

	if len(valid) != 1 || !valid[0].Timestamp.Equal(good.Timestamp) {
		t.Fatalf("valid = %v, want just the good bar", valid)
	}
	if len(rejected) != 2 {
		t.Fatalf("len(rejected) = %d, want 2", len(rejected))
	}
	for _, r := range rejected {
		var verr *model.ValidationError
		if !errors.As(r.Err, &verr) {
			t.Errorf("rejected error = %v, want *model.ValidationError", r.Err)
		}
	}
}

func TestPartitionValidAllValid(t *testing.T) {
	bars := []model.Bar{testBar("AAPL", 4), testBar("AAPL", 5)}
	valid, rejected := partitionValid("AAPL", bars)
	if len(valid) != 2 || len(rejected) != 0 {
		t.Fatalf("partitionValid = %d valid, %d rejected, want 2, 0", len(valid), len(rejected))
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), false},
		{"undefined table", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "42P01"}), false},
		{"numeric out of range", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "22003"}), false},
		{"connection failure", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "08006"}), true},
		{"plain error", errors.New("dial tcp: connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}
