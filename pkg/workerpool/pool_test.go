package workerpool

import (
	"context"
	"errors"
	"testing"
)

func TestRunPreservesOrderAndRecordsPerUnitFailure(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	p := New(2)

	results := Run(context.Background(), p, items, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("boom")
		}
		return n * n, nil
	})

	if len(results) != len(items) {
		t.Fatalf("got %d results want %d", len(results), len(items))
	}
	for i, r := range results {
		n := items[i]
		if n == 3 {
			if r.Err == nil {
				t.Fatalf("index %d: expected error", i)
			}
			continue
		}
		if r.Err != nil {
			t.Fatalf("index %d: unexpected error %v", i, r.Err)
		}
		if r.Value != n*n {
			t.Fatalf("index %d: got %d want %d", i, r.Value, n*n)
		}
	}
}

func TestRunEmptyItems(t *testing.T) {
	p := New(4)
	results := Run(context.Background(), p, []int{}, func(_ context.Context, n int) (int, error) {
		t.Fatal("fn should never be called for an empty item set")
		return 0, nil
	})
	if len(results) != 0 {
		t.Fatalf("got %d results want 0", len(results))
	}
}

func TestRunStopsDispatchingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(2)
	items := []int{1, 2, 3}
	results := Run(ctx, p, items, func(_ context.Context, n int) (int, error) {
		t.Fatal("fn should never run once the context is already cancelled")
		return 0, nil
	})
	for i, r := range results {
		if r.Err == nil {
			t.Fatalf("index %d: expected context.Canceled", i)
		}
	}
}

func TestDefaultIsPositive(t *testing.T) {
	if Default() < 1 {
		t.Fatal("Default() must return at least 1")
	}
}

func TestSizedForIOClampsMultiplierAndCap(t *testing.T) {
	got := SizedForIO(100)
	if got > MaxWorkers {
		t.Fatalf("got %d want <= %d", got, MaxWorkers)
	}
	if got != Default()*4 && got != MaxWorkers {
		t.Fatalf("expected either 4x default or the hard cap, got %d", got)
	}
}
