package md

import (
	"math"
	"math/rand"
	"testing"
)

func naiveMean(values []float64, window int) []float64 {
	out := make([]float64, 0, len(values)-window+1)
	for i := 0; i+window <= len(values); i++ {
		sum := 0.0
		for _, v := range values[i : i+window] {
			sum += v
		}
		out = append(out, sum/float64(window))
	}
	return out
}

func TestMovingAverageMatchesSlidingMean(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(120)
		values := make([]float64, n)
		for i := range values {
			values[i] = 50 + rng.Float64()*100
		}
		for window := 1; window <= n; window += 1 + rng.Intn(5) {
			got, ok := MovingAverage(values, window)
			if !ok {
				t.Fatalf("n=%d window=%d: expected average to be defined", n, window)
			}
			want := naiveMean(values, window)
			if len(got) != len(want) {
				t.Fatalf("n=%d window=%d: expected length %d, got %d", n, window, len(want), len(got))
			}
			for i := range want {
				if math.Abs(got[i]-want[i]) > 1e-9 {
					t.Fatalf("n=%d window=%d index=%d: expected %.12f, got %.12f", n, window, i, want[i], got[i])
				}
			}
		}
	}
}

func TestMovingAverageUndefinedForShortInput(t *testing.T) {
	if avg, ok := MovingAverage([]float64{1, 2, 3}, 5); ok || avg != nil {
		t.Fatalf("expected undefined average, got %v", avg)
	}
	if _, ok := MovingAverage(nil, 1); ok {
		t.Fatalf("expected undefined average for empty input")
	}
	if _, ok := MovingAverage([]float64{1, 2}, 0); ok {
		t.Fatalf("expected undefined average for zero window")
	}
}

func TestLastMovingAverage(t *testing.T) {
	avg, ok := LastMovingAverage([]float64{1, 2, 3, 4, 5, 6}, 3)
	if !ok {
		t.Fatalf("expected average to be defined")
	}
	if avg != 5 {
		t.Fatalf("expected 5, got %.4f", avg)
	}
}
