package ratio

import (
	"math"
	"testing"
)

func TestSafeDiv(t *testing.T) {
	tests := []struct {
		x, y float64
		want float64
	}{
		{x: 10, y: 0, want: 0},
		{x: 0, y: 0, want: 0},
		{x: -3, y: 0, want: 0},
		{x: math.MaxFloat64, y: 0, want: 0},
		{x: 10, y: 4, want: 2.5},
		{x: 1, y: 3, want: 1.0 / 3.0},
	}
	for _, tc := range tests {
		if got := SafeDiv(tc.x, tc.y); got != tc.want {
			t.Fatalf("SafeDiv(%v, %v)=%v want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestPercentAndMean(t *testing.T) {
	if got := Percent[int64](90, 100); got != 90.0 {
		t.Fatalf("Percent(90, 100)=%v want 90", got)
	}
	if got := Percent[int64](5, 0); got != 0 {
		t.Fatalf("Percent(5, 0)=%v want 0", got)
	}
	if got := Mean[int64](3000, 1000); got != 3.0 {
		t.Fatalf("Mean(3000, 1000)=%v want 3", got)
	}
}
