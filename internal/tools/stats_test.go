package tools

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"single", []float64{5}, 5},
		{"odd", []float64{3, 1, 2}, 2},
		{"even midpoint", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.xs); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.xs, got, tt.want)
			}
		})
	}
	if !math.IsNaN(median(nil)) {
		t.Error("median of empty input should be NaN")
	}
}

func TestStdDev(t *testing.T) {
	if got := stdDev([]float64{100, 200, 300}); got != 100 {
		t.Errorf("stdDev = %v, want 100", got)
	}
	if got := stdDev([]float64{42}); got != 0 {
		t.Errorf("stdDev of one sample = %v, want 0", got)
	}
}

func TestWelchT(t *testing.T) {
	t.Run("identical samples", func(t *testing.T) {
		tv, p := welchT([]float64{1, 2, 3}, []float64{1, 2, 3})
		if tv != 0 {
			t.Errorf("t = %v, want 0", tv)
		}
		if p != 1 {
			t.Errorf("p = %v, want 1", p)
		}
	})

	t.Run("known small samples", func(t *testing.T) {
		// a and b share variance 5/3; df resolves to 6
		tv, p := welchT([]float64{1, 2, 3, 4}, []float64{2, 3, 4, 5})
		if !almostEqual(tv, -1.0954, 1e-3) {
			t.Errorf("t = %v, want about -1.0954", tv)
		}
		if !almostEqual(p, 0.3153, 1e-2) {
			t.Errorf("p = %v, want about 0.3153", p)
		}
	})

	t.Run("zero variance yields no p-value", func(t *testing.T) {
		_, p := welchT([]float64{5, 5}, []float64{5, 5})
		if !math.IsNaN(p) {
			t.Errorf("p = %v, want NaN", p)
		}
	})
}

func TestCohensD(t *testing.T) {
	if got := cohensD([]float64{1, 2, 3}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("d = %v, want 0", got)
	}
	// pooled sd = sqrt(2.5)
	if got := cohensD([]float64{2, 4, 6}, []float64{1, 2, 3}); !almostEqual(got, 1.2649, 1e-3) {
		t.Errorf("d = %v, want about 1.2649", got)
	}
}

func TestPearson(t *testing.T) {
	if got := pearson([]float64{1, 2, 3}, []float64{2, 4, 6}); !almostEqual(got, 1, 1e-12) {
		t.Errorf("r = %v, want 1", got)
	}
	if got := pearson([]float64{1, 2, 3}, []float64{6, 4, 2}); !almostEqual(got, -1, 1e-12) {
		t.Errorf("r = %v, want -1", got)
	}
}

func TestMovingAverage(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	got := movingAverage(xs, 7)

	want := []float64{4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("movingAverage length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-9) {
			t.Errorf("movingAverage[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if movingAverage([]float64{1, 2, 3}, 7) != nil {
		t.Error("window longer than input should yield nil")
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{999, "999.00"},
		{1000, "1,000.00"},
		{1234.5, "1,234.50"},
		{1234567.891, "1,234,567.89"},
		{-1234.5, "-1,234.50"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFmtRound(t *testing.T) {
	tests := []struct {
		in       float64
		decimals int
		want     string
	}{
		{50, 1, "50"},
		{3.14159, 2, "3.14"},
		{1234.501, 2, "1234.5"},
		{-1.25, 1, "-1.3"},
		{0, 2, "0"},
	}
	for _, tt := range tests {
		if got := fmtRound(tt.in, tt.decimals); got != tt.want {
			t.Errorf("fmtRound(%v, %d) = %q, want %q", tt.in, tt.decimals, got, tt.want)
		}
	}
	if got := fmtRound(math.NaN(), 2); got != "NaN" {
		t.Errorf("fmtRound(NaN) = %q", got)
	}
	if got := fmtRound(math.Inf(1), 2); got != "+Inf" {
		t.Errorf("fmtRound(+Inf) = %q", got)
	}
}
