package tools

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// median uses the midpoint convention for even-length input.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// welchT runs Welch's unequal-variance two-sample t-test and returns the
// t statistic and two-sided p-value, with degrees of freedom from the
// Welch–Satterthwaite approximation.
func welchT(a, b []float64) (t, p float64) {
	m1, m2 := mean(a), mean(b)
	v1, v2 := stat.Variance(a, nil), stat.Variance(b, nil)
	n1, n2 := float64(len(a)), float64(len(b))

	se := v1/n1 + v2/n2
	t = (m1 - m2) / math.Sqrt(se)

	df := se * se / ((v1/n1)*(v1/n1)/(n1-1) + (v2/n2)*(v2/n2)/(n2-1))
	if math.IsNaN(t) || math.IsNaN(df) || df <= 0 {
		return t, math.NaN()
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(t))
	return t, p
}

// cohensD computes the effect size using the pooled standard deviation.
func cohensD(a, b []float64) float64 {
	v1, v2 := stat.Variance(a, nil), stat.Variance(b, nil)
	n1, n2 := float64(len(a)), float64(len(b))

	pooled := math.Sqrt(((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2))
	return (mean(a) - mean(b)) / pooled
}

func pearson(xs, ys []float64) float64 {
	return stat.Correlation(xs, ys, nil)
}

// movingAverage computes a trailing window average; the result is aligned to
// the last element of each full window.
func movingAverage(xs []float64, window int) []float64 {
	if len(xs) < window {
		return nil
	}
	out := make([]float64, 0, len(xs)-window+1)
	sum := 0.0
	for i, v := range xs {
		sum += v
		if i >= window {
			sum -= xs[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}
