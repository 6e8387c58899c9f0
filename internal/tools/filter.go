package tools

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bobmccarthy/kakei/internal/models"
)

// Filter carries the optional parameters shared across the analysis tools.
// Each tool reads the fields it supports and ignores the rest, so synthesized
// scripts work with a single vocabulary.
type Filter struct {
	Category      string // raw category label, matched case-insensitively
	MajorCategory string // major bucket, matched case-insensitively
	Year          int    // single year
	StartYear     int    // year range, inclusive (time series)
	EndYear       int
	Months        int    // trailing window in calendar months (time series)
	Year1         int    // first year (comparison, stacked yearly, significance)
	Year2         int    // second year
	Mode          string // stacked bar: "monthly" or "yearly"
	Remarks       string // case-insensitive substring match (sum, average)
	Title         string // chart title override
}

// byCategory applies the shared category-resolution policy: when both a
// specific category and a major category are supplied, the category-only
// filter is tried first, and only an empty subset falls through to the
// major-category filter.
func byCategory(records []models.ExpenseRecord, category, major string) []models.ExpenseRecord {
	switch {
	case category != "" && major != "":
		if sub := matchCategory(records, category); len(sub) > 0 {
			return sub
		}
		return matchMajor(records, major)
	case category != "":
		return matchCategory(records, category)
	case major != "":
		return matchMajor(records, major)
	}
	return records
}

func matchCategory(records []models.ExpenseRecord, category string) []models.ExpenseRecord {
	var out []models.ExpenseRecord
	for _, r := range records {
		if strings.EqualFold(r.Category, category) {
			out = append(out, r)
		}
	}
	return out
}

func matchMajor(records []models.ExpenseRecord, major string) []models.ExpenseRecord {
	var out []models.ExpenseRecord
	for _, r := range records {
		if strings.EqualFold(r.MajorCategory, major) {
			out = append(out, r)
		}
	}
	return out
}

func byYear(records []models.ExpenseRecord, year int) []models.ExpenseRecord {
	var out []models.ExpenseRecord
	for _, r := range records {
		if r.Date.Year() == year {
			out = append(out, r)
		}
	}
	return out
}

func byYearRange(records []models.ExpenseRecord, start, end int) []models.ExpenseRecord {
	var out []models.ExpenseRecord
	for _, r := range records {
		if y := r.Date.Year(); y >= start && y <= end {
			out = append(out, r)
		}
	}
	return out
}

func byTrailingMonths(records []models.ExpenseRecord, months int) []models.ExpenseRecord {
	cutoff := time.Now().AddDate(0, -months, 0)
	var out []models.ExpenseRecord
	for _, r := range records {
		if !r.Date.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func byRemarks(records []models.ExpenseRecord, substr string) []models.ExpenseRecord {
	needle := strings.ToLower(substr)
	var out []models.ExpenseRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Remarks), needle) {
			out = append(out, r)
		}
	}
	return out
}

func sortByDate(records []models.ExpenseRecord) []models.ExpenseRecord {
	out := make([]models.ExpenseRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// label names the subject of a message from the filter inputs: the category
// when supplied, else the major category, else "Total".
func (f Filter) label() string {
	if f.Category != "" {
		return f.Category
	}
	if f.MajorCategory != "" {
		return f.MajorCategory
	}
	return "Total"
}

// searchLabel is the label rule for sum and average, where a remarks search
// term takes precedence over the category inputs.
func (f Filter) searchLabel() string {
	if f.Remarks != "" {
		return f.Remarks
	}
	return f.label()
}

func yearScope(year int) string {
	if year != 0 {
		return strconv.Itoa(year)
	}
	return "all time"
}

func yearPeriod(year int) string {
	if year != 0 {
		return strconv.Itoa(year)
	}
	return "the requested period"
}

// formatMoney renders an amount with thousands separators and two decimals,
// e.g. 1234.5 -> "1,234.50".
func formatMoney(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	for i := len(intPart) - 3; i > 0; i -= 3 {
		intPart = intPart[:i] + "," + intPart[i:]
	}
	if neg {
		return "-" + intPart + frac
	}
	return intPart + frac
}

// fmtRound renders a value rounded to the given decimals with trailing
// zeros trimmed, e.g. fmtRound(1234.501, 2) -> "1234.5".
func fmtRound(v float64, decimals int) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	shift := math.Pow(10, float64(decimals))
	return strconv.FormatFloat(math.Round(v*shift)/shift, 'f', -1, 64)
}
