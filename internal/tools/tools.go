// Package tools provides the bounded analysis toolset synthesized scripts
// are allowed to call. Every tool takes the request dataset plus a Filter
// and returns an Invocation; empty subsets produce advisory messages, never
// faults.
package tools

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmccarthy/kakei/internal/models"
)

// ResultKind classifies what a tool produced. The summarizer uses it to
// decide whether a second model call is needed: AlreadyPhrased results are
// complete sentences carrying the answer and are returned verbatim.
type ResultKind string

const (
	KindEmpty          ResultKind = "empty"
	KindNumeric        ResultKind = "numeric"
	KindText           ResultKind = "text"
	KindAlreadyPhrased ResultKind = "already_phrased"
)

// Invocation is the outcome of one analysis tool call. Message is always
// set; Fig is present only when the tool decided a visualization adds value.
type Invocation struct {
	Fig     *models.Figure
	Message string
	Kind    ResultKind
}

// PlotTimeSeries charts spending over time for the filtered subset.
// Supports a single year, a year range, and a trailing window of calendar
// months. Small subsets (at most 20 points) render as bars; larger ones as a
// line with a 7-point trailing moving average.
func PlotTimeSeries(ds *models.Dataset, f Filter) Invocation {
	records := ds.Records
	if f.Year != 0 {
		records = byYear(records, f.Year)
	} else if f.StartYear != 0 && f.EndYear != 0 {
		records = byYearRange(records, f.StartYear, f.EndYear)
	}
	records = byCategory(records, f.Category, f.MajorCategory)
	if f.Months != 0 {
		records = byTrailingMonths(records, f.Months)
	}

	label := f.label()
	if len(records) == 0 {
		return Invocation{
			Message: fmt.Sprintf("No spending data found for %s in the specified period.", label),
			Kind:    KindText,
		}
	}

	records = sortByDate(records)
	xs := make([]string, len(records))
	ys := make([]float64, len(records))
	for i, r := range records {
		xs[i] = r.Date.Format("2006-01-02")
		ys[i] = r.Expense
	}

	title := f.Title
	if title == "" {
		title = fmt.Sprintf("%s Spending Over Time (%s)", label, ds.Currency)
	}

	fig := &models.Figure{
		Title:  title,
		XLabel: "Date",
		YLabel: "Expense",
		Series: []models.Series{{Name: label, X: xs, Y: ys}},
	}
	if len(records) <= 20 {
		fig.Type = models.FigureBar
	} else {
		fig.Type = models.FigureLine
		if len(ys) > 7 {
			fig.Series = append(fig.Series, models.Series{
				Name: "7-point moving average",
				X:    xs[6:],
				Y:    movingAverage(ys, 7),
			})
		}
	}

	msg := fmt.Sprintf("Time-series plot for %s expenses", label)
	if f.Year != 0 {
		msg += fmt.Sprintf(" in %d", f.Year)
	} else if f.StartYear != 0 && f.EndYear != 0 {
		msg += fmt.Sprintf(" from %d to %d", f.StartYear, f.EndYear)
	}
	if f.Months != 0 {
		msg += fmt.Sprintf(" for the past %d months", f.Months)
	}
	msg += " has been generated."

	return Invocation{Fig: fig, Message: msg, Kind: KindText}
}

// PlotPieChart charts an expense breakdown. The grouping key follows the
// most specific input: a major category groups its raw categories, a raw
// category stands alone, and with neither the major buckets are compared.
func PlotPieChart(ds *models.Dataset, f Filter) Invocation {
	records := ds.Records
	if f.Year != 0 {
		records = byYear(records, f.Year)
	}

	var (
		title string
		msg   string
		key   func(models.ExpenseRecord) string
	)
	switch {
	case f.MajorCategory != "":
		records = matchMajor(records, f.MajorCategory)
		key = func(r models.ExpenseRecord) string { return r.Category }
		title = fmt.Sprintf("%s Breakdown (%s)", f.MajorCategory, ds.Currency)
		msg = fmt.Sprintf("Pie chart showing breakdown of %s expenses", f.MajorCategory)
	case f.Category != "":
		records = matchCategory(records, f.Category)
		key = func(r models.ExpenseRecord) string { return r.Category }
		title = fmt.Sprintf("%s Breakdown (%s)", f.Category, ds.Currency)
		msg = fmt.Sprintf("Pie chart showing %s expenses", f.Category)
	default:
		key = func(r models.ExpenseRecord) string { return r.MajorCategory }
		title = fmt.Sprintf("Major Category Breakdown (%s)", ds.Currency)
		msg = "Pie chart showing major category breakdown"
	}

	if len(records) == 0 {
		return Invocation{
			Message: fmt.Sprintf("No data found to create a pie chart for %s.", f.label()),
			Kind:    KindText,
		}
	}

	sums := make(map[string]float64)
	for _, r := range records {
		sums[key(r)] += r.Expense
	}
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	// Largest slice first; ties settle alphabetically for stable output
	sort.Slice(names, func(i, j int) bool {
		if sums[names[i]] != sums[names[j]] {
			return sums[names[i]] > sums[names[j]]
		}
		return names[i] < names[j]
	})

	var total float64
	for _, v := range sums {
		total += v
	}
	labels := make([]string, len(names))
	values := make([]float64, len(names))
	percents := make([]float64, len(names))
	for i, name := range names {
		labels[i] = name
		values[i] = sums[name]
		if total != 0 {
			percents[i] = 100 * sums[name] / total
		}
	}

	if f.Title != "" {
		title = f.Title
	}
	fig := &models.Figure{
		Type:   models.FigurePie,
		Title:  title,
		Series: []models.Series{{Labels: labels, Y: values, Percents: percents}},
	}

	if f.Year != 0 {
		msg += fmt.Sprintf(" for %d", f.Year)
	}
	msg += " has been generated."

	return Invocation{Fig: fig, Message: msg, Kind: KindText}
}

// PlotComparison contrasts spending between exactly two years, one point
// distribution per year with its mean marked, and reports the percentage
// change of means.
func PlotComparison(ds *models.Dataset, f Filter) Invocation {
	y1, y2 := f.Year1, f.Year2
	var subset []models.ExpenseRecord
	for _, r := range ds.Records {
		if y := r.Date.Year(); y == y1 || y == y2 {
			subset = append(subset, r)
		}
	}
	subset = byCategory(subset, f.Category, f.MajorCategory)

	label := f.label()
	if len(subset) == 0 {
		return Invocation{
			Message: fmt.Sprintf("No data found to compare %s expenses between %d and %d.", label, y1, y2),
			Kind:    KindText,
		}
	}

	series := make([]models.Series, 0, 2)
	means := make([]float64, 2)
	for i, year := range []int{y1, y2} {
		yr := sortByDate(byYear(subset, year))
		xs := make([]string, len(yr))
		ys := make([]float64, len(yr))
		for j, r := range yr {
			xs[j] = r.Date.Format("2006-01-02")
			ys[j] = r.Expense
		}
		means[i] = mean(ys)
		series = append(series, models.Series{
			Name:    strconv.Itoa(year),
			X:       xs,
			Y:       ys,
			Mean:    means[i],
			HasMean: len(ys) > 0,
		})
	}

	title := f.Title
	if title == "" {
		title = fmt.Sprintf("%s Comparison: %d vs %d (%s)", label, y1, y2, ds.Currency)
	}
	fig := &models.Figure{
		Type:   models.FigureScatter,
		Title:  title,
		XLabel: "Date",
		YLabel: "Expense",
		Series: series,
	}

	// Percentage change of means, deliberately unguarded for a zero or
	// negative baseline: IEEE semantics surface as Inf/NaN in the message.
	change := (means[1] - means[0]) / means[0] * 100
	changeText := fmtRound(change, 1)
	if !strings.HasPrefix(changeText, "-") && !strings.HasPrefix(changeText, "+") && !math.IsNaN(change) {
		changeText = "+" + changeText
	}
	msg := fmt.Sprintf("Comparison plot for %s expenses between %d and %d has been generated. Mean change: %s%%.",
		label, y1, y2, changeText)

	return Invocation{Fig: fig, Message: msg, Kind: KindText}
}

// PlotStackedBar charts stacked breakdowns by major category, either one
// year by month or two years side by side. Any other parameter combination
// is reported, not raised.
func PlotStackedBar(ds *models.Dataset, f Filter) Invocation {
	mode := f.Mode
	if mode == "" {
		mode = "monthly"
	}

	var (
		records []models.ExpenseRecord
		period  func(r models.ExpenseRecord) string
		xLabel  string
		title   string
		msg     string
	)
	switch {
	case mode == "monthly" && f.Year != 0:
		records = byYear(ds.Records, f.Year)
		period = func(r models.ExpenseRecord) string { return r.Date.Format("2006-01") }
		xLabel = "Month"
		title = fmt.Sprintf("%d Breakdown (%s)", f.Year, ds.Currency)
		msg = fmt.Sprintf("Monthly stacked bar chart for %d has been generated.", f.Year)
	case mode == "yearly" && f.Year1 != 0 && f.Year2 != 0:
		for _, r := range ds.Records {
			if y := r.Date.Year(); y == f.Year1 || y == f.Year2 {
				records = append(records, r)
			}
		}
		period = func(r models.ExpenseRecord) string { return strconv.Itoa(r.Date.Year()) }
		xLabel = "Year"
		title = fmt.Sprintf("%d vs %d Breakdown (%s)", f.Year1, f.Year2, ds.Currency)
		msg = fmt.Sprintf("Yearly comparison stacked bar chart for %d vs %d has been generated.", f.Year1, f.Year2)
	default:
		return Invocation{Message: "Invalid parameters for stacked bar", Kind: KindText}
	}

	if len(records) == 0 {
		return Invocation{
			Message: "No data found for the requested stacked bar chart breakdown.",
			Kind:    KindText,
		}
	}

	sums := make(map[string]map[string]float64) // period -> major -> total
	majorSet := make(map[string]bool)
	for _, r := range records {
		p := period(r)
		if sums[p] == nil {
			sums[p] = make(map[string]float64)
		}
		sums[p][r.MajorCategory] += r.Expense
		majorSet[r.MajorCategory] = true
	}

	periods := make([]string, 0, len(sums))
	for p := range sums {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	majors := make([]string, 0, len(majorSet))
	for m := range majorSet {
		majors = append(majors, m)
	}
	sort.Strings(majors)

	series := make([]models.Series, 0, len(majors))
	for _, major := range majors {
		ys := make([]float64, len(periods))
		for i, p := range periods {
			ys[i] = sums[p][major]
		}
		series = append(series, models.Series{Name: major, X: periods, Y: ys})
	}

	if f.Title != "" {
		title = f.Title
	}
	fig := &models.Figure{
		Type:   models.FigureStackedBar,
		Title:  title,
		XLabel: xLabel,
		YLabel: "Expense",
		Series: series,
	}

	return Invocation{Fig: fig, Message: msg, Kind: KindText}
}

// CalculateSum totals the filtered subset. An empty subset returns an
// advisory message, never a numeric zero.
func CalculateSum(ds *models.Dataset, f Filter) Invocation {
	records := filterForAggregate(ds, f)
	if len(records) == 0 {
		return Invocation{
			Message: fmt.Sprintf("No transactions found for %s in %s.", f.searchLabel(), yearPeriod(f.Year)),
			Kind:    KindText,
		}
	}

	var total float64
	for _, r := range records {
		total += r.Expense
	}
	return Invocation{
		Message: fmt.Sprintf("Total %s in %s: %s%s (%d transactions)",
			f.searchLabel(), yearScope(f.Year), ds.Currency, formatMoney(total), len(records)),
		Kind: KindAlreadyPhrased,
	}
}

// CalculateAverage reports the mean of the filtered subset along with the
// median and sample standard deviation.
func CalculateAverage(ds *models.Dataset, f Filter) Invocation {
	records := filterForAggregate(ds, f)
	if len(records) == 0 {
		return Invocation{
			Message: fmt.Sprintf("No transactions found for %s calculation in %s.", f.searchLabel(), yearPeriod(f.Year)),
			Kind:    KindText,
		}
	}

	ys := make([]float64, len(records))
	for i, r := range records {
		ys[i] = r.Expense
	}
	return Invocation{
		Message: fmt.Sprintf("Average %s in %s: %s%s (median %s%s, std dev %s%s, %d transactions)",
			f.searchLabel(), yearScope(f.Year),
			ds.Currency, formatMoney(mean(ys)),
			ds.Currency, formatMoney(median(ys)),
			ds.Currency, formatMoney(stdDev(ys)),
			len(records)),
		Kind: KindAlreadyPhrased,
	}
}

func filterForAggregate(ds *models.Dataset, f Filter) []models.ExpenseRecord {
	records := ds.Records
	if f.Year != 0 {
		records = byYear(records, f.Year)
	}
	records = byCategory(records, f.Category, f.MajorCategory)
	if f.Remarks != "" {
		records = byRemarks(records, f.Remarks)
	}
	return records
}

// RunSignificanceTest compares spending between two years with Welch's
// unequal-variance t-test and reports the effect size as Cohen's d. Each
// year needs at least 2 observations or an advisory comes back instead.
func RunSignificanceTest(ds *models.Dataset, f Filter) Invocation {
	y1, y2 := f.Year1, f.Year2
	subset := func(year int) []float64 {
		records := byCategory(byYear(ds.Records, year), f.Category, f.MajorCategory)
		ys := make([]float64, len(records))
		for i, r := range records {
			ys[i] = r.Expense
		}
		return ys
	}

	s1, s2 := subset(y1), subset(y2)
	if len(s1) < 2 || len(s2) < 2 {
		return Invocation{
			Message: fmt.Sprintf("Insufficient data to compare %d and %d: need at least 2 transactions in each year.", y1, y2),
			Kind:    KindText,
		}
	}

	_, p := welchT(s1, s2)
	d := cohensD(s1, s2)

	sig := "not significant"
	if p < 0.05 {
		sig = "significant"
	}
	effect := "small"
	switch {
	case math.Abs(d) > 0.8:
		effect = "large"
	case math.Abs(d) > 0.5:
		effect = "medium"
	}

	return Invocation{
		Message: fmt.Sprintf("Avg %d: %s, Avg %d: %s | Difference is %s (p=%s) | Effect size is %s (d=%s)",
			y1, fmtRound(mean(s1), 2), y2, fmtRound(mean(s2), 2), sig, fmtRound(p, 4), effect, fmtRound(d, 2)),
		Kind: KindText,
	}
}

// RunCorrelation reports the Pearson correlation between two named columns
// over complete rows. Columns are the canonical dataset names; dates
// correlate through their epoch seconds.
func RunCorrelation(ds *models.Dataset, col1, col2 string) Invocation {
	xs, ok1 := columnValues(ds, col1)
	if !ok1 {
		return Invocation{
			Message: fmt.Sprintf("Cannot correlate '%s' and '%s': column '%s' is missing or not numeric.", col1, col2, col1),
			Kind:    KindText,
		}
	}
	ys, ok2 := columnValues(ds, col2)
	if !ok2 {
		return Invocation{
			Message: fmt.Sprintf("Cannot correlate '%s' and '%s': column '%s' is missing or not numeric.", col1, col2, col2),
			Kind:    KindText,
		}
	}

	// Drop incomplete rows before correlating
	var a, b []float64
	for i := range ds.Records {
		if xs[i].ok && ys[i].ok {
			a = append(a, xs[i].value)
			b = append(b, ys[i].value)
		}
	}
	if len(a) < 2 {
		return Invocation{
			Message: fmt.Sprintf("Cannot correlate '%s' and '%s': fewer than 2 complete rows.", col1, col2),
			Kind:    KindText,
		}
	}

	r := pearson(a, b)
	strength := "weak"
	switch {
	case math.Abs(r) > 0.7:
		strength = "strong"
	case math.Abs(r) > 0.4:
		strength = "moderate"
	}
	direction := "positive"
	if r < 0 {
		direction = "negative"
	}

	return Invocation{
		Message: fmt.Sprintf("Correlation between %s and %s: %s (%s %s)", col1, col2, fmtRound(r, 4), strength, direction),
		Kind:    KindText,
	}
}

type cell struct {
	value float64
	ok    bool
}

func columnValues(ds *models.Dataset, name string) ([]cell, bool) {
	cells := make([]cell, len(ds.Records))
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "expense":
		for i, r := range ds.Records {
			cells[i] = cell{value: r.Expense, ok: true}
		}
	case "date":
		for i, r := range ds.Records {
			cells[i] = cell{value: float64(r.Date.Unix()), ok: !r.Date.IsZero()}
		}
	default:
		return nil, false
	}
	return cells, true
}
