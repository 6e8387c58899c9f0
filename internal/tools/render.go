package tools

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmccarthy/kakei/internal/models"
)

var palette = []drawing.Color{
	drawing.ColorFromHex("4C78A8"),
	drawing.ColorFromHex("F58518"),
	drawing.ColorFromHex("54A24B"),
	drawing.ColorFromHex("E45756"),
	drawing.ColorFromHex("72B7B2"),
	drawing.ColorFromHex("EECA3B"),
	drawing.ColorFromHex("B279A2"),
	drawing.ColorFromHex("FF9DA6"),
	drawing.ColorFromHex("9D755D"),
	drawing.ColorFromHex("BAB0AC"),
}

func seriesColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

// RenderPNG rasterizes a figure description into a PNG image.
func RenderPNG(fig *models.Figure, width, height int) ([]byte, error) {
	if fig == nil {
		return nil, fmt.Errorf("no figure to render")
	}
	if len(fig.Series) == 0 {
		return nil, fmt.Errorf("figure %q has no series", fig.Title)
	}
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 512
	}

	switch fig.Type {
	case models.FigureBar:
		return renderBar(fig, width, height)
	case models.FigureLine:
		return renderLine(fig, width, height)
	case models.FigurePie:
		return renderPie(fig, width, height)
	case models.FigureScatter:
		return renderScatter(fig, width, height)
	case models.FigureStackedBar:
		return renderStackedBar(fig, width, height)
	default:
		return nil, fmt.Errorf("unsupported figure type %q", fig.Type)
	}
}

func renderBar(fig *models.Figure, width, height int) ([]byte, error) {
	s := fig.Series[0]
	bars := make([]chart.Value, len(s.Y))
	for i, v := range s.Y {
		label := ""
		if i < len(s.X) {
			label = s.X[i]
		}
		bars[i] = chart.Value{Label: label, Value: v, Style: chart.Style{
			FillColor:   seriesColor(0),
			StrokeColor: seriesColor(0),
		}}
	}

	graph := chart.BarChart{
		Title:    fig.Title,
		Width:    width,
		Height:   height,
		BarWidth: barWidth(width, len(bars)),
		XAxis:    chart.Style{FontSize: 8, TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:  fig.YLabel,
			Style: chart.Style{FontSize: 9},
		},
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		Bars:       bars,
	}
	return renderToPNG(&graph)
}

func barWidth(width, n int) int {
	if n == 0 {
		return 20
	}
	w := (width - 100) / (2 * n)
	if w < 4 {
		w = 4
	}
	if w > 60 {
		w = 60
	}
	return w
}

func renderLine(fig *models.Figure, width, height int) ([]byte, error) {
	series := make([]chart.Series, 0, len(fig.Series))
	for i, s := range fig.Series {
		times, ok := parseDates(s.X)
		style := chart.Style{
			StrokeColor: seriesColor(i),
			StrokeWidth: 2,
		}
		if ok {
			series = append(series, chart.TimeSeries{
				Name:    s.Name,
				XValues: times,
				YValues: s.Y,
				Style:   style,
			})
			continue
		}
		// Non-date x values degrade to ordinal positions
		xs := make([]float64, len(s.Y))
		for j := range xs {
			xs[j] = float64(j)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: s.Y,
			Style:   style,
		})
	}

	graph := chart.Chart{
		Title:  fig.Title,
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:  fig.XLabel,
			Style: chart.Style{FontSize: 9},
		},
		YAxis: chart.YAxis{
			Name:  fig.YLabel,
			Style: chart.Style{FontSize: 9},
		},
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		Series:     series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderToPNG(&graph)
}

func renderPie(fig *models.Figure, width, height int) ([]byte, error) {
	s := fig.Series[0]
	values := make([]chart.Value, 0, len(s.Y))
	for i, v := range s.Y {
		if v <= 0 {
			continue // pie slices must carry positive weight
		}
		label := ""
		if i < len(s.Labels) {
			label = s.Labels[i]
		}
		if i < len(s.Percents) {
			label = fmt.Sprintf("%s (%.1f%%)", label, s.Percents[i])
		}
		values = append(values, chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{
				FillColor:   seriesColor(i),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
				FontSize:    9,
			},
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("pie figure %q has no positive values", fig.Title)
	}

	graph := chart.PieChart{
		Title:      fig.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 30, Left: 10, Right: 10, Bottom: 10}},
		Values:     values,
	}
	return renderToPNG(&graph)
}

func renderScatter(fig *models.Figure, width, height int) ([]byte, error) {
	series := make([]chart.Series, 0, 2*len(fig.Series))
	for i, s := range fig.Series {
		times, ok := parseDates(s.X)
		dotStyle := chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    4,
			DotColor:    seriesColor(i),
		}
		if ok {
			series = append(series, chart.TimeSeries{
				Name:    s.Name,
				XValues: times,
				YValues: s.Y,
				Style:   dotStyle,
			})
			if s.HasMean && len(times) > 0 {
				series = append(series, chart.TimeSeries{
					Name:    fmt.Sprintf("%s mean", s.Name),
					XValues: []time.Time{times[0], times[len(times)-1]},
					YValues: []float64{s.Mean, s.Mean},
					Style: chart.Style{
						StrokeColor:     seriesColor(i),
						StrokeWidth:     1.5,
						StrokeDashArray: []float64{4, 3},
					},
				})
			}
			continue
		}
		xs := make([]float64, len(s.Y))
		for j := range xs {
			xs[j] = float64(j)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: s.Y,
			Style:   dotStyle,
		})
	}

	graph := chart.Chart{
		Title:  fig.Title,
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:  fig.XLabel,
			Style: chart.Style{FontSize: 9},
		},
		YAxis: chart.YAxis{
			Name:  fig.YLabel,
			Style: chart.Style{FontSize: 9},
		},
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		Series:     series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderToPNG(&graph)
}

func renderStackedBar(fig *models.Figure, width, height int) ([]byte, error) {
	// Series arrive one per segment name with values aligned to the shared
	// x periods; the chart wants one bar per period instead.
	periods := fig.Series[0].X
	bars := make([]chart.StackedBar, 0, len(periods))
	for i, p := range periods {
		values := make([]chart.Value, 0, len(fig.Series))
		for j, s := range fig.Series {
			if i >= len(s.Y) || s.Y[i] <= 0 {
				continue
			}
			values = append(values, chart.Value{
				Label: s.Name,
				Value: s.Y[i],
				Style: chart.Style{
					FillColor:   seriesColor(j),
					StrokeColor: seriesColor(j),
					FontSize:    8,
				},
			})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: p, Values: values})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("stacked bar figure %q has no positive values", fig.Title)
	}

	graph := chart.StackedBarChart{
		Title:      fig.Title,
		Width:      width,
		Height:     height,
		XAxis:      chart.Style{FontSize: 8},
		YAxis:      chart.Style{FontSize: 9},
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		BarSpacing: 20,
		Bars:       bars,
	}
	return renderToPNG(&graph)
}

func parseDates(xs []string) ([]time.Time, bool) {
	if len(xs) == 0 {
		return nil, false
	}
	times := make([]time.Time, len(xs))
	for i, x := range xs {
		t, err := time.Parse("2006-01-02", x)
		if err != nil {
			return nil, false
		}
		times[i] = t
	}
	return times, true
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func renderToPNG(graph renderable) ([]byte, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
