// Package models defines data structures for Kakei
package models

import "encoding/json"

// FigureType identifies the rendering family for a figure document.
type FigureType string

const (
	FigureBar        FigureType = "bar"
	FigureLine       FigureType = "line"
	FigurePie        FigureType = "pie"
	FigureScatter    FigureType = "scatter"
	FigureStackedBar FigureType = "stacked_bar"
)

// Figure is the transportable chart document produced by the analysis
// tools. It serializes to a plain JSON document the client can render with
// any charting library, and the render endpoint can rasterize to PNG.
type Figure struct {
	Type   FigureType `json:"type"`
	Title  string     `json:"title"`
	XLabel string     `json:"x_label,omitempty"`
	YLabel string     `json:"y_label,omitempty"`
	Series []Series   `json:"series"`
}

// Series is one named sequence within a figure. Bar, line and scatter
// series pair X with Y; pie series pair Labels with Y and carry slice
// Percents. A comparison series additionally carries a Mean marker.
type Series struct {
	Name     string    `json:"name,omitempty"`
	X        []string  `json:"x,omitempty"` // ISO dates or period labels
	Y        []float64 `json:"y"`
	Labels   []string  `json:"labels,omitempty"`
	Percents []float64 `json:"percents,omitempty"`
	Mean     float64   `json:"mean,omitempty"`
	HasMean  bool      `json:"has_mean,omitempty"`
}

// ToJSON serializes the figure to its canonical document form.
func (f *Figure) ToJSON() (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FigureFromJSON parses a serialized figure document.
func FigureFromJSON(data []byte) (*Figure, error) {
	var fig Figure
	if err := json.Unmarshal(data, &fig); err != nil {
		return nil, err
	}
	return &fig, nil
}
