// Package interfaces defines service contracts for Kakei
package interfaces

import (
	"context"

	"github.com/bobmccarthy/kakei/internal/models"
)

// AnalyzerService answers natural-language questions about expense data
type AnalyzerService interface {
	// Analyze runs the full pipeline: normalize the dataset, synthesize an
	// analysis script, execute it in the sandbox and phrase the outcome.
	// Script runtime faults come back inside the response, not as an error;
	// the returned error covers validation and model-transport failures only.
	Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error)
}
