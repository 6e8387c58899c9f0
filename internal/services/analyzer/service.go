// Package analyzer implements the question-to-answer expense analysis
// pipeline: prompt assembly, script synthesis, sandboxed execution and
// result phrasing.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmccarthy/kakei/internal/common"
	"github.com/bobmccarthy/kakei/internal/interfaces"
	"github.com/bobmccarthy/kakei/internal/models"
	"github.com/bobmccarthy/kakei/internal/tools"
)

// Service-level failures, distinct from script faults reported inside the
// response body.
var (
	ErrInvalidRequest = errors.New("invalid analyze request")
	ErrModelTransport = errors.New("model request failed")
)

// Service orchestrates one analysis request end to end.
type Service struct {
	client  interfaces.ModelClient
	sandbox *Sandbox
	logger  *common.Logger
	now     func() time.Time
}

var _ interfaces.AnalyzerService = (*Service)(nil)

// NewService creates an analyzer service backed by the given model client
// and sandbox.
func NewService(client interfaces.ModelClient, sandbox *Sandbox, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		client:  client,
		sandbox: sandbox,
		logger:  logger,
		now:     time.Now,
	}
}

// Analyze materializes the dataset, synthesizes a script, executes it and
// phrases the outcome. Script faults come back inside the response with the
// attempted code; only validation and model-transport failures return an
// error.
func (s *Service) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	s.logger.Info().
		Str("model", req.Model).
		Int("rows", len(req.Data)).
		Msg("New analysis request")
	s.logger.Debug().Str("prompt", req.Prompt).Msg("User prompt")

	ds := models.NewDataset(req.Data, req.Currency)

	system := buildAnalysisPrompt(req.Metadata, req.Prompt, s.now())
	reply, err := s.client.Chat(ctx, req.Model, []interfaces.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: req.Prompt},
	}, req.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelTransport, err)
	}

	code := extractCode(reply)
	s.logger.Debug().Str("code", code).Msg("Synthesized script")

	outcome, err := s.sandbox.Run(ctx, ds, code)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Script execution failed")
		return &models.AnalyzeResponse{
			Error: fmt.Sprintf("Execution error: %v", err),
			Code:  code,
		}, nil
	}

	resp := &models.AnalyzeResponse{Code: code}
	if outcome.Fig != nil {
		figJSON, err := outcome.Fig.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize figure: %w", err)
		}
		resp.Fig = figJSON
	} else if outcome.FigText != "" {
		resp.Fig = outcome.FigText
	}

	result, err := s.phraseResult(ctx, req, outcome, resp.Fig != "")
	if err != nil {
		return nil, err
	}
	resp.Result = result

	s.logger.Info().Bool("has_fig", resp.Fig != "").Msg("Analysis complete")
	return resp, nil
}

// phraseResult applies the summarization decision: a second model call only
// when no chart was produced, a result exists and the tool did not already
// phrase it as a sentence.
func (s *Service) phraseResult(ctx context.Context, req *models.AnalyzeRequest, outcome *Outcome, hasFig bool) (string, error) {
	summarize := !hasFig &&
		outcome.Kind != tools.KindEmpty &&
		outcome.Kind != tools.KindAlreadyPhrased

	if !summarize {
		if outcome.Message == "" {
			return "Analysis complete.", nil
		}
		return outcome.Message, nil
	}

	s.logger.Debug().Str("model", req.SummaryModel()).Msg("Requesting natural language summary")
	summary, err := s.client.Chat(ctx, req.SummaryModel(), []interfaces.ChatMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: buildSummaryUser(req.Prompt, outcome.Message)},
	}, req.Options)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelTransport, err)
	}

	return strings.TrimSpace(summary), nil
}
