// Package models defines data structures for Kakei
package models

import "fmt"

// AnalyzeRequest is the inbound payload for a natural-language analysis.
type AnalyzeRequest struct {
	Data      []ExpenseRow   `json:"data"`
	Prompt    string         `json:"prompt"`
	Model     string         `json:"model"`                // code-generation model id
	ChatModel string         `json:"chat_model,omitempty"` // summarization model id, falls back to Model
	Metadata  string         `json:"metadata,omitempty"`   // textual dataset description for the prompt
	Currency  string         `json:"currency,omitempty"`   // display symbol, defaults to "¥"
	Options   map[string]any `json:"options,omitempty"`    // opaque decode parameters passed to the model
}

// Validate checks the fields required before any model call is made.
func (r *AnalyzeRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("request body is required")
	}
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if r.Data == nil {
		return fmt.Errorf("data is required")
	}
	return nil
}

// SummaryModel returns the model id to use for result summarization.
func (r *AnalyzeRequest) SummaryModel() string {
	if r.ChatModel != "" {
		return r.ChatModel
	}
	return r.Model
}

// AnalyzeResponse is the outbound analysis result. Code is populated
// whenever synthesis succeeded, independent of execution outcome; Error is
// set for script runtime faults while the HTTP request itself still
// succeeds.
type AnalyzeResponse struct {
	Result string `json:"result,omitempty"`
	Fig    string `json:"fig,omitempty"` // serialized figure document
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}
