package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmccarthy/kakei/internal/interfaces"
	"github.com/bobmccarthy/kakei/internal/models"
)

// --- Mock Model Client ---

type modelCall struct {
	Model    string
	Messages []interfaces.ChatMessage
	Options  map[string]any
}

type mockModelClient struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   []modelCall
}

func (m *mockModelClient) Chat(_ context.Context, model string, messages []interfaces.ChatMessage, options map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.calls)
	m.calls = append(m.calls, modelCall{Model: model, Messages: messages, Options: options})
	if idx < len(m.errs) && m.errs[idx] != nil {
		return "", m.errs[idx]
	}
	if idx < len(m.replies) {
		return m.replies[idx], nil
	}
	return "", fmt.Errorf("unexpected model call %d", idx)
}

func (m *mockModelClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// --- Fixtures ---

func testRows() []models.ExpenseRow {
	return []models.ExpenseRow{
		{Date: models.FlexTime(time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)), Expense: 1000, Category: "grocery"},
		{Date: models.FlexTime(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), Expense: 8000, Category: "gym"},
	}
}

func analyzeRequest(prompt string) *models.AnalyzeRequest {
	return &models.AnalyzeRequest{
		Data:   testRows(),
		Prompt: prompt,
		Model:  "code-model",
	}
}

func newTestService(client *mockModelClient) *Service {
	return NewService(client, NewSandbox(0, 0, nil), nil)
}

// --- Tests ---

func TestAnalyzeSumFlow(t *testing.T) {
	client := &mockModelClient{replies: []string{
		"```go\nresult = calculate_sum(df, Filter{MajorCategory: \"Food\", Year: 2023})\n```",
	}}
	svc := newTestService(client)

	req := analyzeRequest("total grocery spend in 2023")
	req.Options = map[string]any{"temperature": 0.1}

	resp, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if resp.Result != "Total Food in 2023: ¥1,000.00 (1 transactions)" {
		t.Errorf("result = %q", resp.Result)
	}
	if resp.Code != `result = calculate_sum(df, Filter{MajorCategory: "Food", Year: 2023})` {
		t.Errorf("code = %q", resp.Code)
	}
	if resp.Error != "" || resp.Fig != "" {
		t.Errorf("unexpected error/fig: %q / %q", resp.Error, resp.Fig)
	}
	if client.callCount() != 1 {
		t.Errorf("summarizer should be skipped for a phrased total, got %d model calls", client.callCount())
	}

	call := client.calls[0]
	if call.Model != "code-model" {
		t.Errorf("synthesis model = %q", call.Model)
	}
	if len(call.Messages) != 2 || call.Messages[0].Role != "system" || call.Messages[1].Role != "user" {
		t.Fatalf("unexpected message shape: %+v", call.Messages)
	}
	if !strings.Contains(call.Messages[0].Content, "Current date:") {
		t.Error("system prompt missing the current date")
	}
	if call.Messages[1].Content != "total grocery spend in 2023" {
		t.Errorf("user turn = %q", call.Messages[1].Content)
	}
	if call.Options["temperature"] != 0.1 {
		t.Errorf("options not forwarded: %v", call.Options)
	}
}

func TestAnalyzeChartFlowBypassesSummarizer(t *testing.T) {
	client := &mockModelClient{replies: []string{
		"```go\nresult = plot_stacked_bar(df, Filter{Year: 2023})\n```",
	}}
	svc := newTestService(client)

	resp, err := svc.Analyze(context.Background(), analyzeRequest("show me monthly spending in 2023"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if resp.Result != "Monthly stacked bar chart for 2023 has been generated." {
		t.Errorf("result = %q", resp.Result)
	}
	if resp.Fig == "" {
		t.Fatal("expected a serialized figure")
	}
	fig, err := models.FigureFromJSON([]byte(resp.Fig))
	if err != nil {
		t.Fatalf("fig does not parse: %v", err)
	}
	if fig.Type != models.FigureStackedBar {
		t.Errorf("figure type = %q", fig.Type)
	}
	if client.callCount() != 1 {
		t.Errorf("chart responses must bypass summarization, got %d model calls", client.callCount())
	}
}

func TestAnalyzeAdvisorySummarized(t *testing.T) {
	client := &mockModelClient{replies: []string{
		"```go\nresult = calculate_sum(df, Filter{Category: \"sushi\", Year: 1999})\n```",
		"  You have no recorded sushi spending in 1999.  ",
	}}
	svc := newTestService(client)

	req := analyzeRequest("how much did I spend on sushi in 1999")
	req.ChatModel = "chat-model"

	resp, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if resp.Result != "You have no recorded sushi spending in 1999." {
		t.Errorf("result = %q", resp.Result)
	}
	if client.callCount() != 2 {
		t.Fatalf("expected a summarization call, got %d model calls", client.callCount())
	}

	summary := client.calls[1]
	if summary.Model != "chat-model" {
		t.Errorf("summary model = %q, want the configured chat model", summary.Model)
	}
	user := summary.Messages[len(summary.Messages)-1].Content
	if !strings.Contains(user, "Question: how much did I spend on sushi in 1999") {
		t.Errorf("summary turn missing the question: %q", user)
	}
	if !strings.Contains(user, "Result: No transactions found for sushi in 1999.") {
		t.Errorf("summary turn missing the tool result: %q", user)
	}
}

func TestAnalyzeNumericResultSummarized(t *testing.T) {
	client := &mockModelClient{replies: []string{
		"```go\nresult = df.Len()\n```",
		"You have 2 recorded transactions.",
	}}
	svc := newTestService(client)

	resp, err := svc.Analyze(context.Background(), analyzeRequest("how many transactions do I have"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if resp.Result != "You have 2 recorded transactions." {
		t.Errorf("result = %q", resp.Result)
	}
	if client.callCount() != 2 {
		t.Errorf("bare numbers should be summarized, got %d model calls", client.callCount())
	}
	// Without a chat model the summary reuses the code model
	if client.calls[1].Model != "code-model" {
		t.Errorf("summary model = %q", client.calls[1].Model)
	}
}

func TestAnalyzeExecutionErrorPopulatesResponse(t *testing.T) {
	client := &mockModelClient{replies: []string{
		"```go\nresult = undefined_tool(df)\n```",
	}}
	svc := newTestService(client)

	resp, err := svc.Analyze(context.Background(), analyzeRequest("do something impossible"))
	if err != nil {
		t.Fatalf("execution faults must not fail the request: %v", err)
	}

	if !strings.HasPrefix(resp.Error, "Execution error:") {
		t.Errorf("error = %q", resp.Error)
	}
	if !strings.Contains(resp.Error, "script rejected") {
		t.Errorf("expected the rejection reason, got %q", resp.Error)
	}
	if resp.Code != "result = undefined_tool(df)" {
		t.Errorf("code = %q", resp.Code)
	}
	if resp.Result != "" || resp.Fig != "" {
		t.Errorf("result/fig must stay empty on execution errors: %q / %q", resp.Result, resp.Fig)
	}
}

func TestAnalyzeEmptyReplyBecomesExecutionError(t *testing.T) {
	client := &mockModelClient{replies: []string{""}}
	svc := newTestService(client)

	resp, err := svc.Analyze(context.Background(), analyzeRequest("anything"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !strings.Contains(resp.Error, "empty script") {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestAnalyzeForeignFigValue(t *testing.T) {
	client := &mockModelClient{replies: []string{
		"```go\nfig = \"custom-chart\"\n```",
	}}
	svc := newTestService(client)

	resp, err := svc.Analyze(context.Background(), analyzeRequest("draw me something odd"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if resp.Fig != "custom-chart" {
		t.Errorf("fig = %q", resp.Fig)
	}
	if resp.Result != "Analysis complete." {
		t.Errorf("result = %q", resp.Result)
	}
	if client.callCount() != 1 {
		t.Errorf("unexpected summarization, got %d model calls", client.callCount())
	}
}

func TestAnalyzeValidationFailures(t *testing.T) {
	client := &mockModelClient{}
	svc := newTestService(client)

	tests := []struct {
		name string
		req  *models.AnalyzeRequest
	}{
		{"missing model", &models.AnalyzeRequest{Data: testRows(), Prompt: "hi"}},
		{"missing data", &models.AnalyzeRequest{Model: "m", Prompt: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
	if client.callCount() != 0 {
		t.Errorf("validation failures must precede model calls, got %d", client.callCount())
	}
}

func TestAnalyzeModelTransportError(t *testing.T) {
	client := &mockModelClient{errs: []error{errors.New("connection refused")}}
	svc := newTestService(client)

	_, err := svc.Analyze(context.Background(), analyzeRequest("total spend"))
	if !errors.Is(err, ErrModelTransport) {
		t.Fatalf("expected ErrModelTransport, got %v", err)
	}
}

func TestAnalyzeSummaryTransportError(t *testing.T) {
	client := &mockModelClient{
		replies: []string{"```go\nresult = calculate_sum(df, Filter{Category: \"sushi\"})\n```"},
		errs:    []error{nil, errors.New("model went away")},
	}
	svc := newTestService(client)

	_, err := svc.Analyze(context.Background(), analyzeRequest("sushi spend"))
	if !errors.Is(err, ErrModelTransport) {
		t.Fatalf("expected ErrModelTransport from the summary call, got %v", err)
	}
}
