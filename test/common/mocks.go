// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmccarthy/kakei/internal/interfaces"
	"github.com/bobmccarthy/kakei/internal/models"
)

// MockModelClient implements ModelClient for testing. Replies are returned
// in call order; a non-nil entry in Errs at the same index wins.
type MockModelClient struct {
	mu      sync.Mutex
	Replies []string
	Errs    []error
	Calls   []ModelCall
}

// ModelCall records one Chat invocation.
type ModelCall struct {
	Model    string
	Messages []interfaces.ChatMessage
	Options  map[string]any
}

// NewMockModelClient creates a mock model client with canned replies.
func NewMockModelClient(replies ...string) *MockModelClient {
	return &MockModelClient{Replies: replies}
}

func (m *MockModelClient) Chat(_ context.Context, model string, messages []interfaces.ChatMessage, options map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.Calls)
	m.Calls = append(m.Calls, ModelCall{Model: model, Messages: messages, Options: options})
	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return "", m.Errs[idx]
	}
	if idx < len(m.Replies) {
		return m.Replies[idx], nil
	}
	return "", fmt.Errorf("unexpected model call %d", idx)
}

// CallCount returns the number of Chat invocations so far.
func (m *MockModelClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// SampleExpenseRows generates a year of synthetic expense rows across four
// categories, one row per category per month.
func SampleExpenseRows(year int) []models.ExpenseRow {
	categories := []struct {
		name   string
		amount float64
	}{
		{"grocery", 4200},
		{"eating out", 1800},
		{"gym", 8000},
		{"electricity", 6500},
	}
	rows := make([]models.ExpenseRow, 0, 12*len(categories))
	for month := 1; month <= 12; month++ {
		for i, c := range categories {
			date := time.Date(year, time.Month(month), 5+3*i, 0, 0, 0, 0, time.UTC)
			rows = append(rows, models.ExpenseRow{
				Date:     models.FlexTime(date),
				Expense:  models.FlexFloat64(c.amount + float64(month*i)*10),
				Category: c.name,
				Remarks:  fmt.Sprintf("%s %d-%02d", c.name, year, month),
			})
		}
	}
	return rows
}
