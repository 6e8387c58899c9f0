package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmccarthy/kakei/internal/app"
	"github.com/bobmccarthy/kakei/internal/common"
	"github.com/bobmccarthy/kakei/internal/server"
	"github.com/bobmccarthy/kakei/internal/services/analyzer"
)

// Env is an in-process API server backed by a scripted model client. No
// model backend is contacted; every flow downstream of the model call runs
// for real.
type Env struct {
	t      *testing.T
	Model  *MockModelClient
	Server *httptest.Server
}

// NewEnv starts a test server whose model client returns the given replies
// in call order. The server is torn down with the test.
func NewEnv(t *testing.T, replies ...string) *Env {
	t.Helper()

	model := NewMockModelClient(replies...)
	a := &app.App{
		Config:      common.NewDefaultConfig(),
		Logger:      common.NewSilentLogger(),
		ModelClient: model,
		Analyzer:    analyzer.NewService(model, analyzer.NewSandbox(0, 0, nil), nil),
		StartupTime: time.Now(),
	}

	srv := server.NewServer(a)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &Env{t: t, Model: model, Server: ts}
}

// URL returns the base URL of the test server.
func (e *Env) URL() string {
	return e.Server.URL
}

// PostJSON marshals body and posts it to path, returning the response and
// its fully-read body.
func (e *Env) PostJSON(path string, body any) (*http.Response, []byte, error) {
	e.t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}
	resp, err := http.Post(e.Server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, data, nil
}

// Get issues a GET against path, returning the response and its fully-read
// body.
func (e *Env) Get(path string) (*http.Response, []byte, error) {
	e.t.Helper()

	resp, err := http.Get(e.Server.URL + path)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, data, nil
}
