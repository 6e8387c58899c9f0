package analyzer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"time"

	"github.com/traefik/yaegi/interp"

	"github.com/bobmccarthy/kakei/internal/common"
	"github.com/bobmccarthy/kakei/internal/models"
	"github.com/bobmccarthy/kakei/internal/tools"
)

const (
	DefaultSandboxTimeout = 10 * time.Second
	memorySampleInterval  = 50 * time.Millisecond
)

var errMemoryBudget = errors.New("memory budget exceeded")

// sandboxPrelude dot-imports the bound symbols and declares the two output
// slots every script writes into.
const sandboxPrelude = `import . "analysis"

var result interface{}
var fig interface{}
`

// Sandbox executes synthesized scripts against a fixed symbol table: the
// request dataset as df, the eight analysis tools, the Filter type and the
// result/fig output slots. Scripts referencing anything else are rejected
// before execution. Each run gets a fresh interpreter, so nothing leaks
// between requests.
type Sandbox struct {
	timeout       time.Duration
	memoryLimitMB int
	logger        *common.Logger
}

// NewSandbox creates a sandbox with the given wall-clock and memory
// budgets. A zero memory limit disables the memory watchdog.
func NewSandbox(timeout time.Duration, memoryLimitMB int, logger *common.Logger) *Sandbox {
	if timeout <= 0 {
		timeout = DefaultSandboxTimeout
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Sandbox{
		timeout:       timeout,
		memoryLimitMB: memoryLimitMB,
		logger:        logger,
	}
}

// Outcome is what a script run left in the output slots, decoded into the
// summarizer's vocabulary.
type Outcome struct {
	Fig     *models.Figure
	FigText string // foreign value found in the fig slot, stringified
	Message string
	Kind    tools.ResultKind
}

// Run executes one script against the dataset. Every failure mode of the
// script itself (unresolved identifier, runtime fault, budget breach) comes
// back as an error; the caller reports those inside a normal response.
func (s *Sandbox) Run(ctx context.Context, ds *models.Dataset, code string) (*Outcome, error) {
	if code == "" {
		return nil, fmt.Errorf("the model returned an empty script")
	}

	i := interp.New(interp.Options{})
	if err := i.Use(toolExports(ds)); err != nil {
		return nil, fmt.Errorf("failed to bind analysis tools: %w", err)
	}
	if _, err := i.Eval(sandboxPrelude); err != nil {
		return nil, fmt.Errorf("failed to prepare execution scope: %w", err)
	}

	// Unresolved identifiers surface here, before anything runs
	prog, err := i.Compile(code)
	if err != nil {
		return nil, fmt.Errorf("script rejected: %v", err)
	}

	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, s.timeout)
	defer cancelTimeout()
	runCtx, cancelRun := context.WithCancelCause(timeoutCtx)
	defer cancelRun(nil)

	if s.memoryLimitMB > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go s.watchMemory(runCtx, stop, cancelRun)
	}

	start := time.Now()
	if err := s.execute(runCtx, i, prog); err != nil {
		switch cause := context.Cause(runCtx); {
		case errors.Is(cause, errMemoryBudget):
			return nil, fmt.Errorf("script exceeded the %dMB memory budget", s.memoryLimitMB)
		case errors.Is(cause, context.DeadlineExceeded):
			return nil, fmt.Errorf("script exceeded the %s execution budget", s.timeout)
		}
		return nil, err
	}
	s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("Script executed")

	resultVal, err := i.Eval("result")
	if err != nil {
		return nil, fmt.Errorf("failed to read the result slot: %w", err)
	}
	figVal, err := i.Eval("fig")
	if err != nil {
		return nil, fmt.Errorf("failed to read the fig slot: %w", err)
	}

	return decodeOutcome(slotValue(resultVal), slotValue(figVal)), nil
}

func (s *Sandbox) execute(ctx context.Context, i *interp.Interpreter, prog *interp.Program) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script panicked: %v", r)
		}
	}()
	_, err = i.ExecuteWithContext(ctx, prog)
	return err
}

// watchMemory samples heap growth and cancels the run when it outgrows the
// budget. Growth is measured against the heap at script start; concurrent
// requests can inflate the reading.
func (s *Sandbox) watchMemory(ctx context.Context, stop <-chan struct{}, cancel context.CancelCauseFunc) {
	var base runtime.MemStats
	runtime.ReadMemStats(&base)
	limit := uint64(s.memoryLimitMB) * 1024 * 1024

	ticker := time.NewTicker(memorySampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			var now runtime.MemStats
			runtime.ReadMemStats(&now)
			if now.HeapAlloc > base.HeapAlloc && now.HeapAlloc-base.HeapAlloc > limit {
				s.logger.Warn().
					Uint64("heap_growth", now.HeapAlloc-base.HeapAlloc).
					Int("limit_mb", s.memoryLimitMB).
					Msg("Script memory budget exceeded")
				cancel(errMemoryBudget)
				return
			}
		}
	}
}

// toolExports builds the complete symbol table for one request. The names
// are the script-facing API and never change without a prompt update.
func toolExports(ds *models.Dataset) interp.Exports {
	return interp.Exports{
		"analysis/analysis": {
			"df":                    reflect.ValueOf(ds),
			"Filter":                reflect.ValueOf((*tools.Filter)(nil)),
			"plot_time_series":      reflect.ValueOf(tools.PlotTimeSeries),
			"plot_pie_chart":        reflect.ValueOf(tools.PlotPieChart),
			"plot_comparison":       reflect.ValueOf(tools.PlotComparison),
			"plot_stacked_bar":      reflect.ValueOf(tools.PlotStackedBar),
			"calculate_sum":         reflect.ValueOf(tools.CalculateSum),
			"calculate_average":     reflect.ValueOf(tools.CalculateAverage),
			"run_significance_test": reflect.ValueOf(tools.RunSignificanceTest),
			"run_correlation":       reflect.ValueOf(tools.RunCorrelation),
		},
	}
}

// slotValue unwraps an output slot into its dynamic value, nil if unset.
func slotValue(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// decodeOutcome maps the raw slot values onto the response vocabulary. A
// tool invocation carries everything; primitives left by ad-hoc scripts are
// tagged by shape so the summarizer can still phrase them.
func decodeOutcome(result, fig any) *Outcome {
	out := &Outcome{Kind: tools.KindEmpty}

	switch v := result.(type) {
	case nil:
	case tools.Invocation:
		out.Fig = v.Fig
		out.Message = v.Message
		out.Kind = v.Kind
	case *tools.Invocation:
		if v != nil {
			out.Fig = v.Fig
			out.Message = v.Message
			out.Kind = v.Kind
		}
	case string:
		out.Message = v
		out.Kind = tools.KindText
	default:
		rv := reflect.ValueOf(result)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out.Message = strconv.FormatInt(rv.Int(), 10)
			out.Kind = tools.KindNumeric
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out.Message = strconv.FormatUint(rv.Uint(), 10)
			out.Kind = tools.KindNumeric
		case reflect.Float32, reflect.Float64:
			out.Message = strconv.FormatFloat(rv.Float(), 'f', -1, 64)
			out.Kind = tools.KindNumeric
		default:
			out.Message = fmt.Sprint(result)
			out.Kind = tools.KindText
		}
	}

	if out.Fig == nil && fig != nil {
		switch f := fig.(type) {
		case *models.Figure:
			out.Fig = f
		case models.Figure:
			out.Fig = &f
		default:
			out.FigText = fmt.Sprint(fig)
		}
	}

	return out
}
