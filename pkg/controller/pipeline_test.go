package controller

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mcpds/mcpds-setup/pkg/config"
	"github.com/mcpds/mcpds-setup/pkg/logging"
)

func stage(name string, outcome Outcome, err error, ran *[]string) Stage {
	return Stage{
		Name: name,
		Run: func(_ context.Context, st *State) (Outcome, error) {
			*ran = append(*ran, name)
			st.Note("ran %s", name)
			return outcome, err
		},
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{Proceed, "done"},
		{Skip, "skipped"},
		{Abort, "aborted"},
		{Outcome(9), "outcome(9)"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPipeline_RunsAllStages(t *testing.T) {
	var ran []string
	p := NewPipeline(logging.NewDiscardLogger(), []Stage{
		stage("one", Proceed, nil, &ran),
		stage("two", Skip, nil, &ran),
		stage("three", Proceed, nil, &ran),
	})

	report, err := p.Execute(context.Background(), NewState(config.Paths{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(ran, ",") != "one,two,three" {
		t.Errorf("unexpected order: %v", ran)
	}

	want := map[string]string{"one": "done", "two": "skipped", "three": "done"}
	for name, status := range want {
		if got := report.Status(name); got != status {
			t.Errorf("status of %s = %q, want %q", name, got, status)
		}
	}
	if report.Stages[1].Detail != "ran two" {
		t.Errorf("expected note on stage two, got %q", report.Stages[1].Detail)
	}
}

func TestPipeline_StopsOnError(t *testing.T) {
	var ran []string
	cause := errors.New("uv is required to continue")
	p := NewPipeline(logging.NewDiscardLogger(), []Stage{
		stage("one", Proceed, nil, &ran),
		stage("two", Proceed, cause, &ran),
		stage("three", Proceed, nil, &ran),
	})

	report, err := p.Execute(context.Background(), NewState(config.Paths{}))

	var abortErr *AbortError
	if !errors.As(err, &abortErr) {
		t.Fatalf("expected AbortError, got %v", err)
	}
	if abortErr.Stage != "two" || abortErr.Index != 2 || abortErr.Total != 3 {
		t.Errorf("unexpected abort: %+v", abortErr)
	}
	if !errors.Is(err, cause) {
		t.Error("AbortError should wrap the stage error")
	}
	if err.Error() != "stage 2/3 (two): uv is required to continue" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if len(ran) != 2 {
		t.Errorf("stage three must not run, ran %v", ran)
	}
	if report.Status("two") != "aborted" || report.Status("three") != StatusNotRun {
		t.Errorf("unexpected report: %+v", report.Stages)
	}
}

func TestPipeline_AbortWithoutError(t *testing.T) {
	var ran []string
	p := NewPipeline(logging.NewDiscardLogger(), []Stage{
		stage("one", Abort, nil, &ran),
		stage("two", Proceed, nil, &ran),
	})

	_, err := p.Execute(context.Background(), NewState(config.Paths{}))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if len(ran) != 1 {
		t.Errorf("expected one stage to run, ran %v", ran)
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	var ran []string
	p := NewPipeline(logging.NewDiscardLogger(), []Stage{
		stage("one", Proceed, nil, &ran),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Execute(ctx, NewState(config.Paths{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(ran) != 0 {
		t.Errorf("no stage should run, ran %v", ran)
	}
}

func TestPipeline_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	var ran []string
	p := NewPipeline(logging.NewDiscardLogger(), []Stage{
		stage("one", Proceed, nil, &ran),
		stage("two", Proceed, errors.New("boom"), &ran),
	}, WithTracer(tp.Tracer("test")))

	_, _ = p.Execute(context.Background(), NewState(config.Paths{}))

	spans := recorder.Ended()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	if strings.Join(names, ",") != "one,two,setup" {
		t.Fatalf("unexpected spans: %v", names)
	}
	if len(spans[1].Events()) == 0 {
		t.Error("expected the failing stage to record its error")
	}
}

func TestPipeline_Stages(t *testing.T) {
	var ran []string
	p := NewPipeline(logging.NewDiscardLogger(), []Stage{
		stage("one", Proceed, nil, &ran),
		stage("two", Proceed, nil, &ran),
	})
	if got := strings.Join(p.Stages(), ","); got != "one,two" {
		t.Errorf("Stages() = %q", got)
	}
}

func TestReport_Render(t *testing.T) {
	report := &Report{Stages: []StageResult{
		{Name: "toolchain", Status: "skipped", Detail: "uv already installed"},
		{Name: "build", Status: StatusNotRun},
	}}

	var sb strings.Builder
	report.Render(&sb)
	out := sb.String()

	for _, want := range []string{"STAGE", "toolchain", "skipped", "uv already installed", "build", StatusNotRun} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q:\n%s", want, out)
		}
	}
}
