package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mcpds/mcpds-setup/pkg/builder"
	"github.com/mcpds/mcpds-setup/pkg/config"
	"github.com/mcpds/mcpds-setup/pkg/provisioner"
)

// Outcome is how a stage ended.
type Outcome int

const (
	// Proceed means the stage did its work.
	Proceed Outcome = iota
	// Skip means there was nothing to do.
	Skip
	// Abort stops the pipeline.
	Abort
)

func (o Outcome) String() string {
	switch o {
	case Proceed:
		return "done"
	case Skip:
		return "skipped"
	case Abort:
		return "aborted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrAborted is the cause of an AbortError from a stage that returned Abort
// without an error.
var ErrAborted = errors.New("aborted")

// State is shared by the stages of one run.
type State struct {
	Paths    config.Paths
	Document provisioner.Document
	Artifact *builder.Artifact

	notes map[string]string
	stage string
}

// NewState creates the state for a run over paths.
func NewState(paths config.Paths) *State {
	return &State{
		Paths: paths,
		notes: make(map[string]string),
	}
}

// Note attaches a short detail to the running stage's report line.
func (s *State) Note(format string, args ...any) {
	s.notes[s.stage] = fmt.Sprintf(format, args...)
}

// Stage is one named step of the pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *State) (Outcome, error)
}

// AbortError reports the stage that stopped the pipeline.
type AbortError struct {
	Stage string
	Index int // 1-based
	Total int
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("stage %d/%d (%s): %v", e.Index, e.Total, e.Stage, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// StageResult is the report line of one stage.
type StageResult struct {
	Name     string
	Status   string
	Detail   string
	Duration time.Duration
}

// StatusNotRun marks stages after an abort.
const StatusNotRun = "not run"

// Report summarizes a pipeline run.
type Report struct {
	Stages []StageResult
}

// Pipeline runs stages in order, stopping at the first abort.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
	tracer trace.Tracer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTracer records one span per stage.
func WithTracer(tracer trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// NewPipeline creates a pipeline over stages.
func NewPipeline(logger *slog.Logger, stages []Stage, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		stages: stages,
		logger: logger,
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Execute runs every stage. It returns the report in all cases and an
// *AbortError when a stage aborted. Nothing is rolled back.
func (p *Pipeline) Execute(ctx context.Context, st *State) (*Report, error) {
	report := &Report{Stages: make([]StageResult, len(p.stages))}
	for i, s := range p.stages {
		report.Stages[i] = StageResult{Name: s.Name, Status: StatusNotRun}
	}

	ctx, runSpan := p.tracer.Start(ctx, "setup")
	defer runSpan.End()

	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return report, p.abort(runSpan, stage, i, err)
		}

		st.stage = stage.Name
		logger := p.logger.With("stage", stage.Name)
		logger.Debug("stage started", "step", fmt.Sprintf("%d/%d", i+1, len(p.stages)))

		stageCtx, span := p.tracer.Start(ctx, stage.Name, trace.WithAttributes(
			attribute.Int("stage.index", i+1),
		))
		start := time.Now()
		outcome, err := stage.Run(stageCtx, st)
		elapsed := time.Since(start)

		if err != nil {
			outcome = Abort
		} else if outcome == Abort {
			err = ErrAborted
		}

		span.SetAttributes(attribute.String("stage.outcome", outcome.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		report.Stages[i].Status = outcome.String()
		report.Stages[i].Detail = st.notes[stage.Name]
		report.Stages[i].Duration = elapsed

		if outcome == Abort {
			logger.Debug("stage aborted", "error", err, "duration", elapsed)
			return report, p.abort(runSpan, stage, i, err)
		}
		logger.Debug("stage finished", "outcome", outcome.String(), "duration", elapsed)
	}

	return report, nil
}

func (p *Pipeline) abort(span trace.Span, stage Stage, i int, err error) error {
	abortErr := &AbortError{
		Stage: stage.Name,
		Index: i + 1,
		Total: len(p.stages),
		Err:   err,
	}
	span.SetStatus(codes.Error, abortErr.Error())
	return abortErr
}
