package internal

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrymomot/storefront"

// Stage is one step of the request pipeline.
type Stage interface {
	Name() string
	Run(c Context) Outcome
}

type outcomeKind uint8

const (
	outcomeContinue outcomeKind = iota
	outcomeRespond
	outcomeFail
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeRespond:
		return "respond"
	case outcomeFail:
		return "fail"
	default:
		return "continue"
	}
}

// Outcome tells the pipeline whether to run the next stage.
type Outcome struct {
	err     error
	respond HandlerFunc
	reason  string
	class   ErrorClass
	kind    outcomeKind
}

// Continue passes control to the next stage.
func Continue() Outcome {
	return Outcome{kind: outcomeContinue}
}

// ContinueWith passes control to the next stage and records a note.
func ContinueWith(class ErrorClass, reason string) Outcome {
	return Outcome{kind: outcomeContinue, class: class, reason: reason}
}

// Respond stops the pipeline and lets h write the response.
func Respond(h HandlerFunc) Outcome {
	return Outcome{kind: outcomeRespond, respond: h}
}

// Fail stops the pipeline. err goes to the app's error handler.
func Fail(err error) Outcome {
	return Outcome{kind: outcomeFail, err: err, class: ClassOf(err)}
}

type stageFunc struct {
	fn   func(Context) Outcome
	name string
}

func (s stageFunc) Name() string          { return s.name }
func (s stageFunc) Run(c Context) Outcome { return s.fn(c) }

// StageFunc adapts a function into a Stage.
func StageFunc(name string, fn func(Context) Outcome) Stage {
	return stageFunc{name: name, fn: fn}
}

// StageError is a failure produced by a pipeline stage. It has already been logged.
type StageError struct {
	Err   error
	Stage string
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage that produced err, if any.
func FailedStage(err error) (string, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Pipeline runs an ordered list of stages in front of the route handlers.
type Pipeline struct {
	tracer  trace.Tracer
	metrics *Metrics
	stages  []Stage
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineMetrics records stage outcomes and durations.
func WithPipelineMetrics(m *Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// NewPipeline creates a pipeline that runs stages in order.
func NewPipeline(stages []Stage, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		stages: stages,
		tracer: otel.Tracer(tracerName),
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
		names[i] = s.Name()
	}
	return names
}

// Middleware runs the stages and then next. The first non-continue outcome ends the chain.
func (p *Pipeline) Middleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			st := stateFrom(c.Context())
			if st == nil {
				st = &requestState{}
				c.Set(stateKey{}, st)
			}
			defer st.runCleanup()

			for _, s := range p.stages {
				out := p.run(c, st, s)
				switch out.kind {
				case outcomeRespond:
					return out.respond(c)
				case outcomeFail:
					return &StageError{Stage: s.Name(), Err: out.err}
				}
			}

			if err := next(c); err != nil {
				return err
			}
			if !c.Written() {
				// Commit an empty response so the write hooks still run.
				c.ResponseWriter().WriteHeader(200)
			}
			return nil
		}
	}
}

func (p *Pipeline) run(c Context, st *requestState, s Stage) Outcome {
	parent := c.Context()
	ctx, span := p.tracer.Start(parent, "pipeline."+s.Name(),
		trace.WithAttributes(attribute.String("pipeline.stage", s.Name())))
	c.SetContext(ctx)

	start := time.Now()
	out := s.Run(c)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.String("pipeline.outcome", out.kind.String()))
	if out.class != ClassNone {
		span.SetAttributes(attribute.String("pipeline.class", string(out.class)))
	}
	if out.kind == outcomeFail {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, string(out.class))
	}
	span.End()
	c.SetContext(parent)

	p.metrics.observe(s.Name(), out.kind, out.class, elapsed)
	p.log(c, s.Name(), out)
	return out
}

func (p *Pipeline) log(c Context, stage string, out Outcome) {
	attrs := []any{slog.String("stage", stage), slog.String("class", string(out.class))}

	switch {
	case out.kind == outcomeFail && out.class == ClassValidation:
		c.LogWarn("request rejected", append(attrs, slog.Int("status", StatusOf(out.err)), slog.Any("error", out.err))...)
	case out.kind == outcomeFail:
		c.LogError("request failed", append(attrs, slog.Int("status", StatusOf(out.err)), slog.Any("error", out.err))...)
	case out.class == ClassValidation:
		c.LogWarn(out.reason, attrs...)
	case out.class == ClassBenign:
		c.LogDebug(out.reason, attrs...)
	}
}
