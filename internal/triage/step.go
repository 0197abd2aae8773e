package triage

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/llm"
	"github.com/teemow/mailresponder/internal/prompts"
)

// Default sampling temperatures per step.
const (
	DefaultClassifyTemperature = 0.0
	DefaultDraftTemperature    = 0.7
	DefaultRefineTemperature   = 0.5
)

// StepConfig configures one model-backed step.
type StepConfig struct {
	Client      llm.Client
	Prompts     *prompts.Set
	Model       string
	Temperature float64
	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
}

// step carries what every triage step shares.
type step struct {
	name        string
	client      llm.Client
	prompts     *prompts.Set
	model       string
	temperature float64
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

func newStep(name string, cfg StepConfig) (step, error) {
	set := cfg.Prompts
	if set == nil {
		var err error
		if set, err = prompts.Default(); err != nil {
			return step{}, err
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return step{
		name:        name,
		client:      cfg.Client,
		prompts:     set,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
		metrics:     cfg.Metrics,
	}, nil
}

// generate renders the named prompt and calls the model.
func (s step) generate(ctx context.Context, prompt string, data prompts.Data) (string, error) {
	text, err := s.prompts.Render(prompt, data)
	if err != nil {
		return "", err
	}
	return s.client.Generate(ctx, llm.Request{
		Model:       s.model,
		Prompt:      text,
		Temperature: s.temperature,
	})
}

// finish records the outcome of one step invocation.
func (s step) finish(ctx context.Context, span trace.Span, status string, err error, start time.Time) {
	s.metrics.RecordTriageStep(ctx, s.name, status, time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return
	}
	instrumentation.SetSpanSuccess(span)
}
