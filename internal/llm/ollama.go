package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/logging"
)

const (
	// DefaultTimeout bounds a single model call.
	DefaultTimeout = 2 * time.Minute

	// DefaultEmbedModel is used when no embedding model is configured.
	DefaultEmbedModel = "nomic-embed-text"
)

var (
	errEmptyResponse  = errors.New("empty response")
	errEmptyEmbedding = errors.New("no embedding returned")
)

// OllamaConfig configures the Ollama client.
type OllamaConfig struct {
	// Host is the server URL. When empty, OLLAMA_HOST is read from the
	// environment and the client has no timeout of its own.
	Host string

	// EmbedModel is the model used by Embed.
	EmbedModel string

	// Timeout is the HTTP client timeout (default: 2m).
	Timeout time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Ollama talks to an Ollama server. It implements Client and Embedder and is
// safe for concurrent use.
type Ollama struct {
	api        *api.Client
	embedModel string
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewOllama creates an Ollama client from the configuration.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	var (
		client *api.Client
		err    error
	)

	if cfg.Host == "" {
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client from environment: %w", err)
		}
	} else {
		base, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", cfg.Host, err)
		}
		if base.Scheme == "" || base.Host == "" {
			return nil, fmt.Errorf("invalid ollama host %q: scheme and host are required", cfg.Host)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = api.NewClient(base, &http.Client{Timeout: timeout})
	}

	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Ollama{
		api:        client,
		embedModel: embedModel,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Model returns the embedding model name.
func (o *Ollama) Model() string { return o.embedModel }

// Generate runs a non-streaming completion and returns the trimmed response.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	ctx, span := instrumentation.StartLLMSpan(ctx, instrumentation.LLMOperationGenerate, req.Model)
	defer span.End()
	start := time.Now()

	stream := false
	var out strings.Builder
	err := o.api.Generate(ctx, &api.GenerateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Stream:  &stream,
		Options: map[string]any{"temperature": req.Temperature},
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})

	text := strings.TrimSpace(out.String())
	if err == nil && text == "" {
		err = errEmptyResponse
	}

	o.record(ctx, instrumentation.LLMOperationGenerate, req.Model, err, time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return "", &ServiceError{Op: instrumentation.LLMOperationGenerate, Model: req.Model, Err: err}
	}
	instrumentation.SetSpanSuccess(span)
	return text, nil
}

// Embed returns the embedding of text using the configured embedding model.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := instrumentation.StartLLMSpan(ctx, instrumentation.LLMOperationEmbed, o.embedModel)
	defer span.End()
	start := time.Now()

	var vec []float32
	resp, err := o.api.Embed(ctx, &api.EmbedRequest{
		Model: o.embedModel,
		Input: text,
	})
	if err == nil {
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
			err = errEmptyEmbedding
		} else {
			vec = resp.Embeddings[0]
		}
	}

	o.record(ctx, instrumentation.LLMOperationEmbed, o.embedModel, err, time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, &ServiceError{Op: instrumentation.LLMOperationEmbed, Model: o.embedModel, Err: err}
	}
	instrumentation.SetSpanSuccess(span)
	return vec, nil
}

// Ping checks that the server is reachable.
func (o *Ollama) Ping(ctx context.Context) error {
	if err := o.api.Heartbeat(ctx); err != nil {
		return &ServiceError{Op: "heartbeat", Err: err}
	}
	return nil
}

func (o *Ollama) record(ctx context.Context, op, model string, err error, d time.Duration) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		o.logger.Debug("model call failed",
			logging.Operation(op), logging.Model(model), logging.Err(err))
	}
	o.metrics.RecordLLMRequest(ctx, op, model, status, d)
}
