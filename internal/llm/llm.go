package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single non-streaming generation request.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
}

// Client generates a completion for a prompt.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into a fixed-length vector. Model reports the
// embedding model so stored vectors can be matched to the model that
// produced them.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ServiceError reports a failure of the external model service: transport
// errors, non-2xx responses and empty or malformed replies.
type ServiceError struct {
	Op    string // generate or embed
	Model string
	Err   error
}

func (e *ServiceError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("llm %s (%s): %v", e.Op, e.Model, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsServiceError reports whether err is or wraps a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
