package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Result statuses.
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Result represents the result of a single operation in a batch
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Degraded   int      `json:"degraded"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// degrader is implemented by values that can carry a fallback outcome.
type degrader interface {
	Degraded() bool
}

// ParseStringOrArray parses a parameter that can be either a single string,
// an array of strings, or a string holding a JSON array of strings
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		// Some clients send arrays as JSON text.
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err == nil {
				if len(arr) == 0 {
					return nil, fmt.Errorf("%s cannot be empty", paramName)
				}
				return ParseStringOrArray(toInterfaces(arr), paramName)
			}
		}
		result = []string{v}
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	case []string:
		return ParseStringOrArray(toInterfaces(v), paramName)
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// Summarize aggregates per-item results.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}

	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			br.Successful++
		case StatusDegraded:
			br.Degraded++
		default:
			br.Failed++
		}
	}
	return br
}

// FormatResults creates a formatted JSON string from batch results
func FormatResults(results []Result) string {
	jsonBytes, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(jsonBytes)
}

// ProcessBatch executes fn on each id in order and collects results. A
// value reporting Degraded() is recorded with StatusDegraded. Once ctx is
// done the remaining ids are recorded as errors without calling fn.
func ProcessBatch(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (any, error)) []Result {
	results := make([]Result, 0, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, NewErrorResult(id, err))
			continue
		}

		res, err := fn(ctx, id)
		switch {
		case err != nil:
			results = append(results, NewErrorResult(id, err))
		case isDegraded(res):
			results = append(results, Result{ID: id, Status: StatusDegraded, Result: res})
		default:
			results = append(results, NewSuccessResult(id, res))
		}
	}

	return results
}

func isDegraded(v any) bool {
	d, ok := v.(degrader)
	return ok && d.Degraded()
}

// NewSuccessResult creates a success result
func NewSuccessResult(id string, value any) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: value,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
	}
}
