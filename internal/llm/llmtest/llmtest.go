// Package llmtest provides in-process fakes of the llm interfaces for tests.
package llmtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/teemow/mailresponder/internal/llm"
)

// Dimensions of the vectors produced by Embedder.
const Dimensions = 64

// Embedder is a deterministic bag-of-words embedder: each lower-cased word is
// hashed into one of Dimensions buckets. Identical texts get identical
// vectors and texts sharing words are closer than unrelated ones.
type Embedder struct {
	ModelName string
	Err       error // returned by every Embed call when set

	mu    sync.Mutex
	calls []string
}

// Embed implements llm.Embedder.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	err := e.Err
	e.mu.Unlock()

	if err != nil {
		return nil, &llm.ServiceError{Op: "embed", Model: e.Model(), Err: err}
	}
	return BagOfWords(text), nil
}

// Model implements llm.Embedder.
func (e *Embedder) Model() string {
	if e.ModelName == "" {
		return "fake-embed"
	}
	return e.ModelName
}

// Calls returns the texts embedded so far.
func (e *Embedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// BagOfWords returns the normalised word-hash vector of text.
func BagOfWords(text string) []float32 {
	vec := make([]float32, Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%Dimensions]++
	}
	// A text without words still gets a usable vector.
	if len(words) == 0 {
		vec[0] = 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// Client is a scripted llm.Client. Responses are matched by the first key
// contained in the prompt; Default is used otherwise.
type Client struct {
	Responses map[string]string
	Default   string
	Err       error // returned by every Generate call when set

	mu       sync.Mutex
	requests []llm.Request
}

// Generate implements llm.Client.
func (c *Client) Generate(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.Err != nil {
		return "", &llm.ServiceError{Op: "generate", Model: req.Model, Err: c.Err}
	}
	for key, resp := range c.Responses {
		if strings.Contains(req.Prompt, key) {
			return resp, nil
		}
	}
	return c.Default, nil
}

// Requests returns the requests received so far.
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.requests...)
}
