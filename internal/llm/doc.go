// Package llm provides the language model and embedding clients used by the
// triage steps.
//
// Client generates text from a prompt, Embedder turns text into a vector.
// Ollama implements both against a local or remote Ollama server. Every
// failure is returned as a *ServiceError so callers can distinguish an
// unavailable model service from a storage problem.
package llm
