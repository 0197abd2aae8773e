package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// DefaultSamplePath is where the static fallback message set lives.
const DefaultSamplePath = "data/sample_emails.json"

// SampleSource reads a fixed message set from a JSON file.
type SampleSource struct {
	path string
}

// NewSampleSource creates a SampleSource reading path.
func NewSampleSource(path string) *SampleSource {
	if path == "" {
		path = DefaultSamplePath
	}
	return &SampleSource{path: path}
}

// Name implements Source.
func (s *SampleSource) Name() string { return "sample" }

// Path returns the file the source reads.
func (s *SampleSource) Path() string { return s.path }

// Fetch implements Source.
func (s *SampleSource) Fetch(_ context.Context) ([]Message, error) {
	return readMessagesFile(s.path)
}

func readMessagesFile(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	valid := msgs[:0]
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		valid = append(valid, m)
	}
	return valid, nil
}
