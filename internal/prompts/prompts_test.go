package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_RendersAllSteps(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	data := Data{Email: "Can we meet tomorrow?", Feedback: "Past: be brief", Draft: "Sure."}

	classify, err := set.Render(Classify, data)
	require.NoError(t, err)
	assert.Contains(t, classify, "Can we meet tomorrow?")
	assert.Contains(t, classify, "URGENT")

	draft, err := set.Render(Draft, data)
	require.NoError(t, err)
	assert.Contains(t, draft, "Past: be brief")
	assert.Contains(t, draft, "Can we meet tomorrow?")

	refine, err := set.Render(Refine, data)
	require.NoError(t, err)
	assert.Contains(t, refine, "Sure.")
	assert.Contains(t, refine, "Past: be brief")
}

func TestParse_PartialOverride(t *testing.T) {
	set, err := Parse([]byte("draft: \"Write back to: {{.Email}} using {{.Feedback}}\"\n"))
	require.NoError(t, err)

	draft, err := set.Render(Draft, Data{Email: "hi", Feedback: "None"})
	require.NoError(t, err)
	assert.Equal(t, "Write back to: hi using None", draft)

	classify, err := set.Render(Classify, Data{Email: "hi"})
	require.NoError(t, err)
	assert.Contains(t, classify, "SPAM", "steps missing from the file keep the built-in template")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "classify: [unterminated"},
		{"invalid template", "refine: \"{{.Draft\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRender_UnknownFieldAndPrompt(t *testing.T) {
	set, err := Parse([]byte("classify: \"{{.Subject}}\"\n"))
	require.NoError(t, err)

	_, err = set.Render(Classify, Data{})
	assert.Error(t, err, "templates may only reference known fields")

	_, err = set.Render("summarize", Data{})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classify: \"label: {{.Email}}\"\n"), 0o600))

	set, err := Load(path)
	require.NoError(t, err)
	out, err := set.Render(Classify, Data{Email: "x"})
	require.NoError(t, err)
	assert.Equal(t, "label: x", out)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	set, err = Load("")
	require.NoError(t, err)
	assert.NotNil(t, set)
}
