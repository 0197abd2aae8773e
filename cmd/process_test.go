package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailresponder/internal/llm/llmtest"
	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/memory"
	"github.com/teemow/mailresponder/internal/session"
	"github.com/teemow/mailresponder/internal/triage"
)

type staticSource []mail.Message

func (s staticSource) Name() string { return "sample" }

func (s staticSource) Fetch(context.Context) ([]mail.Message, error) { return s, nil }

func newTestSession(t *testing.T, client *llmtest.Client) (*session.Session, *memory.InMemoryStore) {
	t.Helper()

	store := memory.NewInMemoryStore()
	mem, err := memory.New(memory.Config{Embedder: &llmtest.Embedder{}, Store: store})
	require.NoError(t, err)

	classifier, err := triage.NewClassifier(triage.StepConfig{Client: client})
	require.NoError(t, err)
	drafter, err := triage.NewDrafter(triage.StepConfig{Client: client}, mem, 0)
	require.NoError(t, err)
	refiner, err := triage.NewRefiner(triage.StepConfig{Client: client}, mem)
	require.NoError(t, err)

	sess, err := session.New(session.Options{
		Loader: &mail.Loader{Sample: staticSource{
			{ID: "41", Subject: "Lunch", From: "bob@example.com", Body: "Lunch on Friday?"},
			{ID: "42", Subject: "Meeting", From: "alice@example.com", Body: "Please confirm the meeting"},
		}},
		Memory:     mem,
		Classifier: classifier,
		Drafter:    drafter,
		Refiner:    refiner,
	})
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess, store
}

func scriptedClient() *llmtest.Client {
	return &llmtest.Client{Responses: map[string]string{
		"Classify the following email":  "PERSONAL",
		"concise, polite email replies": "Sounds good.",
		"Improve the draft reply":       "Sounds good, see you Friday.",
	}}
}

func TestRunProcess_DefaultsToFirstMessage(t *testing.T) {
	sess, _ := newTestSession(t, scriptedClient())

	results, err := runProcess(context.Background(), sess, "", "", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "41", results[0].ID)
	assert.Equal(t, triage.CategoryPersonal, results[0].Category)
	assert.Equal(t, "Sounds good.", results[0].Reply)
}

func TestRunProcess_WithFeedback(t *testing.T) {
	sess, store := newTestSession(t, scriptedClient())

	results, err := runProcess(context.Background(), sess, "42", "mention Friday", false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, "Sounds good.", res.OriginalDraft)
	assert.Equal(t, "Sounds good, see you Friday.", res.RefinedReply)
	assert.Equal(t, "mention Friday", res.FeedbackUsed)
	assert.Empty(t, res.Reply)

	rec, ok := store.Get("42")
	require.True(t, ok)
	assert.Equal(t, "Sounds good.", rec.Draft)
}

func TestRunProcess_All(t *testing.T) {
	sess, _ := newTestSession(t, scriptedClient())

	results, err := runProcess(context.Background(), sess, "", "", true)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRunProcess_UnknownID(t *testing.T) {
	client := scriptedClient()
	sess, _ := newTestSession(t, client)

	_, err := runProcess(context.Background(), sess, "999", "", false)
	var nf *session.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Empty(t, client.Requests())
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	err := writeResults(&buf, []session.Result{
		{ID: "42", Category: triage.CategoryWork, Reply: "Confirmed."},
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]any{"id": "42", "category": "WORK", "reply": "Confirmed."}, got)
}

func TestBindFlags_UnknownFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("live", false, "")

	assert.NoError(t, bindFlags(cmd, map[string]string{"mail.live": "live"}))
	assert.Error(t, bindFlags(cmd, map[string]string{"mail.max": "max"}))
}
