package session

import "github.com/teemow/mailresponder/internal/triage"

// Result is the outcome of processing one message. Without feedback Reply
// holds the draft; with feedback OriginalDraft, RefinedReply and FeedbackUsed
// are set instead.
type Result struct {
	ID            string          `json:"id"`
	Category      triage.Category `json:"category"`
	Reply         string          `json:"reply,omitempty"`
	OriginalDraft string          `json:"original_draft,omitempty"`
	RefinedReply  string          `json:"refined_reply,omitempty"`
	FeedbackUsed  string          `json:"feedback_used,omitempty"`
	Errors        []string        `json:"errors,omitempty"`
}

// Degraded reports whether any step fell back to a default value.
func (r Result) Degraded() bool { return len(r.Errors) > 0 }

func (r *Result) addError(step string, err error) {
	if err != nil {
		r.Errors = append(r.Errors, step+": "+err.Error())
	}
}
