package mail

import (
	"context"
	"strings"
)

// Message is a normalized mailbox message. IDs are assigned by the mailbox
// (IMAP UID, Gmail message id, or the sample file) and are stable enough to
// key feedback records.
type Message struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Body    string `json:"body"`
}

// Source yields messages from a mailbox or a static set.
type Source interface {
	// Name identifies the source in logs and metrics ("imap", "gmail", "sample").
	Name() string

	// Fetch returns the current messages, newest last.
	Fetch(ctx context.Context) ([]Message, error)
}

// Summary returns a one-line label for the message, used by list views:
// the subject cut to 50 runes followed by the local part of the sender.
func (m Message) Summary() string {
	subject := []rune(m.Subject)
	label := m.Subject
	if len(subject) > 50 {
		label = string(subject[:50]) + "..."
	}
	return label + " — " + senderName(m.From)
}

// Preview returns the body cut to n runes, with "..." appended when cut.
func (m Message) Preview(n int) string {
	body := []rune(m.Body)
	if len(body) <= n {
		return m.Body
	}
	return string(body[:n]) + "..."
}

func senderName(from string) string {
	from = strings.TrimSpace(from)
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.Index(from[i:], ">"); j > 0 {
			from = from[i+1 : i+j]
		}
	}
	if at := strings.Index(from, "@"); at >= 0 {
		return from[:at]
	}
	return from
}
