package imapsource

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"

	"github.com/teemow/mailresponder/internal/mail"
)

// Parse reads an RFC 5322 message and returns its decoded subject, sender
// and first text/plain body. The returned message has no ID.
func Parse(r io.Reader) (mail.Message, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return mail.Message{}, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}
	from, err := mr.Header.Text("From")
	if err != nil {
		from = mr.Header.Get("From")
	}

	body, err := firstPlainText(mr)
	if err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		Subject: subject,
		From:    from,
		Body:    strings.TrimSpace(body),
	}, nil
}

func firstPlainText(mr *gomail.Reader) (string, error) {
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("read message part: %w", err)
		}
		if p == nil {
			continue
		}

		h, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		// A part without Content-Type is text/plain.
		if ct, _, _ := h.ContentType(); ct != "" && !strings.EqualFold(ct, "text/plain") {
			continue
		}
		data, err := io.ReadAll(p.Body)
		if err != nil {
			return "", fmt.Errorf("read text body: %w", err)
		}
		return string(data), nil
	}
}
