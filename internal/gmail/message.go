package gmail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailresponder/internal/mail"
)

var headerDecoder = new(mime.WordDecoder)

// HeaderValue extracts a header value from a Gmail message
func HeaderValue(m *gmail.Message, header string) string {
	mpart := m.Payload
	if mpart == nil {
		return ""
	}
	for _, mph := range mpart.Headers {
		if strings.EqualFold(mph.Name, header) {
			return mph.Value
		}
	}
	return ""
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw value when
// decoding fails.
func decodeHeader(v string) string {
	decoded, err := headerDecoder.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

// ToMessage converts a full Gmail message to the normalized record.
func ToMessage(m *gmail.Message) (mail.Message, error) {
	body, err := plainTextBody(m.Payload)
	if err != nil {
		return mail.Message{}, fmt.Errorf("message %s: %w", m.Id, err)
	}
	return mail.Message{
		ID:      m.Id,
		Subject: decodeHeader(HeaderValue(m, "Subject")),
		From:    decodeHeader(HeaderValue(m, "From")),
		Body:    strings.TrimSpace(body),
	}, nil
}

// plainTextBody returns the first text/plain part, or "" when there is none.
func plainTextBody(payload *gmail.MessagePart) (string, error) {
	var data string
	walkParts(payload, func(part *gmail.MessagePart) {
		if data == "" && part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			data = part.Body.Data
		}
	})
	if data == "" {
		return "", nil
	}
	return decodeBody(data)
}

// decodeBody decodes Gmail's base64url body data, accepting padded,
// unpadded and standard encodings.
func decodeBody(data string) (string, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded), nil
		}
	}
	return "", fmt.Errorf("failed to decode message body")
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
