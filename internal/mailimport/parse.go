package mailimport

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Message is the subset of an RFC 5322 message that becomes an email submission.
type Message struct {
	MessageID string
	Sender    string
	Recipient string
	Subject   string
	SentAt    time.Time
	TextBody  string
	HTMLBody  string
}

// Content returns the plain text body, falling back to the HTML body.
func (m Message) Content() string {
	if m.TextBody != "" {
		return m.TextBody
	}
	return m.HTMLBody
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// ParseMessage reads one message. Encoded-word headers and non UTF-8 bodies are
// converted to UTF-8. Attachments are ignored.
func ParseMessage(r io.Reader) (Message, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}

	result := Message{
		MessageID: normalizeMessageID(firstNonEmpty(msg.Header.Get("Message-ID"), msg.Header.Get("Message-Id"))),
		Sender:    firstAddress(msg.Header.Get("From")),
		Recipient: firstAddress(firstNonEmpty(msg.Header.Get("To"), msg.Header.Get("Delivered-To"))),
		Subject:   decodeHeader(msg.Header.Get("Subject")),
		SentAt:    parseDate(msg.Header.Get("Date")),
	}

	if err := parseEntity(msg.Header, msg.Body, &result); err != nil {
		return Message{}, err
	}
	return result, nil
}

type headerGetter interface {
	Get(key string) string
}

func parseEntity(header headerGetter, body io.Reader, msg *Message) error {
	mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(header.Get("Content-Type")))
	if err != nil {
		mediaType = "text/plain"
		params = map[string]string{}
	}
	mediaType = strings.ToLower(mediaType)

	if strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		reader := multipart.NewReader(body, params["boundary"])
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read multipart part: %w", err)
			}
			if err := parseEntity(part.Header, part, msg); err != nil {
				return err
			}
		}
	}

	if disp, _, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && strings.EqualFold(disp, "attachment") {
		return nil
	}

	switch mediaType {
	case "text/plain":
		if msg.TextBody != "" {
			return nil
		}
		text, err := decodeBody(header.Get("Content-Transfer-Encoding"), params["charset"], body)
		if err != nil {
			return fmt.Errorf("decode text body: %w", err)
		}
		msg.TextBody = text
	case "text/html":
		if msg.HTMLBody != "" {
			return nil
		}
		html, err := decodeBody(header.Get("Content-Transfer-Encoding"), params["charset"], body)
		if err != nil {
			return fmt.Errorf("decode html body: %w", err)
		}
		msg.HTMLBody = html
	}
	return nil
}

func decodeBody(encoding, charset string, r io.Reader) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	r, err := charsetReader(charset, r)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// charsetReader converts from the named IANA charset. Unknown charsets pass
// through unchanged.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func decodeHeader(v string) string {
	v = strings.TrimSpace(v)
	if dec, err := wordDecoder.DecodeHeader(v); err == nil {
		return strings.TrimSpace(dec)
	}
	return v
}

func firstAddress(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parser := mail.AddressParser{WordDecoder: wordDecoder}
	list, err := parser.ParseList(header)
	if err != nil || len(list) == 0 {
		return decodeHeader(header)
	}
	return strings.ToLower(strings.TrimSpace(list[0].Address))
}

func normalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return strings.TrimSpace(id)
}

// parseDate returns the zero time when the header cannot be parsed.
func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(v); err == nil {
		return t
	}
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC850,
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
