package email

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/znz-systems/fraudmail/internal/models"
	"github.com/znz-systems/fraudmail/internal/store"
	"golang.org/x/crypto/blake2b"
)

// Column limits of the emails table.
const (
	maxAddressLen   = 255
	maxProviderLen  = 50
	maxMessageIDLen = 255
	maxSubjectLen   = 255
)

// Submission is one email of a bulk ingestion request. The company is named,
// not identified, and must already be registered for the client.
type Submission struct {
	Sender        string    `json:"sender"`
	Recipient     string    `json:"recipient"`
	SentAt        time.Time `json:"sent_at"`
	SMTPProvider  string    `json:"smtp_provider"`
	SMTPMessageID string    `json:"smtp_message_id"`
	Subject       *string   `json:"subject"`
	Content       string    `json:"content"`
	CompanyName   string    `json:"company_name"`
}

// UnmarshalJSON accepts sent_at with or without a zone offset; naive values
// are read as UTC.
func (s *Submission) UnmarshalJSON(data []byte) error {
	type plain Submission
	aux := struct {
		*plain
		SentAt *string `json:"sent_at"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.SentAt == nil || *aux.SentAt == "" {
		return nil
	}
	t, ok := models.ParseTimestamp(*aux.SentAt)
	if !ok {
		return fmt.Errorf("sent_at %q is not an ISO 8601 timestamp", *aux.SentAt)
	}
	s.SentAt = t
	return nil
}

type messageKey struct {
	provider  string
	messageID string
}

// Ingest stores all submissions for clientID as one all-or-nothing batch and
// returns the created emails in submission order.
//
// Every company name is resolved before anything is written; the first
// unresolved name aborts the batch with a *CompanyNotParametrizedError. A
// repeated (smtp_provider, smtp_message_id) pair, inside the batch or against
// stored emails, aborts it with a *DuplicateMessageError. Other store failures
// are returned wrapped.
func (s *Service) Ingest(ctx context.Context, clientID int64, submissions []Submission) ([]models.Email, error) {
	if len(submissions) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(submissions) > s.opts.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d submitted, at most %d allowed", ErrBatchTooLarge, len(submissions), s.opts.MaxBatchSize)
	}
	for i, sub := range submissions {
		if err := validateSubmission(i, sub); err != nil {
			return nil, err
		}
	}

	companyCache := map[string]int64{}
	params := make([]models.EmailCreateParams, 0, len(submissions))
	for _, sub := range submissions {
		companyID, ok := companyCache[sub.CompanyName]
		if !ok {
			company, err := s.ResolveCompany(ctx, clientID, sub.CompanyName)
			if err != nil {
				return nil, err
			}
			companyID = company.ID
			companyCache[sub.CompanyName] = companyID
		}

		params = append(params, models.EmailCreateParams{
			ClientID:      clientID,
			CompanyID:     companyID,
			Sender:        sub.Sender,
			Recipient:     sub.Recipient,
			SentAt:        sub.SentAt,
			SMTPProvider:  sub.SMTPProvider,
			SMTPMessageID: sub.SMTPMessageID,
			Subject:       sub.Subject,
			Content:       sub.Content,
			ContentDigest: ContentDigest(sub.Content),
		})
	}

	seen := make(map[messageKey]struct{}, len(params))
	for _, p := range params {
		key := messageKey{provider: p.SMTPProvider, messageID: p.SMTPMessageID}
		if _, dup := seen[key]; dup {
			return nil, &DuplicateMessageError{SMTPProvider: p.SMTPProvider, SMTPMessageID: p.SMTPMessageID}
		}
		seen[key] = struct{}{}
	}

	emails, err := s.emails.CreateEmails(ctx, params)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			return nil, &DuplicateMessageError{err: err}
		}
		return nil, fmt.Errorf("creating emails: %w", err)
	}

	slog.Info("emails ingested", "client_id", clientID, "count", len(emails))
	return emails, nil
}

// ContentDigest is the hex BLAKE2b-256 digest of an email body.
func ContentDigest(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func validateSubmission(i int, sub Submission) error {
	required := []struct {
		field, value string
		max          int
	}{
		{"sender", sub.Sender, maxAddressLen},
		{"recipient", sub.Recipient, maxAddressLen},
		{"smtp_provider", sub.SMTPProvider, maxProviderLen},
		{"smtp_message_id", sub.SMTPMessageID, maxMessageIDLen},
		{"content", sub.Content, 0},
		{"company_name", sub.CompanyName, 0},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalidSubmission(i, r.field, "is required")
		}
		if r.max > 0 && utf8.RuneCountInString(r.value) > r.max {
			return invalidSubmission(i, r.field, fmt.Sprintf("exceeds %d characters", r.max))
		}
	}
	if sub.SentAt.IsZero() {
		return invalidSubmission(i, "sent_at", "is required")
	}
	if sub.Subject != nil && utf8.RuneCountInString(*sub.Subject) > maxSubjectLen {
		return invalidSubmission(i, "subject", fmt.Sprintf("exceeds %d characters", maxSubjectLen))
	}
	return nil
}
