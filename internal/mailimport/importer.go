package mailimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/emersion/go-mbox"
	"github.com/znz-systems/fraudmail/internal/email"
	"github.com/znz-systems/fraudmail/internal/models"
)

const (
	defaultBatchSize = 100
	maxSubjectLen    = 255
	maxFieldLen      = 255
)

// Ingester is satisfied by *email.Service.
type Ingester interface {
	Ingest(ctx context.Context, clientID int64, submissions []email.Submission) ([]models.Email, error)
}

type Options struct {
	ClientID  int64
	Company   string
	Provider  string
	BatchSize int
}

type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer feeds the messages of an mbox file to the ingestor in chunks.
type Importer struct {
	ingester Ingester
	opts     Options
	logger   *slog.Logger
}

func NewImporter(ingester Ingester, opts Options, logger *slog.Logger) (*Importer, error) {
	if opts.ClientID <= 0 {
		return nil, errors.New("client id must be positive")
	}
	if opts.Company == "" {
		return nil, errors.New("company name is required")
	}
	if opts.Provider == "" {
		return nil, errors.New("smtp provider is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{ingester: ingester, opts: opts, logger: logger}, nil
}

// Import reads every message from r. Each chunk commits on its own; the first
// failing chunk stops the import and the counts cover the chunks committed so far.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	reader := mbox.NewReader(r)
	chunk := make([]email.Submission, 0, im.opts.BatchSize)
	seen := make(map[string]struct{})

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		created, err := im.ingester.Ingest(ctx, im.opts.ClientID, chunk)
		if err != nil {
			return fmt.Errorf("ingesting chunk after %d imported: %w", res.Imported, err)
		}
		res.Imported += len(created)
		chunk = make([]email.Submission, 0, im.opts.BatchSize)
		return nil
	}

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		mr, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("reading message %d: %w", index, err)
		}

		msg, err := ParseMessage(mr)
		if err != nil {
			im.logger.Warn("skipping unparseable message", "index", index, "error", err)
			res.Skipped++
			continue
		}
		sub, reason := im.submission(msg)
		if reason != "" {
			im.logger.Debug("skipping message", "index", index, "message_id", msg.MessageID, "reason", reason)
			res.Skipped++
			continue
		}
		// Only the first copy of a repeated message is submitted.
		if _, dup := seen[sub.SMTPMessageID]; dup {
			im.logger.Debug("skipping message", "index", index, "message_id", msg.MessageID, "reason", "repeated Message-ID")
			res.Skipped++
			continue
		}
		seen[sub.SMTPMessageID] = struct{}{}

		chunk = append(chunk, sub)
		if len(chunk) == im.opts.BatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}

	if err := flush(); err != nil {
		return res, err
	}
	im.logger.Info("mbox import finished", "client_id", im.opts.ClientID, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

// submission converts msg or reports why it cannot be submitted.
func (im *Importer) submission(msg Message) (email.Submission, string) {
	switch {
	case msg.MessageID == "":
		return email.Submission{}, "missing Message-ID"
	case msg.SentAt.IsZero():
		return email.Submission{}, "missing or malformed Date"
	case msg.Sender == "":
		return email.Submission{}, "missing From"
	case msg.Recipient == "":
		return email.Submission{}, "missing To"
	case msg.Content() == "":
		return email.Submission{}, "empty body"
	case utf8.RuneCountInString(msg.MessageID) > maxFieldLen,
		utf8.RuneCountInString(msg.Sender) > maxFieldLen,
		utf8.RuneCountInString(msg.Recipient) > maxFieldLen:
		return email.Submission{}, "header too long"
	}

	sub := email.Submission{
		Sender:        msg.Sender,
		Recipient:     msg.Recipient,
		SentAt:        msg.SentAt.UTC(),
		SMTPProvider:  im.opts.Provider,
		SMTPMessageID: msg.MessageID,
		Content:       msg.Content(),
		CompanyName:   im.opts.Company,
	}
	if msg.Subject != "" {
		subject := truncateRunes(msg.Subject, maxSubjectLen)
		sub.Subject = &subject
	}
	return sub, ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
