package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/znz-systems/fraudmail/internal/models"
)

const emailColumns = `e.id_email, e.public_id, e.client_id, e.company_id, e.sender, e.recipient, e.sent_at,
	e.smtp_provider, e.smtp_message_id, e.subject, e.content, e.content_digest, e.created_at`

// likeEscaper makes user input match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type EmailStore struct {
	db *sql.DB
}

func NewEmailStore(db *sql.DB) *EmailStore {
	return &EmailStore{db: db}
}

// CreateEmails inserts every row inside a single transaction and returns the
// created emails in input order. A unique violation on
// (smtp_provider, smtp_message_id), against stored rows or within the batch,
// rolls the whole batch back and is reported as store.ErrDuplicateMessage.
func (s *EmailStore) CreateEmails(ctx context.Context, params []models.EmailCreateParams) ([]models.Email, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO emails
		 (public_id, client_id, company_id, sender, recipient, sent_at, smtp_provider, smtp_message_id, subject, content, content_digest)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id_email, created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	emails := make([]models.Email, 0, len(params))
	for i, p := range params {
		email := models.Email{
			PublicID:      uuid.New(),
			ClientID:      p.ClientID,
			CompanyID:     p.CompanyID,
			Sender:        p.Sender,
			Recipient:     p.Recipient,
			SentAt:        p.SentAt,
			SMTPProvider:  p.SMTPProvider,
			SMTPMessageID: p.SMTPMessageID,
			Subject:       p.Subject,
			Content:       p.Content,
			ContentDigest: p.ContentDigest,
		}
		err := stmt.QueryRowContext(ctx,
			email.PublicID, email.ClientID, email.CompanyID, email.Sender, email.Recipient,
			email.SentAt, email.SMTPProvider, email.SMTPMessageID, email.Subject,
			email.Content, email.ContentDigest,
		).Scan(&email.ID, &email.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert email %d: %w", i, classify(err))
		}
		emails = append(emails, email)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	return emails, nil
}

// SearchEmails counts and pages the emails of clientID matching query. Both
// statements run in one read-only snapshot so the total agrees with the page.
func (s *EmailStore) SearchEmails(ctx context.Context, clientID int64, query models.EmailQuery) ([]models.Email, int, error) {
	where, args := emailPredicate(clientID, query)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails e`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count emails: %w", err)
	}

	limit := query.Limit
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	emails := make([]models.Email, 0, limit)
	if total == 0 || offset >= total || limit <= 0 {
		return emails, total, tx.Commit()
	}

	args = append(args, limit, offset)
	rows, err := tx.QueryContext(ctx,
		`SELECT `+emailColumns+` FROM emails e`+where+
			` ORDER BY e.sent_at DESC, e.id_email DESC`+
			` LIMIT $`+itoa(len(args)-1)+` OFFSET $`+itoa(len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, 0, err
		}
		emails = append(emails, *email)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return emails, total, tx.Commit()
}

// emailPredicate builds the WHERE clause shared by the count and page
// statements. Every supplied filter is ANDed onto the client scope.
func emailPredicate(clientID int64, query models.EmailQuery) (string, []interface{}) {
	var (
		sb   strings.Builder
		args []interface{}
	)
	args = append(args, clientID)
	sb.WriteString(" WHERE e.client_id = $1")

	if query.Content != "" {
		args = append(args, "%"+likeEscaper.Replace(query.Content)+"%")
		sb.WriteString(" AND e.content ILIKE $" + itoa(len(args)))
	}
	if query.Sender != "" {
		args = append(args, query.Sender)
		sb.WriteString(" AND e.sender = $" + itoa(len(args)))
	}
	if query.Recipient != "" {
		args = append(args, query.Recipient)
		sb.WriteString(" AND e.recipient = $" + itoa(len(args)))
	}
	if query.CompanyID != 0 {
		args = append(args, query.CompanyID)
		sb.WriteString(" AND e.company_id = $" + itoa(len(args)))
	}
	if query.From != nil {
		args = append(args, *query.From)
		sb.WriteString(" AND e.sent_at >= $" + itoa(len(args)))
	}
	if query.To != nil {
		args = append(args, *query.To)
		sb.WriteString(" AND e.sent_at <= $" + itoa(len(args)))
	}
	return sb.String(), args
}

func scanEmail(scanner rowScanner) (*models.Email, error) {
	var e models.Email
	if err := scanner.Scan(
		&e.ID, &e.PublicID, &e.ClientID, &e.CompanyID, &e.Sender, &e.Recipient, &e.SentAt,
		&e.SMTPProvider, &e.SMTPMessageID, &e.Subject, &e.Content, &e.ContentDigest, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
