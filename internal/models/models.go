package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the activity status shared by clients and companies.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Client struct {
	ID        int64     `json:"id_client"`
	PublicID  uuid.UUID `json:"public_id"`
	Name      string    `json:"name"`
	IsActive  Status    `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientPatch holds the optional fields of a client update. Nil fields are left untouched.
type ClientPatch struct {
	Name     *string `json:"name"`
	IsActive *Status `json:"is_active"`
}

func (p ClientPatch) Empty() bool {
	return p.Name == nil && p.IsActive == nil
}

type Company struct {
	ID        int64     `json:"id_company"`
	PublicID  uuid.UUID `json:"public_id"`
	ClientID  int64     `json:"client_id"`
	Name      string    `json:"name"`
	Domain    *string   `json:"domain"`
	IsActive  Status    `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CompanyCreateParams struct {
	ClientID int64
	Name     string
	Domain   *string
	IsActive Status
}

// CompanyPatch holds the optional fields of a company update. Nil fields are left untouched.
type CompanyPatch struct {
	Name     *string `json:"name"`
	Domain   *string `json:"domain"`
	IsActive *Status `json:"is_active"`
}

func (p CompanyPatch) Empty() bool {
	return p.Name == nil && p.Domain == nil && p.IsActive == nil
}

type Email struct {
	ID            int64     `json:"id_email"`
	PublicID      uuid.UUID `json:"public_id"`
	ClientID      int64     `json:"client_id"`
	CompanyID     int64     `json:"company_id"`
	Sender        string    `json:"sender"`
	Recipient     string    `json:"recipient"`
	SentAt        time.Time `json:"sent_at"`
	SMTPProvider  string    `json:"smtp_provider"`
	SMTPMessageID string    `json:"smtp_message_id"`
	Subject       *string   `json:"subject"`
	Content       string    `json:"content"`
	ContentDigest string    `json:"content_digest"`
	CreatedAt     time.Time `json:"created_at"`
}

// EmailCreateParams is one fully resolved row of a bulk insert.
type EmailCreateParams struct {
	ClientID      int64
	CompanyID     int64
	Sender        string
	Recipient     string
	SentAt        time.Time
	SMTPProvider  string
	SMTPMessageID string
	Subject       *string
	Content       string
	ContentDigest string
}

// EmailQuery is the predicate and page window of an email search.
// Zero-valued filter fields are not applied.
type EmailQuery struct {
	Content   string
	Sender    string
	Recipient string
	CompanyID int64
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// HasFilter reports whether at least one filter field is populated.
func (q EmailQuery) HasFilter() bool {
	return q.Content != "" ||
		q.Sender != "" ||
		q.Recipient != "" ||
		q.CompanyID != 0 ||
		q.From != nil ||
		q.To != nil
}

type EmailPage struct {
	Items    []Email `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}
