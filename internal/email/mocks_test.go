package email

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/znz-systems/fraudmail/internal/models"
	"github.com/znz-systems/fraudmail/internal/store"
)

// --- Mock stores ---

type mockCompanyStore struct {
	companies   map[int64]map[string]*models.Company
	nextID      int64
	lookupCalls int
}

func newMockCompanyStore() *mockCompanyStore {
	return &mockCompanyStore{
		companies: make(map[int64]map[string]*models.Company),
		nextID:    1,
	}
}

func (m *mockCompanyStore) addCompany(clientID int64, name string) *models.Company {
	c := &models.Company{
		ID:        m.nextID,
		PublicID:  uuid.New(),
		ClientID:  clientID,
		Name:      name,
		IsActive:  models.StatusActive,
		CreatedAt: time.Now(),
	}
	m.nextID++
	if m.companies[clientID] == nil {
		m.companies[clientID] = make(map[string]*models.Company)
	}
	m.companies[clientID][name] = c
	return c
}

func (m *mockCompanyStore) GetCompanyByClientAndName(_ context.Context, clientID int64, name string) (*models.Company, error) {
	m.lookupCalls++
	c, ok := m.companies[clientID][name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type mockEmailStore struct {
	emails      []models.Email
	nextID      int64
	createCalls int
	searchCalls int
	createErr   error
}

func newMockEmailStore() *mockEmailStore {
	return &mockEmailStore{nextID: 1}
}

// CreateEmails mirrors the database: all rows commit together or none do.
func (m *mockEmailStore) CreateEmails(_ context.Context, params []models.EmailCreateParams) ([]models.Email, error) {
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}

	seen := map[string]bool{}
	for _, e := range m.emails {
		seen[e.SMTPProvider+"\x00"+e.SMTPMessageID] = true
	}
	for i, p := range params {
		key := p.SMTPProvider + "\x00" + p.SMTPMessageID
		if seen[key] {
			return nil, fmt.Errorf("insert email %d: %w", i, store.ErrDuplicateMessage)
		}
		seen[key] = true
	}

	created := make([]models.Email, 0, len(params))
	for _, p := range params {
		e := models.Email{
			ID:            m.nextID,
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
			CreatedAt:     time.Now(),
		}
		m.nextID++
		created = append(created, e)
	}
	m.emails = append(m.emails, created...)
	return created, nil
}

func (m *mockEmailStore) SearchEmails(_ context.Context, clientID int64, q models.EmailQuery) ([]models.Email, int, error) {
	m.searchCalls++

	var matches []models.Email
	for _, e := range m.emails {
		if e.ClientID != clientID {
			continue
		}
		if q.Content != "" && !strings.Contains(strings.ToLower(e.Content), strings.ToLower(q.Content)) {
			continue
		}
		if q.Sender != "" && e.Sender != q.Sender {
			continue
		}
		if q.Recipient != "" && e.Recipient != q.Recipient {
			continue
		}
		if q.CompanyID != 0 && e.CompanyID != q.CompanyID {
			continue
		}
		if q.From != nil && e.SentAt.Before(*q.From) {
			continue
		}
		if q.To != nil && e.SentAt.After(*q.To) {
			continue
		}
		matches = append(matches, e)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].SentAt.Equal(matches[j].SentAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].SentAt.After(matches[j].SentAt)
	})

	total := len(matches)
	page := make([]models.Email, 0)
	if q.Offset >= total {
		return page, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return append(page, matches[q.Offset:end]...), total, nil
}

var errStoreDown = errors.New("connection refused")

// --- Helpers ---

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func makeSubmission(company, provider, messageID string) Submission {
	subject := "Invoice " + messageID
	return Submission{
		Sender:        "billing@acme.example",
		Recipient:     "ap@client.example",
		SentAt:        baseTime,
		SMTPProvider:  provider,
		SMTPMessageID: messageID,
		Subject:       &subject,
		Content:       "Please find the invoice attached for " + messageID,
		CompanyName:   company,
	}
}

func newTestService() (*Service, *mockEmailStore, *mockCompanyStore) {
	es := newMockEmailStore()
	cs := newMockCompanyStore()
	return NewService(es, cs, Options{MaxBatchSize: 50}), es, cs
}
