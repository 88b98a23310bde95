package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/znz-systems/fraudmail/internal/client"
	"github.com/znz-systems/fraudmail/internal/company"
	"github.com/znz-systems/fraudmail/internal/email"
	"github.com/znz-systems/fraudmail/internal/models"
	"github.com/znz-systems/fraudmail/internal/store"
)

// --- In-memory store shared by all handler tests ---

type mockStore struct {
	clients   map[int64]*models.Client
	companies map[int64]*models.Company
	emails    []models.Email
	nextID    int64
	failWith  error
}

func newMockStore() *mockStore {
	return &mockStore{
		clients:   make(map[int64]*models.Client),
		companies: make(map[int64]*models.Company),
		nextID:    1,
	}
}

func (m *mockStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockStore) addClient(name string) *models.Client {
	c := &models.Client{ID: m.id(), PublicID: uuid.New(), Name: name, IsActive: models.StatusActive, CreatedAt: time.Now()}
	m.clients[c.ID] = c
	return c
}

func (m *mockStore) addCompany(clientID int64, name string) *models.Company {
	c := &models.Company{ID: m.id(), PublicID: uuid.New(), ClientID: clientID, Name: name, IsActive: models.StatusActive, CreatedAt: time.Now()}
	m.companies[c.ID] = c
	return c
}

func (m *mockStore) CreateClient(_ context.Context, name string, isActive models.Status) (*models.Client, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	c := &models.Client{ID: m.id(), PublicID: uuid.New(), Name: name, IsActive: isActive, CreatedAt: time.Now()}
	m.clients[c.ID] = c
	return c, nil
}

func (m *mockStore) GetClientByID(_ context.Context, id int64) (*models.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *mockStore) ListClients(_ context.Context) ([]models.Client, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) UpdateClient(_ context.Context, id int64, patch models.ClientPatch) (*models.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	return c, nil
}

func (m *mockStore) DeleteClient(_ context.Context, id int64) error {
	if _, ok := m.clients[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.clients, id)
	return nil
}

func (m *mockStore) CreateCompany(_ context.Context, p models.CompanyCreateParams) (*models.Company, error) {
	if _, ok := m.clients[p.ClientID]; !ok {
		return nil, store.ErrForeignKey
	}
	for _, c := range m.companies {
		if c.ClientID == p.ClientID && c.Name == p.Name {
			return nil, store.ErrCompanyExists
		}
	}
	c := &models.Company{ID: m.id(), PublicID: uuid.New(), ClientID: p.ClientID, Name: p.Name, Domain: p.Domain, IsActive: p.IsActive, CreatedAt: time.Now()}
	m.companies[c.ID] = c
	return c, nil
}

func (m *mockStore) GetCompanyByID(_ context.Context, id int64) (*models.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *mockStore) GetCompanyByClientAndName(_ context.Context, clientID int64, name string) (*models.Company, error) {
	for _, c := range m.companies {
		if c.ClientID == clientID && c.Name == name {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStore) ListCompanies(_ context.Context, clientID *int64) ([]models.Company, error) {
	out := make([]models.Company, 0)
	for _, c := range m.companies {
		if clientID == nil || c.ClientID == *clientID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) UpdateCompany(_ context.Context, id int64, patch models.CompanyPatch) (*models.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Domain != nil {
		c.Domain = patch.Domain
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	return c, nil
}

func (m *mockStore) DeleteCompany(_ context.Context, id int64) error {
	if _, ok := m.companies[id]; !ok {
		return sql.ErrNoRows
	}
	for _, e := range m.emails {
		if e.CompanyID == id {
			return store.ErrForeignKey
		}
	}
	delete(m.companies, id)
	return nil
}

func (m *mockStore) CreateEmails(_ context.Context, params []models.EmailCreateParams) ([]models.Email, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	seen := map[string]bool{}
	for _, e := range m.emails {
		seen[e.SMTPProvider+"\x00"+e.SMTPMessageID] = true
	}
	created := make([]models.Email, 0, len(params))
	for _, p := range params {
		key := p.SMTPProvider + "\x00" + p.SMTPMessageID
		if seen[key] {
			return nil, store.ErrDuplicateMessage
		}
		seen[key] = true
		created = append(created, models.Email{
			ID: m.id(), PublicID: uuid.New(), ClientID: p.ClientID, CompanyID: p.CompanyID,
			Sender: p.Sender, Recipient: p.Recipient, SentAt: p.SentAt,
			SMTPProvider: p.SMTPProvider, SMTPMessageID: p.SMTPMessageID,
			Subject: p.Subject, Content: p.Content, ContentDigest: p.ContentDigest,
			CreatedAt: time.Now(),
		})
	}
	m.emails = append(m.emails, created...)
	return created, nil
}

func (m *mockStore) SearchEmails(_ context.Context, clientID int64, q models.EmailQuery) ([]models.Email, int, error) {
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
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
		if q.CompanyID != 0 && e.CompanyID != q.CompanyID {
			continue
		}
		if q.To != nil && e.SentAt.After(*q.To) {
			continue
		}
		if q.From != nil && e.SentAt.Before(*q.From) {
			continue
		}
		matches = append(matches, e)
	}
	total := len(matches)
	if q.Offset >= total {
		return []models.Email{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matches[q.Offset:end], total, nil
}

type mockPinger struct{ err error }

func (p mockPinger) PingContext(context.Context) error { return p.err }

var errDBDown = errors.New("connection refused")

// --- Helpers ---

// newTestRouter mirrors the production route table on top of an in-memory store.
func newTestRouter(ms *mockStore) http.Handler {
	ch := NewClientHandler(client.NewService(ms))
	coh := NewCompanyHandler(company.NewService(ms))
	eh := NewEmailHandler(email.NewService(ms, ms, email.Options{MaxBatchSize: 5}))

	r := chi.NewRouter()
	r.Use(chiMiddleware.StripSlashes)
	r.Group(func(r chi.Router) {
		r.Route("/client", func(r chi.Router) {
			r.Get("/", ch.HandleList)
			r.Post("/", ch.HandleCreate)
			r.Get("/{clientID}", ch.HandleGet)
			r.Put("/{clientID}", ch.HandleUpdate)
			r.Delete("/{clientID}", ch.HandleDelete)
			r.Post("/{clientID}/emails", eh.HandleBulkCreate)
			r.Get("/{clientID}/emails", eh.HandleSearch)
		})
		r.Route("/company", func(r chi.Router) {
			r.Get("/", coh.HandleList)
			r.Post("/", coh.HandleCreate)
			r.Get("/{companyID}", coh.HandleGet)
			r.Put("/{companyID}", coh.HandleUpdate)
			r.Delete("/{companyID}", coh.HandleDelete)
		})
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func errorDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	decodeBody(t, rr, &resp)
	return resp.Detail
}
