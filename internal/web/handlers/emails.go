package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/znz-systems/fraudmail/internal/email"
	"github.com/znz-systems/fraudmail/internal/models"
)

// EmailHandler serves bulk ingestion and search of a client's emails.
type EmailHandler struct {
	emails *email.Service
}

func NewEmailHandler(emails *email.Service) *EmailHandler {
	return &EmailHandler{emails: emails}
}

// HandleBulkCreate ingests a batch of emails for the client in the URL.
//
// Expected body:
//
//	{"emails": [{"sender", "recipient", "sent_at", "smtp_provider",
//	             "smtp_message_id", "subject", "content", "company_name"}]}
func (h *EmailHandler) HandleBulkCreate(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseIDParam(w, r, "clientID")
	if !ok {
		return
	}

	var payload struct {
		Emails []email.Submission `json:"emails"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	created, err := h.emails.Ingest(r.Context(), clientID, payload.Emails)
	if err != nil {
		switch {
		case errors.Is(err, email.ErrEmptyBatch),
			errors.Is(err, email.ErrBatchTooLarge),
			errors.Is(err, email.ErrInvalidSubmission),
			errors.Is(err, email.ErrCompanyNotParametrized),
			errors.Is(err, email.ErrDuplicateMessage):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("failed to ingest emails", "client_id", clientID, "count", len(payload.Emails), "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// HandleSearch pages through the client's emails matching the query filters.
func (h *EmailHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseIDParam(w, r, "clientID")
	if !ok {
		return
	}

	query, page, pageSize, err := parseEmailSearch(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.emails.Search(r.Context(), clientID, query, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, email.ErrInvalidPage), errors.Is(err, email.ErrInvalidDateRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("failed to search emails", "client_id", clientID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseEmailSearch(qp url.Values) (models.EmailQuery, int, int, error) {
	q := models.EmailQuery{
		Content:   qp.Get("content"),
		Sender:    qp.Get("sender"),
		Recipient: qp.Get("recipient"),
	}

	if raw := qp.Get("company_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return q, 0, 0, errors.New("company_id must be a positive integer")
		}
		q.CompanyID = id
	}

	var err error
	if q.From, err = parseDateParam("from_date", qp.Get("from_date"), false); err != nil {
		return q, 0, 0, err
	}
	if q.To, err = parseDateParam("to_date", qp.Get("to_date"), true); err != nil {
		return q, 0, 0, err
	}

	page, err := parsePositiveInt("page", qp.Get("page"))
	if err != nil {
		return q, 0, 0, err
	}
	pageSize, err := parsePositiveInt("page_size", qp.Get("page_size"))
	if err != nil {
		return q, 0, 0, err
	}
	return q, page, pageSize, nil
}

// parseDateParam accepts RFC 3339 timestamps, naive timestamps (read as UTC)
// and bare dates. A bare date used as an upper bound covers the whole day.
func parseDateParam(name, v string, upper bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, ok := models.ParseTimestamp(v); ok {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp or YYYY-MM-DD date", name)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// parsePositiveInt returns 0 for an absent value so the service default applies.
func parsePositiveInt(name, v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}
