package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/znz-systems/fraudmail/internal/company"
	"github.com/znz-systems/fraudmail/internal/models"
)

// CompanyHandler serves CRUD endpoints for the companies registered per client.
type CompanyHandler struct {
	companies *company.Service
}

func NewCompanyHandler(companies *company.Service) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

// HandleList lists companies, optionally filtered by the client_id query parameter.
func (h *CompanyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var clientID *int64
	if raw := r.URL.Query().Get("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "client_id must be an integer")
			return
		}
		clientID = &id
	}

	companies, err := h.companies.List(r.Context(), clientID)
	if err != nil {
		slog.Error("failed to list companies", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *CompanyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "companyID")
	if !ok {
		return
	}
	c, err := h.companies.Get(r.Context(), id)
	if err != nil {
		h.writeCompanyError(w, "failed to get company", id, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CompanyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string        `json:"name"`
		Domain   *string       `json:"domain"`
		IsActive models.Status `json:"is_active"`
		ClientID int64         `json:"client_id"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	c, err := h.companies.Create(r.Context(), models.CompanyCreateParams{
		ClientID: payload.ClientID,
		Name:     payload.Name,
		Domain:   payload.Domain,
		IsActive: payload.IsActive,
	})
	if err != nil {
		h.writeCompanyError(w, "failed to create company", 0, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CompanyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "companyID")
	if !ok {
		return
	}
	var patch models.CompanyPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	c, err := h.companies.Update(r.Context(), id, patch)
	if err != nil {
		h.writeCompanyError(w, "failed to update company", id, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CompanyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "companyID")
	if !ok {
		return
	}
	if err := h.companies.Delete(r.Context(), id); err != nil {
		h.writeCompanyError(w, "failed to delete company", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompanyHandler) writeCompanyError(w http.ResponseWriter, msg string, id int64, err error) {
	switch {
	case errors.Is(err, company.ErrNotFound):
		writeError(w, http.StatusNotFound, "Company not found")
	case errors.Is(err, company.ErrClientNotFound):
		writeError(w, http.StatusNotFound, "Client not found")
	case errors.Is(err, company.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, "There is already a company with that name for this client.")
	case errors.Is(err, company.ErrInUse):
		writeError(w, http.StatusConflict, "Company still has registered emails")
	case errors.Is(err, company.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(msg, "company_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
