package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/znz-systems/fraudmail/internal/client"
	"github.com/znz-systems/fraudmail/internal/models"
)

// ClientHandler serves CRUD endpoints for clients.
type ClientHandler struct {
	clients *client.Service
}

func NewClientHandler(clients *client.Service) *ClientHandler {
	return &ClientHandler{clients: clients}
}

func (h *ClientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context())
	if err != nil {
		slog.Error("failed to list clients", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "clientID")
	if !ok {
		return
	}
	c, err := h.clients.Get(r.Context(), id)
	if err != nil {
		h.writeClientError(w, "failed to get client", id, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string        `json:"name"`
		IsActive models.Status `json:"is_active"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	c, err := h.clients.Create(r.Context(), payload.Name, payload.IsActive)
	if err != nil {
		h.writeClientError(w, "failed to create client", 0, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "clientID")
	if !ok {
		return
	}
	var patch models.ClientPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	c, err := h.clients.Update(r.Context(), id, patch)
	if err != nil {
		h.writeClientError(w, "failed to update client", id, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "clientID")
	if !ok {
		return
	}
	if err := h.clients.Delete(r.Context(), id); err != nil {
		h.writeClientError(w, "failed to delete client", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientHandler) writeClientError(w http.ResponseWriter, msg string, id int64, err error) {
	switch {
	case errors.Is(err, client.ErrNotFound):
		writeError(w, http.StatusNotFound, "Client not found")
	case errors.Is(err, client.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(msg, "client_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
