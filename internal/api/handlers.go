// Package api exposes HTTP handlers for roster administration.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"example.com/matchwatch/internal/auth"
	"example.com/matchwatch/internal/domain"
)

// Handler coordinates HTTP requests with the roster service.
type Handler struct {
	service *domain.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/roster", h.roster)
	mux.HandleFunc("/v1/roster/toggle", h.toggle)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listRoster(w, r)
	case http.MethodPost:
		h.register(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) listRoster(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeRosterRead, auth.ScopeRosterWrite) {
		return
	}

	regs, err := h.service.List(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}

	resp := ListRosterResponse{Items: make([]RegistrationView, 0, len(regs))}
	for _, reg := range regs {
		resp.Items = append(resp.Items, toRegistrationView(reg))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeRosterWrite) {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	key, err := h.service.Register(r.Context(), req.OwnerID, req.Gamertag)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MessageResponse{Message: domain.RegisterMessage(key)})
	case errors.Is(err, domain.ErrInvalidIdentity):
		writeError(w, http.StatusBadRequest, "validation_failed", "owner_id and gamertag are required")
	case errors.Is(err, domain.ErrIdentityTaken):
		writeError(w, http.StatusConflict, "conflict", "Someone has already registered as "+domain.NormalizeKey(req.Gamertag))
	default:
		h.serverError(w, err)
	}
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeRosterWrite) {
		return
	}

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	enabled, err := h.service.Toggle(r.Context(), req.OwnerID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ToggleResponse{Enabled: enabled, Message: domain.ToggleMessage(enabled)})
	case errors.Is(err, domain.ErrInvalidIdentity):
		writeError(w, http.StatusBadRequest, "validation_failed", "owner_id is required")
	case errors.Is(err, domain.ErrIdentityNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no gamertag registered for owner")
	default:
		h.serverError(w, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error("roster request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "server_error", err.Error())
}

// requireScope writes 401/403 and returns false unless the caller holds one of scopes.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return false
}

// RegisterRequest is the payload for POST /v1/roster.
type RegisterRequest struct {
	OwnerID  int64  `json:"owner_id"`
	Gamertag string `json:"gamertag"`
}

// ToggleRequest is the payload for POST /v1/roster/toggle.
type ToggleRequest struct {
	OwnerID int64 `json:"owner_id"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ToggleResponse reports the owner's new notification state.
type ToggleResponse struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// RegistrationView exposes one roster entry.
type RegistrationView struct {
	OwnerID       int64   `json:"owner_id"`
	Gamertag      string  `json:"gamertag"`
	LatestMatchID *string `json:"latest_match_id,omitempty"`
	Enabled       bool    `json:"enabled"`
}

// ListRosterResponse packages list results.
type ListRosterResponse struct {
	Items []RegistrationView `json:"items"`
}

func toRegistrationView(reg domain.Registration) RegistrationView {
	return RegistrationView{
		OwnerID:       reg.OwnerID,
		Gamertag:      reg.Identity.Key,
		LatestMatchID: reg.Identity.LastSeenRecordID,
		Enabled:       reg.Identity.Enabled,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
