package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mercury-net/mercury/internal/auth"
	"github.com/mercury-net/mercury/internal/httputil"
	"github.com/mercury-net/mercury/internal/logging"
	"github.com/mercury-net/mercury/internal/registry/models"
	"github.com/mercury-net/mercury/internal/registry/repository"
	"github.com/mercury-net/mercury/internal/registry/service"
)

// ListPatterns handles GET /v1/patterns.
func (h *Handler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	includeDisabled, _ := strconv.ParseBool(r.URL.Query().Get("include_disabled"))

	patterns, err := h.service.ListPatterns(r.Context(), &models.ListPatternsRequest{
		IncludeDisabled: includeDisabled,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list patterns", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list patterns")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"patterns": patterns})
}

// CreatePattern handles POST /v1/patterns.
func (h *Handler) CreatePattern(w http.ResponseWriter, r *http.Request) {
	agentID, ok := auth.AgentFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "Missing agent identity")
		return
	}

	var req models.CreatePatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.service.CreatePattern(r.Context(), &req, agentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPattern):
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrPatternExists):
			httputil.WriteError(w, http.StatusConflict, "Pattern already exists")
		default:
			h.logger.ErrorContext(r.Context(), "failed to create pattern", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "Failed to create pattern")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, p)
}

// DisablePattern handles PUT /v1/patterns/:id/disable.
func (h *Handler) DisablePattern(w http.ResponseWriter, r *http.Request, id string) {
	agentID, ok := auth.AgentFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "Missing agent identity")
		return
	}

	if err := h.service.DisablePattern(r.Context(), id, agentID); err != nil {
		if errors.Is(err, repository.ErrPatternNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Pattern not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to disable pattern", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to disable pattern")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// EnablePattern handles PUT /v1/patterns/:id/enable.
func (h *Handler) EnablePattern(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := auth.AgentFromContext(r.Context()); !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "Missing agent identity")
		return
	}

	if err := h.service.EnablePattern(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrPatternNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Pattern not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to enable pattern", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to enable pattern")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}
