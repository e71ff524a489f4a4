// Package handlers exposes the registry over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mercury-net/mercury/internal/auth"
	"github.com/mercury-net/mercury/internal/httputil"
	"github.com/mercury-net/mercury/internal/logging"
	"github.com/mercury-net/mercury/internal/registry/models"
	"github.com/mercury-net/mercury/internal/registry/repository"
	"github.com/mercury-net/mercury/internal/registry/service"
)

// HealthFunc reports the health of one dependency. A nil error is healthy.
type HealthFunc func() error

type Handler struct {
	service *service.Service
	auth    *auth.Service
	logger  *logging.Logger
	checks  map[string]HealthFunc
}

func NewHandler(svc *service.Service, authSvc *auth.Service, logger *logging.Logger, checks map[string]HealthFunc) *Handler {
	return &Handler{
		service: svc,
		auth:    authSvc,
		logger:  logger,
		checks:  checks,
	}
}

// HealthCheck handles GET /healthz. Dependency failures degrade the status
// but keep the endpoint at 200 so a slow Redis does not restart the daemon.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(); err != nil {
			deps[name] = err.Error()
			status = "degraded"
		} else {
			deps[name] = "ok"
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"dependencies": deps,
	})
}

// Token handles POST /auth/token: exchanges an agent API key for a JWT.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agent_id"`
		APIKey  string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, expiresAt, err := h.auth.IssueToken(r.Context(), req.AgentID, req.APIKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAgentNotFound) {
			httputil.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to issue token", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt,
	})
}

// Register handles POST /auth/register: creates an agent credential and
// returns the API key once.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.AgentID) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	apiKey, err := h.auth.RegisterAgent(r.Context(), req.AgentID)
	if err != nil {
		if errors.Is(err, auth.ErrAgentExists) {
			httputil.WriteError(w, http.StatusConflict, "Agent already registered")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to register agent", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to register agent")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"agent_id": req.AgentID,
		"api_key":  apiKey,
	})
}

// Detect handles POST /v1/detect. Stateless: nothing is stored.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Detect(r.Context(), req.Text)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "detection failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Detection failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Submit handles POST /v1/antibodies. The agent identity comes from the
// bearer token, not the request body.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	agentID, ok := auth.AgentFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "Missing agent identity")
		return
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AgentID = agentID

	result, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyInput):
			httputil.WriteError(w, http.StatusBadRequest, "No input.")
		case errors.Is(err, service.ErrRateLimited):
			httputil.WriteError(w, http.StatusTooManyRequests, "Submission rate limit exceeded")
		default:
			h.logger.ErrorContext(r.Context(), "submission failed", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "Failed to register antibody")
		}
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, result)
}

// List handles GET /v1/antibodies.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := httputil.ParsePagination(r, h.service.RecentLimit(), 1000)

	req := &models.ListRequest{
		Page:    page.Page,
		Limit:   page.Limit,
		AgentID: r.URL.Query().Get("agent_id"),
		Label:   r.URL.Query().Get("label"),
		Origin:  r.URL.Query().Get("origin"),
	}

	resp, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list antibodies", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list antibodies")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /v1/antibodies/:fingerprint.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	fingerprint := strings.TrimPrefix(r.URL.Path, "/v1/antibodies/")

	a, err := h.service.Get(r.Context(), fingerprint)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidFingerprint):
			httputil.WriteError(w, http.StatusBadRequest, "Malformed fingerprint")
		case errors.Is(err, repository.ErrAntibodyNotFound):
			httputil.WriteError(w, http.StatusNotFound, "Antibody not found")
		default:
			h.logger.ErrorContext(r.Context(), "failed to get antibody", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "Failed to get antibody")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, a)
}

// Match handles POST /v1/antibodies/match.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Match(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyInput) {
			httputil.WriteError(w, http.StatusBadRequest, "No input.")
			return
		}
		h.logger.ErrorContext(r.Context(), "match failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Match failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Export handles GET /v1/antibodies/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="antibody_registry.csv"`)

	if err := h.service.ExportCSV(r.Context(), w); err != nil {
		// Headers are already out; all we can do is log
		h.logger.ErrorContext(r.Context(), "csv export failed", logging.Error(err))
	}
}

// Import handles POST /v1/antibodies/import.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ImportCSV(r.Context(), r.Body)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid CSV payload")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Stats handles GET /v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to compute stats", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}
