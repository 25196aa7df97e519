package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/api/middleware"
	"github.com/teamscope/teamscope/internal/api/response"
	"github.com/teamscope/teamscope/internal/api/validation"
	"github.com/teamscope/teamscope/internal/module"
	"github.com/teamscope/teamscope/internal/moduleconfig"
	"github.com/teamscope/teamscope/internal/scope"
)

type upsertConfigRequest struct {
	IsEnabled *bool   `json:"isEnabled"`
	Scope     *string `json:"scope"`
}

type configResponse struct {
	TeamID    string  `json:"teamId"`
	ModuleID  string  `json:"moduleId"`
	IsEnabled bool    `json:"isEnabled"`
	Scope     *string `json:"scope"`
	UpdatedAt string  `json:"updatedAt"`
}

func toConfigResponse(c *moduleconfig.Config) configResponse {
	resp := configResponse{
		TeamID:    c.TeamID.String(),
		ModuleID:  c.ModuleID,
		IsEnabled: c.IsEnabled,
		UpdatedAt: c.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if explicit, ok := c.Scope.Explicit(); ok {
		s := string(explicit)
		resp.Scope = &s
	}
	return resp
}

type auditEntryResponse struct {
	ID          string                 `json:"id"`
	TeamID      string                 `json:"teamId"`
	ModuleID    string                 `json:"moduleId"`
	Action      string                 `json:"action"`
	OldValues   *moduleconfig.Snapshot `json:"oldValues"`
	NewValues   *moduleconfig.Snapshot `json:"newValues"`
	PerformedBy string                 `json:"performedBy"`
	PerformedAt string                 `json:"performedAt"`
}

// ModuleConfigHandler handles per-team module configuration endpoints.
type ModuleConfigHandler struct {
	service *moduleconfig.Service
}

// NewModuleConfigHandler creates a new ModuleConfigHandler.
func NewModuleConfigHandler(service *moduleconfig.Service) *ModuleConfigHandler {
	return &ModuleConfigHandler{service: service}
}

// Upsert handles PUT /teams/{teamId}/modules/{moduleId}.
func (h *ModuleConfigHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, err := uuid.Parse(chi.URLParam(r, "teamId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Team ID must be a valid UUID", requestID)
		return
	}
	moduleID := chi.URLParam(r, "moduleId")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req upsertConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateUpsertModuleConfigRequest(validation.UpsertModuleConfigRequest{
		IsEnabled: req.IsEnabled,
		Scope:     req.Scope,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	setting := scope.UseDefault
	if req.Scope != nil {
		parsed, _ := scope.Parse(*req.Scope) // already validated
		setting = scope.Explicit(parsed)
	}

	identity := middleware.GetIdentity(r.Context())

	cfg, err := h.service.Upsert(r.Context(), teamID, moduleID, *req.IsEnabled, setting, identity.UserID)
	if err != nil {
		var validationErr *moduleconfig.ValidationError
		switch {
		case errors.Is(err, module.ErrModuleNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Module not found", requestID)
		case errors.As(err, &validationErr):
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message,
				[]validation.FieldError{{Field: validationErr.Field, Message: validationErr.Message}}, requestID)
		default:
			slog.Error("failed to upsert module config", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save module config", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toConfigResponse(cfg), requestID)
}

// Delete handles DELETE /teams/{teamId}/modules/{moduleId}. Removing a
// missing config is a 204, not an error.
func (h *ModuleConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, err := uuid.Parse(chi.URLParam(r, "teamId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Team ID must be a valid UUID", requestID)
		return
	}
	moduleID := chi.URLParam(r, "moduleId")

	identity := middleware.GetIdentity(r.Context())

	deleted, err := h.service.Delete(r.Context(), teamID, moduleID, identity.UserID)
	if err != nil {
		if errors.Is(err, module.ErrModuleNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Module not found", requestID)
			return
		}
		slog.Error("failed to delete module config", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete module config", requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]bool{"deleted": deleted}, requestID)
}

// AffectedCount handles GET /teams/{teamId}/modules/{moduleId}/affected-count.
// The UI shows this as a "N records become invisible" warning before a
// disabling write.
func (h *ModuleConfigHandler) AffectedCount(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, err := uuid.Parse(chi.URLParam(r, "teamId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Team ID must be a valid UUID", requestID)
		return
	}
	moduleID := chi.URLParam(r, "moduleId")

	count, err := h.service.AffectedRecordCount(r.Context(), teamID, moduleID)
	if err != nil {
		if errors.Is(err, module.ErrModuleNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Module not found", requestID)
			return
		}
		slog.Error("failed to count affected records", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count affected records", requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]int{"affectedRecords": count}, requestID)
}

// AuditTrail handles GET /module-audit.
func (h *ModuleConfigHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	filter := moduleconfig.AuditFilter{}

	if raw := r.URL.Query().Get("teamId"); raw != "" {
		teamID, err := uuid.Parse(raw)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_ID", "teamId must be a valid UUID", requestID)
			return
		}
		filter.TeamID = &teamID
	}
	if raw := r.URL.Query().Get("moduleId"); raw != "" {
		filter.ModuleID = &raw
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		filter.Page, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}

	entries, total, err := h.service.AuditTrail(r.Context(), filter)
	if err != nil {
		if errors.Is(err, module.ErrModuleNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Module not found", requestID)
			return
		}
		slog.Error("failed to query audit trail", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query audit trail", requestID)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:          e.ID.String(),
			TeamID:      e.TeamID.String(),
			ModuleID:    e.ModuleID,
			Action:      string(e.Action),
			OldValues:   e.OldValues,
			NewValues:   e.NewValues,
			PerformedBy: e.PerformedBy.String(),
			PerformedAt: e.PerformedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	response.SuccessList(w, http.StatusOK, out, total, page, limit, requestID)
}
