package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teamscope/teamscope/internal/api/middleware"
	"github.com/teamscope/teamscope/internal/api/response"
	"github.com/teamscope/teamscope/internal/auth"
	"github.com/teamscope/teamscope/internal/module"
	"github.com/teamscope/teamscope/internal/resolver"
)

type teamAccessResponse struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
	Scope    string `json:"scope"`
	UserRole string `json:"userRole"`
}

type effectiveModuleResponse struct {
	ModuleID       string               `json:"moduleId"`
	ModuleName     string               `json:"moduleName"`
	IsAccessible   bool                 `json:"isAccessible"`
	EffectiveScope *string              `json:"effectiveScope"`
	EnabledTeams   []teamAccessResponse `json:"enabledTeams"`
}

func toEffectiveModuleResponse(em *resolver.EffectiveModule) effectiveModuleResponse {
	resp := effectiveModuleResponse{
		ModuleID:     em.Module.ID,
		ModuleName:   em.Module.Name,
		IsAccessible: em.IsAccessible,
		EnabledTeams: make([]teamAccessResponse, 0, len(em.EnabledTeams)),
	}
	if em.IsAccessible {
		s := string(em.EffectiveScope)
		resp.EffectiveScope = &s
	}
	for _, ta := range em.EnabledTeams {
		resp.EnabledTeams = append(resp.EnabledTeams, teamAccessResponse{
			TeamID:   ta.TeamID.String(),
			TeamName: ta.TeamName,
			Scope:    string(ta.Scope),
			UserRole: string(ta.UserRole),
		})
	}
	return resp
}

// ModulesHandler handles the "what can this user see" endpoints.
type ModulesHandler struct {
	resolver *resolver.Resolver
}

// NewModulesHandler creates a new ModulesHandler.
func NewModulesHandler(r *resolver.Resolver) *ModulesHandler {
	return &ModulesHandler{resolver: r}
}

// List handles GET /me/modules.
func (h *ModulesHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	modules, err := h.resolver.Resolve(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
			return
		}
		slog.Error("failed to resolve modules", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve modules", requestID)
		return
	}

	out := make([]effectiveModuleResponse, 0, len(modules))
	for i := range modules {
		out = append(out, toEffectiveModuleResponse(&modules[i]))
	}

	response.Success(w, http.StatusOK, out, requestID)
}

// GetOne handles GET /me/modules/{moduleId}.
func (h *ModulesHandler) GetOne(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	moduleID := chi.URLParam(r, "moduleId")

	em, err := h.resolver.ResolveOne(r.Context(), identity.UserID, moduleID)
	if err != nil {
		switch {
		case errors.Is(err, module.ErrModuleNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Module not found", requestID)
		case errors.Is(err, auth.ErrUserNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
		default:
			slog.Error("failed to resolve module", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve module", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toEffectiveModuleResponse(em), requestID)
}
