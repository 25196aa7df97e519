package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/api/middleware"
	"github.com/teamscope/teamscope/internal/api/response"
	"github.com/teamscope/teamscope/internal/api/validation"
	"github.com/teamscope/teamscope/internal/membership"
	"github.com/teamscope/teamscope/internal/role"
)

type addMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type updateMemberRequest struct {
	Role string `json:"role"`
}

type memberResponse struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Role     string `json:"role"`
}

// MemberHandler handles team membership endpoints.
type MemberHandler struct {
	repo membership.Repository
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(repo membership.Repository) *MemberHandler {
	return &MemberHandler{repo: repo}
}

// Add handles POST /teams/{teamId}/members.
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, err := uuid.Parse(chi.URLParam(r, "teamId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Team ID must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateAddMemberRequest(validation.AddMemberRequest{
		UserID: req.UserID,
		Role:   req.Role,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	userID, _ := uuid.Parse(req.UserID) // already validated
	memberRole, _ := role.Parse(req.Role)

	m := &membership.Membership{
		UserID: userID,
		TeamID: teamID,
		Role:   memberRole,
	}

	if err := h.repo.Add(r.Context(), m); err != nil {
		switch {
		case errors.Is(err, membership.ErrAlreadyMember):
			response.Err(w, http.StatusConflict, "ALREADY_MEMBER", "User is already a member of this team", requestID)
		case errors.Is(err, membership.ErrUnknownReference):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User or team not found", requestID)
		default:
			slog.Error("failed to add member", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add member", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, memberResponse{
		UserID: m.UserID.String(),
		Role:   string(m.Role),
	}, requestID)
}

// List handles GET /teams/{teamId}/members.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, err := uuid.Parse(chi.URLParam(r, "teamId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Team ID must be a valid UUID", requestID)
		return
	}

	members, err := h.repo.ListForTeam(r.Context(), teamID)
	if err != nil {
		slog.Error("failed to list members", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list members", requestID)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			UserID:   m.UserID.String(),
			UserName: m.UserName,
			Role:     string(m.Role),
		})
	}

	response.Success(w, http.StatusOK, out, requestID)
}

// UpdateRole handles PATCH /teams/{teamId}/members/{userId}.
func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, err := uuid.Parse(chi.URLParam(r, "teamId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Team ID must be a valid UUID", requestID)
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "User ID must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateUpdateMemberRequest(validation.UpdateMemberRequest{Role: req.Role})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	memberRole, _ := role.Parse(req.Role)

	if err := h.repo.UpdateRole(r.Context(), userID, teamID, memberRole); err != nil {
		if errors.Is(err, membership.ErrNotMember) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User is not a member of this team", requestID)
			return
		}
		slog.Error("failed to update member role", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update member role", requestID)
		return
	}

	response.Success(w, http.StatusOK, memberResponse{
		UserID: userID.String(),
		Role:   string(memberRole),
	}, requestID)
}

// Remove handles DELETE /teams/{teamId}/members/{userId}.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, err := uuid.Parse(chi.URLParam(r, "teamId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Team ID must be a valid UUID", requestID)
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "User ID must be a valid UUID", requestID)
		return
	}

	if err := h.repo.Remove(r.Context(), userID, teamID); err != nil {
		if errors.Is(err, membership.ErrNotMember) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User is not a member of this team", requestID)
			return
		}
		slog.Error("failed to remove member", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove member", requestID)
		return
	}

	response.NoContent(w)
}
