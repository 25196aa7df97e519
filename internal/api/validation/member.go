package validation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/role"
)

// AddMemberRequest mirrors the fields needed for add member validation.
type AddMemberRequest struct {
	UserID string
	Role   string
}

// ValidateAddMemberRequest validates the fields of an add member request.
func ValidateAddMemberRequest(req AddMemberRequest) []FieldError {
	var errs []FieldError

	if req.UserID == "" {
		errs = append(errs, FieldError{Field: "userId", Message: "userId is required"})
	} else if _, err := uuid.Parse(req.UserID); err != nil {
		errs = append(errs, FieldError{Field: "userId", Message: "userId must be a valid UUID"})
	}

	errs = append(errs, validateRole(req.Role)...)

	return errs
}

// UpdateMemberRequest mirrors the fields needed for role change validation.
type UpdateMemberRequest struct {
	Role string
}

// ValidateUpdateMemberRequest validates the fields of a role change request.
func ValidateUpdateMemberRequest(req UpdateMemberRequest) []FieldError {
	return validateRole(req.Role)
}

func validateRole(raw string) []FieldError {
	if raw == "" {
		return []FieldError{{Field: "role", Message: "role is required"}}
	}
	if _, err := role.Parse(raw); err != nil {
		return []FieldError{{
			Field:   "role",
			Message: fmt.Sprintf("role must be one of %v", role.All()),
		}}
	}
	return nil
}
