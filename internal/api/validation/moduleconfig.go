package validation

import (
	"fmt"

	"github.com/teamscope/teamscope/internal/scope"
)

// UpsertModuleConfigRequest mirrors the fields needed for config upsert
// validation. Scope nil means "use the module's default scope".
type UpsertModuleConfigRequest struct {
	IsEnabled *bool
	Scope     *string
}

// ValidateUpsertModuleConfigRequest validates the fields of a config upsert
// request. Scope membership in the module's allowed set is the config
// store's concern; this only rejects literals that are no scope at all.
func ValidateUpsertModuleConfigRequest(req UpsertModuleConfigRequest) []FieldError {
	var errs []FieldError

	if req.IsEnabled == nil {
		errs = append(errs, FieldError{Field: "isEnabled", Message: "isEnabled is required"})
	}

	if req.Scope != nil {
		if _, err := scope.Parse(*req.Scope); err != nil {
			errs = append(errs, FieldError{
				Field:   "scope",
				Message: fmt.Sprintf("scope must be one of %v", scope.All()),
			})
		}
	}

	return errs
}
