package user

import (
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
)

// CreateUserDTO is the request payload for creating a user. Department heads
// may only create employees in their own department; superusers may create
// anyone anywhere.
type CreateUserDTO struct {
	PortalLogin  string `json:"portal_login"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Password     string `json:"password,omitempty"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"department_id"`
	IsSuperuser  bool   `json:"is_superuser"`
}

func (dto *CreateUserDTO) Validate() error {
	dto.PortalLogin = strings.TrimSpace(dto.PortalLogin)
	if dto.PortalLogin == "" {
		return internal.NewValidationFieldError("portal_login", "portal_login is required", internal.ErrCodeMissingField)
	}
	if dto.Role == "" {
		dto.Role = userDatamodel.RoleEmployee
	}
	if dto.Role != userDatamodel.RoleEmployee && dto.Role != userDatamodel.RoleHead {
		return internal.NewValidationFieldError("role", "role must be employee or head", internal.ErrCodeValidationFailed)
	}
	return nil
}

// UpdateUserDTO carries a partial update. portal_login is immutable and
// deliberately absent. Nil pointers mean "keep the current value".
type UpdateUserDTO struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Password *string `json:"password,omitempty"`
}

var (
	ErrUserNotFound = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
)
