package share

import (
	"time"

	"github.com/frahmantamala/credential-vault/internal"
)

type CreateShareDTO struct {
	DepartmentID int64     `json:"department_id"`
	GranteeID    int64     `json:"grantee_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (dto *CreateShareDTO) Validate() error {
	if dto.DepartmentID == 0 {
		return internal.NewValidationFieldError("department_id", "department_id is required", internal.ErrCodeMissingField)
	}
	if dto.GranteeID == 0 {
		return internal.NewValidationFieldError("grantee_id", "grantee_id is required", internal.ErrCodeMissingField)
	}
	if dto.ExpiresAt.IsZero() {
		return internal.NewValidationFieldError("expires_at", "expires_at is required", internal.ErrCodeMissingField)
	}
	return nil
}

var (
	ErrShareNotFound = internal.NewNotFoundError("share not found", internal.ErrCodeShareNotFound)
)
