package catalog

import (
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
)

type CreateDepartmentDTO struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func (dto *CreateDepartmentDTO) Validate() error {
	dto.Name = strings.TrimSpace(dto.Name)
	if dto.Name == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeMissingField)
	}
	return nil
}

// UpdateDepartmentDTO is a partial update; nil means keep the current value.
type UpdateDepartmentDTO struct {
	Name      *string `json:"name"`
	SortOrder *int    `json:"sort_order"`
}

type CreateServiceDTO struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	DepartmentID *int64 `json:"department_id"`
}

func (dto *CreateServiceDTO) Validate() error {
	dto.Name = strings.TrimSpace(dto.Name)
	if dto.Name == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeMissingField)
	}
	return nil
}

type UpdateServiceDTO struct {
	Name *string `json:"name"`
	URL  *string `json:"url"`
}

type ServiceAccessDTO struct {
	UserID    int64 `json:"user_id"`
	ServiceID int64 `json:"service_id"`
}

var (
	ErrDepartmentNotFound = internal.NewNotFoundError("department not found", internal.ErrCodeDepartmentNotFound)
	ErrServiceNotFound    = internal.NewNotFoundError("service not found", internal.ErrCodeServiceNotFound)
)
