package request

import (
	"github.com/frahmantamala/credential-vault/internal"
)

type CreateRequestDTO struct {
	ServiceID     int64  `json:"service_id"`
	Justification string `json:"justification"`
}

func (dto *CreateRequestDTO) Validate() error {
	if dto.ServiceID == 0 {
		return internal.NewValidationFieldError("service_id", "service_id is required", internal.ErrCodeMissingField)
	}
	return nil
}

// ReviewDTO carries the reviewer's comment. Optional on approve, mandatory
// on reject.
type ReviewDTO struct {
	Comment string `json:"comment"`
}

var (
	ErrRequestNotFound = internal.NewNotFoundError("access request not found", internal.ErrCodeRequestNotFound)

	// ErrRequestNotPending is returned to the loser of a concurrent review:
	// the request reached a terminal state between read and write.
	ErrRequestNotPending = internal.NewConflictError("request is no longer pending", internal.ErrCodeRequestNotPending)
)
