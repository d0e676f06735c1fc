package request

import (
	"time"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusCanceled = "canceled"
)

// AccessRequest tracks an employee's request to be granted a credential for
// a service. pending is the only non-terminal state.
type AccessRequest struct {
	ID            int64      `json:"id" gorm:"primaryKey"`
	RequesterID   int64      `json:"requester_id" gorm:"column:requester_id;not null"`
	ServiceID     int64      `json:"service_id" gorm:"column:service_id;not null"`
	Status        string     `json:"status" gorm:"default:pending"`
	Justification string     `json:"justification"`
	ReviewerID    *int64     `json:"reviewer_id" gorm:"column:reviewer_id"`
	ReviewComment string     `json:"review_comment" gorm:"column:review_comment"`
	RequestedAt   time.Time  `json:"requested_at" gorm:"column:requested_at;default:now()"`
	ReviewedAt    *time.Time `json:"reviewed_at" gorm:"column:reviewed_at"`
}

func (AccessRequest) TableName() string {
	return "access_requests"
}

func (r *AccessRequest) IsPending() bool {
	return r.Status == StatusPending
}

func (r *AccessRequest) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected || r.Status == StatusCanceled
}
