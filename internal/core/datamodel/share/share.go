package share

import (
	"time"
)

// DepartmentShare grants read-only visibility of one department's
// credentials to a head of another department until expires_at.
type DepartmentShare struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	DepartmentID int64     `json:"department_id" gorm:"column:department_id;not null;uniqueIndex:idx_share_triple"`
	GrantorID    int64     `json:"grantor_id" gorm:"column:grantor_id;not null;uniqueIndex:idx_share_triple"`
	GranteeID    int64     `json:"grantee_id" gorm:"column:grantee_id;not null;uniqueIndex:idx_share_triple"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"column:expires_at;not null"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (DepartmentShare) TableName() string {
	return "department_shares"
}

// IsEffective evaluates expiry lazily at read time; an expired share stops
// granting access without ever being written back.
func (s *DepartmentShare) IsEffective(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}
