package user

import (
	"time"
)

const (
	RoleEmployee = "employee"
	RoleHead     = "head"
)

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	PortalLogin  string    `json:"portal_login" gorm:"column:portal_login;uniqueIndex;not null"`
	FullName     string    `json:"full_name" gorm:"column:full_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role" gorm:"default:employee"`
	DepartmentID *int64    `json:"department_id" gorm:"column:department_id"`
	IsSuperuser  bool      `json:"is_superuser" gorm:"column:is_superuser;default:false"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}

// IsGlobalScope reports whether the user bypasses department scoping
// entirely. The superuser flag is orthogonal to role.
func (u *User) IsGlobalScope() bool {
	return u.IsSuperuser
}

func (u *User) IsDepartmentHead() bool {
	return u.Role == RoleHead
}

func (u *User) InDepartment(departmentID int64) bool {
	return u.DepartmentID != nil && *u.DepartmentID == departmentID
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.PortalLogin
}
