package catalog

import (
	"time"
)

type Department struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	SortOrder int       `json:"sort_order" gorm:"column:sort_order;default:0"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Department) TableName() string {
	return "departments"
}

type Service struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	URL          string    `json:"url" gorm:"column:url"`
	DepartmentID *int64    `json:"department_id" gorm:"column:department_id"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Service) TableName() string {
	return "services"
}

// ServiceAccess marks a service as visible to a user. Employees only see
// credentials for services they hold an active access row for.
type ServiceAccess struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_service_access_user_service"`
	ServiceID int64     `json:"service_id" gorm:"column:service_id;not null;uniqueIndex:idx_service_access_user_service"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (ServiceAccess) TableName() string {
	return "service_accesses"
}
