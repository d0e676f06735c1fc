package postgres

import (
	"gorm.io/gorm"

	"github.com/frahmantamala/credential-vault/internal/audit"
	auditDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/audit"
)

// AuditRepository implements the audit.Repository interface using GORM
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(entry *auditDatamodel.AuditLog) error {
	return r.db.Create(entry).Error
}

func (r *AuditRepository) List(limit, offset int) ([]*auditDatamodel.AuditLog, error) {
	var entries []*auditDatamodel.AuditLog
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
