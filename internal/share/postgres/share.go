package postgres

import (
	"errors"

	"gorm.io/gorm"

	shareDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/share"
	"github.com/frahmantamala/credential-vault/internal/share"
)

// ShareRepository implements the share.Repository interface using GORM
type ShareRepository struct {
	db *gorm.DB
}

func NewShareRepository(db *gorm.DB) share.Repository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) GetByID(id int64) (*shareDatamodel.DepartmentShare, error) {
	var s shareDatamodel.DepartmentShare
	err := r.db.Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, share.ErrShareNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ShareRepository) GetByTriple(departmentID, grantorID, granteeID int64) (*shareDatamodel.DepartmentShare, error) {
	var s shareDatamodel.DepartmentShare
	err := r.db.
		Where("department_id = ? AND grantor_id = ? AND grantee_id = ?", departmentID, grantorID, granteeID).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, share.ErrShareNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ShareRepository) Save(s *shareDatamodel.DepartmentShare) error {
	return r.db.Save(s).Error
}

func (r *ShareRepository) ListByGrantee(granteeID int64) ([]*shareDatamodel.DepartmentShare, error) {
	var shares []*shareDatamodel.DepartmentShare
	err := r.db.Where("grantee_id = ?", granteeID).
		Order("expires_at DESC").
		Find(&shares).Error
	return shares, err
}

func (r *ShareRepository) ListByDepartment(departmentID int64) ([]*shareDatamodel.DepartmentShare, error) {
	var shares []*shareDatamodel.DepartmentShare
	err := r.db.Where("department_id = ?", departmentID).
		Order("expires_at DESC").
		Find(&shares).Error
	return shares, err
}

func (r *ShareRepository) ListAll() ([]*shareDatamodel.DepartmentShare, error) {
	var shares []*shareDatamodel.DepartmentShare
	err := r.db.Order("expires_at DESC").Find(&shares).Error
	return shares, err
}
