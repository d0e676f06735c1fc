package postgres

import (
	"errors"

	"gorm.io/gorm"

	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	"github.com/frahmantamala/credential-vault/internal/credential"
)

// CredentialRepository implements the credential.Repository interface using GORM
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) credential.Repository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(c *credentialDatamodel.Credential) error {
	return r.db.Create(c).Error
}

func (r *CredentialRepository) GetByID(id int64) (*credentialDatamodel.Credential, error) {
	var c credentialDatamodel.Credential
	err := r.db.Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credential.ErrCredentialNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) Update(c *credentialDatamodel.Credential) error {
	return r.db.Save(c).Error
}

// Delete removes the credential and its version history in one transaction.
func (r *CredentialRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("credential_id = ?", id).
			Delete(&credentialDatamodel.CredentialVersion{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).
			Delete(&credentialDatamodel.Credential{}).Error
	})
}

func (r *CredentialRepository) ListAll() ([]*credentialDatamodel.Credential, error) {
	var credentials []*credentialDatamodel.Credential
	err := r.db.Order("updated_at DESC").Find(&credentials).Error
	return credentials, err
}

func (r *CredentialRepository) ListByOwnerDepartments(departmentIDs []int64) ([]*credentialDatamodel.Credential, error) {
	if len(departmentIDs) == 0 {
		return nil, nil
	}
	var credentials []*credentialDatamodel.Credential
	err := r.db.
		Joins("JOIN users u ON u.id = credentials.user_id").
		Where("u.department_id IN ?", departmentIDs).
		Order("credentials.updated_at DESC").
		Find(&credentials).Error
	return credentials, err
}

func (r *CredentialRepository) ListOwnedWithAccess(userID int64) ([]*credentialDatamodel.Credential, error) {
	var credentials []*credentialDatamodel.Credential
	err := r.db.
		Joins("JOIN service_accesses sa ON sa.service_id = credentials.service_id AND sa.user_id = credentials.user_id").
		Where("credentials.user_id = ? AND credentials.is_active = ? AND sa.is_active = ?", userID, true, true).
		Order("credentials.updated_at DESC").
		Find(&credentials).Error
	return credentials, err
}

func (r *CredentialRepository) AppendVersion(v *credentialDatamodel.CredentialVersion) error {
	return r.db.Create(v).Error
}

func (r *CredentialRepository) NextVersion(credentialID int64) (int, error) {
	var max int
	err := r.db.Model(&credentialDatamodel.CredentialVersion{}).
		Where("credential_id = ?", credentialID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *CredentialRepository) ListVersions(credentialID int64) ([]*credentialDatamodel.CredentialVersion, error) {
	var versions []*credentialDatamodel.CredentialVersion
	err := r.db.Where("credential_id = ?", credentialID).
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}
