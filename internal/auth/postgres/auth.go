package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/credential-vault/internal/auth"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
)

type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.RepositoryAPI {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) GetByPortalLogin(portalLogin string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.Where("portal_login = ?", portalLogin).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	return &u, nil
}

func (r *AuthRepository) GetByID(userID int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return &u, nil
}
