package postgres

import (
	"errors"

	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/user"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *userDatamodel.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByPortalLogin(portalLogin string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.Where("portal_login = ?", portalLogin).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(u *userDatamodel.User) error {
	return r.db.Save(u).Error
}

func (r *UserRepository) ListAll() ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.Order("full_name ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) ListByDepartments(departmentIDs []int64) ([]*userDatamodel.User, error) {
	if len(departmentIDs) == 0 {
		return nil, nil
	}
	var users []*userDatamodel.User
	err := r.db.Where("department_id IN ?", departmentIDs).
		Order("full_name ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) ListHeads() ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.Where("role = ? AND is_active = ?", userDatamodel.RoleHead, true).
		Order("full_name ASC").
		Find(&users).Error
	return users, err
}
