package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/credential-vault/internal/catalog"
	catalogDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/catalog"
)

// CatalogRepository implements the catalog.Repository interface using GORM
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) catalog.Repository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) CreateDepartment(d *catalogDatamodel.Department) error {
	return r.db.Create(d).Error
}

func (r *CatalogRepository) GetDepartmentByID(id int64) (*catalogDatamodel.Department, error) {
	var d catalogDatamodel.Department
	err := r.db.Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *CatalogRepository) UpdateDepartment(d *catalogDatamodel.Department) error {
	return r.db.Save(d).Error
}

func (r *CatalogRepository) ListDepartments() ([]*catalogDatamodel.Department, error) {
	var departments []*catalogDatamodel.Department
	err := r.db.Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&departments).Error
	return departments, err
}

func (r *CatalogRepository) CreateService(svc *catalogDatamodel.Service) error {
	return r.db.Create(svc).Error
}

func (r *CatalogRepository) GetServiceByID(id int64) (*catalogDatamodel.Service, error) {
	var svc catalogDatamodel.Service
	err := r.db.Where("id = ?", id).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, err
	}
	return &svc, nil
}

func (r *CatalogRepository) UpdateService(svc *catalogDatamodel.Service) error {
	return r.db.Save(svc).Error
}

func (r *CatalogRepository) ListServices() ([]*catalogDatamodel.Service, error) {
	var services []*catalogDatamodel.Service
	err := r.db.Order("name ASC").Find(&services).Error
	return services, err
}

func (r *CatalogRepository) ListServicesByDepartments(departmentIDs []int64) ([]*catalogDatamodel.Service, error) {
	if len(departmentIDs) == 0 {
		return nil, nil
	}
	var services []*catalogDatamodel.Service
	err := r.db.Where("department_id IN ? AND is_active = ?", departmentIDs, true).
		Order("name ASC").
		Find(&services).Error
	return services, err
}

func (r *CatalogRepository) ListServicesForUser(userID int64) ([]*catalogDatamodel.Service, error) {
	var services []*catalogDatamodel.Service
	err := r.db.
		Joins("JOIN service_accesses sa ON sa.service_id = services.id").
		Where("sa.user_id = ? AND sa.is_active = ? AND services.is_active = ?", userID, true, true).
		Order("services.name ASC").
		Find(&services).Error
	return services, err
}

func (r *CatalogRepository) UpsertServiceAccess(access *catalogDatamodel.ServiceAccess) error {
	return r.db.Save(access).Error
}

func (r *CatalogRepository) GetServiceAccess(userID, serviceID int64) (*catalogDatamodel.ServiceAccess, error) {
	var access catalogDatamodel.ServiceAccess
	err := r.db.Where("user_id = ? AND service_id = ?", userID, serviceID).First(&access).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &access, nil
}

func (r *CatalogRepository) HasActiveAccess(userID, serviceID int64) (bool, error) {
	var count int64
	err := r.db.Model(&catalogDatamodel.ServiceAccess{}).
		Where("user_id = ? AND service_id = ? AND is_active = ?", userID, serviceID, true).
		Count(&count).Error
	return count > 0, err
}
