package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	catalogDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/catalog"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
)

type Repository interface {
	CreateDepartment(d *catalogDatamodel.Department) error
	GetDepartmentByID(id int64) (*catalogDatamodel.Department, error)
	UpdateDepartment(d *catalogDatamodel.Department) error
	ListDepartments() ([]*catalogDatamodel.Department, error)

	CreateService(svc *catalogDatamodel.Service) error
	GetServiceByID(id int64) (*catalogDatamodel.Service, error)
	UpdateService(svc *catalogDatamodel.Service) error
	ListServices() ([]*catalogDatamodel.Service, error)
	ListServicesByDepartments(departmentIDs []int64) ([]*catalogDatamodel.Service, error)
	ListServicesForUser(userID int64) ([]*catalogDatamodel.Service, error)

	UpsertServiceAccess(access *catalogDatamodel.ServiceAccess) error
	GetServiceAccess(userID, serviceID int64) (*catalogDatamodel.ServiceAccess, error)
	HasActiveAccess(userID, serviceID int64) (bool, error)
}

// UserDirectoryAPI resolves the target of a service access grant so the
// grant can be scoped to that user's department.
type UserDirectoryAPI interface {
	GetByID(id int64) (*userDatamodel.User, error)
}

type ShareLedgerAPI interface {
	VisibleDepartmentIDs(actor *userDatamodel.User, now time.Time) ([]int64, error)
}

type Service struct {
	repo     Repository
	users    UserDirectoryAPI
	shares   ShareLedgerAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, users UserDirectoryAPI, shares ShareLedgerAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		shares:   shares,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateDepartment is superuser-only; departments are the scope boundary for
// every other permission check, so heads cannot mint their own.
func (s *Service) CreateDepartment(actor *userDatamodel.User, dto CreateDepartmentDTO) (*catalogDatamodel.Department, error) {
	if !auth.IsGlobalScope(actor) {
		return nil, internal.NewForbiddenError("only superuser can manage departments", internal.ErrCodeNotPermitted)
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	d := &catalogDatamodel.Department{
		Name:      dto.Name,
		SortOrder: dto.SortOrder,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateDepartment(d); err != nil {
		s.logger.Error("failed to create department", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create department", err)
	}

	s.publishAudit(actor, "create", "Department", d.ID, d.Name)
	return d, nil
}

func (s *Service) UpdateDepartment(actor *userDatamodel.User, departmentID int64, dto UpdateDepartmentDTO) (*catalogDatamodel.Department, error) {
	if !auth.IsGlobalScope(actor) {
		return nil, internal.NewForbiddenError("only superuser can manage departments", internal.ErrCodeNotPermitted)
	}

	d, err := s.repo.GetDepartmentByID(departmentID)
	if err != nil {
		return nil, ErrDepartmentNotFound
	}

	if dto.Name != nil {
		d.Name = *dto.Name
	}
	if dto.SortOrder != nil {
		d.SortOrder = *dto.SortOrder
	}

	if err := s.repo.UpdateDepartment(d); err != nil {
		s.logger.Error("failed to update department", "error", err, "department_id", departmentID)
		return nil, internal.NewInternalError("failed to update department", err)
	}

	s.publishAudit(actor, "update", "Department", d.ID, d.Name)
	return d, nil
}

func (s *Service) SetDepartmentActive(actor *userDatamodel.User, departmentID int64, isActive bool) (*catalogDatamodel.Department, error) {
	if !auth.IsGlobalScope(actor) {
		return nil, internal.NewForbiddenError("only superuser can manage departments", internal.ErrCodeNotPermitted)
	}

	d, err := s.repo.GetDepartmentByID(departmentID)
	if err != nil {
		return nil, ErrDepartmentNotFound
	}
	if d.IsActive == isActive {
		return d, nil
	}

	d.IsActive = isActive
	if err := s.repo.UpdateDepartment(d); err != nil {
		return nil, internal.NewInternalError("failed to update department", err)
	}

	action := "disable"
	if isActive {
		action = "enable"
	}
	s.publishAudit(actor, action, "Department", d.ID, d.Name)
	return d, nil
}

// ListDepartments is visible to any authenticated user; the catalog itself
// is not secret, only the credentials behind it.
func (s *Service) ListDepartments(actor *userDatamodel.User) ([]*catalogDatamodel.Department, error) {
	departments, err := s.repo.ListDepartments()
	if err != nil {
		return nil, internal.NewInternalError("failed to list departments", err)
	}
	return departments, nil
}

func (s *Service) GetDepartment(departmentID int64) (*catalogDatamodel.Department, error) {
	d, err := s.repo.GetDepartmentByID(departmentID)
	if err != nil {
		return nil, ErrDepartmentNotFound
	}
	return d, nil
}

func (s *Service) CreateService(actor *userDatamodel.User, dto CreateServiceDTO) (*catalogDatamodel.Service, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if !auth.CanWriteDepartment(actor, dto.DepartmentID) {
		return nil, internal.NewForbiddenError("cannot manage services outside your department", internal.ErrCodeDepartmentScope)
	}
	if dto.DepartmentID != nil {
		if _, err := s.repo.GetDepartmentByID(*dto.DepartmentID); err != nil {
			return nil, ErrDepartmentNotFound
		}
	}

	svc := &catalogDatamodel.Service{
		Name:         dto.Name,
		URL:          dto.URL,
		DepartmentID: dto.DepartmentID,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateService(svc); err != nil {
		s.logger.Error("failed to create service", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create service", err)
	}

	s.publishAudit(actor, "create", "Service", svc.ID, svc.Name)
	return svc, nil
}

func (s *Service) UpdateService(actor *userDatamodel.User, serviceID int64, dto UpdateServiceDTO) (*catalogDatamodel.Service, error) {
	svc, err := s.repo.GetServiceByID(serviceID)
	if err != nil {
		return nil, ErrServiceNotFound
	}
	if !auth.CanWriteDepartment(actor, svc.DepartmentID) {
		return nil, internal.NewForbiddenError("cannot manage services outside your department", internal.ErrCodeDepartmentScope)
	}

	if dto.Name != nil {
		svc.Name = *dto.Name
	}
	if dto.URL != nil {
		svc.URL = *dto.URL
	}

	if err := s.repo.UpdateService(svc); err != nil {
		s.logger.Error("failed to update service", "error", err, "service_id", serviceID)
		return nil, internal.NewInternalError("failed to update service", err)
	}

	s.publishAudit(actor, "update", "Service", svc.ID, svc.Name)
	return svc, nil
}

func (s *Service) SetServiceActive(actor *userDatamodel.User, serviceID int64, isActive bool) (*catalogDatamodel.Service, error) {
	svc, err := s.repo.GetServiceByID(serviceID)
	if err != nil {
		return nil, ErrServiceNotFound
	}
	if !auth.CanWriteDepartment(actor, svc.DepartmentID) {
		return nil, internal.NewForbiddenError("cannot manage services outside your department", internal.ErrCodeDepartmentScope)
	}
	if svc.IsActive == isActive {
		return svc, nil
	}

	svc.IsActive = isActive
	if err := s.repo.UpdateService(svc); err != nil {
		return nil, internal.NewInternalError("failed to update service", err)
	}

	action := "disable"
	if isActive {
		action = "enable"
	}
	s.publishAudit(actor, action, "Service", svc.ID, svc.Name)
	return svc, nil
}

// ListServices scopes the catalog by role: superusers see everything, heads
// see their own and shared departments, employees only the services they
// hold an active access row for.
func (s *Service) ListServices(actor *userDatamodel.User) ([]*catalogDatamodel.Service, error) {
	if auth.IsGlobalScope(actor) {
		services, err := s.repo.ListServices()
		if err != nil {
			return nil, internal.NewInternalError("failed to list services", err)
		}
		return services, nil
	}

	if actor.IsDepartmentHead() {
		departmentIDs, err := s.shares.VisibleDepartmentIDs(actor, time.Now())
		if err != nil {
			return nil, internal.NewInternalError("failed to resolve visible departments", err)
		}
		services, err := s.repo.ListServicesByDepartments(departmentIDs)
		if err != nil {
			return nil, internal.NewInternalError("failed to list services", err)
		}
		return services, nil
	}

	services, err := s.repo.ListServicesForUser(actor.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list services", err)
	}
	return services, nil
}

func (s *Service) GetService(serviceID int64) (*catalogDatamodel.Service, error) {
	svc, err := s.repo.GetServiceByID(serviceID)
	if err != nil {
		return nil, ErrServiceNotFound
	}
	return svc, nil
}

// GrantAccess lets a head (for own-department users) or a superuser mark a
// service as visible to a user. The (user, service) pair is unique; granting
// twice reactivates the existing row.
func (s *Service) GrantAccess(actor *userDatamodel.User, dto ServiceAccessDTO) error {
	return s.setAccess(actor, dto, true)
}

// RevokeAccess flips the access row inactive. Revoking a grant that does not
// exist is a no-op.
func (s *Service) RevokeAccess(actor *userDatamodel.User, dto ServiceAccessDTO) error {
	return s.setAccess(actor, dto, false)
}

func (s *Service) setAccess(actor *userDatamodel.User, dto ServiceAccessDTO, active bool) error {
	target, err := s.users.GetByID(dto.UserID)
	if err != nil {
		return internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}
	if !auth.CanWriteDepartment(actor, target.DepartmentID) {
		return internal.NewForbiddenError("cannot manage access outside your department", internal.ErrCodeDepartmentScope)
	}
	if _, err := s.repo.GetServiceByID(dto.ServiceID); err != nil {
		return ErrServiceNotFound
	}

	existing, err := s.repo.GetServiceAccess(dto.UserID, dto.ServiceID)
	if err == nil && existing != nil {
		if existing.IsActive == active {
			return nil
		}
		existing.IsActive = active
		existing.UpdatedAt = time.Now()
		if err := s.repo.UpsertServiceAccess(existing); err != nil {
			return internal.NewInternalError("failed to update service access", err)
		}
	} else {
		if !active {
			return nil
		}
		now := time.Now()
		if err := s.repo.UpsertServiceAccess(&catalogDatamodel.ServiceAccess{
			UserID:    dto.UserID,
			ServiceID: dto.ServiceID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return internal.NewInternalError("failed to grant service access", err)
		}
	}

	action := "update"
	if active {
		action = "create"
	}
	s.publishAudit(actor, action, "ServiceAccess",
		dto.ServiceID, "user:"+strconv.FormatInt(dto.UserID, 10))
	return nil
}

// ServiceExists reports whether the service is known and active, for
// callers that only need an existence check.
func (s *Service) ServiceExists(serviceID int64) (bool, error) {
	svc, err := s.repo.GetServiceByID(serviceID)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return false, nil
		}
		return false, err
	}
	return svc.IsActive, nil
}

// HasActiveAccess reports whether the user holds an active access row for
// the service. Used by the credential store to filter employee reads.
func (s *Service) HasActiveAccess(userID, serviceID int64) (bool, error) {
	return s.repo.HasActiveAccess(userID, serviceID)
}

func (s *Service) publishAudit(actor *userDatamodel.User, action, objectType string, objectID int64, name string) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(context.Background(), events.NewAuditEvent(
		&actor.ID, action, objectType, strconv.FormatInt(objectID, 10),
		map[string]interface{}{"name": name},
	))
}
