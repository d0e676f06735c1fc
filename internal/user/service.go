package user

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
)

type Repository interface {
	Create(u *userDatamodel.User) error
	GetByID(id int64) (*userDatamodel.User, error)
	GetByPortalLogin(portalLogin string) (*userDatamodel.User, error)
	Update(u *userDatamodel.User) error
	ListAll() ([]*userDatamodel.User, error)
	ListByDepartments(departmentIDs []int64) ([]*userDatamodel.User, error)
	ListHeads() ([]*userDatamodel.User, error)
}

// ShareLedgerAPI is the slice of the share ledger this service needs to
// compute which departments a head may see.
type ShareLedgerAPI interface {
	VisibleDepartmentIDs(actor *userDatamodel.User, now time.Time) ([]int64, error)
}

type Service struct {
	repo       Repository
	shares     ShareLedgerAPI
	eventBus   *events.EventBus
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, shares ShareLedgerAPI, eventBus *events.EventBus, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		shares:     shares,
		eventBus:   eventBus,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Create provisions a user. Heads create employees in their own department
// only; superusers create any role in any department.
func (s *Service) Create(actor *userDatamodel.User, dto CreateUserDTO) (*userDatamodel.User, error) {
	if !auth.CanManage(actor) {
		return nil, internal.NewForbiddenError("only superuser or department head can manage users", internal.ErrCodeNotPermitted)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if !auth.IsGlobalScope(actor) {
		if dto.Role != userDatamodel.RoleEmployee {
			return nil, internal.NewForbiddenError("department head can create only employees", internal.ErrCodePeerHeadWrite)
		}
		if dto.IsSuperuser {
			return nil, internal.NewForbiddenError("department head cannot grant global scope", internal.ErrCodePeerHeadWrite)
		}
		if actor.DepartmentID == nil {
			return nil, internal.NewValidationError("department head must have a department", internal.ErrCodeValidationFailed)
		}
		// Heads always create into their own department, whatever was sent.
		dto.DepartmentID = actor.DepartmentID
	} else if !dto.IsSuperuser && dto.DepartmentID == nil {
		return nil, internal.NewValidationFieldError("department_id", "department_id is required for department users", internal.ErrCodeMissingField)
	}

	if existing, err := s.repo.GetByPortalLogin(dto.PortalLogin); err == nil && existing != nil {
		return nil, internal.NewConflictError("portal_login is already taken", internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	u := &userDatamodel.User{
		PortalLogin:  dto.PortalLogin,
		FullName:     dto.FullName,
		Email:        dto.Email,
		Role:         dto.Role,
		DepartmentID: dto.DepartmentID,
		IsSuperuser:  dto.IsSuperuser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if dto.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "portal_login", dto.PortalLogin)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.publishAudit(actor, "create", u)
	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "actor_id", actor.ID)

	return u, nil
}

// Update edits name/email and optionally resets the password. Heads may only
// touch plain employees of their own department.
func (s *Service) Update(actor *userDatamodel.User, userID int64, dto UpdateUserDTO) (*userDatamodel.User, error) {
	target, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if !auth.CanManageUser(actor, target) {
		return nil, internal.NewForbiddenError("you cannot manage this user", internal.ErrCodeNotPermitted)
	}

	if dto.FullName != nil {
		target.FullName = *dto.FullName
	}
	if dto.Email != nil {
		target.Email = *dto.Email
	}
	if dto.Password != nil && *dto.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*dto.Password), s.bcryptCost)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		target.PasswordHash = string(hash)
	}
	target.UpdatedAt = time.Now()

	if err := s.repo.Update(target); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	s.publishAudit(actor, "update", target)

	return target, nil
}

// SetActive flips the logical deletion flag. Deactivation is reversible;
// there is no hard delete for users.
func (s *Service) SetActive(actor *userDatamodel.User, userID int64, isActive bool) (*userDatamodel.User, error) {
	target, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if !auth.CanManageUser(actor, target) {
		return nil, internal.NewForbiddenError("you cannot manage this user", internal.ErrCodeNotPermitted)
	}

	if target.IsActive == isActive {
		return target, nil
	}

	target.IsActive = isActive
	target.UpdatedAt = time.Now()

	if err := s.repo.Update(target); err != nil {
		s.logger.Error("failed to toggle user", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	action := "disable"
	if isActive {
		action = "enable"
	}
	s.publishAudit(actor, action, target)
	s.logger.Info("user active flag changed", "user_id", userID, "is_active", isActive, "actor_id", actor.ID)

	return target, nil
}

// List returns the directory visible to the actor: everything for
// superusers; own plus shared departments (and the heads directory) for
// heads. Employees have no user listing at all.
func (s *Service) List(actor *userDatamodel.User) ([]*userDatamodel.User, error) {
	if auth.IsGlobalScope(actor) {
		users, err := s.repo.ListAll()
		if err != nil {
			return nil, internal.NewInternalError("failed to list users", err)
		}
		return users, nil
	}

	if !auth.CanManage(actor) {
		return nil, internal.NewForbiddenError("only superuser or department head can list users", internal.ErrCodeNotPermitted)
	}

	departmentIDs, err := s.shares.VisibleDepartmentIDs(actor, time.Now())
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve visible departments", err)
	}

	users, err := s.repo.ListByDepartments(departmentIDs)
	if err != nil {
		return nil, internal.NewInternalError("failed to list users", err)
	}

	heads, err := s.repo.ListHeads()
	if err != nil {
		return nil, internal.NewInternalError("failed to list users", err)
	}

	seen := make(map[int64]bool, len(users))
	for _, u := range users {
		seen[u.ID] = true
	}
	for _, h := range heads {
		if !seen[h.ID] {
			users = append(users, h)
		}
	}

	return users, nil
}

func (s *Service) GetByID(actor *userDatamodel.User, userID int64) (*userDatamodel.User, error) {
	target, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if actor.ID == target.ID || auth.IsGlobalScope(actor) {
		return target, nil
	}
	if !auth.CanManage(actor) {
		return nil, internal.NewForbiddenError("not permitted", internal.ErrCodeNotPermitted)
	}

	departmentIDs, err := s.shares.VisibleDepartmentIDs(actor, time.Now())
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve visible departments", err)
	}
	for _, id := range departmentIDs {
		if target.InDepartment(id) {
			return target, nil
		}
	}
	if target.IsDepartmentHead() {
		// heads are listed in the shared directory
		return target, nil
	}

	return nil, internal.NewForbiddenError("not permitted", internal.ErrCodeNotPermitted)
}

func (s *Service) publishAudit(actor *userDatamodel.User, action string, target *userDatamodel.User) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(context.Background(), events.NewAuditEvent(
		&actor.ID, action, "User", strconv.FormatInt(target.ID, 10),
		map[string]interface{}{"portal_login": target.PortalLogin},
	))
}
