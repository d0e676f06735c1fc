package share

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	shareDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/share"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
)

type Repository interface {
	GetByID(id int64) (*shareDatamodel.DepartmentShare, error)
	GetByTriple(departmentID, grantorID, granteeID int64) (*shareDatamodel.DepartmentShare, error)
	Save(s *shareDatamodel.DepartmentShare) error
	ListByGrantee(granteeID int64) ([]*shareDatamodel.DepartmentShare, error)
	ListByDepartment(departmentID int64) ([]*shareDatamodel.DepartmentShare, error)
	ListAll() ([]*shareDatamodel.DepartmentShare, error)
}

type UserDirectoryAPI interface {
	GetByID(id int64) (*userDatamodel.User, error)
}

type Service struct {
	repo     Repository
	users    UserDirectoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, users UserDirectoryAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Create grants read-only visibility of a department to a peer head. The
// (department, grantor, grantee) triple is unique: granting again extends
// the expiry and reactivates a revoked row instead of inserting a duplicate.
func (s *Service) Create(actor *userDatamodel.User, dto CreateShareDTO) (*shareDatamodel.DepartmentShare, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	departmentID := dto.DepartmentID
	if !auth.CanWriteDepartment(actor, &departmentID) {
		return nil, internal.NewForbiddenError("cannot share a department you do not head", internal.ErrCodeDepartmentScope)
	}

	now := time.Now()
	if !dto.ExpiresAt.After(now) {
		return nil, internal.NewValidationFieldError("expires_at", "expires_at must be in the future", internal.ErrCodeExpiryInPast)
	}

	grantee, err := s.users.GetByID(dto.GranteeID)
	if err != nil {
		return nil, internal.NewNotFoundError("grantee not found", internal.ErrCodeUserNotFound)
	}
	if grantee.ID == actor.ID {
		return nil, internal.NewValidationFieldError("grantee_id", "cannot share a department with yourself", internal.ErrCodeValidationFailed)
	}
	if !grantee.IsDepartmentHead() || grantee.IsSuperuser {
		return nil, internal.NewValidationFieldError("grantee_id", "grantee must be a department head", internal.ErrCodeValidationFailed)
	}
	if !grantee.IsActive {
		return nil, internal.NewValidationFieldError("grantee_id", "grantee is inactive", internal.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetByTriple(departmentID, actor.ID, grantee.ID)
	if err == nil && existing != nil {
		existing.ExpiresAt = dto.ExpiresAt
		existing.IsActive = true
		existing.UpdatedAt = now
		if err := s.repo.Save(existing); err != nil {
			s.logger.Error("failed to extend share", "error", err, "share_id", existing.ID)
			return nil, internal.NewInternalError("failed to save share", err)
		}
		s.publishAudit(actor, "update", existing)
		return existing, nil
	}

	created := &shareDatamodel.DepartmentShare{
		DepartmentID: departmentID,
		GrantorID:    actor.ID,
		GranteeID:    grantee.ID,
		ExpiresAt:    dto.ExpiresAt,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Save(created); err != nil {
		s.logger.Error("failed to create share", "error", err, "department_id", departmentID, "grantee_id", grantee.ID)
		return nil, internal.NewInternalError("failed to save share", err)
	}

	s.publishAudit(actor, "create", created)
	s.logger.Info("department share granted",
		"share_id", created.ID, "department_id", departmentID,
		"grantor_id", actor.ID, "grantee_id", grantee.ID, "expires_at", dto.ExpiresAt)

	return created, nil
}

// Revoke deactivates a share. Revoking an already inactive or expired share
// succeeds without touching the row.
func (s *Service) Revoke(actor *userDatamodel.User, shareID int64) error {
	sh, err := s.repo.GetByID(shareID)
	if err != nil {
		return ErrShareNotFound
	}

	if !auth.CanRevokeShare(actor, sh) {
		return internal.NewForbiddenError("cannot revoke this share", internal.ErrCodeNotPermitted)
	}

	if !sh.IsActive {
		return nil
	}

	sh.IsActive = false
	sh.UpdatedAt = time.Now()
	if err := s.repo.Save(sh); err != nil {
		s.logger.Error("failed to revoke share", "error", err, "share_id", shareID)
		return internal.NewInternalError("failed to save share", err)
	}

	s.publishAudit(actor, "disable", sh)
	s.logger.Info("department share revoked", "share_id", shareID, "actor_id", actor.ID)

	return nil
}

// VisibleDepartmentIDs returns the actor's own department plus every
// department shared to them that is still effective at now. Expiry is
// evaluated lazily; nothing is ever swept.
func (s *Service) VisibleDepartmentIDs(actor *userDatamodel.User, now time.Time) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)

	if actor.DepartmentID != nil {
		ids = append(ids, *actor.DepartmentID)
		seen[*actor.DepartmentID] = true
	}

	shares, err := s.repo.ListByGrantee(actor.ID)
	if err != nil {
		return nil, err
	}
	for _, sh := range shares {
		if sh.IsEffective(now) && !seen[sh.DepartmentID] {
			ids = append(ids, sh.DepartmentID)
			seen[sh.DepartmentID] = true
		}
	}

	return ids, nil
}

// DepartmentHasEffectiveShare reports whether any share currently exposes
// the department. The credential store consults this before a hard delete.
func (s *Service) DepartmentHasEffectiveShare(departmentID int64, now time.Time) (bool, error) {
	shares, err := s.repo.ListByDepartment(departmentID)
	if err != nil {
		return false, err
	}
	for _, sh := range shares {
		if sh.IsEffective(now) {
			return true, nil
		}
	}
	return false, nil
}

// ListFor shows superusers every share; heads see shares touching them as
// grantor, grantee, or head of the shared department. Employees see none.
func (s *Service) ListFor(actor *userDatamodel.User) ([]*shareDatamodel.DepartmentShare, error) {
	if auth.IsGlobalScope(actor) {
		shares, err := s.repo.ListAll()
		if err != nil {
			return nil, internal.NewInternalError("failed to list shares", err)
		}
		return shares, nil
	}

	if !actor.IsDepartmentHead() {
		return nil, internal.NewForbiddenError("only department heads can list shares", internal.ErrCodeNotPermitted)
	}

	var shares []*shareDatamodel.DepartmentShare
	seen := make(map[int64]bool)

	if actor.DepartmentID != nil {
		own, err := s.repo.ListByDepartment(*actor.DepartmentID)
		if err != nil {
			return nil, internal.NewInternalError("failed to list shares", err)
		}
		for _, sh := range own {
			shares = append(shares, sh)
			seen[sh.ID] = true
		}
	}

	granted, err := s.repo.ListByGrantee(actor.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list shares", err)
	}
	for _, sh := range granted {
		if !seen[sh.ID] {
			shares = append(shares, sh)
		}
	}

	return shares, nil
}

func (s *Service) publishAudit(actor *userDatamodel.User, action string, sh *shareDatamodel.DepartmentShare) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(context.Background(), events.NewAuditEvent(
		&actor.ID, action, "DepartmentShare", strconv.FormatInt(sh.ID, 10),
		map[string]interface{}{
			"department_id": sh.DepartmentID,
			"grantee_id":    sh.GranteeID,
			"expires_at":    sh.ExpiresAt,
		},
	))
}
