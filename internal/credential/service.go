package credential

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
)

type Repository interface {
	Create(c *credentialDatamodel.Credential) error
	GetByID(id int64) (*credentialDatamodel.Credential, error)
	Update(c *credentialDatamodel.Credential) error
	Delete(id int64) error
	ListAll() ([]*credentialDatamodel.Credential, error)
	ListByOwnerDepartments(departmentIDs []int64) ([]*credentialDatamodel.Credential, error)
	ListOwnedWithAccess(userID int64) ([]*credentialDatamodel.Credential, error)

	AppendVersion(v *credentialDatamodel.CredentialVersion) error
	NextVersion(credentialID int64) (int, error)
	ListVersions(credentialID int64) ([]*credentialDatamodel.CredentialVersion, error)
}

// SecretBox seals secrets for storage and opens them again on disclosure.
type SecretBox interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type UserDirectoryAPI interface {
	GetByID(id int64) (*userDatamodel.User, error)
}

type CatalogAPI interface {
	HasActiveAccess(userID, serviceID int64) (bool, error)
	ServiceExists(serviceID int64) (bool, error)
}

type ShareLedgerAPI interface {
	VisibleDepartmentIDs(actor *userDatamodel.User, now time.Time) ([]int64, error)
	DepartmentHasEffectiveShare(departmentID int64, now time.Time) (bool, error)
}

// WorkflowAPI reports whether open requests still reference a service; a
// credential cannot be hard-deleted out from under them.
type WorkflowAPI interface {
	HasPendingForService(serviceID int64) (bool, error)
}

type Service struct {
	repo         Repository
	box          SecretBox
	users        UserDirectoryAPI
	catalog      CatalogAPI
	shares       ShareLedgerAPI
	workflow     WorkflowAPI
	eventBus     *events.EventBus
	revealWindow time.Duration
	logger       *slog.Logger
}

func NewService(
	repo Repository,
	box SecretBox,
	users UserDirectoryAPI,
	catalog CatalogAPI,
	shares ShareLedgerAPI,
	workflow WorkflowAPI,
	eventBus *events.EventBus,
	revealWindow time.Duration,
	logger *slog.Logger,
) *Service {
	if revealWindow <= 0 {
		revealWindow = 10 * time.Second
	}
	return &Service{
		repo:         repo,
		box:          box,
		users:        users,
		catalog:      catalog,
		shares:       shares,
		workflow:     workflow,
		eventBus:     eventBus,
		revealWindow: revealWindow,
		logger:       logger,
	}
}

// Create stores a new credential for an owner. The actor must hold write
// authorization over the owner's department; the secret is sealed before it
// ever reaches the repository.
func (s *Service) Create(actor *userDatamodel.User, dto CreateCredentialDTO) (*credentialDatamodel.Credential, error) {
	if dto.UserID == 0 {
		dto.UserID = actor.ID
	}

	owner, err := s.users.GetByID(dto.UserID)
	if err != nil {
		return nil, internal.NewNotFoundError("owner not found", internal.ErrCodeUserNotFound)
	}
	if !auth.CanWriteDepartment(actor, owner.DepartmentID) {
		return nil, internal.NewForbiddenError("cannot manage credentials outside your department", internal.ErrCodeDepartmentScope)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.catalog.ServiceExists(dto.ServiceID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up service", err)
	}
	if !exists {
		return nil, internal.NewNotFoundError("service not found", internal.ErrCodeServiceNotFound)
	}

	sealed, err := s.box.Seal(dto.Secret)
	if err != nil {
		return nil, internal.NewInternalError("failed to seal secret", err)
	}

	now := time.Now()
	c := &credentialDatamodel.Credential{
		UserID:         owner.ID,
		ServiceID:      dto.ServiceID,
		SecretType:     dto.SecretType,
		Login:          dto.Login,
		Secret:         sealed,
		Notes:          dto.Notes,
		SSHHost:        dto.SSHHost,
		SSHAlgorithm:   dto.SSHAlgorithm,
		SSHPublicKey:   dto.SSHPublicKey,
		SSHFingerprint: dto.SSHFingerprint,
		SecretFilename: dto.SecretFilename,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if dto.SSHPort != nil {
		c.SSHPort = *dto.SSHPort
	}

	if err := s.repo.Create(c); err != nil {
		s.logger.Error("failed to create credential", "error", err, "owner_id", owner.ID, "service_id", dto.ServiceID)
		return nil, internal.NewInternalError("failed to create credential", err)
	}

	s.appendVersion(c, credentialDatamodel.ChangeTypeCreate, actor.ID)
	s.publishAudit(actor, "create", c)
	s.logger.Info("credential created", "credential_id", c.ID, "secret_type", c.SecretType, "actor_id", actor.ID)

	return c, nil
}

// Update applies a partial edit. Authorization is against the current
// owner's department; the secret type can never change in place.
func (s *Service) Update(actor *userDatamodel.User, credentialID int64, dto UpdateCredentialDTO) (*credentialDatamodel.Credential, error) {
	c, owner, err := s.getWithOwner(credentialID)
	if err != nil {
		return nil, err
	}
	if !auth.CanWriteDepartment(actor, owner.DepartmentID) {
		return nil, internal.NewForbiddenError("cannot manage credentials outside your department", internal.ErrCodeDepartmentScope)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if dto.Login != nil && c.SecretType == credentialDatamodel.SecretTypePassword {
		c.Login = *dto.Login
	}
	if dto.Secret != nil && *dto.Secret != "" {
		sealed, err := s.box.Seal(*dto.Secret)
		if err != nil {
			return nil, internal.NewInternalError("failed to seal secret", err)
		}
		c.Secret = sealed
	}
	if dto.Notes != nil {
		c.Notes = *dto.Notes
	}
	if c.IsSSHKey() {
		if dto.SSHHost != nil {
			c.SSHHost = *dto.SSHHost
		}
		if dto.SSHPort != nil {
			c.SSHPort = *dto.SSHPort
		}
		if dto.SSHAlgorithm != nil {
			c.SSHAlgorithm = *dto.SSHAlgorithm
		}
		if dto.SSHPublicKey != nil {
			c.SSHPublicKey = *dto.SSHPublicKey
		}
		if dto.SSHFingerprint != nil {
			c.SSHFingerprint = *dto.SSHFingerprint
		}
		if dto.SecretFilename != nil {
			c.SecretFilename = *dto.SecretFilename
		}
	}
	c.UpdatedAt = time.Now()

	if err := s.repo.Update(c); err != nil {
		s.logger.Error("failed to update credential", "error", err, "credential_id", credentialID)
		return nil, internal.NewInternalError("failed to update credential", err)
	}

	s.appendVersion(c, credentialDatamodel.ChangeTypeUpdate, actor.ID)
	s.publishAudit(actor, "update", c)

	return c, nil
}

// SetActive toggles the credential. Inactive credentials keep their secret
// but refuse disclosure until re-enabled.
func (s *Service) SetActive(actor *userDatamodel.User, credentialID int64, isActive bool) (*credentialDatamodel.Credential, error) {
	c, owner, err := s.getWithOwner(credentialID)
	if err != nil {
		return nil, err
	}
	if !auth.CanWriteDepartment(actor, owner.DepartmentID) {
		return nil, internal.NewForbiddenError("cannot manage credentials outside your department", internal.ErrCodeDepartmentScope)
	}
	if c.IsActive == isActive {
		return c, nil
	}

	c.IsActive = isActive
	c.UpdatedAt = time.Now()
	if err := s.repo.Update(c); err != nil {
		return nil, internal.NewInternalError("failed to update credential", err)
	}

	changeType := credentialDatamodel.ChangeTypeDisable
	action := "disable"
	if isActive {
		changeType = credentialDatamodel.ChangeTypeEnable
		action = "enable"
	}
	s.appendVersion(c, changeType, actor.ID)
	s.publishAudit(actor, action, c)
	s.logger.Info("credential active flag changed", "credential_id", credentialID, "is_active", isActive, "actor_id", actor.ID)

	return c, nil
}

// Delete removes the credential and its history for good. It is refused
// while an effective share exposes the owner's department or a pending
// request still targets the service.
func (s *Service) Delete(actor *userDatamodel.User, credentialID int64) error {
	c, owner, err := s.getWithOwner(credentialID)
	if err != nil {
		return err
	}
	if !auth.CanWriteDepartment(actor, owner.DepartmentID) {
		return internal.NewForbiddenError("cannot manage credentials outside your department", internal.ErrCodeDepartmentScope)
	}

	now := time.Now()
	if owner.DepartmentID != nil {
		shared, err := s.shares.DepartmentHasEffectiveShare(*owner.DepartmentID, now)
		if err != nil {
			return internal.NewInternalError("failed to check shares", err)
		}
		if shared {
			return internal.NewConflictError("credential is visible through an active share", internal.ErrCodeCredentialInUse)
		}
	}

	pending, err := s.workflow.HasPendingForService(c.ServiceID)
	if err != nil {
		return internal.NewInternalError("failed to check requests", err)
	}
	if pending {
		return internal.NewConflictError("a pending access request references this credential's service", internal.ErrCodeCredentialInUse)
	}

	if err := s.repo.Delete(credentialID); err != nil {
		s.logger.Error("failed to delete credential", "error", err, "credential_id", credentialID)
		return internal.NewInternalError("failed to delete credential", err)
	}

	s.publishAudit(actor, "delete", c)
	s.logger.Info("credential deleted", "credential_id", credentialID, "actor_id", actor.ID)

	return nil
}

// Disclose returns the secret in clear together with a server-declared
// expiry: the caller must re-mask the value once the window passes.
func (s *Service) Disclose(actor *userDatamodel.User, credentialID int64) (*DisclosureResponse, error) {
	c, owner, err := s.getWithOwner(credentialID)
	if err != nil {
		return nil, err
	}

	visible, err := s.canRead(actor, c, owner)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, internal.NewForbiddenError("you cannot view this credential", internal.ErrCodeNotPermitted)
	}
	if !c.IsActive {
		return nil, ErrCredentialInactive
	}

	secret, err := s.box.Open(c.Secret)
	if err != nil {
		return nil, internal.NewInternalError("failed to open secret", err)
	}

	now := time.Now()
	s.publishAudit(actor, "disclose", c)
	s.logger.Info("credential disclosed", "credential_id", credentialID, "actor_id", actor.ID)

	return &DisclosureResponse{
		Secret:    secret,
		ExpiresAt: now.Add(s.revealWindow),
	}, nil
}

// DownloadSecretFile hands out SSH key material as a file payload. Other
// secret types have nothing to download.
func (s *Service) DownloadSecretFile(actor *userDatamodel.User, credentialID int64) ([]byte, string, error) {
	c, owner, err := s.getWithOwner(credentialID)
	if err != nil {
		return nil, "", err
	}
	if !c.IsSSHKey() {
		return nil, "", internal.NewValidationError("only ssh_key credentials can be downloaded", internal.ErrCodeValidationFailed)
	}

	visible, err := s.canRead(actor, c, owner)
	if err != nil {
		return nil, "", err
	}
	if !visible {
		return nil, "", internal.NewForbiddenError("you cannot view this credential", internal.ErrCodeNotPermitted)
	}
	if !c.IsActive {
		return nil, "", ErrCredentialInactive
	}

	secret, err := s.box.Open(c.Secret)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to open secret", err)
	}

	s.publishAudit(actor, "disclose", c)

	return []byte(secret), c.KeyFilename(), nil
}

// ListFor scopes the credential listing by role. Secrets stay sealed; only
// Disclose opens them.
func (s *Service) ListFor(actor *userDatamodel.User) ([]*credentialDatamodel.Credential, error) {
	if auth.IsGlobalScope(actor) {
		credentials, err := s.repo.ListAll()
		if err != nil {
			return nil, internal.NewInternalError("failed to list credentials", err)
		}
		return credentials, nil
	}

	if actor.IsDepartmentHead() {
		departmentIDs, err := s.shares.VisibleDepartmentIDs(actor, time.Now())
		if err != nil {
			return nil, internal.NewInternalError("failed to resolve visible departments", err)
		}
		credentials, err := s.repo.ListByOwnerDepartments(departmentIDs)
		if err != nil {
			return nil, internal.NewInternalError("failed to list credentials", err)
		}
		return credentials, nil
	}

	credentials, err := s.repo.ListOwnedWithAccess(actor.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list credentials", err)
	}
	return credentials, nil
}

// Versions lists the append-only history under write authorization.
func (s *Service) Versions(actor *userDatamodel.User, credentialID int64) ([]*credentialDatamodel.CredentialVersion, error) {
	_, owner, err := s.getWithOwner(credentialID)
	if err != nil {
		return nil, err
	}
	if !auth.CanWriteDepartment(actor, owner.DepartmentID) {
		return nil, internal.NewForbiddenError("cannot view history outside your department", internal.ErrCodeDepartmentScope)
	}

	versions, err := s.repo.ListVersions(credentialID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list versions", err)
	}
	return versions, nil
}

func (s *Service) getWithOwner(credentialID int64) (*credentialDatamodel.Credential, *userDatamodel.User, error) {
	c, err := s.repo.GetByID(credentialID)
	if err != nil {
		return nil, nil, ErrCredentialNotFound
	}
	owner, err := s.users.GetByID(c.UserID)
	if err != nil {
		return nil, nil, internal.NewNotFoundError("owner not found", internal.ErrCodeUserNotFound)
	}
	return c, owner, nil
}

// canRead implements read visibility: global scope, the owner holding an
// active service access, or a head whose visible departments (own plus
// effective shares) include the owner's.
func (s *Service) canRead(actor *userDatamodel.User, c *credentialDatamodel.Credential, owner *userDatamodel.User) (bool, error) {
	if auth.IsGlobalScope(actor) {
		return true, nil
	}

	if actor.ID == owner.ID {
		return s.catalog.HasActiveAccess(actor.ID, c.ServiceID)
	}

	if !actor.IsDepartmentHead() || owner.DepartmentID == nil {
		return false, nil
	}
	departmentIDs, err := s.shares.VisibleDepartmentIDs(actor, time.Now())
	if err != nil {
		return false, err
	}
	for _, id := range departmentIDs {
		if *owner.DepartmentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) appendVersion(c *credentialDatamodel.Credential, changeType string, actorID int64) {
	version, err := s.repo.NextVersion(c.ID)
	if err != nil {
		s.logger.Error("failed to compute next version", "error", err, "credential_id", c.ID)
		return
	}
	if err := s.repo.AppendVersion(&credentialDatamodel.CredentialVersion{
		CredentialID: c.ID,
		Version:      version,
		Login:        c.Login,
		Secret:       c.Secret,
		Notes:        c.Notes,
		ChangeType:   changeType,
		ChangedByID:  &actorID,
		CreatedAt:    time.Now(),
	}); err != nil {
		s.logger.Error("failed to append credential version", "error", err, "credential_id", c.ID)
	}
}

func (s *Service) publishAudit(actor *userDatamodel.User, action string, c *credentialDatamodel.Credential) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(context.Background(), events.NewAuditEvent(
		&actor.ID, action, "Credential", strconv.FormatInt(c.ID, 10),
		map[string]interface{}{
			"service_id":  c.ServiceID,
			"secret_type": c.SecretType,
		},
	))
}
