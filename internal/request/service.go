package request

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	requestDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/request"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
)

type Repository interface {
	Create(req *requestDatamodel.AccessRequest) error
	GetByID(id int64) (*requestDatamodel.AccessRequest, error)
	// CloseIfPending transitions the request to a terminal status only if it
	// is still pending, reporting whether the row was won.
	CloseIfPending(id int64, status string, reviewerID *int64, comment string, reviewedAt time.Time) (bool, error)
	HasPending(requesterID, serviceID int64) (bool, error)
	HasPendingForService(serviceID int64) (bool, error)
	ListByRequester(requesterID int64) ([]*requestDatamodel.AccessRequest, error)
	ListPendingByDepartments(departmentIDs []int64) ([]*requestDatamodel.AccessRequest, error)
	ListPending() ([]*requestDatamodel.AccessRequest, error)
}

type UserDirectoryAPI interface {
	GetByID(id int64) (*userDatamodel.User, error)
}

// CatalogAPI verifies the requested service exists.
type CatalogAPI interface {
	ServiceExists(serviceID int64) (bool, error)
}

type Service struct {
	repo     Repository
	users    UserDirectoryAPI
	catalog  CatalogAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, users UserDirectoryAPI, catalog CatalogAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		catalog:  catalog,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Create opens an access request. A requester may hold at most one pending
// request per service; justification is optional.
func (s *Service) Create(requester *userDatamodel.User, dto CreateRequestDTO) (*requestDatamodel.AccessRequest, error) {
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

	pending, err := s.repo.HasPending(requester.ID, dto.ServiceID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check pending requests", err)
	}
	if pending {
		return nil, internal.NewConflictError("you already have a pending request for this service", internal.ErrCodeDuplicateRequest)
	}

	req := &requestDatamodel.AccessRequest{
		RequesterID:   requester.ID,
		ServiceID:     dto.ServiceID,
		Status:        requestDatamodel.StatusPending,
		Justification: dto.Justification,
		RequestedAt:   time.Now(),
	}
	if err := s.repo.Create(req); err != nil {
		s.logger.Error("failed to create access request", "error", err, "service_id", dto.ServiceID)
		return nil, internal.NewInternalError("failed to create access request", err)
	}

	s.publishAudit(requester, "create", req)
	s.logger.Info("access request opened", "request_id", req.ID, "service_id", dto.ServiceID, "requester_id", requester.ID)

	return req, nil
}

// Cancel lets the requester withdraw their own pending request.
func (s *Service) Cancel(actor *userDatamodel.User, requestID int64) (*requestDatamodel.AccessRequest, error) {
	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, ErrRequestNotFound
	}

	// Not an authorization failure: cancel is a state transition only the
	// requester's pending request can take, so anyone else gets a conflict.
	if req.RequesterID != actor.ID {
		return nil, internal.NewConflictError("only the requester can cancel a request", internal.ErrCodeNotRequester)
	}

	return s.close(actor, req, requestDatamodel.StatusCanceled, nil, "")
}

// Approve closes a pending request in the requester's favor. It records the
// decision only; granting service access is a separate step by the reviewer.
func (s *Service) Approve(reviewer *userDatamodel.User, requestID int64, dto ReviewDTO) (*requestDatamodel.AccessRequest, error) {
	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, ErrRequestNotFound
	}

	requester, err := s.users.GetByID(req.RequesterID)
	if err != nil {
		return nil, internal.NewNotFoundError("requester not found", internal.ErrCodeUserNotFound)
	}
	if !auth.CanReviewRequest(reviewer, requester) {
		return nil, internal.NewForbiddenError("you cannot review this request", internal.ErrCodeNotPermitted)
	}

	return s.close(reviewer, req, requestDatamodel.StatusApproved, &reviewer.ID, dto.Comment)
}

// Reject closes a pending request against the requester. The comment is
// mandatory: the requester must be told why.
func (s *Service) Reject(reviewer *userDatamodel.User, requestID int64, dto ReviewDTO) (*requestDatamodel.AccessRequest, error) {
	// A blank comment fails before anything else, whoever the reviewer is.
	if strings.TrimSpace(dto.Comment) == "" {
		return nil, internal.NewValidationFieldError("comment", "a rejection comment is required", internal.ErrCodeEmptyComment)
	}

	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, ErrRequestNotFound
	}

	requester, err := s.users.GetByID(req.RequesterID)
	if err != nil {
		return nil, internal.NewNotFoundError("requester not found", internal.ErrCodeUserNotFound)
	}
	if !auth.CanReviewRequest(reviewer, requester) {
		return nil, internal.NewForbiddenError("you cannot review this request", internal.ErrCodeNotPermitted)
	}

	return s.close(reviewer, req, requestDatamodel.StatusRejected, &reviewer.ID, dto.Comment)
}

// close performs the compare-and-set transition out of pending. Concurrent
// reviewers race on the row; exactly one wins, the rest get a conflict.
func (s *Service) close(actor *userDatamodel.User, req *requestDatamodel.AccessRequest, status string, reviewerID *int64, comment string) (*requestDatamodel.AccessRequest, error) {
	now := time.Now()
	won, err := s.repo.CloseIfPending(req.ID, status, reviewerID, comment, now)
	if err != nil {
		s.logger.Error("failed to close request", "error", err, "request_id", req.ID, "status", status)
		return nil, internal.NewInternalError("failed to update request", err)
	}
	if !won {
		return nil, ErrRequestNotPending
	}

	req.Status = status
	req.ReviewerID = reviewerID
	req.ReviewComment = comment
	req.ReviewedAt = &now

	s.publishAudit(actor, "update", req)
	s.logger.Info("access request closed", "request_id", req.ID, "status", status, "actor_id", actor.ID)

	return req, nil
}

// HasPendingForService reports whether any pending request still targets
// the service.
func (s *Service) HasPendingForService(serviceID int64) (bool, error) {
	return s.repo.HasPendingForService(serviceID)
}

// OwnRequests lists the actor's requests, newest first.
func (s *Service) OwnRequests(actor *userDatamodel.User) ([]*requestDatamodel.AccessRequest, error) {
	requests, err := s.repo.ListByRequester(actor.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list requests", err)
	}
	return requests, nil
}

// ReviewableRequests lists pending requests the actor may decide: all of
// them for superusers, own-department requesters for heads. Shares do not
// widen the review queue.
func (s *Service) ReviewableRequests(actor *userDatamodel.User) ([]*requestDatamodel.AccessRequest, error) {
	if auth.IsGlobalScope(actor) {
		requests, err := s.repo.ListPending()
		if err != nil {
			return nil, internal.NewInternalError("failed to list requests", err)
		}
		return requests, nil
	}

	if !actor.IsDepartmentHead() || actor.DepartmentID == nil {
		return nil, internal.NewForbiddenError("only reviewers can list pending requests", internal.ErrCodeNotPermitted)
	}

	requests, err := s.repo.ListPendingByDepartments([]int64{*actor.DepartmentID})
	if err != nil {
		return nil, internal.NewInternalError("failed to list requests", err)
	}
	return requests, nil
}

func (s *Service) publishAudit(actor *userDatamodel.User, action string, req *requestDatamodel.AccessRequest) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(context.Background(), events.NewAuditEvent(
		&actor.ID, action, "AccessRequest", strconv.FormatInt(req.ID, 10),
		map[string]interface{}{
			"service_id": req.ServiceID,
			"status":     req.Status,
		},
	))
}
