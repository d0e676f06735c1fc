package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	auditDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/audit"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
)

type Repository interface {
	Create(entry *auditDatamodel.AuditLog) error
	List(limit, offset int) ([]*auditDatamodel.AuditLog, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// RegisterSubscriber hooks the service into the event bus so every audit
// event published by the domain services is persisted.
func (s *Service) RegisterSubscriber(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeAudit, s.handleAuditEvent)
}

func (s *Service) handleAuditEvent(ctx context.Context, event events.Event) error {
	auditEvent, ok := event.(*events.AuditEvent)
	if !ok {
		s.logger.Warn("unexpected event payload on audit topic", "event_type", event.EventType())
		return nil
	}

	metadata, err := json.Marshal(auditEvent.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}

	entry := &auditDatamodel.AuditLog{
		ActorID:    auditEvent.ActorID,
		Action:     auditEvent.Action,
		ObjectType: auditEvent.ObjectType,
		ObjectID:   auditEvent.ObjectID,
		Metadata:   string(metadata),
		CreatedAt:  auditEvent.OccurredAt(),
	}
	if err := s.repo.Create(entry); err != nil {
		s.logger.Error("failed to persist audit entry", "error", err, "action", auditEvent.Action)
		return err
	}

	return nil
}

// List exposes the trail to superusers only; everybody else writes to it
// without ever reading it.
func (s *Service) List(actor *userDatamodel.User, limit, offset int) ([]*auditDatamodel.AuditLog, error) {
	if !auth.IsGlobalScope(actor) {
		return nil, internal.NewForbiddenError("only superuser can read the audit log", internal.ErrCodeNotPermitted)
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.repo.List(limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("failed to list audit entries", err)
	}
	return entries, nil
}
