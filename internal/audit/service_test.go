package audit_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/audit"
	auditDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/audit"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAuditService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Service Suite")
}

type MockRepository struct {
	entries    []*auditDatamodel.AuditLog
	shouldFail bool
	failError  error
}

func (m *MockRepository) Create(entry *auditDatamodel.AuditLog) error {
	if m.shouldFail {
		return m.failError
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockRepository) List(limit, offset int) ([]*auditDatamodel.AuditLog, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	if offset >= len(m.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	return m.entries[offset:end], nil
}

var _ = Describe("Audit Service", func() {
	var (
		repo *MockRepository
		bus  *events.EventBus
		svc  *audit.Service

		root, employee *userDatamodel.User
	)

	BeforeEach(func() {
		repo = &MockRepository{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		svc = audit.NewService(repo, logger)
		svc.RegisterSubscriber(bus)

		root = &userDatamodel.User{ID: 1, IsSuperuser: true, IsActive: true}
		employee = &userDatamodel.User{ID: 2, Role: userDatamodel.RoleEmployee, IsActive: true}
	})

	Describe("event subscription", func() {
		It("persists a published audit event", func() {
			actorID := int64(3)
			event := events.NewAuditEvent(&actorID, auditDatamodel.ActionDisclose, "Credential", "42",
				map[string]interface{}{"service_id": int64(100)})

			// synchronous delivery so the write is observable immediately
			Expect(bus.PublishSync(context.Background(), event)).To(Succeed())

			Expect(repo.entries).To(HaveLen(1))
			entry := repo.entries[0]
			Expect(*entry.ActorID).To(Equal(actorID))
			Expect(entry.Action).To(Equal(auditDatamodel.ActionDisclose))
			Expect(entry.ObjectType).To(Equal("Credential"))
			Expect(entry.ObjectID).To(Equal("42"))
			Expect(entry.Metadata).To(ContainSubstring("service_id"))
		})

		It("keeps a nil actor for unauthenticated actions", func() {
			event := events.NewAuditEvent(nil, auditDatamodel.ActionLogin, "User", "5", nil)
			Expect(bus.PublishSync(context.Background(), event)).To(Succeed())

			Expect(repo.entries).To(HaveLen(1))
			Expect(repo.entries[0].ActorID).To(BeNil())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i := 0; i < 3; i++ {
				repo.entries = append(repo.entries, &auditDatamodel.AuditLog{ID: int64(i + 1), Action: auditDatamodel.ActionCreate})
			}
		})

		It("is superuser-only", func() {
			_, err := svc.List(employee, 10, 0)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("returns entries for a superuser", func() {
			entries, err := svc.List(root, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(3))
		})

		It("clamps an out-of-range limit", func() {
			entries, err := svc.List(root, -1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(3))

			entries, err = svc.List(root, 1000, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(3))
		})
	})
})
