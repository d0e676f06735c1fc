package share_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	shareDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/share"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/share"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestShareService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Share Service Suite")
}

type MockRepository struct {
	shares map[int64]*shareDatamodel.DepartmentShare
	nextID int64
}

func NewMockRepository() *MockRepository {
	return &MockRepository{shares: make(map[int64]*shareDatamodel.DepartmentShare), nextID: 1}
}

func (m *MockRepository) GetByID(id int64) (*shareDatamodel.DepartmentShare, error) {
	if s, ok := m.shares[id]; ok {
		return s, nil
	}
	return nil, share.ErrShareNotFound
}

func (m *MockRepository) GetByTriple(departmentID, grantorID, granteeID int64) (*shareDatamodel.DepartmentShare, error) {
	for _, s := range m.shares {
		if s.DepartmentID == departmentID && s.GrantorID == grantorID && s.GranteeID == granteeID {
			return s, nil
		}
	}
	return nil, share.ErrShareNotFound
}

func (m *MockRepository) Save(s *shareDatamodel.DepartmentShare) error {
	if s.ID == 0 {
		s.ID = m.nextID
		m.nextID++
	}
	m.shares[s.ID] = s
	return nil
}

func (m *MockRepository) ListByGrantee(granteeID int64) ([]*shareDatamodel.DepartmentShare, error) {
	var result []*shareDatamodel.DepartmentShare
	for _, s := range m.shares {
		if s.GranteeID == granteeID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *MockRepository) ListByDepartment(departmentID int64) ([]*shareDatamodel.DepartmentShare, error) {
	var result []*shareDatamodel.DepartmentShare
	for _, s := range m.shares {
		if s.DepartmentID == departmentID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *MockRepository) ListAll() ([]*shareDatamodel.DepartmentShare, error) {
	var result []*shareDatamodel.DepartmentShare
	for _, s := range m.shares {
		result = append(result, s)
	}
	return result, nil
}

type MockUserDirectory struct {
	users map[int64]*userDatamodel.User
}

func (m *MockUserDirectory) GetByID(id int64) (*userDatamodel.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
}

func deptID(id int64) *int64 { return &id }

var _ = Describe("Share Service", func() {
	var (
		repo     *MockRepository
		users    *MockUserDirectory
		svc      *share.Service
		infraHead, dataHead, employee, root *userDatamodel.User
	)

	BeforeEach(func() {
		repo = NewMockRepository()
		infraHead = &userDatamodel.User{ID: 1, Role: userDatamodel.RoleHead, DepartmentID: deptID(10), IsActive: true}
		dataHead = &userDatamodel.User{ID: 2, Role: userDatamodel.RoleHead, DepartmentID: deptID(20), IsActive: true}
		employee = &userDatamodel.User{ID: 3, Role: userDatamodel.RoleEmployee, DepartmentID: deptID(10), IsActive: true}
		root = &userDatamodel.User{ID: 4, IsSuperuser: true, Role: userDatamodel.RoleHead, IsActive: true}
		users = &MockUserDirectory{users: map[int64]*userDatamodel.User{
			1: infraHead, 2: dataHead, 3: employee, 4: root,
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = share.NewService(repo, users, nil, logger)
	})

	Describe("Create", func() {
		It("grants a department to a peer head", func() {
			created, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.GrantorID).To(Equal(infraHead.ID))
			Expect(created.IsActive).To(BeTrue())
		})

		It("rejects an expiry that is not in the future", func() {
			_, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(-time.Minute),
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeExpiryInPast))
		})

		It("rejects sharing a department the grantor does not head", func() {
			_, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 20,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("rejects a superuser grantee", func() {
			_, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    root.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects an employee grantee", func() {
			_, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    employee.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects self-granting", func() {
			_, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    infraHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).To(HaveOccurred())
		})

		It("extends the existing row instead of duplicating the triple", func() {
			first, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())

			later := time.Now().Add(48 * time.Hour)
			second, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    later,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).To(Equal(first.ID))
			Expect(second.ExpiresAt).To(BeTemporally("~", later, time.Second))
			Expect(len(repo.shares)).To(Equal(1))
		})

		It("reactivates a revoked share on re-grant", func() {
			created, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Revoke(infraHead, created.ID)).To(Succeed())

			again, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(again.ID).To(Equal(created.ID))
			Expect(again.IsActive).To(BeTrue())
		})
	})

	Describe("Revoke", func() {
		var created *shareDatamodel.DepartmentShare

		BeforeEach(func() {
			var err error
			created, err = svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("deactivates the share", func() {
			Expect(svc.Revoke(infraHead, created.ID)).To(Succeed())
			Expect(repo.shares[created.ID].IsActive).To(BeFalse())
		})

		It("is idempotent", func() {
			Expect(svc.Revoke(infraHead, created.ID)).To(Succeed())
			Expect(svc.Revoke(infraHead, created.ID)).To(Succeed())
		})

		It("refuses the grantee", func() {
			err := svc.Revoke(dataHead, created.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("allows a superuser", func() {
			Expect(svc.Revoke(root, created.ID)).To(Succeed())
		})
	})

	Describe("VisibleDepartmentIDs", func() {
		It("includes the actor's own department", func() {
			ids, err := svc.VisibleDepartmentIDs(dataHead, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf(int64(20)))
		})

		It("includes effective shared departments", func() {
			_, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())

			ids, err := svc.VisibleDepartmentIDs(dataHead, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf(int64(20), int64(10)))
		})

		It("drops expired shares without any write", func() {
			created, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Minute),
			})
			Expect(err).NotTo(HaveOccurred())

			ids, err := svc.VisibleDepartmentIDs(dataHead, time.Now().Add(2*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf(int64(20)))

			// the expired row is untouched in storage
			Expect(repo.shares[created.ID].IsActive).To(BeTrue())
		})

		It("drops revoked shares", func() {
			created, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Revoke(infraHead, created.ID)).To(Succeed())

			ids, err := svc.VisibleDepartmentIDs(dataHead, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf(int64(20)))
		})
	})

	Describe("DepartmentHasEffectiveShare", func() {
		It("sees only still-effective shares", func() {
			_, err := svc.Create(infraHead, share.CreateShareDTO{
				DepartmentID: 10,
				GranteeID:    dataHead.ID,
				ExpiresAt:    time.Now().Add(time.Minute),
			})
			Expect(err).NotTo(HaveOccurred())

			now := time.Now()
			has, err := svc.DepartmentHasEffectiveShare(10, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(has).To(BeTrue())

			has, err = svc.DepartmentHasEffectiveShare(10, now.Add(2*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(has).To(BeFalse())
		})
	})
})
