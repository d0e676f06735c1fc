package user_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

type MockRepository struct {
	users  map[int64]*userDatamodel.User
	nextID int64
}

func NewMockRepository() *MockRepository {
	return &MockRepository{users: make(map[int64]*userDatamodel.User), nextID: 1}
}

func (m *MockRepository) add(u *userDatamodel.User) *userDatamodel.User {
	if u.ID == 0 {
		u.ID = m.nextID
	}
	if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
	m.users[u.ID] = u
	return u
}

func (m *MockRepository) Create(u *userDatamodel.User) error {
	m.add(u)
	return nil
}

func (m *MockRepository) GetByID(id int64) (*userDatamodel.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func (m *MockRepository) GetByPortalLogin(portalLogin string) (*userDatamodel.User, error) {
	for _, u := range m.users {
		if u.PortalLogin == portalLogin {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *MockRepository) Update(u *userDatamodel.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *MockRepository) ListAll() ([]*userDatamodel.User, error) {
	var result []*userDatamodel.User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, nil
}

func (m *MockRepository) ListByDepartments(departmentIDs []int64) ([]*userDatamodel.User, error) {
	var result []*userDatamodel.User
	for _, u := range m.users {
		for _, id := range departmentIDs {
			if u.InDepartment(id) {
				result = append(result, u)
				break
			}
		}
	}
	return result, nil
}

func (m *MockRepository) ListHeads() ([]*userDatamodel.User, error) {
	var result []*userDatamodel.User
	for _, u := range m.users {
		if u.IsDepartmentHead() && u.IsActive {
			result = append(result, u)
		}
	}
	return result, nil
}

type MockShareLedger struct {
	visible map[int64][]int64
}

func (m *MockShareLedger) VisibleDepartmentIDs(actor *userDatamodel.User, now time.Time) ([]int64, error) {
	if ids, ok := m.visible[actor.ID]; ok {
		return ids, nil
	}
	if actor.DepartmentID != nil {
		return []int64{*actor.DepartmentID}, nil
	}
	return nil, nil
}

func deptID(id int64) *int64 { return &id }

var _ = Describe("User Service", func() {
	var (
		repo   *MockRepository
		shares *MockShareLedger
		svc    *user.Service

		root, infraHead, dataHead, employee *userDatamodel.User
	)

	BeforeEach(func() {
		repo = NewMockRepository()
		shares = &MockShareLedger{visible: map[int64][]int64{}}
		root = repo.add(&userDatamodel.User{PortalLogin: "root", IsSuperuser: true, Role: userDatamodel.RoleHead, IsActive: true})
		infraHead = repo.add(&userDatamodel.User{PortalLogin: "infra.head", Role: userDatamodel.RoleHead, DepartmentID: deptID(10), IsActive: true})
		dataHead = repo.add(&userDatamodel.User{PortalLogin: "data.head", Role: userDatamodel.RoleHead, DepartmentID: deptID(20), IsActive: true})
		employee = repo.add(&userDatamodel.User{PortalLogin: "infra.emp", Role: userDatamodel.RoleEmployee, DepartmentID: deptID(10), IsActive: true})
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = user.NewService(repo, shares, nil, 4, logger)
	})

	Describe("Create", func() {
		It("lets a head create an employee in their own department", func() {
			created, err := svc.Create(infraHead, user.CreateUserDTO{
				PortalLogin: "infra.new",
				FullName:    "New Hire",
				Role:        userDatamodel.RoleEmployee,
				Password:    "secret",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(*created.DepartmentID).To(Equal(int64(10)))
			Expect(created.IsActive).To(BeTrue())
			Expect(created.PasswordHash).NotTo(BeEmpty())
		})

		It("pins the department even if the head names another one", func() {
			created, err := svc.Create(infraHead, user.CreateUserDTO{
				PortalLogin:  "infra.new",
				Role:         userDatamodel.RoleEmployee,
				DepartmentID: deptID(20),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(*created.DepartmentID).To(Equal(int64(10)))
		})

		It("forbids a head creating another head", func() {
			_, err := svc.Create(infraHead, user.CreateUserDTO{
				PortalLogin: "new.head",
				Role:        userDatamodel.RoleHead,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePeerHeadWrite))
		})

		It("forbids a head minting a superuser", func() {
			_, err := svc.Create(infraHead, user.CreateUserDTO{
				PortalLogin: "shadow.root",
				Role:        userDatamodel.RoleEmployee,
				IsSuperuser: true,
			})
			Expect(err).To(HaveOccurred())
		})

		It("forbids employees entirely", func() {
			_, err := svc.Create(employee, user.CreateUserDTO{
				PortalLogin: "x",
				Role:        userDatamodel.RoleEmployee,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("lets a superuser create a head anywhere", func() {
			created, err := svc.Create(root, user.CreateUserDTO{
				PortalLogin:  "sec.head",
				Role:         userDatamodel.RoleHead,
				DepartmentID: deptID(30),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Role).To(Equal(userDatamodel.RoleHead))
		})

		It("conflicts on a taken portal_login", func() {
			_, err := svc.Create(root, user.CreateUserDTO{
				PortalLogin:  "infra.emp",
				Role:         userDatamodel.RoleEmployee,
				DepartmentID: deptID(10),
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})
	})

	Describe("Update", func() {
		It("lets a head edit their own employee", func() {
			name := "Renamed"
			updated, err := svc.Update(infraHead, employee.ID, user.UpdateUserDTO{FullName: &name})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.FullName).To(Equal("Renamed"))
		})

		It("forbids a head editing a peer head", func() {
			name := "Nope"
			_, err := svc.Update(infraHead, dataHead.ID, user.UpdateUserDTO{FullName: &name})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("forbids a head editing a superuser", func() {
			name := "Nope"
			_, err := svc.Update(infraHead, root.ID, user.UpdateUserDTO{FullName: &name})
			Expect(err).To(HaveOccurred())
		})

		It("rehashes the password when one is supplied", func() {
			before := employee.PasswordHash
			password := "new-password"
			updated, err := svc.Update(infraHead, employee.ID, user.UpdateUserDTO{Password: &password})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PasswordHash).NotTo(Equal(before))
			Expect(updated.PasswordHash).NotTo(Equal("new-password"))
		})
	})

	Describe("SetActive", func() {
		It("deactivates and reactivates", func() {
			deactivated, err := svc.SetActive(infraHead, employee.ID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(deactivated.IsActive).To(BeFalse())

			reactivated, err := svc.SetActive(infraHead, employee.ID, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(reactivated.IsActive).To(BeTrue())
		})

		It("is a no-op when already in the target state", func() {
			current, err := svc.SetActive(infraHead, employee.ID, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.IsActive).To(BeTrue())
		})

		It("forbids cross-department deactivation", func() {
			_, err := svc.SetActive(dataHead, employee.ID, false)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("List", func() {
		It("gives a superuser everyone", func() {
			users, err := svc.List(root)
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(4))
		})

		It("forbids employees", func() {
			_, err := svc.List(employee)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("merges the heads directory into a head's view", func() {
			users, err := svc.List(infraHead)
			Expect(err).NotTo(HaveOccurred())

			var logins []string
			for _, u := range users {
				logins = append(logins, u.PortalLogin)
			}
			// own department plus all active heads, without duplicates
			Expect(logins).To(ConsistOf("infra.head", "infra.emp", "data.head", "root"))
		})

		It("widens with shared departments", func() {
			dataEmp := repo.add(&userDatamodel.User{PortalLogin: "data.emp", Role: userDatamodel.RoleEmployee, DepartmentID: deptID(20), IsActive: true})
			shares.visible[infraHead.ID] = []int64{10, 20}

			users, err := svc.List(infraHead)
			Expect(err).NotTo(HaveOccurred())

			found := false
			for _, u := range users {
				if u.ID == dataEmp.ID {
					found = true
				}
			}
			Expect(found).To(BeTrue())
		})
	})

	Describe("GetByID", func() {
		It("always allows self-lookup", func() {
			got, err := svc.GetByID(employee, employee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(employee.ID))
		})

		It("forbids an employee reading a colleague", func() {
			_, err := svc.GetByID(employee, infraHead.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("lets a head read a foreign head through the directory", func() {
			got, err := svc.GetByID(infraHead, dataHead.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(dataHead.ID))
		})
	})
})
