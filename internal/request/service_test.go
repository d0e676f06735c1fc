package request_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	requestDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/request"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/request"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRequestService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Request Service Suite")
}

type MockRepository struct {
	requests map[int64]*requestDatamodel.AccessRequest
	nextID   int64
}

func NewMockRepository() *MockRepository {
	return &MockRepository{requests: make(map[int64]*requestDatamodel.AccessRequest), nextID: 1}
}

func (m *MockRepository) Create(req *requestDatamodel.AccessRequest) error {
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = req
	return nil
}

func (m *MockRepository) GetByID(id int64) (*requestDatamodel.AccessRequest, error) {
	if r, ok := m.requests[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, request.ErrRequestNotFound
}

func (m *MockRepository) CloseIfPending(id int64, status string, reviewerID *int64, comment string, reviewedAt time.Time) (bool, error) {
	r, ok := m.requests[id]
	if !ok || r.Status != requestDatamodel.StatusPending {
		return false, nil
	}
	r.Status = status
	r.ReviewerID = reviewerID
	r.ReviewComment = comment
	r.ReviewedAt = &reviewedAt
	return true, nil
}

func (m *MockRepository) HasPending(requesterID, serviceID int64) (bool, error) {
	for _, r := range m.requests {
		if r.RequesterID == requesterID && r.ServiceID == serviceID && r.IsPending() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) HasPendingForService(serviceID int64) (bool, error) {
	for _, r := range m.requests {
		if r.ServiceID == serviceID && r.IsPending() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) ListByRequester(requesterID int64) ([]*requestDatamodel.AccessRequest, error) {
	var result []*requestDatamodel.AccessRequest
	for _, r := range m.requests {
		if r.RequesterID == requesterID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockRepository) ListPendingByDepartments(departmentIDs []int64) ([]*requestDatamodel.AccessRequest, error) {
	return m.ListPending()
}

func (m *MockRepository) ListPending() ([]*requestDatamodel.AccessRequest, error) {
	var result []*requestDatamodel.AccessRequest
	for _, r := range m.requests {
		if r.IsPending() {
			result = append(result, r)
		}
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

type MockCatalog struct {
	services map[int64]bool
}

func (m *MockCatalog) ServiceExists(serviceID int64) (bool, error) {
	return m.services[serviceID], nil
}

func deptID(id int64) *int64 { return &id }

var _ = Describe("Request Service", func() {
	var (
		repo    *MockRepository
		catalog *MockCatalog
		svc     *request.Service

		employee, otherEmployee, infraHead, dataHead, root *userDatamodel.User
	)

	BeforeEach(func() {
		repo = NewMockRepository()
		catalog = &MockCatalog{services: map[int64]bool{100: true}}
		employee = &userDatamodel.User{ID: 1, Role: userDatamodel.RoleEmployee, DepartmentID: deptID(10), IsActive: true}
		otherEmployee = &userDatamodel.User{ID: 2, Role: userDatamodel.RoleEmployee, DepartmentID: deptID(10), IsActive: true}
		infraHead = &userDatamodel.User{ID: 3, Role: userDatamodel.RoleHead, DepartmentID: deptID(10), IsActive: true}
		dataHead = &userDatamodel.User{ID: 4, Role: userDatamodel.RoleHead, DepartmentID: deptID(20), IsActive: true}
		root = &userDatamodel.User{ID: 5, IsSuperuser: true, Role: userDatamodel.RoleHead, IsActive: true}
		users := &MockUserDirectory{users: map[int64]*userDatamodel.User{
			1: employee, 2: otherEmployee, 3: infraHead, 4: dataHead, 5: root,
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = request.NewService(repo, users, catalog, nil, logger)
	})

	Describe("Create", func() {
		It("opens a pending request", func() {
			req, err := svc.Create(employee, request.CreateRequestDTO{ServiceID: 100, Justification: "need log access"})
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Status).To(Equal(requestDatamodel.StatusPending))
			Expect(req.RequesterID).To(Equal(employee.ID))
		})

		It("rejects an unknown service", func() {
			_, err := svc.Create(employee, request.CreateRequestDTO{ServiceID: 999})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})

		It("refuses a second pending request for the same service", func() {
			_, err := svc.Create(employee, request.CreateRequestDTO{ServiceID: 100})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Create(employee, request.CreateRequestDTO{ServiceID: 100})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateRequest))
		})

		It("allows a new request after the previous one is closed", func() {
			first, err := svc.Create(employee, request.CreateRequestDTO{ServiceID: 100})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Cancel(employee, first.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Create(employee, request.CreateRequestDTO{ServiceID: 100})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Cancel", func() {
		var req *requestDatamodel.AccessRequest

		BeforeEach(func() {
			var err error
			req, err = svc.Create(employee, request.CreateRequestDTO{ServiceID: 100})
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets the requester cancel", func() {
			canceled, err := svc.Cancel(employee, req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(canceled.Status).To(Equal(requestDatamodel.StatusCanceled))
		})

		It("conflicts for anyone but the requester, even a superuser", func() {
			_, err := svc.Cancel(root, req.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
			Expect(appErr.Code).To(Equal(internal.ErrCodeNotRequester))

			// the request is still pending and the requester can still cancel
			current, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(requestDatamodel.StatusPending))
		})

		It("conflicts when the request is already closed", func() {
			_, err := svc.Cancel(employee, req.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Cancel(employee, req.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeRequestNotPending))
		})
	})

	Describe("Approve", func() {
		var req *requestDatamodel.AccessRequest

		BeforeEach(func() {
			var err error
			req, err = svc.Create(employee, request.CreateRequestDTO{ServiceID: 100})
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets the requester's department head approve", func() {
			approved, err := svc.Approve(infraHead, req.ID, request.ReviewDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(requestDatamodel.StatusApproved))
			Expect(*approved.ReviewerID).To(Equal(infraHead.ID))
		})

		It("lets a superuser approve", func() {
			_, err := svc.Approve(root, req.ID, request.ReviewDTO{Comment: "ok"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("forbids a head of another department", func() {
			_, err := svc.Approve(dataHead, req.ID, request.ReviewDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("forbids the requester", func() {
			_, err := svc.Approve(employee, req.ID, request.ReviewDTO{})
			Expect(err).To(HaveOccurred())
		})

		It("gives the loser of a review race a conflict", func() {
			_, err := svc.Approve(infraHead, req.ID, request.ReviewDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Approve(root, req.ID, request.ReviewDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeRequestNotPending))
		})
	})

	Describe("Reject", func() {
		var req *requestDatamodel.AccessRequest

		BeforeEach(func() {
			var err error
			req, err = svc.Create(employee, request.CreateRequestDTO{ServiceID: 100})
			Expect(err).NotTo(HaveOccurred())
		})

		It("records the reviewer and comment", func() {
			rejected, err := svc.Reject(infraHead, req.ID, request.ReviewDTO{Comment: "use the shared account"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rejected.Status).To(Equal(requestDatamodel.StatusRejected))
			Expect(rejected.ReviewComment).To(Equal("use the shared account"))
		})

		It("requires a non-blank comment", func() {
			_, err := svc.Reject(infraHead, req.ID, request.ReviewDTO{Comment: "   "})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmptyComment))

			// the request is untouched
			current, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(requestDatamodel.StatusPending))
		})

		It("fails on a blank comment regardless of reviewer authorization", func() {
			for _, reviewer := range []*userDatamodel.User{infraHead, dataHead, employee, root} {
				_, err := svc.Reject(reviewer, req.ID, request.ReviewDTO{Comment: ""})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeEmptyComment))
			}
		})

		It("still forbids an unauthorized reviewer with a real comment", func() {
			_, err := svc.Reject(dataHead, req.ID, request.ReviewDTO{Comment: "no"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})
	})

	Describe("ReviewableRequests", func() {
		It("forbids employees", func() {
			_, err := svc.ReviewableRequests(employee)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
		})

		It("lists pending requests for a head", func() {
			_, err := svc.Create(employee, request.CreateRequestDTO{ServiceID: 100})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Create(otherEmployee, request.CreateRequestDTO{ServiceID: 100})
			Expect(err).NotTo(HaveOccurred())

			pending, err := svc.ReviewableRequests(infraHead)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(2))
		})
	})
})
