package auth_test

import (
	"testing"
	"time"

	"github.com/frahmantamala/credential-vault/internal/auth"
	shareDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/share"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

func deptID(id int64) *int64 {
	return &id
}

func employee(id int64, department int64) *userDatamodel.User {
	return &userDatamodel.User{ID: id, Role: userDatamodel.RoleEmployee, DepartmentID: deptID(department), IsActive: true}
}

func head(id int64, department int64) *userDatamodel.User {
	return &userDatamodel.User{ID: id, Role: userDatamodel.RoleHead, DepartmentID: deptID(department), IsActive: true}
}

func superuser(id int64) *userDatamodel.User {
	return &userDatamodel.User{ID: id, Role: userDatamodel.RoleEmployee, IsSuperuser: true, IsActive: true}
}

var _ = Describe("Permission predicates", func() {
	Describe("IsGlobalScope", func() {
		It("is true only for the superuser flag", func() {
			Expect(auth.IsGlobalScope(superuser(1))).To(BeTrue())
			Expect(auth.IsGlobalScope(head(2, 10))).To(BeFalse())
			Expect(auth.IsGlobalScope(employee(3, 10))).To(BeFalse())
		})

		It("is false for a nil actor", func() {
			Expect(auth.IsGlobalScope(nil)).To(BeFalse())
		})
	})

	Describe("CanManage", func() {
		It("admits heads and superusers only", func() {
			Expect(auth.CanManage(head(1, 10))).To(BeTrue())
			Expect(auth.CanManage(superuser(2))).To(BeTrue())
			Expect(auth.CanManage(employee(3, 10))).To(BeFalse())
			Expect(auth.CanManage(nil)).To(BeFalse())
		})
	})

	Describe("CanWriteDepartment", func() {
		It("allows a head only in their own department", func() {
			Expect(auth.CanWriteDepartment(head(1, 10), deptID(10))).To(BeTrue())
			Expect(auth.CanWriteDepartment(head(1, 10), deptID(11))).To(BeFalse())
		})

		It("always allows global scope", func() {
			Expect(auth.CanWriteDepartment(superuser(1), deptID(99))).To(BeTrue())
			Expect(auth.CanWriteDepartment(superuser(1), nil)).To(BeTrue())
		})

		It("rejects employees regardless of department", func() {
			Expect(auth.CanWriteDepartment(employee(1, 10), deptID(10))).To(BeFalse())
		})

		It("rejects nil department on either side", func() {
			departmentless := &userDatamodel.User{ID: 1, Role: userDatamodel.RoleHead}
			Expect(auth.CanWriteDepartment(departmentless, deptID(10))).To(BeFalse())
			Expect(auth.CanWriteDepartment(head(1, 10), nil)).To(BeFalse())
		})
	})

	Describe("CanManageUser", func() {
		It("lets a head manage an employee of their department", func() {
			Expect(auth.CanManageUser(head(1, 10), employee(2, 10))).To(BeTrue())
		})

		It("never lets a head manage a peer head", func() {
			Expect(auth.CanManageUser(head(1, 10), head(2, 10))).To(BeFalse())
		})

		It("never lets a head manage a superuser", func() {
			target := superuser(2)
			target.DepartmentID = deptID(10)
			Expect(auth.CanManageUser(head(1, 10), target)).To(BeFalse())
		})

		It("lets a superuser manage anyone", func() {
			Expect(auth.CanManageUser(superuser(1), head(2, 10))).To(BeTrue())
			Expect(auth.CanManageUser(superuser(1), superuser(2))).To(BeTrue())
		})

		It("blocks cross-department employee writes", func() {
			Expect(auth.CanManageUser(head(1, 10), employee(2, 11))).To(BeFalse())
		})
	})

	Describe("CanReviewRequest", func() {
		It("admits the head of the requester's department", func() {
			Expect(auth.CanReviewRequest(head(1, 10), employee(2, 10))).To(BeTrue())
			Expect(auth.CanReviewRequest(head(1, 11), employee(2, 10))).To(BeFalse())
		})

		It("admits superusers unconditionally", func() {
			Expect(auth.CanReviewRequest(superuser(1), employee(2, 10))).To(BeTrue())
		})

		It("rejects employees", func() {
			Expect(auth.CanReviewRequest(employee(1, 10), employee(2, 10))).To(BeFalse())
		})
	})

	Describe("CanRevokeShare", func() {
		share := &shareDatamodel.DepartmentShare{
			ID:           1,
			DepartmentID: 10,
			GrantorID:    1,
			GranteeID:    2,
			ExpiresAt:    time.Now().Add(time.Hour),
			IsActive:     true,
		}

		It("admits the head of the shared department", func() {
			Expect(auth.CanRevokeShare(head(1, 10), share)).To(BeTrue())
		})

		It("admits superusers", func() {
			Expect(auth.CanRevokeShare(superuser(3), share)).To(BeTrue())
		})

		It("never admits the grantee", func() {
			Expect(auth.CanRevokeShare(head(2, 11), share)).To(BeFalse())
		})
	})
})
