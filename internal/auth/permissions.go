package auth

import (
	shareDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/share"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
)

// Permission predicates. Every authorization decision in the system goes
// through these functions; callers must not re-implement department or role
// comparisons inline. All predicates are total and side-effect free.

// IsGlobalScope reports whether the actor bypasses department scoping.
func IsGlobalScope(actor *userDatamodel.User) bool {
	return actor != nil && actor.IsSuperuser
}

// CanManage gates entry into any administrative capability: department heads
// and superusers only.
func CanManage(actor *userDatamodel.User) bool {
	if actor == nil {
		return false
	}
	return actor.IsDepartmentHead() || IsGlobalScope(actor)
}

// CanWriteDepartment is the single place department equality is compared.
// It governs creating/editing users and credentials and reviewing access
// requests for a department.
func CanWriteDepartment(actor *userDatamodel.User, targetDepartmentID *int64) bool {
	if actor == nil {
		return false
	}
	if IsGlobalScope(actor) {
		return true
	}
	if !actor.IsDepartmentHead() {
		return false
	}
	if targetDepartmentID == nil || actor.DepartmentID == nil {
		return false
	}
	return *actor.DepartmentID == *targetDepartmentID
}

// CanManageUser adds the lateral-write restriction on top of
// CanWriteDepartment: a head may only manage plain employees, never peer
// heads or superusers.
func CanManageUser(actor, target *userDatamodel.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if IsGlobalScope(actor) {
		return true
	}
	if target.IsSuperuser || target.Role != userDatamodel.RoleEmployee {
		return false
	}
	return CanWriteDepartment(actor, target.DepartmentID)
}

// CanReviewRequest holds for superusers and for heads of the requester's
// department. Department shares never extend review rights.
func CanReviewRequest(actor, requester *userDatamodel.User) bool {
	if actor == nil || requester == nil {
		return false
	}
	if IsGlobalScope(actor) {
		return true
	}
	if !actor.IsDepartmentHead() {
		return false
	}
	return requester.DepartmentID != nil && actor.InDepartment(*requester.DepartmentID)
}

// CanRevokeShare holds for superusers and for the current head of the shared
// department. The grantee can read through the share but never revoke it.
func CanRevokeShare(actor *userDatamodel.User, s *shareDatamodel.DepartmentShare) bool {
	if actor == nil || s == nil {
		return false
	}
	if IsGlobalScope(actor) {
		return true
	}
	return actor.IsDepartmentHead() && actor.InDepartment(s.DepartmentID)
}
