// Package policy decides whether a caller may perform an action on a
// resource. It is a single decision table over the closed role set
// anonymous < user < moderator < admin; nothing is cached between calls.
package policy

import (
	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// Action is an operation a controller is about to perform.
type Action string

const (
	ActionList          Action = "list"
	ActionRetrieve      Action = "retrieve"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionPartialUpdate Action = "partial_update"
	ActionDelete        Action = "delete"
)

// IsRead reports whether a is a safe (non-mutating) action.
func (a Action) IsRead() bool {
	return a == ActionList || a == ActionRetrieve
}

// Kind identifies the resource family a rule applies to.
type Kind string

const (
	KindTitle    Kind = "title"
	KindCategory Kind = "category"
	KindGenre    Kind = "genre"
	KindReview   Kind = "review"
	KindComment  Kind = "comment"
	KindUser     Kind = "user"
	// KindSelf is the caller's own account reached through /users/me/.
	KindSelf Kind = "self"
)

// Caller is the authenticated identity behind a request. The zero value is
// an anonymous caller.
type Caller struct {
	ID       int64
	Username string
	Role     domain.Role
}

// Anonymous reports whether the caller presented no credentials.
func (c Caller) Anonymous() bool {
	return c.Username == "" || !c.Role.Valid()
}

// Target is the resource being acted on. OwnerID is the author's user id
// for reviews and comments and zero otherwise.
type Target struct {
	Kind    Kind
	OwnerID int64
}

// Allowed reports whether caller may perform action on target.
func Allowed(caller Caller, action Action, target Target) bool {
	authenticated := !caller.Anonymous()

	switch target.Kind {
	case KindTitle, KindCategory, KindGenre:
		if action.IsRead() {
			return true
		}
		return authenticated && caller.Role.AtLeast(domain.RoleAdmin)

	case KindReview, KindComment:
		switch {
		case action.IsRead():
			return true
		case action == ActionCreate:
			return authenticated
		default:
			if !authenticated {
				return false
			}
			return (target.OwnerID != 0 && caller.ID == target.OwnerID) || caller.Role.AtLeast(domain.RoleModerator)
		}

	case KindUser:
		return authenticated && caller.Role.AtLeast(domain.RoleAdmin)

	case KindSelf:
		if !authenticated {
			return false
		}
		return action == ActionRetrieve || action == ActionPartialUpdate
	}

	return false
}

// Authorize is Allowed expressed as an error: nil when permitted,
// ErrAuthenticationRequired for anonymous callers and ErrPermissionDenied
// otherwise.
func Authorize(caller Caller, action Action, target Target) error {
	if Allowed(caller, action, target) {
		return nil
	}
	if caller.Anonymous() {
		return domain.ErrAuthenticationRequired
	}
	return domain.ErrPermissionDenied
}
