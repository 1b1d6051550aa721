// Package policy holds the single owner-or-admin rule applied before every
// mutation of an owned resource.
package policy

import "cardanocart/internal/models"

// Actor is the authenticated caller, passed explicitly through the call chain.
type Actor struct {
	ID       string
	Username string
	Role     models.Role
}

// Anonymous is the zero Actor.
var Anonymous = Actor{}

func (a Actor) IsAuthenticated() bool { return a.ID != "" }

func (a Actor) IsAdmin() bool { return a.IsAuthenticated() && a.Role == models.RoleAdmin }

// Owned is implemented by every resource with an owner.
type Owned interface {
	OwnerID() string
}

// CanMutate reports whether actor may update or delete resource: the actor
// must own it or be an admin. Reads never go through this check.
func CanMutate(actor Actor, resource Owned) bool {
	if !actor.IsAuthenticated() {
		return false
	}
	return actor.ID == resource.OwnerID() || actor.IsAdmin()
}
