// Package policy decides who may do what with reservations and the catalog.
// Functions here are pure: no storage access, no side effects.
package policy

import "github.com/IlyushaZ/vinyl-store/pkg/model"

// CanViewOwn reports whether p owns the reservation.
func CanViewOwn(p model.Principal, r model.Reservation) bool {
	return p.Authenticated() && p.ID == r.OwnerID
}

func CanListAll(p model.Principal) bool {
	return p.IsAdmin()
}

// CanTransition does not depend on ownership: owners can't change status of their own reservations,
// only admins move reservations between statuses.
func CanTransition(p model.Principal, _ model.Reservation, _ model.Status) bool {
	return p.IsAdmin()
}

func CanManageCatalog(p model.Principal) bool {
	return p.IsAdmin()
}
