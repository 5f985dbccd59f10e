package domain

// Actor is the authenticated principal performing an operation. Services take
// it explicitly rather than reading a current user from context.
type Actor struct {
	ID   PrincipalID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin && !a.ID.IsNil()
}

func (a Actor) IsCustomer() bool {
	return a.Role == RoleCustomer && !a.ID.IsNil()
}
