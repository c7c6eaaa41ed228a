package domain

// Role enumerates the fixed set of principal roles.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the enumerated values.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Staff reports whether the role is an internal operator role.
func (r Role) Staff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// Principal is an authenticated caller. The role is fixed for the duration
// of one operation; there is no server-side session state behind it.
type Principal struct {
	ID   string
	Role Role
}
