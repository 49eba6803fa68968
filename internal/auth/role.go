package auth

// Role is the account kind carried in the access token.
type Role string

const (
	RoleClient       Role = "CLIENT"
	RoleGroomerOwner Role = "GROOMER_OWNER"
	RoleGroomerStaff Role = "GROOMER_STAFF"
	RoleAdmin        Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleGroomerOwner, RoleGroomerStaff, RoleAdmin:
		return true
	}
	return false
}

// IsBusinessSide reports whether the role acts on behalf of a grooming business.
func (r Role) IsBusinessSide() bool {
	return r == RoleGroomerOwner || r == RoleGroomerStaff
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   Role
}
