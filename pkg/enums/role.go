package enums

// Role is the coarse actor role carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleTenant   Role = "tenant"
	RoleAdmin    Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleTenant, RoleAdmin:
		return true
	}
	return false
}
