package identity

// UserType classifies an account. The backend issues it as the "type" claim
// of the identity token.
type UserType string

const (
	UserTypeSuperAdmin UserType = "superadmin"
	UserTypeAdmin      UserType = "admin"
	UserTypeEmployee   UserType = "employee"
	UserTypeCandidate  UserType = "candidate"
)

// ModuleAccess holds the per-feature entitlements encoded as claims on the
// identity token.
type ModuleAccess struct {
	Leave             bool `json:"leave"`
	Performance       bool `json:"performance"`
	Timesheet         bool `json:"timesheet"`
	ExpenseManagement bool `json:"expenseManagement"`
	Recruitment       bool `json:"recruitment"`
	SalesMarketing    bool `json:"salesMarketing"`
}

// User is the materialized identity decoded from an id_token. It is derived
// state: it is rebuilt from the token on every login and refresh and is never
// mutated independently.
type User struct {
	ID            string       `json:"id"`
	UserName      string       `json:"userName"`
	FullName      string       `json:"fullName"`
	Email         string       `json:"email"`
	PhoneNumber   string       `json:"phoneNumber,omitempty"`
	Roles         []string     `json:"roles"`
	Permissions   []string     `json:"permissions"`
	Type          UserType     `json:"type"`
	ModuleAccess  ModuleAccess `json:"moduleAccess"`
	Configuration string       `json:"configuration,omitempty"`
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the user holds the given permission.
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the account type is superadmin.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Type == UserTypeSuperAdmin
}
