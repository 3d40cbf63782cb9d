package enums

// MemberRole is the role claim carried by access tokens.
type MemberRole string

const (
	MemberRoleVendor MemberRole = "vendor"
	MemberRoleAdmin  MemberRole = "admin"
)

var validMemberRoles = []MemberRole{
	MemberRoleVendor,
	MemberRoleAdmin,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	return oneOf(m, validMemberRoles)
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	return parse(value, validMemberRoles, "member role")
}
