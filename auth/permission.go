package auth

// Higher permissions include lower permissions.
type Permission int

const (
	None   Permission = 1
	Read   Permission = 100
	Create Permission = 200 // add documents below the path
	Remove Permission = 400 // remove, rename and move documents below the path
	Admin  Permission = 500 // cancel foreign requests, unlock foreign drafts, edit access rules
)

func (p Permission) String() string {
	switch p {
	case None:
		return "none"
	case Read:
		return "read"
	case Create:
		return "create"
	case Remove:
		return "remove"
	case Admin:
		return "admin"
	}
	return "unknown"
}

func (p Permission) Valid() bool {
	switch p {
	case None, Read, Create, Remove, Admin:
		return true
	default:
		return false
	}
}

// ParsePermission is the inverse of Permission.String.
func ParsePermission(s string) (Permission, bool) {
	for _, p := range []Permission{None, Read, Create, Remove, Admin} {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}
