package rbac

// Role names. Keep these stable; they are embedded in access tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsKnownRole(role string) bool { return role == RoleUser || role == RoleAdmin }
