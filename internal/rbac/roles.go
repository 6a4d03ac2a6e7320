package rbac

// Role names. Keep these stable; they are part of the auth contract.
//
// Operators manage vehicle records; admins additionally see the audit log.
const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
