package domain

// Permission names understood by the client feature gates.
const (
	PermissionRead     = "read"
	PermissionWrite    = "write"
	PermissionModerate = "moderate"
	PermissionAdmin    = "admin"
)

var rolePermissions = map[string][]string{
	"user":      {PermissionRead},
	"premium":   {PermissionRead, PermissionWrite},
	"moderator": {PermissionRead, PermissionWrite, PermissionModerate},
	"admin":     {PermissionRead, PermissionWrite, PermissionModerate, PermissionAdmin},
}

// PermissionsForRole resolves the static role to permission-set mapping.
// Unknown roles fall back to the plain user grant.
func PermissionsForRole(role string) []string {
	grants, ok := rolePermissions[role]
	if !ok {
		grants = rolePermissions["user"]
	}
	out := make([]string, len(grants))
	copy(out, grants)
	return out
}
