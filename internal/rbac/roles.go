package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleTalker     = "talker"   // initiates paid sessions
	RoleListener   = "listener" // receives sessions and payouts
	RoleModerator  = "moderator"
	RoleSuperAdmin = "super_admin"
	// RoleTransport is the realtime gateway's service account. It alone
	// reports connection and elapsed time for sessions.
	RoleTransport  = "transport"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// IsStaff reports roles that never appear as a session participant.
func IsStaff(role string) bool { return role == RoleModerator || role == RoleSuperAdmin }

// IsKnownRole reports whether role is one of the roles above.
func IsKnownRole(role string) bool {
	switch role {
	case RoleTalker, RoleListener, RoleModerator, RoleSuperAdmin, RoleTransport:
		return true
	default:
		return false
	}
}

func IsTransport(role string) bool { return role == RoleTransport }

// IsReportable reports whether an account with this role can be the subject of a complaint.
// Only talkers are reportable; listeners are vetted separately.
func IsReportable(role string) bool { return role == RoleTalker }
