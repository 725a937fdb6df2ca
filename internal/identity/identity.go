// Package identity models the authenticated caller. Token issuance and
// validation happen upstream; this package only carries the resolved
// identity through the pipelines.
package identity

// Roles recognized by the assistant.
const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleAdmin   = "ADMIN"
)

// Identity is the resolved caller of a request.
type Identity struct {
	Email string
	Role  string
	// ClassCode is the class the caller belongs to. Only meaningful for
	// students; staff see the whole corpus.
	ClassCode string
}

// ValidRole reports whether role is one of the recognized roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Scope returns the class scope to apply to searches: students are
// confined to their class, everyone else searches unfiltered.
func (id Identity) Scope() string {
	if id.Role == RoleStudent {
		return id.ClassCode
	}
	return ""
}
