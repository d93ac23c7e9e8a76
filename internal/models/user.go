package models

// UserRole represents the fixed roles of the grievance escalation chain.
type UserRole string

const (
	RoleStudent     UserRole = "student"
	RoleProctor     UserRole = "proctor"
	RoleClusterHead UserRole = "cluster_head"
	RoleHOD         UserRole = "hod"
	RolePrincipal   UserRole = "principal"
)

// Roles lists every role in escalation order.
var Roles = []UserRole{RoleStudent, RoleProctor, RoleClusterHead, RoleHOD, RolePrincipal}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// DisplayName is the human label used in exports and UIs.
func (r UserRole) DisplayName() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleProctor:
		return "Proctor"
	case RoleClusterHead:
		return "Cluster Head"
	case RoleHOD:
		return "Head of Department"
	case RolePrincipal:
		return "Principal"
	default:
		return string(r)
	}
}

// User is the authenticated identity held by a session.
type User struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Role       UserRole `json:"role"`
	Department string   `json:"department"`
	Email      string   `json:"email,omitempty"`
	USN        string   `json:"usn,omitempty"`
	Semester   int      `json:"semester,omitempty"`
	Section    string   `json:"section,omitempty"`
	ProctorID  string   `json:"proctorId,omitempty"`
	ClusterID  string   `json:"clusterId,omitempty"`
}

// StudentUSN returns the directory key for a student user, falling back to the login id.
func (u User) StudentUSN() string {
	if u.USN != "" {
		return u.USN
	}
	return u.ID
}
