package domain

// Role is the caller classification carried by a session identity.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleVisitor Role = "visitor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RolePatient, RoleVisitor, RoleAdmin:
		return true
	}
	return false
}

// Identity is derived once per connection from a verified token and never
// changes for the life of that connection.
type Identity struct {
	SubjectID      string `json:"subject_id"`
	Role           Role   `json:"role"`
	ConsultationID string `json:"consultation_id,omitempty"`
}

// BindsConsultation reports whether the token pinned the identity to one
// consultation. Only patient tokens do.
func (i Identity) BindsConsultation() bool {
	return i.ConsultationID != ""
}

// IsDoctorChannel reports whether the identity is reachable through the
// doctor connection index. Admins are doctor-shaped identities.
func (i Identity) IsDoctorChannel() bool {
	return i.Role == RoleDoctor || i.Role == RoleAdmin
}

// Side is the room side a connection of this identity joins.
func (i Identity) Side() Side {
	if i.IsDoctorChannel() {
		return SideDoctor
	}
	return SidePatient
}
