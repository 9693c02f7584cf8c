package domain

// Side is one half of a consultation room.
type Side string

const (
	SideDoctor  Side = "doctor"
	SidePatient Side = "patient"
)

// Opposite returns the side that receives relayed offers, answers and
// candidates.
func (s Side) Opposite() Side {
	if s == SideDoctor {
		return SidePatient
	}
	return SideDoctor
}

// RoomStats is a point-in-time view of registry occupancy.
type RoomStats struct {
	Rooms       int `json:"rooms"`
	Doctors     int `json:"doctors"`
	Connections int `json:"doctor_connections"`
}
