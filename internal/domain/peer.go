package domain

// ConnState tracks a signaling connection through its lifecycle.
type ConnState string

const (
	ConnStateConnecting    ConnState = "connecting"
	ConnStateAuthenticated ConnState = "authenticated"
	ConnStateJoined        ConnState = "joined"
	ConnStateClosed        ConnState = "closed"
)

// CanTransition reports whether moving from s to next is allowed.
// Closed is terminal; every other state may close.
func (s ConnState) CanTransition(next ConnState) bool {
	if s == ConnStateClosed {
		return false
	}
	switch next {
	case ConnStateClosed:
		return true
	case ConnStateAuthenticated:
		return s == ConnStateConnecting
	case ConnStateJoined:
		return s == ConnStateAuthenticated || s == ConnStateJoined
	}
	return false
}
