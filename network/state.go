package network

// State is the position of a session in the signaling handshake.
type State int

const (
	StateDisconnected State = iota
	StateJoined
	StateOffering
	StateAnswering
	StateChannelOpen
	StatePlaying
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateJoined:
		return "joined"
	case StateOffering:
		return "offering"
	case StateAnswering:
		return "answering"
	case StateChannelOpen:
		return "channel-open"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// canAdvance reports whether the game may move a session from s to next.
// Handshake states are driven by signaling only.
func (s State) canAdvance(next State) bool {
	switch next {
	case StatePlaying:
		return s == StateChannelOpen || s == StateEnded
	case StateEnded:
		return s == StatePlaying
	}
	return false
}
