package ws

import "sync/atomic"

// ConnState is the lifecycle position of a stream connection.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	// StateClosed is terminal; a closed client never reconnects.
	StateClosed
)

// String returns the state name.
func (s ConnState) String() string {
	return [...]string{
		"disconnected",
		"connecting",
		"connected",
		"reconnecting",
		"closed",
	}[s]
}

// State is an atomically updated ConnState.
type State struct {
	v atomic.Int32
}

// Load returns the current state.
func (s *State) Load() ConnState {
	return ConnState(s.v.Load())
}

// Store sets the state unconditionally.
func (s *State) Store(state ConnState) {
	s.v.Store(int32(state))
}

// CompareAndSwap moves from old to new, reporting whether it did.
func (s *State) CompareAndSwap(old, new ConnState) bool {
	return s.v.CompareAndSwap(int32(old), int32(new))
}
