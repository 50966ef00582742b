// Package plugin holds the monitoring-plugin conventions shared by the checker:
// the four states and the single status line format.
package plugin

import "fmt"

// State is a monitoring-plugin state, used both for the monitored object and
// as the process exit code.
type State int

const (
	StateOK State = iota
	StateWarning
	StateCritical
	StateUnknown
)

// String returns the upper-case state name
func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	case StateUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ExitCode returns the process exit code for the state
func (s State) ExitCode() int {
	return int(s)
}

// Valid reports whether s is one of the four plugin states
func (s State) Valid() bool {
	return s >= StateOK && s <= StateUnknown
}

// StateFromExitStatus converts an exit status reported by the monitoring
// server into a State.
func StateFromExitStatus(status int) (State, error) {
	s := State(status)
	if !s.Valid() {
		return StateUnknown, fmt.Errorf("exit status %d is outside the plugin range 0-3", status)
	}
	return s, nil
}
