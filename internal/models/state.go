package models

import "strings"

// State is the authoritative severity classification of one time step.
type State string

const (
	StateNormal State = "NORMAL"
	StateAlerta State = "ALERTA"
	StateAlarma State = "ALARMA"
)

// States lists every valid state in increasing severity.
var States = []State{StateNormal, StateAlerta, StateAlarma}

// ParseState maps a case-insensitive label onto a State.
func ParseState(s string) (State, bool) {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case StateNormal:
		return StateNormal, true
	case StateAlerta:
		return StateAlerta, true
	case StateAlarma:
		return StateAlarma, true
	}
	return "", false
}

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	return s.Severity() >= 0
}

// Severity orders states: NORMAL=0, ALERTA=1, ALARMA=2. Unknown states are -1.
func (s State) Severity() int {
	switch s {
	case StateNormal:
		return 0
	case StateAlerta:
		return 1
	case StateAlarma:
		return 2
	}
	return -1
}

func (s State) String() string { return string(s) }

// DecisionSource tells whether a classification came from operator rules or
// from the statistically estimated thresholds.
type DecisionSource string

const (
	SourceFixed    DecisionSource = "fixed"
	SourceAdaptive DecisionSource = "adaptive"
)
