package ledger

import (
	"time"

	"skledger/internal/core"
)

// State is the save state of one period as seen by the controller.
type State int

const (
	NotVisited State = iota
	Clean
	Dirty
	Saving
)

func (s State) String() string {
	switch s {
	case NotVisited:
		return "not-visited"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status describes a period's save state.
type Status struct {
	Key       core.PeriodKey `json:"key"`
	State     State          `json:"state"`
	LastError string         `json:"lastError,omitempty"`
	LastSaved *time.Time     `json:"lastSaved,omitempty"`
	Revision  uint64         `json:"revision"`
}

// View is everything a client needs to render one period.
type View struct {
	Key    core.PeriodKey    `json:"key"`
	Label  string            `json:"label"`
	Record core.PeriodRecord `json:"record"`
	Totals core.Totals       `json:"totals"`
	Limit  int               `json:"accountLimit"`
	Status Status            `json:"status"`
}

type periodState struct {
	rec               core.PeriodRecord
	state             State
	timer             Timer
	timerSeq          uint64
	mutatedDuringSave bool
	lastErr           error
	lastSaved         time.Time
	revision          uint64
}

func (ps *periodState) status(key core.PeriodKey) Status {
	st := Status{Key: key, State: ps.state, Revision: ps.revision}
	if ps.lastErr != nil {
		st.LastError = ps.lastErr.Error()
	}
	if !ps.lastSaved.IsZero() {
		t := ps.lastSaved
		st.LastSaved = &t
	}
	return st
}
