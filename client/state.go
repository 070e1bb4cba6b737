package client

import "github.com/colsephiroth/storyreel/common"

// State is a read-only snapshot of a Reconciler. The Is* methods are the only
// way to ask derived questions; there is nothing to set.
type State struct {
	Status    common.Status
	RawStatus string
	JobID     string
	ResultURL string
	Prompt    string
	Err       error
	// Polling is true while a poll chain is scheduled or in flight.
	Polling bool

	version uint64
}

func (s State) IsSubmitting() bool {
	return s.Status == common.Submitting
}

func (s State) IsBusy() bool {
	return s.Status.Busy()
}

func (s State) IsCompleted() bool {
	return s.Status == common.Completed && s.ResultURL != ""
}

func (s State) IsFailed() bool {
	return s.Status == common.Failed
}

// Settled reports that nothing is outstanding: no poll chain and no busy status.
func (s State) Settled() bool {
	return !s.Polling && !s.IsBusy()
}

func (s State) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
