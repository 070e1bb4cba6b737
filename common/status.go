package common

// Status is the closed set of generation states the client reasons about.
type Status string

const (
	Idle       Status = "idle"
	Submitting Status = "submitting"
	Queued     Status = "queued"
	Running    Status = "running"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
	Failed     Status = "failed"
)

// FallbackStatus is what any unrecognised backend status normalises to. A
// status the client has never seen keeps the poller alive instead of failing
// the generation.
const FallbackStatus = InProgress

// Raw statuses the backend is known to report.
const (
	RawProcessing = "processing"
)

var statusTable = map[string]Status{
	string(Idle):       Idle,
	string(Submitting): Submitting,
	string(Queued):     Queued,
	string(Running):    Running,
	RawProcessing:      InProgress,
	string(InProgress): InProgress,
	string(Completed):  Completed,
	string(Failed):     Failed,
}

// Normalize maps an open-ended backend status onto the canonical set.
// Matching is exact; everything outside the table yields FallbackStatus.
func Normalize(raw string) Status {
	if s, ok := statusTable[raw]; ok {
		return s
	}
	return FallbackStatus
}

// IsKnownStatus reports whether raw is part of the backend vocabulary the
// normaliser recognises.
func IsKnownStatus(raw string) bool {
	_, ok := statusTable[raw]
	return ok
}

// Busy reports whether work is outstanding in this status.
func (s Status) Busy() bool {
	switch s {
	case Submitting, Queued, Running, InProgress:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
