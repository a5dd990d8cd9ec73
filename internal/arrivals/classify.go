package arrivals

import "fmt"

// Status is the display classification of an arrival. It is derived on
// demand and never stored.
type Status int

const (
	StatusNone Status = iota
	StatusArrivingSoon
	StatusDelayed
)

func (s Status) String() string {
	switch s {
	case StatusArrivingSoon:
		return "arriving-soon"
	case StatusDelayed:
		return "delayed"
	default:
		return ""
	}
}

// Classify returns the arrival's status. Arriving soon wins over delayed.
func Classify(a ScheduledArrival, arrivingSoon int) Status {
	if a.ETA() < arrivingSoon {
		return StatusArrivingSoon
	}
	if a.Delayed {
		return StatusDelayed
	}
	return StatusNone
}

// DashKind says whether a rider can still make the train.
type DashKind int

const (
	DashTooLate DashKind = iota
	DashLeaveNow
	DashLeaveIn
)

func (k DashKind) String() string {
	switch k {
	case DashTooLate:
		return "too-late"
	case DashLeaveNow:
		return "leave-now"
	default:
		return "leave-in"
	}
}

// Dash is the dash-mode verdict for an arrival.
type Dash struct {
	Kind    DashKind
	Minutes int // minutes to spare, set for DashLeaveIn
}

// DashFor compares the rounded-up ETA with the walk buffer.
func DashFor(minutes float64, walkBuffer int) Dash {
	margin := ceilMinutes(minutes) - walkBuffer
	switch {
	case margin < 0:
		return Dash{Kind: DashTooLate}
	case margin == 0:
		return Dash{Kind: DashLeaveNow}
	default:
		return Dash{Kind: DashLeaveIn, Minutes: margin}
	}
}

// Label is the human-readable verdict.
func (d Dash) Label() string {
	switch d.Kind {
	case DashTooLate:
		return "Too late"
	case DashLeaveNow:
		return "Leave now"
	}
	if d.Minutes == 1 {
		return "Leave in 1 minute"
	}
	return fmt.Sprintf("Leave in %d minutes", d.Minutes)
}
