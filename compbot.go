package compbot

// RoutineID identifies a slot in the autonomous selector. Slots are 1-based to match the
// labels on the selector buttons.
type RoutineID int

// Phase is the competition period that the field controller (or competition switch) reports
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseDisabled
	PhaseAutonomous
	PhaseOpControl
)

func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "Disabled"
	case PhaseAutonomous:
		return "Autonomous"
	case PhaseOpControl:
		return "OpControl"
	default:
		fallthrough
	case PhaseUnknown:
		return "Unknown"
	}
}

// Next returns the phase that follows p in a regular match
func (p Phase) Next() Phase {
	switch p {
	case PhaseAutonomous:
		return PhaseOpControl
	case PhaseOpControl:
		return PhaseDisabled
	default:
		return PhaseAutonomous
	}
}
