// Package selection holds the process-wide autonomous selection and the ownership of the
// robot's actuators between debug runs and the autonomous period.
package selection

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/calvinmclean/compbot"
)

// ErrOutOfRange is returned when a RoutineID outside of the selector's slots is stored
var ErrOutOfRange = errors.New("routine id out of range")

const (
	ownerNone int32 = iota
	ownerDebug
	ownerAutonomous
)

// State is shared by the selector panel, the debug runner, the autonomous dispatcher and the
// teleop loop. All methods are safe for concurrent use and never block.
type State struct {
	slots    int
	selected atomic.Int32

	// owner tells who is currently allowed to command the actuators outside of teleop.
	// Debug runs and the autonomous period share it so they can never overlap.
	owner atomic.Int32
}

// New creates a State for a selector with the given number of routine slots. The first
// routine is selected.
func New(slots int) *State {
	if slots < 1 {
		slots = 1
	}
	s := &State{slots: slots}
	s.selected.Store(1)
	return s
}

// Slots returns the number of selectable routine slots
func (s *State) Slots() int {
	return s.slots
}

// Selected returns the currently selected routine
func (s *State) Selected() compbot.RoutineID {
	return compbot.RoutineID(s.selected.Load())
}

// SetSelected stores id if it is within 1..Slots. Anything else is rejected and the
// previous selection is kept.
func (s *State) SetSelected(id compbot.RoutineID) error {
	if id < 1 || int(id) > s.slots {
		return fmt.Errorf("%w: %d not in 1..%d", ErrOutOfRange, id, s.slots)
	}
	s.selected.Store(int32(id))
	return nil
}

// DebugRunning reports whether a debug run is in flight
func (s *State) DebugRunning() bool {
	return s.owner.Load() == ownerDebug
}

// SetDebugRunning marks a debug run as started (true) or finished (false). It returns false
// when the transition did not happen: starting while a debug or autonomous run already owns
// the actuators, or finishing when no debug run was in flight.
func (s *State) SetDebugRunning(running bool) bool {
	if running {
		return s.owner.CompareAndSwap(ownerNone, ownerDebug)
	}
	return s.owner.CompareAndSwap(ownerDebug, ownerNone)
}

// Owned reports whether a debug run or the autonomous dispatcher owns the actuators
func (s *State) Owned() bool {
	return s.owner.Load() != ownerNone
}

// AutonomousRunning reports whether the autonomous dispatcher is running a routine
func (s *State) AutonomousRunning() bool {
	return s.owner.Load() == ownerAutonomous
}

// BeginAutonomous takes ownership of the actuators for the autonomous period. It fails if a
// debug run is still in flight.
func (s *State) BeginAutonomous() bool {
	return s.owner.CompareAndSwap(ownerNone, ownerAutonomous)
}

// EndAutonomous releases ownership taken by BeginAutonomous
func (s *State) EndAutonomous() {
	s.owner.CompareAndSwap(ownerAutonomous, ownerNone)
}
