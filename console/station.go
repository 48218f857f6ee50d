package console

import (
	"context"
	"fmt"

	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/competition"
	"github.com/calvinmclean/compbot/input"
	"github.com/calvinmclean/compbot/panel"
	"github.com/calvinmclean/compbot/routine"
)

// Station is the Controller for a running robot. Selections and debug runs go through the
// panel so the touchscreen stays in sync.
type Station struct {
	Panel    *panel.Panel
	Robot    *competition.Robot
	Registry *routine.Registry

	// Phase reports the lifecycle phase for Status. It may be nil.
	Phase func() compbot.Phase

	// Gamepad is the controller receiver, if one is attached
	Gamepad GamepadStats
}

// GamepadStats is implemented by input.SerialSource
type GamepadStats interface {
	Errors() int
}

var (
	_ Controller   = &Station{}
	_ GamepadStats = &input.SerialSource{}
)

func (s *Station) Select(id compbot.RoutineID) error {
	return s.Panel.Select(id)
}

func (s *Station) TriggerDebug() {
	s.Panel.TriggerDebug()
}

func (s *Station) RunAutonomous(ctx context.Context) error {
	return s.Robot.RunAutonomous(ctx)
}

func (s *Station) StopAll() error {
	return s.Robot.Devices.StopAll()
}

func (s *Station) Routines() []string {
	return s.Registry.Names()
}

func (s *Station) Status() string {
	state := s.Robot.State
	phase := compbot.PhaseUnknown
	if s.Phase != nil {
		phase = s.Phase()
	}

	selected := state.Selected()
	status := fmt.Sprintf("phase=%s selected=%d (%s) debug=%t autonomous=%t",
		phase,
		selected,
		s.Registry.Name(selected),
		state.DebugRunning(),
		state.AutonomousRunning(),
	)
	if s.Gamepad != nil {
		status += fmt.Sprintf(" gamepad_errors=%d", s.Gamepad.Errors())
	}
	return status
}
