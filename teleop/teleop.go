// Package teleop maps the driver's gamepad to the drivetrain and mechanisms during manual
// control.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/compbot/hardware"
	"github.com/calvinmclean/compbot/input"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTick           = 20 * time.Millisecond
	DefaultIntakeVoltage  = 12000
	DefaultLiftVoltage    = 8000
	DefaultSlowMultiplier = 0.5
)

// ReverseMode controls how a mechanism's reverse button behaves
type ReverseMode int

const (
	// ReverseToggle flips direction on each new press
	ReverseToggle ReverseMode = iota
	// ReverseHold runs reversed only while the button is held
	ReverseHold
)

func (m ReverseMode) String() string {
	switch m {
	case ReverseHold:
		return "hold"
	default:
		fallthrough
	case ReverseToggle:
		return "toggle"
	}
}

// ParseReverseMode reads "toggle" or "hold"
func ParseReverseMode(s string) (ReverseMode, error) {
	switch s {
	case "toggle", "":
		return ReverseToggle, nil
	case "hold":
		return ReverseHold, nil
	default:
		return ReverseToggle, fmt.Errorf("invalid reverse mode %q", s)
	}
}

// Binding is the set of buttons that control one mechanism
type Binding struct {
	Toggle  input.Button
	Reverse input.Button
	Slow    input.Button
}

// Mechanism is a single motor run at a fixed voltage that the driver switches on and off
type Mechanism struct {
	Name           string
	Motor          hardware.Motor
	Binding        Binding
	Voltage        int
	SlowMultiplier float64
	ReverseMode    ReverseMode

	Active   bool
	Reversed bool
	Slow     bool
}

// Update applies button edges from the latest poll
func (m *Mechanism) Update(g *input.Gamepad) {
	if g.NewPress(m.Binding.Toggle) {
		m.Active = !m.Active
	}

	switch m.ReverseMode {
	case ReverseHold:
		m.Reversed = g.Pressed(m.Binding.Reverse)
	default:
		if g.NewPress(m.Binding.Reverse) {
			m.Reversed = !m.Reversed
		}
	}

	if g.NewPress(m.Binding.Slow) {
		m.Slow = !m.Slow
	}
}

// Output is the voltage to command for the current state
func (m *Mechanism) Output() int {
	if !m.Active {
		return 0
	}

	v := m.Voltage
	if m.Slow {
		v = int(float64(v) * m.SlowMultiplier)
	}
	if m.Reversed {
		v = -v
	}
	return hardware.ClampVoltage(v)
}

// Ownership tells the loop when a debug run or the autonomous dispatcher owns the actuators
type Ownership interface {
	Owned() bool
}

// Settings are the tunable parts of the loop
type Settings struct {
	Tick           time.Duration
	SlowMultiplier float64
	IntakeVoltage  int
	LiftVoltage    int
	IntakeReverse  ReverseMode
	LiftReverse    ReverseMode
	IntakeBinding  Binding
	LiftBinding    Binding
}

var (
	DefaultIntakeBinding = Binding{Toggle: input.ButtonR1, Reverse: input.ButtonUp, Slow: input.ButtonDown}
	DefaultLiftBinding   = Binding{Toggle: input.ButtonL1, Reverse: input.ButtonRight, Slow: input.ButtonLeft}
)

// DefaultSettings has the values used on the competition robot
func DefaultSettings() Settings {
	return Settings{
		Tick:           DefaultTick,
		SlowMultiplier: DefaultSlowMultiplier,
		IntakeVoltage:  DefaultIntakeVoltage,
		LiftVoltage:    DefaultLiftVoltage,
		IntakeReverse:  ReverseToggle,
		LiftReverse:    ReverseToggle,
		IntakeBinding:  DefaultIntakeBinding,
		LiftBinding:    DefaultLiftBinding,
	}
}

// Loop polls the gamepad and commands the actuators once per tick
type Loop struct {
	gamepad *input.Gamepad
	devices hardware.Devices
	owner   Ownership
	tick    time.Duration
	logger  logrus.FieldLogger

	Forward input.Axis
	Turn    input.Axis

	Intake *Mechanism
	Lift   *Mechanism
}

// New creates a Loop with the button bindings from s
func New(src input.Source, d hardware.Devices, owner Ownership, s Settings, logger logrus.FieldLogger) *Loop {
	if s.Tick <= 0 {
		s.Tick = DefaultTick
	}

	return &Loop{
		gamepad: input.NewGamepad(src),
		devices: d,
		owner:   owner,
		tick:    s.Tick,
		logger:  logger,
		Forward: input.AxisLeftY,
		Turn:    input.AxisRightX,
		Intake: &Mechanism{
			Name:           "intake",
			Motor:          d.Intake,
			Binding:        s.IntakeBinding,
			Voltage:        s.IntakeVoltage,
			SlowMultiplier: s.SlowMultiplier,
			ReverseMode:    s.IntakeReverse,
		},
		Lift: &Mechanism{
			Name:           "lift",
			Motor:          d.Lift,
			Binding:        s.LiftBinding,
			Voltage:        s.LiftVoltage,
			SlowMultiplier: s.SlowMultiplier,
			ReverseMode:    s.LiftReverse,
		},
	}
}

// Run steps the loop every tick until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	l.logger.WithField("tick", l.tick).Info("starting teleop loop")

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.WithError(ctx.Err()).Info("stopping teleop loop")
			return ctx.Err()
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step runs one iteration. While a run owns the actuators it does nothing: the gamepad is not
// polled and no actuator is commanded.
func (l *Loop) Step() {
	if l.owner != nil && l.owner.Owned() {
		return
	}

	l.gamepad.Poll()

	forward := l.gamepad.Analog(l.Forward)
	turn := l.gamepad.Analog(l.Turn)

	errs := []error{
		l.devices.LeftDrive.Move(forward - turn),
		l.devices.RightDrive.Move(forward + turn),
	}

	for _, m := range []*Mechanism{l.Intake, l.Lift} {
		m.Update(l.gamepad)
		if err := m.Motor.MoveVoltage(m.Output()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		l.logger.WithError(err).Warn("error commanding actuators")
	}
}
