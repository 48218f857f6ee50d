// Package hardware describes the actuators that the robot commands. Backends (serial motor
// bridge, PWM board) provide Motors for numbered ports.
package hardware

import (
	"errors"
	"fmt"
)

const (
	// MaxVoltage is the largest magnitude accepted by MoveVoltage, in millivolts
	MaxVoltage = 12000
	// MaxLevel is the largest magnitude accepted by Move
	MaxLevel = 127
)

// Motor is a single actuator. Commands are best effort and return as soon as they have been
// handed to the hardware.
type Motor interface {
	// MoveVoltage sets the motor voltage in millivolts, -12000..12000
	MoveVoltage(mV int) error
	// Move sets the motor output from a joystick-style level, -127..127
	Move(level int) error
	// MoveRelative moves by ticks from the current position at speed rpm
	MoveRelative(ticks float64, speed int) error
	// MoveVelocity holds the given velocity in rpm
	MoveVelocity(rpm int) error
}

// Port is a motor port number. A negative port reverses the motor's direction.
type Port int

// Number returns the physical port number
func (p Port) Number() int {
	if p < 0 {
		return int(-p)
	}
	return int(p)
}

// Reversed reports whether commands to this port are inverted
func (p Port) Reversed() bool {
	return p < 0
}

// Sign returns -1 for reversed ports and +1 otherwise
func (p Port) Sign() int {
	if p.Reversed() {
		return -1
	}
	return 1
}

// Backend creates Motors for ports
type Backend interface {
	Motor(port Port) (Motor, error)
	Close() error
}

// Group commands several motors as one
type Group []Motor

var _ Motor = Group{}

func (g Group) MoveVoltage(mV int) error {
	return g.each(func(m Motor) error { return m.MoveVoltage(mV) })
}

func (g Group) Move(level int) error {
	return g.each(func(m Motor) error { return m.Move(level) })
}

func (g Group) MoveRelative(ticks float64, speed int) error {
	return g.each(func(m Motor) error { return m.MoveRelative(ticks, speed) })
}

func (g Group) MoveVelocity(rpm int) error {
	return g.each(func(m Motor) error { return m.MoveVelocity(rpm) })
}

// each sends to every motor even if one fails
func (g Group) each(f func(Motor) error) error {
	var errs []error
	for _, m := range g {
		errs = append(errs, f(m))
	}
	return errors.Join(errs...)
}

// Devices is the robot's fixed set of actuators
type Devices struct {
	LeftDrive  Motor
	RightDrive Motor
	Intake     Motor
	Lift       Motor
}

// Layout lists the ports that make up Devices
type Layout struct {
	Left   []Port
	Right  []Port
	Intake Port
	Lift   Port
}

// NewDevices asks the backend for every motor in the layout
func NewDevices(b Backend, layout Layout) (Devices, error) {
	left, err := group(b, layout.Left)
	if err != nil {
		return Devices{}, fmt.Errorf("error creating left drive: %w", err)
	}
	right, err := group(b, layout.Right)
	if err != nil {
		return Devices{}, fmt.Errorf("error creating right drive: %w", err)
	}
	intake, err := b.Motor(layout.Intake)
	if err != nil {
		return Devices{}, fmt.Errorf("error creating intake: %w", err)
	}
	lift, err := b.Motor(layout.Lift)
	if err != nil {
		return Devices{}, fmt.Errorf("error creating lift: %w", err)
	}

	return Devices{
		LeftDrive:  left,
		RightDrive: right,
		Intake:     intake,
		Lift:       lift,
	}, nil
}

func group(b Backend, ports []Port) (Group, error) {
	g := make(Group, 0, len(ports))
	for _, p := range ports {
		m, err := b.Motor(p)
		if err != nil {
			return nil, fmt.Errorf("port %d: %w", p, err)
		}
		g = append(g, m)
	}
	return g, nil
}

// StopAll sets zero volts on every actuator
func (d Devices) StopAll() error {
	var errs []error
	for _, m := range []Motor{d.LeftDrive, d.RightDrive, d.Intake, d.Lift} {
		if m == nil {
			continue
		}
		errs = append(errs, m.MoveVoltage(0))
	}
	return errors.Join(errs...)
}

// ClampVoltage limits mV to the MoveVoltage range
func ClampVoltage(mV int) int {
	return clamp(mV, MaxVoltage)
}

// ClampLevel limits level to the Move range
func ClampLevel(level int) int {
	return clamp(level, MaxLevel)
}

func clamp(v, limit int) int {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
