// Package input reads the driver's gamepad and turns its reports into per-tick button edges
// and analog values.
package input

import (
	"strings"
	"sync"
)

// Button is a bit index in ControlState.Buttons
type Button int

const (
	ButtonL1 Button = iota
	ButtonL2
	ButtonR1
	ButtonR2
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonX
	ButtonB
	ButtonY
	ButtonA
)

var buttonNames = map[string]Button{
	"L1":    ButtonL1,
	"L2":    ButtonL2,
	"R1":    ButtonR1,
	"R2":    ButtonR2,
	"UP":    ButtonUp,
	"DOWN":  ButtonDown,
	"LEFT":  ButtonLeft,
	"RIGHT": ButtonRight,
	"X":     ButtonX,
	"B":     ButtonB,
	"Y":     ButtonY,
	"A":     ButtonA,
}

// ParseButton looks up a button by its name on the controller, like "R1" or "up"
func ParseButton(name string) (Button, bool) {
	b, ok := buttonNames[strings.ToUpper(strings.TrimSpace(name))]
	return b, ok
}

// Axis is an index in ControlState.Axes
type Axis int

const (
	AxisLeftX Axis = iota
	AxisLeftY
	AxisRightX
	AxisRightY

	AxisCount = 4
)

const (
	MaxAxis = 127
	MinAxis = -127
)

// ControlState is one report from the controller
type ControlState struct {
	Buttons uint32
	Axes    [AxisCount]int
}

// Pressed reports whether b is held in this report
func (c ControlState) Pressed(b Button) bool {
	if b < 0 || b > 31 {
		return false
	}
	return c.Buttons&(1<<uint(b)) != 0
}

// Source provides the most recent controller report
type Source interface {
	State() ControlState
}

// Gamepad latches a Source once per Poll so that edges are computed between two consecutive
// polls. Reads without a Poll in between return the same values.
type Gamepad struct {
	src     Source
	last    ControlState
	current ControlState
}

// NewGamepad creates a Gamepad reading from src
func NewGamepad(src Source) *Gamepad {
	return &Gamepad{src: src}
}

// Poll takes a new report from the source
func (g *Gamepad) Poll() {
	g.last = g.current
	g.current = g.src.State()
}

// NewPress is true if b went down between the last two polls
func (g *Gamepad) NewPress(b Button) bool {
	return g.current.Pressed(b) && !g.last.Pressed(b)
}

// NewRelease is true if b went up between the last two polls
func (g *Gamepad) NewRelease(b Button) bool {
	return !g.current.Pressed(b) && g.last.Pressed(b)
}

// Pressed reports whether b is held in the latest poll
func (g *Gamepad) Pressed(b Button) bool {
	return g.current.Pressed(b)
}

// Analog returns the axis value in the latest poll, -127..127
func (g *Gamepad) Analog(a Axis) int {
	if a < 0 || a >= AxisCount {
		return 0
	}
	return g.current.Axes[a]
}

// StaticSource is a Source whose state is set directly. It is used for bench testing and
// when no controller is attached.
type StaticSource struct {
	mu    sync.Mutex
	state ControlState
}

var _ Source = &StaticSource{}

func (s *StaticSource) State() ControlState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the current state
func (s *StaticSource) Set(state ControlState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Press is a shortcut to set only the given buttons as held
func (s *StaticSource) Press(buttons ...Button) {
	var bits uint32
	for _, b := range buttons {
		bits |= 1 << uint(b)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Buttons = bits
}
