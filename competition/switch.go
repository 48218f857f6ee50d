package competition

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/compbot"
	"github.com/stianeikeland/go-rpio/v4"
)

const (
	DefaultAutonomousDuration = 15 * time.Second
	DefaultDriverDuration     = 105 * time.Second
)

// Switch reports the phase the field wants the robot in
type Switch interface {
	Phase() (compbot.Phase, error)
}

// StaticSwitch holds whatever phase it was last set to. Without field control the robot goes
// straight to driver control after initializing.
type StaticSwitch struct {
	phase atomic.Int32
}

var _ Switch = &StaticSwitch{}

func NewStaticSwitch(phase compbot.Phase) *StaticSwitch {
	s := &StaticSwitch{}
	s.Set(phase)
	return s
}

func (s *StaticSwitch) Phase() (compbot.Phase, error) {
	return compbot.Phase(s.phase.Load()), nil
}

// Set changes the reported phase
func (s *StaticSwitch) Set(phase compbot.Phase) {
	s.phase.Store(int32(phase))
}

// MatchSwitch times a practice match: autonomous, then driver control, then disabled. The
// clock starts on the first call to Phase.
type MatchSwitch struct {
	Autonomous time.Duration
	Driver     time.Duration

	mu    sync.Mutex
	start time.Time
	now   func() time.Time
}

var _ Switch = &MatchSwitch{}

func NewMatchSwitch(autonomous, driver time.Duration) *MatchSwitch {
	return &MatchSwitch{
		Autonomous: autonomous,
		Driver:     driver,
		now:        time.Now,
	}
}

func (s *MatchSwitch) Phase() (compbot.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.start.IsZero() {
		s.start = now
	}

	elapsed := now.Sub(s.start)
	for phase := compbot.PhaseAutonomous; phase != compbot.PhaseDisabled; phase = phase.Next() {
		d := s.duration(phase)
		if elapsed < d {
			return phase, nil
		}
		elapsed -= d
	}
	return compbot.PhaseDisabled, nil
}

func (s *MatchSwitch) duration(phase compbot.Phase) time.Duration {
	switch phase {
	case compbot.PhaseAutonomous:
		return s.Autonomous
	case compbot.PhaseOpControl:
		return s.Driver
	default:
		return 0
	}
}

type pin interface {
	Read() rpio.State
}

// GPIOSwitch reads a competition switch wired to two input pins with pull ups. A pin pulled
// low means enabled or autonomous.
type GPIOSwitch struct {
	enable     pin
	autonomous pin
}

var _ Switch = &GPIOSwitch{}

// OpenGPIOSwitch maps GPIO memory and configures the two pins as inputs. Close must be
// called to unmap it.
func OpenGPIOSwitch(enablePin, autonomousPin int) (*GPIOSwitch, error) {
	err := rpio.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening gpio: %w", err)
	}

	enable := rpio.Pin(enablePin)
	enable.Input()
	enable.PullUp()

	autonomous := rpio.Pin(autonomousPin)
	autonomous.Input()
	autonomous.PullUp()

	return &GPIOSwitch{enable: enable, autonomous: autonomous}, nil
}

func (s *GPIOSwitch) Phase() (compbot.Phase, error) {
	if s.enable.Read() != rpio.Low {
		return compbot.PhaseDisabled, nil
	}
	if s.autonomous.Read() == rpio.Low {
		return compbot.PhaseAutonomous, nil
	}
	return compbot.PhaseOpControl, nil
}

func (s *GPIOSwitch) Close() error {
	return rpio.Close()
}
