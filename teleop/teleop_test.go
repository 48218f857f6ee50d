package teleop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calvinmclean/compbot/hardware"
	"github.com/calvinmclean/compbot/hardware/hardwaretest"
	"github.com/calvinmclean/compbot/input"
	"github.com/calvinmclean/compbot/selection"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	intakePort hardware.Port = 13
	liftPort   hardware.Port = 19
)

type flag struct{ running atomic.Bool }

func (f *flag) Owned() bool { return f.running.Load() }

func newLoop(t *testing.T, s Settings) (*Loop, *input.StaticSource, *hardwaretest.Recorder, *flag) {
	t.Helper()
	rec := hardwaretest.NewRecorder()
	d, err := hardware.NewDevices(rec, hardware.Layout{
		Left:   []hardware.Port{1},
		Right:  []hardware.Port{-10},
		Intake: intakePort,
		Lift:   liftPort,
	})
	require.NoError(t, err)

	src := &input.StaticSource{}
	f := &flag{}
	logger, _ := test.NewNullLogger()
	return New(src, d, f, s, logger), src, rec, f
}

func lastValue(t *testing.T, rec *hardwaretest.Recorder, port hardware.Port) float64 {
	t.Helper()
	cmds := rec.ForPort(port)
	require.NotEmpty(t, cmds)
	return cmds[len(cmds)-1].Value
}

// press holds buttons for one step then releases them for the next
func press(l *Loop, src *input.StaticSource, buttons ...input.Button) {
	src.Press(buttons...)
	l.Step()
	src.Press()
	l.Step()
}

func TestMechanismOutput(t *testing.T) {
	tests := []struct {
		name     string
		m        Mechanism
		expected int
	}{
		{"Inactive", Mechanism{Voltage: 12000, SlowMultiplier: 0.5}, 0},
		{"InactiveReversed", Mechanism{Voltage: 12000, Reversed: true, Slow: true}, 0},
		{"Forward", Mechanism{Voltage: 12000, SlowMultiplier: 0.5, Active: true}, 12000},
		{"Reversed", Mechanism{Voltage: 12000, SlowMultiplier: 0.5, Active: true, Reversed: true}, -12000},
		{"Slow", Mechanism{Voltage: 8000, SlowMultiplier: 0.5, Active: true, Slow: true}, 4000},
		{"SlowReversed", Mechanism{Voltage: 8000, SlowMultiplier: 0.5, Active: true, Slow: true, Reversed: true}, -4000},
		{"Clamped", Mechanism{Voltage: 20000, Active: true}, hardware.MaxVoltage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.m.Output())
		})
	}
}

func TestIntakeToggle(t *testing.T) {
	l, src, rec, _ := newLoop(t, DefaultSettings())

	l.Step()
	assert.Equal(t, 0.0, lastValue(t, rec, intakePort))

	src.Press(input.ButtonR1)
	l.Step()
	assert.True(t, l.Intake.Active)
	assert.Equal(t, 12000.0, lastValue(t, rec, intakePort))

	// holding the button does not toggle again
	l.Step()
	assert.True(t, l.Intake.Active)

	src.Press()
	l.Step()
	press(l, src, input.ButtonUp)
	assert.Equal(t, -12000.0, lastValue(t, rec, intakePort))

	press(l, src, input.ButtonDown)
	assert.Equal(t, -6000.0, lastValue(t, rec, intakePort))

	press(l, src, input.ButtonR1)
	assert.False(t, l.Intake.Active)
	assert.Equal(t, 0.0, lastValue(t, rec, intakePort))
}

func TestCustomBinding(t *testing.T) {
	s := DefaultSettings()
	s.IntakeBinding = Binding{Toggle: input.ButtonA, Reverse: input.ButtonX, Slow: input.ButtonY}
	l, src, rec, _ := newLoop(t, s)

	press(l, src, input.ButtonR1)
	assert.False(t, l.Intake.Active)

	press(l, src, input.ButtonA)
	assert.Equal(t, 12000.0, lastValue(t, rec, intakePort))

	press(l, src, input.ButtonX)
	assert.Equal(t, -12000.0, lastValue(t, rec, intakePort))
}

func TestLiftBindings(t *testing.T) {
	l, src, rec, _ := newLoop(t, DefaultSettings())

	press(l, src, input.ButtonL1)
	assert.Equal(t, 8000.0, lastValue(t, rec, liftPort))

	press(l, src, input.ButtonRight)
	assert.Equal(t, -8000.0, lastValue(t, rec, liftPort))

	press(l, src, input.ButtonLeft)
	assert.Equal(t, -4000.0, lastValue(t, rec, liftPort))

	// intake is untouched by the lift buttons
	assert.False(t, l.Intake.Active)
	assert.Equal(t, 0.0, lastValue(t, rec, intakePort))
}

func TestReverseHold(t *testing.T) {
	s := DefaultSettings()
	s.LiftReverse = ReverseHold
	l, src, rec, _ := newLoop(t, s)

	press(l, src, input.ButtonL1)

	src.Press(input.ButtonRight)
	l.Step()
	l.Step()
	assert.Equal(t, -8000.0, lastValue(t, rec, liftPort))

	src.Press()
	l.Step()
	assert.Equal(t, 8000.0, lastValue(t, rec, liftPort))
}

func TestDriveMix(t *testing.T) {
	l, src, rec, _ := newLoop(t, DefaultSettings())

	var state input.ControlState
	state.Axes[input.AxisLeftY] = 100
	state.Axes[input.AxisRightX] = 30
	src.Set(state)
	l.Step()

	left := rec.ForPort(1)
	right := rec.ForPort(-10)
	require.Len(t, left, 1)
	require.Len(t, right, 1)
	assert.Equal(t, hardwaretest.KindMove, left[0].Kind)
	assert.Equal(t, 70.0, left[0].Value)
	assert.Equal(t, 130.0, right[0].Value)
}

func TestSuppressedDuringDebugRun(t *testing.T) {
	l, src, rec, f := newLoop(t, DefaultSettings())
	f.running.Store(true)

	src.Press(input.ButtonR1, input.ButtonL1)
	for range 10 {
		l.Step()
	}

	assert.Equal(t, 0, rec.Len())
	assert.False(t, l.Intake.Active)
	assert.False(t, l.Lift.Active)

	f.running.Store(false)
	l.Step()
	assert.Equal(t, 4, rec.Len())
	assert.True(t, l.Intake.Active)
}

func TestSuppressedBySelectionState(t *testing.T) {
	rec := hardwaretest.NewRecorder()
	d, err := hardware.NewDevices(rec, hardware.Layout{Left: []hardware.Port{1}, Right: []hardware.Port{2}, Intake: 3, Lift: 4})
	require.NoError(t, err)

	state := selection.New(7)
	logger, _ := test.NewNullLogger()
	l := New(&input.StaticSource{}, d, state, DefaultSettings(), logger)

	require.True(t, state.SetDebugRunning(true))
	l.Step()
	assert.Equal(t, 0, rec.Len())

	require.True(t, state.SetDebugRunning(false))
	l.Step()
	assert.Equal(t, 4, rec.Len())
}

func TestSuppressedDuringAutonomous(t *testing.T) {
	rec := hardwaretest.NewRecorder()
	d, err := hardware.NewDevices(rec, hardware.Layout{Left: []hardware.Port{1}, Right: []hardware.Port{2}, Intake: 3, Lift: 4})
	require.NoError(t, err)

	state := selection.New(7)
	logger, _ := test.NewNullLogger()
	l := New(&input.StaticSource{}, d, state, DefaultSettings(), logger)

	require.True(t, state.BeginAutonomous())
	l.Step()
	assert.Equal(t, 0, rec.Len())

	state.EndAutonomous()
	l.Step()
	assert.Equal(t, 4, rec.Len())
}

func TestStepContinuesOnError(t *testing.T) {
	l, src, rec, _ := newLoop(t, DefaultSettings())
	rec.FailPort(1, errors.New("disconnected"))

	press(l, src, input.ButtonR1)

	assert.Empty(t, rec.ForPort(1))
	assert.NotEmpty(t, rec.ForPort(-10))
	assert.Equal(t, 12000.0, lastValue(t, rec, intakePort))
}

func TestRun(t *testing.T) {
	s := DefaultSettings()
	s.Tick = time.Millisecond
	l, _, rec, _ := newLoop(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	assert.Eventually(t, func() bool { return rec.Len() >= 8 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestParseReverseMode(t *testing.T) {
	m, err := ParseReverseMode("hold")
	require.NoError(t, err)
	assert.Equal(t, ReverseHold, m)
	assert.Equal(t, "hold", m.String())

	m, err = ParseReverseMode("")
	require.NoError(t, err)
	assert.Equal(t, ReverseToggle, m)

	_, err = ParseReverseMode("sideways")
	assert.Error(t, err)
}
