package competition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/calvinmclean/compbot"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stianeikeland/go-rpio/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHooks struct {
	mu      sync.Mutex
	calls   []string
	initErr error
}

func (h *fakeHooks) add(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

func (h *fakeHooks) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *fakeHooks) Initialize(context.Context) error {
	h.add("initialize")
	return h.initErr
}

func (h *fakeHooks) Disabled(context.Context) {
	h.add("disabled")
}

func (h *fakeHooks) Autonomous(ctx context.Context) {
	h.add("autonomous")
	<-ctx.Done()
	h.add("autonomous stopped")
}

func (h *fakeHooks) OpControl(ctx context.Context) error {
	h.add("opcontrol")
	<-ctx.Done()
	h.add("opcontrol stopped")
	return ctx.Err()
}

func TestLifecycle(t *testing.T) {
	hooks := &fakeHooks{}
	sw := NewStaticSwitch(compbot.PhaseOpControl)
	logger, _ := test.NewNullLogger()
	l := NewLifecycle(hooks, sw, time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	waitFor := func(expected ...string) {
		t.Helper()
		assert.Eventually(t, func() bool {
			return assert.ObjectsAreEqual(expected, hooks.Calls())
		}, time.Second, time.Millisecond, "calls: %v", hooks.Calls())
	}

	waitFor("initialize", "opcontrol")
	assert.Equal(t, compbot.PhaseOpControl, l.Phase())

	sw.Set(compbot.PhaseAutonomous)
	waitFor("initialize", "opcontrol", "opcontrol stopped", "autonomous")

	sw.Set(compbot.PhaseDisabled)
	waitFor("initialize", "opcontrol", "opcontrol stopped", "autonomous", "autonomous stopped", "disabled")
	assert.Equal(t, compbot.PhaseDisabled, l.Phase())

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestLifecycleStopsTaskOnCancel(t *testing.T) {
	hooks := &fakeHooks{}
	logger, _ := test.NewNullLogger()
	l := NewLifecycle(hooks, NewStaticSwitch(compbot.PhaseAutonomous), time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(hooks.Calls()) == 2 }, time.Second, time.Millisecond)
	cancel()
	<-errc

	assert.Equal(t, []string{"initialize", "autonomous", "autonomous stopped"}, hooks.Calls())
}

func TestLifecycleInitializeError(t *testing.T) {
	hooks := &fakeHooks{initErr: errors.New("no motors")}
	logger, _ := test.NewNullLogger()
	l := NewLifecycle(hooks, NewStaticSwitch(compbot.PhaseOpControl), 0, logger)

	err := l.Run(context.Background())
	assert.ErrorContains(t, err, "no motors")
	assert.Equal(t, []string{"initialize"}, hooks.Calls())
}

type failingSwitch struct{}

func (failingSwitch) Phase() (compbot.Phase, error) {
	return compbot.PhaseUnknown, errors.New("unplugged")
}

func TestLifecycleSwitchError(t *testing.T) {
	hooks := &fakeHooks{}
	logger, hook := test.NewNullLogger()
	l := NewLifecycle(hooks, failingSwitch{}, time.Millisecond, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, l.Run(ctx), context.DeadlineExceeded)
	assert.Equal(t, []string{"initialize"}, hooks.Calls())
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "unable to read competition switch", hook.LastEntry().Message)
}

func TestMatchSwitch(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	sw := NewMatchSwitch(15*time.Second, 105*time.Second)
	sw.now = func() time.Time { return now }

	tests := []struct {
		elapsed  time.Duration
		expected compbot.Phase
	}{
		{0, compbot.PhaseAutonomous},
		{14 * time.Second, compbot.PhaseAutonomous},
		{15 * time.Second, compbot.PhaseOpControl},
		{119 * time.Second, compbot.PhaseOpControl},
		{120 * time.Second, compbot.PhaseDisabled},
		{time.Hour, compbot.PhaseDisabled},
	}

	start := now
	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			now = start.Add(tt.elapsed)
			phase, err := sw.Phase()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, phase)
		})
	}
}

func TestMatchSwitchNoAutonomous(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	sw := NewMatchSwitch(0, time.Minute)
	sw.now = func() time.Time { return now }

	phase, err := sw.Phase()
	require.NoError(t, err)
	assert.Equal(t, compbot.PhaseOpControl, phase)

	now = now.Add(time.Minute)
	phase, err = sw.Phase()
	require.NoError(t, err)
	assert.Equal(t, compbot.PhaseDisabled, phase)
}

type fakePin rpio.State

func (p *fakePin) Read() rpio.State { return rpio.State(*p) }

func TestGPIOSwitch(t *testing.T) {
	tests := []struct {
		name       string
		enable     rpio.State
		autonomous rpio.State
		expected   compbot.Phase
	}{
		{"Disabled", rpio.High, rpio.High, compbot.PhaseDisabled},
		{"DisabledAutonomous", rpio.High, rpio.Low, compbot.PhaseDisabled},
		{"Driver", rpio.Low, rpio.High, compbot.PhaseOpControl},
		{"Autonomous", rpio.Low, rpio.Low, compbot.PhaseAutonomous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enable := fakePin(tt.enable)
			autonomous := fakePin(tt.autonomous)
			sw := &GPIOSwitch{enable: &enable, autonomous: &autonomous}

			phase, err := sw.Phase()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, phase)
		})
	}
}
