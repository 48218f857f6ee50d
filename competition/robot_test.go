package competition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/debugrun"
	"github.com/calvinmclean/compbot/hardware"
	"github.com/calvinmclean/compbot/hardware/hardwaretest"
	"github.com/calvinmclean/compbot/matchlog"
	"github.com/calvinmclean/compbot/routine"
	"github.com/calvinmclean/compbot/selection"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	runs []matchlog.Run
}

func (r *recorder) Started(_ context.Context, run matchlog.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *recorder) Finished(_ context.Context, run matchlog.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func newRobot(t *testing.T, entries ...routine.Entry) (*Robot, *hardwaretest.Recorder, *recorder, *test.Hook) {
	t.Helper()

	rec := hardwaretest.NewRecorder()
	d, err := hardware.NewDevices(rec, hardware.Layout{
		Left:   []hardware.Port{1},
		Right:  []hardware.Port{2},
		Intake: 3,
		Lift:   4,
	})
	require.NoError(t, err)

	registry := routine.NewRegistry(entries...)
	logger, hook := test.NewNullLogger()
	runs := &recorder{}

	return &Robot{
		Devices:  d,
		Routines: registry,
		State:    selection.New(registry.Len()),
		Debug:    debugrun.New(registry, nil, 0, logger),
		Recorder: runs,
		Logger:   logger,
	}, rec, runs, hook
}

func TestAutonomousDispatchesSelected(t *testing.T) {
	var ran []compbot.RoutineID
	record := func(id compbot.RoutineID) routine.Func {
		return func(context.Context) error {
			ran = append(ran, id)
			return nil
		}
	}

	r, _, runs, _ := newRobot(t,
		routine.Entry{Name: "One", Run: record(1)},
		routine.Entry{Name: "Two", Run: record(2)},
		routine.Entry{Name: "Three", Run: record(3)},
	)
	require.NoError(t, r.State.SetSelected(3))

	r.Autonomous(context.Background())

	assert.Equal(t, []compbot.RoutineID{3}, ran)
	assert.False(t, r.State.AutonomousRunning())

	require.Len(t, runs.runs, 2)
	assert.Equal(t, matchlog.KindAutonomous, runs.runs[0].Kind)
	assert.Equal(t, "Three", runs.runs[0].Name)
	assert.Equal(t, matchlog.OutcomeOK, runs.runs[1].Outcome)
}

func TestAutonomousNoRoutine(t *testing.T) {
	r, rec, runs, hook := newRobot(t,
		routine.Entry{Name: "One", Run: func(context.Context) error { return nil }},
		routine.Entry{Name: "Defensive Mode"},
	)
	require.NoError(t, r.State.SetSelected(2))

	r.Autonomous(context.Background())

	assert.Equal(t, 0, rec.Len())
	assert.Equal(t, "no auton selected", hook.LastEntry().Message)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, matchlog.OutcomeNoRoutine, runs.runs[1].Outcome)
}

func TestRunAutonomousError(t *testing.T) {
	failure := errors.New("motor unplugged")
	r, _, _, _ := newRobot(t, routine.Entry{Name: "One", Run: func(context.Context) error { return failure }})

	err := r.RunAutonomous(context.Background())
	assert.ErrorIs(t, err, failure)
	assert.False(t, r.State.AutonomousRunning())
}

func TestRunAutonomousWhileRunning(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32

	r, _, _, _ := newRobot(t, routine.Entry{Name: "Blocks", Run: func(context.Context) error {
		if runs.Add(1) == 1 {
			close(entered)
		}
		<-release
		return nil
	}})

	first := make(chan error, 1)
	go func() {
		first <- r.RunAutonomous(context.Background())
	}()
	<-entered

	err := r.RunAutonomous(context.Background())
	assert.ErrorIs(t, err, ErrAutonomousRunning)

	close(release)
	require.NoError(t, <-first)
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, r.State.AutonomousRunning())
}

func TestAutonomousAlreadyRunningLogged(t *testing.T) {
	r, _, _, hook := newRobot(t, routine.Entry{Name: "One", Run: func(context.Context) error { return nil }})
	require.True(t, r.State.BeginAutonomous())

	r.Autonomous(context.Background())

	assert.Equal(t, "autonomous already running", hook.LastEntry().Message)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestAutonomousCancelsDebugRun(t *testing.T) {
	entered := make(chan struct{}, 1)
	blocking := func(ctx context.Context) error {
		entered <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}

	var autonomousRan bool
	r, _, _, _ := newRobot(t,
		routine.Entry{Name: "Blocks", Run: blocking},
		routine.Entry{Name: "Auton", Run: func(context.Context) error {
			autonomousRan = true
			return nil
		}},
	)

	runner := r.Debug.(*debugrun.Runner)
	require.True(t, r.State.SetDebugRunning(true))
	runner.StartDebug(1, func() { r.State.SetDebugRunning(false) })
	<-entered

	require.NoError(t, r.State.SetSelected(2))
	r.Autonomous(context.Background())

	assert.True(t, autonomousRan)
	assert.False(t, r.State.DebugRunning())
	assert.Nil(t, runner.Active())
}

func TestAutonomousBlocksDebugRuns(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r, _, _, _ := newRobot(t, routine.Entry{Name: "Auton", Run: func(context.Context) error {
		close(entered)
		<-release
		return nil
	}})

	done := make(chan struct{})
	go func() {
		r.Autonomous(context.Background())
		close(done)
	}()
	<-entered

	assert.True(t, r.State.AutonomousRunning())
	assert.False(t, r.State.SetDebugRunning(true))

	close(release)
	<-done
	assert.True(t, r.State.SetDebugRunning(true))
}

func TestAutonomousContextCancelledWhileWaiting(t *testing.T) {
	r, _, _, _ := newRobot(t, routine.Entry{Name: "One", Run: func(context.Context) error { return nil }})

	// flag set without a registered run
	require.True(t, r.State.SetDebugRunning(true))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.RunAutonomous(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, r.State.AutonomousRunning())
}

func TestDisabledStopsActuators(t *testing.T) {
	r, rec, _, _ := newRobot(t)

	r.Disabled(context.Background())

	cmds := rec.Commands()
	require.Len(t, cmds, 4)
	for _, c := range cmds {
		assert.Equal(t, hardwaretest.KindVoltage, c.Kind)
		assert.Equal(t, 0.0, c.Value)
	}
}

func TestInitialize(t *testing.T) {
	r, rec, _, hook := newRobot(t, routine.Entry{Name: "One"})

	require.NoError(t, r.Initialize(context.Background()))
	assert.Equal(t, 4, rec.Len())
	assert.Equal(t, "robot initialized", hook.LastEntry().Message)

	rec.FailPort(3, errors.New("disconnected"))
	assert.Error(t, r.Initialize(context.Background()))
}

type loop struct{ started chan struct{} }

func (l loop) Run(ctx context.Context) error {
	close(l.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestOpControl(t *testing.T) {
	r, _, _, _ := newRobot(t)
	l := loop{started: make(chan struct{})}
	r.Driver = l

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.OpControl(ctx) }()

	<-l.started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
