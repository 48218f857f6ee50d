// Package competition runs the robot through the phases of a match: initialize once, then
// disabled, autonomous and driver control as reported by a Switch.
package competition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/debugrun"
	"github.com/calvinmclean/compbot/hardware"
	"github.com/calvinmclean/compbot/matchlog"
	"github.com/calvinmclean/compbot/routine"
	"github.com/calvinmclean/compbot/selection"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const recordTimeout = 2 * time.Second

// ErrAutonomousRunning is returned by RunAutonomous when another autonomous run already owns
// the actuators
var ErrAutonomousRunning = errors.New("autonomous already running")

// Hooks are called by the Lifecycle as the match moves between phases. Each call gets a
// context that is cancelled when its phase ends.
type Hooks interface {
	Initialize(ctx context.Context) error
	Disabled(ctx context.Context)
	Autonomous(ctx context.Context)
	OpControl(ctx context.Context) error
}

// Routines dispatches and names the selectable routines
type Routines interface {
	Dispatch(ctx context.Context, id compbot.RoutineID) error
	Name(id compbot.RoutineID) string
}

// DebugRuns exposes the debug run in flight so autonomous can stop it
type DebugRuns interface {
	Active() *debugrun.Run
}

// Driver is the manual control loop
type Driver interface {
	Run(ctx context.Context) error
}

var (
	_ Routines  = &routine.Registry{}
	_ DebugRuns = &debugrun.Runner{}
)

// Robot implements Hooks for the competition robot
type Robot struct {
	Devices  hardware.Devices
	Routines Routines
	State    *selection.State
	Debug    DebugRuns
	Driver   Driver
	Recorder matchlog.Recorder
	Logger   logrus.FieldLogger
}

var _ Hooks = &Robot{}

func (r *Robot) Initialize(context.Context) error {
	err := r.Devices.StopAll()
	if err != nil {
		return fmt.Errorf("error zeroing actuators: %w", err)
	}

	r.Logger.WithFields(logrus.Fields{
		"routine": r.State.Selected(),
		"name":    r.Routines.Name(r.State.Selected()),
	}).Info("robot initialized")
	return nil
}

// Disabled zeroes every actuator
func (r *Robot) Disabled(context.Context) {
	err := r.Devices.StopAll()
	if err != nil {
		r.Logger.WithError(err).Error("error stopping actuators")
		return
	}
	r.Logger.Info("robot disabled")
}

// Autonomous runs the selected routine once
func (r *Robot) Autonomous(ctx context.Context) {
	err := r.RunAutonomous(ctx)
	switch {
	case err == nil:
	case errors.Is(err, routine.ErrNoRoutine):
		r.Logger.WithField("routine", r.State.Selected()).Warn("no auton selected")
	case errors.Is(err, context.Canceled):
		r.Logger.Info("autonomous cancelled")
	case errors.Is(err, ErrAutonomousRunning):
		r.Logger.Warn("autonomous already running")
	default:
		r.Logger.WithError(err).Error("autonomous routine failed")
	}
}

// RunAutonomous stops any debug run, takes the actuators and dispatches the selected routine.
// It blocks until the routine returns. If an autonomous run is already in progress it returns
// ErrAutonomousRunning without running anything.
func (r *Robot) RunAutonomous(ctx context.Context) error {
	err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer r.State.EndAutonomous()

	id := r.State.Selected()
	entry := matchlog.Run{
		ID:      uuid.New(),
		Routine: id,
		Name:    r.Routines.Name(id),
		Kind:    matchlog.KindAutonomous,
		Start:   time.Now(),
	}

	logger := r.Logger.WithFields(logrus.Fields{
		"run_id":  entry.ID,
		"routine": id,
		"name":    entry.Name,
	})
	logger.Info("starting autonomous")
	r.record(logger, r.recorder().Started, entry)

	err = r.Routines.Dispatch(ctx, id)

	entry.End = time.Now()
	entry.Outcome = matchlog.Outcome(err)
	r.record(logger, r.recorder().Finished, entry)

	logger.WithField("duration", entry.End.Sub(entry.Start)).Info("autonomous finished")
	return err
}

// acquire waits until the autonomous period owns the actuators, cancelling debug runs
// that are in the way. It never waits for another autonomous run.
func (r *Robot) acquire(ctx context.Context) error {
	for !r.State.BeginAutonomous() {
		if r.State.AutonomousRunning() {
			return ErrAutonomousRunning
		}

		var run *debugrun.Run
		if r.Debug != nil {
			run = r.Debug.Active()
		}

		// the in-flight flag is set just before the run is registered
		if run == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
			continue
		}

		r.Logger.WithField("run_id", run.ID).Warn("cancelling debug run for autonomous")
		run.Cancel()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-run.Done():
		}
	}
	return nil
}

// OpControl runs the driver loop until the phase ends
func (r *Robot) OpControl(ctx context.Context) error {
	if r.Driver == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.Driver.Run(ctx)
}

func (r *Robot) recorder() matchlog.Recorder {
	if r.Recorder == nil {
		return matchlog.Noop{}
	}
	return r.Recorder
}

func (r *Robot) record(logger logrus.FieldLogger, f func(context.Context, matchlog.Run) error, entry matchlog.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := f(ctx, entry)
	if err != nil {
		logger.WithError(err).Warn("unable to record run")
	}
}
