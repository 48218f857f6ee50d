// Package debugrun runs a selected routine in the background when the operator asks for a test
// run outside of a match.
package debugrun

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/matchlog"
	"github.com/calvinmclean/compbot/routine"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const recordTimeout = 2 * time.Second

// Routines is the part of the routine registry used to run and name routines
type Routines interface {
	Dispatch(ctx context.Context, id compbot.RoutineID) error
	Name(id compbot.RoutineID) string
}

var _ Routines = &routine.Registry{}

// Result is what a finished run reports to its completion callback
type Result struct {
	ID      uuid.UUID
	Routine compbot.RoutineID
	Start   time.Time
	End     time.Time
	Err     error
}

// Run is a handle to a debug run in flight
type Run struct {
	ID      uuid.UUID
	Routine compbot.RoutineID

	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// Done is closed after the run's completion callback returns
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is done and returns its result
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Cancel asks the routine to stop. Routines that ignore their context run to the end.
func (r *Run) Cancel() {
	r.cancel()
}

// Runner starts debug runs. It does not guard against overlapping runs: the selector's
// in-flight flag does that before StartDebug is called.
type Runner struct {
	routines Routines
	recorder matchlog.Recorder
	logger   logrus.FieldLogger
	timeout  time.Duration

	mu     sync.Mutex
	active *Run
}

// New creates a Runner. A zero timeout lets routines run as long as they like.
func New(routines Routines, recorder matchlog.Recorder, timeout time.Duration, logger logrus.FieldLogger) *Runner {
	if recorder == nil {
		recorder = matchlog.Noop{}
	}
	return &Runner{
		routines: routines,
		recorder: recorder,
		logger:   logger,
		timeout:  timeout,
	}
}

// StartDebug starts a run for id and calls done once it has finished
func (r *Runner) StartDebug(id compbot.RoutineID, done func()) {
	r.Start(id, func(Result) {
		if done != nil {
			done()
		}
	})
}

// Start launches id in a new goroutine. onDone is called exactly once when the routine
// returns, whether it succeeded, failed, panicked or had no entrypoint.
func (r *Runner) Start(id compbot.RoutineID, onDone func(Result)) *Run {
	var ctx context.Context
	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), r.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	run := &Run{
		ID:      uuid.New(),
		Routine: id,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	r.active = run
	r.mu.Unlock()

	go r.execute(ctx, run, onDone)

	return run
}

// Active returns the run in flight, or nil
func (r *Runner) Active() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Runner) execute(ctx context.Context, run *Run, onDone func(Result)) {
	defer run.cancel()

	logger := r.logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"routine": run.Routine,
	})
	logger.Info("debug run started")

	entry := matchlog.Run{
		ID:      run.ID,
		Routine: run.Routine,
		Name:    r.routines.Name(run.Routine),
		Kind:    matchlog.KindDebug,
		Start:   time.Now(),
	}
	r.record(logger, r.recorder.Started, entry)

	err := r.dispatch(ctx, run.Routine)
	switch {
	case err == nil:
	case errors.Is(err, routine.ErrNoRoutine):
		logger.Warn("no auton selected")
	default:
		logger.WithError(err).Error("debug run failed")
	}

	entry.End = time.Now()
	entry.Outcome = matchlog.Outcome(err)
	r.record(logger, r.recorder.Finished, entry)

	run.result = Result{
		ID:      run.ID,
		Routine: run.Routine,
		Start:   entry.Start,
		End:     entry.End,
		Err:     err,
	}

	r.mu.Lock()
	if r.active == run {
		r.active = nil
	}
	r.mu.Unlock()

	if onDone != nil {
		onDone(run.result)
	}
	close(run.done)

	logger.WithField("duration", entry.End.Sub(entry.Start)).Info("debug run finished")
}

// dispatch runs the routine and turns a panic into an error so completion still happens
func (r *Runner) dispatch(ctx context.Context, id compbot.RoutineID) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("routine panicked: %v", p)
		}
	}()
	return r.routines.Dispatch(ctx, id)
}

func (r *Runner) record(logger logrus.FieldLogger, f func(context.Context, matchlog.Run) error, entry matchlog.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := f(ctx, entry)
	if err != nil {
		logger.WithError(err).Warn("unable to record run")
	}
}
