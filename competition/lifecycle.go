package competition

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/compbot"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultPollInterval = 20 * time.Millisecond

// Lifecycle calls Hooks as the phase reported by a Switch changes
type Lifecycle struct {
	hooks  Hooks
	sw     Switch
	poll   time.Duration
	logger logrus.FieldLogger

	phase atomic.Int32
}

func NewLifecycle(hooks Hooks, sw Switch, poll time.Duration, logger logrus.FieldLogger) *Lifecycle {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Lifecycle{
		hooks:  hooks,
		sw:     sw,
		poll:   poll,
		logger: logger,
	}
}

// Phase returns the phase whose hook is currently running
func (l *Lifecycle) Phase() compbot.Phase {
	return compbot.Phase(l.phase.Load())
}

// phaseTask is the running hook for one phase
type phaseTask struct {
	phase  compbot.Phase
	cancel context.CancelFunc
	group  *errgroup.Group
}

func (t *phaseTask) stop() error {
	t.cancel()
	err := t.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Run initializes the robot and then follows the switch until ctx is cancelled
func (l *Lifecycle) Run(ctx context.Context) error {
	err := l.hooks.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("error initializing robot: %w", err)
	}

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	var task *phaseTask
	defer func() {
		if task != nil {
			_ = task.stop()
		}
	}()

	for {
		phase, err := l.sw.Phase()
		if err != nil {
			l.logger.WithError(err).Warn("unable to read competition switch")
		} else if task == nil || phase != task.phase {
			if task != nil {
				if err := task.stop(); err != nil {
					l.logger.WithError(err).WithField("phase", task.phase).Error("phase ended with error")
				}
			}
			task = l.start(ctx, phase)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Lifecycle) start(ctx context.Context, phase compbot.Phase) *phaseTask {
	l.logger.WithField("phase", phase).Info("entering phase")
	l.phase.Store(int32(phase))

	phaseCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(phaseCtx)

	g.Go(func() error {
		switch phase {
		case compbot.PhaseDisabled:
			l.hooks.Disabled(gctx)
		case compbot.PhaseAutonomous:
			l.hooks.Autonomous(gctx)
		case compbot.PhaseOpControl:
			return l.hooks.OpControl(gctx)
		default:
			l.logger.WithField("phase", phase).Warn("unknown phase")
		}
		return nil
	})

	return &phaseTask{phase: phase, cancel: cancel, group: g}
}
