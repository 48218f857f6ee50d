package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/competition"
	"github.com/calvinmclean/compbot/config"
	"github.com/calvinmclean/compbot/console"
	"github.com/calvinmclean/compbot/panel"
	"github.com/calvinmclean/compbot/ui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	switchStatic = "static"
	switchMatch  = "match"
	switchGPIO   = "gpio"
)

type runOptions struct {
	root       *rootOptions
	switchKind string
	headless   bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{root: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the robot with the touchscreen selector and bench console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&opts.switchKind, "switch", switchStatic, "competition switch: static, match or gpio")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run without the touchscreen UI")
	return cmd
}

func (o *runOptions) run(ctx context.Context) error {
	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sw, closeSwitch, err := newSwitch(o.switchKind, cfg)
	if err != nil {
		return err
	}
	defer closeSwitch()

	if o.headless || cfg.Headless {
		r, err := newRobot(cfg, ui.Ports{}, logger)
		if err != nil {
			return err
		}
		defer r.Close()

		lifecycle := competition.NewLifecycle(r.hooks, sw, 0, logger.WithField("component", "lifecycle"))
		return ignoreCanceled(serve(ctx, r, lifecycle, logger))
	}

	var r *robot
	errc := make(chan error, 1)
	robotUI := ui.NewRobotUI(ui.Ports{}, func(ports ui.Ports) (*panel.Panel, func() compbot.Phase, error) {
		var err error
		r, err = newRobot(cfg, ports, logger)
		if err != nil {
			return nil, nil, err
		}

		lifecycle := competition.NewLifecycle(r.hooks, sw, 0, logger.WithField("component", "lifecycle"))
		go func() {
			errc <- serve(ctx, r, lifecycle, logger)
			cancel()
		}()
		return r.panel, lifecycle.Phase, nil
	})
	robotUI.AskPorts = cfg.Backend == config.BackendSerial && cfg.Serial.Port == ""

	uiErr := robotUI.Run(ctx)
	cancel()

	if r == nil {
		return uiErr
	}
	serveErr := <-errc
	return errors.Join(uiErr, ignoreCanceled(serveErr), r.Close())
}

// serve runs the lifecycle and the gamepad reader until ctx is done. The bench console reads
// stdin in the background.
func serve(ctx context.Context, r *robot, lifecycle *competition.Lifecycle, logger *logrus.Logger) error {
	station := &console.Station{
		Panel:    r.panel,
		Robot:    r.hooks,
		Registry: r.registry,
		Phase:    lifecycle.Phase,
	}
	if r.gamepad != nil {
		station.Gamepad = r.gamepad
	}
	go func() {
		err := console.Run(ctx, bufio.NewReader(os.Stdin), station, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("console stopped")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return lifecycle.Run(gctx)
	})

	if r.gamepad != nil {
		g.Go(func() error {
			err := r.gamepad.Run(gctx)
			if errors.Is(err, io.EOF) {
				logger.Warn("gamepad disconnected")
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

func newSwitch(kind string, cfg config.Config) (competition.Switch, func() error, error) {
	nop := func() error { return nil }

	switch kind {
	case switchStatic:
		return competition.NewStaticSwitch(compbot.PhaseOpControl), nop, nil
	case switchMatch:
		return competition.NewMatchSwitch(cfg.Match.Autonomous.Duration, cfg.Match.Driver.Duration), nop, nil
	case switchGPIO:
		sw, err := competition.OpenGPIOSwitch(cfg.GPIO.Enable, cfg.GPIO.Autonomous)
		if err != nil {
			return nil, nil, err
		}
		return sw, sw.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid switch %q", kind)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
