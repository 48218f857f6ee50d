package main

import (
	"errors"
	"fmt"

	"github.com/calvinmclean/compbot/competition"
	"github.com/calvinmclean/compbot/config"
	"github.com/calvinmclean/compbot/debugrun"
	"github.com/calvinmclean/compbot/hardware"
	"github.com/calvinmclean/compbot/hardware/pwm"
	"github.com/calvinmclean/compbot/hardware/serialbridge"
	"github.com/calvinmclean/compbot/input"
	"github.com/calvinmclean/compbot/matchlog"
	"github.com/calvinmclean/compbot/panel"
	"github.com/calvinmclean/compbot/routine"
	"github.com/calvinmclean/compbot/selection"
	"github.com/calvinmclean/compbot/teleop"
	"github.com/calvinmclean/compbot/ui"
	"github.com/sirupsen/logrus"
)

// robot is every component of the program wired together
type robot struct {
	backend  hardware.Backend
	gamepad  *input.SerialSource
	registry *routine.Registry
	state    *selection.State
	runner   *debugrun.Runner
	panel    *panel.Panel
	hooks    *competition.Robot
}

func newRobot(cfg config.Config, ports ui.Ports, logger *logrus.Logger) (*robot, error) {
	backend, err := openBackend(cfg, ports.Bridge, logger)
	if err != nil {
		return nil, err
	}

	devices, err := hardware.NewDevices(backend, cfg.Layout())
	if err != nil {
		backend.Close()
		return nil, err
	}

	labels, err := cfg.RoutineLabels()
	if err != nil {
		backend.Close()
		return nil, err
	}
	registry := routine.Default(devices)
	registry.Rename(labels)

	var source input.Source = &input.StaticSource{}
	gamepadPort := ports.Gamepad
	if gamepadPort == "" {
		gamepadPort = cfg.Gamepad.Port
	}
	var gamepad *input.SerialSource
	if gamepadPort != "" && gamepadPort != serialbridge.SerialPortNone {
		gamepad, err = input.OpenSerial(gamepadPort, cfg.Gamepad.Baud, logger.WithField("component", "gamepad"))
		if err != nil {
			backend.Close()
			return nil, err
		}
		source = gamepad
	}

	settings, err := cfg.TeleopSettings()
	if err != nil {
		backend.Close()
		return nil, err
	}

	recorder := matchlog.New(cfg.MatchLog.Addr)
	state := selection.New(registry.Len())
	runner := debugrun.New(registry, recorder, cfg.DebugTimeout.Duration, logger.WithField("component", "debugrun"))

	return &robot{
		backend:  backend,
		gamepad:  gamepad,
		registry: registry,
		state:    state,
		runner:   runner,
		panel:    panel.New(state, registry, runner, logger.WithField("component", "panel")),
		hooks: &competition.Robot{
			Devices:  devices,
			Routines: registry,
			State:    state,
			Debug:    runner,
			Driver:   teleop.New(source, devices, state, settings, logger.WithField("component", "teleop")),
			Recorder: recorder,
			Logger:   logger.WithField("component", "robot"),
		},
	}, nil
}

func (r *robot) Close() error {
	errs := []error{r.hooks.Devices.StopAll()}
	if r.gamepad != nil {
		errs = append(errs, r.gamepad.Close())
	}
	errs = append(errs, r.backend.Close())
	return errors.Join(errs...)
}

func openBackend(cfg config.Config, bridgePort string, logger *logrus.Logger) (hardware.Backend, error) {
	switch cfg.Backend {
	case config.BackendSerial:
		port := bridgePort
		if port == "" {
			port = cfg.Serial.Port
		}
		if port == "" || port == serialbridge.SerialPortNone {
			logger.Warn("no motor bridge port configured, commands will only be logged")
			return logOnlyBackend(logger), nil
		}
		b, err := serialbridge.Open(port, cfg.Serial.Baud)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendPCA9685:
		b, err := pwm.Open(cfg.PWM(), logger.WithField("component", "pwm"))
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendNone:
		return logOnlyBackend(logger), nil
	default:
		return nil, fmt.Errorf("invalid backend %q", cfg.Backend)
	}
}

// logOnlyBackend writes motor commands to the log. Closing the bridge closes the log pipe.
func logOnlyBackend(logger *logrus.Logger) *serialbridge.Bridge {
	return serialbridge.New(logger.WriterLevel(logrus.DebugLevel))
}
