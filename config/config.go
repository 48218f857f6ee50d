// Package config loads the robot's settings from a TOML file with environment overrides
package config

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/competition"
	"github.com/calvinmclean/compbot/hardware"
	"github.com/calvinmclean/compbot/hardware/pwm"
	"github.com/calvinmclean/compbot/input"
	"github.com/calvinmclean/compbot/teleop"
	"github.com/sirupsen/logrus"
)

const (
	BackendSerial  = "serial"
	BackendPCA9685 = "pca9685"
	BackendNone    = "none"
)

// Duration is a time.Duration written as a string like "20ms" in the file
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	LogLevel       string            `toml:"log_level"`
	Backend        string            `toml:"backend"`
	Headless       bool              `toml:"headless"`
	Tick           Duration          `toml:"tick"`
	DebugTimeout   Duration          `toml:"debug_timeout"`
	SlowMultiplier float64           `toml:"slow_multiplier"`
	Serial         SerialConfig      `toml:"serial"`
	PCA9685        PCA9685Config     `toml:"pca9685"`
	Gamepad        SerialConfig      `toml:"gamepad"`
	Drive          DriveConfig       `toml:"drive"`
	Intake         MechanismConfig   `toml:"intake"`
	Lift           MechanismConfig   `toml:"lift"`
	Match          MatchConfig       `toml:"match"`
	GPIO           GPIOConfig        `toml:"gpio"`
	MatchLog       MatchLogConfig    `toml:"matchlog"`
	Labels         map[string]string `toml:"labels"`
}

type SerialConfig struct {
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
}

type PCA9685Config struct {
	I2CDevice   string          `toml:"i2c_device"`
	Address     int             `toml:"address"`
	MaxRPM      int             `toml:"max_rpm"`
	TicksPerRev float64         `toml:"ticks_per_rev"`
	Channels    []ChannelConfig `toml:"channels"`
}

type ChannelConfig struct {
	Port     int     `toml:"port"`
	Channel  int     `toml:"channel"`
	MinPulse float64 `toml:"min_pulse"`
	MaxPulse float64 `toml:"max_pulse"`
}

// DriveConfig lists drivetrain motor ports. Negative ports are reversed.
type DriveConfig struct {
	Left  []int `toml:"left"`
	Right []int `toml:"right"`
}

// MechanismConfig is a motor driven from the gamepad. Buttons are named as on the
// controller: L1, R1, UP, LEFT, A...
type MechanismConfig struct {
	Port        int    `toml:"port"`
	Voltage     int    `toml:"voltage"`
	ReverseMode string `toml:"reverse_mode"`
	Toggle      string `toml:"toggle"`
	Reverse     string `toml:"reverse"`
	Slow        string `toml:"slow"`
}

type MatchConfig struct {
	Autonomous Duration `toml:"autonomous"`
	Driver     Duration `toml:"driver"`
}

type GPIOConfig struct {
	Enable     int `toml:"enable"`
	Autonomous int `toml:"autonomous"`
}

type MatchLogConfig struct {
	Addr string `toml:"addr"`
}

// Default is the configuration of the competition robot
func Default() Config {
	return Config{
		LogLevel:       "info",
		Backend:        BackendSerial,
		Tick:           Duration{teleop.DefaultTick},
		SlowMultiplier: teleop.DefaultSlowMultiplier,
		Serial:         SerialConfig{Baud: 115200},
		PCA9685: PCA9685Config{
			I2CDevice:   "/dev/i2c-1",
			Address:     0x40,
			MaxRPM:      pwm.DefaultMaxRPM,
			TicksPerRev: pwm.DefaultTicksPerRev,
		},
		Gamepad: SerialConfig{Baud: 115200},
		Drive: DriveConfig{
			Left:  []int{1, 12},
			Right: []int{-10, -20},
		},
		Intake: MechanismConfig{
			Port:        13,
			Voltage:     teleop.DefaultIntakeVoltage,
			ReverseMode: "toggle",
			Toggle:      "R1",
			Reverse:     "UP",
			Slow:        "DOWN",
		},
		Lift: MechanismConfig{
			Port:        19,
			Voltage:     teleop.DefaultLiftVoltage,
			ReverseMode: "toggle",
			Toggle:      "L1",
			Reverse:     "RIGHT",
			Slow:        "LEFT",
		},
		Match: MatchConfig{
			Autonomous: Duration{competition.DefaultAutonomousDuration},
			Driver:     Duration{competition.DefaultDriverDuration},
		},
		GPIO: GPIOConfig{Enable: 17, Autonomous: 27},
	}
}

// Load decodes TOML from r on top of Default. Keys that are not known are an error.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config keys: %v", undecoded)
	}

	return cfg, cfg.Validate()
}

// Validate checks values that cannot be used as given
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSerial, BackendPCA9685, BackendNone:
	default:
		return fmt.Errorf("invalid backend %q", c.Backend)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if _, err := c.TeleopSettings(); err != nil {
		return err
	}
	if _, err := c.RoutineLabels(); err != nil {
		return err
	}
	if c.SlowMultiplier < 0 || c.SlowMultiplier > 1 {
		return fmt.Errorf("slow_multiplier must be between 0 and 1, got %v", c.SlowMultiplier)
	}
	return nil
}

// Level returns the parsed log level, or info if it is invalid
func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func (c Config) Layout() hardware.Layout {
	return hardware.Layout{
		Left:   ports(c.Drive.Left),
		Right:  ports(c.Drive.Right),
		Intake: hardware.Port(c.Intake.Port),
		Lift:   hardware.Port(c.Lift.Port),
	}
}

func ports(in []int) []hardware.Port {
	out := make([]hardware.Port, len(in))
	for i, p := range in {
		out[i] = hardware.Port(p)
	}
	return out
}

func (c Config) TeleopSettings() (teleop.Settings, error) {
	intakeReverse, err := teleop.ParseReverseMode(c.Intake.ReverseMode)
	if err != nil {
		return teleop.Settings{}, fmt.Errorf("intake: %w", err)
	}
	liftReverse, err := teleop.ParseReverseMode(c.Lift.ReverseMode)
	if err != nil {
		return teleop.Settings{}, fmt.Errorf("lift: %w", err)
	}
	intakeBinding, err := c.Intake.binding()
	if err != nil {
		return teleop.Settings{}, fmt.Errorf("intake: %w", err)
	}
	liftBinding, err := c.Lift.binding()
	if err != nil {
		return teleop.Settings{}, fmt.Errorf("lift: %w", err)
	}

	return teleop.Settings{
		Tick:           c.Tick.Duration,
		SlowMultiplier: c.SlowMultiplier,
		IntakeVoltage:  c.Intake.Voltage,
		LiftVoltage:    c.Lift.Voltage,
		IntakeReverse:  intakeReverse,
		LiftReverse:    liftReverse,
		IntakeBinding:  intakeBinding,
		LiftBinding:    liftBinding,
	}, nil
}

func (m MechanismConfig) binding() (teleop.Binding, error) {
	var b teleop.Binding
	for _, field := range []struct {
		name string
		dst  *input.Button
	}{
		{m.Toggle, &b.Toggle},
		{m.Reverse, &b.Reverse},
		{m.Slow, &b.Slow},
	} {
		button, ok := input.ParseButton(field.name)
		if !ok {
			return teleop.Binding{}, fmt.Errorf("unknown button %q", field.name)
		}
		*field.dst = button
	}
	return b, nil
}

func (c Config) PWM() pwm.Config {
	channels := make([]pwm.ChannelConfig, len(c.PCA9685.Channels))
	for i, ch := range c.PCA9685.Channels {
		channels[i] = pwm.ChannelConfig{
			Port:     ch.Port,
			Channel:  ch.Channel,
			MinPulse: ch.MinPulse,
			MaxPulse: ch.MaxPulse,
		}
	}

	return pwm.Config{
		Address:     byte(c.PCA9685.Address),
		I2CDevice:   c.PCA9685.I2CDevice,
		Channels:    channels,
		MaxRPM:      c.PCA9685.MaxRPM,
		TicksPerRev: c.PCA9685.TicksPerRev,
	}
}

// RoutineLabels converts the [labels] table, keyed by slot number, for Registry.Rename
func (c Config) RoutineLabels() (map[compbot.RoutineID]string, error) {
	labels := make(map[compbot.RoutineID]string, len(c.Labels))
	for key, name := range c.Labels {
		id, err := strconv.Atoi(key)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid label slot %q", key)
		}
		labels[compbot.RoutineID(id)] = name
	}
	return labels, nil
}
