// Package pwm drives motor controllers (ESCs) from a PCA9685 PWM board on I2C
package pwm

import (
	"fmt"
	"sync"
	"time"

	"github.com/calvinmclean/compbot/hardware"
	"github.com/googolgl/go-i2c"
	"github.com/googolgl/go-pca9685"
	"github.com/sirupsen/logrus"
)

const (
	MaxValue = 1.0
	MinValue = 0.0
	MidValue = 0.5

	DefaultMaxRPM      = 200
	DefaultTicksPerRev = 900.0
)

// ChannelConfig maps a motor port to a PCA9685 output channel
type ChannelConfig struct {
	Port     int
	Channel  int
	MinPulse float64
	MaxPulse float64
}

// Config is the PCA9685 board setup
type Config struct {
	Address     byte
	I2CDevice   string
	Channels    []ChannelConfig
	MaxRPM      int
	TicksPerRev float64
}

// output is the part of *pca9685.Servo used here
type output interface {
	Fraction(float32) error
}

// Board implements hardware.Backend
type Board struct {
	cfg     Config
	outputs map[int]output
	bus     *i2c.Options
	logger  logrus.FieldLogger
}

var _ hardware.Backend = &Board{}

// Open initializes the PCA9685 and centers every configured channel
func Open(cfg Config, logger logrus.FieldLogger) (*Board, error) {
	bus, err := i2c.New(cfg.Address, cfg.I2CDevice)
	if err != nil {
		return nil, fmt.Errorf("error starting i2c with address - %w", err)
	}

	driver, err := pca9685.New(bus, nil)
	if err != nil {
		return nil, fmt.Errorf("error getting pwm driver - %w", err)
	}

	outputs := make(map[int]output, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		minPulse, maxPulse := float32(ch.MinPulse), float32(ch.MaxPulse)
		if minPulse == 0 {
			minPulse = pca9685.ServoMinPulseDef
		}
		if maxPulse == 0 {
			maxPulse = pca9685.ServoMaxPulseDef
		}
		outputs[ch.Port] = driver.ServoNew(ch.Channel, &pca9685.ServOptions{
			AcRange:  pca9685.ServoRangeDef,
			MinPulse: minPulse,
			MaxPulse: maxPulse,
		})
		logger.WithFields(logrus.Fields{
			"port":    ch.Port,
			"channel": ch.Channel,
		}).Info("motor port added")
	}

	b := newBoard(cfg, outputs, logger)
	b.bus = bus
	b.CenterAll()
	return b, nil
}

func newBoard(cfg Config, outputs map[int]output, logger logrus.FieldLogger) *Board {
	if cfg.MaxRPM == 0 {
		cfg.MaxRPM = DefaultMaxRPM
	}
	if cfg.TicksPerRev == 0 {
		cfg.TicksPerRev = DefaultTicksPerRev
	}
	return &Board{cfg: cfg, outputs: outputs, logger: logger}
}

// CenterAll sets every channel to neutral so the ESCs stop
func (b *Board) CenterAll() {
	for port, o := range b.outputs {
		err := o.Fraction(MidValue)
		if err != nil {
			b.logger.WithError(err).WithField("port", port).Warn("failed centering port")
		}
	}
}

func (b *Board) Motor(port hardware.Port) (hardware.Motor, error) {
	o, ok := b.outputs[port.Number()]
	if !ok {
		return nil, fmt.Errorf("no pwm channel configured for port %d", port.Number())
	}
	return &motor{board: b, port: port, out: o}, nil
}

func (b *Board) Close() error {
	b.CenterAll()
	if b.bus == nil {
		return nil
	}
	return b.bus.Close()
}

type motor struct {
	board *Board
	port  hardware.Port
	out   output

	mu    sync.Mutex
	timer *time.Timer
}

// set writes value in -1..1 to the ESC and cancels any pending relative move
func (m *motor) set(value float64) error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	return m.write(value)
}

func (m *motor) write(value float64) error {
	fraction := mapToRange(value*float64(m.port.Sign()), -1, 1, MinValue, MaxValue)
	err := m.out.Fraction(float32(fraction))
	if err != nil {
		return fmt.Errorf("failed setting port %d value %.2f: %w", m.port.Number(), fraction, err)
	}
	return nil
}

func (m *motor) MoveVoltage(mV int) error {
	return m.set(float64(hardware.ClampVoltage(mV)) / hardware.MaxVoltage)
}

func (m *motor) Move(level int) error {
	return m.set(float64(hardware.ClampLevel(level)) / hardware.MaxLevel)
}

func (m *motor) MoveVelocity(rpm int) error {
	return m.set(float64(rpm) / float64(m.board.cfg.MaxRPM))
}

// MoveRelative has no encoder feedback on a PWM board, so it runs open loop at speed for the
// time the move would take and then stops.
func (m *motor) MoveRelative(ticks float64, speed int) error {
	if speed <= 0 || ticks == 0 {
		return m.set(0)
	}

	revs := ticks / m.board.cfg.TicksPerRev
	direction := 1.0
	if revs < 0 {
		revs = -revs
		direction = -1
	}
	d := time.Duration(revs / float64(speed) * float64(time.Minute))

	err := m.set(direction * float64(speed) / float64(m.board.cfg.MaxRPM))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer = time.AfterFunc(d, func() {
		err := m.write(0)
		if err != nil {
			m.board.logger.WithError(err).WithField("port", m.port.Number()).Warn("failed stopping port after relative move")
		}
	})
	return nil
}

func mapToRange(value, min, max, minReturn, maxReturn float64) float64 {
	mappedValue := (maxReturn-minReturn)*(value-min)/(max-min) + minReturn

	if mappedValue > maxReturn {
		return maxReturn
	} else if mappedValue < minReturn {
		return minReturn
	} else {
		return mappedValue
	}
}
