// Package hardwaretest provides a Backend that records every actuator command for tests.
package hardwaretest

import (
	"sync"

	"github.com/calvinmclean/compbot/hardware"
)

// Kind is the Motor method that produced a Command
type Kind string

const (
	KindVoltage  Kind = "voltage"
	KindMove     Kind = "move"
	KindRelative Kind = "relative"
	KindVelocity Kind = "velocity"
)

// Command is one recorded Motor call
type Command struct {
	Port  hardware.Port
	Kind  Kind
	Value float64
	Speed int
}

// Recorder implements hardware.Backend
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	failures map[hardware.Port]error
	closed   bool
}

var _ hardware.Backend = &Recorder{}

func NewRecorder() *Recorder {
	return &Recorder{failures: map[hardware.Port]error{}}
}

// Motor returns a Motor that records into r
func (r *Recorder) Motor(port hardware.Port) (hardware.Motor, error) {
	return &motor{port: port, rec: r}, nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// FailPort makes every command to port return err without being recorded
func (r *Recorder) FailPort(port hardware.Port, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[port] = err
}

// Commands returns a copy of everything recorded so far
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// ForPort returns the recorded commands sent to port
func (r *Recorder) ForPort(port hardware.Port) []Command {
	var out []Command
	for _, c := range r.Commands() {
		if c.Port == port {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of recorded commands
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

func (r *Recorder) record(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failures[c.Port]; err != nil {
		return err
	}
	r.commands = append(r.commands, c)
	return nil
}

type motor struct {
	port hardware.Port
	rec  *Recorder
}

func (m *motor) MoveVoltage(mV int) error {
	return m.rec.record(Command{Port: m.port, Kind: KindVoltage, Value: float64(mV)})
}

func (m *motor) Move(level int) error {
	return m.rec.record(Command{Port: m.port, Kind: KindMove, Value: float64(level)})
}

func (m *motor) MoveRelative(ticks float64, speed int) error {
	return m.rec.record(Command{Port: m.port, Kind: KindRelative, Value: ticks, Speed: speed})
}

func (m *motor) MoveVelocity(rpm int) error {
	return m.rec.record(Command{Port: m.port, Kind: KindVelocity, Value: float64(rpm)})
}
