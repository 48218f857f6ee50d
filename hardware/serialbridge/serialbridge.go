// Package serialbridge drives motors through a microcontroller that owns the motor ports and
// accepts one ASCII command per line over USB serial.
package serialbridge

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/calvinmclean/compbot/hardware"
	"go.bug.st/serial"
)

// SerialPortNone can be selected to run without a bridge attached
const SerialPortNone = "None"

// ErrNoUSBSerial is returned by GetSerialPorts when no USB serial device is attached
var ErrNoUSBSerial = errors.New("no USB serial ports found")

// Bridge implements hardware.Backend over a serial connection
type Bridge struct {
	mu     sync.Mutex
	writer io.Writer
	closer io.Closer
}

var _ hardware.Backend = &Bridge{}

// Open connects to the bridge on portName
func Open(portName string, baudRate int) (*Bridge, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", portName, err)
	}
	return New(port), nil
}

// New creates a Bridge that writes commands to w. If w is also an io.Closer it is closed by
// Close.
func New(w io.Writer) *Bridge {
	b := &Bridge{writer: w}
	if c, ok := w.(io.Closer); ok {
		b.closer = c
	}
	return b
}

// GetSerialPorts lists attached serial ports that look like USB devices
func GetSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var usb []string
	for _, p := range ports {
		lower := strings.ToLower(p)
		if strings.Contains(lower, "usb") || strings.Contains(lower, "acm") {
			usb = append(usb, p)
		}
	}
	if len(usb) == 0 {
		return nil, ErrNoUSBSerial
	}
	return usb, nil
}

// Motor returns the motor on port
func (b *Bridge) Motor(port hardware.Port) (hardware.Motor, error) {
	if port.Number() == 0 {
		return nil, errors.New("port must be non-zero")
	}
	return &motor{bridge: b, port: port}, nil
}

func (b *Bridge) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// send writes one full line so commands from different goroutines never interleave
func (b *Bridge) send(format string, args ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := fmt.Fprintf(b.writer, format+"\n", args...)
	if err != nil {
		return fmt.Errorf("error writing to bridge: %w", err)
	}
	return nil
}

type motor struct {
	bridge *Bridge
	port   hardware.Port
}

func (m *motor) MoveVoltage(mV int) error {
	mV = hardware.ClampVoltage(mV) * m.port.Sign()
	return m.bridge.send("V%d %d", m.port.Number(), mV)
}

func (m *motor) Move(level int) error {
	level = hardware.ClampLevel(level) * m.port.Sign()
	return m.bridge.send("M%d %d", m.port.Number(), level)
}

func (m *motor) MoveRelative(ticks float64, speed int) error {
	ticks *= float64(m.port.Sign())
	return m.bridge.send("R%d %.0f %d", m.port.Number(), ticks, speed)
}

func (m *motor) MoveVelocity(rpm int) error {
	rpm *= m.port.Sign()
	return m.bridge.send("S%d %d", m.port.Number(), rpm)
}
