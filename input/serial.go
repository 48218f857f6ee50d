package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// SerialSource reads controller reports from a receiver on a serial port. Each report is a
// line: "<buttons> <lx> <ly> <rx> <ry>" with the button bitmask in decimal and axes in
// -127..127.
type SerialSource struct {
	reader    io.ReadCloser
	logger    logrus.FieldLogger
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	state  ControlState
	errors int
}

var _ Source = &SerialSource{}

// OpenSerial opens the controller receiver on portName
func OpenSerial(portName string, baudRate int, logger logrus.FieldLogger) (*SerialSource, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("error opening controller port %q: %w", portName, err)
	}
	return NewSerialSource(port, logger), nil
}

// NewSerialSource reads reports from r
func NewSerialSource(r io.ReadCloser, logger logrus.FieldLogger) *SerialSource {
	return &SerialSource{reader: r, logger: logger}
}

func (s *SerialSource) State() ControlState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Errors returns the number of malformed reports that were dropped
func (s *SerialSource) Errors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// Run reads reports until ctx is done or the reader fails. If the link drops the last report
// is cleared so nothing keeps moving.
func (s *SerialSource) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stop:
		}
	}()
	defer s.Set(ControlState{})

	scanner := bufio.NewScanner(s.reader)
	for scanner.Scan() {
		state, err := ParseReport(scanner.Text())
		if err != nil {
			s.mu.Lock()
			s.errors++
			s.mu.Unlock()
			s.logger.WithError(err).Debug("dropping controller report")
			continue
		}
		s.Set(state)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading controller: %w", err)
	}
	return io.EOF
}

// Close closes the port. A Run in progress returns once its read fails.
func (s *SerialSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.reader.Close()
	})
	return s.closeErr
}

// Set replaces the current state
func (s *SerialSource) Set(state ControlState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// ParseReport decodes one report line
func ParseReport(line string) (ControlState, error) {
	fields := strings.Fields(line)
	if len(fields) != AxisCount+1 {
		return ControlState{}, fmt.Errorf("expected %d fields, got %d: %q", AxisCount+1, len(fields), line)
	}

	buttons, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return ControlState{}, fmt.Errorf("invalid buttons %q: %w", fields[0], err)
	}

	state := ControlState{Buttons: uint32(buttons)}
	for i := range AxisCount {
		v, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return ControlState{}, fmt.Errorf("invalid axis %d %q: %w", i, fields[i+1], err)
		}
		state.Axes[i] = clampAxis(v)
	}
	return state, nil
}

func clampAxis(v int) int {
	if v > MaxAxis {
		return MaxAxis
	}
	if v < MinAxis {
		return MinAxis
	}
	return v
}
