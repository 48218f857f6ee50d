// Package console is a single-byte command interface for driving the robot from a bench
// terminal or a serial link without the touchscreen.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/calvinmclean/compbot"
)

type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(context.Context, Controller, io.Writer, []byte) error
	Description string
}

// Controller is what the console commands act on
type Controller interface {
	Select(compbot.RoutineID) error
	TriggerDebug()
	RunAutonomous(context.Context) error
	StopAll() error
	Status() string
	Routines() []string
}

var (
	SelectCommand = &Command{
		Flag:      'S',
		InputSize: 1,
		Run: func(_ context.Context, c Controller, w io.Writer, input []byte) error {
			id := b2i(input[0])
			if id == 0 {
				return errors.New("invalid input: " + string(input))
			}
			err := c.Select(compbot.RoutineID(id))
			if err != nil {
				return err
			}
			fmt.Fprintln(w, c.Status())
			return nil
		},
		Description: "Select a routine slot. Input: 1-9.",
	}
	GoCommand = &Command{
		Flag:      'G',
		InputSize: 0,
		Run: func(_ context.Context, c Controller, _ io.Writer, _ []byte) error {
			c.TriggerDebug()
			return nil
		},
		Description: "Start a debug run of the selected routine.",
	}
	AutonomousCommand = &Command{
		Flag:      'A',
		InputSize: 0,
		Run: func(ctx context.Context, c Controller, _ io.Writer, _ []byte) error {
			return c.RunAutonomous(ctx)
		},
		Description: "Run the selected routine as the autonomous period would. Blocks until it returns.",
	}
	StatusCommand = &Command{
		Flag:      'D',
		InputSize: 0,
		Run: func(_ context.Context, c Controller, w io.Writer, _ []byte) error {
			fmt.Fprintln(w, c.Status())
			return nil
		},
		Description: "Print the current state.",
	}
	ListCommand = &Command{
		Flag:      'L',
		InputSize: 0,
		Run: func(_ context.Context, c Controller, w io.Writer, _ []byte) error {
			for i, name := range c.Routines() {
				fmt.Fprintf(w, "%d: %s\n", i+1, name)
			}
			return nil
		},
		Description: "List routine slots.",
	}
	StopCommand = &Command{
		Flag:      'X',
		InputSize: 0,
		Run: func(_ context.Context, c Controller, _ io.Writer, _ []byte) error {
			return c.StopAll()
		},
		Description: "Set zero volts on every motor.",
	}
	HelpCommand = &Command{
		Flag:        'H',
		InputSize:   0,
		Description: "Show all available commands and their descriptions.",
		Run: func(_ context.Context, _ Controller, w io.Writer, _ []byte) error {
			fmt.Fprintln(w, "Available Commands:")
			for _, cmd := range commands {
				fmt.Fprintf(w, "%c: %s\n", cmd.Flag, cmd.Description)
			}
			return nil
		},
	}
)

var commands = []*Command{
	SelectCommand,
	GoCommand,
	AutonomousCommand,
	StatusCommand,
	ListCommand,
	StopCommand,
}

func b2i(b byte) uint {
	v := uint(b - '0')
	if v < 1 || v > 9 {
		return 0
	}
	return v
}

// Run reads commands from r until it returns an error or ctx is done. Errors from commands
// are written to w and do not stop the loop. io.EOF from r ends the loop without an error.
func Run(ctx context.Context, r io.ByteReader, c Controller, w io.Writer) error {
	cmdMap := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
	}
	for _, cmd := range commands {
		cmdMap[cmd.Flag] = cmd
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cmdIn, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading command: %w", err)
		}

		cmd, ok := cmdMap[cmdIn]
		if !ok {
			continue
		}

		in := make([]byte, cmd.InputSize)
		for i := range in {
			in[i], err = r.ReadByte()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}
		}

		err = cmd.Run(ctx, c, w, in)
		if err != nil {
			fmt.Fprintln(w, "error:", err.Error())
		}
	}
}
