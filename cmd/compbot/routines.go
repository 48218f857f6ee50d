package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/hardware"
	"github.com/calvinmclean/compbot/routine"
	"github.com/calvinmclean/compbot/ui"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRoutinesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routines",
		Short: "List the autonomous selector slots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			labels, err := cfg.RoutineLabels()
			if err != nil {
				return err
			}

			// devices are not used for listing
			registry := routine.Default(hardware.Devices{})
			registry.Rename(labels)

			printRoutines(cmd.OutOrStdout(), registry)
			return nil
		},
	}
}

func printRoutines(w io.Writer, registry *routine.Registry) {
	bound := color.New(color.FgGreen).SprintFunc()
	placeholder := color.New(color.FgYellow).SprintFunc()

	for _, e := range registry.Entries() {
		if e.Run == nil {
			fmt.Fprintf(w, "%d: %s %s\n", e.ID, e.Name, placeholder("(no routine)"))
			continue
		}
		fmt.Fprintf(w, "%d: %s\n", e.ID, bound(e.Name))
	}
}

func newAutonCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auton <id>",
		Short: "Run one routine as the autonomous period would, without the UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid routine id %q: %w", args[0], err)
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			r, err := newRobot(cfg, ui.Ports{}, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			err = r.state.SetSelected(compbot.RoutineID(id))
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			err = r.hooks.Initialize(ctx)
			if err != nil {
				return err
			}
			return r.hooks.RunAutonomous(ctx)
		},
	}
}
