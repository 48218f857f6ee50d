package routine

import (
	"context"
	"errors"
	"time"

	"github.com/calvinmclean/compbot/hardware"
)

// Scripts runs the robot's motion scripts against a fixed set of devices
type Scripts struct {
	d hardware.Devices

	// Scale shortens every wait. It is 1 on the robot.
	Scale float64
}

// NewScripts creates Scripts for d
func NewScripts(d hardware.Devices) *Scripts {
	return &Scripts{d: d, Scale: 1}
}

// Default builds the selector's seven slots. The last two are placeholders that only carry a
// label.
func Default(d hardware.Devices) *Registry {
	s := NewScripts(d)
	return NewRegistry(
		Entry{Name: "Left Qual Auton", Run: s.LeftQual},
		Entry{Name: "Right Qual Auton", Run: s.RightQual},
		Entry{Name: "Skills Auton Qual", Run: s.SkillsQual},
		Entry{Name: "Right Qual Center", Run: s.RightQualCenter},
		Entry{Name: "Left Qual Ram", Run: s.LeftQualRam},
		Entry{Name: "Defensive Mode"},
		Entry{Name: "High Speed Mode"},
	)
}

func (s *Scripts) wait(ctx context.Context, d time.Duration) error {
	return delay(ctx, time.Duration(float64(d)*s.Scale))
}

// drive moves both sides by ticks at speed
func (s *Scripts) drive(left, right float64, speed int) error {
	return errors.Join(
		s.d.LeftDrive.MoveRelative(left, speed),
		s.d.RightDrive.MoveRelative(right, speed),
	)
}

// LeftQual drives forward then runs the intake for a second
func (s *Scripts) LeftQual(ctx context.Context) error {
	err := s.drive(1000, 1000, 100)
	if err != nil {
		return err
	}
	if err := s.wait(ctx, 2*time.Second); err != nil {
		return err
	}

	err = s.d.Intake.MoveVelocity(200)
	if err != nil {
		return err
	}
	defer s.d.Intake.MoveVelocity(0)

	return s.wait(ctx, time.Second)
}

// RightQual mirrors LeftQual with a turn towards the goal before scoring
func (s *Scripts) RightQual(ctx context.Context) error {
	err := s.drive(1000, 1000, 100)
	if err != nil {
		return err
	}
	if err := s.wait(ctx, 2*time.Second); err != nil {
		return err
	}

	err = s.drive(-300, 300, 60)
	if err != nil {
		return err
	}
	if err := s.wait(ctx, time.Second); err != nil {
		return err
	}

	err = s.d.Intake.MoveVelocity(200)
	if err != nil {
		return err
	}
	defer s.d.Intake.MoveVelocity(0)

	return s.wait(ctx, time.Second)
}

// SkillsQual collects, lifts and scores twice
func (s *Scripts) SkillsQual(ctx context.Context) error {
	for range 2 {
		err := s.d.Intake.MoveVelocity(200)
		if err != nil {
			return err
		}
		err = s.drive(800, 800, 80)
		if err != nil {
			return err
		}
		if err := s.wait(ctx, 2*time.Second); err != nil {
			return err
		}

		err = s.d.Lift.MoveVoltage(8000)
		if err != nil {
			return err
		}
		if err := s.wait(ctx, 1500*time.Millisecond); err != nil {
			return err
		}
		err = errors.Join(s.d.Lift.MoveVoltage(0), s.d.Intake.MoveVelocity(0))
		if err != nil {
			return err
		}

		err = s.drive(-800, -800, 80)
		if err != nil {
			return err
		}
		if err := s.wait(ctx, 2*time.Second); err != nil {
			return err
		}
	}
	return nil
}

// RightQualCenter drives to the center goal and outtakes
func (s *Scripts) RightQualCenter(ctx context.Context) error {
	err := s.drive(1400, 1400, 100)
	if err != nil {
		return err
	}
	if err := s.wait(ctx, 2500*time.Millisecond); err != nil {
		return err
	}

	err = s.d.Intake.MoveVelocity(-200)
	if err != nil {
		return err
	}
	defer s.d.Intake.MoveVelocity(0)

	return s.wait(ctx, time.Second)
}

// LeftQualRam drives full voltage into the opposing side then backs off
func (s *Scripts) LeftQualRam(ctx context.Context) error {
	err := errors.Join(
		s.d.LeftDrive.MoveVoltage(hardware.MaxVoltage),
		s.d.RightDrive.MoveVoltage(hardware.MaxVoltage),
	)
	if err != nil {
		return err
	}
	defer s.d.LeftDrive.MoveVoltage(0)
	defer s.d.RightDrive.MoveVoltage(0)

	if err := s.wait(ctx, 1500*time.Millisecond); err != nil {
		return err
	}

	err = s.drive(-500, -500, 100)
	if err != nil {
		return err
	}
	return s.wait(ctx, time.Second)
}
