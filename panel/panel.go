// Package panel implements the autonomous selector: a grid with one button per routine slot
// and a trailing button that starts a debug run of the selected routine.
package panel

import (
	"sync"

	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/routine"
	"github.com/calvinmclean/compbot/selection"
	"github.com/sirupsen/logrus"
)

const (
	IdleDebugLabel = "debug test run"
	RunningLabel   = "running..."

	// Columns is the width of the button grid on the touchscreen
	Columns = 4
)

// Role says what a button does when clicked
type Role int

const (
	RoleRoutineSelect Role = iota
	RoleDebugTrigger
)

func (r Role) String() string {
	if r == RoleDebugTrigger {
		return "DebugTrigger"
	}
	return "RoutineSelect"
}

// Button is one cell of the grid
type Button struct {
	Index   int
	Role    Role
	Label   string
	Routine compbot.RoutineID
}

// Grid is the toolkit side of the selector. Implementations must accept calls from any
// goroutine since debug runs finish in the background.
type Grid interface {
	SetLabel(index int, text string)
	SetChecked(index int, checked bool)
}

// Starter hands a routine off to run in the background. done must be called exactly once
// when the routine returns.
type Starter interface {
	StartDebug(id compbot.RoutineID, done func())
}

// Panel translates clicks into selection changes and debug runs
type Panel struct {
	mu      sync.Mutex
	state   *selection.State
	starter Starter
	grid    Grid
	buttons []Button
	trigger int
	logger  logrus.FieldLogger
}

// New builds the button layout from the registry: one RoutineSelect button per slot followed
// by the DebugTrigger button.
func New(state *selection.State, registry *routine.Registry, starter Starter, logger logrus.FieldLogger) *Panel {
	entries := registry.Entries()
	buttons := make([]Button, 0, len(entries)+1)
	for i, e := range entries {
		buttons = append(buttons, Button{
			Index:   i,
			Role:    RoleRoutineSelect,
			Label:   e.Name,
			Routine: e.ID,
		})
	}
	trigger := len(buttons)
	buttons = append(buttons, Button{
		Index: trigger,
		Role:  RoleDebugTrigger,
		Label: IdleDebugLabel,
	})

	return &Panel{
		state:   state,
		starter: starter,
		grid:    nopGrid{},
		buttons: buttons,
		trigger: trigger,
		logger:  logger,
	}
}

// Buttons returns the grid layout in index order
func (p *Panel) Buttons() []Button {
	out := make([]Button, len(p.buttons))
	copy(out, p.buttons)
	return out
}

// TriggerIndex is the index of the DebugTrigger button
func (p *Panel) TriggerIndex() int {
	return p.trigger
}

// Attach connects the panel to a Grid and paints labels and the checked button for the
// current selection. Clicks before Attach only change state.
func (p *Panel) Attach(grid Grid) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.grid = grid
	selected := p.state.Selected()
	for _, b := range p.buttons {
		label := b.Label
		if b.Role == RoleDebugTrigger && p.state.DebugRunning() {
			label = RunningLabel
		}
		grid.SetLabel(b.Index, label)
		grid.SetChecked(b.Index, b.Role == RoleRoutineSelect && b.Routine == selected)
	}
}

// Click handles a tap on the button at index
func (p *Panel) Click(index int) {
	id, start := p.click(index)
	if start {
		p.starter.StartDebug(id, p.finishDebug)
	}
}

// click updates state and the grid. It returns the routine to hand to the starter when a
// debug run should begin; the hand off happens outside the lock.
func (p *Panel) click(index int) (compbot.RoutineID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.buttons) {
		p.logger.WithField("index", index).Warn("click outside of selector grid")
		return 0, false
	}

	b := p.buttons[index]
	if b.Role == RoleDebugTrigger {
		return p.startDebug()
	}
	p.selectRoutine(b)
	return 0, false
}

func (p *Panel) selectRoutine(b Button) {
	err := p.state.SetSelected(b.Routine)
	if err != nil {
		p.logger.WithError(err).Error("unable to select routine")
		return
	}

	// the trigger label is left alone so it keeps showing a run started for an earlier selection
	for _, other := range p.buttons {
		if other.Role != RoleRoutineSelect {
			continue
		}
		p.grid.SetChecked(other.Index, other.Index == b.Index)
	}

	p.logger.WithFields(logrus.Fields{
		"routine": b.Routine,
		"name":    b.Label,
	}).Info("selected routine")
}

func (p *Panel) startDebug() (compbot.RoutineID, bool) {
	if !p.state.SetDebugRunning(true) {
		p.logger.Debug("debug run already in flight, ignoring click")
		return 0, false
	}

	p.grid.SetLabel(p.trigger, RunningLabel)

	// read once at hand off, later selections do not change this run
	return p.state.Selected(), true
}

func (p *Panel) finishDebug() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.grid.SetLabel(p.trigger, IdleDebugLabel)
	p.state.SetDebugRunning(false)
}

// Select clicks the button for id. It is used by the bench console so that selections made
// there follow the same path as a touch.
func (p *Panel) Select(id compbot.RoutineID) error {
	if id < 1 || int(id) > p.trigger {
		return p.state.SetSelected(id)
	}
	p.Click(int(id) - 1)
	return nil
}

// TriggerDebug clicks the DebugTrigger button
func (p *Panel) TriggerDebug() {
	p.Click(p.trigger)
}

type nopGrid struct{}

func (nopGrid) SetLabel(int, string)  {}
func (nopGrid) SetChecked(int, bool) {}
