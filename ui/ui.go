// Package ui is the touchscreen front end: the autonomous selector grid and a phase timer
package ui

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/panel"
)

// StartFunc builds the robot once its serial ports are known. It returns the selector panel
// to display and a function reporting the current phase.
type StartFunc func(Ports) (*panel.Panel, func() compbot.Phase, error)

// RobotUI is the touchscreen application
type RobotUI struct {
	start StartFunc
	ports Ports

	// AskPorts shows the setup window before the selector
	AskPorts bool

	err error
}

func NewRobotUI(ports Ports, start StartFunc) *RobotUI {
	return &RobotUI{start: start, ports: ports}
}

// Run shows the UI and blocks until the window is closed or ctx is cancelled. It must be
// called from the main goroutine.
func (ui *RobotUI) Run(ctx context.Context) error {
	application := app.New()
	window := application.NewWindow("compbot")

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			application.Quit()
		})
	}()

	if ui.AskPorts {
		setup := NewSetupWindow(application)
		setup.OnSubmit = func(ports Ports) {
			ui.show(ctx, application, window, ports)
		}
		setup.Show(&ui.ports)
		application.Run()
		return ui.err
	}

	ui.show(ctx, application, window, ui.ports)
	application.Run()
	return ui.err
}

func (ui *RobotUI) show(ctx context.Context, application fyne.App, window fyne.Window, ports Ports) {
	p, phase, err := ui.start(ports)
	if err != nil {
		ui.err = err
		window.Show()
		showError(application, window, err)
		return
	}

	content, timer := ui.content(p, phase)
	timer.Go(ctx)

	window.SetContent(content)
	window.Resize(fyne.NewSize(480, 272))
	window.Show()
}

func (ui *RobotUI) content(p *panel.Panel, phase func() compbot.Phase) (fyne.CanvasObject, *phaseTimer) {
	grid := NewSelectorGrid(p)
	timer := newPhaseTimer(phase)

	return container.NewVBox(
		container.NewHBox(
			container.NewPadded(timer.text),
			layout.NewSpacer(),
		),
		grid.Content(),
	), timer
}
