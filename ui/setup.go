package ui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/calvinmclean/compbot/hardware/serialbridge"
)

// Ports are the serial devices picked in the setup window
type Ports struct {
	Bridge  string
	Gamepad string
}

// SetupWindow asks which serial ports the motor bridge and gamepad are on
type SetupWindow struct {
	app       fyne.App
	listPorts func() ([]string, error)
	OnSubmit  func(Ports)
}

func NewSetupWindow(app fyne.App) *SetupWindow {
	return &SetupWindow{
		app:       app,
		listPorts: serialbridge.GetSerialPorts,
	}
}

func (sw *SetupWindow) loadPortsFromPreferences(ports *Ports) {
	prefs := sw.app.Preferences()
	if ports.Bridge == "" {
		ports.Bridge = prefs.StringWithFallback("bridgePort", "")
	}
	if ports.Gamepad == "" {
		ports.Gamepad = prefs.StringWithFallback("gamepadPort", "")
	}
}

func (sw *SetupWindow) savePortsToPreferences(ports *Ports) {
	prefs := sw.app.Preferences()
	prefs.SetString("bridgePort", ports.Bridge)
	prefs.SetString("gamepadPort", ports.Gamepad)
}

func (sw *SetupWindow) Show(ports *Ports) fyne.Window {
	window := sw.app.NewWindow("compbot - Setup")
	window.Resize(fyne.NewSize(400, 200))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		sw.app.Quit()
	})
	window.Show()

	sw.loadPortsFromPreferences(ports)

	serialPorts, err := sw.listPorts()
	if err != nil && !errors.Is(err, serialbridge.ErrNoUSBSerial) {
		showError(sw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return window
	}
	serialPorts = append(serialPorts, serialbridge.SerialPortNone)

	bridgeEntry := widget.NewSelect(serialPorts, nil)
	if ports.Bridge == "" {
		ports.Bridge = serialPorts[0]
	}
	bridgeEntry.Bind(binding.BindString(&ports.Bridge))

	gamepadEntry := widget.NewSelect(serialPorts, nil)
	gamepadEntry.Bind(binding.BindString(&ports.Gamepad))

	submitButton := widget.NewButton("Submit", func() {
		sw.savePortsToPreferences(ports)
		// show the next window before closing this one so the app keeps running
		if sw.OnSubmit != nil {
			sw.OnSubmit(*ports)
		}
		window.Close()
	})
	submitButton.Disable()

	// an empty gamepad port keeps the one from the config file
	validateForm := func() {
		if ports.Bridge != "" {
			submitButton.Enable()
		} else {
			submitButton.Disable()
		}
	}

	bridgeEntry.OnChanged = func(_ string) { validateForm() }
	gamepadEntry.OnChanged = func(_ string) { validateForm() }
	validateForm()

	form := container.NewVBox(
		widget.NewCard("Serial Ports", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Motor Bridge:"),
				bridgeEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Gamepad:"),
				gamepadEntry,
			),
		)),
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				sw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(form)
	return window
}

func showError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
