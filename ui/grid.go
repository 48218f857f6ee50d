package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/calvinmclean/compbot/panel"
)

// SelectorGrid shows the autonomous selector as a grid of buttons
type SelectorGrid struct {
	buttons   []*widget.Button
	container *fyne.Container
}

var _ panel.Grid = &SelectorGrid{}

// NewSelectorGrid creates one button per panel cell and attaches itself to p
func NewSelectorGrid(p *panel.Panel) *SelectorGrid {
	g := &SelectorGrid{}

	objects := make([]fyne.CanvasObject, 0, len(p.Buttons()))
	for _, b := range p.Buttons() {
		index := b.Index
		button := widget.NewButton(b.Label, func() {
			p.Click(index)
		})
		g.buttons = append(g.buttons, button)
		objects = append(objects, button)
	}
	g.container = container.NewGridWithColumns(panel.Columns, objects...)

	p.Attach(g)
	return g
}

func (g *SelectorGrid) Content() fyne.CanvasObject {
	return g.container
}

func (g *SelectorGrid) SetLabel(index int, text string) {
	if index < 0 || index >= len(g.buttons) {
		return
	}
	button := g.buttons[index]
	fyne.Do(func() {
		button.SetText(text)
	})
}

// SetChecked highlights the button of the selected routine
func (g *SelectorGrid) SetChecked(index int, checked bool) {
	if index < 0 || index >= len(g.buttons) {
		return
	}
	button := g.buttons[index]
	fyne.Do(func() {
		if checked {
			button.Importance = widget.HighImportance
		} else {
			button.Importance = widget.MediumImportance
		}
		button.Refresh()
	})
}
