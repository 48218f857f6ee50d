package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/calvinmclean/compbot"
)

// phaseTimer shows the current phase and how long the robot has been in it
type phaseTimer struct {
	phase     func() compbot.Phase
	current   compbot.Phase
	startTime time.Time
	mtx       *sync.Mutex
	text      *canvas.Text
}

func newPhaseTimer(phase func() compbot.Phase) *phaseTimer {
	return &phaseTimer{
		phase:   phase,
		current: compbot.PhaseUnknown,
		mtx:     &sync.Mutex{},
		text:    canvas.NewText(compbot.PhaseUnknown.String()+" 00:00", nil),
	}
}

func (t *phaseTimer) update(now time.Time) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	phase := t.phase()
	if phase != t.current || t.startTime.IsZero() {
		t.current = phase
		t.startTime = now
	}

	elapsed := now.Sub(t.startTime)
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	t.text.Text = fmt.Sprintf("%s %02d:%02d", phase, minutes, seconds)
	t.text.Refresh()
}

func (t *phaseTimer) Go(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				fyne.Do(func() {
					t.update(now)
				})
			}
		}
	}()
}
