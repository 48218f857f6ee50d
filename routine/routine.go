// Package routine holds the registry of autonomous routines. The same dispatch is used by the
// autonomous period and by operator-triggered debug runs.
package routine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/compbot"
)

// ErrNoRoutine is returned by Dispatch for ids that have no entrypoint
var ErrNoRoutine = errors.New("no auton selected")

// Func is a blocking motion script. It should return early with ctx.Err() if ctx is cancelled.
type Func func(ctx context.Context) error

// Entry is one selector slot. Run is nil for placeholder slots that only have a label.
type Entry struct {
	ID   compbot.RoutineID
	Name string
	Run  Func
}

// Registry is the ordered list of selector slots
type Registry struct {
	entries []Entry
}

// NewRegistry creates a Registry from entries. IDs are assigned from position, starting at 1.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		e.ID = compbot.RoutineID(i + 1)
		r.entries[i] = e
	}
	return r
}

// Len returns the number of slots
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the slots in order
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup returns the slot for id
func (r *Registry) Lookup(id compbot.RoutineID) (Entry, bool) {
	if id < 1 || int(id) > len(r.entries) {
		return Entry{}, false
	}
	return r.entries[id-1], true
}

// Name returns the label for id, or "" if there is no such slot
func (r *Registry) Name(id compbot.RoutineID) string {
	e, _ := r.Lookup(id)
	return e.Name
}

// Names returns the slot labels in order
func (r *Registry) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

// Rename replaces slot labels. Keys that are not slots are ignored.
func (r *Registry) Rename(labels map[compbot.RoutineID]string) {
	for id, name := range labels {
		if id < 1 || int(id) > len(r.entries) || name == "" {
			continue
		}
		r.entries[id-1].Name = name
	}
}

// Dispatch runs the routine for id and blocks until it returns. Unknown and placeholder ids
// return ErrNoRoutine without touching the hardware.
func (r *Registry) Dispatch(ctx context.Context, id compbot.RoutineID) error {
	e, ok := r.Lookup(id)
	if !ok || e.Run == nil {
		return fmt.Errorf("%w: %d", ErrNoRoutine, id)
	}

	err := e.Run(ctx)
	if err != nil {
		return fmt.Errorf("routine %q: %w", e.Name, err)
	}
	return nil
}

// delay sleeps for d or until ctx is done
func delay(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
