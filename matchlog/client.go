// Package matchlog uploads a record of every routine run to a babyapi server so runs can be
// reviewed after a match.
package matchlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/babyapi"
	"github.com/calvinmclean/compbot"
	"github.com/calvinmclean/compbot/routine"
	"github.com/google/uuid"
)

// Kind tells what started a run
type Kind string

const (
	KindDebug      Kind = "debug"
	KindAutonomous Kind = "autonomous"
)

const (
	OutcomeOK        = "ok"
	OutcomeNoRoutine = "no routine"
	OutcomeCancelled = "cancelled"
)

// Run is one execution of a routine
type Run struct {
	ID      uuid.UUID         `json:"id"`
	Routine compbot.RoutineID `json:"routine"`
	Name    string            `json:"name"`
	Kind    Kind              `json:"kind"`
	Start   time.Time         `json:"start"`
	End     time.Time         `json:"end"`
	Outcome string            `json:"outcome,omitempty"`
}

// Outcome summarizes the error returned by a routine
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, routine.ErrNoRoutine):
		return OutcomeNoRoutine
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return err.Error()
	}
}

// Recorder is told when a run starts and again when it ends
type Recorder interface {
	Started(ctx context.Context, r Run) error
	Finished(ctx context.Context, r Run) error
}

// Client is a Recorder that creates a resource on Started and patches it on Finished
type Client struct {
	client *babyapi.Client[*run]
}

var _ Recorder = &Client{}

type run struct {
	// include NilResource so we don't implement Render/Bind which are not needed
	*babyapi.NilResource
	Run
}

func (r run) GetID() string {
	return r.Run.ID.String()
}

func NewClient(addr string) *Client {
	return &Client{client: babyapi.NewClient[*run](addr, "/runs")}
}

func (c *Client) Started(ctx context.Context, r Run) error {
	_, err := c.client.Post(ctx, &run{Run: r})
	if err != nil {
		return fmt.Errorf("error creating run: %w", err)
	}
	return nil
}

func (c *Client) Finished(ctx context.Context, r Run) error {
	_, err := c.client.Patch(ctx, r.ID.String(), &run{Run: r})
	if err != nil {
		return fmt.Errorf("error updating run: %w", err)
	}
	return nil
}

// Noop discards runs. It is used when no server address is configured.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) Started(context.Context, Run) error  { return nil }
func (Noop) Finished(context.Context, Run) error { return nil }

// New returns a Client for addr, or Noop if addr is empty
func New(addr string) Recorder {
	if addr == "" {
		return Noop{}
	}
	return NewClient(addr)
}
