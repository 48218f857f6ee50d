package selection

import (
	"sync"
	"testing"

	"github.com/calvinmclean/compbot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New(7)
	assert.Equal(t, compbot.RoutineID(1), s.Selected())
	assert.False(t, s.DebugRunning())
	assert.False(t, s.AutonomousRunning())
	assert.Equal(t, 7, s.Slots())
}

func TestSetSelected(t *testing.T) {
	tests := []struct {
		name     string
		id       compbot.RoutineID
		valid    bool
		expected compbot.RoutineID
	}{
		{"First", 1, true, 1},
		{"Last", 5, true, 5},
		{"Zero", 0, false, 3},
		{"Negative", -1, false, 3},
		{"TooLarge", 99, false, 3},
		{"OneOver", 6, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(5)
			require.NoError(t, s.SetSelected(3))

			err := s.SetSelected(tt.id)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.id, s.Selected())
				return
			}
			assert.ErrorIs(t, err, ErrOutOfRange)
			assert.Equal(t, tt.expected, s.Selected())
		})
	}
}

func TestDebugRunning(t *testing.T) {
	s := New(5)

	assert.True(t, s.SetDebugRunning(true))
	assert.True(t, s.DebugRunning())

	// second start is refused while in flight
	assert.False(t, s.SetDebugRunning(true))

	assert.True(t, s.SetDebugRunning(false))
	assert.False(t, s.DebugRunning())
	assert.False(t, s.SetDebugRunning(false))
}

func TestAutonomousExcludesDebug(t *testing.T) {
	s := New(5)

	require.True(t, s.BeginAutonomous())
	assert.False(t, s.SetDebugRunning(true))
	assert.False(t, s.DebugRunning())

	// finishing a debug run must not release the autonomous owner
	assert.False(t, s.SetDebugRunning(false))
	assert.True(t, s.AutonomousRunning())

	s.EndAutonomous()
	assert.True(t, s.SetDebugRunning(true))
	assert.False(t, s.BeginAutonomous())
}

func TestOwned(t *testing.T) {
	s := New(5)
	assert.False(t, s.Owned())

	require.True(t, s.SetDebugRunning(true))
	assert.True(t, s.Owned())
	require.True(t, s.SetDebugRunning(false))
	assert.False(t, s.Owned())

	require.True(t, s.BeginAutonomous())
	assert.True(t, s.Owned())
	s.EndAutonomous()
	assert.False(t, s.Owned())
}

func TestConcurrentDebugStart(t *testing.T) {
	s := New(5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.SetDebugRunning(true) {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
}
