package crdt

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReplicaClock(t *testing.T) {
	clock := NewReplicaClock()

	require.NotNil(t, clock)
	assert.Equal(t, uint64(0), clock.Next(), "New clock should start at 0")

	_, err := uuid.Parse(clock.ReplicaID())
	assert.NoError(t, err, "Replica ID should be a valid UUID")
}

func TestNewReplicaClock_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewReplicaClock().ReplicaID()
		assert.False(t, seen[id], "Replica IDs must be unique")
		seen[id] = true
	}
}

func TestReplicaClock_Reserve(t *testing.T) {
	clock := NewReplicaClockWithID("replica-a")

	assert.Equal(t, uint64(0), clock.Reserve(5))
	assert.Equal(t, uint64(5), clock.Reserve(1))
	assert.Equal(t, uint64(6), clock.Next())
	assert.Equal(t, "replica-a", clock.ReplicaID())
}

func TestReplicaClock_Advance(t *testing.T) {
	tests := []struct {
		name     string
		start    uint64
		advance  uint64
		expected uint64
	}{
		{name: "advance forward", start: 3, advance: 10, expected: 10},
		{name: "never goes back", start: 10, advance: 3, expected: 10},
		{name: "same value", start: 4, advance: 4, expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewReplicaClockWithID("replica-a")
			clock.Reserve(tt.start)
			clock.Advance(tt.advance)
			assert.Equal(t, tt.expected, clock.Next())
		})
	}
}

func TestReplicaClock_ConcurrentReserve(t *testing.T) {
	clock := NewReplicaClockWithID("replica-a")

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[uint64]bool)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first := clock.Reserve(2)
			mu.Lock()
			defer mu.Unlock()
			seen[first] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50, "Every reservation should get a distinct block")
	assert.Equal(t, uint64(100), clock.Next())
}
