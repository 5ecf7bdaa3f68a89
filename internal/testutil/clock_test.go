package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestFakeClock_StartsFrozen(t *testing.T) {
	clock := NewFakeClock(epoch)
	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch, clock.Now())
}

func TestFakeClock_Advance(t *testing.T) {
	clock := NewFakeClock(epoch)

	assert.Equal(t, epoch.Add(150*time.Millisecond), clock.Advance(150*time.Millisecond))
	assert.Equal(t, epoch.Add(150*time.Millisecond), clock.Now())

	// Backwards for skew scenarios
	clock.Advance(-time.Second)
	assert.Equal(t, epoch.Add(-850*time.Millisecond), clock.Now())
}

func TestFakeClock_Set(t *testing.T) {
	clock := NewFakeClock(epoch)
	later := epoch.Add(time.Hour)

	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	clock := NewFakeClock(epoch)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				clock.Advance(time.Millisecond)
				_ = clock.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, epoch.Add(numGoroutines*callsPerGoroutine*time.Millisecond), clock.Now())
}
