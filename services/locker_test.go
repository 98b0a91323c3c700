package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLockerSerializesOneMatch(t *testing.T) {
	locker := NewMatchLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock(1)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestMatchLockerIndependentMatches(t *testing.T) {
	locker := NewMatchLocker()

	unlock := locker.Lock(1)
	defer unlock()

	// Матч 2 не должен ждать блокировку матча 1; иначе тест зависнет
	// и упадёт по таймауту.
	done := make(chan struct{})
	go func() {
		otherUnlock := locker.Lock(2)
		otherUnlock()
		close(done)
	}()
	<-done
}

func TestMatchLockerForget(t *testing.T) {
	locker := NewMatchLocker()

	for id := 1; id <= 3; id++ {
		unlock := locker.Lock(id)
		unlock()
	}
	locker.mu.Lock()
	require.Len(t, locker.locks, 3)
	locker.mu.Unlock()

	locker.Forget(2)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Len(t, locker.locks, 2)
	assert.NotContains(t, locker.locks, 2)
}
