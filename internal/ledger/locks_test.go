package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountLocksReusesMutexPerAccount(t *testing.T) {
	l := newAccountLocks()
	assert.Same(t, l.get("A1"), l.get("A1"))
	assert.NotSame(t, l.get("A1"), l.get("A2"))
}

func TestAccountLocksOpposingOrderDoesNotDeadlock(t *testing.T) {
	l := newAccountLocks()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := l.lock("A1", "A2")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := l.lock("A2", "A1")
			unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	<-done
}

func TestAccountLocksGuardCriticalSection(t *testing.T) {
	l := newAccountLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("A1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}
