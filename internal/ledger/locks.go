package ledger

import "sync"

// accountLocks hands out one mutex per account number so operations on
// unrelated accounts never contend. Locks are created lazily and kept for
// the life of the process; accounts are never deleted.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *accountLocks) get(accountNumber string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[accountNumber]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountNumber] = m
	}
	return m
}

// lock acquires the mutexes for the given accounts in lexicographic
// order regardless of argument order, so two opposing transfers between
// the same pair can never deadlock. The returned function releases them.
func (l *accountLocks) lock(accountNumbers ...string) (unlock func()) {
	ordered := make([]string, len(accountNumbers))
	copy(ordered, accountNumbers)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j] < ordered[j-1]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, n := range ordered {
		m := l.get(n)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
