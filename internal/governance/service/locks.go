package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// lockManager serializes signature processing per proposal. Each proposal ID
// owns a one-slot semaphore; acquisition waits up to maxWait before failing
// with a PROPOSAL_BUSY conflict so a stuck holder cannot pile up goroutines.
type lockManager struct {
	mu      sync.Mutex
	locks   map[int64]*proposalLock
	maxWait time.Duration
}

type proposalLock struct {
	slot chan struct{}
	refs int
}

const defaultLockWait = 2 * time.Second

func newLockManager(maxWait time.Duration) *lockManager {
	if maxWait <= 0 {
		maxWait = defaultLockWait
	}
	return &lockManager{
		locks:   make(map[int64]*proposalLock),
		maxWait: maxWait,
	}
}

// acquire takes the proposal's lock, returning a release func. It fails with
// PROPOSAL_BUSY when the lock cannot be taken within the configured wait.
func (m *lockManager) acquire(ctx context.Context, proposalID int64) (func(), error) {
	m.mu.Lock()
	lock, ok := m.locks[proposalID]
	if !ok {
		lock = &proposalLock{slot: make(chan struct{}, 1)}
		m.locks[proposalID] = lock
	}
	lock.refs++
	m.mu.Unlock()

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()

	select {
	case lock.slot <- struct{}{}:
		return func() {
			<-lock.slot
			m.release(proposalID, lock)
		}, nil
	case <-ctx.Done():
		m.release(proposalID, lock)
		return nil, ctx.Err()
	case <-timer.C:
		m.release(proposalID, lock)
		return nil, apperrors.New(apperrors.CodeProposalBusy,
			fmt.Sprintf("proposal %d is busy, retry", proposalID))
	}
}

// release drops one reference, removing the map entry when unused so the
// manager does not grow with every proposal ever touched.
func (m *lockManager) release(proposalID int64, lock *proposalLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock.refs--
	if lock.refs <= 0 {
		delete(m.locks, proposalID)
	}
}
