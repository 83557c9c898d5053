package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultPartnerLockTTL = 30 * time.Second

type MemoryPartnerLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	nowFn func() time.Time
}

func NewMemoryPartnerLocker() *MemoryPartnerLocker {
	return &MemoryPartnerLocker{
		locks: make(map[string]time.Time),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryPartnerLocker) Acquire(_ context.Context, partnerID string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: partner locker is not configured")
	}
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return nil, fmt.Errorf("core: partner id is required for lock acquisition")
	}
	if ttl <= 0 {
		ttl = defaultPartnerLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.locks[partnerID]; ok && now.Before(until) {
		return nil, fmt.Errorf("core: lock already held for partner %q", partnerID)
	}
	l.locks[partnerID] = now.Add(ttl)
	return &memoryLockHandle{locker: l, partnerID: partnerID}, nil
}

type memoryLockHandle struct {
	locker    *MemoryPartnerLocker
	partnerID string
	once      sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.locks, h.partnerID)
		h.locker.mu.Unlock()
	})
	return nil
}

var _ PartnerLocker = (*MemoryPartnerLocker)(nil)
