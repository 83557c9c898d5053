package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPartnerLockerSerializesHolders(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryPartnerLocker()

	handle, err := locker.Acquire(ctx, "partner_1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := locker.Acquire(ctx, "partner_1", time.Minute); err == nil {
		t.Fatalf("expected second acquisition to be rejected while held")
	}
	// A different partner is independent.
	if _, err := locker.Acquire(ctx, "partner_2", time.Minute); err != nil {
		t.Fatalf("acquire other: %v", err)
	}

	if err := handle.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := locker.Acquire(ctx, "partner_1", time.Minute); err != nil {
		t.Fatalf("expected reacquisition after unlock, got %v", err)
	}
}

func TestMemoryPartnerLockerExpiresLeases(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	locker := NewMemoryPartnerLocker()
	locker.nowFn = func() time.Time { return current }

	if _, err := locker.Acquire(context.Background(), "partner_1", time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	current = current.Add(2 * time.Second)
	if _, err := locker.Acquire(context.Background(), "partner_1", time.Second); err != nil {
		t.Fatalf("expected expired lease to be reclaimable, got %v", err)
	}
}

func TestMemoryPartnerLockerUnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryPartnerLocker()

	first, err := locker.Acquire(ctx, "partner_1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := first.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	second, err := locker.Acquire(ctx, "partner_1", time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	// A stale unlock from the first holder must not release the new lease.
	if err := first.Unlock(ctx); err != nil {
		t.Fatalf("stale unlock: %v", err)
	}
	if _, err := locker.Acquire(ctx, "partner_1", time.Minute); err == nil {
		t.Fatalf("expected lock to still be held by the second holder")
	}
	if err := second.Unlock(ctx); err != nil {
		t.Fatalf("unlock second: %v", err)
	}
}
