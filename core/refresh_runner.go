package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRefreshMaxAttempts    = 3
	defaultRefreshInitialBackoff = 500 * time.Millisecond
	defaultRefreshMaxBackoff     = 10 * time.Second
)

type RefreshBackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultRefreshInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultRefreshMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

type RefreshRunResult struct {
	Attempts    int
	MarkedStale bool
}

type RefreshRunOptions struct {
	MaxAttempts int
	Backoff     RefreshBackoffScheduler
}

// RunRefreshWithRetry drives RefreshPartner until it succeeds, the error
// turns out to be unrecoverable, or attempts run out. On exhaustion the
// partner keeps its stale flag so the periodic sweep picks it up again.
func (s *Service) RunRefreshWithRetry(ctx context.Context, partnerID string, opts RefreshRunOptions) (RefreshRunResult, error) {
	if s == nil {
		return RefreshRunResult{}, fmt.Errorf("core: service is nil")
	}
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return RefreshRunResult{}, s.mapError(fmt.Errorf("core: partner id is required"))
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultRefreshMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := s.RefreshPartner(ctx, partnerID)
		if err == nil {
			return RefreshRunResult{Attempts: attempt}, nil
		}
		lastErr = err

		if isUnrecoverableRefreshError(err) {
			return RefreshRunResult{Attempts: attempt}, s.mapError(err)
		}
		if attempt == maxAttempts {
			stale := s.markPartnerStale(ctx, partnerID, err) == nil
			return RefreshRunResult{Attempts: attempt, MarkedStale: stale}, s.mapError(err)
		}

		delay := defaultRefreshInitialBackoff
		if opts.Backoff != nil {
			delay = opts.Backoff.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return RefreshRunResult{Attempts: attempt}, s.mapError(waitErr)
		}
	}

	return RefreshRunResult{Attempts: maxAttempts}, s.mapError(lastErr)
}

// markPartnerStale flags the record for the stale sweep once the retries
// are exhausted. Missing partners and store errors are left to the sweep.
func (s *Service) markPartnerStale(ctx context.Context, partnerID string, source error) error {
	if s == nil || s.partnerStore == nil {
		return nil
	}
	partner, err := s.partnerStore.Get(ctx, partnerID)
	if err != nil {
		return err
	}
	if partner.ID == "" || partner.NeedsRefresh {
		return nil
	}
	partner.NeedsRefresh = true
	partner.UpdatedAt = s.clock()
	s.logInfo(ctx, "partner marked stale after refresh retries", map[string]any{
		"partner_id": partnerID,
		"reason":     strings.TrimSpace(fmt.Sprint(source)),
	})
	_, err = s.partnerStore.Update(ctx, partner)
	return err
}

func isUnrecoverableRefreshError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryValidation, goerrors.CategoryNotFound:
			return true
		}
		switch strings.TrimSpace(strings.ToUpper(richErr.TextCode)) {
		case AgentErrorPartnerNotFound, AgentErrorBadInput:
			return true
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "did is malformed") ||
		strings.Contains(msg, "partner was removed")
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
