package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LookupPartner fetches a partner's public profile and returns a transient
// preview. Nothing is persisted; a failed or timed-out resolution surfaces
// as a lookup failure.
func (s *Service) LookupPartner(ctx context.Context, did string) (preview Partner, err error) {
	startedAt := s.clock()
	fields := map[string]any{"did": did}
	defer func() {
		s.observeOperation(ctx, startedAt, "lookup_partner", err, fields)
	}()

	if s == nil || s.lookupClient == nil {
		err = s.mapError(fmt.Errorf("core: profile lookup client is required"))
		return Partner{}, err
	}
	did = strings.TrimSpace(did)
	if validationErr := ValidateDID(did); validationErr != nil {
		err = s.mapError(validationErr)
		return Partner{}, err
	}

	profile, fetchErr := s.fetchProfile(ctx, did)
	if fetchErr != nil {
		err = s.mapError(LookupError(did, fetchErr))
		return Partner{}, err
	}

	now := s.clock()
	return Partner{
		DID:             did,
		Profile:         profile,
		State:           PartnerStateLookedUp,
		LastRefreshedAt: &now,
	}, nil
}

// AddPartner registers a new partner by did. The profile lookup is
// failure-tolerant: a partner whose agent is offline is still created, with
// an empty profile and the needs-refresh flag set, so registration never
// blocks on the remote side. A did that is already registered is rejected.
func (s *Service) AddPartner(ctx context.Context, did string, alias string) (partner Partner, err error) {
	startedAt := s.clock()
	fields := map[string]any{"did": did, "alias": alias}
	defer func() {
		s.observeOperation(ctx, startedAt, "add_partner", err, fields)
	}()

	if s == nil || s.partnerStore == nil {
		err = s.mapError(fmt.Errorf("core: partner store is required"))
		return Partner{}, err
	}
	did = strings.TrimSpace(did)
	if validationErr := ValidateDID(did); validationErr != nil {
		err = s.mapError(validationErr)
		return Partner{}, err
	}

	unlock, lockErr := s.lockPartnerScope(ctx, did)
	if lockErr != nil {
		err = s.mapError(lockErr)
		return Partner{}, err
	}
	defer unlock()

	if existing, getErr := s.partnerStore.GetByDID(ctx, did); getErr == nil && existing.ID != "" {
		err = s.mapError(DuplicateDidError(did))
		return Partner{}, err
	}

	input := CreatePartnerInput{
		DID:   did,
		Alias: strings.TrimSpace(alias),
		State: PartnerStateAdded,
	}
	profile, fetchErr := s.fetchProfile(ctx, did)
	if fetchErr != nil {
		input.NeedsRefresh = true
		s.logInfo(ctx, "partner profile unavailable at registration", map[string]any{
			"did":   did,
			"error": fetchErr.Error(),
		})
	} else {
		input.Profile = profile
	}

	created, createErr := s.partnerStore.Create(ctx, input)
	if createErr != nil {
		err = s.mapError(createErr)
		return Partner{}, err
	}
	fields["partner_id"] = created.ID

	if input.NeedsRefresh {
		s.enqueueRefresh(ctx, created)
	}
	return created, nil
}

// GetPartners returns every known partner ordered by creation time.
func (s *Service) GetPartners(ctx context.Context) ([]Partner, error) {
	if s == nil || s.partnerStore == nil {
		return nil, s.mapError(fmt.Errorf("core: partner store is required"))
	}
	partners, err := s.partnerStore.List(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return partners, nil
}

func (s *Service) GetPartnerByID(ctx context.Context, id string) (Partner, error) {
	if s == nil || s.partnerStore == nil {
		return Partner{}, s.mapError(fmt.Errorf("core: partner store is required"))
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Partner{}, s.mapError(fmt.Errorf("core: partner id is required"))
	}
	partner, err := s.partnerStore.Get(ctx, id)
	if err != nil {
		return Partner{}, s.mapError(err)
	}
	if partner.ID == "" {
		return Partner{}, s.mapError(PartnerNotFoundError(id))
	}
	return partner, nil
}

// RemovePartnerByID deletes the partner record. The call is idempotent;
// exchanges referencing the id stay behind for audit.
func (s *Service) RemovePartnerByID(ctx context.Context, id string) (err error) {
	startedAt := s.clock()
	fields := map[string]any{"partner_id": id}
	defer func() {
		s.observeOperation(ctx, startedAt, "remove_partner", err, fields)
	}()

	if s == nil || s.partnerStore == nil {
		err = s.mapError(fmt.Errorf("core: partner store is required"))
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		err = s.mapError(fmt.Errorf("core: partner id is required"))
		return err
	}

	unlock, lockErr := s.lockPartnerScope(ctx, id)
	if lockErr != nil {
		err = s.mapError(lockErr)
		return err
	}
	defer unlock()

	if deleteErr := s.partnerStore.Delete(ctx, id); deleteErr != nil {
		err = s.mapError(deleteErr)
		return err
	}
	return nil
}

// RefreshPartner re-runs the profile lookup for an existing partner. On
// success the stored profile and refresh timestamp are replaced; on failure
// the stored record is left untouched and the lookup failure is surfaced.
func (s *Service) RefreshPartner(ctx context.Context, id string) (partner Partner, err error) {
	startedAt := s.clock()
	fields := map[string]any{"partner_id": id}
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_partner", err, fields)
	}()

	if s == nil || s.partnerStore == nil || s.lookupClient == nil {
		err = s.mapError(fmt.Errorf("core: partner store and lookup client are required"))
		return Partner{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		err = s.mapError(fmt.Errorf("core: partner id is required"))
		return Partner{}, err
	}

	unlock, lockErr := s.lockPartnerScope(ctx, id)
	if lockErr != nil {
		err = s.mapError(lockErr)
		return Partner{}, err
	}
	defer unlock()

	current, getErr := s.partnerStore.Get(ctx, id)
	if getErr != nil {
		err = s.mapError(getErr)
		return Partner{}, err
	}
	if current.ID == "" {
		err = s.mapError(PartnerNotFoundError(id))
		return Partner{}, err
	}
	fields["did"] = current.DID

	profile, fetchErr := s.fetchProfile(ctx, current.DID)
	if fetchErr != nil {
		err = s.mapError(LookupError(current.DID, fetchErr))
		return Partner{}, err
	}

	now := s.clock()
	current.Profile = profile
	current.NeedsRefresh = false
	current.LastRefreshedAt = &now
	if transitionErr := current.TransitionTo(PartnerStateRefreshed, now); transitionErr != nil {
		err = s.mapError(transitionErr)
		return Partner{}, err
	}

	updated, updateErr := s.partnerStore.Update(ctx, current)
	if updateErr != nil {
		err = s.mapError(updateErr)
		return Partner{}, err
	}
	return updated, nil
}

// RefreshStalePartners re-looks-up partners flagged needs-refresh, either
// inline or by enqueueing background jobs when an enqueuer is configured.
// Lookup failures leave the flag set so the next sweep retries.
func (s *Service) RefreshStalePartners(ctx context.Context, limit int) (refreshed int, err error) {
	startedAt := s.clock()
	fields := map[string]any{"limit": limit}
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_stale_partners", err, fields)
	}()

	if s == nil || s.partnerStore == nil {
		err = s.mapError(fmt.Errorf("core: partner store is required"))
		return 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	stale, listErr := s.partnerStore.ListNeedingRefresh(ctx, limit)
	if listErr != nil {
		err = s.mapError(listErr)
		return 0, err
	}

	for _, partner := range stale {
		if s.refreshEnqueuer != nil {
			s.enqueueRefresh(ctx, partner)
			refreshed++
			continue
		}
		if _, refreshErr := s.RefreshPartner(ctx, partner.ID); refreshErr != nil {
			s.logError(ctx, "stale partner refresh failed", map[string]any{
				"partner_id": partner.ID,
				"did":        partner.DID,
				"error":      refreshErr.Error(),
			})
			continue
		}
		refreshed++
	}
	fields["refreshed"] = refreshed
	return refreshed, nil
}

func (s *Service) enqueueRefresh(ctx context.Context, partner Partner) {
	if s == nil || s.refreshEnqueuer == nil {
		return
	}
	enqueueErr := s.refreshEnqueuer.Enqueue(ctx, &JobExecutionMessage{
		JobID: JobIDPartnerRefresh,
		Parameters: map[string]any{
			"partner_id": partner.ID,
			"did":        partner.DID,
		},
		IdempotencyKey: JobIDPartnerRefresh + ":" + partner.ID,
		DedupPolicy:    "drop",
	})
	if enqueueErr != nil {
		s.logError(ctx, "refresh job enqueue failed", map[string]any{
			"partner_id": partner.ID,
			"error":      enqueueErr.Error(),
		})
	}
}

// JobIDPartnerRefresh identifies the background stale-profile refresh job.
const JobIDPartnerRefresh = "partneragent.partner.refresh"

func (s *Service) fetchProfile(ctx context.Context, did string) (PartnerProfile, error) {
	if s == nil || s.lookupClient == nil {
		return PartnerProfile{}, fmt.Errorf("core: profile lookup client is required")
	}
	lookupCtx := ctx
	cancel := func() {}
	if timeout := s.config.Lookup.Timeout; timeout > 0 {
		lookupCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()
	return s.lookupClient.FetchProfile(lookupCtx, did)
}

func (s *Service) lockPartnerScope(ctx context.Context, key string) (func(), error) {
	if s == nil || s.partnerLocker == nil {
		return func() {}, nil
	}
	handle, err := s.partnerLocker.Acquire(ctx, key, defaultPartnerLockTTL)
	if err != nil {
		return nil, err
	}
	return func() { _ = handle.Unlock(ctx) }, nil
}

func (s *Service) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}
