// Package application orchestrates the local and remote record stores behind
// one Repository-shaped surface for the UI layer.
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"passvault/internal/domain/model"
	"passvault/internal/domain/port/driven"
	"passvault/internal/metrics"
	"passvault/internal/search"
)

// VaultService exposes the RecordStore contract to callers while deciding
// between local-only and hybrid execution. In hybrid mode every write lands
// on the local store first; the mirror write to the remote store runs in the
// background and its failure is a logged warning, never an error returned to
// the caller. Reads are always served locally.
type VaultService struct {
	local  driven.RecordStore
	mirror driven.RecordStore // nil in local-only mode
	logger *slog.Logger

	mirrorTimeout time.Duration
	wg            sync.WaitGroup
}

// NewVaultService creates a service over the local store. mirror may be nil
// for local-only operation. logger must not be nil.
func NewVaultService(local driven.RecordStore, mirror driven.RecordStore, logger *slog.Logger) *VaultService {
	return &VaultService{
		local:         local,
		mirror:        mirror,
		logger:        logger,
		mirrorTimeout: 30 * time.Second,
	}
}

// Hybrid reports whether writes are mirrored to a remote store.
func (s *VaultService) Hybrid() bool { return s.mirror != nil }

// Wait blocks until all in-flight mirror writes have finished. Used on
// shutdown and by tests that need deterministic mirror state.
func (s *VaultService) Wait() { s.wg.Wait() }

// FindAll returns all records from the local store, most recently updated
// first.
func (s *VaultService) FindAll(ctx context.Context) ([]model.PasswordRecord, error) {
	return s.local.FindAll(ctx)
}

// FindByID returns the local record or nil when absent.
func (s *VaultService) FindByID(ctx context.Context, id string) (*model.PasswordRecord, error) {
	return s.local.FindByID(ctx, id)
}

// Search filters local records by substring; remote is not consulted.
func (s *VaultService) Search(ctx context.Context, query string) ([]model.PasswordRecord, error) {
	return s.local.Search(ctx, query)
}

// FindByCriteria fetches all local records and applies the given filters in
// memory. The store keeps its recency order for records the filters keep.
func (s *VaultService) FindByCriteria(ctx context.Context, c search.Criteria) ([]model.PasswordRecord, error) {
	recs, err := s.local.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return search.FilterByCriteria(recs, c), nil
}

// FuzzyFind ranks all local records against query by relevance, dropping
// records with no similarity at all. An empty query behaves like FindAll.
func (s *VaultService) FuzzyFind(ctx context.Context, query string) ([]model.PasswordRecord, error) {
	recs, err := s.local.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return search.FuzzyRank(recs, query), nil
}

// Stats reports local record counts.
func (s *VaultService) Stats(ctx context.Context) (model.Stats, error) {
	return s.local.Stats(ctx)
}

// Create persists locally and, in hybrid mode, mirrors the created record
// to the remote store in the background.
func (s *VaultService) Create(ctx context.Context, input model.RecordInput) (*model.PasswordRecord, error) {
	rec, err := s.local.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.mirrorAsync("create", rec.ID, func(ctx context.Context) error {
		_, err := s.mirror.Create(ctx, input)
		return err
	})
	return rec, nil
}

// Update patches the local record and mirrors the patch in hybrid mode.
func (s *VaultService) Update(ctx context.Context, id string, patch model.RecordPatch) (*model.PasswordRecord, error) {
	rec, err := s.local.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.mirrorAsync("update", id, func(ctx context.Context) error {
		_, err := s.mirror.Update(ctx, id, patch)
		return err
	})
	return rec, nil
}

// Delete removes the record locally and mirrors the delete in hybrid mode.
// Deleting an unknown ID succeeds on both sides.
func (s *VaultService) Delete(ctx context.Context, id string) error {
	if err := s.local.Delete(ctx, id); err != nil {
		return err
	}

	s.mirrorAsync("delete", id, func(ctx context.Context) error {
		return s.mirror.Delete(ctx, id)
	})
	return nil
}

// Clear wipes the local store and mirrors the wipe in hybrid mode. Callers
// are expected to confirm with the user before invoking this.
func (s *VaultService) Clear(ctx context.Context) error {
	if err := s.local.Clear(ctx); err != nil {
		return err
	}

	s.mirrorAsync("clear", "", func(ctx context.Context) error {
		return s.mirror.Clear(ctx)
	})
	return nil
}

// BatchCreate inserts all payloads in one local transaction, then mirrors
// them in the background.
func (s *VaultService) BatchCreate(ctx context.Context, inputs []model.RecordInput) ([]model.PasswordRecord, error) {
	recs, err := s.local.BatchCreate(ctx, inputs)
	if err != nil {
		return nil, err
	}

	s.mirrorAsync("batch_create", "", func(ctx context.Context) error {
		_, err := s.mirror.BatchCreate(ctx, inputs)
		return err
	})
	return recs, nil
}

// BatchUpdate applies all patches in one local transaction, then mirrors
// them in the background.
func (s *VaultService) BatchUpdate(ctx context.Context, patches []model.PatchByID) ([]model.PasswordRecord, error) {
	recs, err := s.local.BatchUpdate(ctx, patches)
	if err != nil {
		return nil, err
	}

	s.mirrorAsync("batch_update", "", func(ctx context.Context) error {
		_, err := s.mirror.BatchUpdate(ctx, patches)
		return err
	})
	return recs, nil
}

// mirrorAsync runs op against the remote store on its own goroutine with a
// fresh timeout context. The local write already succeeded, so a mirror
// failure is downgraded to a warning and a metric; it is never surfaced to
// the caller.
func (s *VaultService) mirrorAsync(op, id string, fn func(ctx context.Context) error) {
	if s.mirror == nil {
		return
	}

	metrics.SyncAttemptsTotal.WithLabelValues(op).Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.mirrorTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			metrics.SyncFailuresTotal.WithLabelValues(op).Inc()
			s.logger.Warn("remote sync failed, local write kept",
				"op", op,
				"id", id,
				"error", err,
			)
		}
	}()
}
