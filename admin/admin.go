// Package admin implements the operator side of the lead pipeline: listing,
// triage updates and reply suggestions.
package admin

import (
	"context"
	"fmt"

	tekio "github.com/tekio-be/leads"
	"github.com/tekio-be/leads/cache"
	"go.uber.org/zap"
)

// Generator drafts a reply suggestion for a lead.
type Generator interface {
	GenerateReply(ctx context.Context, lead tekio.Lead) (string, error)
}

type Service struct {
	store     tekio.LeadStore
	cache     cache.LeadCache
	generator Generator
	log       *zap.SugaredLogger
}

func NewService(store tekio.LeadStore, leadCache cache.LeadCache, generator Generator, log *zap.SugaredLogger) *Service {
	return &Service{
		store:     store,
		cache:     leadCache,
		generator: generator,
		log:       log,
	}
}

// List returns leads newest first, served from the cache when possible.
func (s *Service) List(ctx context.Context, filter tekio.LeadFilter) ([]tekio.Lead, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, invalidStatus(*filter.Status)
	}

	// The generation is read before the store so a mutation committed during
	// the query leaves this result under a retired key.
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.log.Warnw("List", "status", "cache unavailable", "error", err.Error())
		return s.store.Query(ctx, filter)
	}

	leads, ok, err := s.cache.Get(ctx, gen, filter)
	if err != nil {
		s.log.Warnw("List", "status", "cache read failed", "error", err.Error())
	}
	if ok {
		return leads, nil
	}

	leads, err = s.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, gen, filter, leads); err != nil {
		s.log.Warnw("List", "status", "cache write failed", "error", err.Error())
	}

	return leads, nil
}

func (s *Service) Get(ctx context.Context, id string) (tekio.Lead, error) {
	return s.store.QueryByID(ctx, id)
}

// UpdateStatus moves a lead to any known status. Setting the current status
// again succeeds and still bumps updated_at.
func (s *Service) UpdateStatus(ctx context.Context, id string, status tekio.Status) (tekio.Lead, error) {
	if !status.Valid() {
		return tekio.Lead{}, invalidStatus(status)
	}
	return s.update(ctx, id, tekio.LeadUpdate{Status: &status})
}

func (s *Service) UpdateNotes(ctx context.Context, id string, notes string) (tekio.Lead, error) {
	return s.update(ctx, id, tekio.LeadUpdate{Notes: &notes})
}

func (s *Service) UpdateAISuggestion(ctx context.Context, id string, suggestion string) (tekio.Lead, error) {
	return s.update(ctx, id, tekio.LeadUpdate{AISuggestion: &suggestion})
}

// GenerateReply drafts a suggestion for a stored lead. The draft is not saved;
// the operator keeps it with UpdateAISuggestion.
func (s *Service) GenerateReply(ctx context.Context, id string) (string, error) {
	lead, err := s.store.QueryByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.generator.GenerateReply(ctx, lead)
}

func (s *Service) update(ctx context.Context, id string, update tekio.LeadUpdate) (tekio.Lead, error) {
	lead, err := s.store.Update(ctx, id, update)
	if err != nil {
		return tekio.Lead{}, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warnw("update", "status", "cache invalidation failed", "lead_id", id, "error", err.Error())
	}

	return lead, nil
}

func invalidStatus(status tekio.Status) error {
	return tekio.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
}
