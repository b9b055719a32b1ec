package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/ports/secondary"
)

// ChainServiceImpl implements the ChainService interface.
type ChainServiceImpl struct {
	chainRepo secondary.ChainRepository
	logWriter secondary.LogWriter
}

// NewChainService creates a new ChainService with injected dependencies.
func NewChainService(chainRepo secondary.ChainRepository, logWriter secondary.LogWriter) *ChainServiceImpl {
	return &ChainServiceImpl{
		chainRepo: chainRepo,
		logWriter: logWriter,
	}
}

// CreateChain creates a new chain.
func (s *ChainServiceImpl) CreateChain(ctx context.Context, req primary.CreateChainRequest) (*primary.Chain, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, rule.NewValidation("chain name must not be empty")
	}

	nextID, err := s.chainRepo.GetNextID(ctx)
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to generate chain ID")
	}

	record := &secondary.ChainRecord{
		ID:          nextID,
		Name:        name,
		Description: req.Description,
		Status:      models.ChainStatusActive,
	}
	if err := s.chainRepo.Create(ctx, record); err != nil {
		return nil, rule.WrapStorage(err, "failed to create chain")
	}

	created, err := s.chainRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to fetch created chain")
	}

	_ = s.logWriter.LogCreate(ctx, "chain", created.ID)

	return recordToChain(created), nil
}

// GetChain retrieves a chain by ID.
func (s *ChainServiceImpl) GetChain(ctx context.Context, chainID string) (*primary.Chain, error) {
	record, err := s.chainRepo.GetByID(ctx, chainID)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, rule.NewError(rule.KindNotFound, fmt.Sprintf("chain %s not found", chainID))
		}
		return nil, rule.WrapStorage(err, "failed to get chain")
	}
	return recordToChain(record), nil
}

// ListChains retrieves chains, optionally filtered by status.
func (s *ChainServiceImpl) ListChains(ctx context.Context, status string) ([]*primary.Chain, error) {
	records, err := s.chainRepo.List(ctx, secondary.ChainFilters{Status: status})
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to list chains")
	}

	chains := make([]*primary.Chain, len(records))
	for i, r := range records {
		chains[i] = recordToChain(r)
	}
	return chains, nil
}

// ArchiveChain marks a chain archived. Rules scoped to the chain survive
// but their usage guard fails for sessions on other chains as before.
func (s *ChainServiceImpl) ArchiveChain(ctx context.Context, chainID string) error {
	if err := s.chainRepo.UpdateStatus(ctx, chainID, models.ChainStatusArchived); err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return rule.NewError(rule.KindNotFound, fmt.Sprintf("chain %s not found", chainID))
		}
		return rule.WrapStorage(err, "failed to archive chain")
	}

	_ = s.logWriter.LogUpdate(ctx, "chain", chainID, "status", models.ChainStatusActive, models.ChainStatusArchived)
	return nil
}

func recordToChain(r *secondary.ChainRecord) *primary.Chain {
	return &primary.Chain{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

// Ensure ChainServiceImpl implements the interface.
var _ primary.ChainService = (*ChainServiceImpl)(nil)
