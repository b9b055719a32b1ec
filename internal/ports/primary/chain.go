package primary

import "context"

// ChainService defines the primary port for chain operations.
type ChainService interface {
	// CreateChain creates a new chain.
	CreateChain(ctx context.Context, req CreateChainRequest) (*Chain, error)

	// GetChain retrieves a chain by ID.
	GetChain(ctx context.Context, chainID string) (*Chain, error)

	// ListChains retrieves chains, optionally filtered by status.
	ListChains(ctx context.Context, status string) ([]*Chain, error)

	// ArchiveChain marks a chain archived.
	ArchiveChain(ctx context.Context, chainID string) error
}

// CreateChainRequest contains parameters for creating a chain.
type CreateChainRequest struct {
	Name        string
	Description string
}

// Chain represents a chain entity at the port boundary.
type Chain struct {
	ID          string
	Name        string
	Description string
	Status      string
	CreatedAt   string
}
