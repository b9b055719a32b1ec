package models

import "time"

// Chain is a tracked activity: a streak of sessions the user is building.
// Chain-scoped exception rules bind to exactly one of these.
type Chain struct {
	ID          string
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
}

// Chain status constants
const (
	ChainStatusActive   = "active"
	ChainStatusArchived = "archived"
)
