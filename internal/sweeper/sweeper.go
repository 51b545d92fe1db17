package sweeper

import (
	"context"
)

// Sweeper defines the interface for periodic background jobs
//
//go:generate mockgen -source=sweeper.go -destination=../mocks/sweeper.go -package=mocks -mock_names=Sweeper=MockSweeper
type Sweeper interface {
	// Start schedules the job and blocks until the context is canceled or Stop is called
	Start(ctx context.Context) error

	// Stop waits for the running tick to finish, or for ctx to end
	Stop(ctx context.Context) error

	// Name returns the sweeper's name for logging
	Name() string
}
