package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/feral-file/ff-flow/internal/domain"
)

// Publisher defines the interface for broadcasting live-update events
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// Publish broadcasts a live-update event to every subscriber of this sink
	Publish(ctx context.Context, event domain.LiveEvent) error
	// Close releases the sink
	Close()
}

type multiPublisher struct {
	sinks []Publisher
}

// NewMultiPublisher fans an event out to every sink.
// A failing sink never stops delivery to the others.
func NewMultiPublisher(sinks ...Publisher) Publisher {
	filtered := make([]Publisher, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &multiPublisher{sinks: filtered}
}

// Publish delivers to every sink and joins the failures
func (m *multiPublisher) Publish(ctx context.Context, event domain.LiveEvent) error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m *multiPublisher) Close() {
	for _, s := range m.sinks {
		s.Close()
	}
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, domain.LiveEvent) error { return nil }

func (noopPublisher) Close() {}
