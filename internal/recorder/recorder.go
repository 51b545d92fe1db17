// Package recorder persists workflow executions and keeps owner usage in sync.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/messaging"
	"github.com/feral-file/ff-flow/internal/metrics"
	"github.com/feral-file/ff-flow/internal/store"
)

// Recorder defines the interface for recording workflow executions
//
//go:generate mockgen -source=recorder.go -destination=../mocks/recorder.go -package=mocks -mock_names=Recorder=MockRecorder
type Recorder interface {
	// Record applies one execution to the workflow counters, refreshes the owner's
	// execution usage and emits WORKFLOW_EXECUTED
	Record(ctx context.Context, workflowID string, responseTime *time.Duration) (*domain.Workflow, error)
	// SyncWorkflowCount recomputes the owner's workflow usage from the store
	SyncWorkflowCount(ctx context.Context, userAddress string) error
}

type recorder struct {
	store     store.Store
	publisher messaging.Publisher
	clock     adapter.Clock

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewRecorder creates a new execution recorder
func NewRecorder(st store.Store, pub messaging.Publisher, clock adapter.Clock) Recorder {
	return &recorder{
		store:     st,
		publisher: pub,
		clock:     clock,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Record persists an execution atomically on the freshest stored copy
func (r *recorder) Record(ctx context.Context, workflowID string, responseTime *time.Duration) (*domain.Workflow, error) {
	now := r.clock.Now().UTC()

	w, err := r.store.UpdateWorkflow(ctx, workflowID, func(w *domain.Workflow) error {
		w.RecordExecution(now, responseTime)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}
	metrics.WorkflowExecutions.Inc()

	logger.InfoCtx(ctx, "Workflow execution recorded",
		logger.Workflow(w.ID),
		zap.Int64("execution_count", w.ExecutionCount),
	)

	if w.UserAddress != "" {
		if err := r.syncUsage(ctx, w.UserAddress); err != nil {
			// The execution itself is already persisted
			logger.ErrorCtx(ctx, err, logger.Workflow(w.ID), logger.User(w.UserAddress))
		}
	}

	if err := r.publisher.Publish(ctx, domain.NewWorkflowExecutedEvent(w, now)); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to publish execution event: %w", err), logger.Workflow(w.ID))
	}

	return w, nil
}

// SyncWorkflowCount recomputes Usage.Workflows for the user
func (r *recorder) SyncWorkflowCount(ctx context.Context, userAddress string) error {
	if domain.NormalizeAddress(userAddress) == "" {
		return nil
	}
	return r.syncUsage(ctx, userAddress)
}

// syncUsage recomputes both workflow aggregates from the store under the per-user lock
func (r *recorder) syncUsage(ctx context.Context, userAddress string) error {
	lock := r.lockFor(userAddress)
	lock.Lock()
	defer lock.Unlock()

	workflows, err := r.store.ListWorkflows(ctx, store.WorkflowFilter{UserAddress: userAddress})
	if err != nil {
		return fmt.Errorf("failed to list workflows for usage: %w", err)
	}

	var executions int64
	for _, w := range workflows {
		executions += w.ExecutionCount
	}

	_, err = r.store.UpdateUser(ctx, userAddress, func(u *domain.User) error {
		u.Usage.Executions = executions
		u.Usage.Workflows = int64(len(workflows))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update usage: %w", err)
	}
	return nil
}

func (r *recorder) lockFor(userAddress string) *sync.Mutex {
	key := domain.NormalizeAddress(userAddress)

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.userLocks[key]
	if !ok {
		l = &sync.Mutex{}
		r.userLocks[key] = l
	}
	return l
}
