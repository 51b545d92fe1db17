// Package engine runs the trigger-match-notify pipeline for observed blocks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/matcher"
	"github.com/feral-file/ff-flow/internal/metrics"
	"github.com/feral-file/ff-flow/internal/notification"
	"github.com/feral-file/ff-flow/internal/notifier"
	"github.com/feral-file/ff-flow/internal/recorder"
	"github.com/feral-file/ff-flow/internal/store"
)

// RunResult is the outcome of one workflow run
type RunResult struct {
	Outcome  domain.Outcome
	Workflow *domain.Workflow
	RuleID   string
	Results  []notifier.Result
	// FailureResults are the deliveries of the failure notification, if any
	FailureResults []notifier.Result
	Err            error
}

// Engine defines the interface for the workflow pipeline
//
//go:generate mockgen -source=engine.go -destination=../mocks/engine.go -package=mocks -mock_names=Engine=MockEngine
type Engine interface {
	// HandleBlock matches every transaction of the block in order and runs each
	// matched workflow to completion before moving on
	HandleBlock(ctx context.Context, block *domain.Block)
	// TestWorkflow resolves and dispatches the workflow notification for a
	// synthetic transaction without recording an execution
	TestWorkflow(ctx context.Context, workflowID string) (*RunResult, error)
}

type engine struct {
	store      store.Store
	recorder   recorder.Recorder
	dispatcher notifier.Dispatcher
	clock      adapter.Clock
}

// NewEngine creates a new pipeline engine
func NewEngine(st store.Store, rec recorder.Recorder, dispatcher notifier.Dispatcher, clock adapter.Clock) Engine {
	return &engine{
		store:      st,
		recorder:   rec,
		dispatcher: dispatcher,
		clock:      clock,
	}
}

// HandleBlock processes transactions strictly sequentially
func (e *engine) HandleBlock(ctx context.Context, block *domain.Block) {
	if block == nil || len(block.Transactions) == 0 {
		return
	}

	workflows, err := e.store.ListWorkflows(ctx, store.WorkflowFilter{ActiveOnly: true})
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to list active workflows: %w", err), logger.Block(block.Number))
		return
	}
	if len(workflows) == 0 {
		return
	}

	for _, tx := range block.Transactions {
		if ctx.Err() != nil {
			return
		}
		for _, w := range matcher.Match(tx.To, workflows) {
			logger.InfoCtx(ctx, "Matched workflow",
				logger.Workflow(w.ID),
				logger.Block(block.Number),
				logger.TxHash(tx.Hash),
			)
			e.run(ctx, w, tx, true)
		}
	}
}

// TestWorkflow runs the notification pipeline for a synthetic transfer
func (e *engine) TestWorkflow(ctx context.Context, workflowID string) (*RunResult, error) {
	w, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now().UTC()
	tx := &domain.Transaction{
		Hash:       "0x" + fmt.Sprintf("%064x", now.UnixNano()),
		From:       "0x0000000000000000000000000000000000000000",
		To:         w.Trigger.SourceAddress,
		Value:      big.NewInt(1_000_000_000_000_000), // 0.001 ETH
		BlockTime:  now,
		ObservedAt: now,
	}
	return e.run(ctx, w, tx, false), nil
}

// run records the execution, then resolves and dispatches the success plan.
// Any failed delivery turns the run into the failure outcome.
func (e *engine) run(ctx context.Context, w *domain.Workflow, tx *domain.Transaction, record bool) *RunResult {
	result := &RunResult{Outcome: domain.OutcomeSuccess, Workflow: w}
	fields := []zap.Field{logger.Workflow(w.ID), logger.TxHash(tx.Hash)}

	if record {
		var responseTime *time.Duration
		if !tx.ObservedAt.IsZero() {
			d := e.clock.Since(tx.ObservedAt)
			responseTime = &d
		}
		updated, err := e.recorder.Record(ctx, w.ID, responseTime)
		if err != nil {
			result.Err = fmt.Errorf("failed to record execution: %w", err)
			return e.fail(ctx, result, tx, fields)
		}
		result.Workflow = updated
	}

	user := e.loadUser(ctx, result.Workflow)
	plan := notification.Resolve(notification.Input{
		Outcome:  domain.OutcomeSuccess,
		Workflow: result.Workflow,
		User:     user,
		Tx:       tx,
		Now:      e.clock.Now(),
	})
	result.RuleID = plan.RuleID
	logIssues(ctx, plan, fields)

	if plan.Empty() {
		logger.DebugCtx(ctx, "No notification planned", append(fields, zap.String("reason", plan.Reason))...)
		return result
	}

	result.Results = e.dispatcher.Dispatch(ctx, plan.Messages)
	if err := notifier.JoinErrors(result.Results); err != nil {
		result.Err = err
		return e.fail(ctx, result, tx, fields)
	}
	return result
}

// fail dispatches the failure notification. Its own delivery errors are only logged.
func (e *engine) fail(ctx context.Context, result *RunResult, tx *domain.Transaction, fields []zap.Field) *RunResult {
	result.Outcome = domain.OutcomeFailure
	metrics.WorkflowFailures.Inc()
	logger.ErrorCtx(ctx, result.Err, fields...)

	user := e.loadUser(ctx, result.Workflow)
	plan := notification.Resolve(notification.Input{
		Outcome:  domain.OutcomeFailure,
		Workflow: result.Workflow,
		User:     user,
		Tx:       tx,
		Err:      result.Err,
		Now:      e.clock.Now(),
	})
	logIssues(ctx, plan, fields)
	if plan.Empty() {
		return result
	}

	result.FailureResults = e.dispatcher.Dispatch(ctx, plan.Messages)
	if err := notifier.JoinErrors(result.FailureResults); err != nil {
		logger.WarnCtx(ctx, "Failure notification not delivered", append(fields, zap.Error(err))...)
	}
	return result
}

// loadUser returns the workflow owner or nil when there is none
func (e *engine) loadUser(ctx context.Context, w *domain.Workflow) *domain.User {
	if w == nil || domain.NormalizeAddress(w.UserAddress) == "" {
		return nil
	}
	u, err := e.store.GetUser(ctx, w.UserAddress)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to load user: %w", err), logger.User(w.UserAddress))
		}
		return nil
	}
	return u
}

func logIssues(ctx context.Context, plan notification.Plan, fields []zap.Field) {
	for _, issue := range plan.Issues {
		logger.WarnCtx(ctx, "Notification configuration issue", append(fields, zap.Error(issue))...)
	}
}
