package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiveEventType is the type of a live-update event pushed to viewers
type LiveEventType string

const (
	EventWorkflowExecuted        LiveEventType = "WORKFLOW_EXECUTED"
	EventWorkflowToggled         LiveEventType = "WORKFLOW_TOGGLED"
	EventWorkflowDeleted         LiveEventType = "WORKFLOW_DELETED"
	EventWorkflowUpdated         LiveEventType = "WORKFLOW_UPDATED"
	EventPortfolioAlertTriggered LiveEventType = "PORTFOLIO_ALERT_TRIGGERED"
)

// LiveEvent is the envelope broadcast to live-update subscribers
type LiveEvent struct {
	Type      LiveEventType `json:"type"`
	Payload   any           `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
}

// WorkflowExecutedPayload is the payload of WORKFLOW_EXECUTED
type WorkflowExecutedPayload struct {
	WorkflowID     string     `json:"workflowId"`
	ExecutionCount int64      `json:"executionCount"`
	LastTriggered  *time.Time `json:"lastTriggered"`
}

// WorkflowPayload is the payload of WORKFLOW_TOGGLED and WORKFLOW_UPDATED
type WorkflowPayload struct {
	Workflow *Workflow `json:"workflow"`
}

// WorkflowDeletedPayload is the payload of WORKFLOW_DELETED
type WorkflowDeletedPayload struct {
	WorkflowID string `json:"workflowId"`
}

// PortfolioAlertTriggeredPayload is the payload of PORTFOLIO_ALERT_TRIGGERED
type PortfolioAlertTriggeredPayload struct {
	AlertID       string           `json:"alertId"`
	TotalValue    decimal.Decimal  `json:"totalValue"`
	ChangePercent *decimal.Decimal `json:"changePercent,omitempty"`
	LastTriggered time.Time        `json:"lastTriggered"`
}

// NewWorkflowExecutedEvent builds the event emitted after an execution is recorded
func NewWorkflowExecutedEvent(w *Workflow, at time.Time) LiveEvent {
	return LiveEvent{
		Type: EventWorkflowExecuted,
		Payload: WorkflowExecutedPayload{
			WorkflowID:     w.ID,
			ExecutionCount: w.ExecutionCount,
			LastTriggered:  w.LastTriggered,
		},
		Timestamp: at,
	}
}

// NewWorkflowToggledEvent builds the event emitted when a workflow is switched on or off
func NewWorkflowToggledEvent(w *Workflow, at time.Time) LiveEvent {
	return LiveEvent{Type: EventWorkflowToggled, Payload: WorkflowPayload{Workflow: w}, Timestamp: at}
}

// NewWorkflowUpdatedEvent builds the event emitted when a workflow definition changes
func NewWorkflowUpdatedEvent(w *Workflow, at time.Time) LiveEvent {
	return LiveEvent{Type: EventWorkflowUpdated, Payload: WorkflowPayload{Workflow: w}, Timestamp: at}
}

// NewWorkflowDeletedEvent builds the event emitted when a workflow is removed
func NewWorkflowDeletedEvent(id string, at time.Time) LiveEvent {
	return LiveEvent{Type: EventWorkflowDeleted, Payload: WorkflowDeletedPayload{WorkflowID: id}, Timestamp: at}
}

// NewPortfolioAlertTriggeredEvent builds the event emitted when a portfolio alert fires
func NewPortfolioAlertTriggeredEvent(alertID string, total decimal.Decimal, change *decimal.Decimal, at time.Time) LiveEvent {
	return LiveEvent{
		Type: EventPortfolioAlertTriggered,
		Payload: PortfolioAlertTriggeredPayload{
			AlertID:       alertID,
			TotalValue:    total,
			ChangePercent: change,
			LastTriggered: at,
		},
		Timestamp: at,
	}
}
