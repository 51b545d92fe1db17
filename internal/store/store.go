package store

import (
	"context"

	"github.com/feral-file/ff-flow/internal/domain"
)

// WorkflowFilter narrows ListWorkflows. Zero values match everything.
type WorkflowFilter struct {
	UserAddress      string
	ActiveOnly       bool
	PortfolioAlertID string
}

// AlertFilter narrows ListAlerts. Zero values match everything.
type AlertFilter struct {
	Status      domain.AlertStatus
	UserAddress string
}

// TemplateFilter narrows ListTemplates. Zero values match everything.
type TemplateFilter struct {
	UserAddress string
}

// WorkflowMutator mutates a workflow in place inside an atomic update
type WorkflowMutator func(w *domain.Workflow) error

// UserMutator mutates a user in place inside an atomic update
type UserMutator func(u *domain.User) error

// AlertMutator mutates an alert in place inside an atomic update
type AlertMutator func(a *domain.PortfolioAlert) error

// TemplateMutator mutates a template in place inside an atomic update
type TemplateMutator func(t *domain.Template) error

// WorkflowStore is the repository for workflows.
// Every read returns a copy the caller may modify freely.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore,WorkflowStore=MockWorkflowStore,UserStore=MockUserStore,AlertStore=MockAlertStore,TemplateStore=MockTemplateStore,PortfolioStore=MockPortfolioStore
type WorkflowStore interface {
	// GetWorkflow returns domain.ErrWorkflowNotFound when the id is unknown
	GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error)
	// ListWorkflows returns workflows ordered by creation time
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*domain.Workflow, error)
	// UpsertWorkflow creates or replaces a workflow definition
	UpsertWorkflow(ctx context.Context, w *domain.Workflow) error
	// UpdateWorkflow applies fn to the freshest stored copy and persists the result atomically
	UpdateWorkflow(ctx context.Context, id string, fn WorkflowMutator) (*domain.Workflow, error)
	// DeleteWorkflow removes a workflow and returns what was deleted
	DeleteWorkflow(ctx context.Context, id string) (*domain.Workflow, error)
}

// UserStore is the user profile service
type UserStore interface {
	// GetUser returns the user keyed by address, creating it with defaults on first access
	GetUser(ctx context.Context, address string) (*domain.User, error)
	// UpsertUser creates or replaces a user
	UpsertUser(ctx context.Context, u *domain.User) error
	// UpdateUser applies fn to the freshest stored copy atomically, creating the user if needed
	UpdateUser(ctx context.Context, address string, fn UserMutator) (*domain.User, error)
	// FindUserByAPIKey returns domain.ErrUserNotFound when no user holds the key
	FindUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)
}

// AlertStore is the repository for portfolio alerts
type AlertStore interface {
	// GetAlert returns domain.ErrAlertNotFound when the id is unknown
	GetAlert(ctx context.Context, id string) (*domain.PortfolioAlert, error)
	// ListAlerts returns alerts ordered by creation time
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*domain.PortfolioAlert, error)
	// UpsertAlert creates or replaces an alert
	UpsertAlert(ctx context.Context, a *domain.PortfolioAlert) error
	// UpdateAlert applies fn to the freshest stored copy atomically
	UpdateAlert(ctx context.Context, id string, fn AlertMutator) (*domain.PortfolioAlert, error)
	// DeleteAlert removes an alert
	DeleteAlert(ctx context.Context, id string) error
}

// TemplateStore is the repository for workflow templates
type TemplateStore interface {
	// GetTemplate returns domain.ErrTemplateNotFound when the id is unknown
	GetTemplate(ctx context.Context, id string) (*domain.Template, error)
	// ListTemplates returns templates ordered by creation time
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]*domain.Template, error)
	// UpsertTemplate creates or replaces a template
	UpsertTemplate(ctx context.Context, t *domain.Template) error
	// UpdateTemplate applies fn to the freshest stored copy atomically
	UpdateTemplate(ctx context.Context, id string, fn TemplateMutator) (*domain.Template, error)
	// DeleteTemplate removes a template
	DeleteTemplate(ctx context.Context, id string) error
}

// PortfolioStore holds the tracked holdings
type PortfolioStore interface {
	// GetHoldings returns holdings ordered by symbol
	GetHoldings(ctx context.Context) ([]domain.Holding, error)
	// SetHoldings replaces all holdings
	SetHoldings(ctx context.Context, holdings []domain.Holding) error
}

// Store defines the interface for all repository operations
type Store interface {
	WorkflowStore
	UserStore
	AlertStore
	TemplateStore
	PortfolioStore
}
