package domain

import "errors"

var (
	// ErrWorkflowNotFound is returned when a workflow does not exist
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrAlertNotFound is returned when a portfolio alert does not exist
	ErrAlertNotFound = errors.New("portfolio alert not found")

	// ErrUserNotFound is returned when a user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrRuleNotFound is returned when a workflow references a rule the user no longer has
	ErrRuleNotFound = errors.New("notification rule not found")

	// ErrTemplateNotFound is returned when a template does not exist
	ErrTemplateNotFound = errors.New("template not found")

	// ErrUnknownPlan is returned for a plan id that cannot be purchased
	ErrUnknownPlan = errors.New("unknown plan")

	// ErrPaymentNotVerified is returned when a plan payment transaction does not check out
	ErrPaymentNotVerified = errors.New("payment not verified")

	// ErrBillingDisabled is returned when no payment address is configured
	ErrBillingDisabled = errors.New("billing is not configured")

	// ErrMissingEndpoint is returned when an enabled channel has no endpoint configured
	ErrMissingEndpoint = errors.New("channel endpoint not configured")

	// ErrUnsupportedChannel is returned for a channel the dispatcher has no transport for
	ErrUnsupportedChannel = errors.New("unsupported channel")

	// ErrInvalidThreshold is returned when a threshold expression has no number in it
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrSubscriptionFailed is returned when subscription to new heads fails
	ErrSubscriptionFailed = errors.New("subscription failed")
)
