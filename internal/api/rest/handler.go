package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/billing"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/engine"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/messaging"
	"github.com/feral-file/ff-flow/internal/notifier"
	"github.com/feral-file/ff-flow/internal/portfolio"
	"github.com/feral-file/ff-flow/internal/providers/pricefeed"
	"github.com/feral-file/ff-flow/internal/recorder"
	"github.com/feral-file/ff-flow/internal/store"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// HealthCheck returns the health status of the API
	// GET /healthz
	HealthCheck(c *gin.Context)

	// GET /api/workflows?user=<address>
	ListWorkflows(c *gin.Context)
	// POST /api/workflows
	CreateWorkflow(c *gin.Context)
	// GET /api/workflows/:id
	GetWorkflow(c *gin.Context)
	// PUT /api/workflows/:id
	UpdateWorkflow(c *gin.Context)
	// PATCH /api/workflows/:id/toggle
	ToggleWorkflow(c *gin.Context)
	// DELETE /api/workflows/:id
	DeleteWorkflow(c *gin.Context)
	// TestWorkflow runs the notification pipeline for a synthetic transaction
	// POST /api/workflows/:id/test
	TestWorkflow(c *gin.Context)

	// GET /api/users/:address
	GetUser(c *gin.Context)
	// PUT /api/users/:address/settings
	UpdateUserSettings(c *gin.Context)
	// GET /api/users/:address/rules
	ListRules(c *gin.Context)
	// POST /api/users/:address/rules
	AddRule(c *gin.Context)
	// PUT /api/users/:address/rules/:ruleId
	UpdateRule(c *gin.Context)
	// DELETE /api/users/:address/rules/:ruleId
	DeleteRule(c *gin.Context)
	// GET /api/users/:address/usage
	GetUsage(c *gin.Context)
	// GetAPIKey returns the user's key, creating one on first use
	// GET /api/users/:address/api-key
	GetAPIKey(c *gin.Context)
	// POST /api/users/:address/regenerate-api-key
	RegenerateAPIKey(c *gin.Context)
	// POST /api/users/:address/upgrade-plan
	UpgradePlan(c *gin.Context)

	// GET /api/templates?user=<address>
	ListTemplates(c *gin.Context)
	// POST /api/templates
	CreateTemplate(c *gin.Context)
	// GET /api/templates/:id
	GetTemplate(c *gin.Context)
	// PUT /api/templates/:id
	UpdateTemplate(c *gin.Context)
	// DELETE /api/templates/:id
	DeleteTemplate(c *gin.Context)

	// GET /api/alerts?user=<address>&status=<status>
	ListAlerts(c *gin.Context)
	// POST /api/alerts
	CreateAlert(c *gin.Context)
	// PATCH /api/alerts/:id/status
	SetAlertStatus(c *gin.Context)
	// DELETE /api/alerts/:id
	DeleteAlert(c *gin.Context)

	// GET /api/portfolio
	GetPortfolio(c *gin.Context)
	// PUT /api/portfolio/holdings
	SetHoldings(c *gin.Context)
	// GET /api/prices
	GetPrices(c *gin.Context)
}

// Deps groups the services behind the routes
type Deps struct {
	Store     store.Store
	Engine    engine.Engine
	Recorder  recorder.Recorder
	Portfolio portfolio.Service
	PriceFeed pricefeed.PriceFeed
	Publisher messaging.Publisher
	// Billing is optional, upgrade-plan answers 503 without it
	Billing billing.Service
	Clock   adapter.Clock
}

// handler implements the Handler interface
type handler struct {
	Deps
}

// NewHandler creates a new REST API handler
func NewHandler(deps Deps) Handler {
	if deps.Publisher == nil {
		deps.Publisher = messaging.NewNoopPublisher()
	}
	if deps.Clock == nil {
		deps.Clock = adapter.NewClock()
	}
	return &handler{Deps: deps}
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.Clock.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) ListWorkflows(c *gin.Context) {
	workflows, err := h.Store.ListWorkflows(c.Request.Context(), store.WorkflowFilter{
		UserAddress: c.Query("user"),
	})
	if err != nil {
		respondInternalError(c, err, "Failed to list workflows")
		return
	}
	c.JSON(http.StatusOK, workflows)
}

func (h *handler) CreateWorkflow(c *gin.Context) {
	var req WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	now := h.Clock.Now().UTC()
	w := &domain.Workflow{
		ID:                  uuid.NewString(),
		UserAddress:         domain.NormalizeAddress(req.UserAddress),
		IsActive:            true,
		ResponseTimesMs:     []int64{},
		ExecutionTimestamps: []time.Time{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	req.apply(w)

	if err := h.Store.UpsertWorkflow(ctx, w); err != nil {
		respondInternalError(c, err, "Failed to create workflow")
		return
	}
	h.syncWorkflowCount(c, w.UserAddress)

	c.JSON(http.StatusCreated, w)
}

func (h *handler) GetWorkflow(c *gin.Context) {
	w, err := h.Store.GetWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Failed to get workflow")
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *handler) UpdateWorkflow(c *gin.Context) {
	var req WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	now := h.Clock.Now().UTC()
	w, err := h.Store.UpdateWorkflow(c.Request.Context(), c.Param("id"), func(w *domain.Workflow) error {
		req.apply(w)
		w.UpdatedAt = now
		return nil
	})
	if err != nil {
		respondStoreError(c, err, "Failed to update workflow")
		return
	}

	h.publish(c, domain.NewWorkflowUpdatedEvent(w, now))
	c.JSON(http.StatusOK, w)
}

func (h *handler) ToggleWorkflow(c *gin.Context) {
	now := h.Clock.Now().UTC()
	w, err := h.Store.UpdateWorkflow(c.Request.Context(), c.Param("id"), func(w *domain.Workflow) error {
		w.IsActive = !w.IsActive
		w.UpdatedAt = now
		return nil
	})
	if err != nil {
		respondStoreError(c, err, "Failed to toggle workflow")
		return
	}

	h.publish(c, domain.NewWorkflowToggledEvent(w, now))
	c.JSON(http.StatusOK, w)
}

func (h *handler) DeleteWorkflow(c *gin.Context) {
	id := c.Param("id")
	w, err := h.Store.DeleteWorkflow(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err, "Failed to delete workflow")
		return
	}
	h.syncWorkflowCount(c, w.UserAddress)

	h.publish(c, domain.NewWorkflowDeletedEvent(id, h.Clock.Now().UTC()))
	c.Status(http.StatusNoContent)
}

// deliveryResponse is one delivery attempt in a test run
type deliveryResponse struct {
	Channel    domain.Channel `json:"channel"`
	Target     string         `json:"target"`
	DurationMs int64          `json:"durationMs"`
	Error      string         `json:"error,omitempty"`
}

// testRunResponse is the body returned by POST /api/workflows/:id/test
type testRunResponse struct {
	WorkflowID string             `json:"workflowId"`
	Outcome    domain.Outcome     `json:"outcome"`
	RuleID     string             `json:"ruleId,omitempty"`
	Deliveries []deliveryResponse `json:"deliveries"`
	Failures   []deliveryResponse `json:"failureDeliveries,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func toDeliveries(results []notifier.Result) []deliveryResponse {
	out := make([]deliveryResponse, 0, len(results))
	for _, r := range results {
		d := deliveryResponse{
			Channel:    r.Message.Channel,
			Target:     r.Message.Target,
			DurationMs: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			d.Error = r.Err.Error()
		}
		out = append(out, d)
	}
	return out
}

func (h *handler) TestWorkflow(c *gin.Context) {
	result, err := h.Engine.TestWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Failed to test workflow")
		return
	}

	resp := testRunResponse{
		Outcome:    result.Outcome,
		RuleID:     result.RuleID,
		Deliveries: toDeliveries(result.Results),
		Failures:   toDeliveries(result.FailureResults),
	}
	if result.Workflow != nil {
		resp.WorkflowID = result.Workflow.ID
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetUser(c *gin.Context) {
	u, err := h.Store.GetUser(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondStoreError(c, err, "Failed to get user")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) UpdateUserSettings(c *gin.Context) {
	var req UserSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	u, err := h.Store.UpdateUser(c.Request.Context(), c.Param("address"), func(u *domain.User) error {
		req.apply(u)
		return nil
	})
	if err != nil {
		respondStoreError(c, err, "Failed to update user settings")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) AddRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	rule := domain.NotificationRule{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(req.Name),
		Trigger: req.Trigger,
		Action:  req.Action,
		Message: req.Message,
	}
	_, err := h.Store.UpdateUser(c.Request.Context(), c.Param("address"), func(u *domain.User) error {
		u.NotificationRules = append(u.NotificationRules, rule)
		return nil
	})
	if err != nil {
		respondStoreError(c, err, "Failed to add notification rule")
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *handler) ListRules(c *gin.Context) {
	u, err := h.Store.GetUser(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondStoreError(c, err, "Failed to list notification rules")
		return
	}
	c.JSON(http.StatusOK, u.NotificationRules)
}

func (h *handler) UpdateRule(c *gin.Context) {
	var req RuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	ruleID := c.Param("ruleId")
	var updated domain.NotificationRule
	_, err := h.Store.UpdateUser(c.Request.Context(), c.Param("address"), func(u *domain.User) error {
		for i := range u.NotificationRules {
			if u.NotificationRules[i].ID == ruleID {
				req.apply(&u.NotificationRules[i])
				updated = u.NotificationRules[i]
				return nil
			}
		}
		return fmt.Errorf("%w: %s", domain.ErrRuleNotFound, ruleID)
	})
	if err != nil {
		respondStoreError(c, err, "Failed to update notification rule")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handler) DeleteRule(c *gin.Context) {
	ruleID := c.Param("ruleId")
	_, err := h.Store.UpdateUser(c.Request.Context(), c.Param("address"), func(u *domain.User) error {
		for i, r := range u.NotificationRules {
			if r.ID == ruleID {
				u.NotificationRules = append(u.NotificationRules[:i], u.NotificationRules[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", domain.ErrRuleNotFound, ruleID)
	})
	if err != nil {
		respondStoreError(c, err, "Failed to delete notification rule")
		return
	}
	c.Status(http.StatusNoContent)
}

// usageResponse is the body returned by GET /api/users/:address/usage
type usageResponse struct {
	domain.Usage
	Plan          domain.Plan `json:"plan"`
	PlanExpiresAt *time.Time  `json:"planExpiresAt"`
}

func (h *handler) GetUsage(c *gin.Context) {
	u, err := h.Store.GetUser(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondStoreError(c, err, "Failed to get usage")
		return
	}
	c.JSON(http.StatusOK, usageResponse{
		Usage:         u.Usage,
		Plan:          u.Plan,
		PlanExpiresAt: u.PlanExpiresAt,
	})
}

func (h *handler) GetAPIKey(c *gin.Context) {
	h.setAPIKey(c, false)
}

func (h *handler) RegenerateAPIKey(c *gin.Context) {
	h.setAPIKey(c, true)
}

// setAPIKey returns the user's key, replacing it when regenerate is set or none exists yet
func (h *handler) setAPIKey(c *gin.Context, regenerate bool) {
	u, err := h.Store.UpdateUser(c.Request.Context(), c.Param("address"), func(u *domain.User) error {
		if u.APIKey != "" && !regenerate {
			return nil
		}
		key, err := domain.NewAPIKey()
		if err != nil {
			return err
		}
		u.APIKey = key
		return nil
	})
	if err != nil {
		respondStoreError(c, err, "Failed to issue api key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKey": u.APIKey})
}

func (h *handler) UpgradePlan(c *gin.Context) {
	var req UpgradePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if h.Billing == nil || !h.Billing.Enabled() {
		respondUnavailable(c, "Plan upgrades are not available")
		return
	}

	u, err := h.Billing.Upgrade(c.Request.Context(), c.Param("address"), billing.UpgradeRequest{
		Plan:     req.PlanID,
		TxHash:   strings.TrimSpace(req.TxHash),
		PriceETH: req.PriceInEth,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownPlan), errors.Is(err, domain.ErrPaymentNotVerified):
			respondBadRequest(c, "Payment verification failed", err.Error())
		case errors.Is(err, domain.ErrBillingDisabled):
			respondUnavailable(c, "Plan upgrades are not available")
		default:
			respondServiceError(c, err, "Failed to verify payment")
		}
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) ListTemplates(c *gin.Context) {
	owner := c.Query("user")
	if owner == "" {
		owner = c.Query("userAddress")
	}
	if owner == "" {
		respondBadRequest(c, "user query parameter is required")
		return
	}

	templates, err := h.Store.ListTemplates(c.Request.Context(), store.TemplateFilter{UserAddress: owner})
	if err != nil {
		respondInternalError(c, err, "Failed to list templates")
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *handler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	now := h.Clock.Now().UTC()
	t := &domain.Template{
		ID:          uuid.NewString(),
		UserAddress: domain.NormalizeAddress(req.UserAddress),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		TriggerKind: req.TriggerKind,
		Channel:     req.Channel,
		IsPublic:    req.IsPublic,
		IsPremium:   req.IsPremium,
		Tags:        req.Tags,
		Message:     req.Message,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	if err := h.Store.UpsertTemplate(c.Request.Context(), t); err != nil {
		respondInternalError(c, err, "Failed to create template")
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *handler) GetTemplate(c *gin.Context) {
	t, err := h.Store.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Failed to get template")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) UpdateTemplate(c *gin.Context) {
	var req TemplateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	now := h.Clock.Now().UTC()
	t, err := h.Store.UpdateTemplate(c.Request.Context(), c.Param("id"), func(t *domain.Template) error {
		req.apply(t)
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		respondStoreError(c, err, "Failed to update template")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) DeleteTemplate(c *gin.Context) {
	if err := h.Store.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		respondStoreError(c, err, "Failed to delete template")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) ListAlerts(c *gin.Context) {
	alerts, err := h.Store.ListAlerts(c.Request.Context(), store.AlertFilter{
		UserAddress: c.Query("user"),
		Status:      domain.AlertStatus(c.Query("status")),
	})
	if err != nil {
		respondInternalError(c, err, "Failed to list alerts")
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *handler) CreateAlert(c *gin.Context) {
	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	now := h.Clock.Now().UTC()
	alert := &domain.PortfolioAlert{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		UserAddress:   domain.NormalizeAddress(req.UserAddress),
		Description:   req.Description,
		Kind:          req.Kind,
		Threshold:     req.Threshold,
		BaselineValue: req.BaselineValue,
		Status:        domain.AlertStatusActive,
		Action:        req.Action,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// a percentage alert is measured from the value at creation
	if portfolio.IsPercentThreshold(alert.Threshold) && alert.BaselineValue == nil {
		snapshot, err := h.Portfolio.Snapshot(ctx)
		if err != nil {
			respondServiceError(c, err, "Failed to capture portfolio baseline")
			return
		}
		total := snapshot.Total
		if !total.IsPositive() {
			respondUnprocessable(c, "Cannot use a percentage threshold while the portfolio is worth nothing",
				"set baselineValue or add holdings first")
			return
		}
		alert.BaselineValue = &total
	}

	if err := h.Store.UpsertAlert(ctx, alert); err != nil {
		respondInternalError(c, err, "Failed to create alert", logger.Alert(alert.ID))
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (h *handler) SetAlertStatus(c *gin.Context) {
	var req AlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	now := h.Clock.Now().UTC()
	alert, err := h.Store.UpdateAlert(c.Request.Context(), c.Param("id"), func(a *domain.PortfolioAlert) error {
		a.Status = req.Status
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		respondStoreError(c, err, "Failed to update alert status")
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *handler) DeleteAlert(c *gin.Context) {
	if err := h.Store.DeleteAlert(c.Request.Context(), c.Param("id")); err != nil {
		respondStoreError(c, err, "Failed to delete alert")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) GetPortfolio(c *gin.Context) {
	snapshot, err := h.Portfolio.Snapshot(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to value portfolio")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *handler) SetHoldings(c *gin.Context) {
	var req HoldingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.SetHoldings(ctx, req.Holdings); err != nil {
		respondInternalError(c, err, "Failed to save holdings")
		return
	}
	holdings, err := h.Store.GetHoldings(ctx)
	if err != nil {
		respondInternalError(c, err, "Failed to load holdings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": holdings})
}

func (h *handler) GetPrices(c *gin.Context) {
	quotes, err := h.PriceFeed.Quotes(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to fetch prices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// syncWorkflowCount recomputes the owner's workflow count. Failures are logged only.
func (h *handler) syncWorkflowCount(c *gin.Context, address string) {
	if address == "" {
		return
	}
	if err := h.Recorder.SyncWorkflowCount(c.Request.Context(), address); err != nil {
		logger.WarnCtx(c.Request.Context(), "Failed to sync workflow count", logger.User(address), zap.Error(err))
	}
}

// publish emits a live event. Failures are logged only.
func (h *handler) publish(c *gin.Context, event domain.LiveEvent) {
	if err := h.Publisher.Publish(c.Request.Context(), event); err != nil {
		logger.WarnCtx(c.Request.Context(), "Failed to publish live event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
