package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/domain"
)

// =============================================================================
// Test Data Builders
// =============================================================================

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func buildTestWorkflow(id, owner string, createdAt time.Time) *domain.Workflow {
	return &domain.Workflow{
		ID:          id,
		Name:        "Workflow " + id,
		UserAddress: owner,
		Trigger: domain.TriggerSpec{
			Kind:          domain.TriggerNativeTransfer,
			SourceAddress: "0x1111111111111111111111111111111111111111",
		},
		Action: domain.ActionSpec{
			Channel:        domain.ChannelDiscord,
			DiscordWebhook: "https://discord.com/api/webhooks/1/abc",
		},
		IsActive:            true,
		ResponseTimesMs:     []int64{},
		ExecutionTimestamps: []time.Time{},
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}
}

func buildTestAlert(id string, status domain.AlertStatus, createdAt time.Time) *domain.PortfolioAlert {
	baseline := decimal.RequireFromString("1000.5")
	return &domain.PortfolioAlert{
		ID:            id,
		Name:          "Alert " + id,
		Kind:          domain.AlertKindPortfolioValue,
		Threshold:     "$1,000",
		BaselineValue: &baseline,
		Status:        status,
		Action: domain.ActionSpec{
			Channel: domain.ChannelEmail,
			Email:   "ops@example.com",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// =============================================================================
// Workflows
// =============================================================================

func testWorkflows(t *testing.T, s Store) {
	ctx := context.Background()
	owner := "0xAbCdEf0000000000000000000000000000000001"

	t.Run("get unknown workflow returns not found", func(t *testing.T) {
		_, err := s.GetWorkflow(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})

	t.Run("upsert then get round trips the definition", func(t *testing.T) {
		w := buildTestWorkflow("wf-1", owner, testNow)
		w.Message = &domain.MessageTemplate{Subject: "Hi", Body: "{{workflow_name}}"}
		require.NoError(t, s.UpsertWorkflow(ctx, w))

		got, err := s.GetWorkflow(ctx, "wf-1")
		require.NoError(t, err)
		assert.Equal(t, "Workflow wf-1", got.Name)
		assert.Equal(t, domain.NormalizeAddress(owner), got.UserAddress)
		assert.Equal(t, domain.TriggerNativeTransfer, got.Trigger.Kind)
		assert.Equal(t, "https://discord.com/api/webhooks/1/abc", got.Action.DiscordWebhook)
		require.NotNil(t, got.Message)
		assert.Equal(t, "{{workflow_name}}", got.Message.Body)
		assert.True(t, got.CreatedAt.Equal(testNow))
	})

	t.Run("returned copies are isolated from the store", func(t *testing.T) {
		got, err := s.GetWorkflow(ctx, "wf-1")
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := s.GetWorkflow(ctx, "wf-1")
		require.NoError(t, err)
		assert.Equal(t, "Workflow wf-1", again.Name)
	})

	t.Run("list filters and orders by creation time", func(t *testing.T) {
		w2 := buildTestWorkflow("wf-2", owner, testNow.Add(-time.Hour))
		w3 := buildTestWorkflow("wf-3", "0x0000000000000000000000000000000000000002", testNow.Add(time.Hour))
		w3.IsActive = false
		w3.PortfolioAlertID = "alert-9"
		require.NoError(t, s.UpsertWorkflow(ctx, w2))
		require.NoError(t, s.UpsertWorkflow(ctx, w3))

		all, err := s.ListWorkflows(ctx, WorkflowFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"wf-2", "wf-1", "wf-3"}, []string{all[0].ID, all[1].ID, all[2].ID})

		active, err := s.ListWorkflows(ctx, WorkflowFilter{ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, active, 2)

		mine, err := s.ListWorkflows(ctx, WorkflowFilter{UserAddress: owner})
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		linked, err := s.ListWorkflows(ctx, WorkflowFilter{PortfolioAlertID: "alert-9"})
		require.NoError(t, err)
		require.Len(t, linked, 1)
		assert.Equal(t, "wf-3", linked[0].ID)
	})

	t.Run("update applies the mutator atomically", func(t *testing.T) {
		rt := 250 * time.Millisecond
		updated, err := s.UpdateWorkflow(ctx, "wf-1", func(w *domain.Workflow) error {
			w.RecordExecution(testNow.Add(time.Minute), &rt)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated.ExecutionCount)
		require.NotNil(t, updated.PreviousExecutionCount)
		assert.Equal(t, int64(0), *updated.PreviousExecutionCount)
		assert.Equal(t, []int64{250}, updated.ResponseTimesMs)

		got, err := s.GetWorkflow(ctx, "wf-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ExecutionCount)
		assert.Equal(t, float64(100), got.SuccessRate)
		require.Len(t, got.ExecutionTimestamps, 1)
		assert.True(t, got.ExecutionTimestamps[0].Equal(testNow.Add(time.Minute)))
		require.NotNil(t, got.LastTriggered)
	})

	t.Run("update error leaves the workflow untouched", func(t *testing.T) {
		_, err := s.UpdateWorkflow(ctx, "wf-1", func(w *domain.Workflow) error {
			w.Name = "never saved"
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		got, err := s.GetWorkflow(ctx, "wf-1")
		require.NoError(t, err)
		assert.Equal(t, "Workflow wf-1", got.Name)
	})

	t.Run("update unknown workflow returns not found", func(t *testing.T) {
		_, err := s.UpdateWorkflow(ctx, "missing", func(*domain.Workflow) error { return nil })
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})

	t.Run("delete returns the removed workflow", func(t *testing.T) {
		deleted, err := s.DeleteWorkflow(ctx, "wf-2")
		require.NoError(t, err)
		assert.Equal(t, "wf-2", deleted.ID)

		_, err = s.GetWorkflow(ctx, "wf-2")
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

		_, err = s.DeleteWorkflow(ctx, "wf-2")
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})
}

// testConcurrentWorkflowUpdates checks that no increment is lost under contention
func testConcurrentWorkflowUpdates(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.UpsertWorkflow(ctx, buildTestWorkflow("wf-c", "0x01", testNow)))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateWorkflow(ctx, "wf-c", func(w *domain.Workflow) error {
				w.RecordExecution(testNow, nil)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetWorkflow(ctx, "wf-c")
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.ExecutionCount)
	assert.Len(t, got.ExecutionTimestamps, n)
	require.NotNil(t, got.PreviousExecutionCount)
	assert.Equal(t, int64(0), *got.PreviousExecutionCount)
}

// =============================================================================
// Users
// =============================================================================

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	addr := "0xABCDEF0000000000000000000000000000000009"

	t.Run("get creates the default profile", func(t *testing.T) {
		u, err := s.GetUser(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, domain.NormalizeAddress(addr), u.Address)
		assert.True(t, u.Settings.Notifications.Email)
		assert.True(t, u.Settings.Notifications.ExecutionAlerts)
		assert.True(t, u.Settings.Notifications.FailureAlerts)
		assert.False(t, u.Settings.Notifications.Discord)
		assert.False(t, u.Settings.Notifications.Webhook)
		assert.Empty(t, u.NotificationRules)
	})

	t.Run("get with empty address fails", func(t *testing.T) {
		_, err := s.GetUser(ctx, "  ")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("update persists settings and rules", func(t *testing.T) {
		_, err := s.UpdateUser(ctx, addr, func(u *domain.User) error {
			u.Name = "Alice"
			u.Settings.Integrations.Discord = "https://discord.com/api/webhooks/2/x"
			u.Settings.Notifications.Discord = true
			u.NotificationRules = append(u.NotificationRules, domain.NotificationRule{
				ID:      "rule-1",
				Name:    "Ping me",
				Trigger: domain.RuleTriggerWorkflowSucceeds,
				Action:  domain.RuleActionSendDiscord,
				Message: "{{workflow_name}} ran",
			})
			u.Usage.Workflows++
			return nil
		})
		require.NoError(t, err)

		u, err := s.GetUser(ctx, domain.NormalizeAddress(addr))
		require.NoError(t, err)
		assert.Equal(t, "Alice", u.Name)
		assert.True(t, u.Settings.Notifications.Discord)
		assert.Equal(t, int64(1), u.Usage.Workflows)
		require.NotNil(t, u.Rule("rule-1"))
		assert.Equal(t, domain.RuleActionSendDiscord, u.Rule("rule-1").Action)
	})

	t.Run("update creates unknown users", func(t *testing.T) {
		u, err := s.UpdateUser(ctx, "0x00000000000000000000000000000000000000aa", func(u *domain.User) error {
			u.Usage.APICalls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.Usage.APICalls)
		assert.True(t, u.Settings.Notifications.Email)
	})

	t.Run("upsert replaces the profile", func(t *testing.T) {
		u := domain.NewUser("0x00000000000000000000000000000000000000bb", testNow)
		u.Name = "Bob"
		u.Usage.Executions = 7
		require.NoError(t, s.UpsertUser(ctx, u))

		got, err := s.GetUser(ctx, u.Address)
		require.NoError(t, err)
		assert.Equal(t, "Bob", got.Name)
		assert.Equal(t, int64(7), got.Usage.Executions)
		assert.Equal(t, domain.PlanFree, got.Plan)
	})

	t.Run("plan and api key round trip", func(t *testing.T) {
		owner := "0x00000000000000000000000000000000000000cc"
		_, err := s.UpdateUser(ctx, owner, func(u *domain.User) error {
			u.APIKey = "key-cc"
			if err := u.RedeemPayment("0xfeed"); err != nil {
				return err
			}
			return u.UpgradePlan(domain.PlanBimonthly, testNow)
		})
		require.NoError(t, err)

		got, err := s.FindUserByAPIKey(ctx, "key-cc")
		require.NoError(t, err)
		assert.Equal(t, owner, got.Address)
		assert.Equal(t, domain.PlanBimonthly, got.Plan)
		require.NotNil(t, got.PlanExpiresAt)
		assert.True(t, got.PlanExpiresAt.Equal(testNow.AddDate(0, 2, 0)))
		assert.Equal(t, []string{"0xfeed"}, got.PaymentTxHashes)
	})

	t.Run("find by unknown api key", func(t *testing.T) {
		_, err := s.FindUserByAPIKey(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = s.FindUserByAPIKey(ctx, "")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

// =============================================================================
// Alerts
// =============================================================================

func testAlerts(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.UpsertAlert(ctx, buildTestAlert("a-1", domain.AlertStatusActive, testNow)))
	require.NoError(t, s.UpsertAlert(ctx, buildTestAlert("a-2", domain.AlertStatusPaused, testNow.Add(time.Minute))))

	t.Run("get round trips the baseline", func(t *testing.T) {
		a, err := s.GetAlert(ctx, "a-1")
		require.NoError(t, err)
		require.NotNil(t, a.BaselineValue)
		assert.True(t, a.BaselineValue.Equal(decimal.RequireFromString("1000.5")))
		assert.Equal(t, "ops@example.com", a.Action.Email)
		assert.True(t, a.IsActive())
	})

	t.Run("list filters by status", func(t *testing.T) {
		all, err := s.ListAlerts(ctx, AlertFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		active, err := s.ListAlerts(ctx, AlertFilter{Status: domain.AlertStatusActive})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "a-1", active[0].ID)
	})

	t.Run("update status and last triggered", func(t *testing.T) {
		fired := testNow.Add(2 * time.Minute)
		a, err := s.UpdateAlert(ctx, "a-2", func(a *domain.PortfolioAlert) error {
			a.Status = domain.AlertStatusActive
			a.LastTriggered = &fired
			return nil
		})
		require.NoError(t, err)
		assert.True(t, a.IsActive())

		got, err := s.GetAlert(ctx, "a-2")
		require.NoError(t, err)
		require.NotNil(t, got.LastTriggered)
		assert.True(t, got.LastTriggered.Equal(fired))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteAlert(ctx, "a-1"))
		_, err := s.GetAlert(ctx, "a-1")
		assert.ErrorIs(t, err, domain.ErrAlertNotFound)
		assert.ErrorIs(t, s.DeleteAlert(ctx, "a-1"), domain.ErrAlertNotFound)
	})

	t.Run("update unknown alert returns not found", func(t *testing.T) {
		_, err := s.UpdateAlert(ctx, "nope", func(*domain.PortfolioAlert) error { return nil })
		assert.ErrorIs(t, err, domain.ErrAlertNotFound)
	})
}

// =============================================================================
// Templates
// =============================================================================

func buildTestTemplate(id, owner string, createdAt time.Time) *domain.Template {
	return &domain.Template{
		ID:          id,
		UserAddress: owner,
		Name:        "Template " + id,
		Category:    domain.TemplateCategoryDeFi,
		TriggerKind: domain.TriggerNativeTransfer,
		Channel:     domain.ChannelDiscord,
		Tags:        []string{"whales", "eth"},
		Message: domain.MessageTemplate{
			Subject: "Transfer",
			Body:    "{{amount}} ETH moved",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func testTemplates(t *testing.T, s Store) {
	ctx := context.Background()
	alice := "0xAAAA000000000000000000000000000000000001"
	bob := "0xbbbb000000000000000000000000000000000002"

	require.NoError(t, s.UpsertTemplate(ctx, buildTestTemplate("t-1", alice, testNow)))
	require.NoError(t, s.UpsertTemplate(ctx, buildTestTemplate("t-2", bob, testNow.Add(time.Minute))))
	require.NoError(t, s.UpsertTemplate(ctx, buildTestTemplate("t-3", alice, testNow.Add(2*time.Minute))))

	t.Run("get round trips every field", func(t *testing.T) {
		tpl, err := s.GetTemplate(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, domain.NormalizeAddress(alice), tpl.UserAddress)
		assert.Equal(t, domain.TemplateCategoryDeFi, tpl.Category)
		assert.Equal(t, domain.ChannelDiscord, tpl.Channel)
		assert.Equal(t, []string{"whales", "eth"}, tpl.Tags)
		assert.Equal(t, "{{amount}} ETH moved", tpl.Message.Body)
	})

	t.Run("list filters by owner case-insensitively", func(t *testing.T) {
		all, err := s.ListTemplates(ctx, TemplateFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		mine, err := s.ListTemplates(ctx, TemplateFilter{UserAddress: "0xaaaa000000000000000000000000000000000001"})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, "t-1", mine[0].ID)
		assert.Equal(t, "t-3", mine[1].ID)
	})

	t.Run("update keeps the owner", func(t *testing.T) {
		tpl, err := s.UpdateTemplate(ctx, "t-2", func(tpl *domain.Template) error {
			tpl.UsageCount++
			tpl.UserAddress = alice
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), tpl.UsageCount)
		assert.Equal(t, domain.NormalizeAddress(bob), tpl.UserAddress)

		got, err := s.GetTemplate(ctx, "t-2")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.UsageCount)
		assert.Equal(t, domain.NormalizeAddress(bob), got.UserAddress)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteTemplate(ctx, "t-3"))
		_, err := s.GetTemplate(ctx, "t-3")
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
		assert.ErrorIs(t, s.DeleteTemplate(ctx, "t-3"), domain.ErrTemplateNotFound)
	})

	t.Run("update unknown template returns not found", func(t *testing.T) {
		_, err := s.UpdateTemplate(ctx, "nope", func(*domain.Template) error { return nil })
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
	})
}

// =============================================================================
// Holdings
// =============================================================================

func testHoldings(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("empty by default", func(t *testing.T) {
		h, err := s.GetHoldings(ctx)
		require.NoError(t, err)
		assert.Empty(t, h)
	})

	t.Run("set normalizes, merges and sorts", func(t *testing.T) {
		err := s.SetHoldings(ctx, []domain.Holding{
			{Symbol: "eth", Amount: decimal.RequireFromString("1.5")},
			{Symbol: "BTC", Amount: decimal.RequireFromString("0.1")},
			{Symbol: "ETH", Amount: decimal.RequireFromString("0.5")},
		})
		require.NoError(t, err)

		h, err := s.GetHoldings(ctx)
		require.NoError(t, err)
		require.Len(t, h, 2)
		assert.Equal(t, "BTC", h[0].Symbol)
		assert.Equal(t, "ETH", h[1].Symbol)
		assert.True(t, h[1].Amount.Equal(decimal.NewFromInt(2)))
	})

	t.Run("set replaces everything", func(t *testing.T) {
		require.NoError(t, s.SetHoldings(ctx, []domain.Holding{{Symbol: "SOL", Amount: decimal.NewFromInt(3)}}))
		h, err := s.GetHoldings(ctx)
		require.NoError(t, err)
		require.Len(t, h, 1)
		assert.Equal(t, "SOL", h[0].Symbol)
	})

	t.Run("negative amounts are rejected", func(t *testing.T) {
		err := s.SetHoldings(ctx, []domain.Holding{{Symbol: "ETH", Amount: decimal.NewFromInt(-1)}})
		assert.Error(t, err)
	})
}

// RunStoreTests runs the shared suite against a Store implementation.
// initDB must return an empty store for every test.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T), concurrent bool) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Workflows", testWorkflows},
		{"Users", testUsers},
		{"Alerts", testAlerts},
		{"Templates", testTemplates},
		{"Holdings", testHoldings},
	}
	if concurrent {
		tests = append(tests, struct {
			name string
			fn   func(*testing.T, Store)
		}{"ConcurrentWorkflowUpdates", testConcurrentWorkflowUpdates})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, s)
		})
	}
}
