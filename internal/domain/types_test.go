package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidChain(t *testing.T) {
	tests := []struct {
		name     string
		chain    Chain
		expected bool
	}{
		{
			name:     "valid ethereum mainnet",
			chain:    ChainEthereumMainnet,
			expected: true,
		},
		{
			name:     "valid base sepolia",
			chain:    ChainBaseSepolia,
			expected: true,
		},
		{
			name:     "invalid empty chain",
			chain:    Chain(""),
			expected: false,
		},
		{
			name:     "invalid tezos chain",
			chain:    Chain("tezos:mainnet"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidChain(tt.chain))
		})
	}
}

func TestSameAddress(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{
			name:     "identical",
			a:        "0xaaa",
			b:        "0xaaa",
			expected: true,
		},
		{
			name:     "mixed case",
			a:        "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb",
			b:        "0x742d35cc6634c0532925a3b844bc9e7595f0beb",
			expected: true,
		},
		{
			name:     "surrounding whitespace",
			a:        " 0xAAA ",
			b:        "0xaaa",
			expected: true,
		},
		{
			name:     "different",
			a:        "0xaaa",
			b:        "0xaab",
			expected: false,
		},
		{
			name:     "empty never matches",
			a:        "",
			b:        "",
			expected: false,
		},
		{
			name:     "prefix is not a match",
			a:        "0xaaa",
			b:        "0xaaab",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SameAddress(tt.a, tt.b))
		})
	}
}

func TestWorkflow_RecordExecution(t *testing.T) {
	t.Run("first execution captures previous count", func(t *testing.T) {
		w := &Workflow{ID: "wf-1"}
		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rt := 150 * time.Millisecond

		w.RecordExecution(at, &rt)

		assert.Equal(t, int64(1), w.ExecutionCount)
		require.NotNil(t, w.PreviousExecutionCount)
		assert.Equal(t, int64(0), *w.PreviousExecutionCount)
		assert.Equal(t, []int64{150}, w.ResponseTimesMs)
		assert.Equal(t, []time.Time{at}, w.ExecutionTimestamps)
		require.NotNil(t, w.LastTriggered)
		assert.Equal(t, at, *w.LastTriggered)
		assert.Equal(t, float64(100), w.SuccessRate)
	})

	t.Run("previous count is set only once", func(t *testing.T) {
		w := &Workflow{ID: "wf-1", ExecutionCount: 4}
		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		for i := 0; i < 3; i++ {
			before := w.ExecutionCount
			w.RecordExecution(at.Add(time.Duration(i)*time.Second), nil)
			assert.Equal(t, before+1, w.ExecutionCount)
		}

		require.NotNil(t, w.PreviousExecutionCount)
		assert.Equal(t, int64(4), *w.PreviousExecutionCount)
		assert.Empty(t, w.ResponseTimesMs)
		assert.Len(t, w.ExecutionTimestamps, 3)
	})
}

func TestWorkflow_Clone(t *testing.T) {
	prev := int64(2)
	at := time.Now()
	w := &Workflow{
		ID:                     "wf-1",
		Message:                &MessageTemplate{Body: "hi"},
		PreviousExecutionCount: &prev,
		LastTriggered:          &at,
		ResponseTimesMs:        []int64{1, 2},
	}

	c := w.Clone()
	c.Message.Body = "changed"
	*c.PreviousExecutionCount = 9
	c.ResponseTimesMs[0] = 100

	assert.Equal(t, "hi", w.Message.Body)
	assert.Equal(t, int64(2), *w.PreviousExecutionCount)
	assert.Equal(t, int64(1), w.ResponseTimesMs[0])
	assert.Nil(t, (*Workflow)(nil).Clone())
}

func TestNewUser_Defaults(t *testing.T) {
	now := time.Now()
	u := NewUser("0xABCdef", now)

	assert.Equal(t, "0xabcdef", u.Address)
	assert.True(t, u.Settings.Notifications.Email)
	assert.False(t, u.Settings.Notifications.Discord)
	assert.False(t, u.Settings.Notifications.Webhook)
	assert.True(t, u.Settings.Notifications.ExecutionAlerts)
	assert.True(t, u.Settings.Notifications.FailureAlerts)
	assert.False(t, u.Settings.Notifications.WeeklyReports)
	assert.NotNil(t, u.NotificationRules)
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Alice", (&User{Name: "Alice", Address: "0xabc"}).DisplayName())
	assert.Equal(t, "0xabc", (&User{Address: "0xabc"}).DisplayName())
	assert.Equal(t, "User", (&User{}).DisplayName())
	assert.Equal(t, "User", (*User)(nil).DisplayName())
}

func TestUser_Rule(t *testing.T) {
	u := &User{NotificationRules: []NotificationRule{{ID: "r1", Trigger: RuleTriggerWorkflowFails}}}

	r := u.Rule("r1")
	require.NotNil(t, r)
	assert.Equal(t, RuleTriggerWorkflowFails, r.Trigger)
	assert.Nil(t, u.Rule("missing"))
	assert.Nil(t, u.Rule(""))
}

func TestRuleTrigger_Matches(t *testing.T) {
	assert.True(t, RuleTriggerWorkflowSucceeds.Matches(OutcomeSuccess))
	assert.False(t, RuleTriggerWorkflowSucceeds.Matches(OutcomeFailure))
	assert.True(t, RuleTriggerWorkflowFails.Matches(OutcomeFailure))
	assert.False(t, RuleTriggerWorkflowFails.Matches(OutcomeSuccess))
}

func TestTransaction_ValueEther(t *testing.T) {
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)
	half, _ := new(big.Int).SetString("500000000000000000", 10)

	assert.Equal(t, "1", (&Transaction{Value: oneEth}).ValueEther())
	assert.Equal(t, "0.5", (&Transaction{Value: half}).ValueEther())
	assert.Equal(t, "0", (&Transaction{}).ValueEther())
}

func TestTriggerKind_Label(t *testing.T) {
	assert.Equal(t, "ETH Transfer", TriggerNativeTransfer.Label())
	assert.Equal(t, "NFT Purchase", TriggerNFTPurchase.Label())
	assert.Equal(t, "Contract Event", TriggerContractEvent.Label())
	assert.Equal(t, "", TriggerKind("unknown").Label())
}

func TestUser_UpgradePlan(t *testing.T) {
	now := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		plan    Plan
		expires time.Time
		wantErr bool
	}{
		{name: "monthly", plan: PlanMonthly, expires: now.AddDate(0, 1, 0)},
		{name: "bimonthly", plan: PlanBimonthly, expires: now.AddDate(0, 2, 0)},
		{name: "free cannot be purchased", plan: PlanFree, wantErr: true},
		{name: "unknown", plan: Plan("lifetime"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUser("0xAbC", now)
			err := u.UpgradePlan(tt.plan, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPlan)
				assert.Equal(t, PlanFree, u.Plan)
				assert.Nil(t, u.PlanExpiresAt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.plan, u.Plan)
			require.NotNil(t, u.PlanExpiresAt)
			assert.True(t, u.PlanExpiresAt.Equal(tt.expires))
		})
	}
}

func TestNewAPIKey(t *testing.T) {
	a, err := NewAPIKey()
	require.NoError(t, err)
	b, err := NewAPIKey()
	require.NoError(t, err)

	assert.Len(t, a, 48)
	assert.NotEqual(t, a, b)
}

func TestUser_CloneCopiesPlanExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u := NewUser("0xabc", now)
	require.NoError(t, u.UpgradePlan(PlanMonthly, now))

	c := u.Clone()
	*c.PlanExpiresAt = now
	assert.False(t, u.PlanExpiresAt.Equal(now))
}

func TestTemplate_Clone(t *testing.T) {
	tpl := &Template{ID: "t-1", Tags: []string{"defi"}}
	c := tpl.Clone()
	c.Tags[0] = "nft"

	assert.Equal(t, "defi", tpl.Tags[0])
	assert.True(t, TemplateCategoryDAO.Valid())
	assert.False(t, TemplateCategory("sports").Valid())
}

func TestUser_RedeemPayment(t *testing.T) {
	u := NewUser("0xabc", time.Now())
	require.NoError(t, u.RedeemPayment("0xAA"))

	err := u.RedeemPayment("0xaa")
	assert.ErrorIs(t, err, ErrPaymentNotVerified)
	assert.Equal(t, []string{"0xaa"}, u.PaymentTxHashes)

	c := u.Clone()
	require.NoError(t, c.RedeemPayment("0xbb"))
	assert.Len(t, u.PaymentTxHashes, 1)
}
