package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/store/schema"
)

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func unmarshalJSON(raw datatypes.JSON, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func toWorkflowRow(w *domain.Workflow) (*schema.Workflow, error) {
	action, err := marshalJSON(w.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action: %w", err)
	}

	var message datatypes.JSON
	if w.Message != nil {
		message, err = marshalJSON(w.Message)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message: %w", err)
		}
	}

	responseTimes := w.ResponseTimesMs
	if responseTimes == nil {
		responseTimes = []int64{}
	}
	rt, err := marshalJSON(responseTimes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response times: %w", err)
	}

	timestamps := w.ExecutionTimestamps
	if timestamps == nil {
		timestamps = []time.Time{}
	}
	ts, err := marshalJSON(timestamps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution timestamps: %w", err)
	}

	return &schema.Workflow{
		ID:                     w.ID,
		Name:                   w.Name,
		Description:            w.Description,
		UserAddress:            domain.NormalizeAddress(w.UserAddress),
		TriggerKind:            string(w.Trigger.Kind),
		SourceAddress:          w.Trigger.SourceAddress,
		Action:                 action,
		Message:                message,
		NotificationRuleID:     w.NotificationRuleID,
		PortfolioAlertID:       w.PortfolioAlertID,
		IsActive:               w.IsActive,
		ExecutionCount:         w.ExecutionCount,
		PreviousExecutionCount: w.PreviousExecutionCount,
		SuccessRate:            w.SuccessRate,
		ResponseTimes:          rt,
		ExecutionTimestamps:    ts,
		LastTriggered:          w.LastTriggered,
		CreatedAt:              w.CreatedAt,
		UpdatedAt:              w.UpdatedAt,
	}, nil
}

func fromWorkflowRow(row *schema.Workflow) (*domain.Workflow, error) {
	w := &domain.Workflow{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		UserAddress: row.UserAddress,
		Trigger: domain.TriggerSpec{
			Kind:          domain.TriggerKind(row.TriggerKind),
			SourceAddress: row.SourceAddress,
		},
		NotificationRuleID:     row.NotificationRuleID,
		PortfolioAlertID:       row.PortfolioAlertID,
		IsActive:               row.IsActive,
		ExecutionCount:         row.ExecutionCount,
		PreviousExecutionCount: row.PreviousExecutionCount,
		SuccessRate:            row.SuccessRate,
		LastTriggered:          row.LastTriggered,
		CreatedAt:              row.CreatedAt.UTC(),
		UpdatedAt:              row.UpdatedAt.UTC(),
	}
	if w.LastTriggered != nil {
		t := w.LastTriggered.UTC()
		w.LastTriggered = &t
	}

	if err := unmarshalJSON(row.Action, &w.Action); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action: %w", err)
	}
	if len(row.Message) > 0 && string(row.Message) != "null" {
		var m domain.MessageTemplate
		if err := unmarshalJSON(row.Message, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		w.Message = &m
	}
	if err := unmarshalJSON(row.ResponseTimes, &w.ResponseTimesMs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response times: %w", err)
	}
	if err := unmarshalJSON(row.ExecutionTimestamps, &w.ExecutionTimestamps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution timestamps: %w", err)
	}
	return w, nil
}

func toUserRow(u *domain.User) (*schema.User, error) {
	settings, err := marshalJSON(u.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	rules := u.NotificationRules
	if rules == nil {
		rules = []domain.NotificationRule{}
	}
	rulesJSON, err := marshalJSON(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification rules: %w", err)
	}
	hashes := u.PaymentTxHashes
	if hashes == nil {
		hashes = []string{}
	}
	hashesJSON, err := marshalJSON(hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment tx hashes: %w", err)
	}
	plan := u.Plan
	if plan == "" {
		plan = domain.PlanFree
	}

	return &schema.User{
		Address:           domain.NormalizeAddress(u.Address),
		Name:              u.Name,
		Settings:          settings,
		NotificationRules: rulesJSON,
		Executions:        u.Usage.Executions,
		Workflows:         u.Usage.Workflows,
		APICalls:          u.Usage.APICalls,
		Plan:              string(plan),
		PlanExpiresAt:     u.PlanExpiresAt,
		APIKey:            u.APIKey,
		PaymentTxHashes:   hashesJSON,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}, nil
}

func fromUserRow(row *schema.User) (*domain.User, error) {
	u := &domain.User{
		Address: row.Address,
		Name:    row.Name,
		Usage: domain.Usage{
			Executions: row.Executions,
			Workflows:  row.Workflows,
			APICalls:   row.APICalls,
		},
		NotificationRules: []domain.NotificationRule{},
		Plan:              domain.Plan(row.Plan),
		APIKey:            row.APIKey,
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
	if row.PlanExpiresAt != nil {
		t := row.PlanExpiresAt.UTC()
		u.PlanExpiresAt = &t
	}
	if err := unmarshalJSON(row.Settings, &u.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := unmarshalJSON(row.NotificationRules, &u.NotificationRules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification rules: %w", err)
	}
	if err := unmarshalJSON(row.PaymentTxHashes, &u.PaymentTxHashes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment tx hashes: %w", err)
	}
	return u, nil
}

func toAlertRow(a *domain.PortfolioAlert) (*schema.PortfolioAlert, error) {
	action, err := marshalJSON(a.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action: %w", err)
	}

	row := &schema.PortfolioAlert{
		ID:            a.ID,
		Name:          a.Name,
		UserAddress:   domain.NormalizeAddress(a.UserAddress),
		Description:   a.Description,
		Kind:          string(a.Kind),
		Threshold:     a.Threshold,
		Status:        string(a.Status),
		Action:        action,
		LastTriggered: a.LastTriggered,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if a.BaselineValue != nil {
		row.BaselineValue = decimal.NewNullDecimal(*a.BaselineValue)
	}
	return row, nil
}

func fromAlertRow(row *schema.PortfolioAlert) (*domain.PortfolioAlert, error) {
	a := &domain.PortfolioAlert{
		ID:          row.ID,
		Name:        row.Name,
		UserAddress: row.UserAddress,
		Description: row.Description,
		Kind:        domain.AlertKind(row.Kind),
		Threshold:   row.Threshold,
		Status:      domain.AlertStatus(row.Status),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if row.BaselineValue.Valid {
		b := row.BaselineValue.Decimal
		a.BaselineValue = &b
	}
	if row.LastTriggered != nil {
		t := row.LastTriggered.UTC()
		a.LastTriggered = &t
	}
	if err := unmarshalJSON(row.Action, &a.Action); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action: %w", err)
	}
	return a, nil
}

func toTemplateRow(t *domain.Template) (*schema.Template, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := marshalJSON(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	return &schema.Template{
		ID:             t.ID,
		UserAddress:    domain.NormalizeAddress(t.UserAddress),
		Name:           t.Name,
		Description:    t.Description,
		Category:       string(t.Category),
		TriggerKind:    string(t.TriggerKind),
		Channel:        string(t.Channel),
		IsPublic:       t.IsPublic,
		IsPremium:      t.IsPremium,
		Tags:           tagsJSON,
		MessageSubject: t.Message.Subject,
		MessageBody:    t.Message.Body,
		UsageCount:     t.UsageCount,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}, nil
}

func fromTemplateRow(row *schema.Template) (*domain.Template, error) {
	t := &domain.Template{
		ID:          row.ID,
		UserAddress: row.UserAddress,
		Name:        row.Name,
		Description: row.Description,
		Category:    domain.TemplateCategory(row.Category),
		TriggerKind: domain.TriggerKind(row.TriggerKind),
		Channel:     domain.Channel(row.Channel),
		IsPublic:    row.IsPublic,
		IsPremium:   row.IsPremium,
		Tags:        []string{},
		Message: domain.MessageTemplate{
			Subject: row.MessageSubject,
			Body:    row.MessageBody,
		},
		UsageCount: row.UsageCount,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
	if err := unmarshalJSON(row.Tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return t, nil
}
