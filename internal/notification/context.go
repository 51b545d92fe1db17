package notification

import (
	"time"

	"github.com/feral-file/ff-flow/internal/template"
)

// BuildContext returns the template context of a workflow run
func BuildContext(in Input) template.Context {
	w := in.Workflow
	tx := in.Tx

	ctx := template.Context{
		"user_name": in.User.DisplayName(),
		"timestamp": in.Now.UTC().Format(time.RFC3339),
	}

	if w != nil {
		ctx["workflow_name"] = w.Name
		ctx["trigger_data"] = w.Trigger.Kind.Label()
		ctx["workflow"] = map[string]any{
			"id":             w.ID,
			"name":           w.Name,
			"description":    w.Description,
			"sourceAddress":  w.Trigger.SourceAddress,
			"executionCount": w.ExecutionCount,
		}
	}

	if tx != nil {
		ctx["amount"] = tx.ValueEther()
		ctx["address"] = tx.To
		ctx["tx_hash"] = tx.Hash
		ctx["from"] = tx.From
		ctx["tx"] = map[string]any{
			"hash":        tx.Hash,
			"from":        tx.From,
			"to":          tx.To,
			"value":       tx.ValueEther(),
			"blockNumber": tx.BlockNumber,
		}
	}

	if in.Err != nil {
		ctx["error"] = in.Err.Error()
	}
	return ctx
}

// BuildAlertContext returns the template context of a portfolio alert
func BuildAlertContext(in AlertInput) template.Context {
	a := in.Alert

	change := ""
	if in.ChangePercent != nil {
		change = in.ChangePercent.StringFixed(2)
	}
	baseline := ""
	if a.BaselineValue != nil {
		baseline = a.BaselineValue.StringFixed(2)
	}

	return template.Context{
		"user_name":      in.User.DisplayName(),
		"timestamp":      in.Now.UTC().Format(time.RFC3339),
		"alert_name":     a.Name,
		"total_value":    in.Total.StringFixed(2),
		"change_percent": change,
		"threshold":      a.Threshold,
		"baseline":       baseline,
		"alert": map[string]any{
			"id":          a.ID,
			"name":        a.Name,
			"kind":        string(a.Kind),
			"threshold":   a.Threshold,
			"status":      string(a.Status),
			"description": a.Description,
		},
	}
}
