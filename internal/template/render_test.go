package template_test

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/template"
)

func testContext() template.Context {
	return template.Context{
		"user_name":     "Alice",
		"workflow_name": "Whale watch",
		"amount":        "1.5",
		"count":         3,
		"workflow": map[string]any{
			"name": "Whale watch",
			"id":   "wf-1",
			"owner": template.Context{
				"address": "0xabc",
			},
		},
		"tx": map[string]any{
			"value": big.NewInt(42),
		},
		"total": decimal.RequireFromString("1150.25"),
		"when":  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		"empty": nil,
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		expected string
	}{
		{
			name:     "flat placeholder",
			tmpl:     "Hello {{user_name}}!",
			expected: "Hello Alice!",
		},
		{
			name:     "whitespace inside braces",
			tmpl:     "Hello {{ user_name }}",
			expected: "Hello Alice",
		},
		{
			name:     "nested path",
			tmpl:     "{{workflow.name}} ({{workflow.id}})",
			expected: "Whale watch (wf-1)",
		},
		{
			name:     "deeply nested context type",
			tmpl:     "owner {{workflow.owner.address}}",
			expected: "owner 0xabc",
		},
		{
			name:     "big int value",
			tmpl:     "value={{tx.value}}",
			expected: "value=42",
		},
		{
			name:     "decimal value",
			tmpl:     "${{total}}",
			expected: "$1150.25",
		},
		{
			name:     "time value",
			tmpl:     "at {{when}}",
			expected: "at 2024-05-01T12:00:00Z",
		},
		{
			name:     "integer value",
			tmpl:     "{{count}} runs",
			expected: "3 runs",
		},
		{
			name:     "unknown path renders empty",
			tmpl:     "[{{missing}}]",
			expected: "[]",
		},
		{
			name:     "path through a scalar renders empty",
			tmpl:     "[{{user_name.first}}]",
			expected: "[]",
		},
		{
			name:     "object value renders empty",
			tmpl:     "[{{workflow}}]",
			expected: "[]",
		},
		{
			name:     "nil value renders empty",
			tmpl:     "[{{empty}}]",
			expected: "[]",
		},
		{
			name:     "empty placeholder renders empty",
			tmpl:     "[{{}}]",
			expected: "[]",
		},
		{
			name:     "no placeholders",
			tmpl:     "plain text",
			expected: "plain text",
		},
		{
			name:     "repeated placeholder",
			tmpl:     "{{amount}} + {{amount}}",
			expected: "1.5 + 1.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, template.Render(tt.tmpl, testContext()))
		})
	}
}

func TestRender_NeverLeavesResolvablePlaceholder(t *testing.T) {
	ctx := testContext()
	tmpl := "{{user_name}} {{workflow_name}} {{amount}} {{workflow.name}} {{tx.value}} {{unknown.path}}"

	out := template.Render(tmpl, ctx)

	assert.NotContains(t, out, "{{")
	assert.NotContains(t, out, "}}")
	assert.True(t, strings.HasPrefix(out, "Alice Whale watch 1.5 Whale watch 42"))
}

func TestRender_NilContext(t *testing.T) {
	assert.Equal(t, "hi ", template.Render("hi {{user_name}}", nil))
}

func TestRenderStrict(t *testing.T) {
	t.Run("all resolved", func(t *testing.T) {
		out, err := template.RenderStrict("{{user_name}} sent {{amount}} ETH", testContext())
		require.NoError(t, err)
		assert.Equal(t, "Alice sent 1.5 ETH", out)
	})

	t.Run("unresolved paths are reported", func(t *testing.T) {
		out, err := template.RenderStrict("{{user_name}} {{nope}} {{workflow.missing}}", testContext())
		require.Error(t, err)
		assert.ErrorIs(t, err, template.ErrUnresolvedPlaceholder)
		assert.Contains(t, err.Error(), "nope")
		assert.Contains(t, err.Error(), "workflow.missing")
		assert.Empty(t, out)
	})
}

func TestPlaceholders(t *testing.T) {
	paths := template.Placeholders("{{ a }} {{b.c}} {{a}} text {{d}}")
	assert.Equal(t, []string{"a", "b.c", "d"}, paths)
	assert.Empty(t, template.Placeholders("nothing here"))
}
