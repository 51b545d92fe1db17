package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/matcher"
)

const watched = "0xAbCdEf0000000000000000000000000000000001"

func workflow(id, source string, active bool) *domain.Workflow {
	return &domain.Workflow{
		ID:       id,
		Trigger:  domain.TriggerSpec{Kind: domain.TriggerNativeTransfer, SourceAddress: source},
		IsActive: active,
	}
}

func ids(ws []*domain.Workflow) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.ID)
	}
	return out
}

func TestMatch(t *testing.T) {
	workflows := []*domain.Workflow{
		workflow("a", watched, true),
		workflow("b", "0xabcdef0000000000000000000000000000000001", true),
		workflow("c", watched, false),
		workflow("d", "0x0000000000000000000000000000000000000002", true),
		workflow("e", "", true),
		nil,
		workflow("f", "  "+watched+" ", true),
	}

	tests := []struct {
		name     string
		to       string
		expected []string
	}{
		{
			name:     "case insensitive and in order",
			to:       watched,
			expected: []string{"a", "b", "f"},
		},
		{
			name:     "lowercase destination",
			to:       "0xabcdef0000000000000000000000000000000001",
			expected: []string{"a", "b", "f"},
		},
		{
			name:     "other address",
			to:       "0x0000000000000000000000000000000000000002",
			expected: []string{"d"},
		},
		{
			name:     "prefix does not match",
			to:       "0xabcdef",
			expected: []string{},
		},
		{
			name:     "empty destination never matches",
			to:       "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(matcher.Match(tt.to, workflows)))
		})
	}
}

func TestMatch_OnlyActive(t *testing.T) {
	workflows := []*domain.Workflow{workflow("off", watched, false)}

	assert.Empty(t, matcher.Match(watched, workflows))

	workflows[0].IsActive = true
	assert.Len(t, matcher.Match(watched, workflows), 1)
}
