// Package matcher selects the workflows triggered by a transaction destination.
package matcher

import (
	"github.com/feral-file/ff-flow/internal/domain"
)

// Match returns every active workflow whose source address equals to, in input order.
// Addresses are compared case-insensitively and an empty address never matches.
func Match(to string, workflows []*domain.Workflow) []*domain.Workflow {
	if domain.NormalizeAddress(to) == "" {
		return nil
	}

	var matched []*domain.Workflow
	for _, w := range workflows {
		if w == nil || !w.IsActive {
			continue
		}
		if domain.SameAddress(w.Trigger.SourceAddress, to) {
			matched = append(matched, w)
		}
	}
	return matched
}
