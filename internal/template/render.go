// Package template renders {{dotted.path}} placeholders against a nested context map.
package template

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnresolvedPlaceholder is returned by RenderStrict when a path has no scalar value
var ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

// Context is the lookup tree for placeholders. Nested maps give dotted paths.
type Context map[string]any

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Render replaces every placeholder with its value in ctx.
// Unresolved paths render as the empty string.
func Render(tmpl string, ctx Context) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		v, _ := lookup(ctx, pathOf(token))
		return v
	})
}

// RenderStrict is Render that fails when any placeholder cannot be resolved
func RenderStrict(tmpl string, ctx Context) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		path := pathOf(token)
		v, ok := lookup(ctx, path)
		if !ok {
			missing = append(missing, path)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, strings.Join(missing, ", "))
	}
	return out, nil
}

// Placeholders returns the distinct paths referenced by tmpl in order of appearance
func Placeholders(tmpl string) []string {
	seen := make(map[string]struct{})
	var paths []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		p := strings.TrimSpace(m[1])
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return paths
}

func pathOf(token string) string {
	m := placeholderPattern.FindStringSubmatch(token)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// lookup walks ctx along path and formats the scalar found there
func lookup(ctx Context, path string) (string, bool) {
	if path == "" {
		return "", false
	}

	var cur any = map[string]any(ctx)
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return "", false
			}
			cur = v
		case Context:
			v, ok := node[key]
			if !ok {
				return "", false
			}
			cur = v
		case map[string]string:
			v, ok := node[key]
			if !ok {
				return "", false
			}
			cur = v
		default:
			return "", false
		}
	}

	return format(cur)
}

func format(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case *big.Int:
		if val == nil {
			return "", false
		}
		return val.String(), true
	case decimal.Decimal:
		return val.String(), true
	case *decimal.Decimal:
		if val == nil {
			return "", false
		}
		return val.String(), true
	case time.Time:
		return val.UTC().Format(time.RFC3339), true
	case *time.Time:
		if val == nil {
			return "", false
		}
		return val.UTC().Format(time.RFC3339), true
	case fmt.Stringer:
		return val.String(), true
	case map[string]any, Context, map[string]string, []any:
		return "", false
	default:
		return fmt.Sprint(val), true
	}
}
