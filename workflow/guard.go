package workflow

import (
	"context"
	"fmt"

	"github.com/wansing/docflow/core"
)

type guardKey struct{}

// guard travels in the context of nested workflow calls. It is never modified, each level gets a copy.
type guard struct {
	depth int
	held  []string // lock keys
}

func guardOf(ctx context.Context) guard {
	g, _ := ctx.Value(guardKey{}).(guard)
	return g
}

// enter increments the call depth.
func enter(ctx context.Context, method string, maxDepth int) (context.Context, error) {
	g := guardOf(ctx)
	if g.depth >= maxDepth {
		return ctx, &core.WorkflowError{
			Op:     method,
			Reason: fmt.Sprintf("more than %d nested workflow calls", maxDepth),
			Err:    core.ErrReentrancy,
		}
	}
	g.depth++
	return context.WithValue(ctx, guardKey{}, g), nil
}

func holds(ctx context.Context, key string) bool {
	for _, k := range guardOf(ctx).held {
		if k == key {
			return true
		}
	}
	return false
}

func withHeld(ctx context.Context, key string) context.Context {
	g := guardOf(ctx)
	g.held = append(append([]string(nil), g.held...), key)
	return context.WithValue(ctx, guardKey{}, g)
}
