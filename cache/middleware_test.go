package cache

import (
	"context"
	"testing"
)

func tagging(tag string, order *[]string) Middleware {
	return func(next Resolver) Resolver {
		return ResolverFunc(func(ctx context.Context, name string) (Location, error) {
			*order = append(*order, tag)
			return next.Resolve(ctx, name)
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	base := ResolverFunc(func(context.Context, string) (Location, error) {
		order = append(order, "base")
		return Absent(), nil
	})

	r := Chain(base, tagging("outer", &order), nil, tagging("inner", &order))
	if _, err := r.Resolve(context.Background(), "#x"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []string{"outer", "inner", "base"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestChain_NoMiddleware(t *testing.T) {
	base := ResolverFunc(func(context.Context, string) (Location, error) {
		return Present("/conf/x"), nil
	})
	loc, err := Chain(base).Resolve(context.Background(), "#x")
	if err != nil || loc != Present("/conf/x") {
		t.Errorf("Chain(base) = %v, %v", loc, err)
	}
}
