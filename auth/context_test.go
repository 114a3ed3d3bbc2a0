package auth

import (
	"context"
	"testing"
)

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil {
		t.Fatal("expected nil identity on empty context")
	}
	if PrincipalFromContext(ctx) != "" {
		t.Fatal("expected empty principal on empty context")
	}

	id := &Identity{Principal: "thumbnails-service"}
	ctx = WithIdentity(ctx, id)
	if got := IdentityFromContext(ctx); got != id {
		t.Errorf("IdentityFromContext = %v, want %v", got, id)
	}
	if got := PrincipalFromContext(ctx); got != "thumbnails-service" {
		t.Errorf("PrincipalFromContext = %q", got)
	}
}
