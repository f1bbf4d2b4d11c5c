package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/go-facturas/gate"
)

type ownedInvoice struct{ OwnerID uint }

func ownerPolicy() gate.Policy[uint] {
	return gate.PolicyFunc[uint](func(_ context.Context, userID uint, _ gate.Action, resource any) bool {
		inv, ok := resource.(*ownedInvoice)
		return ok && inv.OwnerID == userID
	})
}

func TestHybridGate_ProfileOnly(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile(1, "cashier",
		gate.NewPermission("invoice", gate.ActionCreate),
		gate.NewPermission("invoice", gate.ActionIssue),
	))
	g := gate.NewHybridGate[uint](resolver)
	ctx := context.Background()

	if err := g.Authorize(ctx, 1, gate.ActionIssue, "invoice", nil); err != nil {
		t.Errorf("user with permission should be allowed, got %v", err)
	}
	if err := g.Authorize(ctx, 1, gate.ActionVoid, "invoice", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := g.Authorize(ctx, 2, gate.ActionView, "invoice", nil); !errors.Is(err, gate.ErrNoProfile) {
		t.Errorf("expected ErrNoProfile, got %v", err)
	}
	if err := g.Authorize(ctx, 0, gate.ActionView, "invoice", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestHybridGate_WithOwnershipPolicy(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	profile := gate.NewStaticProfile(1, "cashier", gate.NewPermission("invoice", gate.WildcardAll))
	resolver.Set(1, profile)
	resolver.Set(2, profile)

	g := gate.NewHybridGate[uint](resolver)
	g.Register("invoice", ownerPolicy())
	inv := &ownedInvoice{OwnerID: 1}

	if !g.Can(context.Background(), 1, gate.ActionUpdate, "invoice", inv) {
		t.Error("owner should be allowed")
	}
	if g.Can(context.Background(), 2, gate.ActionUpdate, "invoice", inv) {
		t.Error("non-owner should be denied even with profile permission")
	}
	// list/create have no resource: profile check only
	if !g.Can(context.Background(), 2, gate.ActionList, "invoice", nil) {
		t.Error("nil resource should skip the policy")
	}
}

func TestHybridGate_CanProfile(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile(1, "viewer", gate.NewPermission("product", gate.ActionView)))
	g := gate.NewHybridGate[uint](resolver)
	g.Register("product", ownerPolicy())

	if !g.CanProfile(context.Background(), 1, gate.ActionView, "product") {
		t.Error("CanProfile should return true for user with permission")
	}
	if g.CanProfile(context.Background(), 1, gate.ActionDelete, "product") {
		t.Error("CanProfile should return false for missing permission")
	}
	if g.CanProfile(context.Background(), 0, gate.ActionView, "product") {
		t.Error("zero user should be denied")
	}
}
