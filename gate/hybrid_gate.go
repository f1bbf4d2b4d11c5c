// Package gate decides who may do what. A profile grants "resource:action"
// permissions; a per-resource Policy can then look at the loaded record,
// typically to check its owner.
//
// U is the subject type; the application uses uint user ids.
package gate

import (
	"context"
	"fmt"
)

// HybridGate checks the subject's profile first and, when a record is
// given, the policy registered for its resource.
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register sets the policy of resourceType. Call it during setup only:
// the policy map is read without locking.
func (g *HybridGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// profile returns the subject's profile, ErrUnauthorized for the zero
// subject or ErrNoProfile when none is assigned.
func (g *HybridGate[U]) profile(ctx context.Context, user U) (Profile, error) {
	var zero U
	if user == zero {
		return nil, ErrUnauthorized
	}
	p, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	if p == nil {
		return nil, ErrNoProfile
	}
	return p, nil
}

// Authorize returns nil when allowed. Denials wrap ErrForbidden with the
// permission that failed.
func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	p, err := g.profile(ctx, user)
	if err != nil {
		return err
	}
	perm := NewPermission(resourceType, action)
	if !p.HasPermission(perm) {
		return fmt.Errorf("%w: %s", ErrForbidden, perm)
	}
	if resource == nil {
		return nil
	}
	if policy, ok := g.policies[resourceType]; ok && !policy.Can(ctx, user, action, resource) {
		return fmt.Errorf("%w: %s denied by policy", ErrForbidden, perm)
	}
	return nil
}

func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile skips the policy step. Routes call it before any record is loaded.
func (g *HybridGate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	p, err := g.profile(ctx, user)
	return err == nil && p.HasPermission(NewPermission(resourceType, action))
}
