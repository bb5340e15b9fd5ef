package gate

import "context"

// HybridGate answers capability questions from the user's effective profile
// and, for a concrete resource, defers to the policy registered for its type.
// The zero user never passes.
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// NewHybridGate creates a hybrid gate with the given profile resolver.
func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register adds a resource-specific policy.
func (g *HybridGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

func (g *HybridGate[U]) profile(ctx context.Context, user U) Profile {
	var zero U
	if user == zero {
		return nil
	}
	p, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return nil
	}
	return p
}

// Authorize returns ErrUnauthorized unless user may perform action on resource.
// A nil resource skips the policy check.
func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	p := g.profile(ctx, user)
	if p == nil || !p.HasPermission(NewPermission(resourceType, action)) {
		return ErrUnauthorized
	}
	if resource == nil {
		return nil
	}
	if policy, ok := g.policies[resourceType]; ok && !policy.Can(ctx, user, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

// Can reports Authorize as a bool.
func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// HasCapability reports whether the user's effective profile covers perm.
// Capabilities such as "offer:approve_high_value" are not tied to a resource
// instance, so no policy is consulted.
func (g *HybridGate[U]) HasCapability(ctx context.Context, user U, perm Permission) bool {
	p := g.profile(ctx, user)
	return p != nil && p.HasPermission(perm)
}
