// Package gate is a small capability library for the offer portal.
//
// A capability is a Permission string in "resource:action" form ("offer:approve",
// "discount:apply_high"). Users get capabilities from a Profile; an OverlayProfile
// layers per-user grants and revocations on top of the profile, which is how a
// manager tailors what each team member may do. HybridGate combines capability
// checks with resource policies (ownership, team visibility).
//
// The package knows nothing about the domain models and uses generics for the
// subject type: HybridGate[uint] for user ids, HybridGate[*Claims] for tokens.
package gate
