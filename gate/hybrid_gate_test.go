package gate_test

import (
	"context"
	"testing"

	"github.com/diewo77/go-offers/gate"
)

type ownedOffer struct {
	OwnerID uint
}

// ownerPolicy allows the offer owner only.
var ownerPolicy = gate.PolicyFunc[uint](func(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if o, ok := resource.(*ownedOffer); ok {
		return o.OwnerID == userID
	}
	return false
})

func TestHybridGate_ProfileOnly(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile(1, "firma_staff",
		gate.NewPermission("offer", gate.ActionCreate),
		gate.NewPermission("offer", gate.ActionView),
	))

	g := gate.NewHybridGate[uint](resolver)
	ctx := context.Background()

	if !g.Can(ctx, 1, gate.ActionCreate, "offer", nil) {
		t.Error("user with permission should be allowed")
	}
	if g.Can(ctx, 1, gate.ActionDelete, "offer", nil) {
		t.Error("user without permission should be denied")
	}
	if g.Can(ctx, 2, gate.ActionView, "offer", nil) {
		t.Error("user without profile should be denied")
	}
	if g.Can(ctx, 0, gate.ActionView, "offer", nil) {
		t.Error("zero user should be denied")
	}
}

func TestHybridGate_WithPolicy(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	profile := gate.NewStaticProfile(1, "firma_staff",
		gate.NewPermission("offer", gate.ActionView),
		gate.NewPermission("offer", gate.ActionUpdate),
	)
	resolver.Set(1, profile)
	resolver.Set(2, profile)

	g := gate.NewHybridGate[uint](resolver)
	g.Register("offer", ownerPolicy)

	offer := &ownedOffer{OwnerID: 1}

	if !g.Can(context.Background(), 1, gate.ActionUpdate, "offer", offer) {
		t.Error("owner should be allowed")
	}
	if err := g.Authorize(context.Background(), 2, gate.ActionUpdate, "offer", offer); err != gate.ErrUnauthorized {
		t.Errorf("non-owner should get ErrUnauthorized, got %v", err)
	}
}

func TestHybridGate_CapabilityChecks(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	base := gate.NewStaticProfile(1, "firma_staff", "offer:send", "discount:apply")
	resolver.Set(1, gate.NewOverlayProfile(base, []gate.Permission{"offer:send_high_value"}, []gate.Permission{"discount:apply"}))

	g := gate.NewHybridGate[uint](resolver)
	g.Register("offer", ownerPolicy)
	ctx := context.Background()

	if !g.HasCapability(ctx, 1, "offer:send_high_value") {
		t.Error("granted capability should be present")
	}
	if g.HasCapability(ctx, 1, "discount:apply") {
		t.Error("revoked capability should be absent")
	}
	if !g.HasCapability(ctx, 1, gate.NewPermission("offer", gate.ActionSend)) {
		t.Error("capability checks ignore the registered policy")
	}
	if g.HasCapability(ctx, 0, "offer:send") {
		t.Error("zero user has no capabilities")
	}
}
