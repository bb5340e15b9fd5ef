package policy_test

import (
	"testing"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/internal/policy"
)

func TestCapabilitiesFollowGateActions(t *testing.T) {
	tests := []struct {
		perm     gate.Permission
		want     string
		resource string
		action   gate.Action
	}{
		{policy.CapOfferSend, "offer:send", policy.ResourceOffer, gate.ActionSend},
		{policy.CapOfferApprove, "offer:approve", policy.ResourceOffer, gate.ActionApprove},
		{policy.CapOfferReject, "offer:reject", policy.ResourceOffer, gate.ActionReject},
		{policy.CapOfferRevise, "offer:revise", policy.ResourceOffer, gate.ActionRevise},
		{policy.CapDiscountApply, "discount:apply", "discount", gate.ActionApply},
		{policy.CapProductImport, "product:import", policy.ResourceProduct, gate.ActionImport},
		{policy.CapReportExport, "report:export", "report", gate.ActionExport},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if string(tt.perm) != tt.want {
				t.Errorf("permission = %q, want %q", tt.perm, tt.want)
			}
			resource, action := tt.perm.Parse()
			if resource != tt.resource || action != tt.action {
				t.Errorf("Parse() = %q, %q", resource, action)
			}
			if tt.perm != gate.NewPermission(tt.resource, tt.action) {
				t.Errorf("NewPermission(%q, %q) differs", tt.resource, tt.action)
			}
		})
	}

	seen := make(map[gate.Permission]bool, len(policy.Catalogue))
	for _, c := range policy.Catalogue {
		if seen[c.Perm] {
			t.Errorf("duplicate capability %s", c.Perm)
		}
		seen[c.Perm] = true
	}
}
