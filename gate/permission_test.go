package gate_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/diewo77/go-offers/gate"
)

func TestPermission_NewPermission(t *testing.T) {
	perm := gate.NewPermission("offer", gate.ActionApprove)
	if perm != "offer:approve" {
		t.Errorf("expected 'offer:approve', got '%s'", perm)
	}
}

func TestPermission_Parse(t *testing.T) {
	res, act := gate.Permission("discount:apply_high").Parse()
	if res != "discount" || act != "apply_high" {
		t.Errorf("unexpected parse result '%s' '%s'", res, act)
	}

	res, act = gate.Permission("invalid").Parse()
	if res != "" || act != "" {
		t.Errorf("expected empty strings, got '%s' and '%s'", res, act)
	}
}

func TestParsePermission(t *testing.T) {
	p, err := gate.ParsePermission("  offer:send_high_value ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != "offer:send_high_value" {
		t.Errorf("got '%s'", p)
	}

	for _, bad := range []string{"", "offer", ":send", "offer:", "a:b:c"} {
		if _, err := gate.ParsePermission(bad); !errors.Is(err, gate.ErrMalformedPermission) {
			t.Errorf("%q: expected ErrMalformedPermission, got %v", bad, err)
		}
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		held, requested gate.Permission
		want            bool
	}{
		{"offer:approve", "offer:approve", true},
		{"offer:approve", "offer:approve_high_value", false},
		{"offer:approve", "product:approve", false},
		{gate.PermissionSuperAdmin, "invoice:approve_revision", true},
		{"offer:*", "offer:delete_all", true},
		{"offer:*", "discount:apply", false},
	}
	for _, tt := range tests {
		if got := tt.held.Matches(tt.requested); got != tt.want {
			t.Errorf("%s matches %s: got %v, want %v", tt.held, tt.requested, got, tt.want)
		}
	}
}

func TestSet(t *testing.T) {
	s := gate.NewSet("offer:create", "product:*", "offer:create")
	if len(s) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(s))
	}
	if !s.Covers("product:update_price") {
		t.Error("wildcard should cover product:update_price")
	}
	if s.Covers("offer:send") {
		t.Error("offer:send is not in the set")
	}

	list := s.List()
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	if list[0] != "offer:create" || list[1] != "product:*" {
		t.Errorf("unexpected list %v", list)
	}
}
