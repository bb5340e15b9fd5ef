package models

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/diewo77/go-offers/internal/pricing"
)

func uintPtr(v uint) *uint { return &v }

func TestOffer_GetUserID(t *testing.T) {
	offer := &Offer{UserID: 42}
	if got := offer.GetUserID(); got != 42 {
		t.Errorf("GetUserID() = %d, want 42", got)
	}
}

func TestProduct_NetPrice(t *testing.T) {
	tests := []struct {
		name  string
		price string
		rate  int
		want  string
	}{
		{"10% VAT", "110.00", 10, "100.00"},
		{"8% VAT rounds half-up", "100.00", 8, "92.59"},
		{"0% VAT", "45.50", 0, "45.50"},
		{"20% VAT", "59.99", 20, "49.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{Price: decimal.RequireFromString(tt.price), VATRate: tt.rate}
			if got := p.NetPrice().StringFixed(2); got != tt.want {
				t.Errorf("NetPrice() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOffer_State(t *testing.T) {
	tests := []struct {
		name    string
		offer   Offer
		mutable bool
		waiting bool
	}{
		{"draft", Offer{Status: OfferDraft}, true, false},
		{"pending draft", Offer{Status: OfferDraft, ManagerApprovalPending: true}, false, true},
		{"sent", Offer{Status: OfferSent}, false, false},
		{"approved", Offer{Status: OfferApproved}, false, false},
		{"revised", Offer{Status: OfferRevised}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.offer.IsMutable(); got != tt.mutable {
				t.Errorf("IsMutable() = %v, want %v", got, tt.mutable)
			}
			if got := tt.offer.AwaitingManager(); got != tt.waiting {
				t.Errorf("AwaitingManager() = %v, want %v", got, tt.waiting)
			}
		})
	}
}

func TestOffer_RootIDAndLabel(t *testing.T) {
	root := &Offer{ID: 5, RevisionNumber: 1}
	if root.RootID() != 5 {
		t.Errorf("RootID() = %d, want 5", root.RootID())
	}
	if root.Label() != "Offer #5" {
		t.Errorf("Label() = %q", root.Label())
	}

	rev := &Offer{ID: 9, OriginalOfferID: uintPtr(5), RevisionNumber: 3}
	if rev.RootID() != 5 {
		t.Errorf("RootID() = %d, want 5", rev.RootID())
	}
	if rev.Label() != "Offer #9 (Rev.3)" {
		t.Errorf("Label() = %q", rev.Label())
	}
}

func TestOffer_Totals(t *testing.T) {
	offer := &Offer{
		OverallDiscountType:  pricing.DiscountPercent,
		OverallDiscountValue: decimal.NewFromInt(10),
		Items: []OfferItem{
			{Quantity: 2, UnitPrice: decimal.NewFromInt(100), VATRate: 10, DiscountType: pricing.DiscountPercent, DiscountValue: decimal.NewFromInt(10)},
			{Quantity: 2, UnitPrice: decimal.NewFromInt(60), VATRate: 10, DiscountType: pricing.DiscountNone},
		},
	}

	tot := offer.Totals()
	if got := tot.FinalTotal.StringFixed(2); got != "297.00" {
		t.Errorf("FinalTotal = %s, want 297.00", got)
	}
	if got := tot.ItemsSubtotalGross.StringFixed(2); got != "352.00" {
		t.Errorf("ItemsSubtotalGross = %s, want 352.00", got)
	}
	if got := offer.Items[0].Totals().TotalPrice.StringFixed(2); got != "198.00" {
		t.Errorf("item TotalPrice = %s, want 198.00", got)
	}
}

func TestOffer_InvoiceComplete(t *testing.T) {
	o := &Offer{InvoiceNumber: "FT-1"}
	if o.InvoiceComplete() {
		t.Error("invoice without dates should not be complete")
	}
}

func TestUser_Manages(t *testing.T) {
	manager := &User{ID: 1, IsManager: true}
	member := &User{ID: 2, ManagerID: uintPtr(1)}
	other := &User{ID: 3, ManagerID: uintPtr(7)}

	if !manager.Manages(member) {
		t.Error("manager should manage member")
	}
	if manager.Manages(other) {
		t.Error("manager should not manage another team")
	}
	if (&User{ID: 1}).Manages(member) {
		t.Error("non-manager manages nobody")
	}
}

func TestUser_DisplayNameAndLogin(t *testing.T) {
	u := &User{Email: "a@b.c"}
	if u.DisplayName() != "a@b.c" {
		t.Errorf("DisplayName() = %q", u.DisplayName())
	}
	u.Name = "Ayse"
	u.OrganizationName = "Merkez Eczanesi"
	if u.DisplayName() != "Merkez Eczanesi" {
		t.Errorf("DisplayName() = %q", u.DisplayName())
	}
	if u.CanLogin() {
		t.Error("unapproved user should not log in")
	}
	u.IsApproved, u.IsActive = true, true
	if !u.CanLogin() {
		t.Error("approved active user should log in")
	}
}

func TestAddress_FullAddress(t *testing.T) {
	tests := []struct {
		name string
		addr Address
		want string
	}{
		{"full", Address{Line: "Ataturk Cd. 12", District: "Kadikoy", City: "Istanbul", PostalCode: "34710"}, "Ataturk Cd. 12, Kadikoy, 34710 Istanbul"},
		{"no postal code", Address{Line: "Cumhuriyet Sk. 3", District: "Cankaya", City: "Ankara"}, "Cumhuriyet Sk. 3, Cankaya, Ankara"},
		{"line only", Address{Line: "Depo"}, "Depo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.addr.FullAddress(); got != tt.want {
				t.Errorf("FullAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoleAndAddressTypeValid(t *testing.T) {
	if !RoleFirma.Valid() || !RoleEczane.Valid() || Role("admin").Valid() {
		t.Error("unexpected role validity")
	}
	if !AddressWarehouse.Valid() || AddressType("home").Valid() {
		t.Error("unexpected address type validity")
	}
}
