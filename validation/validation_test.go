package validation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	Email("email", "not-an-email", v)
	Email("contact", "", v)
	PositiveInt("quantity", 0, v)
	NonNegativeDecimal("price", decimal.RequireFromString("-0.01"), v)
	RangeInt("vat_rate", 120, 0, 100, v)
	OneOf("type", "depot", []string{"branch", "warehouse"}, v)
	MaxLen("title", "ab", 1, v)
	MinLen("password", "abc", 8, v)

	want := Violations{
		"name":     "required",
		"email":    "invalid_email",
		"quantity": "must_be_positive",
		"price":    "must_not_be_negative",
		"vat_rate": "out_of_range",
		"type":     "invalid_choice",
		"title":    "too_long",
		"password": "too_short",
	}
	if len(v) != len(want) {
		t.Fatalf("violations = %v", v)
	}
	for field, msg := range want {
		if v[field] != msg {
			t.Errorf("%s = %q, want %q", field, v[field], msg)
		}
	}
}

func TestFirstViolationWins(t *testing.T) {
	v := Violations{}
	Required("email", "", v)
	Email("email", "", v)
	MaxLen("email", "", 0, v)
	if v["email"] != "required" {
		t.Errorf("email = %q", v["email"])
	}
	if (Violations{}).Empty() != true {
		t.Error("empty violations should report Empty")
	}
}
