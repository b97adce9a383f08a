package handler

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRequestValidatorUsesJSONNames(t *testing.T) {
	rv := NewRequestValidator()
	err := rv.Validate(&registerReq{Email: "nope", Password: "short"})
	details, first, ok := fieldErrors(err)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if details["email"] != "enter a valid email address" || first != details["email"] {
		t.Fatalf("email detail: %v (first %q)", details, first)
	}
	if details["password"] != "ensure this field has at least 8 characters" {
		t.Fatalf("password detail: %v", details)
	}
}

func TestRequestValidatorComparesDecimals(t *testing.T) {
	rv := NewRequestValidator()
	neg := decimal.RequireFromString("-0.01")
	big := decimal.RequireFromString("100000000.00")
	top := decimal.RequireFromString("99999999.99")
	for _, tc := range []struct {
		price decimal.Decimal
		valid bool
	}{{neg, false}, {big, false}, {top, true}, {decimal.Zero, true}} {
		p := tc.price
		err := rv.Validate(&listingReq{PricePerNight: &p})
		if (err == nil) != tc.valid {
			t.Fatalf("price %s: err = %v", p, err)
		}
	}
}

func TestRequestValidatorSkipsAbsentPatchFields(t *testing.T) {
	if err := NewRequestValidator().Validate(&listingReq{}); err != nil {
		t.Fatalf("empty patch rejected: %v", err)
	}
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	if _, _, ok := fieldErrors(errors.New("boom")); ok {
		t.Fatal("plain error treated as validation failure")
	}
}
