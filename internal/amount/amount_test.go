package amount

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHumanToBaseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"1.25", 6, "1250000"},
		{".5", 6, "500000"},
		{"2.", 0, "2"},
		{"0", 18, "0"},
		{"1.1234567", 6, "1123456"},
		{"0.0000001", 6, "0"},
		{"123456789012345678901234567890.123456789012345678", 18, "123456789012345678901234567890123456789012345678"},
	}
	for _, tc := range cases {
		got, _, err := HumanToBaseUnits(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("HumanToBaseUnits(%q, %d) failed: %v", tc.in, tc.decimals, err)
		}
		if got != tc.want {
			t.Fatalf("HumanToBaseUnits(%q, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestToBaseUnitsMatchesTruncation(t *testing.T) {
	// trunc(amount * 10^decimals) computed independently with big.Rat.
	inputs := []string{"0.1", "0.3", "1.999999999999999999", "42.4242", "7.000001"}
	for _, in := range inputs {
		for _, decimals := range []int{0, 2, 6, 8, 18} {
			got, _, err := HumanToBaseUnits(in, decimals)
			if err != nil {
				t.Fatalf("HumanToBaseUnits(%q) failed: %v", in, err)
			}
			r, _ := new(big.Rat).SetString(in)
			r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)))
			want := new(big.Int).Quo(r.Num(), r.Denom()).String()
			if got != want {
				t.Fatalf("%s @ %d decimals: got %s want %s", in, decimals, got, want)
			}
		}
	}
}

func TestHumanToBaseUnitsValidation(t *testing.T) {
	for _, in := range []string{"", "-1", "abc", "1e18", "1.2.3", " . "} {
		if _, _, err := HumanToBaseUnits(in, 18); err == nil {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
	if _, _, err := HumanToBaseUnits("1", -1); err == nil {
		t.Fatal("expected negative decimals to be rejected")
	}
	if _, _, err := HumanToBaseUnits("1", MaxDecimals+1); err == nil {
		t.Fatal("expected oversized decimals to be rejected")
	}
}

func TestCheckHumanPrecision(t *testing.T) {
	if err := CheckHumanPrecision(decimal.RequireFromString("1.123456789012345678")); err != nil {
		t.Fatalf("18 digits should be accepted: %v", err)
	}
	if err := CheckHumanPrecision(decimal.RequireFromString("1.1234567890123456789")); err == nil {
		t.Fatal("19 digits should be rejected")
	}
}

func TestFormatBaseUnits(t *testing.T) {
	got, err := FormatBaseUnits("1250000", 6)
	if err != nil || got != "1.25" {
		t.Fatalf("unexpected result: %s %v", got, err)
	}
	if got, _ := FormatBaseUnits("0", 6); got != "0" {
		t.Fatalf("unexpected zero format: %s", got)
	}
	if _, err := FormatBaseUnits("1.5", 6); err == nil {
		t.Fatal("expected non-integer base units to be rejected")
	}
}
