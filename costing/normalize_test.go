package costing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func boolPtr(b bool) *bool { return &b }

func assertClose(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	tolerance := dec(t, "0.000001")
	if got.Sub(want).Abs().GreaterThan(tolerance) {
		t.Fatalf("%s: expected %s, got %s", name, want.String(), got.String())
	}
}

func TestNormalizeLines_EmptyAndNilInput(t *testing.T) {
	if got := NormalizeLines(nil, decimal.NewFromInt(1)); len(got) != 0 {
		t.Fatalf("nil input: expected empty result, got %d lines", len(got))
	}
	if got := NormalizeLines([]*RawLine{}, decimal.NewFromInt(1)); len(got) != 0 {
		t.Fatalf("empty input: expected empty result, got %d lines", len(got))
	}
	// nil entries are skipped, not errors
	got := NormalizeLines([]*RawLine{nil, {Name: "zip"}, nil}, decimal.NewFromInt(1))
	if len(got) != 1 || got[0].Name != "zip" {
		t.Fatalf("expected one surviving line, got %+v", got)
	}
}

func TestNormalizeLines_Deterministic(t *testing.T) {
	raw := []*RawLine{
		{Name: "shell fabric", UnitPriceLocal: decPtr(t, "12.5"), Consumption: decPtr(t, "1.8"), VatRefund: boolPtr(true), VatPercent: decPtr(t, "13")},
		{Name: "lining", UnitPricePerMeter: decPtr(t, "4.2"), Consumption: decPtr(t, "1.1")},
	}
	first := NormalizeLines(raw, dec(t, "6.9"))
	second := NormalizeLines(raw, dec(t, "6.9"))
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].CostLocal.Equal(second[i].CostLocal) || !first[i].CostQuoted.Equal(second[i].CostQuoted) {
			t.Fatalf("line %d not deterministic: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNormalizeLines_VatRefund(t *testing.T) {
	raw := []*RawLine{{
		UnitPriceLocal: decPtr(t, "100"),
		Consumption:    decPtr(t, "2"),
		VatRefund:      boolPtr(true),
		VatPercent:     decPtr(t, "10"),
	}}
	got := NormalizeLines(raw, decimal.NewFromInt(1))
	// 200 / 1.10
	assertClose(t, "costLocal with refund", got[0].CostLocal, dec(t, "181.818181818182"))

	raw[0].VatRefund = boolPtr(false)
	got = NormalizeLines(raw, decimal.NewFromInt(1))
	if !got[0].CostLocal.Equal(dec(t, "200")) {
		t.Fatalf("costLocal without refund: expected 200, got %s", got[0].CostLocal)
	}
}

func TestNormalizeLines_CurrencyRoundTrip(t *testing.T) {
	raw := []*RawLine{{UnitPriceLocal: decPtr(t, "37.25"), Consumption: decPtr(t, "3")}}
	got := NormalizeLines(raw, decimal.NewFromInt(1))
	if !got[0].CostQuoted.Equal(got[0].CostLocal) {
		t.Fatalf("rate=1: costQuoted %s != costLocal %s", got[0].CostQuoted, got[0].CostLocal)
	}
}

func TestNormalizeLines_ZeroRateFallsBackToOne(t *testing.T) {
	cases := []struct {
		name        string
		lineRate    *decimal.Decimal
		defaultRate decimal.Decimal
	}{
		{"zero default, no line rate", nil, decimal.Zero},
		{"zero line rate", decPtr(t, "0"), dec(t, "7")},
		{"negative line rate", decPtr(t, "-3"), dec(t, "7")},
	}
	for _, tc := range cases {
		raw := []*RawLine{{UnitPriceLocal: decPtr(t, "50"), Consumption: decPtr(t, "2"), ExchangeRate: tc.lineRate}}
		got := NormalizeLines(raw, tc.defaultRate)
		if !got[0].ExchangeRate.Equal(FallbackExchangeRate) {
			t.Fatalf("%s: expected fallback rate 1, got %s", tc.name, got[0].ExchangeRate)
		}
		if !got[0].CostQuoted.Equal(dec(t, "100")) {
			t.Fatalf("%s: expected costQuoted 100, got %s", tc.name, got[0].CostQuoted)
		}
	}
}

func TestNormalizeLines_UnitPricePrecedence(t *testing.T) {
	// unitPriceLocal wins over unitPricePerMeter when both are set
	raw := []*RawLine{{
		UnitPriceLocal:    decPtr(t, "10"),
		UnitPricePerMeter: decPtr(t, "99"),
		Consumption:       decPtr(t, "1"),
	}}
	got := NormalizeLines(raw, decimal.NewFromInt(1))
	if !got[0].UnitPrice.Equal(dec(t, "10")) {
		t.Fatalf("expected unitPriceLocal to win, got %s", got[0].UnitPrice)
	}

	raw = []*RawLine{{UnitPricePerMeter: decPtr(t, "99"), Consumption: decPtr(t, "1")}}
	got = NormalizeLines(raw, decimal.NewFromInt(1))
	if !got[0].UnitPrice.Equal(dec(t, "99")) {
		t.Fatalf("expected unitPricePerMeter fallback, got %s", got[0].UnitPrice)
	}
}

func TestNormalizeLines_NegativeInputsPropagate(t *testing.T) {
	// validation is the caller's job; negative inputs flow through as
	// negative costs
	raw := []*RawLine{{UnitPriceLocal: decPtr(t, "-5"), Consumption: decPtr(t, "2")}}
	got := NormalizeLines(raw, decimal.NewFromInt(1))
	if !got[0].CostLocal.Equal(dec(t, "-10")) {
		t.Fatalf("expected -10, got %s", got[0].CostLocal)
	}
}

func TestNormalizeLines_LineRateOverridesSheetDefault(t *testing.T) {
	raw := []*RawLine{{
		UnitPriceLocal: decPtr(t, "70"),
		Consumption:    decPtr(t, "1"),
		ExchangeRate:   decPtr(t, "7"),
	}}
	got := NormalizeLines(raw, dec(t, "6"))
	if !got[0].CostQuoted.Equal(dec(t, "10")) {
		t.Fatalf("expected line-level rate 7 to apply, got costQuoted %s", got[0].CostQuoted)
	}
}
