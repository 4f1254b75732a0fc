package costing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestResolvePeriodWindow(t *testing.T) {
	ref := time.Date(2024, time.August, 14, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		period    Period
		wantFrom  time.Time
		wantTo    time.Time
	}{
		{PeriodMonthly, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodQuarterly, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodAnnual, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		from, to := ResolvePeriodWindow(tc.period, ref, nil, nil)
		if !from.Equal(tc.wantFrom) || !to.Equal(tc.wantTo) {
			t.Fatalf("%s: expected [%s, %s), got [%s, %s)", tc.period, tc.wantFrom, tc.wantTo, from, to)
		}
	}
}

func TestResolvePeriodWindow_ExplicitOverride(t *testing.T) {
	ref := time.Date(2024, time.August, 14, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.July, 20, 0, 0, 0, 0, time.UTC)

	from, to := ResolvePeriodWindow(PeriodMonthly, ref, &start, &end)
	if !from.Equal(start) || !to.Equal(end) {
		t.Fatalf("explicit override ignored: got [%s, %s)", from, to)
	}

	// one-sided override keeps the computed boundary on the other side
	from, to = ResolvePeriodWindow(PeriodMonthly, ref, &start, nil)
	if !from.Equal(start) || !to.Equal(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start-only override: got [%s, %s)", from, to)
	}
}

func TestComputePeriodPnL_Additivity(t *testing.T) {
	actA := dec(t, "1200")
	profitA := dec(t, "500")
	rows := []OrderRollup{
		{
			OrderId: 1, OrderNumber: "PO-001", Status: OrderStatusShipped,
			PnL: OrderPnL{
				EstRevenue: dec(t, "1000"), TotalCost: dec(t, "700"), EstProfit: dec(t, "300"), EstMargin: dec(t, "30"),
				IsActual: true, ActRevenue: &actA, ActProfit: &profitA,
			},
		},
		{
			OrderId: 2, OrderNumber: "PO-002", Status: OrderStatusConfirmed,
			PnL: OrderPnL{EstRevenue: dec(t, "800"), TotalCost: dec(t, "500"), EstProfit: dec(t, "300"), EstMargin: dec(t, "37.5")},
		},
		{
			OrderId: 3, OrderNumber: "PO-003", Status: OrderStatusCancelled,
			PnL: OrderPnL{EstRevenue: dec(t, "9999"), TotalCost: dec(t, "9999")},
		},
	}

	got := ComputePeriodPnL(rows)

	if len(got.Orders) != 2 {
		t.Fatalf("cancelled order must be excluded; got %d orders", len(got.Orders))
	}
	// totalEstRevenue == sum of estRevenue over included orders
	if !got.TotalEstRevenue.Equal(dec(t, "1800")) {
		t.Fatalf("totalEstRevenue: expected 1800, got %s", got.TotalEstRevenue)
	}
	if !got.TotalCost.Equal(dec(t, "1200")) {
		t.Fatalf("totalCost: expected 1200, got %s", got.TotalCost)
	}
	if !got.TotalEstProfit.Equal(dec(t, "600")) {
		t.Fatalf("totalEstProfit: expected 600, got %s", got.TotalEstProfit)
	}
	// actual totals only cover the invoiced order
	if !got.TotalActRevenue.Equal(dec(t, "1200")) {
		t.Fatalf("totalActRevenue: expected 1200, got %s", got.TotalActRevenue)
	}
	if !got.TotalActProfit.Equal(dec(t, "500")) {
		t.Fatalf("totalActProfit: expected 500, got %s", got.TotalActProfit)
	}
	// period margins use the same formula and rounding as order level
	if !got.EstMargin.Equal(dec(t, "33.33")) {
		t.Fatalf("estMargin: expected 33.33, got %s", got.EstMargin)
	}
	if !got.ActMargin.Equal(dec(t, "41.67")) {
		t.Fatalf("actMargin: expected 41.67, got %s", got.ActMargin)
	}
}

func TestComputePeriodPnL_Empty(t *testing.T) {
	got := ComputePeriodPnL(nil)
	if len(got.Orders) != 0 || !got.TotalEstRevenue.IsZero() || !got.EstMargin.IsZero() {
		t.Fatalf("empty input: expected zero summary, got %+v", got)
	}
	if !got.TotalEstRevenue.Equal(decimal.Zero) {
		t.Fatalf("expected decimal zero totals")
	}
}
