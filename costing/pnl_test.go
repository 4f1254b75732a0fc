package costing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func intPtr(i int) *int { return &i }

func TestComputeOrderPnL_EstimatedOnly(t *testing.T) {
	order := OrderSummary{TotalAmount: dec(t, "1000"), ExchangeRate: dec(t, "1.5"), Status: OrderStatusConfirmed}
	costs := []CostRow{{TotalCostBase: dec(t, "600")}, {TotalCostBase: dec(t, "150")}}

	pnl := ComputeOrderPnL(order, costs, nil)

	if pnl.IsActual {
		t.Fatal("no invoices: isActual must be false")
	}
	if pnl.ActRevenue != nil || pnl.ActProfit != nil || pnl.ActMargin != nil || pnl.RevenueVariance != nil {
		t.Fatalf("no invoices: actual fields must be nil, got %+v", pnl)
	}
	if !pnl.EstRevenue.Equal(dec(t, "1500")) {
		t.Fatalf("estRevenue: expected 1500, got %s", pnl.EstRevenue)
	}
	if !pnl.TotalCost.Equal(dec(t, "750")) {
		t.Fatalf("totalCost: expected 750, got %s", pnl.TotalCost)
	}
	if !pnl.EstProfit.Equal(dec(t, "750")) {
		t.Fatalf("estProfit: expected 750, got %s", pnl.EstProfit)
	}
	if !pnl.EstMargin.Equal(dec(t, "50")) {
		t.Fatalf("estMargin: expected 50, got %s", pnl.EstMargin)
	}
}

func TestComputeOrderPnL_ActualToggle(t *testing.T) {
	order := OrderSummary{TotalAmount: dec(t, "400"), ExchangeRate: dec(t, "2"), Status: OrderStatusShipped}

	pnl := ComputeOrderPnL(order, nil, []InvoiceRow{{Status: InvoiceStatusDraft, TotalAmount: dec(t, "500")}})
	if pnl.IsActual {
		t.Fatal("draft-only invoices must not flip isActual")
	}

	pnl = ComputeOrderPnL(order, nil, []InvoiceRow{{Status: InvoiceStatusSent, TotalAmount: dec(t, "500")}})
	if !pnl.IsActual {
		t.Fatal("one Sent invoice must flip isActual")
	}
	if pnl.ActRevenue == nil || !pnl.ActRevenue.Equal(dec(t, "1000")) {
		t.Fatalf("actRevenue: expected 500 x 2 = 1000, got %v", pnl.ActRevenue)
	}
	if pnl.RevenueVariance == nil || !pnl.RevenueVariance.Equal(dec(t, "200")) {
		t.Fatalf("revenueVariance: expected 1000 - 800 = 200, got %v", pnl.RevenueVariance)
	}
}

func TestComputeOrderPnL_InvoiceStatusFilter(t *testing.T) {
	cases := []struct {
		status InvoiceStatus
		counts bool
	}{
		{InvoiceStatusDraft, false},
		{InvoiceStatusSent, true},
		{InvoiceStatusAcknowledged, true},
		{InvoiceStatusPartiallyPaid, true},
		{InvoiceStatusPaid, true},
		{InvoiceStatusOverdue, false},
		{InvoiceStatusCancelled, false},
	}
	order := OrderSummary{TotalAmount: dec(t, "100"), ExchangeRate: decimal.NewFromInt(1)}
	for _, tc := range cases {
		pnl := ComputeOrderPnL(order, nil, []InvoiceRow{{Status: tc.status, TotalAmount: dec(t, "100")}})
		if pnl.IsActual != tc.counts {
			t.Fatalf("status %s: expected counts=%v, got isActual=%v", tc.status, tc.counts, pnl.IsActual)
		}
	}
}

func TestComputeOrderPnL_PartiallyPaidCountsFullAmount(t *testing.T) {
	// recognition takes the invoice total, not the paid portion
	order := OrderSummary{TotalAmount: dec(t, "900"), ExchangeRate: decimal.NewFromInt(1)}
	pnl := ComputeOrderPnL(order, nil, []InvoiceRow{
		{Status: InvoiceStatusPartiallyPaid, TotalAmount: dec(t, "600")},
		{Status: InvoiceStatusDraft, TotalAmount: dec(t, "300")},
	})
	if pnl.ActRevenue == nil || !pnl.ActRevenue.Equal(dec(t, "600")) {
		t.Fatalf("actRevenue: expected 600 (full invoice amount, draft excluded), got %v", pnl.ActRevenue)
	}
}

func TestComputeOrderPnL_MarginRounding(t *testing.T) {
	order := OrderSummary{TotalAmount: dec(t, "300"), ExchangeRate: decimal.NewFromInt(1)}
	pnl := ComputeOrderPnL(order, []CostRow{{TotalCostBase: dec(t, "200")}}, nil)
	// 100/300 * 100 = 33.333... -> 33.33
	if !pnl.EstMargin.Equal(dec(t, "33.33")) {
		t.Fatalf("estMargin: expected 33.33, got %s", pnl.EstMargin)
	}
}

func TestComputeOrderPnL_ZeroRevenueGuard(t *testing.T) {
	order := OrderSummary{TotalAmount: decimal.Zero, ExchangeRate: decimal.NewFromInt(1)}
	pnl := ComputeOrderPnL(order, []CostRow{{TotalCostBase: dec(t, "50")}}, nil)
	if !pnl.EstMargin.IsZero() {
		t.Fatalf("zero revenue: estMargin must be 0, got %s", pnl.EstMargin)
	}
}

func TestComputeOrderPnL_ZeroExchangeRateFallsBack(t *testing.T) {
	order := OrderSummary{TotalAmount: dec(t, "250"), ExchangeRate: decimal.Zero}
	pnl := ComputeOrderPnL(order, nil, nil)
	if !pnl.EstRevenue.Equal(dec(t, "250")) {
		t.Fatalf("zero rate: expected fallback rate 1 (revenue 250), got %s", pnl.EstRevenue)
	}
}

func TestComputeColorPnL_UnallocatedCosts(t *testing.T) {
	order := OrderSummary{TotalAmount: dec(t, "1000"), ExchangeRate: decimal.NewFromInt(1)}
	lines := []OrderLine{
		{ID: 11, Color: "Navy", Qty: dec(t, "100"), Amount: dec(t, "600")},
		{ID: 12, Color: "Olive", Qty: dec(t, "60"), Amount: dec(t, "400")},
	}
	costs := []CostRow{
		{LineItemId: intPtr(11), TotalCostBase: dec(t, "300")},
		{LineItemId: intPtr(12), TotalCostBase: dec(t, "180")},
		{LineItemId: nil, TotalCostBase: dec(t, "90")},      // untagged
		{LineItemId: intPtr(999), TotalCostBase: dec(t, "10")}, // tag not on this order
	}

	bd := ComputeColorPnL(order, lines, costs)

	if !bd.UnallocatedCost.Equal(dec(t, "100")) {
		t.Fatalf("unallocatedCost: expected 100, got %s", bd.UnallocatedCost)
	}
	if len(bd.Colors) != 2 {
		t.Fatalf("expected 2 color rows, got %d", len(bd.Colors))
	}
	navy := bd.Colors[0]
	if navy.Color != "Navy" || !navy.Cost.Equal(dec(t, "300")) || !navy.Revenue.Equal(dec(t, "600")) {
		t.Fatalf("navy row wrong: %+v", navy)
	}
	if !navy.Profit.Equal(dec(t, "300")) || !navy.Margin.Equal(dec(t, "50")) {
		t.Fatalf("navy profit/margin wrong: %+v", navy)
	}

	// color costs + unallocated add back up to the order-level total
	orderPnl := ComputeOrderPnL(order, costs, nil)
	colorSum := bd.UnallocatedCost
	for _, c := range bd.Colors {
		colorSum = colorSum.Add(c.Cost)
	}
	if !colorSum.Equal(orderPnl.TotalCost) {
		t.Fatalf("color costs %s + unallocated != order total %s", colorSum, orderPnl.TotalCost)
	}
}
