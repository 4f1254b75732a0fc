package models

import (
	"testing"

	"bitbucket.org/stitchfocus/garment_backend/costing"
	"github.com/shopspring/decimal"
)

func sheetDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func sheetDecPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := sheetDec(t, s)
	return &d
}

func demoSheetInput(t *testing.T) NewCostingSheet {
	t.Helper()
	return NewCostingSheet{
		DevelopmentRequestId: 7,
		SheetInput: costing.SheetInput{
			FabricDetails: []*costing.RawLine{
				{Name: "shell", UnitPriceLocal: sheetDecPtr(t, "20"), Consumption: sheetDecPtr(t, "1.5")},
			},
			LaborDetails: []*costing.RawLine{
				{Name: "CMT", UnitPriceLocal: sheetDecPtr(t, "10"), Consumption: sheetDecPtr(t, "1")},
			},
			AgentCommPercent:    sheetDec(t, "0"),
			TargetMarginPercent: sheetDec(t, "20"),
			ExchangeRate:        sheetDec(t, "2"),
			LocalCurrency:       "CNY",
			QuoteCurrency:       "USD",
			PricingBasis:        "FOB",
		},
	}
}

func TestBuildSheetMapsSegmentTotals(t *testing.T) {
	input := demoSheetInput(t)
	result := costing.Aggregate(input.SheetInput)
	sheet := input.buildSheet(result)

	// 20*1.5 = 30 local fabric, 10 labor; quoted at rate 2 -> 15 and 5.
	if !sheet.FabricCost.Equal(sheetDec(t, "15")) {
		t.Fatalf("FabricCost = %s, want 15", sheet.FabricCost)
	}
	if !sheet.LaborCost.Equal(sheetDec(t, "5")) {
		t.Fatalf("LaborCost = %s, want 5", sheet.LaborCost)
	}
	if !sheet.TrimCost.IsZero() || !sheet.DutyCost.IsZero() {
		t.Fatalf("empty categories must map to zero, got trim=%s duty=%s", sheet.TrimCost, sheet.DutyCost)
	}
	if !sheet.TotalCostLocal.Equal(sheetDec(t, "40")) {
		t.Fatalf("TotalCostLocal = %s, want 40", sheet.TotalCostLocal)
	}
	if !sheet.TotalCostQuoted.Equal(sheetDec(t, "20")) {
		t.Fatalf("TotalCostQuoted = %s, want 20", sheet.TotalCostQuoted)
	}
	// 20 / (1 - 0.20) = 25.
	if !sheet.SellingPrice.Equal(sheetDec(t, "25")) {
		t.Fatalf("SellingPrice = %s, want 25", sheet.SellingPrice)
	}
	if sheet.DevelopmentRequestId != 7 {
		t.Fatalf("DevelopmentRequestId = %d, want 7", sheet.DevelopmentRequestId)
	}
}

func TestBuildSheetDefaultsCurrencies(t *testing.T) {
	input := demoSheetInput(t)
	input.LocalCurrency = ""
	input.QuoteCurrency = ""
	sheet := input.buildSheet(costing.Aggregate(input.SheetInput))
	if sheet.LocalCurrency != "CNY" || sheet.QuoteCurrency != "USD" {
		t.Fatalf("currency defaults = %s/%s, want CNY/USD", sheet.LocalCurrency, sheet.QuoteCurrency)
	}
}

func TestBuildSheetLinesKeepsCategoryOrder(t *testing.T) {
	input := demoSheetInput(t)
	input.TrimDetails = []*costing.RawLine{
		{Name: "zip", UnitPriceLocal: sheetDecPtr(t, "3"), Consumption: sheetDecPtr(t, "1")},
	}
	rows := buildSheetLines(42, costing.Aggregate(input.SheetInput))

	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	wantCategories := []costing.Category{costing.CategoryFabric, costing.CategoryTrim, costing.CategoryLabor}
	for i, row := range rows {
		if row.Category != wantCategories[i] {
			t.Fatalf("rows[%d].Category = %s, want %s", i, row.Category, wantCategories[i])
		}
		if row.CostingSheetId != 42 {
			t.Fatalf("rows[%d].CostingSheetId = %d, want 42", i, row.CostingSheetId)
		}
		if row.SortOrder != i {
			t.Fatalf("rows[%d].SortOrder = %d, want %d", i, row.SortOrder, i)
		}
	}
	if !rows[0].CostLocal.Equal(sheetDec(t, "30")) {
		t.Fatalf("fabric CostLocal = %s, want 30", rows[0].CostLocal)
	}
	if !rows[0].CostQuoted.Equal(sheetDec(t, "15")) {
		t.Fatalf("fabric CostQuoted = %s, want 15", rows[0].CostQuoted)
	}
}

func TestPurchaseOrderBuildDetailsDerivesAmounts(t *testing.T) {
	input := NewPurchaseOrder{
		Details: []NewPurchaseOrderDetail{
			{Color: "Graphite", Qty: 1200, UnitPrice: sheetDec(t, "24.5")},
			{Color: "Moss", Qty: 800, UnitPrice: sheetDec(t, "24.5")},
		},
	}
	details, totalQty, totalAmount := input.buildDetails(9)

	if totalQty != 2000 {
		t.Fatalf("totalQty = %d, want 2000", totalQty)
	}
	if !totalAmount.Equal(sheetDec(t, "49000")) {
		t.Fatalf("totalAmount = %s, want 49000", totalAmount)
	}
	if !details[0].Amount.Equal(sheetDec(t, "29400")) {
		t.Fatalf("graphite amount = %s, want 29400", details[0].Amount)
	}
	for i, d := range details {
		if d.PurchaseOrderId != 9 {
			t.Fatalf("details[%d].PurchaseOrderId = %d, want 9", i, d.PurchaseOrderId)
		}
	}
}
