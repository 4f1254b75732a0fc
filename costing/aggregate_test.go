package costing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAggregate_MarginInversion(t *testing.T) {
	// totalCostQuoted=100, comm=10%, margin=20%:
	// costWithComm = 110; sellingPrice = 110 / 0.8 = 137.5
	in := SheetInput{
		LaborDetails:        []*RawLine{{Name: "CMT", UnitPriceLocal: decPtr(t, "100"), Consumption: decPtr(t, "1")}},
		AgentCommPercent:    dec(t, "10"),
		TargetMarginPercent: dec(t, "20"),
		ExchangeRate:        decimal.NewFromInt(1),
	}
	got := Aggregate(in)

	if !got.TotalCostQuoted.Equal(dec(t, "100")) {
		t.Fatalf("totalCostQuoted: expected 100, got %s", got.TotalCostQuoted)
	}
	if !got.AgentCommAmount.Equal(dec(t, "10")) {
		t.Fatalf("agentCommAmount: expected 10, got %s", got.AgentCommAmount)
	}
	if !got.SellingPrice.Equal(dec(t, "137.5")) {
		t.Fatalf("sellingPrice: expected 137.5, got %s", got.SellingPrice)
	}

	// margin-on-revenue, not markup-on-cost:
	// (price - costWithComm) / price * 100 == 20
	costWithComm := dec(t, "110")
	margin := got.SellingPrice.Sub(costWithComm).Div(got.SellingPrice).Mul(decimal.NewFromInt(100))
	assertClose(t, "realized margin", margin, dec(t, "20"))
}

func TestAggregate_MarginClamp(t *testing.T) {
	for _, marginPct := range []string{"100", "150"} {
		in := SheetInput{
			FabricDetails:       []*RawLine{{UnitPriceLocal: decPtr(t, "80"), Consumption: decPtr(t, "1")}},
			AgentCommPercent:    dec(t, "5"),
			TargetMarginPercent: dec(t, marginPct),
			ExchangeRate:        decimal.NewFromInt(1),
		}
		got := Aggregate(in)
		costWithComm := dec(t, "84") // 80 * 1.05
		if !got.SellingPrice.Equal(costWithComm) {
			t.Fatalf("margin=%s%%: expected clamp to %s, got %s", marginPct, costWithComm, got.SellingPrice)
		}
	}
}

func TestAggregate_FabricOnlySheet(t *testing.T) {
	// fabric: 5/m * 3m = 15 local; rate 7 -> 15/7 quoted; zero margin and
	// commission mean selling price equals cost
	in := SheetInput{
		FabricDetails: []*RawLine{{UnitPricePerMeter: decPtr(t, "5"), Consumption: decPtr(t, "3"), VatRefund: boolPtr(false)}},
		ExchangeRate:  dec(t, "7"),
	}
	got := Aggregate(in)

	want := dec(t, "2.142857")
	assertClose(t, "fabric segment", got.Segment(CategoryFabric).CostQuoted, want)
	assertClose(t, "totalCostQuoted", got.TotalCostQuoted, want)
	assertClose(t, "sellingPrice", got.SellingPrice, want)
	if !got.TotalCostLocal.Equal(dec(t, "15")) {
		t.Fatalf("totalCostLocal: expected 15, got %s", got.TotalCostLocal)
	}
}

func TestAggregate_SumsAcrossCategories(t *testing.T) {
	in := SheetInput{
		FabricDetails:  []*RawLine{{UnitPriceLocal: decPtr(t, "20"), Consumption: decPtr(t, "2")}},
		TrimDetails:    []*RawLine{{UnitPriceLocal: decPtr(t, "3"), Consumption: decPtr(t, "10")}},
		LaborDetails:   []*RawLine{{UnitPriceLocal: decPtr(t, "25"), Consumption: decPtr(t, "1")}},
		PackingDetails: []*RawLine{{UnitPriceLocal: decPtr(t, "1.5"), Consumption: decPtr(t, "2")}},
		FreightDetails: []*RawLine{{UnitPriceLocal: decPtr(t, "4"), Consumption: decPtr(t, "1")}},
		ExchangeRate:   decimal.NewFromInt(1),
	}
	got := Aggregate(in)

	// 40 + 30 + 25 + 3 + 4
	if !got.TotalCostQuoted.Equal(dec(t, "102")) {
		t.Fatalf("totalCostQuoted: expected 102, got %s", got.TotalCostQuoted)
	}

	sum := decimal.Zero
	for _, seg := range got.Segments {
		sum = sum.Add(seg.CostQuoted)
	}
	if !sum.Equal(got.TotalCostQuoted) {
		t.Fatalf("segment sum %s != total %s", sum, got.TotalCostQuoted)
	}

	if len(got.Segments) != len(Categories) {
		t.Fatalf("expected %d segments, got %d", len(Categories), len(got.Segments))
	}
	for i, seg := range got.Segments {
		if seg.Category != Categories[i] {
			t.Fatalf("segment %d out of order: %s", i, seg.Category)
		}
	}
	// empty categories still appear with zero subtotals
	if duty := got.Segment(CategoryDuty); !duty.CostQuoted.IsZero() || len(duty.Lines) != 0 {
		t.Fatalf("duty segment should be empty, got %+v", duty)
	}
}

func TestAggregate_RecomputesDerivedFields(t *testing.T) {
	// derived fields come out of the inputs alone; running twice on the same
	// input yields identical sheets
	in := SheetInput{
		TrimDetails:         []*RawLine{{UnitPriceLocal: decPtr(t, "2.2"), Consumption: decPtr(t, "8"), VatRefund: boolPtr(true), VatPercent: decPtr(t, "13")}},
		AgentCommPercent:    dec(t, "3"),
		TargetMarginPercent: dec(t, "15"),
		ExchangeRate:        dec(t, "6.35"),
	}
	a := Aggregate(in)
	b := Aggregate(in)
	if !a.TotalCostQuoted.Equal(b.TotalCostQuoted) || !a.SellingPrice.Equal(b.SellingPrice) {
		t.Fatalf("aggregate not deterministic: %s/%s vs %s/%s",
			a.TotalCostQuoted, a.SellingPrice, b.TotalCostQuoted, b.SellingPrice)
	}
}
