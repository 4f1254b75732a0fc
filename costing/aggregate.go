package costing

import (
	"github.com/shopspring/decimal"
)

// Category identifies one of the seven cost segments of a costing sheet.
type Category string

const (
	CategoryFabric  Category = "fabric"
	CategoryTrim    Category = "trim"
	CategoryLabor   Category = "labor"
	CategoryPacking Category = "packing"
	CategoryMisc    Category = "misc"
	CategoryFreight Category = "freight"
	CategoryDuty    Category = "duty"
)

// Categories is the canonical segment order of a costing sheet.
var Categories = []Category{
	CategoryFabric,
	CategoryTrim,
	CategoryLabor,
	CategoryPacking,
	CategoryMisc,
	CategoryFreight,
	CategoryDuty,
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryFabric, CategoryTrim, CategoryLabor, CategoryPacking,
		CategoryMisc, CategoryFreight, CategoryDuty:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// SheetInput is everything needed to compute a costing sheet. The seven
// detail arrays hold raw lines per category; ExchangeRate is the sheet
// default (local currency -> quote currency).
type SheetInput struct {
	FabricDetails  []*RawLine `json:"fabric_details"`
	TrimDetails    []*RawLine `json:"trim_details"`
	LaborDetails   []*RawLine `json:"labor_details"`
	PackingDetails []*RawLine `json:"packing_details"`
	MiscDetails    []*RawLine `json:"mis_details"`
	FreightDetails []*RawLine `json:"freight_details"`
	DutyDetails    []*RawLine `json:"duty_details"`

	AgentCommPercent    decimal.Decimal `json:"agent_comm_percent"`
	TargetMarginPercent decimal.Decimal `json:"target_margin_percent"`
	ExchangeRate        decimal.Decimal `json:"exchange_rate"`
	LocalCurrency       string          `json:"local_currency"`
	QuoteCurrency       string          `json:"quote_currency"`
	PricingBasis        string          `json:"pricing_basis"`
}

func (in SheetInput) details(c Category) []*RawLine {
	switch c {
	case CategoryFabric:
		return in.FabricDetails
	case CategoryTrim:
		return in.TrimDetails
	case CategoryLabor:
		return in.LaborDetails
	case CategoryPacking:
		return in.PackingDetails
	case CategoryMisc:
		return in.MiscDetails
	case CategoryFreight:
		return in.FreightDetails
	case CategoryDuty:
		return in.DutyDetails
	}
	return nil
}

// Segment is one category's normalized lines plus its subtotal.
type Segment struct {
	Category   Category        `json:"category"`
	Lines      []Line          `json:"lines"`
	CostLocal  decimal.Decimal `json:"cost_local"`
	CostQuoted decimal.Decimal `json:"cost_quoted"`
}

// SheetResult is the fully derived costing sheet, suitable for direct
// persistence by the caller. Segments follow the canonical category order.
type SheetResult struct {
	Segments []Segment `json:"segments"`

	TotalCostLocal  decimal.Decimal `json:"total_cost_local"`
	TotalCostQuoted decimal.Decimal `json:"total_cost_quoted"`
	AgentCommAmount decimal.Decimal `json:"agent_comm_amount"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
}

// Segment returns the segment for a category (zero value if absent).
func (r SheetResult) Segment(c Category) Segment {
	for _, s := range r.Segments {
		if s.Category == c {
			return s
		}
	}
	return Segment{Category: c}
}

// Aggregate normalizes every category of a sheet, sums category and sheet
// totals, applies agent commission and derives the selling price.
//
// The selling price inverts margin-on-revenue, not markup-on-cost:
// margin = (price - cost) / price, so price = costWithComm / (1 - margin).
// A target margin of 100% or more would divide by zero or flip the sign, so
// it is clamped to cost-with-commission instead.
func Aggregate(in SheetInput) SheetResult {
	result := SheetResult{
		Segments: make([]Segment, 0, len(Categories)),
	}

	for _, c := range Categories {
		seg := Segment{Category: c, Lines: NormalizeLines(in.details(c), in.ExchangeRate)}
		for _, line := range seg.Lines {
			seg.CostLocal = seg.CostLocal.Add(line.CostLocal)
			seg.CostQuoted = seg.CostQuoted.Add(line.CostQuoted)
		}
		result.TotalCostLocal = result.TotalCostLocal.Add(seg.CostLocal)
		result.TotalCostQuoted = result.TotalCostQuoted.Add(seg.CostQuoted)
		result.Segments = append(result.Segments, seg)
	}

	result.AgentCommAmount = result.TotalCostQuoted.Mul(in.AgentCommPercent).Div(oneHundred)

	costWithComm := result.TotalCostQuoted.Add(result.AgentCommAmount)
	if in.TargetMarginPercent.GreaterThanOrEqual(oneHundred) {
		result.SellingPrice = costWithComm
	} else {
		result.SellingPrice = costWithComm.Div(decimal.NewFromInt(1).Sub(in.TargetMarginPercent.Div(oneHundred)))
	}

	return result
}
