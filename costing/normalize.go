// Package costing is the pure costing & P&L engine: cost line normalization,
// costing sheet aggregation, and order/period profit-and-loss assembly.
// Everything in this package is a deterministic transformation over its
// arguments; persistence and request validation belong to the callers.
package costing

import (
	"github.com/shopspring/decimal"
)

// FallbackExchangeRate is substituted whenever an exchange rate is absent,
// zero or negative. The rate divides costs, so a zero must never reach the
// arithmetic.
var FallbackExchangeRate = decimal.NewFromInt(1)

var oneHundred = decimal.NewFromInt(100)

// RawLine is one heterogeneous cost line as submitted by a caller. Every
// field may be absent; the normalizer resolves defaults.
//
// UnitPriceLocal and UnitPricePerMeter are mutually substitutable unit price
// inputs in the sheet's local currency; the first non-nil one wins.
type RawLine struct {
	MaterialId        *int             `json:"material_id"`
	Name              string           `json:"name"`
	UnitPriceLocal    *decimal.Decimal `json:"unit_price_local"`
	UnitPricePerMeter *decimal.Decimal `json:"unit_price_per_meter"`
	Consumption       *decimal.Decimal `json:"consumption"`
	VatRefund         *bool            `json:"vat_refund"`
	VatPercent        *decimal.Decimal `json:"vat_percent"`
	ExchangeRate      *decimal.Decimal `json:"exchange_rate"`
}

// Line is a normalized cost line. CostLocal and CostQuoted are always
// recomputed from the resolved inputs, never trusted from the caller.
type Line struct {
	MaterialId   *int            `json:"material_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Consumption  decimal.Decimal `json:"consumption"`
	VatRefund    bool            `json:"vat_refund"`
	VatPercent   decimal.Decimal `json:"vat_percent"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	CostLocal    decimal.Decimal `json:"cost_local"`
	CostQuoted   decimal.Decimal `json:"cost_quoted"`
}

// ResolveExchangeRate applies the fallback policy: a line-level rate wins
// over the sheet default, and anything not strictly positive resolves to
// FallbackExchangeRate.
func ResolveExchangeRate(lineRate *decimal.Decimal, defaultRate decimal.Decimal) decimal.Decimal {
	rate := defaultRate
	if lineRate != nil {
		rate = *lineRate
	}
	if rate.Sign() <= 0 {
		return FallbackExchangeRate
	}
	return rate
}

// NormalizeLines converts raw cost lines into normalized lines with computed
// CostLocal and CostQuoted. Nil entries are skipped; a nil or empty input
// yields an empty result. Negative prices or consumptions are propagated as
// negative costs; rejecting them is the caller's job.
func NormalizeLines(raw []*RawLine, defaultRate decimal.Decimal) []Line {
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		lines = append(lines, normalizeLine(r, defaultRate))
	}
	return lines
}

func normalizeLine(r *RawLine, defaultRate decimal.Decimal) Line {
	unitPrice := decimal.Zero
	if r.UnitPriceLocal != nil {
		unitPrice = *r.UnitPriceLocal
	} else if r.UnitPricePerMeter != nil {
		unitPrice = *r.UnitPricePerMeter
	}

	consumption := decimal.Zero
	if r.Consumption != nil {
		consumption = *r.Consumption
	}

	vatRefund := r.VatRefund != nil && *r.VatRefund
	vatPercent := decimal.Zero
	if r.VatPercent != nil {
		vatPercent = *r.VatPercent
	}

	rate := ResolveExchangeRate(r.ExchangeRate, defaultRate)

	costLocal := unitPrice.Mul(consumption)
	if vatRefund {
		// VAT-refund eligible: the refundable VAT portion is not a real cost.
		divisor := decimal.NewFromInt(1).Add(vatPercent.Div(oneHundred))
		if !divisor.IsZero() {
			costLocal = costLocal.Div(divisor)
		}
	}

	return Line{
		MaterialId:   r.MaterialId,
		Name:         r.Name,
		UnitPrice:    unitPrice,
		Consumption:  consumption,
		VatRefund:    vatRefund,
		VatPercent:   vatPercent,
		ExchangeRate: rate,
		CostLocal:    costLocal,
		CostQuoted:   costLocal.Div(rate),
	}
}
