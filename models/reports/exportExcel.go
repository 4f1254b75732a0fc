package reports

import (
	"fmt"
	"io"

	"bitbucket.org/stitchfocus/garment_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func cellDecimal(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func cellDecimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return cellDecimal(*d)
}

// ExportPeriodPnLExcel writes a period P&L as an xlsx workbook: one row per
// order plus a totals row.
func ExportPeriodPnLExcel(report *PeriodPnLResponse, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Period P&L"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headings := []string{
		"Order Number", "Order Date", "Status",
		"Est Revenue", "Act Revenue", "Total Cost",
		"Est Profit", "Act Profit", "Est Margin %", "Act Margin %", "Revenue Variance",
	}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	row := 2
	for _, o := range report.Summary.Orders {
		values := []interface{}{
			o.OrderNumber,
			o.OrderDate.Format("2006-01-02"),
			string(o.Status),
			cellDecimal(o.PnL.EstRevenue),
			cellDecimalPtr(o.PnL.ActRevenue),
			cellDecimal(o.PnL.TotalCost),
			cellDecimal(o.PnL.EstProfit),
			cellDecimalPtr(o.PnL.ActProfit),
			cellDecimal(o.PnL.EstMargin),
			cellDecimalPtr(o.PnL.ActMargin),
			cellDecimalPtr(o.PnL.RevenueVariance),
		}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	totals := []interface{}{
		fmt.Sprintf("TOTAL (%d orders)", len(report.Summary.Orders)),
		report.FromDate.Format("2006-01-02"),
		string(report.Period),
		cellDecimal(report.Summary.TotalEstRevenue),
		cellDecimal(report.Summary.TotalActRevenue),
		cellDecimal(report.Summary.TotalCost),
		cellDecimal(report.Summary.TotalEstProfit),
		cellDecimal(report.Summary.TotalActProfit),
		cellDecimal(report.Summary.EstMargin),
		cellDecimal(report.Summary.ActMargin),
		"",
	}
	for i, v := range totals {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// ExportCostingSheetExcel writes one sheet revision as an xlsx workbook: the
// normalized lines followed by the cost build-up to selling price.
func ExportCostingSheetExcel(sheet *models.CostingSheet, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("Costing Rev %d", sheet.RevisionNo)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	setRow := func(row int, values []interface{}) error {
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	headings := []interface{}{
		"Category", "Name", "Unit Price", "Consumption",
		"VAT Refund", "Exchange Rate", "Cost (" + sheet.LocalCurrency + ")", "Cost (" + sheet.QuoteCurrency + ")",
	}
	if err := setRow(1, headings); err != nil {
		return err
	}

	row := 2
	for _, line := range sheet.Lines {
		values := []interface{}{
			string(line.Category),
			line.Name,
			cellDecimal(line.UnitPrice),
			cellDecimal(line.Consumption),
			line.VatRefund,
			cellDecimal(line.ExchangeRate),
			cellDecimal(line.CostLocal),
			cellDecimal(line.CostQuoted),
		}
		if err := setRow(row, values); err != nil {
			return err
		}
		row++
	}

	row++
	buildUp := [][]interface{}{
		{"Total Cost (" + sheet.LocalCurrency + ")", cellDecimal(sheet.TotalCostLocal)},
		{"Total Cost (" + sheet.QuoteCurrency + ")", cellDecimal(sheet.TotalCostQuoted)},
		{fmt.Sprintf("Agent Commission (%s%%)", sheet.AgentCommPercent), cellDecimal(sheet.AgentCommAmount)},
		{fmt.Sprintf("Selling Price @ %s%% margin", sheet.TargetMarginPercent), cellDecimal(sheet.SellingPrice)},
	}
	if sheet.ActualQuotedPrice != nil {
		buildUp = append(buildUp, []interface{}{"Actual Quoted Price", cellDecimal(*sheet.ActualQuotedPrice)})
	}
	for _, values := range buildUp {
		if err := setRow(row, values); err != nil {
			return err
		}
		row++
	}

	return f.Write(w)
}
