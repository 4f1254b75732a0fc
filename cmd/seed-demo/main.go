// Command seed-demo populates an empty database with a small but complete
// demo dataset: catalogs, one style through sampling and costing, a
// confirmed order with booked costs, and a partially paid invoice.
package main

import (
	"context"
	"log"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/costing"
	"bitbucket.org/stitchfocus/garment_backend/models"
	"bitbucket.org/stitchfocus/garment_backend/utils"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func main() {
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx := context.Background()

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{
		Name:          "Nordwind Apparel GmbH",
		ContactPerson: "Lena Hoffmann",
		Email:         "lena@nordwind-apparel.example",
		Country:       "Germany",
		QuoteCurrency: "USD",
	})
	if err != nil {
		log.Fatal(err)
	}

	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{
		Name:         "Hangzhou Silverweft Textile Co.",
		Country:      "China",
		SupplierType: "fabric mill",
	})
	if err != nil {
		log.Fatal(err)
	}

	factory, err := models.CreateFactory(ctx, &models.NewFactory{
		Name:            "Ningbo Eastline Garment Factory",
		Country:         "China",
		MonthlyCapacity: 50000,
	})
	if err != nil {
		log.Fatal(err)
	}

	shell, err := models.CreateMaterial(ctx, &models.NewMaterial{
		Code:       "FAB-TWILL-230",
		Name:       "Cotton twill 230gsm",
		Category:   models.MaterialCategoryFabric,
		SupplierId: supplier.ID,
		Unit:       "m",
		UnitPrice:  dec("18.50"),
		VatRefund:  utils.NewTrue(),
		VatPercent: dec("13"),
	})
	if err != nil {
		log.Fatal(err)
	}
	zipper, err := models.CreateMaterial(ctx, &models.NewMaterial{
		Code:      "TRM-ZIP-20",
		Name:      "YKK zipper 20cm",
		Category:  models.MaterialCategoryTrim,
		Unit:      "pc",
		UnitPrice: dec("2.80"),
	})
	if err != nil {
		log.Fatal(err)
	}

	style, err := models.CreateStyle(ctx, &models.NewStyle{
		StyleNo:     "NW-2401",
		CustomerId:  customer.ID,
		Season:      "FW26",
		GarmentType: "jacket",
		Description: "Hooded workwear jacket, two-way zip",
	})
	if err != nil {
		log.Fatal(err)
	}

	requested := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	srs, err := models.CreateDevelopmentRequest(ctx, &models.NewDevelopmentRequest{
		SrsNo:         "SRS-2026-014",
		CustomerId:    customer.ID,
		StyleId:       style.ID,
		RequestedDate: &requested,
	})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := models.UpdateSampleStatus(ctx, srs.ID, models.SampleStatusApproved); err != nil {
		log.Fatal(err)
	}

	sheetInput := models.NewCostingSheet{
		DevelopmentRequestId: srs.ID,
		SheetInput: costing.SheetInput{
			FabricDetails: []*costing.RawLine{
				{MaterialId: &shell.ID, Name: shell.Name, UnitPriceLocal: decPtr("18.50"),
					Consumption: decPtr("1.8"), VatRefund: utils.NewTrue(), VatPercent: decPtr("13")},
			},
			TrimDetails: []*costing.RawLine{
				{MaterialId: &zipper.ID, Name: zipper.Name, UnitPriceLocal: decPtr("2.80"), Consumption: decPtr("2")},
			},
			LaborDetails: []*costing.RawLine{
				{Name: "CMT", UnitPriceLocal: decPtr("21"), Consumption: decPtr("1")},
			},
			PackingDetails: []*costing.RawLine{
				{Name: "Polybag + carton share", UnitPriceLocal: decPtr("1.6"), Consumption: decPtr("1")},
			},
			FreightDetails: []*costing.RawLine{
				{Name: "Sea freight share", UnitPriceLocal: decPtr("2.2"), Consumption: decPtr("1")},
			},
			AgentCommPercent:    dec("3"),
			TargetMarginPercent: dec("22"),
			ExchangeRate:        dec("7.1"),
			LocalCurrency:       "CNY",
			QuoteCurrency:       "USD",
			PricingBasis:        "FOB",
		},
	}
	sheet, err := models.CreateCostingSheet(ctx, &sheetInput)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := models.CreateCostingSheetRevision(ctx, srs.ID); err != nil {
		log.Fatal(err)
	}

	orderDate := time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)
	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderNumber:          "PO-2026-0087",
		CustomerId:           customer.ID,
		StyleId:              style.ID,
		FactoryId:            &factory.ID,
		DevelopmentRequestId: &srs.ID,
		OrderDate:            orderDate,
		Currency:             "USD",
		ExchangeRate:         dec("7.1"),
		Details: []models.NewPurchaseOrderDetail{
			{Color: "Graphite", Qty: 1200, UnitPrice: sheet.SellingPrice.Round(2)},
			{Color: "Moss", Qty: 800, UnitPrice: sheet.SellingPrice.Round(2)},
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := models.UpdateOrderStatus(ctx, order.ID, costing.OrderStatusConfirmed); err != nil {
		log.Fatal(err)
	}

	order, err = models.GetPurchaseOrder(ctx, order.ID)
	if err != nil {
		log.Fatal(err)
	}
	graphiteLine := order.Details[0].ID
	costDate := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)
	for _, cost := range []models.NewOrderCost{
		{PurchaseOrderId: order.ID, LineItemId: &graphiteLine, Category: costing.CategoryFabric,
			Description: "Shell fabric, graphite lot", SupplierId: &supplier.ID, CostDate: &costDate,
			Currency: "CNY", TotalCost: dec("68000"), ExchangeRate: dec("0.1408")},
		{PurchaseOrderId: order.ID, Category: costing.CategoryLabor,
			Description: "CMT first run", CostDate: &costDate,
			Currency: "CNY", TotalCost: dec("42000"), ExchangeRate: dec("0.1408")},
		{PurchaseOrderId: order.ID, Category: costing.CategoryFreight,
			Description: "Sea freight NGB-HAM", Currency: "USD", TotalCost: dec("3400"), ExchangeRate: dec("1")},
	} {
		if _, err := models.CreateOrderCost(ctx, &cost); err != nil {
			log.Fatal(err)
		}
	}

	invoiceDate := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		InvoiceNumber:   "INV-2026-0132",
		PurchaseOrderId: order.ID,
		InvoiceDate:     invoiceDate,
		PaymentTerms:    models.PaymentTermsNet30,
		Currency:        "USD",
		ExchangeRate:    dec("1"),
		TotalAmount:     order.TotalAmount,
	})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := models.UpdateInvoiceStatus(ctx, invoice.ID, costing.InvoiceStatusSent); err != nil {
		log.Fatal(err)
	}
	if _, err := models.RecordInvoicePayment(ctx, invoice.ID, &models.NewInvoicePayment{
		PaymentDate: invoiceDate.AddDate(0, 0, 14),
		Amount:      order.TotalAmount.Div(decimal.NewFromInt(2)).Round(2),
		Reference:   "T/T first half",
	}); err != nil {
		log.Fatal(err)
	}

	log.Printf("seeded demo data: customer %d, style %s, sheet rev 2, order %s, invoice %s",
		customer.ID, style.StyleNo, order.OrderNumber, invoice.InvoiceNumber)
}
