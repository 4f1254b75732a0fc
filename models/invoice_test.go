package models

import (
	"testing"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/costing"
	"github.com/shopspring/decimal"
)

func TestCalculateDueDate(t *testing.T) {
	anchor := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		terms      PaymentTerms
		customDays int
		want       time.Time
	}{
		{"due on receipt", PaymentTermsDueOnReceipt, 0, anchor},
		{"net 15", PaymentTermsNet15, 0, anchor.AddDate(0, 0, 15)},
		{"net 30", PaymentTermsNet30, 0, anchor.AddDate(0, 0, 30)},
		{"net 45", PaymentTermsNet45, 0, anchor.AddDate(0, 0, 45)},
		{"net 60", PaymentTermsNet60, 0, anchor.AddDate(0, 0, 60)},
		{"end of month", PaymentTermsDueEndOfMonth, 0, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"end of next month", PaymentTermsDueEndOfNextMonth, 0, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"custom 7 days", PaymentTermsCustom, 7, anchor.AddDate(0, 0, 7)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateDueDate(anchor, tc.terms, tc.customDays)
			if got == nil {
				t.Fatal("CalculateDueDate returned nil")
			}
			if !got.Equal(tc.want) {
				t.Fatalf("due date = %s, want %s", got.Format("2006-01-02"), tc.want.Format("2006-01-02"))
			}
		})
	}
}

func TestDueDateAnchorsOnRogDate(t *testing.T) {
	invoiceDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rogDate := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)

	input := NewInvoice{
		InvoiceDate:  invoiceDate,
		RogDate:      &rogDate,
		PaymentTerms: PaymentTermsNet30,
	}
	got := input.dueDate()
	if want := rogDate.AddDate(0, 0, 30); !got.Equal(want) {
		t.Fatalf("due date = %s, want %s (anchored on ROG date)", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	input.RogDate = nil
	got = input.dueDate()
	if want := invoiceDate.AddDate(0, 0, 30); !got.Equal(want) {
		t.Fatalf("due date = %s, want %s (anchored on invoice date)", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestNextInvoiceStatus(t *testing.T) {
	total := decimal.NewFromInt(1000)

	cases := []struct {
		name    string
		current costing.InvoiceStatus
		paid    decimal.Decimal
		want    costing.InvoiceStatus
	}{
		{"no payment keeps status", costing.InvoiceStatusSent, decimal.Zero, costing.InvoiceStatusSent},
		{"partial payment", costing.InvoiceStatusSent, decimal.NewFromInt(400), costing.InvoiceStatusPartiallyPaid},
		{"full payment", costing.InvoiceStatusSent, decimal.NewFromInt(1000), costing.InvoiceStatusPaid},
		{"overpayment", costing.InvoiceStatusAcknowledged, decimal.NewFromInt(1200), costing.InvoiceStatusPaid},
		{"overdue with partial payment", costing.InvoiceStatusOverdue, decimal.NewFromInt(100), costing.InvoiceStatusPartiallyPaid},
		{"cancelled is sticky", costing.InvoiceStatusCancelled, decimal.NewFromInt(1000), costing.InvoiceStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextInvoiceStatus(tc.current, total, tc.paid)
			if got != tc.want {
				t.Fatalf("NextInvoiceStatus(%s, paid=%s) = %s, want %s", tc.current, tc.paid, got, tc.want)
			}
		})
	}
}

func TestNextInvoiceStatusZeroTotalNeverPaid(t *testing.T) {
	got := NextInvoiceStatus(costing.InvoiceStatusSent, decimal.Zero, decimal.NewFromInt(50))
	if got != costing.InvoiceStatusPartiallyPaid {
		t.Fatalf("zero-total invoice with payment = %s, want %s", got, costing.InvoiceStatusPartiallyPaid)
	}
}
