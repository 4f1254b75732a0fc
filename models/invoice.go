package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/costing"
	"bitbucket.org/stitchfocus/garment_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentTerms string

const (
	PaymentTermsNet15             PaymentTerms = "Net15"
	PaymentTermsNet30             PaymentTerms = "Net30"
	PaymentTermsNet45             PaymentTerms = "Net45"
	PaymentTermsNet60             PaymentTerms = "Net60"
	PaymentTermsDueEndOfMonth     PaymentTerms = "DueMonthEnd"
	PaymentTermsDueEndOfNextMonth PaymentTerms = "DueNextMonthEnd"
	PaymentTermsDueOnReceipt      PaymentTerms = "DueOnReceipt"
	PaymentTermsCustom            PaymentTerms = "Custom"
)

func (p PaymentTerms) IsValid() bool {
	switch p {
	case PaymentTermsNet15, PaymentTermsNet30, PaymentTermsNet45, PaymentTermsNet60,
		PaymentTermsDueEndOfMonth, PaymentTermsDueEndOfNextMonth,
		PaymentTermsDueOnReceipt, PaymentTermsCustom:
		return true
	}
	return false
}

// CalculateDueDate resolves payment terms against an anchor date. For export
// invoices the anchor is the receipt-of-goods date when known, otherwise the
// invoice date.
func CalculateDueDate(date time.Time, paymentTerms PaymentTerms, customDays int) *time.Time {
	var dueDate time.Time
	switch terms := paymentTerms; terms {
	case PaymentTermsDueOnReceipt:
		dueDate = date
	case PaymentTermsNet15:
		dueDate = date.AddDate(0, 0, 15)
	case PaymentTermsNet30:
		dueDate = date.AddDate(0, 0, 30)
	case PaymentTermsNet45:
		dueDate = date.AddDate(0, 0, 45)
	case PaymentTermsNet60:
		dueDate = date.AddDate(0, 0, 60)
	case PaymentTermsDueEndOfMonth:
		year, month, _ := date.Date()
		firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, date.Location())
		dueDate = firstOfMonth.AddDate(0, 1, -1)
	case PaymentTermsDueEndOfNextMonth:
		year, month, _ := date.Date()
		firstOfNextMonth := time.Date(year, month+1, 1, 0, 0, 0, 0, date.Location())
		dueDate = firstOfNextMonth.AddDate(0, 1, -1)
	case PaymentTermsCustom:
		dueDate = date.AddDate(0, 0, customDays)
	}
	return &dueDate
}

// NextInvoiceStatus derives the status after a payment mutation. Terminal
// cancellation is sticky; otherwise the paid amount decides between Paid,
// Partial Paid and the pre-payment status.
func NextInvoiceStatus(current costing.InvoiceStatus, totalAmount, paidAmount decimal.Decimal) costing.InvoiceStatus {
	if current == costing.InvoiceStatusCancelled {
		return current
	}
	if totalAmount.Sign() > 0 && paidAmount.GreaterThanOrEqual(totalAmount) {
		return costing.InvoiceStatusPaid
	}
	if paidAmount.Sign() > 0 {
		return costing.InvoiceStatusPartiallyPaid
	}
	return current
}

// Invoice is a customer invoice raised against a purchase order. PaidAmount
// and CurrentStatus are derived from the payment rows, never set directly.
type Invoice struct {
	ID                     int                   `gorm:"primary_key" json:"id"`
	InvoiceNumber          string                `gorm:"size:100;not null;unique" json:"invoice_number" binding:"required"`
	PurchaseOrderId        int                   `gorm:"index;not null" json:"purchase_order_id" binding:"required"`
	CustomerId             int                   `gorm:"index;not null" json:"customer_id"`
	InvoiceDate            time.Time             `gorm:"not null" json:"invoice_date"`
	RogDate                *time.Time            `gorm:"default:null" json:"rog_date"`
	PaymentTerms           PaymentTerms          `gorm:"type:enum('Net15','Net30','Net45','Net60','DueMonthEnd','DueNextMonthEnd','DueOnReceipt','Custom');default:'DueOnReceipt'" json:"payment_terms"`
	PaymentTermsCustomDays int                   `gorm:"default:0" json:"payment_terms_custom_days"`
	DueDate                *time.Time            `gorm:"default:null" json:"due_date"`
	Currency               string                `gorm:"size:10;default:'USD'" json:"currency"`
	ExchangeRate           decimal.Decimal       `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`
	TotalAmount            decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount             decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	CurrentStatus          costing.InvoiceStatus `gorm:"type:enum('Draft','Sent','Acknowledged','Partial Paid','Paid','Overdue','Cancelled');default:'Draft'" json:"current_status"`
	Remark                 string                `gorm:"type:text;default:null" json:"remark"`
	Payments               []InvoicePayment      `gorm:"foreignKey:InvoiceId" json:"payments"`
	CreatedAt              time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// InvoicePayment is one received payment against an invoice.
type InvoicePayment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Reference   string          `gorm:"size:255;default:null" json:"reference"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewInvoice struct {
	InvoiceNumber          string          `json:"invoice_number" binding:"required"`
	PurchaseOrderId        int             `json:"purchase_order_id" binding:"required"`
	InvoiceDate            time.Time       `json:"invoice_date" binding:"required"`
	RogDate                *time.Time      `json:"rog_date"`
	PaymentTerms           PaymentTerms    `json:"payment_terms"`
	PaymentTermsCustomDays int             `json:"payment_terms_custom_days"`
	Currency               string          `json:"currency"`
	ExchangeRate           decimal.Decimal `json:"exchange_rate"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	Remark                 string          `json:"remark"`
}

type NewInvoicePayment struct {
	PaymentDate time.Time       `json:"payment_date" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Reference   string          `json:"reference"`
}

func (input *NewInvoice) validate(ctx context.Context, id int) (*PurchaseOrder, error) {
	if err := utils.ValidateUnique[Invoice](ctx, "invoice_number", input.InvoiceNumber, id); err != nil {
		return nil, errors.New("invoice number already exists")
	}
	order, err := utils.FetchModel[PurchaseOrder](ctx, input.PurchaseOrderId)
	if err != nil {
		return nil, errors.New("purchase order not found")
	}
	if input.PaymentTerms != "" && !input.PaymentTerms.IsValid() {
		return nil, errors.New("invalid payment terms")
	}
	if input.TotalAmount.Sign() < 0 {
		return nil, errors.New("total amount must not be negative")
	}
	return order, nil
}

func (input *NewInvoice) dueDate() *time.Time {
	terms := input.PaymentTerms
	if terms == "" {
		terms = PaymentTermsDueOnReceipt
	}
	anchor := input.InvoiceDate
	if input.RogDate != nil {
		anchor = *input.RogDate
	}
	return CalculateDueDate(anchor, terms, input.PaymentTermsCustomDays)
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	order, err := input.validate(ctx, 0)
	if err != nil {
		return nil, err
	}

	terms := input.PaymentTerms
	if terms == "" {
		terms = PaymentTermsDueOnReceipt
	}
	currency := input.Currency
	if currency == "" {
		currency = order.Currency
	}
	invoice := Invoice{
		InvoiceNumber:          input.InvoiceNumber,
		PurchaseOrderId:        input.PurchaseOrderId,
		CustomerId:             order.CustomerId,
		InvoiceDate:            input.InvoiceDate,
		RogDate:                input.RogDate,
		PaymentTerms:           terms,
		PaymentTermsCustomDays: input.PaymentTermsCustomDays,
		DueDate:                input.dueDate(),
		Currency:               currency,
		ExchangeRate:           input.ExchangeRate,
		TotalAmount:            input.TotalAmount,
		CurrentStatus:          costing.InvoiceStatusDraft,
		Remark:                 input.Remark,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func UpdateInvoice(ctx context.Context, id int, input *NewInvoice) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, id)
	if err != nil {
		return nil, err
	}
	switch invoice.CurrentStatus {
	case costing.InvoiceStatusPaid, costing.InvoiceStatusCancelled:
		return nil, errors.New("invoice can no longer be edited")
	}
	order, err := input.validate(ctx, id)
	if err != nil {
		return nil, err
	}

	terms := input.PaymentTerms
	if terms == "" {
		terms = PaymentTermsDueOnReceipt
	}
	currency := input.Currency
	if currency == "" {
		currency = order.Currency
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"InvoiceNumber":          input.InvoiceNumber,
		"PurchaseOrderId":        input.PurchaseOrderId,
		"CustomerId":             order.CustomerId,
		"InvoiceDate":            input.InvoiceDate,
		"RogDate":                input.RogDate,
		"PaymentTerms":           terms,
		"PaymentTermsCustomDays": input.PaymentTermsCustomDays,
		"DueDate":                input.dueDate(),
		"Currency":               currency,
		"ExchangeRate":           input.ExchangeRate,
		"TotalAmount":            input.TotalAmount,
		"Remark":                 input.Remark,
	}).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// UpdateInvoiceStatus handles the manual lifecycle moves (Sent, Acknowledged,
// Cancelled). Payment-derived states come from RecordInvoicePayment and are
// rejected here.
func UpdateInvoiceStatus(ctx context.Context, id int, status costing.InvoiceStatus) (*Invoice, error) {
	if !status.IsValid() {
		return nil, errors.New("invalid invoice status")
	}
	switch status {
	case costing.InvoiceStatusPaid, costing.InvoiceStatusPartiallyPaid:
		return nil, errors.New("payment statuses are derived from payments")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.CurrentStatus == costing.InvoiceStatusCancelled {
		return nil, errors.New("invoice is cancelled")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(invoice).Update("CurrentStatus", status).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// RecordInvoicePayment books a payment and rederives PaidAmount and status in
// one transaction.
func RecordInvoicePayment(ctx context.Context, invoiceId int, input *NewInvoicePayment) (*Invoice, error) {
	if input.Amount.Sign() <= 0 {
		return nil, errors.New("payment amount must be positive")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, invoiceId)
	if err != nil {
		return nil, err
	}
	switch invoice.CurrentStatus {
	case costing.InvoiceStatusDraft:
		return nil, errors.New("invoice has not been sent")
	case costing.InvoiceStatusCancelled:
		return nil, errors.New("invoice is cancelled")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment := InvoicePayment{
			InvoiceId:   invoice.ID,
			PaymentDate: input.PaymentDate,
			Amount:      input.Amount,
			Reference:   input.Reference,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		var payments []InvoicePayment
		if err := tx.Where("invoice_id = ?", invoice.ID).Find(&payments).Error; err != nil {
			return err
		}
		paid := decimal.Zero
		for _, p := range payments {
			paid = paid.Add(p.Amount)
		}

		invoice.PaidAmount = paid
		invoice.CurrentStatus = NextInvoiceStatus(invoice.CurrentStatus, invoice.TotalAmount, paid)
		return tx.Model(invoice).Updates(map[string]interface{}{
			"PaidAmount":    invoice.PaidAmount,
			"CurrentStatus": invoice.CurrentStatus,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// MarkOverdueInvoices flips unpaid Sent/Acknowledged invoices past their due
// date to Overdue. A partially paid invoice keeps its Partial Paid status so
// it still counts as actual revenue. Returns the number of invoices flipped.
func MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Invoice{}).
		Where("current_status IN ?", []costing.InvoiceStatus{
			costing.InvoiceStatusSent, costing.InvoiceStatusAcknowledged,
		}).
		Where("due_date IS NOT NULL AND due_date < ?", asOf).
		Update("CurrentStatus", costing.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}

func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&InvoicePayment{}).Where("invoice_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("invoice has payments")
	}

	if err := db.WithContext(ctx).Delete(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	db := config.GetDB()
	var invoice Invoice
	if err := db.WithContext(ctx).Preload("Payments", func(db *gorm.DB) *gorm.DB {
		return db.Order("payment_date, id")
	}).First(&invoice, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func GetInvoices(ctx context.Context, customerId *int, status *costing.InvoiceStatus) ([]*Invoice, error) {
	db := config.GetDB()
	var results []*Invoice

	dbCtx := db.WithContext(ctx)
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	if err := dbCtx.Order("invoice_date desc, id desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetInvoicesForOrders fetches the invoices of many orders in one query, for
// report assembly without per-order round trips.
func GetInvoicesForOrders(ctx context.Context, orderIds []int) (map[int][]Invoice, error) {
	grouped := make(map[int][]Invoice, len(orderIds))
	if len(orderIds) == 0 {
		return grouped, nil
	}

	db := config.GetDB()
	var rows []Invoice
	if err := db.WithContext(ctx).Where("purchase_order_id IN ?", orderIds).
		Order("purchase_order_id, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		grouped[row.PurchaseOrderId] = append(grouped[row.PurchaseOrderId], row)
	}
	return grouped, nil
}
