package reports

import (
	"context"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/costing"
	"bitbucket.org/stitchfocus/garment_backend/models"
)

type PeriodPnLResponse struct {
	Period   costing.Period    `json:"period"`
	FromDate time.Time         `json:"from_date"`
	ToDate   time.Time         `json:"to_date"`
	Summary  costing.PeriodPnL `json:"summary"`
}

// GetPeriodPnLReport rolls order P&L up over a period window. Orders are
// selected by order date in [from, to); costs and invoices for the whole
// window are fetched in two batched queries.
func GetPeriodPnLReport(ctx context.Context, period costing.Period, refDate time.Time, startDate, endDate *time.Time, customerId *int) (*PeriodPnLResponse, error) {
	from, to := costing.ResolvePeriodWindow(period, refDate, startDate, endDate)

	orders, err := models.GetPurchaseOrders(ctx, customerId, nil, &from, &to)
	if err != nil {
		return nil, err
	}

	orderIds := make([]int, 0, len(orders))
	for _, o := range orders {
		orderIds = append(orderIds, o.ID)
	}
	costsByOrder, err := models.GetOrderCostsForOrders(ctx, orderIds)
	if err != nil {
		return nil, err
	}
	invoicesByOrder, err := models.GetInvoicesForOrders(ctx, orderIds)
	if err != nil {
		return nil, err
	}

	rollups := make([]costing.OrderRollup, 0, len(orders))
	for _, o := range orders {
		pnl := costing.ComputeOrderPnL(
			orderSummary(o),
			orderCostRows(costsByOrder[o.ID]),
			invoiceRows(invoicesByOrder[o.ID]),
		)
		rollups = append(rollups, costing.OrderRollup{
			OrderId:     o.ID,
			OrderNumber: o.OrderNumber,
			OrderDate:   o.OrderDate,
			Status:      o.CurrentStatus,
			PnL:         pnl,
		})
	}

	return &PeriodPnLResponse{
		Period:   period,
		FromDate: from,
		ToDate:   to,
		Summary:  costing.ComputePeriodPnL(rollups),
	}, nil
}
