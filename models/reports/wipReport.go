package reports

import (
	"context"
	"errors"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/models"
	"bitbucket.org/stitchfocus/garment_backend/utils"
	"github.com/shopspring/decimal"
)

type WipStatusRow struct {
	CurrentStatus string          `json:"current_status"`
	OrderCount    int             `json:"order_count"`
	TotalQty      int             `json:"total_qty"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

type WipReportResponse struct {
	Rows       []*WipStatusRow `json:"rows"`
	OrderCount int             `json:"order_count"`
	TotalQty   int             `json:"total_qty"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// GetWipReport summarizes open orders (not Closed, not Cancelled) per status:
// how many orders, how many pieces, and their value in the base reporting
// currency.
func GetWipReport(ctx context.Context, customerId *int) (*WipReportResponse, error) {

	sqlT := `
SELECT
    current_status,
    COUNT(id) AS order_count,
    SUM(total_qty) AS total_qty,
    SUM(total_amount * (CASE
        WHEN exchange_rate > 0 THEN exchange_rate
        ELSE 1
    END)) AS total_value
FROM
    purchase_orders
WHERE
    current_status NOT IN ('Closed' , 'Cancelled')
    {{- if .customerId }} AND customer_id = @customerId {{- end }}
GROUP BY current_status
ORDER BY FIELD(current_status, 'Draft', 'Confirmed', 'In Production', 'Shipped');
`

	if customerId != nil && *customerId != 0 {
		if err := utils.ValidateResourceId[models.Customer](ctx, *customerId); err != nil {
			return nil, errors.New("customer not found")
		}
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"customerId": utils.DereferencePtr(customerId, 0),
	})
	if err != nil {
		return nil, err
	}

	var rows []*WipStatusRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"customerId": customerId,
	}).Scan(&rows).Error; err != nil {
		return nil, err
	}

	response := WipReportResponse{Rows: rows}
	for _, row := range rows {
		response.OrderCount += row.OrderCount
		response.TotalQty += row.TotalQty
		response.TotalValue = response.TotalValue.Add(row.TotalValue)
	}
	return &response, nil
}
