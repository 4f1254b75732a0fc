package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/costing"
	"bitbucket.org/stitchfocus/garment_backend/utils"
	"github.com/bsm/redislock"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CostingSheet is one revision of a style's cost build-up. Revisions of the
// same development request share DevelopmentRequestId and count up from 1;
// only the highest revision is mutable. All derived columns (per-category
// costs, totals, selling price) are recomputed wholesale on every save and
// never accepted from input.
type CostingSheet struct {
	ID                   int                `gorm:"primary_key" json:"id"`
	DevelopmentRequestId int                `gorm:"uniqueIndex:idx_costing_sheet_revision;not null" json:"development_request_id" binding:"required"`
	RevisionNo           int                `gorm:"uniqueIndex:idx_costing_sheet_revision;not null" json:"revision_no"`
	LocalCurrency        string             `gorm:"size:10;default:'CNY'" json:"local_currency"`
	QuoteCurrency        string             `gorm:"size:10;default:'USD'" json:"quote_currency"`
	ExchangeRate         decimal.Decimal    `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`
	PricingBasis         string             `gorm:"size:20;default:null" json:"pricing_basis"`
	AgentCommPercent     decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"agent_comm_percent"`
	TargetMarginPercent  decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"target_margin_percent"`
	FabricCost           decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"fabric_cost"`
	TrimCost             decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"trim_cost"`
	LaborCost            decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"labor_cost"`
	PackingCost          decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"packing_cost"`
	MiscCost             decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"mis_cost"`
	FreightCost          decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"freight_cost"`
	DutyCost             decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"duty_cost"`
	TotalCostLocal       decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_cost_local"`
	TotalCostQuoted      decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_cost_quoted"`
	AgentCommAmount      decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"agent_comm_amount"`
	SellingPrice         decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	ActualQuotedPrice    *decimal.Decimal   `gorm:"type:decimal(20,4);default:null" json:"actual_quoted_price"`
	Remark               string             `gorm:"type:text;default:null" json:"remark"`
	Lines                []CostingSheetLine `gorm:"foreignKey:CostingSheetId" json:"lines"`
	CreatedAt            time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// CostingSheetLine is one normalized cost line of a sheet revision.
type CostingSheetLine struct {
	ID             int              `gorm:"primary_key" json:"id"`
	CostingSheetId int              `gorm:"index;not null" json:"costing_sheet_id"`
	Category       costing.Category `gorm:"type:enum('fabric','trim','labor','packing','misc','freight','duty');not null" json:"category"`
	MaterialId     *int             `gorm:"index;default:null" json:"material_id"`
	Name           string           `gorm:"size:255;default:null" json:"name"`
	UnitPrice      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Consumption    decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"consumption"`
	VatRefund      bool             `gorm:"not null;default:false" json:"vat_refund"`
	VatPercent     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"vat_percent"`
	ExchangeRate   decimal.Decimal  `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`
	CostLocal      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"cost_local"`
	CostQuoted     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"cost_quoted"`
	SortOrder      int              `gorm:"default:0" json:"sort_order"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCostingSheet struct {
	DevelopmentRequestId int `json:"development_request_id" binding:"required"`
	costing.SheetInput
	ActualQuotedPrice *decimal.Decimal `json:"actual_quoted_price"`
	Remark            string           `json:"remark"`
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func (input *NewCostingSheet) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[DevelopmentRequest](ctx, input.DevelopmentRequestId); err != nil {
		return errors.New("development request not found")
	}

	materialIds := make([]int, 0)
	for _, c := range costing.Categories {
		for _, line := range input.details(c) {
			if line != nil && line.MaterialId != nil {
				materialIds = append(materialIds, *line.MaterialId)
			}
		}
	}
	if len(materialIds) > 0 {
		db := config.GetDB()
		var count int64
		if err := db.WithContext(ctx).Model(&Material{}).Where("id IN ?", materialIds).
			Distinct("id").Count(&count).Error; err != nil {
			return err
		}
		distinct := make(map[int]bool, len(materialIds))
		for _, id := range materialIds {
			distinct[id] = true
		}
		if count != int64(len(distinct)) {
			return errors.New("material not found")
		}
	}
	return nil
}

func (input *NewCostingSheet) details(c costing.Category) []*costing.RawLine {
	in := input.SheetInput
	switch c {
	case costing.CategoryFabric:
		return in.FabricDetails
	case costing.CategoryTrim:
		return in.TrimDetails
	case costing.CategoryLabor:
		return in.LaborDetails
	case costing.CategoryPacking:
		return in.PackingDetails
	case costing.CategoryMisc:
		return in.MiscDetails
	case costing.CategoryFreight:
		return in.FreightDetails
	case costing.CategoryDuty:
		return in.DutyDetails
	}
	return nil
}

// buildSheet maps a computed result onto the persisted header columns.
func (input *NewCostingSheet) buildSheet(result costing.SheetResult) CostingSheet {
	localCurrency := input.LocalCurrency
	if localCurrency == "" {
		localCurrency = "CNY"
	}
	quoteCurrency := input.QuoteCurrency
	if quoteCurrency == "" {
		quoteCurrency = "USD"
	}
	return CostingSheet{
		DevelopmentRequestId: input.DevelopmentRequestId,
		LocalCurrency:        localCurrency,
		QuoteCurrency:        quoteCurrency,
		ExchangeRate:         input.ExchangeRate,
		PricingBasis:         input.PricingBasis,
		AgentCommPercent:     input.AgentCommPercent,
		TargetMarginPercent:  input.TargetMarginPercent,
		FabricCost:           result.Segment(costing.CategoryFabric).CostQuoted,
		TrimCost:             result.Segment(costing.CategoryTrim).CostQuoted,
		LaborCost:            result.Segment(costing.CategoryLabor).CostQuoted,
		PackingCost:          result.Segment(costing.CategoryPacking).CostQuoted,
		MiscCost:             result.Segment(costing.CategoryMisc).CostQuoted,
		FreightCost:          result.Segment(costing.CategoryFreight).CostQuoted,
		DutyCost:             result.Segment(costing.CategoryDuty).CostQuoted,
		TotalCostLocal:       result.TotalCostLocal,
		TotalCostQuoted:      result.TotalCostQuoted,
		AgentCommAmount:      result.AgentCommAmount,
		SellingPrice:         result.SellingPrice,
		ActualQuotedPrice:    input.ActualQuotedPrice,
		Remark:               input.Remark,
	}
}

// buildSheetLines flattens a computed result into persistable line rows, in
// canonical category order.
func buildSheetLines(sheetId int, result costing.SheetResult) []CostingSheetLine {
	rows := make([]CostingSheetLine, 0)
	order := 0
	for _, seg := range result.Segments {
		for _, line := range seg.Lines {
			rows = append(rows, CostingSheetLine{
				CostingSheetId: sheetId,
				Category:       seg.Category,
				MaterialId:     line.MaterialId,
				Name:           line.Name,
				UnitPrice:      line.UnitPrice,
				Consumption:    line.Consumption,
				VatRefund:      line.VatRefund,
				VatPercent:     line.VatPercent,
				ExchangeRate:   line.ExchangeRate,
				CostLocal:      line.CostLocal,
				CostQuoted:     line.CostQuoted,
				SortOrder:      order,
			})
			order++
		}
	}
	return rows
}

func latestRevisionNo(tx *gorm.DB, developmentRequestId int) (int, error) {
	var latest int
	err := tx.Model(&CostingSheet{}).
		Where("development_request_id = ?", developmentRequestId).
		Select("COALESCE(MAX(revision_no), 0)").Scan(&latest).Error
	return latest, err
}

// CreateCostingSheet opens revision 1 for a development request. A request
// gets exactly one revision chain; later revisions come from
// CreateCostingSheetRevision.
func CreateCostingSheet(ctx context.Context, input *NewCostingSheet) (*CostingSheet, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	result := costing.Aggregate(input.SheetInput)
	sheet := input.buildSheet(result)
	sheet.RevisionNo = 1

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sheet).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return errors.New("costing sheet already exists for development request")
			}
			return err
		}
		rows := buildSheetLines(sheet.ID, result)
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		sheet.Lines = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

// UpdateCostingSheet recomputes and rewrites a revision wholesale: header
// derived columns and all lines are replaced from the input. Only the latest
// revision of a development request can be edited.
func UpdateCostingSheet(ctx context.Context, id int, input *NewCostingSheet) (*CostingSheet, error) {
	sheet, err := utils.FetchModel[CostingSheet](ctx, id)
	if err != nil {
		return nil, err
	}
	input.DevelopmentRequestId = sheet.DevelopmentRequestId
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	result := costing.Aggregate(input.SheetInput)
	updated := input.buildSheet(result)

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		latest, err := latestRevisionNo(tx, sheet.DevelopmentRequestId)
		if err != nil {
			return err
		}
		if sheet.RevisionNo != latest {
			return errors.New("only the latest revision can be edited")
		}

		if err := tx.Model(sheet).Updates(map[string]interface{}{
			"LocalCurrency":       updated.LocalCurrency,
			"QuoteCurrency":       updated.QuoteCurrency,
			"ExchangeRate":        updated.ExchangeRate,
			"PricingBasis":        updated.PricingBasis,
			"AgentCommPercent":    updated.AgentCommPercent,
			"TargetMarginPercent": updated.TargetMarginPercent,
			"FabricCost":          updated.FabricCost,
			"TrimCost":            updated.TrimCost,
			"LaborCost":           updated.LaborCost,
			"PackingCost":         updated.PackingCost,
			"MiscCost":            updated.MiscCost,
			"FreightCost":         updated.FreightCost,
			"DutyCost":            updated.DutyCost,
			"TotalCostLocal":      updated.TotalCostLocal,
			"TotalCostQuoted":     updated.TotalCostQuoted,
			"AgentCommAmount":     updated.AgentCommAmount,
			"SellingPrice":        updated.SellingPrice,
			"ActualQuotedPrice":   updated.ActualQuotedPrice,
			"Remark":              updated.Remark,
		}).Error; err != nil {
			return err
		}

		if err := tx.Where("costing_sheet_id = ?", sheet.ID).Delete(&CostingSheetLine{}).Error; err != nil {
			return err
		}
		rows := buildSheetLines(sheet.ID, result)
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		sheet.Lines = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sheet, nil
}

// CreateCostingSheetRevision duplicates the latest revision of a development
// request as revision N+1. A short redis lock serializes concurrent revision
// requests; the unique (development_request_id, revision_no) index backstops
// the lock, and a duplicate-key conflict is retried once against the fresh
// latest revision.
func CreateCostingSheetRevision(ctx context.Context, developmentRequestId int) (*CostingSheet, error) {
	if err := utils.ValidateResourceId[DevelopmentRequest](ctx, developmentRequestId); err != nil {
		return nil, errors.New("development request not found")
	}

	if locker := config.GetRedisLock(); locker != nil {
		lockKey := fmt.Sprintf("costing-sheet-revision:%d", developmentRequestId)
		lock, err := locker.Obtain(ctx, lockKey, 10*time.Second, nil)
		if err == redislock.ErrNotObtained {
			return nil, errors.New("another revision is being created, try again")
		} else if err == nil {
			defer func() { _ = lock.Release(ctx) }()
		}
	}

	sheet, err := duplicateLatestRevision(ctx, developmentRequestId)
	if err != nil && isDuplicateKeyErr(err) {
		sheet, err = duplicateLatestRevision(ctx, developmentRequestId)
	}
	return sheet, err
}

func duplicateLatestRevision(ctx context.Context, developmentRequestId int) (*CostingSheet, error) {
	db := config.GetDB()
	var created CostingSheet
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		latest, err := latestRevisionNo(tx, developmentRequestId)
		if err != nil {
			return err
		}
		if latest == 0 {
			return errors.New("no costing sheet to revise")
		}

		var source CostingSheet
		if err := tx.Where("development_request_id = ? AND revision_no = ?", developmentRequestId, latest).
			First(&source).Error; err != nil {
			return err
		}
		var sourceLines []CostingSheetLine
		if err := tx.Where("costing_sheet_id = ?", source.ID).Order("sort_order").
			Find(&sourceLines).Error; err != nil {
			return err
		}

		created = source
		created.ID = 0
		created.RevisionNo = latest + 1
		created.CreatedAt = time.Time{}
		created.UpdatedAt = time.Time{}
		created.Lines = nil
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		for i := range sourceLines {
			sourceLines[i].ID = 0
			sourceLines[i].CostingSheetId = created.ID
			sourceLines[i].CreatedAt = time.Time{}
			sourceLines[i].UpdatedAt = time.Time{}
		}
		if len(sourceLines) > 0 {
			if err := tx.Create(&sourceLines).Error; err != nil {
				return err
			}
		}
		created.Lines = sourceLines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteCostingSheet removes a revision; only the latest revision of a chain
// can be deleted, so revision numbers stay contiguous.
func DeleteCostingSheet(ctx context.Context, id int) (*CostingSheet, error) {
	sheet, err := utils.FetchModel[CostingSheet](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		latest, err := latestRevisionNo(tx, sheet.DevelopmentRequestId)
		if err != nil {
			return err
		}
		if sheet.RevisionNo != latest {
			return errors.New("only the latest revision can be deleted")
		}
		if err := tx.Where("costing_sheet_id = ?", sheet.ID).Delete(&CostingSheetLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(sheet).Error
	})
	if err != nil {
		return nil, err
	}
	return sheet, nil
}

func GetCostingSheet(ctx context.Context, id int) (*CostingSheet, error) {
	db := config.GetDB()
	var sheet CostingSheet
	if err := db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order")
	}).First(&sheet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &sheet, nil
}

// GetCostingSheets lists every revision of a development request, newest
// first.
func GetCostingSheets(ctx context.Context, developmentRequestId int) ([]*CostingSheet, error) {
	db := config.GetDB()
	var results []*CostingSheet
	if err := db.WithContext(ctx).
		Where("development_request_id = ?", developmentRequestId).
		Order("revision_no desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetLatestCostingSheet returns the highest revision for a development
// request, with lines.
func GetLatestCostingSheet(ctx context.Context, developmentRequestId int) (*CostingSheet, error) {
	db := config.GetDB()
	var sheet CostingSheet
	if err := db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order")
	}).Where("development_request_id = ?", developmentRequestId).
		Order("revision_no desc").First(&sheet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &sheet, nil
}
