package models

import (
	"log"

	"bitbucket.org/stitchfocus/garment_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Customer{}, &Supplier{}, &Factory{}, &Material{},
		&Style{}, &DevelopmentRequest{},
		&CostingSheet{}, &CostingSheetLine{},
		&PurchaseOrder{}, &PurchaseOrderDetail{},
		&OrderCost{},
		&Invoice{}, &InvoicePayment{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
