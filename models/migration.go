package models

import (
	"log"

	"bitbucket.org/sistematicapy/taller_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &User{},
		&Warehouse{}, &Product{}, &Supplier{}, &Client{}, &Technician{},
		&DocumentNumberSeries{},
		&StockRecord{}, &StockMovement{},
		&PurchaseOrder{}, &PurchaseOrderDetail{},
		&PurchaseInvoice{}, &PurchaseInvoiceDetail{}, &Payable{},
		&CreditNote{}, &CreditNoteDetail{},
		&DebitNote{}, &VatBookEntry{},
		&Reception{}, &ServiceItem{},
		&ServiceQuote{}, &ServiceQuoteDetail{},
		&WorkRecord{}, &WorkItemDetail{},
		&PickupRecord{}, &Warranty{}, &WarrantyCoveredItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
