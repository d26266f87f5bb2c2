package models_test

import (
	"testing"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/models"
	"github.com/shopspring/decimal"
)

// Walks a full purchase cycle: order, receiving, credit note for a partial
// return, debit note for an extra charge. Verifies the payable balance
// after every posting and the VAT book rows.
func TestPurchaseReconciliationCycle(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	warehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Central"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Importadora del Este"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Placa electronica", Sku: "PLC-1"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	orderDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierId:    supplier.ID,
		WarehouseId:   warehouse.ID,
		OrderDate:     orderDate,
		CurrentStatus: models.PurchaseOrderStatusConfirmed,
		Details: []models.NewPurchaseOrderDetail{
			{ProductId: product.ID, Name: product.Name, Qty: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(1000), VatRate: models.VatRate10},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}

	// Receiving an unconfirmed order is illegal.
	draft, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierId:  supplier.ID,
		WarehouseId: warehouse.ID,
		OrderDate:   orderDate,
		Details: []models.NewPurchaseOrderDetail{
			{ProductId: product.ID, Name: product.Name, Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1000)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder(draft): %v", err)
	}
	_, err = models.CreatePurchaseInvoiceFromReceiving(ctx, &models.NewPurchaseInvoice{
		PurchaseOrderId: draft.ID,
		InvoiceNumber:   "001-001-0000122",
		InvoiceDate:     orderDate,
	})
	if !models.IsKind(err, models.ErrorKindInvalidStateTransition) {
		t.Fatalf("expected InvalidStateTransition for draft receiving, got %v", err)
	}

	invoiceDate := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	invoice, err := models.CreatePurchaseInvoiceFromReceiving(ctx, &models.NewPurchaseInvoice{
		PurchaseOrderId: order.ID,
		InvoiceNumber:   "001-001-0000123",
		InvoiceDate:     invoiceDate,
	})
	if err != nil {
		t.Fatalf("CreatePurchaseInvoiceFromReceiving: %v", err)
	}
	if invoice.TotalAmount.Cmp(decimal.NewFromInt(10000)) != 0 {
		t.Fatalf("expected invoice total 10000, got %s", invoice.TotalAmount)
	}

	onHand, _ := models.GetStockOnHand(ctx, warehouse.ID, product.ID)
	if onHand.Cmp(decimal.NewFromInt(10)) != 0 {
		t.Fatalf("expected 10 on hand after receiving, got %s", onHand)
	}

	chain, err := models.GetPurchaseChain(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetPurchaseChain: %v", err)
	}
	if chain.Payable == nil || chain.Payable.OutstandingBalance.Cmp(decimal.NewFromInt(10000)) != 0 {
		t.Fatalf("expected payable outstanding 10000, got %+v", chain.Payable)
	}
	if chain.Payable.Status != models.PayableStatusPending {
		t.Fatalf("expected Pending payable, got %s", chain.Payable.Status)
	}
	if chain.Order == nil || chain.Order.CurrentStatus != models.PurchaseOrderStatusReceived {
		t.Fatalf("expected Received order in chain, got %+v", chain.Order)
	}

	// Over-return is rejected per line.
	_, err = models.ApplyCreditNote(ctx, &models.NewCreditNote{
		PurchaseInvoiceId: invoice.ID,
		NoteNumber:        "NC-0",
		NoteDate:          invoiceDate,
		Reason:            "defective units",
		Details: []models.NewCreditNoteDetail{
			{ProductId: product.ID, QtyAdjusted: decimal.NewFromInt(11), UnitPrice: decimal.NewFromInt(1000)},
		},
	})
	if !models.IsKind(err, models.ErrorKindValidation) {
		t.Fatalf("expected ValidationError for over-return, got %v", err)
	}

	creditNote, err := models.ApplyCreditNote(ctx, &models.NewCreditNote{
		PurchaseInvoiceId: invoice.ID,
		NoteNumber:        "NC-1",
		NoteDate:          time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Reason:            "defective units",
		Details: []models.NewCreditNoteDetail{
			{ProductId: product.ID, QtyAdjusted: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(1000)},
		},
	})
	if err != nil {
		t.Fatalf("ApplyCreditNote: %v", err)
	}
	if creditNote.TotalAmount.Cmp(decimal.NewFromInt(3000)) != 0 {
		t.Fatalf("expected credit note total 3000, got %s", creditNote.TotalAmount)
	}
	payable, err := models.GetPayable(ctx, chain.Payable.ID)
	if err != nil {
		t.Fatalf("GetPayable: %v", err)
	}
	if payable.OutstandingBalance.Cmp(decimal.NewFromInt(7000)) != 0 {
		t.Fatalf("expected outstanding 7000 after credit note, got %s", payable.OutstandingBalance)
	}
	if payable.Status != models.PayableStatusPartiallyPaid {
		t.Fatalf("expected PartiallyPaid after credit note, got %s", payable.Status)
	}
	onHand, _ = models.GetStockOnHand(ctx, warehouse.ID, product.ID)
	if onHand.Cmp(decimal.NewFromInt(7)) != 0 {
		t.Fatalf("expected 7 on hand after return, got %s", onHand)
	}

	debitNote, err := models.ApplyDebitNote(ctx, &models.NewDebitNote{
		PurchaseInvoiceId: invoice.ID,
		NoteNumber:        "ND-1",
		NoteDate:          time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Reason:            "freight charge",
		Gravada10:         decimal.NewFromInt(1100),
	})
	if err != nil {
		t.Fatalf("ApplyDebitNote: %v", err)
	}
	if debitNote.Iva10.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("expected iva10=100, got %s", debitNote.Iva10)
	}
	if debitNote.TotalAmount.Cmp(decimal.NewFromInt(1100)) != 0 {
		t.Fatalf("expected debit note total 1100, got %s", debitNote.TotalAmount)
	}

	payable, _ = models.GetPayable(ctx, chain.Payable.ID)
	if payable.OutstandingBalance.Cmp(decimal.NewFromInt(8100)) != 0 {
		t.Fatalf("expected outstanding 8100 after debit note, got %s", payable.OutstandingBalance)
	}
	if payable.TotalAmount.Cmp(decimal.NewFromInt(11100)) != 0 {
		t.Fatalf("expected payable total 11100 after debit note, got %s", payable.TotalAmount)
	}

	// Same note number for the same supplier is rejected, not re-applied.
	_, err = models.ApplyDebitNote(ctx, &models.NewDebitNote{
		PurchaseInvoiceId: invoice.ID,
		NoteNumber:        "ND-1",
		NoteDate:          time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		Reason:            "freight charge",
		Gravada10:         decimal.NewFromInt(1100),
	})
	if !models.IsKind(err, models.ErrorKindValidation) {
		t.Fatalf("expected ValidationError for duplicate debit note, got %v", err)
	}
	payable, _ = models.GetPayable(ctx, chain.Payable.ID)
	if payable.OutstandingBalance.Cmp(decimal.NewFromInt(8100)) != 0 {
		t.Fatalf("duplicate debit note mutated payable: %s", payable.OutstandingBalance)
	}

	entries, err := models.GetVatBookEntries(ctx, 2026, time.March)
	if err != nil {
		t.Fatalf("GetVatBookEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 VAT book rows (invoice + debit note), got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.PurchaseInvoiceId != invoice.ID {
			t.Fatalf("VAT book row %s does not reference invoice %d", entry.DocumentNumber, invoice.ID)
		}
	}

	chain, err = models.GetPurchaseChain(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetPurchaseChain: %v", err)
	}
	if len(chain.CreditNotes) != 1 || len(chain.DebitNotes) != 1 {
		t.Fatalf("expected 1 credit + 1 debit note in chain, got %d/%d", len(chain.CreditNotes), len(chain.DebitNotes))
	}
}

// Two identical debit notes posted at the same time must apply exactly
// once. The unique index on (business, supplier, note number) backstops the
// pre-insert duplicate check when both callers pass it before either
// commits.
func TestConcurrentDuplicateDebitNotes(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	warehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Central"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Importadora del Este"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Placa electronica", Sku: "PLC-1"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	orderDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierId:    supplier.ID,
		WarehouseId:   warehouse.ID,
		OrderDate:     orderDate,
		CurrentStatus: models.PurchaseOrderStatusConfirmed,
		Details: []models.NewPurchaseOrderDetail{
			{ProductId: product.ID, Name: product.Name, Qty: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(2000), VatRate: models.VatRate10},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	invoice, err := models.CreatePurchaseInvoiceFromReceiving(ctx, &models.NewPurchaseInvoice{
		PurchaseOrderId: order.ID,
		InvoiceNumber:   "001-001-0000200",
		InvoiceDate:     orderDate,
	})
	if err != nil {
		t.Fatalf("CreatePurchaseInvoiceFromReceiving: %v", err)
	}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := models.ApplyDebitNote(ctx, &models.NewDebitNote{
				PurchaseInvoiceId: invoice.ID,
				NoteNumber:        "ND-77",
				NoteDate:          orderDate,
				Reason:            "freight charge",
				Gravada10:         decimal.NewFromInt(1100),
			})
			results <- err
		}()
	}

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			failures++
			if !models.IsKind(err, models.ErrorKindValidation) {
				t.Fatalf("losing debit note returned unexpected error: %v", err)
			}
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one losing debit note, got %d failures", failures)
	}

	notes, err := models.GetDebitNotesByInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetDebitNotesByInvoice: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 debit note, got %d", len(notes))
	}

	chain, err := models.GetPurchaseChain(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetPurchaseChain: %v", err)
	}
	if chain.Payable.OutstandingBalance.Cmp(decimal.NewFromInt(11100)) != 0 {
		t.Fatalf("expected outstanding 11100 after one debit note, got %s", chain.Payable.OutstandingBalance)
	}
	if chain.Payable.TotalAmount.Cmp(decimal.NewFromInt(11100)) != 0 {
		t.Fatalf("expected payable total 11100 after one debit note, got %s", chain.Payable.TotalAmount)
	}
}
