package models

// Enum columns are stored as strings; MySQL enum types are declared on the
// model fields (see the gorm tags) the same way across every document type.

type StockMovementKind string

const (
	StockMovementKindAdjustment StockMovementKind = "Adjustment"
	StockMovementKindTransfer   StockMovementKind = "Transfer"
)

type AdjustmentDirection string

const (
	AdjustmentDirectionIn  AdjustmentDirection = "In"
	AdjustmentDirectionOut AdjustmentDirection = "Out"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusConfirmed PurchaseOrderStatus = "Confirmed"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "Received"
	PurchaseOrderStatusClosed    PurchaseOrderStatus = "Closed"
)

type PayableStatus string

const (
	PayableStatusPending       PayableStatus = "Pending"
	PayableStatusPartiallyPaid PayableStatus = "PartiallyPaid"
	PayableStatusPaid          PayableStatus = "Paid"
)

// VatRate is one of the two observed VAT regimes plus the exempt bucket.
type VatRate string

const (
	VatRate10     VatRate = "Rate10"
	VatRate5      VatRate = "Rate5"
	VatRateExempt VatRate = "Exempt"
)

type VatBookDocumentType string

const (
	VatBookDocumentTypePurchaseInvoice VatBookDocumentType = "PurchaseInvoice"
	VatBookDocumentTypeDebitNote       VatBookDocumentType = "DebitNote"
)

type ServiceItemState string

const (
	ServiceItemStateReceived  ServiceItemState = "Received"
	ServiceItemStateDiagnosed ServiceItemState = "Diagnosed"
	ServiceItemStateQuoted    ServiceItemState = "Quoted"
	ServiceItemStateInRepair  ServiceItemState = "InRepair"
	ServiceItemStateRepaired  ServiceItemState = "Repaired"
	ServiceItemStatePickedUp  ServiceItemState = "PickedUp"
)

// serviceItemTransitions holds the legal forward edges of the repair
// lifecycle. Re-diagnosis (Diagnosed -> Diagnosed) is the only self edge;
// the warranty claim path never transitions an item backwards, it spawns a
// fresh item in Received instead.
var serviceItemTransitions = map[ServiceItemState][]ServiceItemState{
	ServiceItemStateReceived:  {ServiceItemStateDiagnosed},
	ServiceItemStateDiagnosed: {ServiceItemStateDiagnosed, ServiceItemStateQuoted},
	ServiceItemStateQuoted:    {ServiceItemStateInRepair, ServiceItemStatePickedUp},
	ServiceItemStateInRepair:  {ServiceItemStateRepaired},
	ServiceItemStateRepaired:  {ServiceItemStatePickedUp},
	ServiceItemStatePickedUp:  {},
}

func (s ServiceItemState) CanTransitionTo(next ServiceItemState) bool {
	for _, allowed := range serviceItemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ServiceQuoteStatus string

const (
	ServiceQuoteStatusPendingApproval ServiceQuoteStatus = "PendingApproval"
	ServiceQuoteStatusApproved        ServiceQuoteStatus = "Approved"
	ServiceQuoteStatusRejected        ServiceQuoteStatus = "Rejected"
)

type ServiceQuoteItemKind string

const (
	ServiceQuoteItemKindPart  ServiceQuoteItemKind = "Part"
	ServiceQuoteItemKindLabor ServiceQuoteItemKind = "Labor"
)

type WorkItemSource string

const (
	WorkItemSourceUsed  WorkItemSource = "Used"
	WorkItemSourceAdded WorkItemSource = "Added"
)

type WarrantyStatus string

const (
	WarrantyStatusActive  WarrantyStatus = "Active"
	WarrantyStatusClaimed WarrantyStatus = "Claimed"
)

// module names for document number series
const (
	ModuleStockAdjustment  = "StockAdjustment"
	ModuleStockTransfer    = "StockTransfer"
	ModulePurchaseOrder    = "PurchaseOrder"
	ModulePurchaseInvoice  = "PurchaseInvoice"
	ModuleCreditNote       = "CreditNote"
	ModuleDebitNote        = "DebitNote"
	ModuleServiceReception = "ServiceReception"
	ModuleServiceItem      = "ServiceItem"
	ModuleServiceQuote     = "ServiceQuote"
)
