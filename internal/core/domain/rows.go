package domain

import "time"

// StockRow is the current stock position of one item at one branch.
// Unlike the document rows below it carries no history: each refresh
// replaces the row for its (tenant, branch, item_code) key.
type StockRow struct {
	Tenant        string    `json:"tenant"`
	Branch        string    `json:"branch"`
	ItemCode      string    `json:"item_code"`
	ItemName      string    `json:"item_name"`
	StockString   string    `json:"stock_string"` // e.g. "3W2P" (whole packs + pieces)
	StockPieces   int       `json:"stock_pieces"`
	PackSize      int       `json:"pack_size"`
	UnitPrice     float64   `json:"unit_price"`
	StockValue    float64   `json:"stock_value"`
	SourceUpdated time.Time `json:"source_updated"`
}

// PurchaseOrderRow is one line item of a purchase order raised against an
// external supplier.
type PurchaseOrderRow struct {
	Tenant         string  `json:"tenant"`
	Branch         string  `json:"branch"`
	DocumentNumber string  `json:"document_number"`
	DocumentDate   string  `json:"document_date"` // YYYY-MM-DD
	ItemCode       string  `json:"item_code"`
	ItemName       string  `json:"item_name"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	TotalPrice     float64 `json:"total_price"`
	SupplierName   string  `json:"supplier_name"`
	Reference      string  `json:"reference"`
	Comments       string  `json:"comments"`
	DoneBy         string  `json:"done_by"`
}

// BranchOrderRow is one line item of an inter-branch transfer order.
type BranchOrderRow struct {
	Tenant            string  `json:"tenant"`
	SourceBranch      string  `json:"source_branch"`
	DestinationBranch string  `json:"destination_branch"`
	DocumentNumber    string  `json:"document_number"`
	DocumentDate      string  `json:"document_date"`
	ItemCode          string  `json:"item_code"`
	ItemName          string  `json:"item_name"`
	Quantity          float64 `json:"quantity"`
	UnitPrice         float64 `json:"unit_price"`
	TotalPrice        float64 `json:"total_price"`
	Reference         string  `json:"reference"`
	Comments          string  `json:"comments"`
	DoneBy            string  `json:"done_by"`
	Status            string  `json:"status"`
}

// SupplierInvoiceRow is one line item of an invoice received from an
// external supplier.
type SupplierInvoiceRow struct {
	Tenant         string  `json:"tenant"`
	Branch         string  `json:"branch"`
	DocumentNumber string  `json:"document_number"`
	DocumentDate   string  `json:"document_date"`
	ItemCode       string  `json:"item_code"`
	ItemName       string  `json:"item_name"`
	Units          float64 `json:"units"`
	UnitPrice      float64 `json:"unit_price"`
	TotalAmount    float64 `json:"total_amount"`
	VATAmount      float64 `json:"vat_amount"`
	NetAmount      float64 `json:"net_amount"`
	SupplierName   string  `json:"supplier_name"`
}

// GoodsReceivedRow is one line item of a goods received note recording
// inventory accepted into a branch. Destination and comments come from
// the note header, not the line.
type GoodsReceivedRow struct {
	Tenant         string  `json:"tenant"`
	Branch         string  `json:"branch"`
	DocumentNumber string  `json:"document_number"`
	DocumentDate   string  `json:"document_date"`
	ItemCode       string  `json:"item_code"`
	ItemName       string  `json:"item_name"`
	Quantity       float64 `json:"quantity"`
	Destination    string  `json:"destination"`
	Comments       string  `json:"comments"`
}

// HQRecordType distinguishes the two document streams headquarters issues
// to the branches it serves.
type HQRecordType string

const (
	HQRecordInvoice  HQRecordType = "invoice"
	HQRecordTransfer HQRecordType = "transfer"
)

// HQInvoiceRow is one line item of a headquarters sales invoice or branch
// transfer addressed to a served branch.
type HQInvoiceRow struct {
	Tenant         string       `json:"tenant"`
	Branch         string       `json:"branch"` // receiving branch account name
	RecordType     HQRecordType `json:"record_type"`
	DocumentNumber string       `json:"document_number"`
	DocumentDate   string       `json:"document_date"`
	ItemCode       string       `json:"item_code"`
	ItemName       string       `json:"item_name"`
	Quantity       float64      `json:"quantity"`
	UnitPrice      float64      `json:"unit_price"`
	TotalAmount    float64      `json:"total_amount"`
}
