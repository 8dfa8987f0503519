package driven

import (
	"context"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

// DocumentHeader is one entry from an upstream document listing.
type DocumentHeader struct {
	Number string // document number as printed, e.g. "PO-BR013-1042"
	Date   string // YYYY-MM-DD
	// OrderRef is the raw order reference some detail endpoints require
	// instead of the document number (branch orders).
	OrderRef string
	// Account is the customer/branch account name on HQ sales invoices.
	Account string
	// Supplier and Comments are carried on goods received note headers;
	// their detail rows repeat neither.
	Supplier string
	Comments string
}

// LineItem is one detail row of an upstream document. Fields not present
// for a given domain are left zero.
type LineItem struct {
	ItemCode       string
	ItemName       string
	Quantity       float64
	UnitPrice      float64
	Total          float64
	VAT            float64
	Net            float64
	SupplierName   string
	SenderBranch   string // branch code
	ReceiverBranch string // branch code
	Reference      string
	Comments       string
	DoneBy         string
	Status         string
}

// StockItem is one row of a branch stock position snapshot.
type StockItem struct {
	ItemCode    string
	ItemName    string
	StockString string
	Quantity    float64
	PackSize    int
	UnitPrice   float64
}

// UpstreamAPI is the tenant-facing surface of the upstream ERP. All calls
// expect a bearer token obtained via Login and retry transient failures
// internally; a 4xx is terminal.
type UpstreamAPI interface {
	// Login authenticates and returns a bearer token.
	// Returns domain.ErrAuthFailed on rejected credentials.
	Login(ctx context.Context, cred *domain.Credential) (string, error)

	// BranchStock returns the full current stock position of a branch.
	BranchStock(ctx context.Context, cred *domain.Credential, token string, branchNum int) ([]StockItem, error)

	PurchaseOrders(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]DocumentHeader, error)
	PurchaseOrderDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, docNumber string) ([]LineItem, error)

	BranchOrders(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]DocumentHeader, error)
	BranchOrderDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, orderRef string) ([]LineItem, error)

	SupplierInvoices(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]DocumentHeader, error)
	SupplierInvoiceDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, docNumber string) ([]LineItem, error)

	GoodsReceivedNotes(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]DocumentHeader, error)
	// GoodsReceivedNoteDetail keys on the full printed note number, not a
	// numeric tail.
	GoodsReceivedNoteDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, noteNumber string) ([]LineItem, error)

	// HQ document streams are always read from the headquarters branch.
	HQSalesInvoices(ctx context.Context, cred *domain.Credential, token string, window domain.Window) ([]DocumentHeader, error)
	HQSalesInvoiceDetail(ctx context.Context, cred *domain.Credential, token string, docNumber string) ([]LineItem, error)
	HQBranchTransfers(ctx context.Context, cred *domain.Credential, token string, window domain.Window) ([]DocumentHeader, error)
	HQBranchTransferDetail(ctx context.Context, cred *domain.Credential, token string, docID string) ([]LineItem, error)
}
