package domain

import "fmt"

// DataDomain identifies one category of ingested data.
type DataDomain string

const (
	DomainStock            DataDomain = "stock"
	DomainPurchaseOrders   DataDomain = "purchase_orders"
	DomainBranchOrders     DataDomain = "branch_orders"
	DomainSupplierInvoices DataDomain = "supplier_invoices"
	DomainHQInvoices       DataDomain = "hq_invoices"
	DomainGoodsReceived    DataDomain = "goods_received_notes"
)

// AllDomains lists every fetchable domain in orchestration order.
var AllDomains = []DataDomain{
	DomainStock,
	DomainPurchaseOrders,
	DomainBranchOrders,
	DomainSupplierInvoices,
	DomainHQInvoices,
	DomainGoodsReceived,
}

// ValidDomain reports whether d names a known data domain.
func ValidDomain(d DataDomain) bool {
	for _, known := range AllDomains {
		if d == known {
			return true
		}
	}
	return false
}

// DocumentKey identifies one upstream document for idempotency tracking.
// Once a key is recorded the document is never fetched again, even if its
// content changed upstream.
type DocumentKey struct {
	Tenant string     `json:"tenant"`
	Domain DataDomain `json:"domain"`
	Number string     `json:"document_number"`
	Date   string     `json:"document_date"` // YYYY-MM-DD
}

// MemberKey returns the string used for ledger membership checks.
func (k DocumentKey) MemberKey() string {
	return fmt.Sprintf("%s|%s", k.Number, k.Date)
}
