package domain

// Branch is one physical location under a tenant. The numeric code is what
// the upstream API expects as "bcode".
type Branch struct {
	Code   string `json:"branch_code"`
	Name   string `json:"branch_name"`
	Tenant string `json:"tenant"`
	Num    int    `json:"branch_num"`
}

// The branch catalogue is static configuration: the upstream API offers no
// branch discovery endpoint, so the set is maintained here per tenant.
var nilaBranches = []Branch{
	{Code: "BR001", Name: "BABA DOGO HQ", Tenant: "NILA", Num: 1},
	{Code: "BR002", Name: "ACCRA NILA", Tenant: "NILA", Num: 2},
	{Code: "BR003", Name: "RONALD NILA", Tenant: "NILA", Num: 3},
	{Code: "BR004", Name: "MFANGANO NILA", Tenant: "NILA", Num: 4},
	{Code: "BR006", Name: "TOM MBOYA", Tenant: "NILA", Num: 6},
	{Code: "BR007", Name: "NAKURU NILA", Tenant: "NILA", Num: 7},
	{Code: "BR011", Name: "MOUNTAIN MALL", Tenant: "NILA", Num: 11},
	{Code: "BR014", Name: "JUJA CITY MALL", Tenant: "NILA", Num: 14},
	{Code: "BR015", Name: "ELDORET NILA", Tenant: "NILA", Num: 15},
	{Code: "BR016", Name: "NILA JEWEL", Tenant: "NILA", Num: 16},
	{Code: "BR017", Name: "LATEMA NILA", Tenant: "NILA", Num: 17},
	{Code: "BR018", Name: "MEPALUX BRANCH", Tenant: "NILA", Num: 18},
	{Code: "BR020", Name: "NILA RONGAI BRANCH", Tenant: "NILA", Num: 20},
	{Code: "BR021", Name: "NILA MOI AVENUE", Tenant: "NILA", Num: 21},
	{Code: "BR023", Name: "NILA MOMBASA BRANCH", Tenant: "NILA", Num: 23},
	{Code: "BR0024", Name: "HOLDING STORE", Tenant: "NILA", Num: 24},
	{Code: "BR0025", Name: "GILL HOUSE", Tenant: "NILA", Num: 25},
	{Code: "BR0026", Name: "NILA ACCRA ARCADE", Tenant: "NILA", Num: 26},
	{Code: "BR0027", Name: "RONGAI WHOLESALE", Tenant: "NILA", Num: 27},
}

var daimaBranches = []Branch{
	{Code: "BR008", Name: "DAIMA MERU RETAIL", Tenant: "DAIMA", Num: 8},
	{Code: "BR009", Name: "DAIMA THIKA RETAIL", Tenant: "DAIMA", Num: 9},
	{Code: "BR012", Name: "DAIMA WHOLESALE THIKA", Tenant: "DAIMA", Num: 12},
	{Code: "BR013", Name: "DAIMA MERU WHOLESALE", Tenant: "DAIMA", Num: 13},
	{Code: "BR022", Name: "DAIMA MAKUTANO", Tenant: "DAIMA", Num: 22},
}

// purchaseOrderBranchCodes are the branches that raise purchase orders
// against external suppliers. The same subset receives supplier invoices.
var purchaseOrderBranchCodes = map[string]bool{
	"BR001": true,
	"BR008": true,
	"BR009": true,
	"BR012": true,
	"BR013": true,
	"BR022": true,
}

// goodsReceivedBranchCodes are the branches whose goods received notes
// are ingested. Only the Meru wholesale branch books deliveries through
// the GRN workflow.
var goodsReceivedBranchCodes = map[string]bool{
	"BR013": true,
}

// hqServedBranchNames are the branch account names invoiced by the HQ
// branch (BR001); HQ invoice fetching is filtered to these.
var hqServedBranchNames = map[string]bool{
	"DAIMA MERU RETAIL":            true,
	"DAIMA THIKA RETAIL":           true,
	"DAIMA BIASHARA THIKA WHOLESALE": true,
	"DAIMA MERU WHOLESALE":         true,
	"DAIMA MAKUTANO RETAILS":       true,
}

// HQBranchNum is the numeric code of the headquarters branch that issues
// sales invoices and branch transfers to the served branches.
const HQBranchNum = 1

// Branches returns every branch for a tenant, or nil for unknown tenants.
func Branches(tenant string) []Branch {
	switch tenant {
	case "NILA":
		return nilaBranches
	case "DAIMA":
		return daimaBranches
	}
	return nil
}

// BranchesForDomain returns the branches of a tenant that participate in
// the given data domain. Branch orders and stock apply everywhere;
// purchase orders and supplier invoices only to the procurement branches,
// goods received notes only to the GRN branches.
func BranchesForDomain(tenant string, d DataDomain) []Branch {
	all := Branches(tenant)
	switch d {
	case DomainPurchaseOrders, DomainSupplierInvoices:
		return subsetByCode(all, purchaseOrderBranchCodes)
	case DomainGoodsReceived:
		return subsetByCode(all, goodsReceivedBranchCodes)
	default:
		return all
	}
}

func subsetByCode(all []Branch, codes map[string]bool) []Branch {
	var subset []Branch
	for _, b := range all {
		if codes[b.Code] {
			subset = append(subset, b)
		}
	}
	return subset
}

// HQServedBranch reports whether an invoice account name belongs to a
// branch served by headquarters.
func HQServedBranch(accountName string) bool {
	return hqServedBranchNames[accountName]
}

// BranchName resolves a branch code to its display name, falling back to
// the code itself for branches missing from the catalogue.
func BranchName(code string) string {
	for _, b := range nilaBranches {
		if b.Code == code {
			return b.Name
		}
	}
	for _, b := range daimaBranches {
		if b.Code == code {
			return b.Name
		}
	}
	return code
}
