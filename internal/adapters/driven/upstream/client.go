package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UpstreamAPI = (*Client)(nil)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
	requestTimeout    = 30 * time.Second
	hqBranchCode      = 1
)

// tenantDatabases maps a tenant to the report database name some
// endpoints require alongside the branch code.
var tenantDatabases = map[string]string{
	"NILA":  "PNLCUS0005DBREP",
	"DAIMA": "P0757DB",
}

// Client talks to the upstream ERP API. One client serves every tenant;
// the base URL and token come from the per-call credential and session.
// Transient failures (5xx, transport errors) are retried with a fixed
// delay; 4xx responses are terminal.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// ClientConfig holds dependencies for Client.
type ClientConfig struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient creates a new upstream API client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// wireDocument is one entry of an upstream document listing.
type wireDocument struct {
	DocNumber string      `json:"docNumber"`
	DocDate   string      `json:"docDate"`
	DocID     json.Number `json:"docID"`
	AcctName  string      `json:"acctName"`
}

// wireLine is one detail row. The upstream reuses these prefixed field
// names across every document type.
type wireLine struct {
	ItemCode       string  `json:"dT_ItemCode"`
	ItemName       string  `json:"dT_ItemName"`
	Quantity       float64 `json:"dT_Quantity"`
	Price          float64 `json:"dT_Price"`
	Total          float64 `json:"dT_Total"`
	VAT            float64 `json:"dT_Vatt"`
	Net            float64 `json:"dT_Nett"`
	SuppName       string  `json:"suppName"`
	SupplierName   string  `json:"hD2_SUPPLIERNAME"`
	SenderBranch   string  `json:"hD2_SenderBranch"`
	ReceiverBranch string  `json:"hD2_ReceiverBranch"`
	Reference      string  `json:"hD2_Reference"`
	Comments       string  `json:"hD2_Comments"`
	DoneBy         string  `json:"hD2_Doneby"`
	DocStatus      string  `json:"hD2_Docstatus"`
}

type wireStockItem struct {
	Code        string  `json:"inV_CODE"`
	Description string  `json:"description"`
	StockString string  `json:"calcpw"`
	Quantity    float64 `json:"calcQty"`
	PackQty     int     `json:"pacK_QTY"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Login authenticates and returns a bearer token.
func (c *Client) Login(ctx context.Context, cred *domain.Credential) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"userName": cred.Username,
		"password": cred.Secret,
	})
	if err != nil {
		return "", fmt.Errorf("encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(cred.BaseURL, "/")+"/Auth", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", domain.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: login response carried no token", domain.ErrMalformedResponse)
	}
	return body.Token, nil
}

// BranchStock returns the full current stock position of a branch.
func (c *Client) BranchStock(ctx context.Context, cred *domain.Credential, token string, branchNum int) ([]driven.StockItem, error) {
	params := url.Values{
		"bcode":            {fmt.Sprint(branchNum)},
		"invcode":          {""},
		"subgroupcode":     {""},
		"packagecode":      {""},
		"stockstatus":      {""},
		"numberOfItems":    {"10000"},
		"moleculename":     {""},
		"moleculestrength": {""},
		"groupcode":        {""},
		"manufacturercode": {""},
	}

	raw, err := c.get(ctx, cred, token, "/api/StockCentral/BranchStockPosition", params)
	if err != nil {
		return nil, err
	}

	var wire []wireStockItem
	if err := decodeList(raw, "data", &wire); err != nil {
		return nil, err
	}

	items := make([]driven.StockItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, driven.StockItem{
			ItemCode:    w.Code,
			ItemName:    w.Description,
			StockString: w.StockString,
			Quantity:    w.Quantity,
			PackSize:    w.PackQty,
			UnitPrice:   w.UnitPrice,
		})
	}
	return items, nil
}

// PurchaseOrders lists purchase order documents for a branch and window.
func (c *Client) PurchaseOrders(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]driven.DocumentHeader, error) {
	params := url.Values{
		"bcode":     {fmt.Sprint(branchNum)},
		"search":    {""},
		"startDate": {apiDate(window.Start)},
		"endDate":   {apiDate(window.End)},
		"batched":   {"true"},
	}
	return c.listDocuments(ctx, cred, token, "/api/PurchaseOrder/GetPurchaseOrders", params)
}

// PurchaseOrderDetail returns the line items of one purchase order.
func (c *Client) PurchaseOrderDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, docNumber string) ([]driven.LineItem, error) {
	params := url.Values{
		"bcode":            {fmt.Sprint(branchNum)},
		"purchaseOrderNum": {docNumber},
	}
	return c.listLines(ctx, cred, token, "/api/PurchaseOrder/GetPurchaseOrdersDetails", params, "data")
}

// BranchOrders lists branch order documents for a branch and window.
func (c *Client) BranchOrders(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]driven.DocumentHeader, error) {
	params := url.Values{
		"bcode":     {fmt.Sprint(branchNum)},
		"startDate": {apiDate(window.Start)},
		"endDate":   {apiDate(window.End)},
		"amount":    {""},
		"account":   {""},
		"reference": {""},
		"batched":   {"true"},
	}
	headers, err := c.listDocuments(ctx, cred, token, "/api/BranchOrders/GetOrderDocuments", params)
	if err != nil {
		return nil, err
	}
	// The branch order detail endpoint wants the printed number, not a
	// numeric ID.
	for i := range headers {
		headers[i].OrderRef = headers[i].Number
	}
	return headers, nil
}

// BranchOrderDetail returns the line items of one branch order.
func (c *Client) BranchOrderDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, orderRef string) ([]driven.LineItem, error) {
	params := url.Values{
		"bcode":    {fmt.Sprint(branchNum)},
		"ordernum": {orderRef},
	}
	return c.listLines(ctx, cred, token, "/api/BranchOrders/GetBranchOrder", params, "data")
}

// SupplierInvoices lists supplier invoice documents for a branch and window.
func (c *Client) SupplierInvoices(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]driven.DocumentHeader, error) {
	params := url.Values{
		"bcode":        {fmt.Sprint(branchNum)},
		"batched":      {""},
		"account":      {""},
		"startDate":    {apiDate(window.Start)},
		"endDate":      {apiDate(window.End)},
		"reference":    {""},
		"amount":       {""},
		"dataBaseName": {tenantDatabases[cred.Tenant]},
	}
	return c.listDocuments(ctx, cred, token, "/api/SupplierInvoice/GetSupplierInvoices", params)
}

// SupplierInvoiceDetail returns the line items of one supplier invoice.
func (c *Client) SupplierInvoiceDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, docNumber string) ([]driven.LineItem, error) {
	params := url.Values{
		"bcode":        {fmt.Sprint(branchNum)},
		"suppInvNum":   {docNumber},
		"dataBaseName": {tenantDatabases[cred.Tenant]},
	}
	return c.listLines(ctx, cred, token, "/api/SupplierInvoice/GetsupplierInvoiceDetails", params, "data")
}

// wireGRNDocument is one entry of a goods received note listing. The GRN
// endpoints use their own header field names.
type wireGRNDocument struct {
	GRNNumber string `json:"grnNumber"`
	GRNDate   string `json:"grnDate"`
	SuppName  string `json:"suppName"`
	Comments  string `json:"comments"`
}

// GoodsReceivedNotes lists goods received notes for a branch and window.
func (c *Client) GoodsReceivedNotes(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]driven.DocumentHeader, error) {
	params := url.Values{
		"bcode":     {fmt.Sprint(branchNum)},
		"startDate": {apiDate(window.Start)},
		"endDate":   {apiDate(window.End)},
		"search":    {""},
		"batched":   {"true"},
	}

	raw, err := c.get(ctx, cred, token, "/api/GoodsReceived/GetGRNs", params)
	if err != nil {
		return nil, err
	}

	var wire []wireGRNDocument
	if err := decodeList(raw, "data", &wire); err != nil {
		return nil, err
	}

	headers := make([]driven.DocumentHeader, 0, len(wire))
	for _, w := range wire {
		if w.GRNNumber == "" {
			continue
		}
		headers = append(headers, driven.DocumentHeader{
			Number:   strings.TrimSpace(w.GRNNumber),
			Date:     normalizeDate(w.GRNDate),
			Supplier: w.SuppName,
			Comments: w.Comments,
		})
	}
	return headers, nil
}

// GoodsReceivedNoteDetail returns the line items of one goods received
// note. The endpoint wants the full printed note number.
func (c *Client) GoodsReceivedNoteDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, noteNumber string) ([]driven.LineItem, error) {
	params := url.Values{
		"bcode":  {fmt.Sprint(branchNum)},
		"grnnum": {noteNumber},
	}
	return c.listLines(ctx, cred, token, "/api/GoodsReceived/GetGRNDetails", params, "data")
}

// HQSalesInvoices lists sales invoices issued by the HQ branch.
func (c *Client) HQSalesInvoices(ctx context.Context, cred *domain.Credential, token string, window domain.Window) ([]driven.DocumentHeader, error) {
	params := url.Values{
		"bcode":         {fmt.Sprint(hqBranchCode)},
		"startDate":     {apiDate(window.Start)},
		"endDate":       {apiDate(window.End)},
		"batched":       {"true"},
		"cusRef":        {""},
		"account":       {""},
		"amount":        {""},
		"salesCategory": {"0"},
		"viewall":       {"true"},
	}
	return c.listDocuments(ctx, cred, token, "/api/SalesInvoice/GetSalesInvoice", params)
}

// HQSalesInvoiceDetail returns the line items of one HQ sales invoice.
// The response nests its rows under a dedicated key.
func (c *Client) HQSalesInvoiceDetail(ctx context.Context, cred *domain.Credential, token string, docNumber string) ([]driven.LineItem, error) {
	params := url.Values{
		"bcode":     {fmt.Sprint(hqBranchCode)},
		"invNumber": {docNumber},
	}
	return c.listLines(ctx, cred, token, "/api/SalesInvoice/GetSalesInvoiceDetails", params, "salesinvoicedetails")
}

// HQBranchTransfers lists posted branch transfers issued by the HQ branch.
func (c *Client) HQBranchTransfers(ctx context.Context, cred *domain.Credential, token string, window domain.Window) ([]driven.DocumentHeader, error) {
	params := url.Values{
		"bcode":     {fmt.Sprint(hqBranchCode)},
		"posted":    {"true"},
		"startDate": {apiDate(window.Start)},
		"endDate":   {apiDate(window.End)},
		"reference": {""},
		"amount":    {""},
	}
	return c.listDocuments(ctx, cred, token, "/api/BranchTransfer/GetBranchTransfers", params)
}

// HQBranchTransferDetail returns the line items of one branch transfer.
func (c *Client) HQBranchTransferDetail(ctx context.Context, cred *domain.Credential, token string, docID string) ([]driven.LineItem, error) {
	params := url.Values{
		"bcode": {fmt.Sprint(hqBranchCode)},
		"docID": {docID},
	}
	return c.listLines(ctx, cred, token, "/api/BranchTransfer/GetBranchTransfersDetails", params, "data")
}

func (c *Client) listDocuments(ctx context.Context, cred *domain.Credential, token, path string, params url.Values) ([]driven.DocumentHeader, error) {
	raw, err := c.get(ctx, cred, token, path, params)
	if err != nil {
		return nil, err
	}

	var wire []wireDocument
	if err := decodeList(raw, "data", &wire); err != nil {
		return nil, err
	}

	headers := make([]driven.DocumentHeader, 0, len(wire))
	for _, w := range wire {
		if w.DocNumber == "" {
			continue
		}
		headers = append(headers, driven.DocumentHeader{
			Number:   strings.TrimSpace(w.DocNumber),
			Date:     normalizeDate(w.DocDate),
			OrderRef: w.DocID.String(),
			Account:  w.AcctName,
		})
	}
	return headers, nil
}

func (c *Client) listLines(ctx context.Context, cred *domain.Credential, token, path string, params url.Values, wrapperKey string) ([]driven.LineItem, error) {
	raw, err := c.get(ctx, cred, token, path, params)
	if err != nil {
		return nil, err
	}

	var wire []wireLine
	if err := decodeList(raw, wrapperKey, &wire); err != nil {
		return nil, err
	}

	lines := make([]driven.LineItem, 0, len(wire))
	for _, w := range wire {
		supplier := w.SupplierName
		if supplier == "" {
			supplier = w.SuppName
		}
		lines = append(lines, driven.LineItem{
			ItemCode:       w.ItemCode,
			ItemName:       w.ItemName,
			Quantity:       w.Quantity,
			UnitPrice:      w.Price,
			Total:          w.Total,
			VAT:            w.VAT,
			Net:            w.Net,
			SupplierName:   supplier,
			SenderBranch:   w.SenderBranch,
			ReceiverBranch: w.ReceiverBranch,
			Reference:      w.Reference,
			Comments:       w.Comments,
			DoneBy:         w.DoneBy,
			Status:         w.DocStatus,
		})
	}
	return lines, nil
}

// get performs a GET with retries. 5xx responses and transport errors are
// retried; 400 yields an empty body (the upstream uses it for "no data"),
// 401 is terminal auth failure.
func (c *Client) get(ctx context.Context, cred *domain.Credential, token, path string, params url.Values) (json.RawMessage, error) {
	endpoint := strings.TrimSuffix(cred.BaseURL, "/") + path + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request %s: %w", path, err)
			c.logger.Warn("upstream request failed", "path", path, "attempt", attempt, "error", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = fmt.Errorf("read response %s: %w", path, readErr)
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusBadRequest:
			return nil, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, domain.ErrAuthFailed
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("request %s: upstream returned %d", path, resp.StatusCode)
			c.logger.Warn("upstream server error", "path", path, "status", resp.StatusCode, "attempt", attempt)
			continue
		default:
			return nil, fmt.Errorf("request %s: upstream returned %d", path, resp.StatusCode)
		}
	}

	return nil, lastErr
}

// decodeList unmarshals a response that is either a bare JSON array or an
// object wrapping the array under wrapperKey. Empty input decodes to an
// empty list.
func decodeList(raw json.RawMessage, wrapperKey string, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		inner, ok := wrapper[wrapperKey]
		if !ok {
			return nil
		}
		trimmed = bytes.TrimSpace(inner)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil
		}
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}

// apiDate formats a time the way the upstream expects dates on the wire.
func apiDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// normalizeDate converts an upstream document date to YYYY-MM-DD. The
// upstream mixes ISO timestamps and DD/MM/YYYY depending on endpoint.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "T"); i > 0 {
		s = s[:i]
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t.Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s
	}
	return s
}
