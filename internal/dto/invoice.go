package dto

import "invoice-analyzer/internal/models"

// InvoiceResponse mirrors the persisted invoice. Pointer fields serialize as
// null when the extractor found nothing, keeping "absent" visible to clients.
type InvoiceResponse struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	Filename      string   `json:"filename"`
	VendorName    *string  `json:"vendor_name"`
	InvoiceNumber *string  `json:"invoice_number"`
	InvoiceDate   *string  `json:"invoice_date"`
	TotalAmount   *float64 `json:"total_amount"`
	TaxAmount     *float64 `json:"tax_amount"`
	Currency      *string  `json:"currency"`
	RawText       string   `json:"raw_text,omitempty"`
	Processed     bool     `json:"processed"`
	CreatedAt     string   `json:"created_at"`
}

type InvoiceListResponse struct {
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PerPage  int               `json:"per_page"`
	Invoices []InvoiceResponse `json:"invoices"`
}

// AnalyzeResponse is the outcome of a full extraction pass.
type AnalyzeResponse struct {
	Invoice          InvoiceResponse `json:"invoice"`
	ExtractionMethod string          `json:"extraction_method"`
}

type DashboardStatsResponse struct {
	TotalInvoices      int                   `json:"total_invoices"`
	TotalExpenses      float64               `json:"total_expenses"`
	TopVendors         []models.VendorStat   `json:"top_vendors"`
	ExpensesByCurrency []models.CurrencyStat `json:"expenses_by_currency"`
}
