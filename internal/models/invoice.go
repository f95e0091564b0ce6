package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice is the persisted form of one analyzed document. Extracted columns
// are pointers: a nil field means the extractor did not find it, which is a
// different statement than an empty string or zero amount.
type Invoice struct {
	ID            uuid.UUID  `db:"id"`
	UserID        uuid.UUID  `db:"user_id"`
	Filename      string     `db:"filename"`
	VendorName    *string    `db:"vendor_name"`
	InvoiceNumber *string    `db:"invoice_number"`
	InvoiceDate   *string    `db:"invoice_date"`
	TotalAmount   *float64   `db:"total_amount"`
	TaxAmount     *float64   `db:"tax_amount"`
	Currency      *string    `db:"currency"`
	RawText       string     `db:"raw_text"`
	Processed     bool       `db:"processed"`
	CreatedAt     time.Time  `db:"created_at"`
}

// VendorStat is one row of the top-vendors aggregation.
type VendorStat struct {
	VendorName string  `json:"vendor_name"`
	Count      int     `json:"count"`
	Sum        float64 `json:"sum"`
}

// CurrencyStat is the per-currency expense aggregation.
type CurrencyStat struct {
	Currency string  `json:"currency"`
	Sum      float64 `json:"sum"`
}

type DashboardStats struct {
	TotalInvoices      int            `json:"total_invoices"`
	TotalExpenses      float64        `json:"total_expenses"`
	TopVendors         []VendorStat   `json:"top_vendors"`
	ExpensesByCurrency []CurrencyStat `json:"expenses_by_currency"`
}
