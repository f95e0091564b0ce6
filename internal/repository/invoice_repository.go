package repository

import (
	"context"
	"invoice-analyzer/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var invoiceColumns = []string{
	"id", "user_id", "filename", "vendor_name", "invoice_number", "invoice_date",
	"total_amount", "tax_amount", "currency", "raw_text", "processed", "created_at",
}

type InvoiceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInvoiceRepository(db *pgxpool.Pool, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	query := squirrel.Insert("invoices").
		Columns(invoiceColumns...).
		Values(
			invoice.ID, invoice.UserID, invoice.Filename, invoice.VendorName, invoice.InvoiceNumber,
			invoice.InvoiceDate, invoice.TotalAmount, invoice.TaxAmount, invoice.Currency,
			invoice.RawText, invoice.Processed, invoice.CreatedAt,
		).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Invoice, error) {
	query := squirrel.Select(invoiceColumns...).
		From("invoices").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var invoice models.Invoice
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&invoice.ID, &invoice.UserID, &invoice.Filename, &invoice.VendorName, &invoice.InvoiceNumber,
		&invoice.InvoiceDate, &invoice.TotalAmount, &invoice.TaxAmount, &invoice.Currency,
		&invoice.RawText, &invoice.Processed, &invoice.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

// List returns one page of a user's invoices, newest first, together with the
// total number of rows matching the filter.
func (r *InvoiceRepository) List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*models.Invoice, int, error) {
	countQuery := squirrel.Select("COUNT(*)").
		From("invoices").
		Where(squirrel.Eq{"user_id": userID, "processed": true}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := squirrel.Select(invoiceColumns...).
		From("invoices").
		Where(squirrel.Eq{"user_id": userID, "processed": true}).
		OrderBy("created_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = query.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		var invoice models.Invoice
		if err := rows.Scan(
			&invoice.ID, &invoice.UserID, &invoice.Filename, &invoice.VendorName, &invoice.InvoiceNumber,
			&invoice.InvoiceDate, &invoice.TotalAmount, &invoice.TaxAmount, &invoice.Currency,
			&invoice.RawText, &invoice.Processed, &invoice.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, &invoice)
	}

	return invoices, total, nil
}

// SoftDelete hides an invoice from listings and stats without removing the row.
func (r *InvoiceRepository) SoftDelete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := squirrel.Update("invoices").
		Set("processed", false).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (r *InvoiceRepository) HardDelete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := squirrel.Delete("invoices").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

// Stats aggregates a user's active invoices for the dashboard: invoice count,
// overall spend, the ten vendors with the highest spend and per-currency sums.
func (r *InvoiceRepository) Stats(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		TopVendors:         []models.VendorStat{},
		ExpensesByCurrency: []models.CurrencyStat{},
	}

	totalsQuery := squirrel.Select("COUNT(*)", "COALESCE(SUM(total_amount), 0)").
		From("invoices").
		Where(squirrel.Eq{"user_id": userID, "processed": true}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := totalsQuery.ToSql()
	if err != nil {
		return nil, err
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&stats.TotalInvoices, &stats.TotalExpenses); err != nil {
		return nil, err
	}

	vendorsQuery := squirrel.Select("vendor_name", "COUNT(*)", "COALESCE(SUM(total_amount), 0)").
		From("invoices").
		Where(squirrel.Eq{"user_id": userID, "processed": true}).
		Where(squirrel.NotEq{"vendor_name": nil}).
		GroupBy("vendor_name").
		OrderBy("COALESCE(SUM(total_amount), 0) DESC").
		Limit(10).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = vendorsQuery.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var vendor models.VendorStat
		if err := rows.Scan(&vendor.VendorName, &vendor.Count, &vendor.Sum); err != nil {
			return nil, err
		}
		stats.TopVendors = append(stats.TopVendors, vendor)
	}
	rows.Close()

	currencyQuery := squirrel.Select("currency", "COALESCE(SUM(total_amount), 0)").
		From("invoices").
		Where(squirrel.Eq{"user_id": userID, "processed": true}).
		Where(squirrel.NotEq{"currency": nil}).
		GroupBy("currency").
		OrderBy("COALESCE(SUM(total_amount), 0) DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = currencyQuery.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var currency models.CurrencyStat
		if err := rows.Scan(&currency.Currency, &currency.Sum); err != nil {
			return nil, err
		}
		stats.ExpensesByCurrency = append(stats.ExpensesByCurrency, currency)
	}

	return stats, nil
}
