package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invoice-analyzer/internal/dto"
	"invoice-analyzer/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoExtractableText means both the digital text layer and OCR came up
	// empty. The document is unreadable, not the pipeline broken.
	ErrNoExtractableText = errors.New("could not read document")
	// ErrInvoiceNotFound means no invoice with the given id belongs to the user.
	ErrInvoiceNotFound = errors.New("invoice not found")
)

// TextAcquirer produces raw text from a staged document.
type TextAcquirer interface {
	Acquire(ctx context.Context, path, ext string) models.ExtractedText
}

// ChunkIndexer pushes text chunks into the semantic index. Indexing is a
// best-effort side channel of analysis; its failures never fail the pipeline.
type ChunkIndexer interface {
	IndexChunks(ctx context.Context, filename string, chunks []models.TextChunk) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// InvoiceStore is the persistence surface the orchestrator needs.
type InvoiceStore interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*models.Invoice, int, error)
	SoftDelete(ctx context.Context, id, userID uuid.UUID) (bool, error)
	HardDelete(ctx context.Context, id, userID uuid.UUID) (bool, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error)
}

// InvoiceService drives the full analysis pipeline: stage the document,
// acquire text, extract structured fields, index chunks and persist the
// resulting invoice.
type InvoiceService struct {
	uploads      *UploadService
	acquirer     TextAcquirer
	extractor    FieldExtractor
	indexer      ChunkIndexer
	store        InvoiceStore
	stagingDir   string
	chunkSize    int
	chunkOverlap int
	logger       *zap.Logger
}

func NewInvoiceService(
	uploads *UploadService,
	acquirer TextAcquirer,
	extractor FieldExtractor,
	indexer ChunkIndexer,
	store InvoiceStore,
	stagingDir string,
	chunkSize, chunkOverlap int,
	logger *zap.Logger,
) *InvoiceService {
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		logger.Warn("Failed to create staging directory", zap.Error(err))
	}
	return &InvoiceService{
		uploads:      uploads,
		acquirer:     acquirer,
		extractor:    extractor,
		indexer:      indexer,
		store:        store,
		stagingDir:   stagingDir,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// AnalyzeUpload runs the pipeline on document content sent directly with the
// request. The content is staged to a scratch file for the extractors and the
// file is removed again on every exit path.
func (s *InvoiceService) AnalyzeUpload(ctx context.Context, userID uuid.UUID, filename string, content []byte) (*dto.AnalyzeResponse, error) {
	ext, err := s.uploads.ValidateDocument(filename, int64(len(content)))
	if err != nil {
		return nil, err
	}

	stagingPath := filepath.Join(s.stagingDir, uuid.New().String()+ext)
	if err := os.WriteFile(stagingPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage document: %w", err)
	}
	defer s.removeStaged(stagingPath)

	return s.analyze(ctx, userID, filename, stagingPath, ext)
}

// AnalyzeStaged runs the pipeline on a previously uploaded file. The staged
// file is consumed: it is deleted once analysis finishes, whatever the outcome.
func (s *InvoiceService) AnalyzeStaged(ctx context.Context, userID uuid.UUID, fileID string) (*dto.AnalyzeResponse, error) {
	path, err := s.uploads.Resolve(fileID)
	if err != nil {
		return nil, err
	}
	defer s.removeStaged(path)

	return s.analyze(ctx, userID, filepath.Base(path), path, filepath.Ext(path))
}

func (s *InvoiceService) analyze(ctx context.Context, userID uuid.UUID, filename, path, ext string) (*dto.AnalyzeResponse, error) {
	extracted := s.acquirer.Acquire(ctx, path, ext)
	if extracted.Method == models.MethodNone || strings.TrimSpace(extracted.Text) == "" {
		s.logger.Info("No extractable text in document",
			zap.String("user_id", userID.String()),
			zap.String("filename", filename))
		return nil, ErrNoExtractableText
	}

	fields, err := s.extractor.Extract(ctx, extracted.Text)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		UserID:        userID,
		Filename:      filename,
		VendorName:    optionalString(fields.VendorName),
		InvoiceNumber: optionalString(fields.InvoiceNumber),
		InvoiceDate:   fields.InvoiceDate,
		TotalAmount:   &fields.TotalAmount,
		TaxAmount:     fields.TaxAmount,
		Currency:      fields.Currency,
		RawText:       sanitizeUTF8(extracted.Text),
		Processed:     true,
		CreatedAt:     time.Now(),
	}

	s.indexChunks(ctx, invoice, extracted.Text)

	if err := s.store.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.logger.Info("Invoice analyzed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("method", string(extracted.Method)))

	return &dto.AnalyzeResponse{
		Invoice:          toInvoiceResponse(invoice, false),
		ExtractionMethod: string(extracted.Method),
	}, nil
}

// indexChunks feeds the extracted text into the semantic index. Any failure
// here is logged and swallowed so a broken vector store cannot block analysis.
func (s *InvoiceService) indexChunks(ctx context.Context, invoice *models.Invoice, text string) {
	chunks, err := ChunkText(invoice.ID.String(), text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		s.logger.Error("Chunking failed, skipping indexing",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return
	}
	if len(chunks) == 0 {
		return
	}

	if err := s.indexer.IndexChunks(ctx, invoice.Filename, chunks); err != nil {
		s.logger.Warn("Chunk indexing failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
}

func (s *InvoiceService) Get(ctx context.Context, id, userID uuid.UUID) (*dto.InvoiceResponse, error) {
	invoice, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		return nil, ErrInvoiceNotFound
	}
	resp := toInvoiceResponse(invoice, true)
	return &resp, nil
}

func (s *InvoiceService) List(ctx context.Context, userID uuid.UUID, page, perPage int) (*dto.InvoiceListResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	invoices, total, err := s.store.List(ctx, userID, page, perPage)
	if err != nil {
		return nil, err
	}

	items := make([]dto.InvoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		items = append(items, toInvoiceResponse(invoice, false))
	}

	return &dto.InvoiceListResponse{
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		Invoices: items,
	}, nil
}

// Delete removes an invoice. The default is a soft delete that only hides the
// invoice from listings and stats; hard deletes drop the row and evict the
// invoice's chunks from the semantic index.
func (s *InvoiceService) Delete(ctx context.Context, id, userID uuid.UUID, hard bool) error {
	var (
		deleted bool
		err     error
	)
	if hard {
		deleted, err = s.store.HardDelete(ctx, id, userID)
	} else {
		deleted, err = s.store.SoftDelete(ctx, id, userID)
	}
	if err != nil {
		return err
	}
	if !deleted {
		return ErrInvoiceNotFound
	}

	if hard {
		if err := s.indexer.DeleteDocument(ctx, id.String()); err != nil {
			s.logger.Warn("Failed to evict invoice from index",
				zap.String("invoice_id", id.String()),
				zap.Error(err))
		}
	}
	return nil
}

func (s *InvoiceService) Stats(ctx context.Context, userID uuid.UUID) (*dto.DashboardStatsResponse, error) {
	stats, err := s.store.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.DashboardStatsResponse{
		TotalInvoices:      stats.TotalInvoices,
		TotalExpenses:      stats.TotalExpenses,
		TopVendors:         stats.TopVendors,
		ExpensesByCurrency: stats.ExpensesByCurrency,
	}, nil
}

func (s *InvoiceService) removeStaged(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove staged file",
			zap.String("path", path),
			zap.Error(err))
	}
}

func toInvoiceResponse(invoice *models.Invoice, includeRaw bool) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:            invoice.ID.String(),
		UserID:        invoice.UserID.String(),
		Filename:      invoice.Filename,
		VendorName:    invoice.VendorName,
		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceDate:   invoice.InvoiceDate,
		TotalAmount:   invoice.TotalAmount,
		TaxAmount:     invoice.TaxAmount,
		Currency:      invoice.Currency,
		Processed:     invoice.Processed,
		CreatedAt:     invoice.CreatedAt.Format(time.RFC3339),
	}
	if includeRaw {
		resp.RawText = invoice.RawText
	}
	return resp
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
