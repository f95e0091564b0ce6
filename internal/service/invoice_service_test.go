package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"invoice-analyzer/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stubAcquirer struct {
	result models.ExtractedText
	paths  []string
}

func (s *stubAcquirer) Acquire(_ context.Context, path, _ string) models.ExtractedText {
	s.paths = append(s.paths, path)
	return s.result
}

type stubExtractor struct {
	fields InvoiceFields
	err    error
	calls  int
}

func (s *stubExtractor) Extract(_ context.Context, _ string) (InvoiceFields, error) {
	s.calls++
	return s.fields, s.err
}

type stubIndexer struct {
	err         error
	indexed     [][]models.TextChunk
	deletedDocs []string
}

func (s *stubIndexer) IndexChunks(_ context.Context, _ string, chunks []models.TextChunk) error {
	s.indexed = append(s.indexed, chunks)
	return s.err
}

func (s *stubIndexer) DeleteDocument(_ context.Context, documentID string) error {
	s.deletedDocs = append(s.deletedDocs, documentID)
	return s.err
}

type stubStore struct {
	created   []*models.Invoice
	createErr error
	softOK    bool
	hardOK    bool
}

func (s *stubStore) Create(_ context.Context, invoice *models.Invoice) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, invoice)
	return nil
}

func (s *stubStore) GetByID(_ context.Context, _, _ uuid.UUID) (*models.Invoice, error) {
	return nil, errors.New("not found")
}

func (s *stubStore) List(_ context.Context, _ uuid.UUID, _, _ int) ([]*models.Invoice, int, error) {
	return nil, 0, nil
}

func (s *stubStore) SoftDelete(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return s.softOK, nil
}

func (s *stubStore) HardDelete(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return s.hardOK, nil
}

func (s *stubStore) Stats(_ context.Context, _ uuid.UUID) (*models.DashboardStats, error) {
	return &models.DashboardStats{}, nil
}

type pipeline struct {
	service    *InvoiceService
	acquirer   *stubAcquirer
	extractor  *stubExtractor
	indexer    *stubIndexer
	store      *stubStore
	stagingDir string
	uploads    *UploadService
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	dir := t.TempDir()
	stagingDir := filepath.Join(dir, "staging")
	uploads := NewUploadService(dir, 10, zap.NewNop())

	currency := "EUR"
	p := &pipeline{
		acquirer: &stubAcquirer{result: models.ExtractedText{
			Text:   "Invoice INV-1 from ACME total 100.00 EUR",
			Method: models.MethodDigital,
		}},
		extractor: &stubExtractor{fields: InvoiceFields{
			VendorName:    "ACME",
			InvoiceNumber: "INV-1",
			TotalAmount:   100,
			Currency:      &currency,
		}},
		indexer:    &stubIndexer{},
		store:      &stubStore{softOK: true, hardOK: true},
		stagingDir: stagingDir,
		uploads:    uploads,
	}
	p.service = NewInvoiceService(uploads, p.acquirer, p.extractor, p.indexer, p.store, stagingDir, 800, 120, zap.NewNop())
	return p
}

func stagingEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staging dir must be empty, found %d files", len(entries))
	}
}

func TestAnalyzeUploadSuccess(t *testing.T) {
	p := newPipeline(t)

	resp, err := p.service.AnalyzeUpload(context.Background(), uuid.New(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.ExtractionMethod != "digital" {
		t.Errorf("unexpected extraction method: %s", resp.ExtractionMethod)
	}
	if resp.Invoice.VendorName == nil || *resp.Invoice.VendorName != "ACME" {
		t.Errorf("unexpected vendor: %v", resp.Invoice.VendorName)
	}
	if len(p.store.created) != 1 {
		t.Fatalf("expected one persisted invoice, got %d", len(p.store.created))
	}
	if len(p.indexer.indexed) != 1 {
		t.Errorf("expected chunks to be indexed")
	}
	stagingEmpty(t, p.stagingDir)
}

func TestAnalyzeUploadRejectsBadInput(t *testing.T) {
	p := newPipeline(t)
	userID := uuid.New()

	tests := []struct {
		name     string
		filename string
		content  []byte
		want     error
	}{
		{"unsupported extension", "report.docx", []byte("data"), ErrUnsupportedMediaType},
		{"empty content", "invoice.pdf", nil, ErrEmptyInput},
		{"oversized content", "invoice.pdf", make([]byte, 11<<20), ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.service.AnalyzeUpload(context.Background(), userID, tt.filename, tt.content)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if p.extractor.calls != 0 {
		t.Errorf("extractor must not run for rejected input")
	}
	if len(p.store.created) != 0 {
		t.Errorf("nothing may be persisted for rejected input")
	}
}

func TestAnalyzeUploadNoExtractableText(t *testing.T) {
	p := newPipeline(t)
	p.acquirer.result = models.ExtractedText{Method: models.MethodNone}

	_, err := p.service.AnalyzeUpload(context.Background(), uuid.New(), "blank.pdf", []byte("%PDF-1.4"))
	if !errors.Is(err, ErrNoExtractableText) {
		t.Fatalf("expected ErrNoExtractableText, got %v", err)
	}

	if p.extractor.calls != 0 {
		t.Errorf("field extraction must not run without text")
	}
	if len(p.store.created) != 0 {
		t.Errorf("unreadable documents must not be persisted")
	}
	stagingEmpty(t, p.stagingDir)
}

func TestAnalyzeUploadExtractionFailureCleansStaging(t *testing.T) {
	p := newPipeline(t)
	p.extractor.err = ErrExtractionFailed

	_, err := p.service.AnalyzeUpload(context.Background(), uuid.New(), "invoice.pdf", []byte("%PDF-1.4"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}

	if len(p.store.created) != 0 {
		t.Errorf("failed extraction must not be persisted")
	}
	stagingEmpty(t, p.stagingDir)
}

func TestAnalyzeUploadIndexingFailureIsNonFatal(t *testing.T) {
	p := newPipeline(t)
	p.indexer.err = errors.New("qdrant unreachable")

	resp, err := p.service.AnalyzeUpload(context.Background(), uuid.New(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("indexing failure must not fail analysis: %v", err)
	}
	if resp == nil || len(p.store.created) != 1 {
		t.Fatalf("invoice must still be persisted when indexing fails")
	}
	stagingEmpty(t, p.stagingDir)
}

func TestAnalyzeUploadBadChunkConfigSkipsIndexing(t *testing.T) {
	p := newPipeline(t)
	p.service = NewInvoiceService(p.uploads, p.acquirer, p.extractor, p.indexer, p.store, p.stagingDir, 100, 100, zap.NewNop())

	_, err := p.service.AnalyzeUpload(context.Background(), uuid.New(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(p.indexer.indexed) != 0 {
		t.Errorf("indexing must be skipped on invalid chunk config")
	}
	if len(p.store.created) != 1 {
		t.Errorf("invoice must still be persisted")
	}
}

func TestAnalyzeStagedConsumesFile(t *testing.T) {
	p := newPipeline(t)

	staged, err := p.uploads.Save("invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("stage file: %v", err)
	}

	if _, err := p.service.AnalyzeStaged(context.Background(), uuid.New(), staged.FileID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.uploads.Resolve(staged.FileID); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("staged file must be consumed by analysis, got %v", err)
	}
}

func TestAnalyzeStagedUnknownFile(t *testing.T) {
	p := newPipeline(t)

	_, err := p.service.AnalyzeStaged(context.Background(), uuid.New(), uuid.New().String())
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestAnalyzePersistsAbsentFieldsAsNil(t *testing.T) {
	p := newPipeline(t)
	p.extractor.fields = InvoiceFields{
		VendorName:    "ACME",
		InvoiceNumber: "INV-2",
		TotalAmount:   42,
	}

	if _, err := p.service.AnalyzeUpload(context.Background(), uuid.New(), "invoice.pdf", []byte("%PDF-1.4")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	invoice := p.store.created[0]
	if invoice.InvoiceDate != nil || invoice.TaxAmount != nil || invoice.Currency != nil {
		t.Errorf("absent optional fields must persist as nil")
	}
	if invoice.TotalAmount == nil || *invoice.TotalAmount != 42 {
		t.Errorf("required amount must persist, got %v", invoice.TotalAmount)
	}
	if !invoice.Processed {
		t.Errorf("new invoices must be active")
	}
}

func TestDeleteHardEvictsFromIndex(t *testing.T) {
	p := newPipeline(t)
	id := uuid.New()

	if err := p.service.Delete(context.Background(), id, uuid.New(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.indexer.deletedDocs) != 1 || p.indexer.deletedDocs[0] != id.String() {
		t.Errorf("hard delete must evict the document from the index")
	}
}

func TestDeleteSoftLeavesIndexAlone(t *testing.T) {
	p := newPipeline(t)

	if err := p.service.Delete(context.Background(), uuid.New(), uuid.New(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.indexer.deletedDocs) != 0 {
		t.Errorf("soft delete must not touch the index")
	}
}

func TestDeleteMissingInvoice(t *testing.T) {
	p := newPipeline(t)
	p.store.softOK = false

	err := p.service.Delete(context.Background(), uuid.New(), uuid.New(), false)
	if !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}
