package service

import (
	"context"
	"errors"
	"testing"

	"invoice-analyzer/internal/models"

	"go.uber.org/zap"
)

type stubPDF struct {
	text        string
	textErr     error
	pages       [][]byte
	renderErr   error
	textCalls   int
	renderCalls int
}

func (s *stubPDF) ExtractText(string) (string, error) {
	s.textCalls++
	return s.text, s.textErr
}

func (s *stubPDF) RenderPages(string) ([][]byte, error) {
	s.renderCalls++
	return s.pages, s.renderErr
}

type stubOCR struct {
	pageTexts []string
	fileText  string
	err       error
	calls     int
	fileCalls int
}

func (s *stubOCR) Recognize(_ context.Context, _ []byte) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if s.calls <= len(s.pageTexts) {
		return s.pageTexts[s.calls-1], nil
	}
	return "", nil
}

func (s *stubOCR) RecognizeFile(_ context.Context, _ string) (string, error) {
	s.fileCalls++
	return s.fileText, s.err
}

func TestAcquireDigitalTextSkipsOCR(t *testing.T) {
	pdf := &stubPDF{text: "Invoice No 12345 from ACME Corp, total 99.50 EUR"}
	ocr := &stubOCR{fileText: "should never be used"}
	extractor := NewTextExtractor(pdf, ocr, 20, zap.NewNop())

	result := extractor.Acquire(context.Background(), "/tmp/a.pdf", ".pdf")

	if result.Method != models.MethodDigital {
		t.Fatalf("expected digital method, got %s", result.Method)
	}
	if result.Text == "" {
		t.Fatal("expected non-empty text")
	}
	if ocr.calls != 0 || ocr.fileCalls != 0 {
		t.Errorf("OCR must not run when the text layer is sufficient, got %d/%d calls", ocr.calls, ocr.fileCalls)
	}
	if pdf.renderCalls != 0 {
		t.Errorf("pages must not be rendered for a digital PDF, got %d calls", pdf.renderCalls)
	}
}

func TestAcquireShortTextLayerFallsBackToOCR(t *testing.T) {
	pdf := &stubPDF{text: "x1", pages: [][]byte{{1}, {2}}}
	ocr := &stubOCR{pageTexts: []string{"page one text", "page two text"}}
	extractor := NewTextExtractor(pdf, ocr, 20, zap.NewNop())

	result := extractor.Acquire(context.Background(), "/tmp/a.pdf", ".pdf")

	if result.Method != models.MethodOCR {
		t.Fatalf("expected ocr method, got %s", result.Method)
	}
	if result.Text != "page one text\npage two text" {
		t.Errorf("unexpected joined text: %q", result.Text)
	}
	if ocr.calls != 2 {
		t.Errorf("expected OCR on both pages, got %d calls", ocr.calls)
	}
}

func TestAcquireImageUsesFileOCR(t *testing.T) {
	pdf := &stubPDF{}
	ocr := &stubOCR{fileText: "receipt total 10.00"}
	extractor := NewTextExtractor(pdf, ocr, 20, zap.NewNop())

	result := extractor.Acquire(context.Background(), "/tmp/scan.png", ".png")

	if result.Method != models.MethodOCR {
		t.Fatalf("expected ocr method, got %s", result.Method)
	}
	if pdf.textCalls != 0 {
		t.Errorf("PDF text layer must not be consulted for images")
	}
	if ocr.fileCalls != 1 {
		t.Errorf("expected one file OCR call, got %d", ocr.fileCalls)
	}
}

func TestAcquireKeepsShortDigitalWhenOCREmpty(t *testing.T) {
	pdf := &stubPDF{text: "ACME 42", pages: [][]byte{{1}}}
	ocr := &stubOCR{pageTexts: []string{""}}
	extractor := NewTextExtractor(pdf, ocr, 20, zap.NewNop())

	result := extractor.Acquire(context.Background(), "/tmp/a.pdf", ".pdf")

	if result.Method != models.MethodDigital {
		t.Fatalf("expected short digital fallback, got %s", result.Method)
	}
	if result.Text != "ACME 42" {
		t.Errorf("unexpected text: %q", result.Text)
	}
}

func TestAcquireNothingReadableReturnsNoneWithoutError(t *testing.T) {
	pdf := &stubPDF{textErr: errors.New("broken xref"), renderErr: errors.New("cannot render")}
	ocr := &stubOCR{}
	extractor := NewTextExtractor(pdf, ocr, 20, zap.NewNop())

	result := extractor.Acquire(context.Background(), "/tmp/a.pdf", ".pdf")

	if result.Method != models.MethodNone {
		t.Fatalf("expected none method, got %s", result.Method)
	}
	if result.Text != "" {
		t.Errorf("expected empty text, got %q", result.Text)
	}
}

func TestAcquireOCRErrorOnImageReturnsNone(t *testing.T) {
	pdf := &stubPDF{}
	ocr := &stubOCR{err: errors.New("tesseract not installed")}
	extractor := NewTextExtractor(pdf, ocr, 20, zap.NewNop())

	result := extractor.Acquire(context.Background(), "/tmp/scan.jpg", ".jpg")

	if result.Method != models.MethodNone {
		t.Fatalf("expected none method, got %s", result.Method)
	}
}
