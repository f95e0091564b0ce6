package service

import (
	"bytes"
	"context"
	"image/png"
	"strings"

	"invoice-analyzer/internal/models"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// PDFSource reads a PDF either through its embedded text layer or by
// rasterizing pages for OCR. Implemented by fitzSource; stubbed in tests.
type PDFSource interface {
	ExtractText(path string) (string, error)
	RenderPages(path string) ([][]byte, error)
}

// ImageOCR recognizes text in a single rasterized image.
type ImageOCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	RecognizeFile(ctx context.Context, path string) (string, error)
}

// TextExtractor chooses an acquisition strategy per document: digital PDF
// text layer first, OCR as the fallback. It deliberately never returns an
// error; unreadable input degrades to the MethodNone result so the caller
// has a clean terminal state to report.
type TextExtractor struct {
	pdf      PDFSource
	ocr      ImageOCR
	minChars int
	logger   *zap.Logger
}

func NewTextExtractor(pdf PDFSource, ocr ImageOCR, minChars int, logger *zap.Logger) *TextExtractor {
	if minChars <= 0 {
		minChars = 20
	}
	return &TextExtractor{
		pdf:      pdf,
		ocr:      ocr,
		minChars: minChars,
		logger:   logger,
	}
}

// Acquire produces best-effort plain text for the staged document at path.
// ext is the lowercased file extension including the dot.
func (e *TextExtractor) Acquire(ctx context.Context, path, ext string) models.ExtractedText {
	isPDF := ext == ".pdf"

	var digital string
	if isPDF {
		text, err := e.pdf.ExtractText(path)
		if err != nil {
			e.logger.Warn("PDF text layer extraction failed",
				zap.String("path", path),
				zap.Error(err),
			)
		} else {
			digital = strings.TrimSpace(text)
		}
	}

	// A short text layer usually means placeholder glyphs or whitespace-only
	// content, so it is not trusted over a full OCR pass.
	if len(digital) >= e.minChars {
		e.logger.Info("Text acquired from PDF text layer",
			zap.String("path", path),
			zap.Int("text_length", len(digital)),
		)
		return models.ExtractedText{Text: digital, Method: models.MethodDigital}
	}

	var ocrText string
	if isPDF {
		ocrText = e.ocrPDF(ctx, path)
	} else {
		text, err := e.ocr.RecognizeFile(ctx, path)
		if err != nil {
			e.logger.Warn("Image OCR failed", zap.String("path", path), zap.Error(err))
		} else {
			ocrText = strings.TrimSpace(text)
		}
	}

	if ocrText != "" {
		e.logger.Info("Text acquired via OCR",
			zap.String("path", path),
			zap.Int("text_length", len(ocrText)),
		)
		return models.ExtractedText{Text: ocrText, Method: models.MethodOCR}
	}

	// Fall back to the short digital text rather than discarding it outright.
	if digital != "" {
		return models.ExtractedText{Text: digital, Method: models.MethodDigital}
	}

	e.logger.Info("No text could be acquired", zap.String("path", path))
	return models.ExtractedText{Method: models.MethodNone}
}

func (e *TextExtractor) ocrPDF(ctx context.Context, path string) string {
	pages, err := e.pdf.RenderPages(path)
	if err != nil {
		e.logger.Warn("PDF rasterization failed", zap.String("path", path), zap.Error(err))
		return ""
	}

	var builder strings.Builder
	for i, img := range pages {
		text, err := e.ocr.Recognize(ctx, img)
		if err != nil {
			e.logger.Warn("Page OCR failed",
				zap.String("path", path),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return builder.String()
}

// fitzSource backs PDFSource with go-fitz.
type fitzSource struct{}

func NewFitzSource() PDFSource {
	return fitzSource{}
}

func (fitzSource) ExtractText(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var builder strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			continue
		}
		if pageText != "" {
			builder.WriteString(pageText)
			builder.WriteString("\n")
		}
	}
	return builder.String(), nil
}

func (fitzSource) RenderPages(path string) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.Image(i)
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			continue
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

// TesseractOCR backs ImageOCR with a local tesseract install via gosseract.
// A fresh client per call keeps concurrent requests independent.
type TesseractOCR struct {
	lang string
}

func NewTesseractOCR(lang string) *TesseractOCR {
	if lang == "" {
		lang = "eng"
	}
	return &TesseractOCR{lang: lang}
}

func (t *TesseractOCR) Recognize(_ context.Context, image []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.lang); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", err
	}
	return client.Text()
}

func (t *TesseractOCR) RecognizeFile(_ context.Context, path string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.lang); err != nil {
		return "", err
	}
	if err := client.SetImage(path); err != nil {
		return "", err
	}
	return client.Text()
}
