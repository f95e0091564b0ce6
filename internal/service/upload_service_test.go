package service

import (
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"
)

func TestValidateDocument(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 10, zap.NewNop())

	tests := []struct {
		name     string
		filename string
		size     int64
		wantExt  string
		wantErr  error
	}{
		{"pdf", "invoice.pdf", 100, ".pdf", nil},
		{"uppercase extension", "SCAN.PDF", 100, ".pdf", nil},
		{"png", "receipt.png", 100, ".png", nil},
		{"jpg", "photo.jpg", 100, ".jpg", nil},
		{"jpeg", "photo.jpeg", 100, ".jpeg", nil},
		{"docx", "report.docx", 100, "", ErrUnsupportedMediaType},
		{"no extension", "invoice", 100, "", ErrUnsupportedMediaType},
		{"empty", "invoice.pdf", 0, "", ErrEmptyInput},
		{"too large", "invoice.pdf", 11 << 20, "", ErrFileTooLarge},
		{"exactly at limit", "invoice.pdf", 10 << 20, ".pdf", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := svc.ValidateDocument(tt.filename, tt.size)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ext != tt.wantExt {
				t.Errorf("expected ext %q, got %q", tt.wantExt, ext)
			}
		})
	}
}

func TestSaveResolveDeleteRoundtrip(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 10, zap.NewNop())

	resp, err := svc.Save("invoice.pdf", []byte("%PDF-1.4 content"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if resp.FileID == "" {
		t.Fatal("expected a file id")
	}
	if resp.Filename != "invoice.pdf" {
		t.Errorf("unexpected filename: %q", resp.Filename)
	}

	path, err := svc.Resolve(resp.FileID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(content) != "%PDF-1.4 content" {
		t.Errorf("staged content differs")
	}

	info, err := svc.Info(resp.FileID)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if info.FileSize != int64(len(content)) {
		t.Errorf("unexpected size: %d", info.FileSize)
	}

	if err := svc.Delete(resp.FileID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.Resolve(resp.FileID); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound after delete, got %v", err)
	}
}

func TestResolveRejectsNonUUID(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 10, zap.NewNop())

	// Path traversal attempts must fail the UUID check, not hit the glob.
	for _, id := range []string{"../etc/passwd", "*", "not-a-uuid"} {
		if _, err := svc.Resolve(id); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound for %q, got %v", id, err)
		}
	}
}

func TestSaveRejectsInvalidDocument(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 10, zap.NewNop())

	if _, err := svc.Save("notes.txt", []byte("hello")); !errors.Is(err, ErrUnsupportedMediaType) {
		t.Errorf("expected ErrUnsupportedMediaType, got %v", err)
	}
	if _, err := svc.Save("invoice.pdf", nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}
