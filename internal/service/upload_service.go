package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invoice-analyzer/internal/dto"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedMediaType rejects extensions outside the accepted set
	// before any processing begins.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrEmptyInput rejects zero-length uploads.
	ErrEmptyInput = errors.New("empty file uploaded")
	// ErrFileTooLarge rejects uploads above the configured ceiling.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrFileNotFound means no staged file matches the given identifier.
	ErrFileNotFound = errors.New("file not found")
)

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// UploadService stages raw document bytes on disk under an opaque identifier
// so a later analyze call can resolve them.
type UploadService struct {
	uploadDir string
	maxSize   int64
	logger    *zap.Logger
}

func NewUploadService(uploadDir string, maxSizeMB int64, logger *zap.Logger) *UploadService {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		logger.Warn("Failed to create upload directory", zap.Error(err))
	}
	return &UploadService{
		uploadDir: uploadDir,
		maxSize:   maxSizeMB << 20,
		logger:    logger,
	}
}

// ValidateDocument applies the shared admission rules: accepted extension,
// non-empty content, size ceiling. It returns the normalized extension.
func (s *UploadService) ValidateDocument(filename string, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMediaType, ext)
	}
	if size == 0 {
		return "", ErrEmptyInput
	}
	if size > s.maxSize {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	return ext, nil
}

// Save stages content and returns its opaque identifier.
func (s *UploadService) Save(filename string, content []byte) (*dto.UploadResponse, error) {
	ext, err := s.ValidateDocument(filename, int64(len(content)))
	if err != nil {
		return nil, err
	}

	fileID := uuid.New()
	path := filepath.Join(s.uploadDir, fileID.String()+ext)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("Document staged",
		zap.String("file_id", fileID.String()),
		zap.String("filename", filename),
		zap.Int("size", len(content)),
	)

	return &dto.UploadResponse{
		FileID:   fileID.String(),
		Filename: filename,
		FileSize: int64(len(content)),
	}, nil
}

// Resolve maps a staging identifier back to the file on disk.
func (s *UploadService) Resolve(fileID string) (string, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return "", ErrFileNotFound
	}
	matches, err := filepath.Glob(filepath.Join(s.uploadDir, fileID+".*"))
	if err != nil || len(matches) == 0 {
		return "", ErrFileNotFound
	}
	return matches[0], nil
}

func (s *UploadService) Info(fileID string) (*dto.UploadResponse, error) {
	path, err := s.Resolve(fileID)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, ErrFileNotFound
	}
	return &dto.UploadResponse{
		FileID:   fileID,
		Filename: filepath.Base(path),
		FileSize: stat.Size(),
	}, nil
}

func (s *UploadService) Delete(fileID string) error {
	path, err := s.Resolve(fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
