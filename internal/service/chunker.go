package service

import (
	"errors"
	"strings"

	"invoice-analyzer/internal/models"
)

// ErrInvalidChunkConfig is returned when the sliding window cannot advance.
var ErrInvalidChunkConfig = errors.New("chunk overlap must be smaller than chunk size")

// ChunkText splits text into overlapping windows of whitespace-delimited
// tokens. Window i covers tokens [i*(size-overlap), i*(size-overlap)+size);
// the final window may be shorter and is never dropped. The function is pure
// and deterministic, so re-chunking the same text yields identical output.
func ChunkText(documentID, text string, size, overlap int) ([]models.TextChunk, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunkConfig
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	var chunks []models.TextChunk
	for start, idx := 0, 0; start < len(words); start, idx = start+step, idx+1 {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, models.TextChunk{
			DocumentID: documentID,
			Index:      idx,
			Text:       strings.Join(words[start:end], " "),
		})
		if end == len(words) {
			break
		}
	}

	return chunks, nil
}
