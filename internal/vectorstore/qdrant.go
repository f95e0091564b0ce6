package vectorstore

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"invoice-analyzer/internal/models"
	"invoice-analyzer/pkg/config"

	"go.uber.org/zap"
)

// Embedder converts text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchHit is a scored chunk returned by a similarity search.
type SearchHit struct {
	Text       string
	Score      float64
	DocumentID string
	ChunkIndex int
	Filename   string
}

// Store indexes and searches invoice text chunks in a Qdrant collection.
// Texts are embedded before writing, so callers only deal with plain chunks.
type Store struct {
	baseURL    string
	apiKey     string
	collection string
	embedder   Embedder
	httpClient *http.Client
	logger     *zap.Logger
}

func NewStore(cfg *config.QdrantConfig, embedder Embedder, logger *zap.Logger) *Store {
	return &Store{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// EnsureCollection creates the collection if it does not exist yet.
// Qdrant treats the PUT as idempotent for an identical configuration.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, "/collections/"+s.collection, body, nil); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return nil
}

// IndexChunks embeds and upserts the chunks. Point identifiers are derived
// from document id and chunk index, so re-indexing a document overwrites its
// previous points instead of duplicating them.
func (s *Store) IndexChunks(ctx context.Context, filename string, chunks []models.TextChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", chunk.Index, err)
		}
		points = append(points, map[string]any{
			"id":     pointID(chunk.DocumentID, chunk.Index),
			"vector": vector,
			"payload": map[string]any{
				"document_id": chunk.DocumentID,
				"chunk_index": chunk.Index,
				"text":        chunk.Text,
				"filename":    filename,
			},
		})
	}

	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	if err := s.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	s.logger.Debug("Indexed chunks",
		zap.String("document_id", chunks[0].DocumentID),
		zap.Int("count", len(points)))
	return nil
}

// Search embeds the query and returns the top k scored chunks.
func (s *Store) Search(ctx context.Context, query string, k int) ([]SearchHit, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var out struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				DocumentID string `json:"document_id"`
				ChunkIndex int    `json:"chunk_index"`
				Text       string `json:"text"`
				Filename   string `json:"filename"`
			} `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	hits := make([]SearchHit, 0, len(out.Result))
	for _, r := range out.Result {
		hits = append(hits, SearchHit{
			Text:       r.Payload.Text,
			Score:      r.Score,
			DocumentID: r.Payload.DocumentID,
			ChunkIndex: r.Payload.ChunkIndex,
			Filename:   r.Payload.Filename,
		})
	}
	return hits, nil
}

// DeleteDocument removes all points belonging to a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection)
	if err := s.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("delete document points: %w", err)
	}
	return nil
}

func (s *Store) do(ctx context.Context, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// pointID builds a deterministic UUID-shaped identifier from the document id
// and chunk index, since Qdrant only accepts integers or UUIDs as point ids.
func pointID(documentID string, index int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s::%d", documentID, index)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", sum[0:4], sum[4:6], sum[6:8], sum[8:10], sum[10:16])
}
