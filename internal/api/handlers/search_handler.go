package handlers

import (
	"context"
	"strconv"

	"invoice-analyzer/internal/dto"
	"invoice-analyzer/internal/vectorstore"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Searcher answers free-text similarity queries over indexed invoice chunks.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.SearchHit, error)
}

type SearchHandler struct {
	searcher Searcher
	defaultK int
	logger   *zap.Logger
}

func NewSearchHandler(searcher Searcher, defaultK int, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		defaultK: defaultK,
		logger:   logger,
	}
}

// Search godoc
// @Summary Semantic search over invoice text
// @Tags search
// @Produce json
// @Param q query string true "Query text"
// @Param k query int false "Number of results"
// @Security Bearer
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/search [get]
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	if _, err := getUserID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter q is required",
		})
	}

	k := c.QueryInt("k", h.defaultK)
	if k < 1 || k > 50 {
		k = h.defaultK
	}

	hits, err := h.searcher.Search(c.Context(), query, k)
	if err != nil {
		h.logger.Error("Search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	results := make([]dto.SearchHit, 0, len(hits))
	for _, hit := range hits {
		results = append(results, dto.SearchHit{
			Text:  hit.Text,
			Score: hit.Score,
			Metadata: map[string]string{
				"document_id": hit.DocumentID,
				"chunk_index": strconv.Itoa(hit.ChunkIndex),
				"filename":    hit.Filename,
			},
		})
	}

	return c.JSON(dto.SearchResponse{
		Query:   query,
		Results: results,
	})
}
