package handlers

import (
	"errors"
	"io"

	"invoice-analyzer/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	invoiceService *service.InvoiceService
	uploadService  *service.UploadService
	logger         *zap.Logger
}

func NewDocumentHandler(invoiceService *service.InvoiceService, uploadService *service.UploadService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		invoiceService: invoiceService,
		uploadService:  uploadService,
		logger:         logger,
	}
}

// UploadDocument godoc
// @Summary Stage a document for later analysis
// @Description Upload a PDF or image and receive a file_id to analyze later
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file (PDF, PNG or JPEG)"
// @Security Bearer
// @Success 201 {object} dto.UploadResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/documents/upload [post]
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	if _, err := getUserID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	content, filename, err := readFormFile(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	if _, err := h.uploadService.ValidateDocument(filename, int64(len(content))); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp, err := h.uploadService.Save(filename, content)
	if err != nil {
		h.logger.Error("Failed to stage document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetUpload godoc
// @Summary Get staged file info
// @Tags documents
// @Produce json
// @Param id path string true "File ID"
// @Security Bearer
// @Success 200 {object} dto.UploadResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/documents/upload/{id} [get]
func (h *DocumentHandler) GetUpload(c *fiber.Ctx) error {
	if _, err := getUserID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	resp, err := h.uploadService.Info(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "File not found",
		})
	}

	return c.JSON(resp)
}

// DeleteUpload godoc
// @Summary Delete a staged file
// @Tags documents
// @Produce json
// @Param id path string true "File ID"
// @Security Bearer
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/documents/upload/{id} [delete]
func (h *DocumentHandler) DeleteUpload(c *fiber.Ctx) error {
	if _, err := getUserID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	if err := h.uploadService.Delete(c.Params("id")); err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "File not found",
			})
		}
		h.logger.Error("Failed to delete staged file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete file",
		})
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

// AnalyzeDocument godoc
// @Summary Analyze an invoice document
// @Description Run text extraction and LLM field extraction on a document sent with the request or staged earlier
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file false "Document file (PDF, PNG or JPEG)"
// @Param file_id formData string false "Previously staged file ID"
// @Security Bearer
// @Success 201 {object} dto.AnalyzeResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/documents/analyze [post]
func (h *DocumentHandler) AnalyzeDocument(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	if fileID := c.FormValue("file_id"); fileID != "" {
		resp, err := h.invoiceService.AnalyzeStaged(c.Context(), userID, fileID)
		if err != nil {
			return h.analysisError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}

	content, filename, err := readFormFile(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either file or file_id is required",
		})
	}

	resp, err := h.invoiceService.AnalyzeUpload(c.Context(), userID, filename, content)
	if err != nil {
		return h.analysisError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListInvoices godoc
// @Summary List analyzed invoices
// @Tags invoices
// @Produce json
// @Param page query int false "Page" default(1)
// @Param per_page query int false "Page size" default(20)
// @Security Bearer
// @Success 200 {object} dto.InvoiceListResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/invoices [get]
func (h *DocumentHandler) ListInvoices(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 20)

	resp, err := h.invoiceService.List(c.Context(), userID, page, perPage)
	if err != nil {
		h.logger.Error("Failed to list invoices", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list invoices",
		})
	}

	return c.JSON(resp)
}

// GetInvoice godoc
// @Summary Get one invoice with its raw text
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Security Bearer
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/invoices/{id} [get]
func (h *DocumentHandler) GetInvoice(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	invoiceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid invoice ID",
		})
	}

	resp, err := h.invoiceService.Get(c.Context(), invoiceID, userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invoice not found",
		})
	}

	return c.JSON(resp)
}

// DeleteInvoice godoc
// @Summary Delete an invoice
// @Description Soft delete by default; pass hard=true to remove the row and its index entries
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Param hard query bool false "Hard delete" default(false)
// @Security Bearer
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/invoices/{id} [delete]
func (h *DocumentHandler) DeleteInvoice(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	invoiceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid invoice ID",
		})
	}

	hard := c.QueryBool("hard", false)
	if err := h.invoiceService.Delete(c.Context(), invoiceID, userID, hard); err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Invoice not found",
			})
		}
		h.logger.Error("Failed to delete invoice", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete invoice",
		})
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

// DashboardStats godoc
// @Summary Expense dashboard aggregates
// @Tags dashboard
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.DashboardStatsResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/dashboard/stats [get]
func (h *DocumentHandler) DashboardStats(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	resp, err := h.invoiceService.Stats(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to compute dashboard stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}

	return c.JSON(resp)
}

// analysisError maps pipeline failures to HTTP statuses. An unreadable
// document is the client's problem (422), a failing model is upstream's (502).
func (h *DocumentHandler) analysisError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUnsupportedMediaType),
		errors.Is(err, service.ErrEmptyInput),
		errors.Is(err, service.ErrFileTooLarge):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrFileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "File not found",
		})
	case errors.Is(err, service.ErrNoExtractableText):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not read document",
		})
	case errors.Is(err, service.ErrExtractionFailed):
		h.logger.Error("Extraction failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Invoice field extraction failed",
		})
	default:
		h.logger.Error("Analysis failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Analysis failed",
		})
	}
}

func readFormFile(c *fiber.Ctx) ([]byte, string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", err
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, "", err
	}

	return content, file.Filename, nil
}

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("userID").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}
