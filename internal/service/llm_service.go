package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"invoice-analyzer/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// ErrExtractionFailed marks a failure of the language-model extraction step.
// It is not retried here; callers may retry the whole request.
var ErrExtractionFailed = errors.New("invoice field extraction failed")

// InvoiceFields is the structured record the model must produce. Optional
// fields are pointers so that "not present on the document" survives as nil
// instead of collapsing into an empty value.
type InvoiceFields struct {
	VendorName    string   `json:"vendor_name"`
	InvoiceNumber string   `json:"invoice_number"`
	InvoiceDate   *string  `json:"invoice_date,omitempty"`
	TotalAmount   float64  `json:"total_amount"`
	TaxAmount     *float64 `json:"tax_amount,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
}

// FieldExtractor is the single capability the orchestrator depends on.
type FieldExtractor interface {
	Extract(ctx context.Context, text string) (InvoiceFields, error)
}

const invoiceFieldsSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "vendor_name":    {"type": "string", "minLength": 1},
    "invoice_number": {"type": "string", "minLength": 1},
    "invoice_date":   {"type": "string"},
    "total_amount":   {"type": "number"},
    "tax_amount":     {"type": "number"},
    "currency":       {"type": "string"}
  },
  "required": ["vendor_name", "invoice_number", "total_amount"]
}`

// maxPromptChars caps how much document text is embedded in the prompt.
const maxPromptChars = 4000

func buildSystemInstruction() string {
	return `You are an intelligent financial document extractor. Given the raw text of an invoice or receipt, extract the requested fields exactly as they appear on the document.

Rules:
- Return ONLY a JSON object, no markdown, no commentary before or after.
- Amounts are plain numbers without currency symbols or thousands separators.
- currency is the code or symbol printed on the document (e.g. USD, EUR, NGN).
- invoice_date is returned as printed; do not reformat or guess missing parts.
- If an optional field is not on the document, OMIT the key entirely. Never output null or an empty string for a missing field.
- Never invent values that are not on the document.`
}

type LLMService struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	schema *jsonschema.Schema
	logger *zap.Logger
}

func NewLLMService(cfg *config.GigaChatConfig, logger *zap.Logger) (*LLMService, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = buildSystemInstruction()
	model.Temperature = 0.1

	schema, err := jsonschema.CompileString("invoice_fields.json", invoiceFieldsSchema)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to compile invoice schema: %w", err)
	}

	return &LLMService{
		client: client,
		model:  model,
		schema: schema,
		logger: logger,
	}, nil
}

// Extract runs a single schema-constrained extraction pass over text.
func (s *LLMService) Extract(ctx context.Context, text string) (InvoiceFields, error) {
	prompt := buildExtractionPrompt(text)

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return InvoiceFields{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return InvoiceFields{}, fmt.Errorf("%w: no response from model", ErrExtractionFailed)
	}

	fields, err := parseInvoicePayload(s.schema, resp.Choices[0].Message.Content)
	if err != nil {
		s.logger.Error("Model returned non-conforming payload",
			zap.Error(err),
			zap.String("content", resp.Choices[0].Message.Content),
		)
		return InvoiceFields{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	s.logger.Info("Invoice fields extracted",
		zap.String("vendor", fields.VendorName),
		zap.String("invoice_number", fields.InvoiceNumber),
		zap.Float64("total", fields.TotalAmount),
	)
	return fields, nil
}

func buildExtractionPrompt(text string) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	return fmt.Sprintf(`Extract the following fields from this invoice or receipt text and return ONLY a JSON object:

{
  "vendor_name": "name of the vendor or company issuing the invoice",
  "invoice_number": "unique invoice or receipt number",
  "invoice_date": "date of the invoice as printed (optional)",
  "total_amount": total billed amount as a number,
  "tax_amount": applicable tax amount as a number (optional),
  "currency": "currency code or symbol (optional)"
}

Omit optional keys that are not present on the document.

Invoice text:
%s`, text)
}

// parseInvoicePayload locates the JSON object in a model reply, validates it
// against the invoice schema and decodes it. Markdown code fences around the
// object are tolerated; anything else non-conforming is an error.
func parseInvoicePayload(schema *jsonschema.Schema, content string) (InvoiceFields, error) {
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return InvoiceFields{}, fmt.Errorf("no JSON object in model response")
	}
	payload := []byte(content[start : end+1])

	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return InvoiceFields{}, fmt.Errorf("decode model response: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return InvoiceFields{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var fields InvoiceFields
	if err := json.Unmarshal(payload, &fields); err != nil {
		return InvoiceFields{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
