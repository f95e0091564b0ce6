package models

// TextChunk is one sliding-window slice of a document's extracted text,
// produced for semantic indexing. Index is contiguous from 0 within the
// owning document; chunks carry no other relationship to each other.
type TextChunk struct {
	DocumentID string
	Index      int
	Text       string
}

// ExtractionMethod records which acquisition strategy produced the text.
type ExtractionMethod string

const (
	MethodDigital ExtractionMethod = "digital"
	MethodOCR     ExtractionMethod = "ocr"
	MethodNone    ExtractionMethod = "none"
)

// ExtractedText is the outcome of the text-acquisition stage. Method is
// MethodNone exactly when Text is empty; that is the terminal "nothing could
// be read" state, not an error.
type ExtractedText struct {
	Text   string
	Method ExtractionMethod
}
