package dto

type UploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	FileSize int64  `json:"file_size"`
}

type SearchHit struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}
