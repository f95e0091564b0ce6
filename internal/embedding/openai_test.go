package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"invoice-analyzer/pkg/config"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.EmbeddingsConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "text-embedding-3-small",
	}, zap.NewNop())
}

func TestEmbed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["input"] != "invoice text" {
			t.Errorf("unexpected input: %v", body["input"])
		}
		if body["model"] != "text-embedding-3-small" {
			t.Errorf("unexpected model: %v", body["model"])
		}

		w.Write([]byte(`{"data": [{"embedding": [0.1, 0.2, 0.3]}]}`))
	})

	vector, err := client.Embed(context.Background(), "invoice text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 3 || vector[0] != 0.1 {
		t.Errorf("unexpected vector: %v", vector)
	}
	if client.Dimension() != 3 {
		t.Errorf("dimension not learned: %d", client.Dimension())
	}
}

func TestEmbedServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	})

	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestEmbedEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	})

	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected an error for an empty data array")
	}
}
