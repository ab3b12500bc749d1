package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaModel_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	m := New(srv.URL, "test-embed-model")
	vec, err := m.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("len(vec) = %d, want 3", len(vec))
	}
}

func TestOllamaModel_EmbedBatch_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		// embedding value encodes which input text produced it
		var v float32
		switch req.Prompt {
		case "a":
			v = 1
		case "b":
			v = 2
		case "c":
			v = 3
		}
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{v}})
	}))
	defer srv.Close()

	m := NewWithWorkers(srv.URL, "test-embed-model", 3)
	vecs, err := m.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("len(vecs) = %d, want 3", len(vecs))
	}
	want := []float32{1, 2, 3}
	for i, v := range want {
		if vecs[i][0] != v {
			t.Errorf("vecs[%d] = %v, want [%v]", i, vecs[i], v)
		}
	}
}

func TestOllamaModel_EmbedBatch_Empty(t *testing.T) {
	m := New("http://unused", "model")
	vecs, err := m.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("len(vecs) = %d, want 0", len(vecs))
	}
}

func TestTruncateForEmbedding(t *testing.T) {
	long := strings.Repeat("x", maxEmbeddingChars+100)
	got := truncateForEmbedding(long)
	if len([]rune(got)) != maxEmbeddingChars {
		t.Errorf("len(truncated) = %d, want %d", len([]rune(got)), maxEmbeddingChars)
	}
}

func TestOllamaModel_Embed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := New(srv.URL, "test-embed-model")
	_, err := m.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
}
