package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

func TestUpsertSendsStoryPayload(t *testing.T) {
	var captured struct {
		Points []struct {
			ID      string         `json:"id"`
			Vector  []float32      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/stories/points" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Fatalf("expected wait=true, got %q", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "stories")
	err := client.Upsert(context.Background(), []domain.IndexPoint{{
		ID:     "point-1",
		Vector: []float32{0.1, 0.2},
		Story: domain.Story{
			ID:      "s1",
			Kind:    domain.KindQAPair,
			Title:   "Tell me about a failure",
			Source:  "api",
			Tags:    []string{"behavioral"},
			Content: "QUESTION: ...",
		},
	}})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if len(captured.Points) != 1 || captured.Points[0].ID != "point-1" {
		t.Fatalf("unexpected points %+v", captured.Points)
	}
	payload := captured.Points[0].Payload
	if payload["doc_id"] != "s1" || payload["kind"] != "qa_pair" || payload["content"] != "QUESTION: ..." {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestSearchForwardsThresholdAndRebuildsStories(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/stories/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.91,"vector":[0.1,0.9],"payload":{"doc_id":"s1","kind":"story","title":"Outage","source":"upload.pdf","tags":["sre"],"content":"SITUATION: ..."}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "stories")
	threshold := 0.7
	hits, err := client.Search(context.Background(), []float32{1, 0}, 5, true, &threshold)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if captured["score_threshold"] != 0.7 {
		t.Fatalf("expected score_threshold forwarded, got %v", captured["score_threshold"])
	}
	if captured["with_vector"] != true || captured["with_payload"] != true {
		t.Fatalf("unexpected request flags: %v", captured)
	}
	if len(hits) != 1 {
		t.Fatalf("expected one hit, got %d", len(hits))
	}
	hit := hits[0]
	if hit.Score != 0.91 || len(hit.Vector) != 2 {
		t.Fatalf("unexpected hit %+v", hit)
	}
	if hit.Story.ID != "s1" || hit.Story.Kind != domain.KindStory || hit.Story.Tags[0] != "sre" {
		t.Fatalf("story not rebuilt from payload: %+v", hit.Story)
	}
}

func TestSearchOmitsThresholdWhenUnset(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "stories")
	if _, err := client.Search(context.Background(), []float32{1}, 3, false, nil); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, present := captured["score_threshold"]; present {
		t.Fatalf("threshold must be absent when nil, got %v", captured["score_threshold"])
	}
}

func TestCollectionExists(t *testing.T) {
	exists := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/collections/stories" {
			http.NotFound(w, r)
			return
		}
		if !exists {
			http.Error(w, `{"status":{"error":"not found"}}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer server.Close()

	client := New(server.URL, "stories")
	ok, err := client.CollectionExists(context.Background())
	if err != nil || ok {
		t.Fatalf("expected missing collection, got ok=%v err=%v", ok, err)
	}

	exists = true
	ok, err = client.CollectionExists(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected existing collection, got ok=%v err=%v", ok, err)
	}
}

func TestEnsureCollectionToleratesConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := New(server.URL, "stories")
	if err := client.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("conflict must mean already created, got %v", err)
	}
}

func TestCountReadsExactTotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/stories/points/count" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["exact"] != true {
			t.Fatalf("expected exact count request, got %v", payload)
		}
		_, _ = w.Write([]byte(`{"result":{"count":42}}`))
	}))
	defer server.Close()

	client := New(server.URL, "stories")
	n, err := client.Count(context.Background())
	if err != nil || n != 42 {
		t.Fatalf("expected count 42, got %d err=%v", n, err)
	}
}

func TestErrorsIncludeResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "wrong vector size", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL, "stories")
	err := client.Upsert(context.Background(), []domain.IndexPoint{{ID: "p", Vector: []float32{1}}})
	if err == nil || !strings.Contains(err.Error(), "wrong vector size") {
		t.Fatalf("expected body in error, got %v", err)
	}
}
