package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// Client talks to the qdrant REST API. Point IDs are content-derived
// upstream, so re-upserting the same story is a no-op on the collection.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Collection() string {
	return c.collection
}

func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPut, url, reqBody, "ensure collection")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	return checkStatus("ensure collection", resp)
}

func (c *Client) CollectionExists(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodGet, url, nil, "get collection")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := checkStatus("get collection", resp); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	body := make([]point, 0, len(points))
	for _, p := range points {
		body = append(body, point{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: map[string]any{
				"doc_id":  p.Story.ID,
				"kind":    string(p.Story.Kind),
				"title":   p.Story.Title,
				"source":  p.Story.Source,
				"tags":    p.Story.Tags,
				"content": p.Story.Content,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPut, url, map[string]any{"points": body}, "upsert")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus("upsert", resp)
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	withVectors bool,
	scoreThreshold *float64,
) ([]domain.ScoredStory, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  withVectors,
	}
	if scoreThreshold != nil {
		reqBody["score_threshold"] = *scoreThreshold
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPost, url, reqBody, "search")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus("search", resp); err != nil {
		return nil, err
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Vector  []float32      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.ScoredStory, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ScoredStory{
			Story:  storyFromPayload(r.Payload),
			Score:  r.Score,
			Vector: r.Vector,
		})
	}
	return out, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPost, url, map[string]any{"exact": true}, "count")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := checkStatus("count", resp); err != nil {
		return 0, err
	}

	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return countResp.Result.Count, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload any, operation string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", operation, err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	return resp, nil
}

func checkStatus(operation string, resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
	}
	return fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
}

func storyFromPayload(payload map[string]any) domain.Story {
	return domain.Story{
		ID:      getStringPayload(payload, "doc_id"),
		Kind:    domain.StoryKind(getStringPayload(payload, "kind")),
		Title:   getStringPayload(payload, "title"),
		Source:  getStringPayload(payload, "source"),
		Tags:    getStringSlicePayload(payload, "tags"),
		Content: getStringPayload(payload, "content"),
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getStringSlicePayload(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
