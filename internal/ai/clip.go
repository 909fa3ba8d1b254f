package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// clipProvider talks to a CLIP inference sidecar that serves the multimodal
// embedding model over HTTP. Text and image embeddings land in the same
// semantic space, which is what makes the unified text index comparable
// against image queries.
type clipConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

type clipProvider struct {
	baseURL string
	apiKey  string
}

type clipTextRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type clipImageRequest struct {
	Model string `json:"model"`
	Image string `json:"image"`
}

type clipEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *clipProvider) Name() string {
	return "clip"
}

func (p *clipProvider) Warm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	p.auth(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("clip model not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("clip model not ready: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

func (p *clipProvider) EmbedText(ctx context.Context, model string, text string) ([]float32, error) {
	rows, err := p.EmbedTextBatch(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (p *clipProvider) EmbedTextBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out, err := p.post(ctx, "/embed/text", clipTextRequest{Model: model, Texts: texts})
	if err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("clip returned %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

func (p *clipProvider) EmbedImage(ctx context.Context, model string, png []byte) ([]float32, error) {
	out, err := p.post(ctx, "/embed/image", clipImageRequest{
		Model: model,
		Image: base64.StdEncoding.EncodeToString(png),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("clip returned no image embedding")
	}
	return out.Embeddings[0], nil
}

func (p *clipProvider) post(ctx context.Context, path string, payload interface{}) (*clipEmbedResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	p.auth(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("clip request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out clipEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *clipProvider) auth(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

func createClipEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &clipConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("clip base_url is required")
	}
	return &clipProvider{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
	}, nil
}

func init() {
	RegisterEmbed("clip", createClipEmbedFactory)
}
