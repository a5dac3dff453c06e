// Package fileextract provides a docparse provider backed by an OpenAI-style
// file-extraction API (upload under purpose "file-extract", then fetch the
// extracted content). Zhipu's GLM file API is the reference implementation of
// this shape.
package fileextract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sonoglot/sonoglot/pkg/provider/docparse"
)

// DefaultBaseURL is the Zhipu file API endpoint used when no override is given.
const DefaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"

// Ensure Provider implements the docparse.Provider interface at compile time.
var _ docparse.Provider = (*Provider)(nil)

// Provider implements docparse.Provider against a file-extract HTTP API.
// It is safe for concurrent use.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// config holds optional configuration collected from functional options.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default API base URL. A trailing slash is stripped.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout. Extraction of large PDFs can
// take tens of seconds; the default is 60s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new file-extract Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("fileextract: apiKey must not be empty")
	}

	cfg := &config{timeout: 60 * time.Second}
	for _, o := range opts {
		o(cfg)
	}

	baseURL := cfg.baseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &Provider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.timeout},
	}, nil
}

// uploadResponse is the JSON body returned by the file upload endpoint.
type uploadResponse struct {
	ID string `json:"id"`
}

// contentResponse is the JSON body returned by the content endpoint. Some
// deployments return raw text instead; parse handles both.
type contentResponse struct {
	Content string `json:"content"`
	Pages   int    `json:"pages"`
}

// Parse implements docparse.Provider. It uploads the document under purpose
// "file-extract" and then fetches the extracted content for the returned file ID.
func (p *Provider) Parse(ctx context.Context, name string, r io.Reader) (docparse.Result, error) {
	fileID, err := p.upload(ctx, name, r)
	if err != nil {
		return docparse.Result{}, fmt.Errorf("fileextract: upload: %w", err)
	}

	res, err := p.fetchContent(ctx, fileID)
	if err != nil {
		return docparse.Result{}, fmt.Errorf("fileextract: fetch content: %w", err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return docparse.Result{}, fmt.Errorf("fileextract: file %q: %w", name, docparse.ErrNoText)
	}
	return res, nil
}

// upload sends the multipart upload request and returns the server-assigned file ID.
func (p *Provider) upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy file body: %w", err)
	}
	if err := mw.WriteField("purpose", "file-extract"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalise multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var up uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if up.ID == "" {
		return "", fmt.Errorf("response carries no file id")
	}
	return up.ID, nil
}

// fetchContent retrieves the extracted text for a previously uploaded file.
func (p *Provider) fetchContent(ctx context.Context, fileID string) (docparse.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/files/"+fileID+"/content", nil)
	if err != nil {
		return docparse.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return docparse.Result{}, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return docparse.Result{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return docparse.Result{}, fmt.Errorf("read body: %w", err)
	}

	// JSON envelope first; some deployments return the extracted text verbatim.
	var cr contentResponse
	if err := json.Unmarshal(raw, &cr); err == nil && cr.Content != "" {
		return docparse.Result{Text: cr.Content, Pages: cr.Pages}, nil
	}
	return docparse.Result{Text: string(raw)}, nil
}
