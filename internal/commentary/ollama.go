package commentary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// OllamaClient calls /api/generate once per prompt. It never retries.
type OllamaClient struct {
	baseURL string
	model   string
	http    *fasthttp.Client

	defaultTimeout time.Duration
}

type Option func(*OllamaClient)

func WithTimeout(d time.Duration) Option {
	return func(c *OllamaClient) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *OllamaClient) { c.http.Dial = dial }
}

func NewOllamaClient(baseURL, model string, opts ...Option) *OllamaClient {
	c := &OllamaClient{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:          strings.TrimSpace(model),
		http:           &fasthttp.Client{WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		defaultTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	// a long generation must not be cut off before the request deadline
	c.http.ReadTimeout = c.defaultTimeout
	return c
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + "/api/generate")
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("ollama api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama error: %s", truncate(out.Error, 512))
	}
	return out.Response, nil
}

func (c *OllamaClient) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
