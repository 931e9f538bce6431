// Package engine calls the external reasoning engine. The engine is treated
// as unreliable: transport failures, error statuses and empty candidates are
// normal outcomes the caller must handle.
package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable is wrapped by every transport or status failure.
var ErrUnavailable = errors.New("engine unavailable")

// Image is inline image data sent alongside the prompt.
type Image struct {
	MimeType string
	Data     []byte
}

// Request is one generation call.
type Request struct {
	Model             string
	SystemInstruction string
	Text              string
	Image             *Image
	// ResponseSchema is the JSON encoding of the declared response schema.
	ResponseSchema json.RawMessage
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a Gemini generateContent client. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a Client. A zero Timeout defaults to one minute.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "engine").Logger(),
	}
}

// Generate sends req and returns the text of the first candidate. An empty
// string with a nil error means the engine answered without content.
func (c *Client) Generate(ctx context.Context, req *Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("engine: nil request")
	}
	body, err := json.Marshal(buildGenerateRequest(req))
	if err != nil {
		return "", fmt.Errorf("engine: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("engine: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("model", req.Model).Msg("engine call failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	c.logger.Debug().
		Str("model", req.Model).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("engine call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, msg)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(out.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func buildGenerateRequest(req *Request) generateRequest {
	parts := []part{{Text: req.Text}}
	if req.Image != nil {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: req.Image.MimeType,
			Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
		}})
	}
	gr := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   req.ResponseSchema,
		},
	}
	if req.SystemInstruction != "" {
		gr.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	return gr
}
