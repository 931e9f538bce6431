package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Timeout: 5 * time.Second}, zerolog.Nop())
}

func TestClient_Generate_Success(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("expected api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`))
	})

	text, err := c.Generate(context.Background(), &Request{
		Model:             "test-model",
		SystemInstruction: "be precise",
		Text:              "hello",
		ResponseSchema:    json.RawMessage(`{"type":"OBJECT"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"a":1}` {
		t.Errorf("expected concatenated parts, got %q", text)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be precise" {
		t.Error("expected system instruction to be sent")
	}
	if got.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("expected json mime type, got %q", got.GenerationConfig.ResponseMimeType)
	}
	if string(got.GenerationConfig.ResponseSchema) != `{"type":"OBJECT"}` {
		t.Errorf("unexpected schema %s", got.GenerationConfig.ResponseSchema)
	}
}

func TestClient_Generate_InlineImage(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{}"}]}}]}`))
	})

	_, err := c.Generate(context.Background(), &Request{
		Model: "m",
		Text:  "look",
		Image: &Image{MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := got.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[1].InlineData == nil || parts[1].InlineData.Data != "/9g=" {
		t.Errorf("expected base64 image data, got %+v", parts[1].InlineData)
	}
}

func TestClient_Generate_NoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})
	text, err := c.Generate(context.Background(), &Request{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestClient_Generate_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":503,"message":"model overloaded","status":"UNAVAILABLE"}}`))
	})
	_, err := c.Generate(context.Background(), &Request{Model: "m"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("expected api message in error, got %v", err)
	}
}

func TestClient_Generate_TransportFailure(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, zerolog.Nop())
	_, err := c.Generate(context.Background(), &Request{Model: "m"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
