package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type stubHTTPClient struct {
	status int
	body   string
	err    error
	req    *http.Request
	sent   map[string]any
}

func (c *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.req = req
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(b, &c.sent)
	}
	if c.err != nil {
		return nil, c.err
	}
	return &http.Response{StatusCode: c.status, Body: io.NopCloser(strings.NewReader(c.body)), Header: make(http.Header)}, nil
}

func TestOpenAIClientDisabledWithoutKey(t *testing.T) {
	hc := &stubHTTPClient{}
	c := NewOpenAIClient(OpenAIConfig{}, hc)
	if _, err := c.CompleteJSON(context.Background(), "s", "u"); !errors.Is(err, ErrLLMDisabled) {
		t.Fatalf("expected ErrLLMDisabled, got %v", err)
	}
	if hc.req != nil {
		t.Fatalf("no request should be sent")
	}
}

func TestOpenAIClientCompletes(t *testing.T) {
	hc := &stubHTTPClient{status: 200, body: `{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`}
	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: "https://llm.example.com/v1/"}, hc)

	out, err := c.CompleteJSON(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("out = %q", out)
	}
	if got := hc.req.URL.String(); got != "https://llm.example.com/v1/chat/completions" {
		t.Fatalf("url = %q", got)
	}
	if got := hc.req.Header.Get("Authorization"); got != "Bearer k" {
		t.Fatalf("authorization = %q", got)
	}
	if hc.sent["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", hc.sent["model"])
	}
	if _, ok := hc.req.Context().Deadline(); !ok {
		t.Fatalf("request should carry a deadline")
	}
}

func TestOpenAIClientErrors(t *testing.T) {
	cases := []*stubHTTPClient{
		{status: 502, body: "bad gateway"},
		{status: 200, body: `{"choices":[]}`},
		{status: 200, body: `not json`},
		{err: errors.New("dial tcp: refused")},
	}
	for i, hc := range cases {
		c := NewOpenAIClient(OpenAIConfig{APIKey: "k"}, hc)
		if _, err := c.CompleteJSON(context.Background(), "s", "u"); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestNormalizeOpenAIEndpoint(t *testing.T) {
	cases := map[string]string{
		"":                                        "https://api.openai.com/v1/chat/completions",
		"https://api.openai.com":                  "https://api.openai.com/v1/chat/completions",
		"https://proxy.local/v1":                  "https://proxy.local/v1/chat/completions",
		"https://proxy.local/v1/chat/completions": "https://proxy.local/v1/chat/completions",
	}
	for in, want := range cases {
		if got := normalizeOpenAIEndpoint(in); got != want {
			t.Fatalf("normalizeOpenAIEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
