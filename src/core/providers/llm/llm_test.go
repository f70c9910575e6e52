package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"ip-risk-server-go/src/core/types"

	"github.com/sashabaranov/go-openai"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestCompleteWithClient_Success(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"<think>hmm</think>RISK: 12\nEXPLANATION: fine"}}]}`))
	})

	temperature := 0.2
	reply, err := CompleteWithClient(context.Background(), client, &Config{ModelName: "fallback-model"}, types.CompletionRequest{
		Model:       "compound-beta",
		Temperature: &temperature,
		TopP:        0.5,
		Messages:    []types.Message{{Role: "user", Content: "prompt"}},
	})
	if err != nil {
		t.Fatalf("CompleteWithClient() error = %v", err)
	}
	if reply != "RISK: 12\nEXPLANATION: fine" {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "compound-beta" || got.Temperature != 0.2 || got.TopP != 0.5 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "prompt" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestCompleteWithClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})

	_, err := CompleteWithClient(context.Background(), client, &Config{ModelName: "m"}, types.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "prompt"}},
	})
	var upstream *types.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want *types.UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusUnauthorized || upstream.Message != "Invalid API Key" {
		t.Errorf("upstream = %+v", upstream)
	}
}

func TestCompleteWithClient_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	})

	_, err := CompleteWithClient(context.Background(), client, &Config{ModelName: "m"}, types.CompletionRequest{})
	if !errors.Is(err, types.ErrMalformedReply) {
		t.Fatalf("error = %v, want ErrMalformedReply", err)
	}
}

func TestStripThinkBlocks(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"RISK: 1", "RISK: 1"},
		{"<think>a\nb</think>\nRISK: 1", "RISK: 1"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := StripThinkBlocks(tt.input); got != tt.expected {
			t.Errorf("StripThinkBlocks(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCompleteWithClient_Temperature(t *testing.T) {
	zero, half := 0.0, 0.5

	tests := []struct {
		name     string
		config   *float64
		request  *float64
		wantSent bool
		want     float64
	}{
		{"请求显式为0", &half, &zero, true, 0},
		{"配置显式为0", &zero, nil, true, 0},
		{"请求覆盖配置", &zero, &half, true, 0.5},
		{"都未设置", nil, nil, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]interface{}
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&body)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"RISK: 1\nEXPLANATION: ok"}}]}`))
			})

			_, err := CompleteWithClient(context.Background(), client, &Config{ModelName: "m", Temperature: tt.config}, types.CompletionRequest{
				Temperature: tt.request,
				Messages:    []types.Message{{Role: "user", Content: "prompt"}},
			})
			if err != nil {
				t.Fatalf("CompleteWithClient() error = %v", err)
			}

			value, sent := body["temperature"]
			if sent != tt.wantSent {
				t.Fatalf("temperature sent = %v, want %v (body %v)", sent, tt.wantSent, body)
			}
			if !sent {
				return
			}
			got, _ := value.(float64)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("temperature = %v, want %v", got, tt.want)
			}
		})
	}
}
