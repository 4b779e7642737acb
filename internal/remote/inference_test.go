package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/notelens/assist-client/internal/apierrors"
	"github.com/notelens/assist-client/internal/types"
)

func TestChat_Buffered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Model != "gpt-4o" {
			t.Errorf("model on the wire = %q, want bare id", req.Model)
		}
		_ = json.NewEncoder(w).Encode(types.ChatResponse{
			Content:  "hello",
			Provider: "openai",
			Model:    "gpt-4o",
			Tokens:   types.Tokens{Input: 3, Output: 5, Total: 8},
		})
	}))
	defer srv.Close()

	c := NewInference(srv.Client(), srv.URL)
	res, err := c.Chat(context.Background(), types.ChatRequest{Model: "gpt-4o"}, "tok")
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if res.Content != "hello" || res.FullModelID != "openai/gpt-4o" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Streamed {
		t.Fatal("buffered result marked streamed")
	}
}

func TestChat_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewInference(srv.Client(), srv.URL)
	_, err := c.Chat(context.Background(), types.ChatRequest{}, "stale")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestChat_RemoteErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(types.RemoteErrorBody{
			Error:   "TOKEN_LIMIT_EXCEEDED",
			Message: "daily budget spent",
		})
	}))
	defer srv.Close()

	c := NewInference(srv.Client(), srv.URL)
	_, err := c.Chat(context.Background(), types.ChatRequest{}, "tok")

	var re *apierrors.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if re.Code != "limit_exceeded" {
		t.Fatalf("code = %q, want limit_exceeded", re.Code)
	}
	if re.Message != "daily budget spent" {
		t.Fatalf("message = %q", re.Message)
	}
}

func TestChat_NetworkUnavailable(t *testing.T) {
	c := NewInference(&http.Client{}, "http://127.0.0.1:1")
	_, err := c.Chat(context.Background(), types.ChatRequest{}, "tok")
	if !errors.Is(err, apierrors.ErrNetworkUnavailable) {
		t.Fatalf("err = %v, want ErrNetworkUnavailable", err)
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"model_not_available":    "model_not_available",
		"feature_not_available":  "feature_not_available",
		"limit_exceeded":         "limit_exceeded",
		"TOKEN_LIMIT_EXCEEDED":   "limit_exceeded",
		"REQUEST_LIMIT_EXCEEDED": "limit_exceeded",
		"weird_upstream_code":    "api_error",
		"":                       "api_error",
	}
	for in, want := range cases {
		if got := NormalizeCode(in); got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}
