package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPModelNoEndpoint(t *testing.T) {
	if _, err := NewHTTPModel("", "key", "model"); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestHTTPModelRequestShapes(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("auth header = %q", auth)
		}
		got = nil
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"text":"reply"}`))
	}))
	defer srv.Close()

	m, err := NewHTTPModel(srv.URL, "key", "model-x")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hi"}); err != nil {
		t.Fatal(err)
	}
	if got["prompt"] != "hi" || got["model"] != "model-x" {
		t.Fatalf("structured body = %v", got)
	}

	if _, err := m.Generate(context.Background(), "raw prompt"); err != nil {
		t.Fatal(err)
	}
	if got["prompt"] != "raw prompt" {
		t.Fatalf("raw body = %v", got)
	}
	if _, hasModel := got["model"]; hasModel {
		t.Fatalf("raw retry must not carry a model field: %v", got)
	}

	if _, err := m.Generate(context.Background(), 42); err == nil {
		t.Fatal("expected error for unsupported request type")
	}
}

func TestHTTPModelFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status_non_2xx", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(500)
			_, _ = w.Write([]byte("oops"))
		}},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not-json"))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			m, err := NewHTTPModel(srv.URL, "key", "model")
			if err != nil {
				t.Fatal(err)
			}
			m.HTTPClient = &http.Client{Timeout: time.Second}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if _, err := m.Generate(ctx, GenerateRequest{Prompt: "hi"}); err == nil {
				t.Fatal("expected error; got nil")
			}
		})
	}
}

func TestHTTPModelResultFeedsExtractors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"output":"hello world"}]}`))
	}))
	defer srv.Close()

	m, err := NewHTTPModel(srv.URL, "", "")
	if err != nil {
		t.Fatal(err)
	}
	result, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	text, err := ExtractText(result)
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q", text)
	}
}
