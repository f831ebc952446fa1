package llm

import (
	"context"
	"testing"
)

func TestNewGeminiModelRequiresKeyAndModel(t *testing.T) {
	if _, err := NewGeminiModel(context.Background(), "", "gemini-x"); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := NewGeminiModel(context.Background(), "key", ""); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestGeminiFactoryFailsFastWithoutKey(t *testing.T) {
	f := GeminiFactory("", "gemini-x")
	if _, err := f(context.Background()); err == nil {
		t.Fatal("expected factory error")
	}
}
