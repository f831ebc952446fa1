package llm

import (
	"context"
	"errors"
	"testing"
)

type contentModel struct {
	calls  int
	result any
	err    error
}

func (m *contentModel) GenerateContent(ctx context.Context, prompt string) (any, error) {
	m.calls++
	return m.result, m.err
}

type promptModel struct {
	calls   []any
	rejects int // fail this many leading calls
	result  any
}

func (m *promptModel) Generate(ctx context.Context, req any) (any, error) {
	m.calls = append(m.calls, req)
	if len(m.calls) <= m.rejects {
		return nil, errors.New("unsupported request shape")
	}
	return m.result, nil
}

func TestAcquireTierFallback(t *testing.T) {
	bad := func(ctx context.Context) (any, error) { return nil, errors.New("no key") }
	good := func(ctx context.Context) (any, error) { return &contentModel{result: "hi"}, nil }

	model, err := Acquire(context.Background(), bad, good)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := model.(*contentModel); !ok {
		t.Fatalf("got %T", model)
	}
}

func TestAcquireAllTiersFail(t *testing.T) {
	bad := func(ctx context.Context) (any, error) { return nil, errors.New("down") }
	_, err := Acquire(context.Background(), bad, bad)
	if !errors.Is(err, ErrModelInit) {
		t.Fatalf("err = %v, want ErrModelInit", err)
	}
}

func TestAcquireNoFactories(t *testing.T) {
	if _, err := Acquire(context.Background()); !errors.Is(err, ErrModelInit) {
		t.Fatalf("err = %v", err)
	}
}

func TestInvokePrefersContentGenerator(t *testing.T) {
	m := &contentModel{result: "answer"}
	got, err := Invoke(context.Background(), m, "prompt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "answer" || m.calls != 1 {
		t.Fatalf("got %v after %d calls", got, m.calls)
	}
}

func TestInvokeRetriesPromptGeneratorWithRawString(t *testing.T) {
	m := &promptModel{rejects: 1, result: "answer"}
	got, err := Invoke(context.Background(), m, "the prompt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "answer" {
		t.Fatalf("got %v", got)
	}
	if len(m.calls) != 2 {
		t.Fatalf("model invoked %d times, want 2", len(m.calls))
	}
	if req, ok := m.calls[0].(GenerateRequest); !ok || req.Prompt != "the prompt" {
		t.Fatalf("first call arg = %#v", m.calls[0])
	}
	if raw, ok := m.calls[1].(string); !ok || raw != "the prompt" {
		t.Fatalf("second call arg = %#v", m.calls[1])
	}
}

func TestInvokePromptGeneratorFirstTry(t *testing.T) {
	m := &promptModel{result: "ok"}
	if _, err := Invoke(context.Background(), m, "p"); err != nil {
		t.Fatal(err)
	}
	if len(m.calls) != 1 {
		t.Fatalf("model invoked %d times, want 1", len(m.calls))
	}
}

func TestInvokeNoCapability(t *testing.T) {
	_, err := Invoke(context.Background(), struct{}{}, "p")
	if !errors.Is(err, ErrNoGenerateMethod) {
		t.Fatalf("err = %v, want ErrNoGenerateMethod", err)
	}
}
