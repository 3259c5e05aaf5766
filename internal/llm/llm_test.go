package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockProviderRecordsCallsAndErrors(t *testing.T) {
	mock := NewMockProvider("test")
	ctx := context.Background()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := mock.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("content = %q, want 'mock response'", resp.Content)
	}
	if mock.Calls[0].Model != "test-model" {
		t.Errorf("recorded model = %q", mock.Calls[0].Model)
	}

	mock.Err = errors.New("boom")
	if _, err := mock.Complete(ctx, req); err == nil {
		t.Error("expected configured error")
	}
	if mock.CallCount() != 2 {
		t.Errorf("call count = %d, want 2 (failed calls are recorded too)", mock.CallCount())
	}
}

func TestNewProvider(t *testing.T) {
	cases := []struct {
		name     string
		provider string
		env      map[string]string
		wantName string
		wantErr  bool
	}{
		{
			name:     "ollama needs no api key",
			provider: "ollama",
			wantName: "ollama",
		},
		{
			name:     "openai with key",
			provider: "openai",
			env:      map[string]string{"OPENAI_API_KEY": "test-key"},
			wantName: "openai",
		},
		{
			name:     "openai without key",
			provider: "openai",
			env:      map[string]string{"OPENAI_API_KEY": ""},
			wantErr:  true,
		},
		{
			name:     "anthropic with key",
			provider: "anthropic",
			env:      map[string]string{"ANTHROPIC_API_KEY": "test-key"},
			wantName: "anthropic",
		},
		{
			name:     "anthropic without key",
			provider: "anthropic",
			env:      map[string]string{"ANTHROPIC_API_KEY": ""},
			wantErr:  true,
		},
		{
			name:     "unknown provider",
			provider: "bard",
			wantErr:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			provider, err := NewProvider(tc.provider, "some-model", "")
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider.Name() != tc.wantName {
				t.Errorf("name = %q, want %q", provider.Name(), tc.wantName)
			}
		})
	}
}

func TestNewProviderOllamaHostResolution(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	provider, err := NewProvider("ollama", "dolphin3:8b", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := provider.(*OllamaProvider).baseURL; got != "http://localhost:11434" {
		t.Errorf("default host = %q", got)
	}

	t.Setenv("OLLAMA_HOST", "http://env-host:11434")
	provider, err = NewProvider("ollama", "dolphin3:8b", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := provider.(*OllamaProvider).baseURL; got != "http://env-host:11434" {
		t.Errorf("env host = %q", got)
	}

	// An explicit URL beats the environment.
	provider, err = NewProvider("ollama", "dolphin3:8b", "http://config-host:11434")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := provider.(*OllamaProvider).baseURL; got != "http://config-host:11434" {
		t.Errorf("config host = %q", got)
	}
}

func TestRateLimiterDisabledAtZeroRPM(t *testing.T) {
	mock := NewMockProvider("test")
	if got := NewRateLimitedProvider(mock, 0); got != Provider(mock) {
		t.Error("rpm 0 should return the provider unwrapped")
	}
	if got := NewRateLimitedProvider(mock, -5); got != Provider(mock) {
		t.Error("negative rpm should return the provider unwrapped")
	}
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	mock := NewMockProvider("paced")
	// 600 rpm spaces request starts 100ms apart.
	rl := NewRateLimitedProvider(mock, 600)

	ctx := context.Background()
	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := rl.Complete(ctx, req); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("three requests finished in %v, want at least 200ms of pacing", elapsed)
	}
	if mock.CallCount() != 3 {
		t.Errorf("call count = %d, want 3", mock.CallCount())
	}
	if rl.Name() != "paced" {
		t.Errorf("name = %q, want the wrapped provider's name", rl.Name())
	}
}

func TestRateLimiterHonorsContextCancel(t *testing.T) {
	mock := NewMockProvider("test")
	// One request per minute; the second call has to wait a full minute.
	rl := NewRateLimitedProvider(mock, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}}
	if _, err := rl.Complete(ctx, req); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}
	if _, err := rl.Complete(ctx, req); err == nil {
		t.Error("expected context deadline error while waiting for the next slot")
	}
	if mock.CallCount() != 1 {
		t.Errorf("call count = %d, want 1 (second request never reached the provider)", mock.CallCount())
	}
}
