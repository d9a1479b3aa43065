package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilythestrangee/ai-forum/backend/internal/config"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply(prompt)
}

func echo(prompt string) (string, error) {
	return "  draft for: " + prompt + "  ", nil
}

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "  Go generics  ", want: "Go generics"},
		{in: "abc", want: "abc"},
		{in: "   ", wantErr: true},
		{in: "ab", wantErr: true},
		{in: " ab ", wantErr: true},
		{in: strings.Repeat("x", 200), want: strings.Repeat("x", 200)},
		{in: strings.Repeat("x", 201), wantErr: true},
		{in: "héé", want: "héé"},
	}
	for _, tt := range tests {
		got, err := ValidateTitle(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidTitle, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestGeneratePostContent(t *testing.T) {
	gen := &fakeGenerator{reply: echo}
	svc := NewService(gen, nil)

	text, err := svc.GeneratePostContent(context.Background(), "  Learning Go  ", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "draft for:"))
	assert.False(t, strings.HasSuffix(text, " "))

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], `"Learning Go"`)
	assert.Contains(t, gen.prompts[0], "Style: informative")
}

func TestGeneratePostContentRejectsBadTitleBeforeCallingProvider(t *testing.T) {
	gen := &fakeGenerator{reply: echo}
	svc := NewService(gen, nil)

	_, err := svc.GeneratePostContent(context.Background(), "hi", "casual")
	assert.ErrorIs(t, err, ErrInvalidTitle)
	assert.Empty(t, gen.prompts)
}

func TestGeneratePostContentEmptyReply(t *testing.T) {
	svc := NewService(&fakeGenerator{reply: func(string) (string, error) { return "   ", nil }}, nil)

	_, err := svc.GeneratePostContent(context.Background(), "Learning Go", "casual")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestSuggestionsKeepsStyleOrder(t *testing.T) {
	gen := &fakeGenerator{reply: echo}
	svc := NewService(gen, nil)

	got, err := svc.Suggestions(context.Background(), "Learning Go")
	require.NoError(t, err)
	require.Len(t, got, len(SuggestionStyles))
	for i, s := range got {
		assert.Equal(t, SuggestionStyles[i], s.Style)
		assert.Contains(t, s.Content, strings.ToLower(SuggestionStyles[i]))
	}
	assert.Len(t, gen.prompts, 3)
}

func TestSuggestionsFailWhenOneDraftFails(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := NewService(&fakeGenerator{reply: func(p string) (string, error) {
		if strings.Contains(p, "conversational") {
			return "", boom
		}
		return "ok", nil
	}}, nil)

	_, err := svc.Suggestions(context.Background(), "Learning Go")
	assert.ErrorIs(t, err, boom)
}

func TestUnconfiguredService(t *testing.T) {
	svc := NewService(nil, nil)
	assert.False(t, svc.Configured())

	_, err := svc.GeneratePostContent(context.Background(), "Learning Go", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.Suggestions(context.Background(), "Learning Go")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	svc, err := FromConfig(ctx, &config.Config{ContentProvider: "gemini"}, log)
	require.NoError(t, err)
	assert.False(t, svc.Configured())

	svc, err = FromConfig(ctx, &config.Config{ContentProvider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}, log)
	require.NoError(t, err)
	assert.True(t, svc.Configured())

	_, err = FromConfig(ctx, &config.Config{ContentProvider: "llama"}, log)
	assert.Error(t, err)
}
