package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minTitleLen  = 3
	maxTitleLen  = 200
	DefaultStyle = "informative"
)

var (
	ErrNotConfigured = errors.New("content generation is not configured")
	ErrInvalidTitle  = errors.New("invalid title")
	ErrEmptyResponse = errors.New("provider returned no content")
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

type Suggestion struct {
	Style   string `json:"style"`
	Content string `json:"content"`
}

// SuggestionStyles are produced by Suggestions, in order.
var SuggestionStyles = []string{"Informative", "Conversational", "Professional"}

type Service struct {
	gen    Generator
	logger *zap.Logger
}

// NewService wraps gen. A nil gen yields a service whose calls fail with
// ErrNotConfigured.
func NewService(gen Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, logger: logger}
}

func (s *Service) Configured() bool {
	return s.gen != nil
}

// ValidateTitle trims raw and checks its length in characters.
func ValidateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		return "", fmt.Errorf("%w: title is required", ErrInvalidTitle)
	case n < minTitleLen:
		return "", fmt.Errorf("%w: title must be at least %d characters long", ErrInvalidTitle, minTitleLen)
	case n > maxTitleLen:
		return "", fmt.Errorf("%w: title must be less than %d characters", ErrInvalidTitle, maxTitleLen)
	}
	return title, nil
}

func postPrompt(title, style string) string {
	return fmt.Sprintf(`Write engaging post content for the title: %q

Style: %s

Requirements:
- 200 to 500 words
- Clear paragraphs
- Relevant details and insights
- Suitable for a community forum
- End with an actionable takeaway

Content:`, title, style)
}

func suggestionPrompt(title, style string) string {
	return fmt.Sprintf(`Write a %s take on the post title: %q

Keep it between 150 and 300 words and suitable for a community forum.
Return only the post body.`, strings.ToLower(style), title)
}

// GeneratePostContent writes a post body for title in the given style.
func (s *Service) GeneratePostContent(ctx context.Context, title, style string) (string, error) {
	if s.gen == nil {
		return "", ErrNotConfigured
	}
	title, err := ValidateTitle(title)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(style) == "" {
		style = DefaultStyle
	}

	text, err := s.generate(ctx, postPrompt(title, style))
	if err != nil {
		return "", fmt.Errorf("content generation failed: %w", err)
	}
	return text, nil
}

// Suggestions produces one draft per SuggestionStyles entry concurrently.
// Any failing draft fails the whole call.
func (s *Service) Suggestions(ctx context.Context, title string) ([]Suggestion, error) {
	if s.gen == nil {
		return nil, ErrNotConfigured
	}
	title, err := ValidateTitle(title)
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, len(SuggestionStyles))
	g, gctx := errgroup.WithContext(ctx)
	for i, style := range SuggestionStyles {
		g.Go(func() error {
			text, err := s.generate(gctx, suggestionPrompt(title, style))
			if err != nil {
				return fmt.Errorf("%s suggestion: %w", style, err)
			}
			out[i] = Suggestion{Style: style, Content: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("content suggestions failed: %w", err)
	}
	return out, nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("provider call failed", zap.String("provider", s.gen.Name()), zap.Error(err))
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
