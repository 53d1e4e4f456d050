package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"video-ads/internal/apperr"
)

const (
	MinPromptLength = 10
	MaxPromptLength = 2000
	MaxTitleLength  = 200
)

var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
}

// ValidatePrompt checks length bounds and rejects markup that could be
// rendered as script.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return apperr.NewValidation("prompt", "Prompt cannot be empty")
	}

	n := utf8.RuneCountInString(prompt)
	if n < MinPromptLength {
		return apperr.NewValidation("prompt", fmt.Sprintf("Prompt must be at least %d characters", MinPromptLength))
	}
	if n > MaxPromptLength {
		return apperr.NewValidation("prompt", fmt.Sprintf("Prompt must be less than %d characters", MaxPromptLength))
	}

	for _, p := range unsafePatterns {
		if p.MatchString(prompt) {
			return apperr.NewValidation("prompt", "Prompt contains invalid content")
		}
	}
	return nil
}

func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.NewValidation("title", "Title cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperr.NewValidation("title", fmt.Sprintf("Title must be less than %d characters", MaxTitleLength))
	}
	return nil
}
