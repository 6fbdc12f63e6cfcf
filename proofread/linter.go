package proofread

import (
	"context"
	"fmt"
	"strings"

	"github.com/remis-mod/remis/project"
)

// DefaultLintGame is the game id used by the linter when none is given.
const DefaultLintGame = "1"

// SourceLangCode is the locale sent with every validation request.
const SourceLangCode = "en_US"

// Linter validates arbitrary localisation text, independent of any
// loaded file.
type Linter struct {
	validator Validator
}

// NewLinter returns a Linter backed by v.
func NewLinter(v Validator) *Linter {
	return &Linter{validator: v}
}

// Lint validates content for gameID. Blank content is not sent and
// yields no issues.
func (l *Linter) Lint(ctx context.Context, content, gameID string) ([]project.Issue, Stats, error) {
	if strings.TrimSpace(content) == "" {
		return nil, Stats{}, nil
	}
	if gameID == "" {
		gameID = DefaultLintGame
	}
	issues, err := l.validator.ValidateLocalization(ctx, project.ValidateRequest{
		GameID:         gameID,
		Content:        content,
		SourceLangCode: SourceLangCode,
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("linting: %w", err)
	}
	return issues, statsOf(issues), nil
}
