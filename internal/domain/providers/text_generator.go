package providers

import (
	"context"
)

// TextGenerator is the external text generation collaborator. Output is
// best-effort free text; callers own parsing and must tolerate malformed output.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
