package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

// SeedGenerator turns an idea into search prompts for the similarity index
type SeedGenerator interface {
	GenerateSeeds(ctx context.Context, input entities.IdeaInput, count int) ([]string, error)
}

const seedSystemPrompt = `You help founders research search demand. Given a product idea, return ONLY a JSON array of short search phrases (2-6 words each) that a potential customer might type into a search engine. Cover different angles: the problem, the solution, alternatives, audiences and use cases. Use lowercase. No numbering, no commentary.`

// TextSeedGenerator asks the text generator for seeds and tops the list up
// from deterministic templates when the generator is missing, fails or
// returns too few.
type TextSeedGenerator struct {
	generator providers.TextGenerator
	timeout   time.Duration
}

var _ SeedGenerator = (*TextSeedGenerator)(nil)

// NewTextSeedGenerator creates a seed generator. generator may be nil.
func NewTextSeedGenerator(generator providers.TextGenerator, timeout time.Duration) *TextSeedGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TextSeedGenerator{generator: generator, timeout: timeout}
}

// GenerateSeeds returns exactly count distinct seeds unless the idea is empty
func (g *TextSeedGenerator) GenerateSeeds(ctx context.Context, input entities.IdeaInput, count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	logger := observability.LoggerFromContext(ctx)

	var seeds []string
	if g.generator != nil {
		genCtx, cancel := context.WithTimeout(ctx, g.timeout)
		text, err := g.generator.Generate(genCtx, seedSystemPrompt, buildSeedPrompt(input, count))
		cancel()
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Msg("Seed generation failed, using templates")
		default:
			seeds = utils.ParseStringList(text)
		}
	}

	seeds = mergeSeeds(count, seeds, TemplateSeeds(input))
	if len(seeds) < count {
		logger.Debug().Int("seeds", len(seeds)).Int("requested", count).Msg("Idea too thin for a full seed set")
	}
	return seeds, nil
}

func buildSeedPrompt(input entities.IdeaInput, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product idea: %s\n", strings.TrimSpace(input.Pitch))
	writeList(&b, "Topics", input.Topics)
	writeList(&b, "Target customers", input.Personas)
	writeList(&b, "Pain points", input.PainPoints)
	writeList(&b, "Features", input.Features)
	fmt.Fprintf(&b, "Return %d search phrases.\n", count)
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, "; "))
}

// TemplateSeeds derives seeds from the idea without a text generator. The
// pitch leads, followed by topics, pain points, features and persona variants.
func TemplateSeeds(input entities.IdeaInput) []string {
	pitch := utils.NormalizeKeyword(input.Pitch)

	var seeds []string
	if pitch != "" {
		seeds = append(seeds, pitch)
	}
	for _, topic := range input.Topics {
		seeds = append(seeds, topic)
	}
	for _, pain := range input.PainPoints {
		seeds = append(seeds, "how to "+strings.TrimSpace(pain))
	}
	for _, feature := range input.Features {
		seeds = append(seeds, feature)
	}
	subject := pitch
	if len(input.Topics) > 0 {
		subject = utils.NormalizeKeyword(input.Topics[0])
	}
	for _, persona := range input.Personas {
		if subject != "" {
			seeds = append(seeds, subject+" for "+strings.TrimSpace(persona))
		}
	}
	if subject != "" {
		seeds = append(seeds,
			"best "+subject,
			subject+" app",
			subject+" software",
			subject+" alternatives",
			subject+" near me",
			subject+" cost",
			subject+" reviews",
			"cheap "+subject,
			"how to choose "+subject,
		)
	}
	return seeds
}

// mergeSeeds concatenates the lists, normalizing and dropping duplicates,
// until count seeds are collected.
func mergeSeeds(count int, lists ...[]string) []string {
	out := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for _, list := range lists {
		for _, s := range list {
			key := utils.NormalizeKeyword(s)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
			if len(out) == count {
				return out
			}
		}
	}
	return out
}
