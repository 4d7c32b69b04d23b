package script

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Options selects and configures a text service.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	AWS      aws.Config
}

// New returns the generator for opts.Provider. An empty provider means Claude.
func New(opts Options) (Generator, error) {
	switch opts.Provider {
	case ProviderClaude, "":
		return NewClaudeGenerator(opts.Model, opts.APIKey), nil
	case ProviderGemini:
		return NewGeminiGenerator(opts.Model, opts.APIKey), nil
	case ProviderNova:
		return NewNovaGenerator(opts.Model, opts.AWS), nil
	default:
		return nil, fmt.Errorf("invalid text provider %q: must be claude, gemini, or nova", opts.Provider)
	}
}
