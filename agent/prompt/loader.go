package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/routing.txt
	routingRaw string

	//go:embed template/nutrition.txt
	nutritionRaw string

	//go:embed template/recommendation.txt
	recommendationRaw string

	//go:embed template/quality.txt
	qualityRaw string
)

// Set holds the loaded prompt content.
type Set struct {
	Routing        string
	Nutrition      string
	Recommendation string
	Quality        string
}

// LoadSet returns the embedded prompts with surrounding whitespace trimmed.
// Safe to call concurrently.
func LoadSet() Set {
	return Set{
		Routing:        strings.TrimSpace(routingRaw),
		Nutrition:      strings.TrimSpace(nutritionRaw),
		Recommendation: strings.TrimSpace(recommendationRaw),
		Quality:        strings.TrimSpace(qualityRaw),
	}
}
