package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// fallbackEntry carries per-million-token USD rates for the built-in table.
// Cache rates are derived: read = 10% of input, write = 125% of input.
type fallbackEntry struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// fallbackTable covers common models for when the catalog is unreachable
// and holds no match. Keys are prefixes; the longest matching prefix wins.
var fallbackTable = map[string]fallbackEntry{
	// Anthropic
	"claude-opus-4":     {15, 75},
	"claude-sonnet-4":   {3, 15},
	"claude-haiku-4":    {1, 5},
	"claude-3-7-sonnet": {3, 15},
	"claude-3-5-sonnet": {3, 15},
	"claude-3-5-haiku":  {0.8, 4},
	"claude-3-opus":     {15, 75},
	"claude-3-haiku":    {0.25, 1.25},

	// OpenAI
	"gpt-4o-mini": {0.15, 0.6},
	"gpt-4o":      {2.5, 10},
	"gpt-4-turbo": {10, 30},
	"gpt-4.1":     {2, 8},
	"o1-mini":     {1.1, 4.4},
	"o1":          {15, 60},
	"o3-mini":     {1.1, 4.4},
	"o3":          {2, 8},

	// Google
	"gemini-2.5-pro":   {1.25, 10},
	"gemini-2.5-flash": {0.3, 2.5},
	"gemini-2.0-flash": {0.1, 0.4},
	"gemini-1.5-pro":   {1.25, 5},
	"gemini-1.5-flash": {0.075, 0.3},

	// xAI
	"grok-code-fast": {0.2, 1.5},
	"grok-4":         {3, 15},
	"grok-3-mini":    {0.3, 0.5},
	"grok-3":         {3, 15},

	// Mistral
	"mistral-large":  {2, 6},
	"mistral-medium": {0.4, 2},
	"codestral":      {0.3, 0.9},
}

var perMTok = decimal.NewFromInt(1_000_000)

// LookupFallback matches a model against the built-in table by longest
// prefix. It never fabricates pricing: no match means no cost.
func LookupFallback(model string) (Entry, bool) {
	model = strings.ToLower(strings.TrimSpace(model))

	var bestPrefix string
	var best fallbackEntry
	for prefix, entry := range fallbackTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix = prefix
			best = entry
		}
	}
	if bestPrefix == "" {
		return Entry{}, false
	}

	input := decimal.NewFromFloat(best.InputPerMTok).Div(perMTok)
	output := decimal.NewFromFloat(best.OutputPerMTok).Div(perMTok)
	return Entry{
		Input:      input,
		Output:     output,
		CacheRead:  input.Mul(decimal.NewFromFloat(0.1)),
		CacheWrite: input.Mul(decimal.NewFromFloat(1.25)),
	}, true
}
