package pricing

import (
	"regexp"
	"sort"
	"strings"
)

// preferredPrefixes are tried in order when a bare model name needs a
// provider prefix, and rank fuzzy candidates from these providers first.
var preferredPrefixes = []string{"xai/", "anthropic/", "openai/", "google/", "mistral/"}

// resellerPrefixes rank last among fuzzy candidates: they duplicate the
// first-party entries at marked-up or region-specific rates.
var resellerPrefixes = []string{"azure_ai/", "bedrock/", "vertex_ai/"}

var (
	hyphenVersion = regexp.MustCompile(`(\d)-(\d)`)
	dotVersion    = regexp.MustCompile(`(\d)\.(\d)`)
	wordSplit     = regexp.MustCompile(`[-.\s]+`)
)

// Resolve maps a caller-supplied short model name to a catalog entry.
// Steps, first hit wins: exact key, version-normalized variants,
// provider-prefixed candidates, fuzzy word-subset match. The returned key is
// the catalog key that matched; found is false when nothing did.
func (c *Catalog) Resolve(name string) (Entry, string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Entry{}, "", false
	}

	// Exact key match
	if e, ok := c.entries[name]; ok {
		return e, name, true
	}

	// Version normalization: 3-5 <-> 3.5
	variants := versionVariants(name)
	for _, v := range variants {
		if e, ok := c.entries[v]; ok {
			return e, v, true
		}
	}

	// Provider-prefixed candidates, original form before normalized forms
	for _, prefix := range preferredPrefixes {
		for _, candidate := range append([]string{name}, variants...) {
			key := prefix + candidate
			if e, ok := c.entries[key]; ok {
				return e, key, true
			}
		}
	}

	// Fuzzy last resort: every word of the query must appear in the key
	if key, ok := c.fuzzyMatch(name); ok {
		return c.entries[key], key, true
	}

	return Entry{}, "", false
}

// versionVariants returns the digit-hyphen-digit and digit-dot-digit
// rewrites of name, excluding name itself.
func versionVariants(name string) []string {
	var variants []string
	if dotted := hyphenVersion.ReplaceAllString(name, "$1.$2"); dotted != name {
		variants = append(variants, dotted)
	}
	if hyphened := dotVersion.ReplaceAllString(name, "$1-$2"); hyphened != name {
		variants = append(variants, hyphened)
	}
	return variants
}

func (c *Catalog) fuzzyMatch(name string) (string, bool) {
	words := wordSplit.Split(name, -1)
	var filtered []string
	for _, w := range words {
		if w != "" {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) == 0 {
		return "", false
	}

	var candidates []string
	for key := range c.entries {
		if containsAllWords(key, filtered) {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := providerPriority(candidates[i]), providerPriority(candidates[j])
		if pi != pj {
			return pi < pj
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], true
}

func containsAllWords(key string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(key, w) {
			return false
		}
	}
	return true
}

// providerPriority orders fuzzy candidates: preferred providers in their
// listed order, then unprefixed or unknown providers, then resellers.
func providerPriority(key string) int {
	for i, prefix := range preferredPrefixes {
		if strings.HasPrefix(key, prefix) {
			return i
		}
	}
	for _, prefix := range resellerPrefixes {
		if strings.HasPrefix(key, prefix) {
			return len(preferredPrefixes) + 1
		}
	}
	return len(preferredPrefixes)
}
