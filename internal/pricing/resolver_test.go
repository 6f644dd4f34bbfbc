package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testCatalog(keys ...string) *Catalog {
	entries := make(map[string]Entry, len(keys))
	for i, k := range keys {
		// Distinct input rates so tests can tell entries apart
		entries[k] = Entry{Input: decimal.NewFromInt(int64(i + 1))}
	}
	return &Catalog{entries: entries}
}

func TestResolveExactMatch(t *testing.T) {
	c := testCatalog("anthropic/claude-3-5-sonnet-20241022")

	_, key, ok := c.Resolve("anthropic/claude-3-5-sonnet-20241022")
	if !ok {
		t.Fatal("expected exact match")
	}
	if key != "anthropic/claude-3-5-sonnet-20241022" {
		t.Errorf("unexpected key: %s", key)
	}
}

func TestResolveExactWinsOverNormalized(t *testing.T) {
	c := testCatalog("claude-3-5-sonnet", "claude-3.5-sonnet")

	e, key, ok := c.Resolve("claude-3-5-sonnet")
	if !ok {
		t.Fatal("expected match")
	}
	if key != "claude-3-5-sonnet" {
		t.Errorf("exact key should win over normalized variant, got %s", key)
	}
	want, _ := c.Get("claude-3-5-sonnet")
	if !e.Input.Equal(want.Input) {
		t.Error("resolved entry does not match exact key entry")
	}
}

func TestResolveVersionNormalization(t *testing.T) {
	tests := []struct {
		name       string
		catalogKey string
		query      string
	}{
		{"hyphen to dot", "claude-3.5-sonnet", "claude-3-5-sonnet"},
		{"dot to hyphen", "claude-3-5-sonnet", "claude-3.5-sonnet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCatalog(tt.catalogKey)
			_, key, ok := c.Resolve(tt.query)
			if !ok {
				t.Fatalf("expected %q to resolve", tt.query)
			}
			if key != tt.catalogKey {
				t.Errorf("expected key %q, got %q", tt.catalogKey, key)
			}
		})
	}
}

func TestResolveProviderPrefix(t *testing.T) {
	c := testCatalog("anthropic/claude-3-5-sonnet-20241022")

	_, key, ok := c.Resolve("claude-3-5-sonnet-20241022")
	if !ok {
		t.Fatal("expected provider-prefixed match")
	}
	if key != "anthropic/claude-3-5-sonnet-20241022" {
		t.Errorf("unexpected key: %s", key)
	}
}

func TestResolvePrefixedOriginalWinsOverFuzzy(t *testing.T) {
	// Both keys contain every word of the query; the prefixed exact form
	// must win before fuzzy matching runs.
	c := testCatalog("openai/gpt-4o", "azure_ai/gpt-4o-extended")

	_, key, ok := c.Resolve("gpt-4o")
	if !ok {
		t.Fatal("expected match")
	}
	if key != "openai/gpt-4o" {
		t.Errorf("provider-prefixed original should win, got %s", key)
	}
}

func TestResolveFuzzyGrokCode(t *testing.T) {
	c := testCatalog("xai/grok-code-fast-1", "anthropic/claude-3-5-sonnet")

	_, key, ok := c.Resolve("grok-code")
	if !ok {
		t.Fatal("expected fuzzy match")
	}
	if key != "xai/grok-code-fast-1" {
		t.Errorf("expected xai/grok-code-fast-1, got %s", key)
	}
}

func TestResolveFuzzyPrefersFirstPartyOverReseller(t *testing.T) {
	c := testCatalog("bedrock/claude-3-5-sonnet-v2", "anthropic/claude-3-5-sonnet-20241022")

	_, key, ok := c.Resolve("claude 3 5 sonnet")
	if !ok {
		t.Fatal("expected fuzzy match")
	}
	if key != "anthropic/claude-3-5-sonnet-20241022" {
		t.Errorf("first-party entry should outrank reseller, got %s", key)
	}
}

func TestResolveNotFound(t *testing.T) {
	c := testCatalog("anthropic/claude-3-5-sonnet")

	if _, _, ok := c.Resolve("totally-unknown-model"); ok {
		t.Error("expected no match")
	}
	if _, _, ok := c.Resolve(""); ok {
		t.Error("empty name should not match")
	}
	if _, _, ok := Empty().Resolve("claude-3-5-sonnet"); ok {
		t.Error("empty catalog should never match")
	}
}

func TestLookupFallback(t *testing.T) {
	tests := []struct {
		model string
		found bool
	}{
		{"claude-3-5-sonnet-20241022", true},
		{"claude-3-5-haiku-20241022", true},
		{"gpt-4o-2024-08-06", true},
		{"grok-code-fast-1", true},
		{"some-unknown-model", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			entry, ok := LookupFallback(tt.model)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if ok && !entry.Input.IsPositive() {
				t.Error("fallback entry should carry a positive input rate")
			}
		})
	}
}

func TestLookupFallbackLongestPrefixWins(t *testing.T) {
	sonnet, _ := LookupFallback("claude-3-5-sonnet-20241022")
	haiku, _ := LookupFallback("claude-3-5-haiku-20241022")
	if sonnet.Input.Equal(haiku.Input) {
		t.Error("sonnet and haiku should resolve to distinct fallback entries")
	}
}

func TestLookupFallbackCacheDerivation(t *testing.T) {
	entry, ok := LookupFallback("claude-3-5-sonnet")
	if !ok {
		t.Fatal("expected fallback entry")
	}
	wantRead := entry.Input.Mul(decimal.NewFromFloat(0.1))
	wantWrite := entry.Input.Mul(decimal.NewFromFloat(1.25))
	if !entry.CacheRead.Equal(wantRead) {
		t.Errorf("cache read should be 10%% of input, got %s", entry.CacheRead)
	}
	if !entry.CacheWrite.Equal(wantWrite) {
		t.Errorf("cache write should be 125%% of input, got %s", entry.CacheWrite)
	}
}
