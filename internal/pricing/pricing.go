package pricing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Entry holds per-token USD rates for one model, lifted into decimal at
// parse time so cost arithmetic never touches binary floating point.
type Entry struct {
	Input      decimal.Decimal
	Output     decimal.Decimal
	CacheRead  decimal.Decimal
	CacheWrite decimal.Decimal
}

// catalogEntry is the wire format of one model in the catalog JSON.
// Rates arrive as per-token floats; unknown fields are ignored.
type catalogEntry struct {
	InputCostPerToken           *float64 `json:"input_cost_per_token"`
	OutputCostPerToken          *float64 `json:"output_cost_per_token"`
	CacheReadInputTokenCost     *float64 `json:"cache_read_input_token_cost"`
	CacheCreationInputTokenCost *float64 `json:"cache_creation_input_token_cost"`
}

// Catalog maps provider-prefixed model names (e.g. "xai/grok-code-fast-1")
// to pricing entries. Keys are lowercased on parse.
type Catalog struct {
	entries map[string]Entry
}

// Empty returns a catalog with no entries. Lookups against it always miss,
// which downstream degrades to the built-in fallback table or zero cost.
func Empty() *Catalog {
	return &Catalog{entries: map[string]Entry{}}
}

// ParseCatalog parses the catalog JSON document. Entries without both an
// input and an output rate are skipped; cache rates default to 10% of input
// (read) and 125% of input (write) when the entry omits them.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing pricing catalog: %w", err)
	}

	entries := make(map[string]Entry, len(raw))
	for name, msg := range raw {
		var ce catalogEntry
		if err := json.Unmarshal(msg, &ce); err != nil {
			// Some catalogs carry non-model metadata keys; skip them.
			continue
		}
		if ce.InputCostPerToken == nil || ce.OutputCostPerToken == nil {
			continue
		}

		input := decimal.NewFromFloat(*ce.InputCostPerToken)
		output := decimal.NewFromFloat(*ce.OutputCostPerToken)

		cacheRead := input.Mul(decimal.NewFromFloat(0.1))
		if ce.CacheReadInputTokenCost != nil {
			cacheRead = decimal.NewFromFloat(*ce.CacheReadInputTokenCost)
		}
		cacheWrite := input.Mul(decimal.NewFromFloat(1.25))
		if ce.CacheCreationInputTokenCost != nil {
			cacheWrite = decimal.NewFromFloat(*ce.CacheCreationInputTokenCost)
		}

		entries[strings.ToLower(name)] = Entry{
			Input:      input,
			Output:     output,
			CacheRead:  cacheRead,
			CacheWrite: cacheWrite,
		}
	}

	return &Catalog{entries: entries}, nil
}

// Len returns the number of priced models in the catalog
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Get returns the entry for an exact catalog key
func (c *Catalog) Get(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}
