package runtime

import (
	"fmt"
	"sort"

	"github.com/ormasoftchile/clickcheck/pkg/resolve"
)

// Chains maps a UI element role to its prioritized matcher chain.
type Chains map[string]resolve.Chain

// DefaultChains returns the built-in element lookups for the game UI.
func DefaultChains() Chains {
	return Chains{
		"create": {resolve.Keywords("Create Room")},
		"name":   {resolve.Keywords("textbox")},
		"submit": {
			resolve.Keywords("button", "Join"),
			resolve.Keywords("button", "Enter"),
			resolve.Keywords("button", "Go"),
			resolve.Keywords("button", "Submit"),
			resolve.ButtonExcept("create"),
		},
		"code":  {resolve.Keywords("textbox", "ROOM"), resolve.Keywords("textbox")},
		"join":  {resolve.Keywords("Join Room")},
		"ready": {resolve.Keywords("Ready"), resolve.Keywords("ready")},
	}
}

// BuildChains returns DefaultChains with each overridden chain replaced by
// its compiled expressions.
func BuildChains(overrides map[string][]string) (Chains, error) {
	chains := DefaultChains()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := chains[k]; !ok {
			return nil, fmt.Errorf("unknown matcher chain %q", k)
		}
		c, err := resolve.CompileChain(overrides[k])
		if err != nil {
			return nil, fmt.Errorf("matchers.%s: %w", k, err)
		}
		chains[k] = c
	}
	return chains, nil
}
