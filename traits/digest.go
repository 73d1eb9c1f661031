package traits

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixlab/polysin/core"
)

// Digest renders the library as the oracle's "memory" section: one line
// per trait, keys sorted, zero weights omitted. The output is
// byte-identical for identical libraries so that an unchanged library
// produces an unchanged prompt.
func Digest(lib core.TraitLibrary) string {
	if len(lib.Traits) == 0 {
		return "(No traits learned yet)"
	}

	keys := make([]string, 0, len(lib.Traits))
	for key := range lib.Traits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		t := lib.Traits[key]
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s [Weights: %s] (complexity: %.2f)",
			key, shorten(t.Definition), formatWeights(t.SinWeights), t.ComplexityScore)
	}
	return b.String()
}

// maxDefinitionRunes keeps the digest bounded even if the oracle wrote
// an essay for a definition.
const maxDefinitionRunes = 160

func shorten(def string) string {
	runes := []rune(def)
	if len(runes) <= maxDefinitionRunes {
		return def
	}
	return string(runes[:maxDefinitionRunes-1]) + "…"
}

// formatWeights lists nonzero weights in the fixed sin order, not map
// order, to keep the digest deterministic.
func formatWeights(weights map[string]float64) string {
	parts := make([]string, 0, len(weights))
	for _, sin := range core.SinNames {
		if w := weights[sin]; w > 0 {
			parts = append(parts, fmt.Sprintf("%s: %.2f", sin, w))
		}
	}
	return strings.Join(parts, ", ")
}
