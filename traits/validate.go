package traits

import (
	"strings"

	"github.com/felixlab/polysin/core"
)

// WeightTolerance is how far a stored trait's weight sum may drift from
// 1.0 before the library is considered damaged. Freshly validated
// traits are rescaled exactly; the tolerance matters for documents
// loaded from disk.
const WeightTolerance = 0.02

const defaultComplexity = 0.5

// NormalizeKey reduces a proposed trait key to canonical slug form:
// lowercase, runs of anything outside [a-z0-9] collapsed to a single
// underscore, leading and trailing underscores trimmed.
func NormalizeKey(key string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// Validate checks an oracle-proposed trait candidate against the
// structural and numeric invariants and returns the normalized Trait.
// It never mutates the candidate.
func Validate(key string, cand core.TraitCandidate) (core.Trait, error) {
	slug := NormalizeKey(key)
	if slug == "" {
		return core.Trait{}, &core.ValidationError{Key: key, Reason: core.ReasonInvalidKey}
	}

	if strings.TrimSpace(cand.Definition) == "" {
		return core.Trait{}, &core.ValidationError{Key: slug, Reason: core.ReasonEmptyDefinition}
	}

	var sum float64
	for sin, w := range cand.SinWeights {
		if !core.IsSin(sin) {
			return core.Trait{}, &core.ValidationError{Key: slug, Reason: core.ReasonUnknownSin, Detail: sin}
		}
		if w < 0 || w > 1 {
			return core.Trait{}, &core.ValidationError{Key: slug, Reason: core.ReasonWeightOutOfRange, Detail: sin}
		}
		sum += w
	}
	if sum == 0 {
		return core.Trait{}, &core.ValidationError{Key: slug, Reason: core.ReasonDegenerateWeights}
	}

	// Rescale so the weights sum to exactly 1.
	weights := make(map[string]float64, len(cand.SinWeights))
	for sin, w := range cand.SinWeights {
		weights[sin] = w / sum
	}

	score := defaultComplexity
	if cand.ComplexityScore != nil {
		score = clamp01(*cand.ComplexityScore)
	}

	return core.Trait{
		Key:             slug,
		Definition:      strings.TrimSpace(cand.Definition),
		SinWeights:      weights,
		ComplexityScore: score,
	}, nil
}

// CheckLibrary verifies every trait in a loaded library satisfies its
// invariants. Used by the store to reject damaged documents at load.
func CheckLibrary(lib core.TraitLibrary) error {
	for key, t := range lib.Traits {
		if NormalizeKey(key) != key || key == "" {
			return &core.ValidationError{Key: key, Reason: core.ReasonInvalidKey}
		}
		if strings.TrimSpace(t.Definition) == "" {
			return &core.ValidationError{Key: key, Reason: core.ReasonEmptyDefinition}
		}
		var sum float64
		for sin, w := range t.SinWeights {
			if !core.IsSin(sin) {
				return &core.ValidationError{Key: key, Reason: core.ReasonUnknownSin, Detail: sin}
			}
			if w < 0 || w > 1 {
				return &core.ValidationError{Key: key, Reason: core.ReasonWeightOutOfRange, Detail: sin}
			}
			sum += w
		}
		if sum < 1-WeightTolerance || sum > 1+WeightTolerance {
			return &core.ValidationError{Key: key, Reason: core.ReasonDegenerateWeights}
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
