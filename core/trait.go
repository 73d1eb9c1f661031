package core

// Trait is a named behavioral pattern mapped to a weighted blend of the
// seven sins. The key is a lowercase slug, unique across the library.
type Trait struct {
	Key             string             `json:"key"`
	Definition      string             `json:"definition"`
	SinWeights      map[string]float64 `json:"sin_weights"`
	ComplexityScore float64            `json:"complexity_score"`
}

// Clone returns a deep copy so callers can hand traits out of the store
// without exposing the shared weight map.
func (t Trait) Clone() Trait {
	weights := make(map[string]float64, len(t.SinWeights))
	for sin, w := range t.SinWeights {
		weights[sin] = w
	}
	t.SinWeights = weights
	return t
}

// WeightSum returns the sum of all sin weights.
func (t Trait) WeightSum() float64 {
	var sum float64
	for _, w := range t.SinWeights {
		sum += w
	}
	return sum
}

// LibraryMeta describes the durable document.
type LibraryMeta struct {
	Version     string `json:"version"`
	Description string `json:"description"`
}

// TraitLibrary is the aggregate root: the full learned knowledge base.
type TraitLibrary struct {
	Meta   LibraryMeta      `json:"meta"`
	Traits map[string]Trait `json:"traits"`
}

// NewTraitLibrary returns an empty library carrying the current schema version.
func NewTraitLibrary() TraitLibrary {
	return TraitLibrary{
		Meta: LibraryMeta{
			Version:     LibraryVersion,
			Description: "Poly-Sin Weighting Library",
		},
		Traits: make(map[string]Trait),
	}
}

// LibraryVersion is the schema/version marker written into every
// persisted library document.
const LibraryVersion = "2.1"

// Clone returns a deep copy of the library.
func (l TraitLibrary) Clone() TraitLibrary {
	traits := make(map[string]Trait, len(l.Traits))
	for key, t := range l.Traits {
		traits[key] = t.Clone()
	}
	l.Traits = traits
	return l
}

// Has reports whether the library contains the given key.
func (l TraitLibrary) Has(key string) bool {
	_, ok := l.Traits[key]
	return ok
}
