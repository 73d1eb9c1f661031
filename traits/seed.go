package traits

import "github.com/felixlab/polysin/core"

// SeedLibrary is the library a fresh install starts from. Two traits
// give the oracle an anchor for what a trait definition looks like.
func SeedLibrary() core.TraitLibrary {
	lib := core.NewTraitLibrary()
	lib.Traits["status_signaling"] = core.Trait{
		Key:        "status_signaling",
		Definition: "Acquiring goods or making choices primarily to display social rank rather than for direct utility.",
		SinWeights: map[string]float64{
			core.SinPride: 0.8,
			core.SinGreed: 0.1,
			core.SinEnvy:  0.1,
		},
		ComplexityScore: 0.6,
	}
	lib.Traits["lust_for_power"] = core.Trait{
		Key:        "lust_for_power",
		Definition: "Pursuing control over others and over outcomes as an end in itself, beyond any material gain.",
		SinWeights: map[string]float64{
			core.SinPride: 0.5,
			core.SinLust:  0.4,
			core.SinWrath: 0.1,
		},
		ComplexityScore: 0.7,
	}
	return lib
}
