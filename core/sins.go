package core

// The seven canonical classification categories. Every trait carries a
// weight for each of these; the set is fixed and never grows at runtime.
const (
	SinLust     = "lust"
	SinGluttony = "gluttony"
	SinGreed    = "greed"
	SinSloth    = "sloth"
	SinWrath    = "wrath"
	SinEnvy     = "envy"
	SinPride    = "pride"
)

// SinNames lists the categories in their display order.
var SinNames = []string{
	SinLust,
	SinGluttony,
	SinGreed,
	SinSloth,
	SinWrath,
	SinEnvy,
	SinPride,
}

var sinSet = func() map[string]bool {
	m := make(map[string]bool, len(SinNames))
	for _, s := range SinNames {
		m[s] = true
	}
	return m
}()

// IsSin reports whether name is one of the seven categories.
func IsSin(name string) bool {
	return sinSet[name]
}
