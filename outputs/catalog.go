package outputs

import "strings"

// NamedState is a pre-registered 24-bit output pattern. Catalog
// entries are built once at configuration time and never mutated.
type NamedState struct {
	Name string
	Bits string
}

// DefaultCatalog returns the built-in presets: A all off, B all on,
// C and D the two alternating patterns.
func DefaultCatalog() map[string]NamedState {
	return map[string]NamedState{
		"A": {Name: "A", Bits: strings.Repeat("0", NumCoils)},
		"B": {Name: "B", Bits: strings.Repeat("1", NumCoils)},
		"C": {Name: "C", Bits: strings.Repeat("10", NumCoils/2)},
		"D": {Name: "D", Bits: strings.Repeat("01", NumCoils/2)},
	}
}
