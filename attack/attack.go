package attack

import (
	"fmt"
	"math/rand"
	"sort"
)

// Attack is a named single-turn transformer over attack text.
//
// Enhance must be total: it never fails, and a zero-length input yields a
// transformed zero-length result for encodings or a wrapper-only string for
// wrapper attacks. Weight is a selection prior only; it never scales scores.
type Attack interface {
	// Name returns the attack's unique identifier.
	Name() string

	// Weight returns the positive selection weight for this attack.
	Weight() int

	// Enhance transforms the raw attack text into its obfuscated or
	// wrapped variant.
	Enhance(text string) string
}

// Constructor builds an attack instance with the given random source.
// Deterministic attacks may ignore the source.
type Constructor func(rng *rand.Rand) Attack

// registry maps attack names to constructors.
var registry = map[string]Constructor{}

func register(name string, ctor Constructor) {
	registry[name] = ctor
}

// New instantiates the named attack with the given random source.
// The source must not be nil for wrapper attacks; tests pass a seeded
// rand.New(rand.NewSource(n)) to pin template choices.
func New(name string, rng *rand.Rand) (Attack, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown attack %q", name)
	}
	return ctor(rng), nil
}

// Names returns all registered attack names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustNew is like New but panics on unknown names. Intended for the static
// framework table, where names are compile-time constants.
func MustNew(name string, rng *rand.Rand) Attack {
	a, err := New(name, rng)
	if err != nil {
		panic(err)
	}
	return a
}
