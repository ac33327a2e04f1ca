package vulnerability

import (
	"fmt"
	"sort"

	"github.com/qualifire-dev/rogue/metric"
)

// Vulnerability is one detectable weakness class with a chosen set of
// subtypes and a lazily bound metric.
type Vulnerability struct {
	name     string
	subtypes []string

	bind   func(judge *metric.Judge, subtypes []string) metric.Metric
	metric metric.Metric
}

// Name returns the class identifier.
func (v *Vulnerability) Name() string { return v.name }

// Subtypes returns the enabled subtypes for this instance.
func (v *Vulnerability) Subtypes() []string {
	out := make([]string, len(v.subtypes))
	copy(out, v.subtypes)
	return out
}

// Metric returns the metric bound to this vulnerability, instantiating it
// on first use with the given judge. Subsequent calls return the same
// instance regardless of the judge argument.
func (v *Vulnerability) Metric(judge *metric.Judge) metric.Metric {
	if v.metric == nil {
		v.metric = v.bind(judge, v.subtypes)
	}
	return v.metric
}

// Constructor builds a vulnerability instance with the given subtype
// subset. An empty subset enables every subtype of the class.
type Constructor func(subtypes []string) (*Vulnerability, error)

var registry = map[string]Constructor{}

func register(name string, ctor Constructor) {
	registry[name] = ctor
}

// New instantiates the named vulnerability class with the given subtypes.
func New(name string, subtypes []string) (*Vulnerability, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown vulnerability %q", name)
	}
	return ctor(subtypes)
}

// MustNew is like New but panics on error. Intended for the static
// framework table, where names and subtypes are compile-time constants.
func MustNew(name string, subtypes []string) *Vulnerability {
	v, err := New(name, subtypes)
	if err != nil {
		panic(err)
	}
	return v
}

// Names returns all registered vulnerability class names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkSubtypes validates the requested subset against the class enum and
// expands an empty request to the full enum.
func checkSubtypes(class string, allowed, requested []string) ([]string, error) {
	if len(requested) == 0 {
		out := make([]string, len(allowed))
		copy(out, allowed)
		return out, nil
	}

	valid := make(map[string]bool, len(allowed))
	for _, s := range allowed {
		valid[s] = true
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if !valid[s] {
			return nil, fmt.Errorf("unknown %s subtype %q", class, s)
		}
		out = append(out, s)
	}
	return out, nil
}
