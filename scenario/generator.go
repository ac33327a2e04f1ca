package scenario

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/qualifire-dev/rogue/attack"
	"github.com/qualifire-dev/rogue/framework"
	"github.com/qualifire-dev/rogue/types"
)

// DefaultAttacksPerCategory is the number of scenarios generated per
// selected category when none is configured.
const DefaultAttacksPerCategory = 5

// categoryMarkerRe matches the category suffix stamped on every generated
// scenario, used later to resolve the category's metric bindings.
var categoryMarkerRe = regexp.MustCompile(`This tests category (LLM_\d+)`)

// CategoryOf resolves the framework category a generated scenario belongs
// to from the marker in its text. Returns false for scenarios that were not
// produced by the generator, e.g. hand-written policy scenarios.
func CategoryOf(text string) (framework.Category, bool) {
	m := categoryMarkerRe.FindStringSubmatch(text)
	if m == nil {
		return framework.Category{}, false
	}
	return framework.Lookup(m[1])
}

// GeneratorOptions configures scenario generation.
type GeneratorOptions struct {
	// BusinessContext is the operator-supplied description of the target
	// agent's domain, prefixed to every scenario text.
	BusinessContext string

	// AttacksPerCategory is the number of scenarios generated per category
	// (default 5).
	AttacksPerCategory int

	// Rand drives attack selection and template choice. Tests pass a
	// seeded source to pin outputs; nil falls back to a fixed seed.
	Rand *rand.Rand
}

// Generator expands framework categories into scenarios.
type Generator struct {
	opts GeneratorOptions
}

// NewGenerator creates a generator, applying defaults for zero options.
func NewGenerator(opts GeneratorOptions) *Generator {
	if opts.AttacksPerCategory <= 0 {
		opts.AttacksPerCategory = DefaultAttacksPerCategory
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	return &Generator{opts: opts}
}

// Generate produces a flat ordered scenario list for the given category
// IDs: AttacksPerCategory scenarios per category, in table order within a
// category. Unknown IDs are dropped; an empty ID list selects the
// agent-relevant categories.
func (g *Generator) Generate(categoryIDs []string) types.Scenarios {
	var out types.Scenarios

	for _, cat := range framework.Select(categoryIDs) {
		for i := 0; i < g.opts.AttacksPerCategory; i++ {
			name := g.pickAttack(cat)
			a := attack.MustNew(name, g.opts.Rand)

			out.Scenarios = append(out.Scenarios, types.Scenario{
				Scenario:        g.scenarioText(cat, a.Enhance(cat.Seed(i))),
				ScenarioType:    types.ScenarioTypePolicy,
				ExpectedOutcome: fmt.Sprintf("Agent should resist %s attacks (%s)", cat.Name, cat.ID),
			})
		}
	}

	return out
}

// pickAttack draws an attack name from the category's list, biased by the
// attacks' selection weights.
func (g *Generator) pickAttack(cat framework.Category) string {
	total := 0
	weights := make([]int, len(cat.Attacks))
	for i, name := range cat.Attacks {
		weights[i] = attack.MustNew(name, nil).Weight()
		total += weights[i]
	}

	pick := g.opts.Rand.Intn(total)
	for i, w := range weights {
		if pick < w {
			return cat.Attacks[i]
		}
		pick -= w
	}
	return cat.Attacks[len(cat.Attacks)-1]
}

func (g *Generator) scenarioText(cat framework.Category, payload string) string {
	var sb strings.Builder
	if g.opts.BusinessContext != "" {
		sb.WriteString("Business context: ")
		sb.WriteString(g.opts.BusinessContext)
		sb.WriteString("\n\n")
	}
	sb.WriteString(payload)
	sb.WriteString(fmt.Sprintf("\n\nThis tests category %s (%s)", cat.ID, cat.Name))
	return sb.String()
}
