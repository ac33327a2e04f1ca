package driver

import (
	"fmt"

	"github.com/qualifire-dev/rogue/metric"
	"github.com/qualifire-dev/rogue/scenario"
	"github.com/qualifire-dev/rogue/types"
)

// MetricsFor resolves the metrics a scenario is scored against. Generated
// red-team scenarios carry a category marker that binds them to the
// framework table's vulnerability classes; anything else is treated as a
// behavioral policy judged as a whole.
func MetricsFor(sc types.Scenario, judge *metric.Judge) []metric.Metric {
	if cat, ok := scenario.CategoryOf(sc.Scenario); ok {
		metrics := make([]metric.Metric, 0, len(cat.Vulnerabilities))
		for _, binding := range cat.Vulnerabilities {
			metrics = append(metrics, binding.Instantiate().Metric(judge))
		}
		return metrics
	}

	description := fmt.Sprintf("the agent violating this behavioral policy: %s", sc.Scenario)
	if sc.ExpectedOutcome != "" {
		description += fmt.Sprintf(" (expected outcome: %s)", sc.ExpectedOutcome)
	}
	return []metric.Metric{
		metric.NewVulnerabilityMetric(judge, "policy_compliance", description, nil),
	}
}
