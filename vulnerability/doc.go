// Package vulnerability catalogs the weakness classes the engine can detect
// in a target agent, from prompt leakage and excessive agency to PII
// exposure and unbounded consumption.
//
// Each class declares a closed enum of subtypes. Construction accepts a
// subset of those subtypes; an empty subset enables all of them. A
// vulnerability binds exactly one metric, instantiated lazily the first
// time Metric is called with the judge to use:
//
//	v, err := vulnerability.New(vulnerability.NamePromptLeakage, nil)
//	if err != nil {
//		return err
//	}
//	result, err := v.Metric(judge).Measure(ctx, tc)
//
// Deterministic classes (PII leakage, code injection, unbounded
// consumption) work without a judge; judge-backed classes return the
// metric package's explicit "no judge configured" pass when none is set.
package vulnerability
