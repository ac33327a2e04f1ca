// Package driver conducts the multi-turn conversations at the heart of an
// evaluation. For each scenario it opens a fresh transport session, asks
// the evaluator LLM for the next adversarial user message, dispatches it,
// scores the reply with the scenario's metrics, and stops on the first
// conclusive verdict: any metric failure, the turn budget, or a fatal
// transport error. Each completed transcript becomes one
// ConversationEvaluation.
//
// Without an evaluator LLM the driver degrades to a single turn that sends
// the scenario text verbatim, which keeps deterministic tests and offline
// runs working.
package driver
