// Package llm defines the abstract LLM client contract used by the judge
// metrics and the evaluator agent, together with an OpenAI-compatible HTTP
// implementation.
//
// Provider SDKs are deliberately out of scope: anything that can answer a
// chat completion request can back a judge by implementing Client.
package llm
