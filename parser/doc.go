// Package parser provides robust extraction of JSON objects from LLM
// output.
//
// Judge prompts request pure JSON, but providers wrap responses in
// markdown fences, special channel tokens, or surrounding prose. The
// salvage cascade tries, in order: direct parse, fence stripping,
// special-token extraction, and greedy brace-balanced extraction. The
// final strategy (asking the judge LLM to repair its own output) lives
// with the metric layer since it needs an LLM client.
package parser
