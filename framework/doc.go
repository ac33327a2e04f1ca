// Package framework holds the static table binding OWASP LLM category
// identifiers to the attacks and vulnerabilities that exercise them. The
// table is the authoritative input to red-team scenario generation: a
// category names its attack transformers, the vulnerability classes (with
// subtypes) to score conversations against, and the seed phrases the
// generator cycles through when producing scenario text.
//
// Selection with no explicit categories yields the agent-relevant subset;
// unknown category IDs are silently filtered out.
package framework
