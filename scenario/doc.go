// Package scenario turns framework categories into concrete test cases and
// persists them to the scenarios file.
//
// The generator expands each selected category into a fixed number of
// scenarios: a seed phrase (cycled modulo the category's seed count) is
// passed through a weight-biased attack transformer, prefixed with the
// operator's business context, and suffixed with the category marker that
// later lets the conversation driver resolve which vulnerability metrics
// to score against.
package scenario
