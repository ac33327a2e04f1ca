// Package config loads and validates the engine configuration. The option
// set is a closed enumeration: YAML decoding is strict, so unknown keys are
// rejected rather than silently accepted.
package config
