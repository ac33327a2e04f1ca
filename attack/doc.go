// Package attack provides the catalog of single-turn attack transformers.
//
// Every attack takes a raw malicious instruction and emits an obfuscated
// or wrapped variant. Deterministic encodings (Base64, ROT13, Leetspeak)
// are pure functions; wrapper attacks pick from fixed template lists using
// an injected random source so tests can pin outputs. Global RNG state is
// never used.
package attack
