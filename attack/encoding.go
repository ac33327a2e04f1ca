package attack

import (
	"encoding/base64"
	"math/rand"
	"strings"
)

// Attack name constants for the deterministic encodings.
const (
	NameBase64    = "base64"
	NameROT13     = "rot13"
	NameLeetspeak = "leetspeak"
)

func init() {
	register(NameBase64, func(_ *rand.Rand) Attack { return Base64{} })
	register(NameROT13, func(_ *rand.Rand) Attack { return ROT13{} })
	register(NameLeetspeak, func(_ *rand.Rand) Attack { return Leetspeak{} })
}

// Base64 encodes the attack text as standard base64. Like the other
// encodings it is a pure transformer; Base64Instruction adds the
// decode-and-follow framing.
type Base64 struct{}

// Name returns the attack identifier.
func (Base64) Name() string { return NameBase64 }

// Weight returns the selection weight.
func (Base64) Weight() int { return 2 }

// Enhance encodes the text; the output decodes back to the input via
// standard base64.
func (Base64) Enhance(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// ROT13 applies the ROT13 letter rotation. Applying it twice yields the
// original text for the full printable ASCII range.
type ROT13 struct{}

// Name returns the attack identifier.
func (ROT13) Name() string { return NameROT13 }

// Weight returns the selection weight.
func (ROT13) Weight() int { return 1 }

// Enhance rotates each ASCII letter by 13 positions; other characters pass
// through unchanged.
func (ROT13) Enhance(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			sb.WriteRune('a' + (r-'a'+13)%26)
		case r >= 'A' && r <= 'Z':
			sb.WriteRune('A' + (r-'A'+13)%26)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// leetTable is the fixed character-substitution table for Leetspeak.
var leetTable = map[rune]rune{
	'a': '4', 'A': '4',
	'e': '3', 'E': '3',
	'i': '1', 'I': '1',
	'o': '0', 'O': '0',
	's': '5', 'S': '5',
	't': '7', 'T': '7',
}

// Leetspeak substitutes letters with visually similar digits using a fixed
// table, evading naive keyword filters.
type Leetspeak struct{}

// Name returns the attack identifier.
func (Leetspeak) Name() string { return NameLeetspeak }

// Weight returns the selection weight.
func (Leetspeak) Weight() int { return 1 }

// Enhance applies the substitution table character by character.
func (Leetspeak) Enhance(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if sub, ok := leetTable[r]; ok {
			sb.WriteRune(sub)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
