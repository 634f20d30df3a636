// Package decimal parses non-negative decimal price strings into scaled
// fixed-point integers without going through a floating-point
// representation, so that the stored value is reproducible byte-for-byte
// from the same input string.
package decimal

import "errors"

// Scale is the fixed-point multiplier applied to every parsed value: prices
// are stored as integer multiples of 10^-8.
const Scale = 100_000_000

var (
	ErrEmpty       = errors.New("decimal: empty input")
	ErrInvalidChar = errors.New("decimal: invalid character")
	ErrMultipleDot = errors.New("decimal: more than one '.'")
	ErrOverflow    = errors.New("decimal: overflow")
)

// Parse converts a non-negative ASCII decimal string s into its value
// scaled by 10^8, stored as a signed 64-bit integer.
//
// The integer part accumulates as acc = acc*10 + d. Up to eight fractional
// digits accumulate the same way and are left-padded with trailing zeros to
// reach eight digits; a ninth fractional digit, if present, rounds the
// eighth half-up. Digits beyond the ninth are ignored.
func Parse(s string) (int64, error) {
	if len(s) == 0 {
		return 0, ErrEmpty
	}

	dot := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			if dot != -1 {
				return 0, ErrMultipleDot
			}
			dot = i
			continue
		}
		if c < '0' || c > '9' {
			return 0, ErrInvalidChar
		}
	}

	intPart := s
	fracPart := ""
	if dot != -1 {
		intPart = s[:dot]
		fracPart = s[dot+1:]
		if intPart == "" && fracPart == "" {
			return 0, ErrInvalidChar
		}
	}

	var acc uint64
	for i := 0; i < len(intPart); i++ {
		d := uint64(intPart[i] - '0')
		next := acc*10 + d
		if next < acc {
			return 0, ErrOverflow
		}
		acc = next
	}

	var frac uint64
	n := len(fracPart)
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		frac = frac*10 + uint64(fracPart[i]-'0')
	}
	for i := n; i < 8; i++ {
		frac *= 10
	}
	if len(fracPart) > 8 {
		if fracPart[8] >= '5' {
			frac++
		}
	}

	scaled := acc * Scale
	if acc != 0 && scaled/acc != Scale {
		return 0, ErrOverflow
	}
	total := scaled + frac
	if total < scaled {
		return 0, ErrOverflow
	}
	if total > 1<<63-1 {
		return 0, ErrOverflow
	}

	return int64(total), nil
}
