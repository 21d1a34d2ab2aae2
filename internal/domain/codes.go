package domain

import "strings"

// PINLength is the fixed length of a live game join code.
const PINLength = 6

// MaxAccessCodeLength bounds evaluation access codes.
const MaxAccessCodeLength = 8

// NormalizePIN strips everything but digits from raw user input and
// validates the fixed length. Hosts often read PINs aloud with spaces or
// dashes, so those are tolerated.
func NormalizePIN(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' {
			continue
		} else {
			return "", ErrInvalidPIN
		}
	}
	pin := b.String()
	if len(pin) != PINLength {
		return "", ErrInvalidPIN
	}
	return pin, nil
}

// NormalizeAccessCode uppercases an alphanumeric evaluation code and
// rejects anything empty, too long, or containing other characters.
func NormalizeAccessCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" || len(code) > MaxAccessCodeLength {
		return "", ErrInvalidAccessCode
	}
	for _, r := range code {
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') {
			return "", ErrInvalidAccessCode
		}
	}
	return code, nil
}
