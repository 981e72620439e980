package validation

import "unicode/utf8"

// Strength labels returned by StrengthLabel.
const (
	StrengthWeak   = "Weak"
	StrengthFair   = "Fair"
	StrengthGood   = "Good"
	StrengthStrong = "Strong"
)

// MaxStrength is the highest score PasswordStrength can return.
const MaxStrength = 5

// PasswordStrength awards one point for each of: length of at least 8,
// lowercase, uppercase, digit, and any non-alphanumeric character.
func PasswordStrength(p string) int {
	var lower, upper, digit, other bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case isDigit(r):
			digit = true
		default:
			other = true
		}
	}

	score := 0
	for _, ok := range []bool{utf8.RuneCountInString(p) >= passwordMin, lower, upper, digit, other} {
		if ok {
			score++
		}
	}
	return score
}

// StrengthLabel maps a strength score to its band.
func StrengthLabel(score int) string {
	switch {
	case score < 3:
		return StrengthWeak
	case score < 4:
		return StrengthFair
	case score < 5:
		return StrengthGood
	default:
		return StrengthStrong
	}
}
