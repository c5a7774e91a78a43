package utils

import "unicode"

// Password length bounds; bcrypt ignores input past 72 bytes
const (
	PasswordMinLength = 8
	PasswordMaxLength = 72
)

// HasMinLength reports whether the password has at least PasswordMinLength characters
func HasMinLength(p string) bool { return len([]rune(p)) >= PasswordMinLength }

// HasMaxLength reports whether the password fits in PasswordMaxLength bytes
func HasMaxLength(p string) bool { return len(p) <= PasswordMaxLength }

// HasUpper reports whether the password contains an uppercase letter
func HasUpper(p string) bool { return containsRune(p, unicode.IsUpper) }

// HasLower reports whether the password contains a lowercase letter
func HasLower(p string) bool { return containsRune(p, unicode.IsLower) }

// HasDigit reports whether the password contains a digit
func HasDigit(p string) bool { return containsRune(p, unicode.IsDigit) }

// HasSymbol reports whether the password contains punctuation or a symbol
func HasSymbol(p string) bool {
	return containsRune(p, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) })
}

func containsRune(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if pred(r) {
			return true
		}
	}
	return false
}

var passwordRules = []struct {
	check   func(string) bool
	message string
}{
	{HasMinLength, "Password must be at least 8 characters"},
	{HasMaxLength, "Password must be at most 72 bytes"},
	{HasUpper, "Password must contain an uppercase letter"},
	{HasLower, "Password must contain a lowercase letter"},
	{HasDigit, "Password must contain a digit"},
	{HasSymbol, "Password must contain a symbol"},
}

// ValidatePassword returns the message of every rule the password fails, or nil
func ValidatePassword(p string) []string {
	var failed []string
	for _, rule := range passwordRules {
		if !rule.check(p) {
			failed = append(failed, rule.message)
		}
	}
	return failed
}
