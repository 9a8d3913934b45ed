package validator

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizePhone очищает номер от разделителей и приводит к формату с
// ведущим плюсом. Второе значение false — номер не похож на телефон.
func NormalizePhone(phone string) (string, bool) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '+' {
			return r
		}
		return -1
	}, phone)

	if !phoneRegex.MatchString(clean) {
		return "", false
	}

	if !strings.HasPrefix(clean, "+") {
		if strings.HasPrefix(clean, "8") && len(clean) == 11 {
			clean = "+7" + clean[1:]
		} else {
			clean = "+" + clean
		}
	}
	return clean, true
}

func ValidatePassword(password string) bool {
	return len(password) >= 6
}

func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '&', '"', '\'', '`', ';':
			return -1
		}
		return r
	}, s)
}
