package orders

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// Serbian mobile numbers: local "06..." or international "+381 6...",
// followed by 7-8 more digits.
var phonePattern = regexp.MustCompile(`^\+3816\d{7,8}$`)

// NormalizePhone strips separators, converts the local "0..." prefix to
// "+381..." and validates the result against the Serbian mobile format.
func NormalizePhone(input string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '/', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if strings.HasPrefix(cleaned, "0") {
		cleaned = "+381" + cleaned[1:]
	}
	if !phonePattern.MatchString(cleaned) {
		return "", ErrInvalidPhone
	}
	return cleaned, nil
}
