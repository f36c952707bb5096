package reconcile

import (
	"strconv"
	"strings"
)

// canonicalISBN strips separators and converts a valid ISBN-10 to ISBN-13
// so the two forms of the same book compare equal. Anything else, including
// an ISBN-10 with a bad check digit, is returned upper-cased with separators
// removed.
func canonicalISBN(isbn string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(isbn)))

	if !validISBN10(cleaned) {
		return cleaned
	}

	base := "978" + cleaned[:9]
	sum := 0
	for i, r := range base {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return base + strconv.Itoa(check)
}

// validISBN10 checks the mod 11 check digit, where X stands for 10.
func validISBN10(s string) bool {
	if len(s) != 10 || !isDigits(s[:9]) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += (10 - i) * int(s[i]-'0')
	}
	switch c := s[9]; {
	case c == 'X':
		sum += 10
	case c >= '0' && c <= '9':
		sum += int(c - '0')
	default:
		return false
	}
	return sum%11 == 0
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isbnEqual(a, b string) bool {
	return canonicalISBN(a) == canonicalISBN(b)
}
