package utils

import "strings"

// NormalizeISBN strips separators and upper-cases the check character.
func NormalizeISBN(isbn string) string {
	s := strings.ReplaceAll(isbn, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// ValidateISBN checks an ISBN-10 or ISBN-13 checksum. Input may contain
// dashes or spaces.
func ValidateISBN(isbn string) bool {
	s := NormalizeISBN(isbn)

	switch len(s) {
	case 10:
		return validISBN10(s)
	case 13:
		return validISBN13(s)
	default:
		return false
	}
}

// validISBN10 checks 9 digits plus a digit or X check character.
func validISBN10(s string) bool {
	total := 0
	for i, r := range s {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		total += (10 - i) * v
	}
	return total%11 == 0
}

// validISBN13 checks 13 digits with the alternating 1/3 weighting.
func validISBN13(s string) bool {
	total := 0
	for i, r := range s[:12] {
		if r < '0' || r > '9' {
			return false
		}
		v := int(r - '0')
		if i%2 == 1 {
			v *= 3
		}
		total += v
	}
	last := s[12]
	if last < '0' || last > '9' {
		return false
	}
	check := (10 - total%10) % 10
	return check == int(last-'0')
}
