package identity

import (
	"regexp"
	"strings"
	"time"
)

// cnicPattern is the canonical dashed form: 5 digits, 7 digits, 1 check digit.
var cnicPattern = regexp.MustCompile(`^\d{5}-\d{7}-\d$`)

// NormalizeCNIC strips separators, leaving the bare 13 digits. Input that is
// not 13 digits after stripping is returned unchanged so validation can
// report it.
func NormalizeCNIC(cnic string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cnic)
	if len(digits) != 13 {
		return cnic
	}
	return digits
}

// FormatCNIC renders a CNIC in the dashed canonical form when it holds
// exactly 13 digits, otherwise returns the input unchanged.
func FormatCNIC(cnic string) string {
	digits := NormalizeCNIC(cnic)
	if len(digits) != 13 || !isAllDigits(digits) {
		return cnic
	}
	return digits[:5] + "-" + digits[5:12] + "-" + digits[12:]
}

// IsValidCNIC verifies the CNIC check digit. The first 12 digits are
// weighted alternately 1 and 2 starting from the first digit; the check
// digit is 10 minus the sum mod 10, or 0 when the sum divides evenly.
func IsValidCNIC(cnic string) bool {
	digits := NormalizeCNIC(cnic)
	if len(digits) != 13 || !isAllDigits(digits) {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		sum += int(digits[i]-'0') * (i%2 + 1)
	}
	check := sum % 10
	if check != 0 {
		check = 10 - check
	}
	return int(digits[12]-'0') == check
}

// DecodeBirthDate extracts the date of birth encoded in the first six
// digits as DDMMYY. Years 50 and above fall in the 1900s, below in the
// 2000s. The second return is false when the digits do not form a real
// calendar date.
func DecodeBirthDate(cnic string) (time.Time, bool) {
	digits := NormalizeCNIC(cnic)
	if len(digits) != 13 || !isAllDigits(digits) {
		return time.Time{}, false
	}
	day := int(digits[0]-'0')*10 + int(digits[1]-'0')
	month := int(digits[2]-'0')*10 + int(digits[3]-'0')
	year := int(digits[4]-'0')*10 + int(digits[5]-'0')
	if year >= 50 {
		year += 1900
	} else {
		year += 2000
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// DecodeGender reads the gender from the final digit: odd is male, even is
// female.
func DecodeGender(cnic string) (Gender, bool) {
	digits := NormalizeCNIC(cnic)
	if len(digits) != 13 || !isAllDigits(digits) {
		return "", false
	}
	if (digits[12]-'0')%2 == 1 {
		return GenderMale, true
	}
	return GenderFemale, true
}

// MatchesDateOfBirth reports whether the declared date of birth agrees with
// the date encoded in the CNIC.
func MatchesDateOfBirth(cnic string, dob time.Time) bool {
	encoded, ok := DecodeBirthDate(cnic)
	if !ok {
		return false
	}
	y1, m1, d1 := encoded.Date()
	y2, m2, d2 := dob.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// MatchesGender reports whether the declared gender agrees with the CNIC's
// final digit.
func MatchesGender(cnic string, g Gender) bool {
	decoded, ok := DecodeGender(cnic)
	return ok && decoded == g
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
