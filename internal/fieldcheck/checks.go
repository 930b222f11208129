// Package fieldcheck scores individual applicant fields for format validity
// and fraud-suggestive patterns. Every check is pure: malformed input yields
// an invalid Result with a flag, never an error or panic.
package fieldcheck

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Per-category confidence for a clean value.
const (
	confName       = 0.92
	confEmail      = 0.94
	confPhone      = 0.91
	confNationalID = 0.88
	confAddress    = 0.87
	confBirthDate  = 0.96

	confInvalid = 0.25
	confFlagged = 0.35
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	poBoxPattern = regexp.MustCompile(`(?i)\b(p\.?\s*o\.?\s*box|post\s+office\s+box)\b`)
	digitsOnly   = regexp.MustCompile(`\D`)

	disposableDomains = map[string]bool{
		"tempmail.com":      true,
		"tempmail.org":      true,
		"guerrillamail.com": true,
		"mailinator.com":    true,
		"10minutemail.com":  true,
		"throwaway.email":   true,
		"fakeinbox.com":     true,
		"yopmail.com":       true,
		"test.com":          true,
		"example.com":       true,
	}

	testNameTokens = map[string]bool{
		"test": true, "tester": true, "fake": true, "none": true, "null": true,
		"example": true, "demo": true, "asdf": true, "qwerty": true, "sample": true,
	}

	invalidPhoneAreaCodes = map[string]bool{"000": true, "555": true, "999": true}

	// First two ZIP digits accepted per state; other states are not cross-checked.
	stateZipRanges = map[string][2]string{
		"CA": {"90", "96"},
		"NY": {"10", "14"},
		"FL": {"32", "34"},
		"TX": {"75", "79"},
	}
)

// CheckName checks a person's full name.
func CheckName(name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return missing(CategoryName)
	}

	for _, r := range name {
		if unicode.IsDigit(r) {
			return newResult(CategoryName, false, confInvalid, FlagInvalidFormat)
		}
		if !unicode.IsLetter(r) && !strings.ContainsRune(" -'.", r) {
			return newResult(CategoryName, false, confInvalid, FlagInvalidFormat)
		}
	}
	if len([]rune(name)) < 2 {
		return newResult(CategoryName, false, confInvalid, FlagInvalidFormat)
	}

	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool { return r == ' ' || r == '-' })
	for _, w := range words {
		if testNameTokens[w] || (len(w) >= 3 && allSame(w)) {
			return newResult(CategoryName, true, confFlagged, FlagTestDataName)
		}
	}

	return newResult(CategoryName, true, confName)
}

// CheckEmail checks address syntax and disposable-provider membership.
func CheckEmail(email string) Result {
	email = strings.TrimSpace(email)
	if email == "" {
		return missing(CategoryEmail)
	}
	if !emailPattern.MatchString(email) {
		return newResult(CategoryEmail, false, confInvalid, FlagInvalidFormat)
	}

	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	if disposableDomains[domain] {
		return newResult(CategoryEmail, true, confFlagged, FlagDisposableEmail)
	}

	return newResult(CategoryEmail, true, confEmail)
}

// CheckPhone checks a North American number. A leading country code 1 is accepted.
func CheckPhone(phone string) Result {
	if strings.TrimSpace(phone) == "" {
		return missing(CategoryPhone)
	}

	digits := digitsOnly.ReplaceAllString(phone, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return newResult(CategoryPhone, false, confInvalid, FlagInvalidFormat)
	}

	var flags []Flag
	valid := true
	if allSame(digits) {
		flags = append(flags, FlagRepeatedDigits)
	}
	if invalidPhoneAreaCodes[digits[:3]] {
		flags = append(flags, FlagInvalidAreaCode)
		valid = false
	}

	if len(flags) > 0 {
		return newResult(CategoryPhone, valid, confFlagged, flags...)
	}
	return newResult(CategoryPhone, true, confPhone)
}

// CheckNationalID checks a nine-digit SSN-style identifier.
func CheckNationalID(id string) Result {
	if strings.TrimSpace(id) == "" {
		return missing(CategoryNationalID)
	}

	digits := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(id))
	if len(digits) != 9 || digitsOnly.MatchString(digits) {
		return newResult(CategoryNationalID, false, confInvalid, FlagInvalidFormat)
	}

	var flags []Flag
	valid := true

	area := digits[:3]
	if area == "000" || area == "666" || area[0] == '9' {
		flags = append(flags, FlagInvalidAreaCode)
		valid = false
	}
	if digits[3:5] == "00" || digits[5:] == "0000" {
		flags = append(flags, FlagInvalidFormat)
		valid = false
	}
	if isSequential(digits) {
		flags = append(flags, FlagSequentialID)
	}
	if allSame(digits) || (digits[:3] == digits[3:6] && digits[3:6] == digits[6:]) {
		flags = append(flags, FlagRepeatedDigits)
	}

	switch {
	case !valid:
		return newResult(CategoryNationalID, false, confInvalid, flags...)
	case len(flags) > 0:
		return newResult(CategoryNationalID, true, confFlagged, flags...)
	}
	return newResult(CategoryNationalID, true, confNationalID)
}

// Address is the part of a mailing address that gets checked.
type Address struct {
	Street     string
	PostalCode string
	State      string
}

// CheckAddress checks the street line and, when present, the ZIP/state pairing.
func CheckAddress(a Address) Result {
	street := strings.TrimSpace(a.Street)
	if street == "" {
		return missing(CategoryAddress)
	}
	if len(street) < 5 {
		return newResult(CategoryAddress, false, confInvalid, FlagInvalidFormat)
	}

	var flags []Flag
	if poBoxPattern.MatchString(street) {
		flags = append(flags, FlagPOBoxAddress)
	}

	if zip := digitsOnly.ReplaceAllString(a.PostalCode, ""); a.PostalCode != "" {
		if len(zip) != 5 && len(zip) != 9 {
			return newResult(CategoryAddress, false, confInvalid, append(flags, FlagInvalidFormat)...)
		}
		if r, ok := stateZipRanges[strings.ToUpper(strings.TrimSpace(a.State))]; ok {
			if prefix := zip[:2]; prefix < r[0] || prefix > r[1] {
				flags = append(flags, FlagZipStateMismatch)
			}
		}
	}

	if len(flags) > 0 {
		return newResult(CategoryAddress, true, 0.6-0.1*float64(len(flags)-1), flags...)
	}
	return newResult(CategoryAddress, true, confAddress)
}

// DateLayout is the only accepted birth date format.
const DateLayout = "2006-01-02"

// CheckBirthDate parses a YYYY-MM-DD birth date and checks the age it implies at now.
func CheckBirthDate(value string, now time.Time) Result {
	value = strings.TrimSpace(value)
	if value == "" {
		return missing(CategoryBirthDate)
	}

	dob, err := time.Parse(DateLayout, value)
	if err != nil {
		return newResult(CategoryBirthDate, false, confInvalid, FlagInvalidFormat)
	}

	if age := AgeOn(dob, now); age < 0 || age > 120 {
		return newResult(CategoryBirthDate, false, 0.1, FlagImpossibleAge)
	}
	return newResult(CategoryBirthDate, true, confBirthDate)
}

// AgeOn returns whole years elapsed between dob and now. Negative when dob is in the future.
func AgeOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if dob.After(now) && age >= 0 {
		age = -1
	}
	return age
}

// isSequential reports a run of five or more digits each one above, or each
// one below, the digit before it.
func isSequential(digits string) bool {
	const minRun = 5
	up, down := 1, 1
	for i := 1; i < len(digits); i++ {
		if digits[i] == digits[i-1]+1 {
			up++
		} else {
			up = 1
		}
		if digits[i]+1 == digits[i-1] {
			down++
		} else {
			down = 1
		}
		if up >= minRun || down >= minRun {
			return true
		}
	}
	return false
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return len(s) > 0
}
