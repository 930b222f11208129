package fieldcheck

import "time"

// Input holds the raw applicant values for every category.
type Input struct {
	FullName   string
	Email      string
	Phone      string
	NationalID string
	Address    Address
	BirthDate  string
}

// Check dispatches a single string value to its category check. Address
// values are treated as the street line only.
func Check(c Category, value string, now time.Time) Result {
	switch c {
	case CategoryName:
		return CheckName(value)
	case CategoryEmail:
		return CheckEmail(value)
	case CategoryPhone:
		return CheckPhone(value)
	case CategoryNationalID:
		return CheckNationalID(value)
	case CategoryAddress:
		return CheckAddress(Address{Street: value})
	case CategoryBirthDate:
		return CheckBirthDate(value, now)
	}
	return newResult(c, false, 0, FlagInvalidFormat)
}

// CheckAll runs every category check and returns results in Categories order.
func CheckAll(in Input, now time.Time) []Result {
	return []Result{
		CheckName(in.FullName),
		CheckEmail(in.Email),
		CheckPhone(in.Phone),
		CheckNationalID(in.NationalID),
		CheckAddress(in.Address),
		CheckBirthDate(in.BirthDate, now),
	}
}
