package fieldcheck

import "sort"

// Category is one of the fixed field families that get checked.
type Category string

const (
	CategoryName       Category = "name"
	CategoryEmail      Category = "email"
	CategoryPhone      Category = "phone"
	CategoryNationalID Category = "national_id"
	CategoryAddress    Category = "address"
	CategoryBirthDate  Category = "birth_date"
)

// Categories lists every category in the order CheckAll reports them.
var Categories = []Category{
	CategoryName,
	CategoryEmail,
	CategoryPhone,
	CategoryNationalID,
	CategoryAddress,
	CategoryBirthDate,
}

// Flag is a symbolic tag for a format problem or a fraud-suggestive pattern.
type Flag string

const (
	FlagMissingField     Flag = "missing_field"
	FlagInvalidFormat    Flag = "invalid_format"
	FlagSequentialID     Flag = "sequential_id"
	FlagRepeatedDigits   Flag = "repeated_digits"
	FlagDisposableEmail  Flag = "disposable_email"
	FlagPOBoxAddress     Flag = "po_box_address"
	FlagImpossibleAge    Flag = "impossible_age"
	FlagTestDataName     Flag = "test_data_name"
	FlagInvalidAreaCode  Flag = "invalid_area_code"
	FlagZipStateMismatch Flag = "zip_state_mismatch"
)

// Result is the outcome of checking one field.
type Result struct {
	Category   Category `json:"category"`
	Valid      bool     `json:"valid"`
	Confidence float64  `json:"confidence"`
	Flags      []Flag   `json:"flags"`
}

// Has reports whether the result carries f.
func (r Result) Has(f Flag) bool {
	for _, x := range r.Flags {
		if x == f {
			return true
		}
	}
	return false
}

func newResult(c Category, valid bool, confidence float64, flags ...Flag) Result {
	return Result{
		Category:   c,
		Valid:      valid,
		Confidence: confidence,
		Flags:      normalize(flags),
	}
}

func missing(c Category) Result {
	return newResult(c, false, 0, FlagMissingField)
}

// normalize sorts and de-duplicates, and never returns nil.
func normalize(flags []Flag) []Flag {
	out := make([]Flag, 0, len(flags))
	seen := make(map[Flag]bool, len(flags))
	for _, f := range flags {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
