// Package cohort translates dashboard filter selections into store
// constraints and an in-memory user predicate.
package cohort

import (
	"fmt"
	"time"

	"pantryadmin/internal/store"
)

// User-type selector values accepted from the dashboard UI.
const (
	UserTypeAll                 = "all"
	UserTypeStudent             = "student"
	UserTypeWorkingProfessional = "workingProfessional"
	// UserTypeProfessional is a legacy alias no current UI control emits.
	// Kept because old clients may still send it; it maps to the same
	// stored value as workingProfessional.
	UserTypeProfessional = "professional"
)

// Variant selector values accepted from the dashboard UI.
const (
	VariantAll = "all"
	VariantA   = "A"
	VariantB   = "B"
)

// Date-range selector values accepted from the dashboard UI.
const (
	Range7d  = "7d"
	Range30d = "30d"
)

const dayDuration = 24 * time.Hour

// userTypeValues maps selector values to canonical stored values.
// Absence from the map means the selector contributes no constraint.
var userTypeValues = map[string]string{
	UserTypeStudent:             store.UserTypeStudent,
	UserTypeWorkingProfessional: store.UserTypeWorkingProfessional,
	UserTypeProfessional:        store.UserTypeWorkingProfessional,
}

// variantValues maps variant selectors to canonical stored values.
var variantValues = map[string]string{
	VariantA: store.ABTestGroupA,
	VariantB: store.ABTestGroupB,
}

// Filters holds the three independent dashboard selectors.
type Filters struct {
	UserType  string `json:"userType"`
	Variant   string `json:"variant"`
	DateRange string `json:"range"`
}

// DefaultFilters returns the dashboard's initial filter state.
func DefaultFilters() Filters {
	return Filters{
		UserType:  UserTypeAll,
		Variant:   VariantAll,
		DateRange: Range7d,
	}
}

// Validate rejects selector values no client is defined to send.
func (f Filters) Validate() error {
	switch f.UserType {
	case UserTypeAll, UserTypeStudent, UserTypeWorkingProfessional, UserTypeProfessional:
	default:
		return fmt.Errorf("invalid user type filter: %q", f.UserType)
	}

	switch f.Variant {
	case VariantAll, VariantA, VariantB:
	default:
		return fmt.Errorf("invalid variant filter: %q", f.Variant)
	}

	switch f.DateRange {
	case Range7d, Range30d:
	default:
		return fmt.Errorf("invalid date range filter: %q", f.DateRange)
	}

	return nil
}

// Constraints returns the equality constraints to push down to the store's
// user query. "all" selectors contribute nothing; constraints AND together.
func (f Filters) Constraints() []store.Constraint {
	var constraints []store.Constraint

	if value, ok := userTypeValues[f.UserType]; ok {
		constraints = append(constraints, store.Constraint{
			Field: "userType",
			Op:    store.OpEqual,
			Value: value,
		})
	}

	if value, ok := variantValues[f.Variant]; ok {
		constraints = append(constraints, store.Constraint{
			Field: "abTestGroup",
			Op:    store.OpEqual,
			Value: value,
		})
	}

	return constraints
}

// Matches reports whether a user record satisfies the cohort selectors.
// Mirrors Constraints for callers that already hold the records.
func (f Filters) Matches(user store.UserRecord) bool {
	if value, ok := userTypeValues[f.UserType]; ok && user.UserType != value {
		return false
	}
	if value, ok := variantValues[f.Variant]; ok && user.ABTestGroup != value {
		return false
	}
	return true
}

// RangeDays returns the number of days covered by the date-range selector.
func (f Filters) RangeDays() int {
	if f.DateRange == Range30d {
		return 30
	}
	return 7
}

// Since returns the lower timestamp bound pushed to the store's event and
// post queries for the selected range.
func (f Filters) Since(now time.Time) time.Time {
	return now.Add(-time.Duration(f.RangeDays()) * dayDuration)
}
