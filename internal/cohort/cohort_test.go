package cohort_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantryadmin/internal/cohort"
	"pantryadmin/internal/store"
)

func TestFiltersConstraints(t *testing.T) {
	t.Run("student plus group B", func(t *testing.T) {
		f := cohort.Filters{UserType: "student", Variant: "B", DateRange: "7d"}

		constraints := f.Constraints()

		require.Len(t, constraints, 2)
		assert.Equal(t, store.Constraint{Field: "userType", Op: "==", Value: "Student"}, constraints[0])
		assert.Equal(t, store.Constraint{Field: "abTestGroup", Op: "==", Value: "Group B"}, constraints[1])
	})

	t.Run("all selectors contribute nothing", func(t *testing.T) {
		f := cohort.DefaultFilters()
		assert.Empty(t, f.Constraints())
	})

	t.Run("workingProfessional maps to stored value", func(t *testing.T) {
		f := cohort.Filters{UserType: "workingProfessional", Variant: "all", DateRange: "30d"}

		constraints := f.Constraints()

		require.Len(t, constraints, 1)
		assert.Equal(t, "Working Professional", constraints[0].Value)
	})

	t.Run("legacy professional alias still maps", func(t *testing.T) {
		f := cohort.Filters{UserType: "professional", Variant: "all", DateRange: "7d"}

		constraints := f.Constraints()

		require.Len(t, constraints, 1)
		assert.Equal(t, "Working Professional", constraints[0].Value)
	})

	t.Run("mapping is case sensitive", func(t *testing.T) {
		f := cohort.Filters{UserType: "Student", Variant: "all", DateRange: "7d"}
		assert.Error(t, f.Validate())
	})
}

func TestFiltersValidate(t *testing.T) {
	valid := []cohort.Filters{
		{UserType: "all", Variant: "all", DateRange: "7d"},
		{UserType: "student", Variant: "A", DateRange: "30d"},
		{UserType: "workingProfessional", Variant: "B", DateRange: "7d"},
		{UserType: "professional", Variant: "all", DateRange: "30d"},
	}
	for _, f := range valid {
		assert.NoError(t, f.Validate(), "%+v", f)
	}

	invalid := []cohort.Filters{
		{UserType: "alumni", Variant: "all", DateRange: "7d"},
		{UserType: "all", Variant: "C", DateRange: "7d"},
		{UserType: "all", Variant: "a", DateRange: "7d"},
		{UserType: "all", Variant: "all", DateRange: "90d"},
		{},
	}
	for _, f := range invalid {
		assert.Error(t, f.Validate(), "%+v", f)
	}
}

func TestFiltersMatches(t *testing.T) {
	student := store.UserRecord{ID: "u1", UserType: "Student", ABTestGroup: "Group A"}
	professional := store.UserRecord{ID: "u2", UserType: "Working Professional", ABTestGroup: "Group B"}

	f := cohort.Filters{UserType: "student", Variant: "all", DateRange: "7d"}
	assert.True(t, f.Matches(student))
	assert.False(t, f.Matches(professional))

	f = cohort.Filters{UserType: "all", Variant: "B", DateRange: "7d"}
	assert.False(t, f.Matches(student))
	assert.True(t, f.Matches(professional))

	f = cohort.DefaultFilters()
	assert.True(t, f.Matches(student))
	assert.True(t, f.Matches(professional))
}

func TestFiltersRangeDaysAndSince(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	f := cohort.Filters{UserType: "all", Variant: "all", DateRange: "7d"}
	assert.Equal(t, 7, f.RangeDays())
	assert.Equal(t, now.Add(-7*24*time.Hour), f.Since(now))

	f.DateRange = "30d"
	assert.Equal(t, 30, f.RangeDays())
	assert.Equal(t, now.Add(-30*24*time.Hour), f.Since(now))
}
