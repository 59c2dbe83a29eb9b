package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStatistics(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		got := ComputeStatistics(nil)
		assert.Equal(t, 0, got.TotalRecords)
		assert.Empty(t, got.BySeverity)
		assert.Empty(t, got.ByStatus)
		assert.Nil(t, got.MostCommonBodyPart)
		assert.Equal(t, 0, got.ActiveInjuries)
		assert.Equal(t, 0, got.HealedInjuries)
	})

	t.Run("mixed records", func(t *testing.T) {
		records := []InjuryRecord{
			{Severity: SeveritySevere, Status: StatusActive, BodyPart: "hand"},
			{Severity: SeverityMinor, Status: StatusHealed, BodyPart: "knee"},
			{Severity: SeverityMinor, Status: StatusHealing, BodyPart: "knee"},
			{Severity: SeverityUnknown, Status: StatusActive},
		}

		got := ComputeStatistics(records)
		assert.Equal(t, 4, got.TotalRecords)
		assert.Equal(t, map[Severity]int{SeveritySevere: 1, SeverityMinor: 2, SeverityUnknown: 1}, got.BySeverity)
		assert.Equal(t, map[Status]int{StatusActive: 2, StatusHealed: 1, StatusHealing: 1}, got.ByStatus)
		if assert.NotNil(t, got.MostCommonBodyPart) {
			assert.Equal(t, "knee", *got.MostCommonBodyPart)
		}
		assert.Equal(t, 2, got.ActiveInjuries)
		assert.Equal(t, 1, got.HealedInjuries)
	})

	t.Run("tie goes to first encountered", func(t *testing.T) {
		records := []InjuryRecord{
			{BodyPart: "ankle"},
			{BodyPart: "wrist"},
			{BodyPart: "wrist"},
			{BodyPart: "ankle"},
		}

		got := ComputeStatistics(records)
		if assert.NotNil(t, got.MostCommonBodyPart) {
			assert.Equal(t, "ankle", *got.MostCommonBodyPart)
		}
	})
}

func TestMappableFacilities(t *testing.T) {
	facilities := []Facility{
		{Name: "A", Coordinates: &Coordinates{Lat: 1, Lon: 2}},
		{Name: "B"},
	}
	got := MappableFacilities(facilities)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
	assert.True(t, Coordinates{Lat: 90, Lon: -180}.Valid())
	assert.False(t, Coordinates{Lat: 91, Lon: 0}.Valid())
}
