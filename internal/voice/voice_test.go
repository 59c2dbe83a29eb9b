package voice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

func TestProcessCommand(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Action
		wantOK bool
	}{
		{"exact", "read steps", ActionReadSteps, true},
		{"case and whitespace", "  Find Hospitals ", ActionFacilities, true},
		{"phrase inside sentence", "please go to hospitals now", ActionFacilities, true},
		{"fragment of phrase", "records", ActionRecords, true},
		{"stop while speaking", "stop talking", ActionStop, true},
		{"help alias", "what can i say", ActionHelp, true},
		{"unknown", "order a pizza", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ProcessCommand(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommands_ReturnsCopy(t *testing.T) {
	c := Commands()
	c[0].Action = ActionStop

	got, ok := ProcessCommand("go to first aid")
	assert.True(t, ok)
	assert.Equal(t, ActionFirstAidGuide, got)
}

func TestAction_Page(t *testing.T) {
	assert.Equal(t, "My Health Records", ActionRecords.Page())
	assert.True(t, ActionFacilities.IsNavigation())
	assert.False(t, ActionRepeat.IsNavigation())
}

func TestHelp(t *testing.T) {
	h := Help()
	assert.Contains(t, h, "'hospitals' to go to Find Nearby Hospitals")
	assert.Contains(t, h, "'read steps' to hear first aid instructions")
	assert.Contains(t, h, "'stop' to stop me from speaking")
	assert.Equal(t, 1, strings.Count(h, "'help' to hear this message again"))
}

func TestInjuryAnalysis(t *testing.T) {
	got := InjuryAnalysis(domain.SeveritySevere, domain.EmergencyLevelEmergency, true)
	assert.Contains(t, got, "severe injury")
	assert.Contains(t, got, "9-1-1")
	assert.Contains(t, got, "Say 'read steps'")

	got = InjuryAnalysis(domain.Severity("BOGUS"), domain.EmergencyLevelRoutine, false)
	assert.Equal(t, "This is a routine injury. Following the first aid steps should help.", got)
}

func TestFirstAidSteps(t *testing.T) {
	got := FirstAidSteps("1. Rinse the wound\n2. Apply pressure")
	assert.Contains(t, got, "Step 1. Rinse the wound. Step 2. Apply pressure.")

	got = FirstAidSteps("Rest.\nStay calm")
	assert.Equal(t, "First aid instructions. Rest.. Stay calm", got)
}

func TestRecordCreated(t *testing.T) {
	assert.Contains(t, RecordCreated("burn"), "saved your burn record")
	assert.Contains(t, RecordCreated(""), "saved your injury record")
}

func TestStatistics(t *testing.T) {
	assert.Contains(t, Statistics(domain.Statistics{}), "don't have any health records")

	hand := "Hand"
	got := Statistics(domain.Statistics{
		TotalRecords:       3,
		ActiveInjuries:     1,
		HealedInjuries:     2,
		MostCommonBodyPart: &hand,
	})
	assert.Contains(t, got, "You have 3 total records.")
	assert.Contains(t, got, "1 active injury that needs attention.")
	assert.Contains(t, got, "2 injuries have healed.")
	assert.Contains(t, got, "most commonly affected area is Hand.")
}

func TestPageContent(t *testing.T) {
	assert.Equal(t, "You're now on the Records page. How can I help you?", PageContent("Records", " "))
	assert.Equal(t, "You're now on the Records page. Two saved. How can I help you?", PageContent("Records", "Two saved."))
}

func TestPrepareSpeech(t *testing.T) {
	got := PrepareSpeech(" Stop. Breathe, then call!\nNow ")
	assert.Equal(t, "Stop. ... Breathe, .. then call! Now", got)
}
