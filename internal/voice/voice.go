// Package voice builds the spoken text for the accessibility assistant and
// resolves recognized voice commands to actions. Speech synthesis and
// recognition happen on the client.
package voice

import (
	"fmt"
	"strings"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/parse"
)

// Action is what a voice command asks the client to do.
type Action string

const (
	ActionFirstAidGuide Action = "first_aid_guide"
	ActionFacilities    Action = "find_facilities"
	ActionRecords       Action = "health_records"
	ActionReadSteps     Action = "read_first_aid_steps"
	ActionRepeat        Action = "repeat_last"
	ActionStop          Action = "stop_speaking"
	ActionHelp          Action = "show_voice_help"
)

// Page returns the display name of a navigation action, or "" for actions
// that do not navigate.
func (a Action) Page() string {
	switch a {
	case ActionFirstAidGuide:
		return "First Aid Guide"
	case ActionFacilities:
		return "Find Nearby Hospitals"
	case ActionRecords:
		return "My Health Records"
	}
	return ""
}

// IsNavigation reports whether the action changes page.
func (a Action) IsNavigation() bool {
	return a.Page() != ""
}

// Command is one entry of the command table.
type Command struct {
	Phrase string `json:"phrase"`
	Action Action `json:"action"`
}

// commands is matched in order, so earlier phrases win partial matches.
var commands = []Command{
	{"go to first aid", ActionFirstAidGuide},
	{"first aid guide", ActionFirstAidGuide},
	{"analyze injury", ActionFirstAidGuide},
	{"go to hospitals", ActionFacilities},
	{"find hospitals", ActionFacilities},
	{"hospitals", ActionFacilities},
	{"go to records", ActionRecords},
	{"health records", ActionRecords},
	{"my records", ActionRecords},
	{"read steps", ActionReadSteps},
	{"repeat", ActionRepeat},
	{"stop", ActionStop},
	{"help", ActionHelp},
	{"what can i say", ActionHelp},
}

// Commands returns a copy of the command table.
func Commands() []Command {
	out := make([]Command, len(commands))
	copy(out, commands)
	return out
}

// ProcessCommand resolves recognized speech to an action. An exact phrase
// match wins; otherwise the first phrase that contains, or is contained in,
// the input is used.
func ProcessCommand(text string) (Action, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}

	for _, c := range commands {
		if c.Phrase == text {
			return c.Action, true
		}
	}
	for _, c := range commands {
		if strings.Contains(text, c.Phrase) || strings.Contains(c.Phrase, text) {
			return c.Action, true
		}
	}
	return "", false
}

// Welcome is spoken when voice mode is turned on.
func Welcome() string {
	return "Hello! Welcome to the First Aid Assistant. I'm your voice assistant, and I'm here to help. " +
		"You can navigate the entire application using voice commands. " +
		"Simply say 'help' anytime to hear all available commands. " +
		"To navigate, say the page name, like 'First Aid Guide' or 'My Health Records'. " +
		"How can I assist you today?"
}

// Help lists the available commands.
func Help() string {
	var nav, other []string
	for _, c := range commands {
		switch {
		case c.Action.IsNavigation():
			nav = append(nav, fmt.Sprintf("'%s' to go to %s", c.Phrase, c.Action.Page()))
		case c.Action == ActionReadSteps:
			other = append(other, "'read steps' to hear first aid instructions")
		case c.Action == ActionStop:
			other = append(other, "'stop' to stop me from speaking")
		case c.Action == ActionHelp && c.Phrase == "help":
			other = append(other, "'help' to hear this message again")
		}
	}

	var b strings.Builder
	b.WriteString("Here are all the voice commands you can use. ")
	if len(nav) > 0 {
		b.WriteString("For navigation, " + strings.Join(nav, ". ") + ". ")
	}
	if len(other) > 0 {
		b.WriteString("Other commands: " + strings.Join(other, ". ") + ". ")
	}
	b.WriteString("Just speak naturally, and I'll understand. How can I help you?")
	return b.String()
}

var severityAnnouncements = map[domain.Severity]string{
	domain.SeveritySevere:   "I've detected a severe injury. Urgent medical attention is needed.",
	domain.SeverityModerate: "I've identified a moderate injury. I recommend seeing a healthcare professional within 24 hours.",
	domain.SeverityMinor:    "I've identified a minor injury. Let me guide you through the first aid steps.",
	domain.SeverityUnknown:  "I've analyzed your injury. Let me provide first aid guidance.",
}

var emergencyAnnouncements = map[domain.EmergencyLevel]string{
	domain.EmergencyLevelEmergency: "Please note: This appears to be an emergency situation. Please call emergency services at 9-1-1 immediately.",
	domain.EmergencyLevelUrgent:    "Important: This requires urgent medical attention. Please seek care within the next few hours.",
	domain.EmergencyLevelRoutine:   "This is a routine injury. Following the first aid steps should help.",
}

// InjuryAnalysis announces the result of an injury analysis.
func InjuryAnalysis(severity domain.Severity, level domain.EmergencyLevel, hasSteps bool) string {
	parts := []string{}
	if s := severityAnnouncements[severity]; s != "" {
		parts = append(parts, s)
	}
	if s := emergencyAnnouncements[level]; s != "" {
		parts = append(parts, s)
	}
	if hasSteps {
		parts = append(parts, "First aid instructions are ready. Say 'read steps' anytime to hear them, or I can guide you through each step.")
	}
	return strings.Join(parts, " ")
}

// FirstAidSteps reads guidance text aloud as numbered steps. Text without
// recognizable steps is read line by line.
func FirstAidSteps(text string) string {
	steps := parse.ExtractSteps(text)
	if len(steps) == 0 {
		lines := []string{}
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		return "First aid instructions. " + strings.Join(lines, ". ")
	}

	spoken := make([]string, len(steps))
	for i, s := range steps {
		spoken[i] = fmt.Sprintf("Step %d. %s", i+1, s)
	}
	return "Here are your first aid instructions. I'll go through each step clearly. " +
		strings.Join(spoken, ". ") +
		". Remember, if the situation worsens or you're unsure, seek professional medical help immediately."
}

// RecordCreated confirms a saved record.
func RecordCreated(kind string) string {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "injury"
	}
	return fmt.Sprintf("Perfect! I've saved your %s record. You can view it anytime in your Health Records section.", kind)
}

// Statistics summarizes a session's records.
func Statistics(stats domain.Statistics) string {
	if stats.TotalRecords == 0 {
		return "You don't have any health records yet. Records will be created automatically when you analyze injuries."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's a summary of your health records. You have %d total %s.",
		stats.TotalRecords, plural(stats.TotalRecords, "record", "records"))
	if stats.ActiveInjuries > 0 {
		fmt.Fprintf(&b, " %d active %s that %s attention.", stats.ActiveInjuries,
			plural(stats.ActiveInjuries, "injury", "injuries"),
			plural(stats.ActiveInjuries, "needs", "need"))
	}
	if stats.HealedInjuries > 0 {
		fmt.Fprintf(&b, " Great news, %d %s healed.", stats.HealedInjuries,
			plural(stats.HealedInjuries, "injury has", "injuries have"))
	}
	if stats.MostCommonBodyPart != nil {
		fmt.Fprintf(&b, " The most commonly affected area is %s.", *stats.MostCommonBodyPart)
	}
	return b.String()
}

// PageContent announces navigation to a page.
func PageContent(page, summary string) string {
	out := fmt.Sprintf("You're now on the %s page.", page)
	if summary = strings.TrimSpace(summary); summary != "" {
		out += " " + summary
	}
	return out + " How can I help you?"
}

var pauses = strings.NewReplacer(
	". ", ". ... ",
	"! ", "! ... ",
	"? ", "? ... ",
	", ", ", .. ",
	"\n", " ",
)

// PrepareSpeech flattens text to one line and inserts pause markers after
// sentence and clause boundaries for speech engines without SSML support.
func PrepareSpeech(text string) string {
	return pauses.Replace(strings.TrimSpace(text))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
