// Package parse turns loosely formatted model output into typed values.
//
// Nothing in this package returns an error. Unexpected input degrades to
// UNKNOWN, false, or an empty result so callers never have to branch on
// parse failures.
package parse

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

const (
	severityMarker = "SEVERITY:"
	warningsMarker = "WARNINGS:"
	urgentKeyword  = "URGENT"

	// MaxFollowUpQuestions caps the number of questions returned by
	// FollowUpQuestions.
	MaxFollowUpQuestions = 4
)

// Recommendation messages, one per severity branch.
const (
	RecommendationSevere   = "🚨 URGENT: Seek immediate professional medical attention. Call emergency services if needed."
	RecommendationModerate = "⚠️ Recommend seeing a healthcare professional soon, within 24 hours."
	RecommendationMinor    = "✅ Minor injury. Follow first aid steps and monitor. See a doctor if symptoms worsen."
	RecommendationDefault  = "Consult with a healthcare professional."
)

// Severity returns the severity named on the first line containing the
// "SEVERITY:" marker. The marker is matched case-insensitively. Text without
// the marker, or with an unrecognized label, yields SeverityUnknown.
func Severity(text string) domain.Severity {
	for _, line := range strings.Split(text, "\n") {
		upper := strings.ToUpper(line)
		idx := strings.Index(upper, severityMarker)
		if idx < 0 {
			continue
		}
		value := upper[idx+len(severityMarker):]
		value = strings.Trim(value, " \t\r*_:")
		return domain.ParseSeverity(value)
	}
	return domain.SeverityUnknown
}

// HasWarnings reports whether the text carries a "WARNINGS:" section or
// mentions URGENT in any case.
func HasWarnings(text string) bool {
	return strings.Contains(text, warningsMarker) ||
		strings.Contains(strings.ToUpper(text), urgentKeyword)
}

// NeedsEmergency reports whether a severity label calls for emergency care.
// It inspects only the label, never the body of a response.
func NeedsEmergency(severityContext string) bool {
	return strings.Contains(strings.ToUpper(severityContext), string(domain.SeveritySevere))
}

// Recommendation returns the fixed guidance message for a severity.
func Recommendation(severity domain.Severity) string {
	switch severity {
	case domain.SeveritySevere:
		return RecommendationSevere
	case domain.SeverityModerate:
		return RecommendationModerate
	case domain.SeverityMinor:
		return RecommendationMinor
	}
	return RecommendationDefault
}

// EmergencyLevel reads a one-word urgency reply.
func EmergencyLevel(text string) domain.EmergencyLevel {
	return domain.ParseEmergencyLevel(text)
}

// =============================================================================
// Step extraction
// =============================================================================

// ExtractSteps selects lines that start with a digit or a bullet (•, -, *)
// and strips the leading enumerator from each. Lines that are empty after
// stripping are dropped. Order is preserved.
//
// A leading number and any run of ".", ")", ":", "-", bullets or spaces
// after it are stripped. Two shapes keep their number: a decimal ("3.5 cm
// cut") and a bare count before a lowercase word ("2 cups of water").
func ExtractSteps(text string) []string {
	steps := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !isStepLine(line) {
			continue
		}
		if step := stripEnumerator(line); step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}

func isStepLine(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	return unicode.IsDigit(r) || isBullet(r)
}

func isBullet(r rune) bool {
	switch r {
	case '•', '-', '*', '·', '–', '—':
		return true
	}
	return false
}

// stripEnumerator removes bullets and numeric prefixes until none remain,
// then drops markdown emphasis.
func stripEnumerator(line string) string {
	for {
		before := line
		line = strings.TrimLeftFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || isBullet(r)
		})
		line = stripNumberPrefix(line)
		if line == before {
			break
		}
	}
	line = strings.ReplaceAll(line, "**", "")
	return strings.TrimSpace(line)
}

func stripNumberPrefix(line string) string {
	i := 0
	for i < len(line) && isASCIIDigit(line[i]) {
		i++
	}
	if i == 0 {
		return line
	}
	rest := line[i:]
	if len(rest) >= 2 && rest[0] == '.' && isASCIIDigit(rest[1]) {
		return line
	}

	trimmed := strings.TrimLeftFunc(rest, isEnumeratorTail)
	if trimmed != "" && trimmed != rest && strings.TrimLeftFunc(rest, unicode.IsSpace) == trimmed {
		if r, _ := utf8.DecodeRuneInString(trimmed); unicode.IsLower(r) {
			return line
		}
	}
	return trimmed
}

func isEnumeratorTail(r rune) bool {
	switch r {
	case '.', ')', ':':
		return true
	}
	return unicode.IsSpace(r) || isBullet(r)
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// =============================================================================
// Follow-up questions
// =============================================================================

var numberedLine = regexp.MustCompile(`^\s*\d+\s*[.)]\s*(.+)$`)

// FollowUpQuestions returns up to MaxFollowUpQuestions numbered lines with
// their numbering removed.
func FollowUpQuestions(text string) []string {
	questions := []string{}
	for _, line := range strings.Split(text, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		q := strings.TrimSpace(strings.ReplaceAll(m[1], "**", ""))
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == MaxFollowUpQuestions {
			break
		}
	}
	return questions
}

// =============================================================================
// Labeled sections
// =============================================================================

// Section is a labeled block of a structured response, such as
// "IMMEDIATE_ACTIONS:" followed by its text.
type Section struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

var sectionHeader = regexp.MustCompile(`^\s*[*#]*\s*([A-Z][A-Z_ ]*[A-Z])\s*[*]*\s*:\s*[*]*\s*(.*)$`)

// Sections splits a response into its labeled sections in order of
// appearance. Text before the first label is discarded.
func Sections(text string) []Section {
	var sections []Section
	var body []string
	current := ""

	flush := func() {
		if current == "" {
			return
		}
		sections = append(sections, Section{
			Name: current,
			Body: strings.TrimSpace(strings.Join(body, "\n")),
		})
	}

	for _, line := range strings.Split(text, "\n") {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			flush()
			current = strings.ReplaceAll(m[1], " ", "_")
			body = body[:0]
			if rest := strings.TrimSpace(m[2]); rest != "" {
				body = append(body, rest)
			}
			continue
		}
		if current != "" {
			body = append(body, line)
		}
	}
	flush()

	return sections
}

// SectionBody returns the body of the named section, or "" when absent.
func SectionBody(sections []Section, name string) string {
	for _, s := range sections {
		if s.Name == name {
			return s.Body
		}
	}
	return ""
}
