package ai

import (
	"fmt"
	"strings"
)

// ImageAnalysisParams builds the request that describes an injury photo and
// rates its severity.
func ImageAnalysisParams(imageData []byte, contentType, context string) GenerateParams {
	system := `You are a medical first aid assistant analyzing an injury image.
Your task is to:
1. Describe the visible injury or condition clearly and accurately
2. Assess the severity level: MINOR, MODERATE, or SEVERE
3. Note any visible signs of emergency (excessive bleeding, deformity, etc.)
4. Provide initial observations only, not a diagnosis or treatment

Respond in this structured format:
ANALYSIS: [Detailed description of what you see]
SEVERITY: [MINOR/MODERATE/SEVERE]
OBSERVATIONS: [Key visible signs]`

	prompt := `Analyze this injury image following the guidelines.
Be specific about what you can see (color, size, location, any visible damage).
Assess severity based on visible indicators only.`

	if context = strings.TrimSpace(context); context != "" {
		prompt += fmt.Sprintf("\n\nAdditional context from the user:\n%s", context)
	}

	return GenerateParams{
		Kind:        KindImageAnalysis,
		System:      system,
		Prompt:      prompt,
		ImageData:   imageData,
		ContentType: contentType,
	}
}

// FirstAidParams builds the request for structured first aid instructions.
// severity may be empty.
func FirstAidParams(description, severity string) GenerateParams {
	system := `You are a certified first aid instructor providing step-by-step first aid instructions.

IMPORTANT SAFETY GUIDELINES:
- Only provide standard, well-established first aid procedures
- Always prioritize safety: check for danger and make sure the scene is safe
- For severe injuries, emphasize seeking professional medical care immediately
- Never diagnose conditions, only provide first aid guidance
- Include when to seek professional medical help

Structure your response as:
IMMEDIATE_ACTIONS: [What to do first to ensure safety]
STEPS: [Numbered step-by-step instructions]
WARNINGS: [Important safety warnings]
WHEN_TO_SEEK_HELP: [Clear indicators for professional medical care]`

	var b strings.Builder
	fmt.Fprintf(&b, "Provide safe, step-by-step first aid instructions for: %s.\n\n", strings.TrimSpace(description))
	if severity = strings.TrimSpace(severity); severity != "" {
		fmt.Fprintf(&b, "Severity assessed as: %s. Adjust instructions accordingly.\n\n", severity)
	}
	b.WriteString(`Remember:
- Be clear and concise
- Use simple language that anyone can follow
- Include specific warnings if applicable
- Always mention when professional medical attention is needed`)

	return GenerateParams{
		Kind:   KindFirstAid,
		System: system,
		Prompt: b.String(),
	}
}

// EmergencyLevelParams builds the request for a one-word urgency rating.
func EmergencyLevelParams(description string) GenerateParams {
	prompt := fmt.Sprintf(`Based on this description: %q, classify as:
- EMERGENCY: Needs immediate emergency services (severe bleeding, unconscious, not breathing)
- URGENT: Needs medical attention within hours (broken bones, severe burns, head injury)
- ROUTINE: Can wait for medical consultation (minor cuts, bruises, small burns)

Respond with only one word: EMERGENCY, URGENT, or ROUTINE`, strings.TrimSpace(description))

	return GenerateParams{
		Kind:        KindEmergencyLevel,
		Prompt:      prompt,
		Temperature: 0.2,
		MaxTokens:   50,
	}
}

// FollowUpParams builds the request for clarifying questions.
func FollowUpParams(description string) GenerateParams {
	prompt := fmt.Sprintf(`Based on this injury description: %q,
generate 3-4 relevant follow-up questions that would help assess the situation better.
Questions should be specific, clear, and help determine severity.
Format: One question per line, numbered.

Example format:
1. Is there active bleeding?
2. Can the person move the affected area?
3. Are there any signs of shock?`, strings.TrimSpace(description))

	return GenerateParams{
		Kind:        KindFollowUp,
		Prompt:      prompt,
		Temperature: 0.5,
		MaxTokens:   200,
	}
}

const facilitySystem = `You are a helpful emergency assistant.
Find the top 3-5 nearest public or general hospitals near the requested location.
For each hospital, provide: Name, Full Address, and if possible Latitude and Longitude coordinates.
Format each result on a new line starting with a number, followed by the hospital name, address, and coordinates if available.`

const facilityFormat = "Format as: Number. Hospital Name | Address | Latitude, Longitude (if available)"

// FacilitySearchParams builds a hospital search for a free-text location.
func FacilitySearchParams(location string) GenerateParams {
	return GenerateParams{
		Kind:   KindFacilities,
		System: facilitySystem,
		Prompt: fmt.Sprintf("Find hospitals near: %s. %s", strings.TrimSpace(location), facilityFormat),
	}
}

// FacilityNearParams builds a hospital search around a coordinate. address
// is the reverse-geocoded label for the point and may be empty.
func FacilityNearParams(lat, lon, radiusKm float64, address string) GenerateParams {
	prompt := fmt.Sprintf("Find hospitals near latitude %g, longitude %g within %g km radius.", lat, lon, radiusKm)
	if address != "" {
		prompt += fmt.Sprintf(" The location is %s.", address)
	}
	return GenerateParams{
		Kind:   KindFacilities,
		System: facilitySystem,
		Prompt: prompt + " " + facilityFormat,
	}
}
