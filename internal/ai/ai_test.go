package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name    string
		params  GenerateParams
		wantErr bool
	}{
		{"no image", GenerateParams{Prompt: "x"}, false},
		{"jpeg", GenerateParams{ImageData: []byte{1}, ContentType: "image/jpeg"}, false},
		{"missing content type", GenerateParams{ImageData: []byte{1}}, true},
		{"unsupported type", GenerateParams{ImageData: []byte{1}, ContentType: "image/tiff"}, true},
		{"too large", GenerateParams{ImageData: make([]byte, MaxImageSize+1), ContentType: "image/png"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImage(tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, EAIInvalidImage)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(WrapError("x", EAIRateLimit)))
	assert.True(t, IsRetryable(EAITimeout))
	assert.False(t, IsRetryable(EAIUnauthorized))
	assert.False(t, IsRetryable(errors.New("other")))
	assert.Nil(t, WrapError("x", nil))
}

func TestPrompts(t *testing.T) {
	p := ImageAnalysisParams([]byte{1}, "image/png", "fell off a bike")
	assert.Equal(t, KindImageAnalysis, p.Kind)
	assert.Contains(t, p.System, "SEVERITY:")
	assert.Contains(t, p.Prompt, "fell off a bike")
	assert.True(t, p.HasImage())

	fa := FirstAidParams("burn on forearm", "MODERATE")
	assert.Contains(t, fa.System, "WHEN_TO_SEEK_HELP")
	assert.Contains(t, fa.Prompt, "burn on forearm")
	assert.Contains(t, fa.Prompt, "Severity assessed as: MODERATE")
	assert.NotContains(t, FirstAidParams("cut", "").Prompt, "Severity assessed")

	el := EmergencyLevelParams("not breathing")
	assert.Equal(t, 50, el.MaxTokens)
	assert.Contains(t, el.Prompt, `"not breathing"`)

	assert.Equal(t, 200, FollowUpParams("x").MaxTokens)
	assert.Contains(t, FacilitySearchParams("Austin, TX").Prompt, "Find hospitals near: Austin, TX.")
	near := FacilityNearParams(30.25, -97.75, 10, "Congress Ave")
	assert.Contains(t, near.Prompt, "latitude 30.25, longitude -97.75 within 10 km")
	assert.Contains(t, near.Prompt, "Congress Ave")
}
