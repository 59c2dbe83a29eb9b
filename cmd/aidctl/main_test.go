package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

func execute(t *testing.T, stdin string, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

func TestSteps(t *testing.T) {
	text := "IMMEDIATE_ACTIONS: Stay calm.\nSTEPS:\n1. Cool the burn\n2. Cover it\nWARNINGS:\n- No ice"

	var got stepsOutput
	require.NoError(t, json.Unmarshal(execute(t, text, "steps"), &got))

	assert.Equal(t, []string{"Cool the burn", "Cover it"}, got.Steps)
	assert.True(t, got.HasWarnings)
	require.Len(t, got.Sections, 3)
	assert.Equal(t, "STEPS", got.Sections[1].Name)
}

func TestSteps_EmptyInput(t *testing.T) {
	var got stepsOutput
	require.NoError(t, json.Unmarshal(execute(t, "", "steps"), &got))

	assert.NotNil(t, got.Steps)
	assert.Empty(t, got.Steps)
	assert.NotNil(t, got.Sections)
}

func TestAnalysis_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.txt")
	require.NoError(t, os.WriteFile(path, []byte("ANALYSIS: Deep cut.\nSEVERITY: **SEVERE**\n"), 0o600))

	var got analysisOutput
	require.NoError(t, json.Unmarshal(execute(t, "", "analysis", "--file", path), &got))

	assert.Equal(t, domain.SeveritySevere, got.Severity)
	assert.True(t, got.NeedsEmergency)
	assert.NotEmpty(t, got.Recommendation)
}

func TestAnalysis_MissingFile(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"analysis", "-f", filepath.Join(t.TempDir(), "nope.txt")})
	assert.Error(t, cmd.Execute())
}

func TestFacilities(t *testing.T) {
	text := "1. City General | 100 Main St | 30.2672, -97.7431\n2. Eastside Clinic, 5 Oak Ave"

	var got facilitiesOutput
	require.NoError(t, json.Unmarshal(execute(t, text, "facilities"), &got))

	require.Len(t, got.Facilities, 2)
	assert.Equal(t, "City General", got.Facilities[0].Name)
	assert.Contains(t, got.Facilities[0].NavigationURL, "destination=30.2672")
	assert.Empty(t, got.Facilities[1].NavigationURL)
	assert.Equal(t, 1, got.Mappable)
}
