// Command aidctl runs the response parsers against saved model output.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/aidnexus/internal"
	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/geo"
	"github.com/DukeRupert/aidnexus/internal/parse"
	"github.com/DukeRupert/aidnexus/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var file string

	root := &cobra.Command{
		Use:          "aidctl",
		Short:        "Parse first aid model output into structured JSON",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&file, "file", "f", "", "read input from a file instead of stdin")

	input := func(cmd *cobra.Command) (string, error) {
		var r io.Reader = cmd.InOrStdin()
		if file != "" {
			f, err := os.Open(file)
			if err != nil {
				return "", err
			}
			defer f.Close()
			r = f
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}

	root.AddCommand(stepsCmd(input))
	root.AddCommand(analysisCmd(input))
	root.AddCommand(facilitiesCmd(input))
	return root
}

type inputFunc func(cmd *cobra.Command) (string, error)

// stepsOutput is printed by the steps command.
type stepsOutput struct {
	Steps          []string              `json:"steps"`
	Sections       []parse.Section       `json:"sections"`
	HasWarnings    bool                  `json:"has_warnings"`
	EmergencyLevel domain.EmergencyLevel `json:"emergency_level"`
}

func stepsCmd(input inputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "Extract numbered first aid steps and sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := input(cmd)
			if err != nil {
				return err
			}
			steps := service.GuidanceSteps(text)
			if steps == nil {
				steps = []string{}
			}
			sections := parse.Sections(text)
			if sections == nil {
				sections = []parse.Section{}
			}
			return printJSON(cmd, stepsOutput{
				Steps:          steps,
				Sections:       sections,
				HasWarnings:    parse.HasWarnings(text),
				EmergencyLevel: parse.EmergencyLevel(text),
			})
		},
	}
}

// analysisOutput is printed by the analysis command.
type analysisOutput struct {
	Severity          domain.Severity `json:"severity"`
	Recommendation    string          `json:"recommendation"`
	NeedsEmergency    bool            `json:"needs_emergency"`
	HasWarnings       bool            `json:"has_warnings"`
	FollowUpQuestions []string        `json:"follow_up_questions"`
}

func analysisCmd(input inputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "analysis",
		Short: "Rate the severity of an injury analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := input(cmd)
			if err != nil {
				return err
			}
			severity := parse.Severity(text)
			questions := parse.FollowUpQuestions(text)
			if questions == nil {
				questions = []string{}
			}
			return printJSON(cmd, analysisOutput{
				Severity:          severity,
				Recommendation:    parse.Recommendation(severity),
				NeedsEmergency:    parse.NeedsEmergency(string(severity)),
				HasWarnings:       parse.HasWarnings(text),
				FollowUpQuestions: questions,
			})
		},
	}
}

// facilitiesOutput is printed by the facilities command.
type facilitiesOutput struct {
	Facilities []geo.WithNavigation `json:"facilities"`
	Mappable   int                  `json:"mappable"`
}

func facilitiesCmd(input inputFunc) *cobra.Command {
	var (
		geocode   bool
		baseURL   string
		userAgent string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "facilities",
		Short: "Parse a hospital list, optionally geocoding addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := input(cmd)
			if err != nil {
				return err
			}

			logger := internal.NewLogger(cmd.ErrOrStderr(), "development", "warn")

			var geocoder parse.AddressGeocoder
			if geocode {
				geocoder = geo.NewNominatim(geo.Config{
					BaseURL:   baseURL,
					UserAgent: userAgent,
					Timeout:   timeout,
				}, logger)
			}

			facilities := parse.NewFacilityParser(geocoder, logger).Parse(cmd.Context(), text)
			return printJSON(cmd, facilitiesOutput{
				Facilities: geo.AttachNavigation(facilities),
				Mappable:   len(domain.MappableFacilities(facilities)),
			})
		},
	}

	cmd.Flags().BoolVar(&geocode, "geocode", false, "look up coordinates for facilities that lack them")
	cmd.Flags().StringVar(&baseURL, "geocoder-url", "https://nominatim.openstreetmap.org", "Nominatim base URL")
	cmd.Flags().StringVar(&userAgent, "user-agent", "AidNexus/1.0", "User-Agent sent to the geocoder")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-request geocoding timeout")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
