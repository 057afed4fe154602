package parser

import (
	"reflect"
	"testing"

	"crimewatch/models"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
		expected *models.Classification
	}{
		{
			name: "valid JSON response",
			response: `{
				"confidence": 85,
				"crime_type": "STREET_CRIMES",
				"severity": "HIGH",
				"description": "Two individuals are seen forcibly taking a bag from a pedestrian on a busy street.",
				"risk_factors": ["Physical assault visible"],
				"recommendations": ["Dispatch patrol unit"],
				"extracted_entities": {
					"people": ["adult male", "adult female", "teenager"],
					"vehicles": ["motorcycle"],
					"weapons": [],
					"locations": ["market street"],
					"objects": ["handbag"]
				}
			}`,
			wantErr: false,
			expected: &models.Classification{
				Confidence:      85,
				CrimeType:       models.CrimeStreetCrimes,
				Severity:        models.SeverityHigh,
				Description:     "Two individuals are seen forcibly taking a bag from a pedestrian on a busy street.",
				RiskFactors:     []string{"Physical assault visible"},
				Recommendations: []string{"Dispatch patrol unit"},
				ExtractedEntities: models.ExtractedEntities{
					People:    []string{"adult male", "adult female", "teenager"},
					Vehicles:  []string{"motorcycle"},
					Weapons:   []string{},
					Locations: []string{"market street"},
					Objects:   []string{"handbag"},
				},
			},
		},
		{
			name: "severity normalized to uppercase",
			response: `{
				"confidence": 72,
				"crime_type": "DRUG",
				"severity": "medium",
				"description": "Suspected drug handoff near a parked car."
			}`,
			wantErr: false,
			expected: &models.Classification{
				Confidence:  72,
				CrimeType:   models.CrimeDrug,
				Severity:    models.SeverityMedium,
				Description: "Suspected drug handoff near a parked car.",
			},
		},
		{
			name: "unknown severity maps to LOW",
			response: `{
				"confidence": 50,
				"crime_type": "CYBERCRIMES",
				"severity": "EXTREME",
				"description": "Screenshot of a phishing page imitating a bank login."
			}`,
			wantErr: false,
			expected: &models.Classification{
				Confidence:  50,
				CrimeType:   models.CrimeCybercrimes,
				Severity:    models.SeverityLow,
				Description: "Screenshot of a phishing page imitating a bank login.",
			},
		},
		{
			name: "unknown category maps to OTHER",
			response: `{
				"confidence": 64,
				"crime_type": "VANDALISM",
				"severity": "LOW",
				"description": "Spray paint on a storefront shutter."
			}`,
			wantErr: false,
			expected: &models.Classification{
				Confidence:  64,
				CrimeType:   models.CrimeOther,
				Severity:    models.SeverityLow,
				Description: "Spray paint on a storefront shutter.",
			},
		},
		{
			name:     "invalid JSON",
			response: `{"confidence": 85`,
			wantErr:  true,
			expected: nil,
		},
		{
			name: "missing confidence",
			response: `{
				"crime_type": "DRUG",
				"severity": "LOW",
				"description": "Some description"
			}`,
			wantErr:  true,
			expected: nil,
		},
		{
			name: "confidence above 100",
			response: `{
				"confidence": 150,
				"crime_type": "DRUG",
				"severity": "LOW",
				"description": "Some description"
			}`,
			wantErr:  true,
			expected: nil,
		},
		{
			name: "negative confidence",
			response: `{
				"confidence": -5,
				"crime_type": "DRUG",
				"severity": "LOW",
				"description": "Some description"
			}`,
			wantErr:  true,
			expected: nil,
		},
		{
			name: "missing description",
			response: `{
				"confidence": 85,
				"crime_type": "DRUG",
				"severity": "LOW"
			}`,
			wantErr:  true,
			expected: nil,
		},
		{
			name: "missing crime type",
			response: `{
				"confidence": 85,
				"severity": "LOW",
				"description": "Some description"
			}`,
			wantErr:  true,
			expected: nil,
		},
		{
			name: "markdown formatted JSON",
			response: `Here is the analysis:

` + "```" + `json
{
  "confidence": 0,
  "crime_type": "OTHER",
  "severity": "LOW",
  "description": "The video is a black frame with no discernible content."
}
` + "```" + `

No crime is visible.`,
			wantErr: false,
			expected: &models.Classification{
				Confidence:  0,
				CrimeType:   models.CrimeOther,
				Severity:    models.SeverityLow,
				Description: "The video is a black frame with no discernible content.",
			},
		},
		{
			name: "markdown formatted JSON without language identifier",
			response: `Analysis result:

` + "```" + `
{
  "confidence": 90,
  "crime_type": "ROAD_RAGE_INCIDENTS",
  "severity": "MEDIUM",
  "description": "A driver exits their vehicle and strikes another car's window."
}
` + "```" + ``,
			wantErr: false,
			expected: &models.Classification{
				Confidence:  90,
				CrimeType:   models.CrimeRoadRageIncidents,
				Severity:    models.SeverityMedium,
				Description: "A driver exits their vehicle and strikes another car's window.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseClassification(tt.response)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseClassification() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("ParseClassification() unexpected error: %v", err)
				return
			}

			if result.Confidence != tt.expected.Confidence {
				t.Errorf("ParseClassification() confidence = %v, want %v", result.Confidence, tt.expected.Confidence)
			}

			if result.CrimeType != tt.expected.CrimeType {
				t.Errorf("ParseClassification() crime_type = %v, want %v", result.CrimeType, tt.expected.CrimeType)
			}

			if result.Severity != tt.expected.Severity {
				t.Errorf("ParseClassification() severity = %v, want %v", result.Severity, tt.expected.Severity)
			}

			if result.Description != tt.expected.Description {
				t.Errorf("ParseClassification() description = %v, want %v", result.Description, tt.expected.Description)
			}

			if !reflect.DeepEqual(result.RiskFactors, tt.expected.RiskFactors) {
				t.Errorf("ParseClassification() risk_factors = %v, want %v", result.RiskFactors, tt.expected.RiskFactors)
			}

			if !reflect.DeepEqual(result.ExtractedEntities, tt.expected.ExtractedEntities) {
				t.Errorf("ParseClassification() extracted_entities = %v, want %v", result.ExtractedEntities, tt.expected.ExtractedEntities)
			}
		})
	}
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in       string
		expected models.Severity
	}{
		{"LOW", models.SeverityLow},
		{"critical", models.SeverityCritical},
		{" High ", models.SeverityHigh},
		{"unknown", models.SeverityLow},
		{"", models.SeverityLow},
	}
	for _, tt := range tests {
		if got := NormalizeSeverity(tt.in); got != tt.expected {
			t.Errorf("NormalizeSeverity(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

func TestNormalizeCrimeType(t *testing.T) {
	tests := []struct {
		in       string
		expected models.CrimeType
	}{
		{"DRUG", models.CrimeDrug},
		{"street_crimes", models.CrimeStreetCrimes},
		{" CYBERCRIMES ", models.CrimeCybercrimes},
		{"THEFT", models.CrimeOther},
		{"", models.CrimeOther},
	}
	for _, tt := range tests {
		if got := NormalizeCrimeType(tt.in); got != tt.expected {
			t.Errorf("NormalizeCrimeType(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}
