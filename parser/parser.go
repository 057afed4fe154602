package parser

import (
	"encoding/json"
	"errors"
	"strings"

	"crimewatch/models"
)

// analysisResult mirrors the JSON object the model is asked to produce.
type analysisResult struct {
	Confidence      *float64 `json:"confidence"`
	CrimeType       string   `json:"crime_type"`
	Severity        string   `json:"severity"`
	Description     string   `json:"description"`
	RiskFactors     []string `json:"risk_factors"`
	Recommendations []string `json:"recommendations"`
	Entities        struct {
		People    []string `json:"people"`
		Vehicles  []string `json:"vehicles"`
		Weapons   []string `json:"weapons"`
		Locations []string `json:"locations"`
		Objects   []string `json:"objects"`
	} `json:"extracted_entities"`
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(response string) string {
	// Look for JSON code blocks with ``` markers
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	// Extract content between the markers
	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

// NormalizeSeverity maps a free-form severity string onto the severity enum.
// Unknown values map to LOW so a sloppy model answer cannot inflate severity.
func NormalizeSeverity(s string) models.Severity {
	sev := models.Severity(strings.ToUpper(strings.TrimSpace(s)))
	if models.ValidSeverity(sev) {
		return sev
	}
	return models.SeverityLow
}

// NormalizeCrimeType maps a free-form category string onto the closed crime
// type vocabulary. Unknown values map to OTHER.
func NormalizeCrimeType(s string) models.CrimeType {
	c := models.CrimeType(strings.ToUpper(strings.TrimSpace(s)))
	if models.ValidCrimeType(c) {
		return c
	}
	return models.CrimeOther
}

// ParseClassification parses the model response and extracts classification
// fields. The parse fails on a missing confidence or description, or on a
// confidence outside 0-100; callers fall back to the default classification.
func ParseClassification(response string) (*models.Classification, error) {
	// Clean the response
	cleaned := strings.TrimSpace(response)

	// Extract JSON from markdown if present
	jsonContent := extractJSONFromMarkdown(cleaned)

	var result analysisResult
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return nil, errors.New("failed to parse JSON response: " + err.Error())
	}

	// Validate the parsed result
	if result.Confidence == nil {
		return nil, errors.New("confidence is required")
	}
	if *result.Confidence < 0 || *result.Confidence > 100 {
		return nil, errors.New("confidence must be between 0 and 100")
	}
	if result.Description == "" {
		return nil, errors.New("description is required")
	}
	if result.CrimeType == "" {
		return nil, errors.New("crime_type is required")
	}

	return &models.Classification{
		Confidence:      *result.Confidence,
		CrimeType:       NormalizeCrimeType(result.CrimeType),
		Severity:        NormalizeSeverity(result.Severity),
		Description:     result.Description,
		RiskFactors:     result.RiskFactors,
		Recommendations: result.Recommendations,
		ExtractedEntities: models.ExtractedEntities{
			People:    result.Entities.People,
			Vehicles:  result.Entities.Vehicles,
			Weapons:   result.Entities.Weapons,
			Locations: result.Entities.Locations,
			Objects:   result.Entities.Objects,
		},
	}, nil
}
