package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const promptSystem = `
You are a crime report analyst. You receive a photo or video submitted as
evidence of a crime, plus optional reporter text, and you MUST answer with a
**single, valid JSON object** and nothing else.

########################################
# OUTPUT SCHEMA
{
  "confidence": <0-100, how confident you are that the media shows the classified crime>,
  "crime_type": "<one of: SEXUAL_VIOLENCE | DOMESTIC_VIOLENCE | STREET_CRIMES | MOB_VIOLENCE_LYNCHING | ROAD_RAGE_INCIDENTS | CYBERCRIMES | DRUG | OTHER>",
  "severity": "<LOW | MEDIUM | HIGH | CRITICAL>",
  "description": "<1-3 sentences describing what the media shows>",
  "risk_factors": ["<factor 1>", "<factor 2>"],
  "recommendations": ["<recommended action 1>", "<recommended action 2>"],
  "extracted_entities": {
    "people": ["<description of person 1>"],
    "vehicles": ["<vehicle 1>"],
    "weapons": ["<weapon 1>"],
    "locations": ["<location clue 1>"],
    "objects": ["<notable object 1>"]
  }
}
########################################

# RULES
* JSON only - no wrapping markdown.
* crime_type MUST be one of the listed values. Use OTHER when nothing fits.
* severity CRITICAL is reserved for ongoing danger to life.
* List every visible weapon; weapons drive the dispatch recommendation.
* List only people visible in the media, not people mentioned in the
  reporter text; one short description per person.
* If the media is unusable (black frame, unrelated content), answer with
  confidence 0 and crime_type OTHER.
`

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type geminiRequest struct {
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
	Contents         []content        `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type Client struct {
	apiKey string
	model  string
	http   *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{},
	}
}

func (c *Client) SourceName() string {
	return "Gemini"
}

// AnalyzeMedia sends the media bytes and the reporter's text to the model and
// returns the raw text answer. mimeType must match the submitted media.
// Cancelling ctx aborts the in-flight request.
func (c *Client) AnalyzeMedia(ctx context.Context, media []byte, mimeType, reporterText string) (string, error) {
	parts := []part{{Text: promptSystem}}
	if reporterText != "" {
		parts = append(parts, part{Text: "REPORTER_TEXT:\n" + reporterText})
	}
	if len(media) > 0 {
		parts = append(parts, part{
			InlineData: &inlineData{
				MimeType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(media),
			},
		})
	}

	reqBody := geminiRequest{
		Contents: []content{
			{
				Role:  "user",
				Parts: parts,
			},
		},
	}

	return c.generateContent(ctx, reqBody)
}

func (c *Client) generateContent(ctx context.Context, body geminiRequest) (string, error) {
	// try v1beta first, then v1
	endpoints := []string{
		fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", c.model, c.apiKey),
		fmt.Sprintf("https://generativelanguage.googleapis.com/v1/models/%s:generateContent?key=%s", c.model, c.apiKey),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for _, ep := range endpoints {
		req, err := http.NewRequestWithContext(ctx, "POST", ep, bytes.NewBuffer(data))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}
		defer resp.Body.Close()
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
			// retry next endpoint if available
			continue
		}
		var gr geminiResponse
		if err := json.Unmarshal(bodyBytes, &gr); err != nil {
			lastErr = fmt.Errorf("failed to parse response: %w", err)
			continue
		}
		if len(gr.Candidates) == 0 {
			lastErr = fmt.Errorf("no candidates in response")
			continue
		}
		// find first text part
		for _, p := range gr.Candidates[0].Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
		lastErr = fmt.Errorf("no text part in response")
	}
	return "", lastErr
}
