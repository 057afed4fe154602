package models

import "time"

// Status is the lifecycle status of a report. A report starts as pending and
// only moves to verified or rejected through a human verification decision.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Severity levels assigned by the analysis.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Priority set by the reporter at submission time.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// CrimeType is the closed category vocabulary. Anything the analysis returns
// outside this set is mapped to CrimeOther.
type CrimeType string

const (
	CrimeSexualViolence     CrimeType = "SEXUAL_VIOLENCE"
	CrimeDomesticViolence   CrimeType = "DOMESTIC_VIOLENCE"
	CrimeStreetCrimes       CrimeType = "STREET_CRIMES"
	CrimeMobViolenceLynch   CrimeType = "MOB_VIOLENCE_LYNCHING"
	CrimeRoadRageIncidents  CrimeType = "ROAD_RAGE_INCIDENTS"
	CrimeCybercrimes        CrimeType = "CYBERCRIMES"
	CrimeDrug               CrimeType = "DRUG"
	CrimeOther              CrimeType = "OTHER"
)

// MediaKind of a submitted evidence item.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// ValidSeverity reports whether s is one of the four severity levels.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the four priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// PriorityForSeverity maps an analysis severity onto the reporter-facing
// priority scale. The report's priority tracks the latest classification.
func PriorityForSeverity(s Severity) Priority {
	switch s {
	case SeverityCritical:
		return PriorityCritical
	case SeverityHigh:
		return PriorityHigh
	case SeverityMedium:
		return PriorityMedium
	}
	return PriorityLow
}

// ValidCrimeType reports whether c belongs to the closed category set.
func ValidCrimeType(c CrimeType) bool {
	switch c {
	case CrimeSexualViolence, CrimeDomesticViolence, CrimeStreetCrimes,
		CrimeMobViolenceLynch, CrimeRoadRageIncidents, CrimeCybercrimes,
		CrimeDrug, CrimeOther:
		return true
	}
	return false
}

// ExtractedEntities holds entities the analysis pulled out of the media,
// one descriptive list per entity kind.
type ExtractedEntities struct {
	People    []string `json:"people"`
	Vehicles  []string `json:"vehicles"`
	Weapons   []string `json:"weapons"`
	Locations []string `json:"locations"`
	Objects   []string `json:"objects"`
}

// Classification is the analysis result attached to a report. Exactly one
// classification exists per report; it is defaulted when analysis fails.
type Classification struct {
	Confidence        float64           `json:"confidence"`
	CrimeType         CrimeType         `json:"crime_type"`
	Severity          Severity          `json:"severity"`
	Description       string            `json:"description"`
	RiskFactors       []string          `json:"risk_factors"`
	Recommendations   []string          `json:"recommendations"`
	ExtractedEntities ExtractedEntities `json:"extracted_entities"`
}

// DefaultClassification is the fail-closed classification used when the
// analysis never produced a usable result. Confidence 0 forces the human
// review gate.
func DefaultClassification(fallback CrimeType) *Classification {
	return &Classification{
		Confidence:      0,
		CrimeType:       fallback,
		Severity:        SeverityLow,
		Description:     "Analysis failed - manual review required",
		RiskFactors:     []string{"Manual review needed"},
		Recommendations: []string{"Requires human verification"},
	}
}

// Verification is a human verifier's decision on a report. Re-verifying
// overwrites the previous decision, it never appends.
type Verification struct {
	VerifiedBy       string    `json:"verified_by"`
	VerifiedAt       time.Time `json:"verified_at"`
	IsVerified       bool      `json:"is_verified"`
	Confidence       float64   `json:"confidence"`
	Notes            string    `json:"notes"`
	RequiresFollowUp bool      `json:"requires_follow_up"`
}

// Reward is the record of a payout attempt for a verified report.
type Reward struct {
	ReportSeq   int       `json:"report_seq"`
	Recipient   string    `json:"recipient"`
	Amount      float32   `json:"amount"`
	TxHash      string    `json:"tx_hash"`
	ExplorerURL string    `json:"explorer_url,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	RewardSent   = "sent"
	RewardFailed = "failed"
)

// MediaRef describes one submitted evidence item. The raw bytes of the first
// item are kept in the reports table for reanalysis; the rest is metadata.
type MediaRef struct {
	Kind     MediaKind `json:"kind"`
	MimeType string    `json:"mime_type"`
	Size     int       `json:"size"`
}

// Report is a submitted crime report with its analysis state.
type Report struct {
	Seq            int             `json:"seq"`
	Timestamp      time.Time       `json:"timestamp"`
	SubmitterID    string          `json:"submitter_id"`
	WalletAddress  string          `json:"wallet_address,omitempty"`
	Location       string          `json:"location"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Description    string          `json:"description"`
	Category       CrimeType       `json:"category"`
	Priority       Priority        `json:"priority"`
	Status         Status          `json:"status"`
	Media          []MediaRef      `json:"media"`
	Classification *Classification `json:"classification,omitempty"`
	Verification   *Verification   `json:"verification,omitempty"`
	RequiresReview bool            `json:"requires_review"`
	Disposition    Status          `json:"disposition"`
	RewardIssued   bool            `json:"reward_issued"`
}
