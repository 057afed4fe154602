package workflow

import (
	"context"
	"fmt"

	"crimewatch/metrics"
	"crimewatch/models"

	"github.com/apex/log"
)

// Step names the stage an analysis run has reached. The *_failed steps record
// that a stage blew up; the run still continues with defaults.
type Step string

const (
	StepInitial                   Step = "initial"
	StepMediaAnalyzed             Step = "media_analyzed"
	StepMediaAnalysisFailed       Step = "media_analysis_failed"
	StepRiskAssessed              Step = "risk_assessed"
	StepRiskAssessmentFailed      Step = "risk_assessment_failed"
	StepReviewDetermined          Step = "review_determined"
	StepReviewDeterminationFailed Step = "review_determination_failed"
	StepHumanReviewCompleted      Step = "human_review_completed"
	StepDecisionFinalized         Step = "decision_finalized"
)

// Risk factors and recommendations added by the risk assessment stage.
const (
	RiskWeaponsDetected = "Weapons detected in media"
	RiskLargeCrowd      = "Large number of people involved"
	RiskLowConfidence   = "Low AI confidence requires verification"

	RecommendImmediateResponse = "Immediate law enforcement response required"
	RecommendArmedResponse     = "Armed response team recommended"
	RecommendMoreEvidence      = "Additional evidence collection needed"
)

// Classifier produces a classification for one media item. It must not fail;
// a degraded classifier returns the default classification instead.
type Classifier interface {
	Classify(ctx context.Context, media []byte, mimeType, reporterText string) *models.Classification
}

// State is the result of one workflow run over a report.
type State struct {
	Report              *models.Report
	Classification      *models.Classification
	Verification        *models.Verification
	Step                Step
	RequiresHumanReview bool
	FinalDecision       models.Status
}

// Workflow drives a report through media analysis, risk assessment, the
// review gate and decision finalization. A run always terminates with a
// final decision, whatever breaks along the way.
type Workflow struct {
	classifier Classifier
	fallback   models.CrimeType
}

func New(classifier Classifier, fallback models.CrimeType) *Workflow {
	return &Workflow{
		classifier: classifier,
		fallback:   fallback,
	}
}

// Run executes the workflow for a report. An existing verification on the
// report is honored when finalizing; media may be nil when only re-scoring.
func (w *Workflow) Run(ctx context.Context, report *models.Report, media []byte, mimeType string) *State {
	return w.run(report, func() *models.Classification {
		return w.classifier.Classify(ctx, media, mimeType, report.Description)
	})
}

// RunWithClassification scores a classification supplied with the submission
// through risk assessment, the review gate and finalization, skipping the
// model call.
func (w *Workflow) RunWithClassification(report *models.Report, c *models.Classification) *State {
	return w.run(report, func() *models.Classification {
		return c
	})
}

func (w *Workflow) run(report *models.Report, classify func() *models.Classification) *State {
	state := &State{
		Report:       report,
		Verification: report.Verification,
		Step:         StepInitial,
	}

	if err := w.runStep(func() error {
		state.Classification = classify()
		if state.Classification == nil {
			return fmt.Errorf("classifier returned no classification")
		}
		return nil
	}); err != nil {
		log.Errorf("Media analysis failed for report %d: %v", report.Seq, err)
		state.Step = StepMediaAnalysisFailed
		state.Classification = models.DefaultClassification(w.fallback)
	} else {
		state.Step = StepMediaAnalyzed
	}

	if err := w.runStep(func() error {
		assessRisk(state.Classification)
		return nil
	}); err != nil {
		log.Errorf("Risk assessment failed for report %d: %v", report.Seq, err)
		state.Step = StepRiskAssessmentFailed
	} else {
		state.Step = StepRiskAssessed
	}

	if err := w.runStep(func() error {
		state.RequiresHumanReview = needsHumanReview(state.Classification)
		return nil
	}); err != nil {
		log.Errorf("Review determination failed for report %d: %v", report.Seq, err)
		state.Step = StepReviewDeterminationFailed
		state.RequiresHumanReview = true
	} else {
		state.Step = StepReviewDetermined
	}

	if state.RequiresHumanReview {
		metrics.ReviewRequiredTotal.Inc()
		if state.Verification != nil {
			state.Step = StepHumanReviewCompleted
		}
	}

	state.FinalDecision = finalDecision(state)
	state.Step = StepDecisionFinalized

	metrics.WorkflowDispositionTotal.WithLabelValues(string(state.FinalDecision)).Inc()
	return state
}

// runStep converts a panic inside a stage into an error so a run can keep
// going with defaults.
func (w *Workflow) runStep(step func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workflow step panicked: %v", r)
		}
	}()
	return step()
}

// assessRisk enriches the classification in place. Every rule reads the
// pre-enrichment values, so rule order does not matter.
func assessRisk(c *models.Classification) {
	weapons := len(c.ExtractedEntities.Weapons) > 0
	people := len(c.ExtractedEntities.People)
	confidence := c.Confidence
	critical := c.Severity == models.SeverityCritical

	if weapons {
		c.RiskFactors = append(c.RiskFactors, RiskWeaponsDetected)
	}
	if people > 5 {
		c.RiskFactors = append(c.RiskFactors, RiskLargeCrowd)
	}
	if confidence < 60 {
		c.RiskFactors = append(c.RiskFactors, RiskLowConfidence)
	}
	if critical {
		c.Recommendations = append(c.Recommendations, RecommendImmediateResponse)
	}
	if weapons {
		c.Recommendations = append(c.Recommendations, RecommendArmedResponse)
	}
	if confidence < 70 {
		c.Recommendations = append(c.Recommendations, RecommendMoreEvidence)
	}
}

// needsHumanReview is the review gate, evaluated once against the enriched
// classification.
func needsHumanReview(c *models.Classification) bool {
	if c.Confidence < 70 {
		return true
	}
	if c.Severity == models.SeverityHigh || c.Severity == models.SeverityCritical {
		return true
	}
	return len(c.RiskFactors) > 3
}

// finalDecision maps the run's state onto a disposition. Reports flagged for
// review stay pending until a human verifies them; a run never rejects a
// report on its own.
func finalDecision(state *State) models.Status {
	if state.RequiresHumanReview {
		if state.Verification == nil {
			return models.StatusPending
		}
		if state.Verification.IsVerified {
			return models.StatusVerified
		}
		return models.StatusRejected
	}
	if state.Classification.Confidence >= 80 {
		return models.StatusVerified
	}
	return models.StatusPending
}
