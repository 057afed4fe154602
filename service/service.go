package service

import (
	"context"
	"fmt"
	"time"

	"crimewatch/config"
	"crimewatch/database"
	"crimewatch/metrics"
	"crimewatch/models"
	"crimewatch/rabbitmq"
	"crimewatch/reward"
	"crimewatch/workflow"

	"github.com/apex/log"
)

// Service wires report intake, the analysis workflow, human verification and
// reward payout together.
type Service struct {
	cfg       *config.Config
	db        *database.Database
	wf        *workflow.Workflow
	sender    reward.Sender
	publisher *rabbitmq.Publisher
}

// New creates the service. sender may be nil when no reward backend is
// configured; publisher may be nil when event publishing is disabled.
func New(cfg *config.Config, db *database.Database, wf *workflow.Workflow, sender reward.Sender, publisher *rabbitmq.Publisher) *Service {
	return &Service{
		cfg:       cfg,
		db:        db,
		wf:        wf,
		sender:    sender,
		publisher: publisher,
	}
}

// SubmitReport persists a new report and runs the analysis workflow on it
// synchronously. The report's lifecycle status stays pending; only a human
// verification decision moves it. media holds the first evidence item's raw
// bytes; a non-nil pre is a precomputed classification that replaces the
// model call.
func (s *Service) SubmitReport(ctx context.Context, report *models.Report, media []byte, pre *models.Classification) (*models.SubmitResp, error) {
	seq, err := s.db.CreateReport(report, media)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	report.Seq = seq
	report.Status = models.StatusPending

	var state *workflow.State
	if pre != nil {
		state = s.wf.RunWithClassification(report, pre)
	} else {
		mimeType := ""
		if len(report.Media) > 0 {
			mimeType = report.Media[0].MimeType
		}
		state = s.wf.Run(ctx, report, media, mimeType)
	}

	if err := s.db.UpdateAnalysis(seq, state.Classification, state.FinalDecision, state.RequiresHumanReview); err != nil {
		// The report exists; a lost analysis write degrades to the stored
		// default classification rather than failing the submission.
		log.Errorf("Failed to store analysis for report %d: %v", seq, err)
	}

	report.Classification = state.Classification
	report.Category = state.Classification.CrimeType
	report.Priority = models.PriorityForSeverity(state.Classification.Severity)
	report.RequiresReview = state.RequiresHumanReview
	report.Disposition = state.FinalDecision

	if err := s.publisher.PublishWithRoutingKey(s.cfg.AMQPAnalyzedKey, report); err != nil {
		log.Errorf("Failed to publish analyzed event for report %d: %v", seq, err)
	}

	return &models.SubmitResp{
		Seq:            seq,
		Status:         report.Status,
		Disposition:    report.Disposition,
		RequiresReview: report.RequiresReview,
		Report:         report,
	}, nil
}

// ReanalyzeReport re-runs the analysis workflow on a report's stored media.
// An existing verification decision is honored by the re-run.
func (s *Service) ReanalyzeReport(ctx context.Context, seq int) (*models.Report, error) {
	report, err := s.db.GetReport(seq)
	if err != nil {
		return nil, err
	}

	media, mimeType, err := s.db.GetReportMedia(seq)
	if err != nil {
		return nil, err
	}

	state := s.wf.Run(ctx, report, media, mimeType)

	if err := s.db.UpdateAnalysis(seq, state.Classification, state.FinalDecision, state.RequiresHumanReview); err != nil {
		return nil, fmt.Errorf("failed to store analysis for report %d: %w", seq, err)
	}

	report.Classification = state.Classification
	report.Category = state.Classification.CrimeType
	report.Priority = models.PriorityForSeverity(state.Classification.Severity)
	report.RequiresReview = state.RequiresHumanReview
	report.Disposition = state.FinalDecision

	return report, nil
}

// Verify applies a human verification decision to a report. The verification
// row and the new status commit together before any payout is attempted; a
// failed payout is reported in the response message, never as an error.
func (s *Service) Verify(ctx context.Context, args *models.VerifyArgs) (*models.VerifyResp, error) {
	report, err := s.db.GetReport(args.ReportSeq)
	if err != nil {
		return nil, err
	}

	decision := *args.Decision
	verification := &models.Verification{
		VerifiedBy:       args.VerifierID,
		VerifiedAt:       time.Now(),
		IsVerified:       decision,
		Notes:            args.Notes,
		RequiresFollowUp: !decision,
	}
	status := models.StatusRejected
	if decision {
		verification.Confidence = 95
		status = models.StatusVerified
	}

	if err := s.db.UpsertVerification(args.ReportSeq, verification, status); err != nil {
		return nil, err
	}
	metrics.VerifyDecisionTotal.WithLabelValues(string(status)).Inc()

	report.Verification = verification
	report.Status = status
	report.Disposition = status

	resp := &models.VerifyResp{Report: report}
	if decision {
		resp.Message = "Report verified"
	} else {
		resp.Message = "Report rejected"
	}

	if decision && report.WalletAddress != "" && s.sender != nil {
		resp.Reward, resp.Message = s.payReward(report, resp.Message)
	}

	if err := s.publisher.PublishWithRoutingKey(s.cfg.AMQPVerifiedKey, report); err != nil {
		log.Errorf("Failed to publish verified event for report %d: %v", report.Seq, err)
	}

	return resp, nil
}

// payReward attempts the payout for a verified report. The claim guard makes
// the transfer happen at most once per report; the guard is released when the
// transfer fails so an out-of-band retry can claim it again.
func (s *Service) payReward(report *models.Report, message string) (*models.Reward, string) {
	won, err := s.db.ClaimReward(report.Seq)
	if err != nil {
		log.Errorf("Failed to claim reward for report %d: %v", report.Seq, err)
		return nil, message + ", but reward payment failed: " + err.Error()
	}
	if !won {
		log.Infof("Reward for report %d already issued, skipping transfer", report.Seq)
		return nil, message
	}

	// The transfer runs on a detached context so a dropped client connection
	// cannot cancel an in-flight transaction.
	tctx, cancel := context.WithTimeout(context.Background(), s.cfg.RewardTimeout)
	defer cancel()

	result := s.sender.Transfer(tctx, report.WalletAddress, float32(s.cfg.RewardAmount))

	rw := &models.Reward{
		ReportSeq:   report.Seq,
		Recipient:   result.Recipient,
		Amount:      result.Amount,
		TxHash:      result.TxHash,
		ExplorerURL: result.ExplorerURL,
		Status:      result.Status,
		CreatedAt:   time.Now(),
	}
	if err := s.db.CreateReward(rw); err != nil {
		log.Errorf("Failed to save reward record for report %d: %v", report.Seq, err)
	}

	if result.Status != models.RewardSent {
		if err := s.db.ReleaseReward(report.Seq); err != nil {
			log.Errorf("Failed to release reward guard for report %d: %v", report.Seq, err)
		}
		reason := "transfer failed"
		if result.Err != nil {
			reason = result.Err.Error()
		}
		return rw, message + ", but reward payment failed: " + reason
	}

	report.RewardIssued = true
	return rw, message
}

// GetReport returns one report with its classification and verification.
func (s *Service) GetReport(seq int) (*models.Report, error) {
	return s.db.GetReport(seq)
}

// ListReports returns reports matching the filter.
func (s *Service) ListReports(filter *models.ListArgs) ([]*models.Report, error) {
	return s.db.ListReports(filter)
}

// DashboardStats returns aggregate report counts.
func (s *Service) DashboardStats() (*models.StatsResp, error) {
	return s.db.DashboardStats()
}

// MapPoints returns report coordinates for heat-map aggregation.
func (s *Service) MapPoints(vp models.ViewPort, status models.Status) ([]models.Point, error) {
	return s.db.MapPoints(vp, status)
}
