package database

import (
	"context"
	"database/sql"
	"fmt"

	"crimewatch/models"
)

// UpsertVerification stores a verification decision and the resulting report
// status in one serializable transaction. A second decision for the same
// report overwrites the first; history is not kept.
func (d *Database) UpsertVerification(seq int, v *models.Verification, status models.Status) error {
	tx, err := d.db.BeginTx(context.Background(), &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO report_verification (seq, verified_by, verified_at, is_verified,
			confidence, notes, requires_follow_up)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE verified_by=?, verified_at=?, is_verified=?,
			confidence=?, notes=?, requires_follow_up=?`,
		seq,
		v.VerifiedBy,
		v.VerifiedAt,
		v.IsVerified,
		v.Confidence,
		v.Notes,
		v.RequiresFollowUp,
		v.VerifiedBy,
		v.VerifiedAt,
		v.IsVerified,
		v.Confidence,
		v.Notes,
		v.RequiresFollowUp,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert verification for seq %d: %w", seq, err)
	}

	res, err := tx.Exec(`
		UPDATE reports SET status = ?, disposition = ? WHERE seq = ?`,
		string(status),
		string(status),
		seq,
	)
	if err != nil {
		return fmt.Errorf("failed to update report %d status: %w", seq, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		// An update that changes nothing still affects 0 rows; only treat a
		// missing report as an error when the seq truly does not exist.
		var found int
		if err := tx.QueryRow("SELECT COUNT(*) FROM reports WHERE seq = ?", seq).Scan(&found); err == nil && found == 0 {
			return ErrNotFound
		}
	}

	return tx.Commit()
}

// ClaimReward marks the reward for a report as issued. Returns true only for
// the one caller whose compare-and-set won; everyone else gets false.
func (d *Database) ClaimReward(seq int) (bool, error) {
	res, err := d.db.Exec(`
		UPDATE reports SET reward_issued = TRUE
		WHERE seq = ? AND reward_issued = FALSE`, seq)
	if err != nil {
		return false, fmt.Errorf("failed to claim reward for seq %d: %w", seq, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result for seq %d: %w", seq, err)
	}
	return rows == 1, nil
}

// ReleaseReward un-sets the reward guard after a failed transfer so an
// out-of-band retry can claim it again.
func (d *Database) ReleaseReward(seq int) error {
	_, err := d.db.Exec(`
		UPDATE reports SET reward_issued = FALSE WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("failed to release reward for seq %d: %w", seq, err)
	}
	return nil
}

// CreateReward stores the record of one payout attempt.
func (d *Database) CreateReward(r *models.Reward) error {
	_, err := d.db.Exec(`
		INSERT INTO report_rewards (report_seq, recipient, amount, tx_hash, explorer_url, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ReportSeq,
		r.Recipient,
		r.Amount,
		r.TxHash,
		r.ExplorerURL,
		r.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save reward for seq %d: %w", r.ReportSeq, err)
	}
	return nil
}
