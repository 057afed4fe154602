package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"crimewatch/models"
)

func marshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// marshalStrings encodes a list field for storage. A nil list is stored as an
// empty JSON array so round trips keep the field distinguishable from NULL.
func marshalStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func unmarshalStrings(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil
	}
	return out
}

// CreateReport inserts a new report together with its default classification
// row in one serializable transaction, so the one-classification-per-report
// invariant holds even if the analysis never runs.
func (d *Database) CreateReport(report *models.Report, media []byte) (int, error) {
	tx, err := d.db.BeginTx(context.Background(), &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	mediaMime := ""
	if len(report.Media) > 0 {
		mediaMime = report.Media[0].MimeType
	}

	res, err := tx.Exec(`
		INSERT INTO reports (id, wallet, location, latitude, longitude, description,
			category, priority, status, media, media_mime, media_refs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.SubmitterID,
		report.WalletAddress,
		report.Location,
		report.Latitude,
		report.Longitude,
		report.Description,
		string(report.Category),
		string(report.Priority),
		string(models.StatusPending),
		media,
		mediaMime,
		marshalJSON(report.Media),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get report seq: %w", err)
	}

	def := models.DefaultClassification(models.CrimeOther)
	def.Description = "Analysis pending"
	_, err = tx.Exec(`
		INSERT INTO report_analysis (seq, confidence, crime_type, severity, description,
			risk_factors, recommendations, entities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		seq,
		def.Confidence,
		string(def.CrimeType),
		string(def.Severity),
		def.Description,
		marshalStrings(def.RiskFactors),
		marshalStrings(def.Recommendations),
		marshalJSON(def.ExtractedEntities),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert default analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}

	return int(seq), nil
}

// UpdateAnalysis upserts the classification for a report and syncs the
// report's category, priority, review flag and disposition in the same
// transaction.
// Lifecycle status is deliberately left alone; only a verification moves it.
func (d *Database) UpdateAnalysis(seq int, c *models.Classification, disposition models.Status, requiresReview bool) error {
	tx, err := d.db.BeginTx(context.Background(), &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO report_analysis (seq, confidence, crime_type, severity, description,
			risk_factors, recommendations, entities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE confidence=?, crime_type=?, severity=?, description=?,
			risk_factors=?, recommendations=?, entities=?`,
		seq,
		c.Confidence,
		string(c.CrimeType),
		string(c.Severity),
		c.Description,
		marshalStrings(c.RiskFactors),
		marshalStrings(c.Recommendations),
		marshalJSON(c.ExtractedEntities),
		c.Confidence,
		string(c.CrimeType),
		string(c.Severity),
		c.Description,
		marshalStrings(c.RiskFactors),
		marshalStrings(c.Recommendations),
		marshalJSON(c.ExtractedEntities),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis for seq %d: %w", seq, err)
	}

	_, err = tx.Exec(`
		UPDATE reports SET category = ?, priority = ?, requires_review = ?, disposition = ?
		WHERE seq = ?`,
		string(c.CrimeType),
		string(models.PriorityForSeverity(c.Severity)),
		requiresReview,
		string(disposition),
		seq,
	)
	if err != nil {
		return fmt.Errorf("failed to sync report %d with analysis: %w", seq, err)
	}

	return tx.Commit()
}

const reportColumns = `
	r.seq, r.ts, r.id, r.wallet, r.location, r.latitude, r.longitude,
	r.description, r.category, r.priority, r.status, r.media_refs,
	r.requires_review, r.disposition, r.reward_issued,
	a.confidence, a.crime_type, a.severity, a.description,
	a.risk_factors, a.recommendations, a.entities,
	v.verified_by, v.verified_at, v.is_verified, v.confidence, v.notes,
	v.requires_follow_up`

const reportJoins = `
	FROM reports r
	LEFT JOIN report_analysis a ON r.seq = a.seq
	LEFT JOIN report_verification v ON r.seq = v.seq`

func scanReport(row interface{ Scan(...interface{}) error }) (*models.Report, error) {
	var (
		report      models.Report
		description sql.NullString
		mediaRefs   sql.NullString

		aConfidence  sql.NullFloat64
		aCrimeType   sql.NullString
		aSeverity    sql.NullString
		aDescription sql.NullString
		aRisk        sql.NullString
		aRecommend   sql.NullString
		aEntities    sql.NullString

		vBy         sql.NullString
		vAt         sql.NullTime
		vIsVerified sql.NullBool
		vConfidence sql.NullFloat64
		vNotes      sql.NullString
		vFollowUp   sql.NullBool
	)

	err := row.Scan(
		&report.Seq,
		&report.Timestamp,
		&report.SubmitterID,
		&report.WalletAddress,
		&report.Location,
		&report.Latitude,
		&report.Longitude,
		&description,
		&report.Category,
		&report.Priority,
		&report.Status,
		&mediaRefs,
		&report.RequiresReview,
		&report.Disposition,
		&report.RewardIssued,
		&aConfidence,
		&aCrimeType,
		&aSeverity,
		&aDescription,
		&aRisk,
		&aRecommend,
		&aEntities,
		&vBy,
		&vAt,
		&vIsVerified,
		&vConfidence,
		&vNotes,
		&vFollowUp,
	)
	if err != nil {
		return nil, err
	}

	report.Description = description.String
	if mediaRefs.Valid && mediaRefs.String != "" {
		_ = json.Unmarshal([]byte(mediaRefs.String), &report.Media)
	}

	if aCrimeType.Valid {
		c := &models.Classification{
			Confidence:      aConfidence.Float64,
			CrimeType:       models.CrimeType(aCrimeType.String),
			Severity:        models.Severity(aSeverity.String),
			Description:     aDescription.String,
			RiskFactors:     unmarshalStrings(aRisk),
			Recommendations: unmarshalStrings(aRecommend),
		}
		if aEntities.Valid && aEntities.String != "" {
			_ = json.Unmarshal([]byte(aEntities.String), &c.ExtractedEntities)
		}
		report.Classification = c
	}

	if vBy.Valid {
		report.Verification = &models.Verification{
			VerifiedBy:       vBy.String,
			VerifiedAt:       vAt.Time,
			IsVerified:       vIsVerified.Bool,
			Confidence:       vConfidence.Float64,
			Notes:            vNotes.String,
			RequiresFollowUp: vFollowUp.Bool,
		}
	}

	return &report, nil
}

// GetReport fetches one report with its classification and verification.
func (d *Database) GetReport(seq int) (*models.Report, error) {
	query := "SELECT " + reportColumns + reportJoins + " WHERE r.seq = ?"

	report, err := scanReport(d.db.QueryRow(query, seq))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch report %d: %w", seq, err)
	}
	return report, nil
}

// GetReportMedia gets the stored media bytes and mime type for a report.
func (d *Database) GetReportMedia(seq int) ([]byte, string, error) {
	query := `SELECT r.media, r.media_mime FROM reports r WHERE r.seq = ?`

	var media []byte
	var mime string
	err := d.db.QueryRow(query, seq).Scan(&media, &mime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch media for report %d: %w", seq, err)
	}

	return media, mime, nil
}

// ListReports returns reports matching the filter, newest first.
func (d *Database) ListReports(filter *models.ListArgs) ([]*models.Report, error) {
	query := "SELECT " + reportColumns + reportJoins + " WHERE 1=1"
	args := []interface{}{}

	if filter != nil {
		if filter.Status != "" {
			query += " AND r.status = ?"
			args = append(args, string(filter.Status))
		}
		if filter.Priority != "" {
			query += " AND r.priority = ?"
			args = append(args, string(filter.Priority))
		}
		if filter.Category != "" {
			query += " AND r.category = ?"
			args = append(args, string(filter.Category))
		}
		if filter.Search != "" {
			query += " AND (r.description LIKE ? OR r.location LIKE ?)"
			pattern := "%" + filter.Search + "%"
			args = append(args, pattern, pattern)
		}
	}

	query += " ORDER BY r.seq DESC"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// DashboardStats aggregates report counts for the admin dashboard.
func (d *Database) DashboardStats() (*models.StatsResp, error) {
	stats := &models.StatsResp{
		ByStatus:   map[string]int{},
		ByCategory: map[string]int{},
		ByPriority: map[string]int{},
	}

	groups := []struct {
		column string
		dest   map[string]int
	}{
		{"status", stats.ByStatus},
		{"category", stats.ByCategory},
		{"priority", stats.ByPriority},
	}

	for _, g := range groups {
		rows, err := d.db.Query(fmt.Sprintf(
			"SELECT %s, COUNT(*) FROM reports GROUP BY %s", g.column, g.column))
		if err != nil {
			return nil, fmt.Errorf("failed to query %s stats: %w", g.column, err)
		}
		for rows.Next() {
			var key string
			var count int
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s stats: %w", g.column, err)
			}
			g.dest[key] = count
		}
		rows.Close()
	}

	for _, count := range stats.ByStatus {
		stats.Total += count
	}

	return stats, nil
}

// MapPoints returns report coordinates inside the viewport, optionally
// filtered by status, for heat-map aggregation.
func (d *Database) MapPoints(vp models.ViewPort, status models.Status) ([]models.Point, error) {
	query := `
	SELECT latitude, longitude FROM reports
	WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`
	args := []interface{}{vp.LatMin, vp.LatMax, vp.LonMin, vp.LonMax}

	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query map points: %w", err)
	}
	defer rows.Close()

	var points []models.Point
	for rows.Next() {
		var p models.Point
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan map point: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
