package database

import (
	"database/sql"
	"testing"
	"time"

	"crimewatch/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func TestCreateReport(t *testing.T) {
	it(func() {
		report := &models.Report{
			SubmitterID:   "user-1",
			WalletAddress: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
			Location:      "5th and Main",
			Latitude:      44.81,
			Longitude:     20.46,
			Description:   "robbery in progress",
			Category:      models.CrimeStreetCrimes,
			Priority:      models.PriorityHigh,
			Media: []models.MediaRef{
				{Kind: models.MediaPhoto, MimeType: "image/jpeg", Size: 5},
			},
		}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO reports").
			WithArgs(
				"user-1",
				"0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
				"5th and Main",
				44.81,
				20.46,
				"robbery in progress",
				"STREET_CRIMES",
				"high",
				"pending",
				[]byte("media"),
				"image/jpeg",
				`[{"kind":"photo","mime_type":"image/jpeg","size":5}]`,
			).
			WillReturnResult(sqlmock.NewResult(42, 1))
		mock.ExpectExec("INSERT INTO report_analysis").
			WithArgs(
				int64(42),
				float64(0),
				"OTHER",
				"LOW",
				"Analysis pending",
				`["Manual review needed"]`,
				`["Requires human verification"]`,
				`{"people":null,"vehicles":null,"weapons":null,"locations":null,"objects":null}`,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		d := NewFromConn(db)
		seq, err := d.CreateReport(report, []byte("media"))
		if err != nil {
			t.Errorf("CreateReport: unexpected error: %v", err)
		}
		if seq != 42 {
			t.Errorf("CreateReport: seq = %d, want 42", seq)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("CreateReport: unmet expectations: %v", err)
		}
	})
}

func TestUpdateAnalysis(t *testing.T) {
	it(func() {
		c := &models.Classification{
			Confidence:      88,
			CrimeType:       models.CrimeStreetCrimes,
			Severity:        models.SeverityHigh,
			Description:     "armed robbery",
			RiskFactors:     []string{"Weapons detected in media"},
			Recommendations: []string{"Armed response team recommended"},
			ExtractedEntities: models.ExtractedEntities{
				People:  []string{"masked suspect", "store clerk"},
				Weapons: []string{"knife"},
			},
		}
		risk := `["Weapons detected in media"]`
		recommend := `["Armed response team recommended"]`
		entities := `{"people":["masked suspect","store clerk"],"vehicles":null,"weapons":["knife"],"locations":null,"objects":null}`

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO report_analysis (.+) ON DUPLICATE KEY UPDATE").
			WithArgs(
				7,
				float64(88), "STREET_CRIMES", "HIGH", "armed robbery", risk, recommend, entities,
				float64(88), "STREET_CRIMES", "HIGH", "armed robbery", risk, recommend, entities,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE reports SET category = (.+), priority = (.+), requires_review = (.+), disposition = (.+)").
			WithArgs("STREET_CRIMES", "high", true, "pending", 7).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		d := NewFromConn(db)
		if err := d.UpdateAnalysis(7, c, models.StatusPending, true); err != nil {
			t.Errorf("UpdateAnalysis: unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("UpdateAnalysis: unmet expectations: %v", err)
		}
	})
}

func TestUpsertVerification(t *testing.T) {
	it(func() {
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		v := &models.Verification{
			VerifiedBy:       "admin-1",
			VerifiedAt:       at,
			IsVerified:       true,
			Confidence:       95,
			Notes:            "confirmed with dispatch",
			RequiresFollowUp: false,
		}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO report_verification (.+) ON DUPLICATE KEY UPDATE").
			WithArgs(
				7,
				"admin-1", at, true, float64(95), "confirmed with dispatch", false,
				"admin-1", at, true, float64(95), "confirmed with dispatch", false,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE reports SET status = (.+), disposition = (.+)").
			WithArgs("verified", "verified", 7).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		d := NewFromConn(db)
		if err := d.UpsertVerification(7, v, models.StatusVerified); err != nil {
			t.Errorf("UpsertVerification: unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("UpsertVerification: unmet expectations: %v", err)
		}
	})
}

func TestClaimReward(t *testing.T) {
	it(func() {
		testCases := []struct {
			name         string
			rowsAffected int64
			expected     bool
		}{
			{
				name:         "first claim wins",
				rowsAffected: 1,
				expected:     true,
			}, {
				name:         "second claim loses",
				rowsAffected: 0,
				expected:     false,
			},
		}

		for _, testCase := range testCases {
			setUp()
			mock.ExpectExec("UPDATE reports SET reward_issued = TRUE WHERE seq = (.+) AND reward_issued = FALSE").
				WithArgs(7).
				WillReturnResult(sqlmock.NewResult(0, testCase.rowsAffected))

			d := NewFromConn(db)
			won, err := d.ClaimReward(7)
			if err != nil {
				t.Errorf("%s, ClaimReward: unexpected error: %v", testCase.name, err)
			}
			if won != testCase.expected {
				t.Errorf("%s, ClaimReward: got %v, want %v", testCase.name, won, testCase.expected)
			}
		}
	})
}

func TestReleaseReward(t *testing.T) {
	it(func() {
		mock.ExpectExec("UPDATE reports SET reward_issued = FALSE WHERE seq = (.+)").
			WithArgs(7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		d := NewFromConn(db)
		if err := d.ReleaseReward(7); err != nil {
			t.Errorf("ReleaseReward: unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("ReleaseReward: unmet expectations: %v", err)
		}
	})
}

func TestCreateReward(t *testing.T) {
	it(func() {
		mock.ExpectExec("INSERT INTO report_rewards").
			WithArgs(7, "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", float32(0.6), "0xabc", "https://etherscan.io/tx/0xabc", "sent").
			WillReturnResult(sqlmock.NewResult(1, 1))

		d := NewFromConn(db)
		err := d.CreateReward(&models.Reward{
			ReportSeq:   7,
			Recipient:   "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
			Amount:      0.6,
			TxHash:      "0xabc",
			ExplorerURL: "https://etherscan.io/tx/0xabc",
			Status:      models.RewardSent,
		})
		if err != nil {
			t.Errorf("CreateReward: unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("CreateReward: unmet expectations: %v", err)
		}
	})
}

func reportRowColumns() []string {
	return []string{
		"seq", "ts", "id", "wallet", "location", "latitude", "longitude",
		"description", "category", "priority", "status", "media_refs",
		"requires_review", "disposition", "reward_issued",
		"confidence", "crime_type", "severity", "a_description",
		"risk_factors", "recommendations", "entities",
		"verified_by", "verified_at", "is_verified", "v_confidence", "notes",
		"requires_follow_up",
	}
}

func TestGetReport(t *testing.T) {
	it(func() {
		ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(reportRowColumns()).AddRow(
			7, ts, "user-1", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
			"5th and Main", 44.81, 20.46,
			"robbery in progress", "STREET_CRIMES", "high", "pending",
			`[{"kind":"photo","mime_type":"image/jpeg","size":5}]`,
			true, "pending", false,
			float64(88), "STREET_CRIMES", "HIGH", "armed robbery",
			`["Weapons detected in media","Low AI confidence requires verification"]`,
			`["Armed response team recommended"]`,
			`{"people":["masked suspect","store clerk"],"vehicles":null,"weapons":["knife"],"locations":null,"objects":null}`,
			nil, nil, nil, nil, nil, nil,
		)

		mock.ExpectQuery("SELECT (.+) FROM reports r").
			WithArgs(7).
			WillReturnRows(rows)

		d := NewFromConn(db)
		report, err := d.GetReport(7)
		if err != nil {
			t.Fatalf("GetReport: unexpected error: %v", err)
		}
		if report.Seq != 7 || report.SubmitterID != "user-1" {
			t.Errorf("GetReport: wrong report identity: %+v", report)
		}
		if report.Classification == nil {
			t.Fatalf("GetReport: classification missing")
		}
		// Stored JSON keeps risk factor order on the way back out.
		want := []string{"Weapons detected in media", "Low AI confidence requires verification"}
		if len(report.Classification.RiskFactors) != 2 ||
			report.Classification.RiskFactors[0] != want[0] ||
			report.Classification.RiskFactors[1] != want[1] {
			t.Errorf("GetReport: risk factors = %v, want %v", report.Classification.RiskFactors, want)
		}
		people := report.Classification.ExtractedEntities.People
		if len(people) != 2 || people[0] != "masked suspect" {
			t.Errorf("GetReport: extracted people = %v, want descriptions preserved", people)
		}
		if len(report.Media) != 1 || report.Media[0].MimeType != "image/jpeg" {
			t.Errorf("GetReport: media refs = %v", report.Media)
		}
		if report.Verification != nil {
			t.Errorf("GetReport: verification = %+v, want nil", report.Verification)
		}
	})
}

func TestGetReportNotFound(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT (.+) FROM reports r").
			WithArgs(99).
			WillReturnRows(sqlmock.NewRows(reportRowColumns()))

		d := NewFromConn(db)
		if _, err := d.GetReport(99); err != ErrNotFound {
			t.Errorf("GetReport: error = %v, want ErrNotFound", err)
		}
	})
}
