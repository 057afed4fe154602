package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crimewatch/models"

	"github.com/gin-gonic/gin"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(nil)
	router := gin.New()
	router.POST("/api/v3/report", h.SubmitReport)
	router.POST("/api/v3/verify", h.Verify)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validSubmitArgs() *models.SubmitArgs {
	return &models.SubmitArgs{
		Version:     "2.0",
		ID:          "user-1",
		Location:    "5th and Main",
		Description: "robbery in progress",
		Category:    models.CrimeStreetCrimes,
		Priority:    models.PriorityHigh,
		Media: []models.MediaItem{
			{Kind: models.MediaPhoto, MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString([]byte("fake"))},
		},
	}
}

func TestSubmitReportValidation(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name    string
		mutate  func(*models.SubmitArgs)
		wantMsg string
	}{
		{
			name:    "missing id",
			mutate:  func(a *models.SubmitArgs) { a.ID = "" },
			wantMsg: "id is required",
		},
		{
			name:    "missing location",
			mutate:  func(a *models.SubmitArgs) { a.Location = "" },
			wantMsg: "location is required",
		},
		{
			name:    "missing description",
			mutate:  func(a *models.SubmitArgs) { a.Description = "" },
			wantMsg: "description is required",
		},
		{
			name:    "missing category",
			mutate:  func(a *models.SubmitArgs) { a.Category = "" },
			wantMsg: "category is required",
		},
		{
			name:    "unknown category",
			mutate:  func(a *models.SubmitArgs) { a.Category = "ARSON" },
			wantMsg: "not a known crime category",
		},
		{
			name:    "missing priority",
			mutate:  func(a *models.SubmitArgs) { a.Priority = "" },
			wantMsg: "priority is required",
		},
		{
			name:    "unknown priority",
			mutate:  func(a *models.SubmitArgs) { a.Priority = "urgent" },
			wantMsg: "not one of low, medium, high, critical",
		},
		{
			name:    "no media",
			mutate:  func(a *models.SubmitArgs) { a.Media = nil },
			wantMsg: "at least one media item is required",
		},
		{
			name: "unsupported mime type",
			mutate: func(a *models.SubmitArgs) {
				a.Media[0].MimeType = "application/pdf"
			},
			wantMsg: "is not supported",
		},
		{
			name: "bad wallet address",
			mutate: func(a *models.SubmitArgs) {
				a.WalletAddress = "0x123"
			},
			wantMsg: "is not a valid hex address",
		},
		{
			name: "media not base64",
			mutate: func(a *models.SubmitArgs) {
				a.Media[0].Data = "not base64!!!"
			},
			wantMsg: "is not valid base64",
		},
		{
			name: "precomputed classification confidence out of range",
			mutate: func(a *models.SubmitArgs) {
				a.Classification = &models.Classification{
					Confidence:  150,
					CrimeType:   models.CrimeDrug,
					Description: "handoff on camera",
				}
			},
			wantMsg: "classification confidence must be between 0 and 100",
		},
		{
			name: "precomputed classification without description",
			mutate: func(a *models.SubmitArgs) {
				a.Classification = &models.Classification{
					Confidence: 85,
					CrimeType:  models.CrimeDrug,
				}
			},
			wantMsg: "classification description is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := validSubmitArgs()
			tt.mutate(args)

			w := postJSON(router, "/api/v3/report", args)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("SubmitReport: status = %d, want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantMsg) {
				t.Errorf("SubmitReport: body = %s, want message containing %q", w.Body.String(), tt.wantMsg)
			}
		})
	}
}

func TestVerifyValidation(t *testing.T) {
	router := newTestRouter()
	decision := true

	tests := []struct {
		name    string
		args    *models.VerifyArgs
		wantMsg string
	}{
		{
			name:    "missing report seq",
			args:    &models.VerifyArgs{VerifierID: "admin-1", Decision: &decision},
			wantMsg: "report_seq is required",
		},
		{
			name:    "missing verifier",
			args:    &models.VerifyArgs{ReportSeq: 7, Decision: &decision},
			wantMsg: "verifier_id is required",
		},
		{
			name:    "missing decision",
			args:    &models.VerifyArgs{ReportSeq: 7, VerifierID: "admin-1"},
			wantMsg: "decision must be true or false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/api/v3/verify", tt.args)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Verify: status = %d, want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantMsg) {
				t.Errorf("Verify: body = %s, want message containing %q", w.Body.String(), tt.wantMsg)
			}
		})
	}
}

func TestVerifyNonBooleanDecision(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("POST", "/api/v3/verify",
		strings.NewReader(`{"report_seq": 7, "verifier_id": "admin-1", "decision": "yes"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Verify: status = %d, want 400", w.Code)
	}
}
