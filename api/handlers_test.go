package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/warp/release-engine/api"
	"github.com/warp/release-engine/calc"
	"github.com/warp/release-engine/legislation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newTestRouter wires the API with no store: runs compute but do not persist.
func newTestRouter() http.Handler {
	engine := calc.NewEngine(legislation.Configurations(), legislation.SDS40Tranches(), calc.DefaultServices(), zerolog.Nop())
	return api.NewRouter(api.NewHandler(engine, nil, zerolog.Nop()))
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validBooking = `{
	"offender": {"reference": "A1234BC", "date_of_birth": "1985-03-12"},
	"sentences": [{
		"id": "s1",
		"kind": "SDS",
		"offence": {"code": "TH68", "committed_at": "2019-06-01"},
		"sentenced_at": "2020-01-15",
		"duration": {"months": 12},
		"ora": true
	}],
	"adjustments": [{
		"type": "REMAND",
		"days": 10,
		"applies_to_sentences_from": "2020-01-15"
	}]
}`

// =============================================================================
// CALCULATIONS
// =============================================================================

func TestRunCalculation(t *testing.T) {
	// GIVEN: A valid booking
	// WHEN: POSTed to the calculation endpoint
	// THEN: 201 with the computed dates and a run ID

	rec := postJSON(t, newTestRouter(), "/api/calculations", validBooking)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp api.CalculationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.RunID == "" {
		t.Error("expected a run ID")
	}
	if resp.OffenderReference != "A1234BC" {
		t.Errorf("expected offender A1234BC, got %s", resp.OffenderReference)
	}
	if got := resp.Dates["CRD"]; got != "2020-07-05" {
		t.Errorf("expected CRD 2020-07-05, got %s", got)
	}
	if got := resp.Dates["SLED"]; got != "2021-01-04" {
		t.Errorf("expected SLED 2021-01-04, got %s", got)
	}
	if got := resp.Breakdowns["CRD"].AdjustedDays; got != -10 {
		t.Errorf("expected -10 adjusted days on CRD, got %d", got)
	}
	if len(resp.Groups) != 1 {
		t.Errorf("expected 1 group, got %d", len(resp.Groups))
	}
}

func TestRunCalculation_MalformedBody(t *testing.T) {
	rec := postJSON(t, newTestRouter(), "/api/calculations", `{"offender": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRunCalculation_UnparseableDate(t *testing.T) {
	body := strings.Replace(validBooking, "2020-01-15", "15/01/2020", 1)
	rec := postJSON(t, newTestRouter(), "/api/calculations", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var resp api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected an error message")
	}
}

func TestRunCalculation_EmptyBookingRejected(t *testing.T) {
	// GIVEN: A booking with no sentences
	// WHEN: POSTed
	// THEN: 422, the engine's invariant rejection

	body := `{"offender": {"reference": "A1234BC", "date_of_birth": "1985-03-12"}, "sentences": []}`
	rec := postJSON(t, newTestRouter(), "/api/calculations", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

func TestGetCalculation_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/calculations/nope", nil)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListCalculations_NoStore(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/calculations", nil)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []api.RunSummaryDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty list, got %d entries", len(out))
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
