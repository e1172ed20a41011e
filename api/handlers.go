/*
handlers.go - HTTP API handlers for the release date engine

PURPOSE:
  Exposes the calculation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Calculations:
    POST   /api/calculations           Run a calculation for a booking
    GET    /api/calculations           List stored runs (optionally by offender)
    GET    /api/calculations/{id}      Retrieve a stored run's result

  Bank holidays:
    GET    /api/holidays               List the bank holiday calendar
    POST   /api/holidays               Record a bank holiday
    DELETE /api/holidays/{date}        Remove a bank holiday

  Health:
    GET    /api/health                 Liveness probe

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: The calculation engine (read-only configuration)
  - Store:  Run persistence and holiday calendar
  - Log:    Structured request logging

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert DTOs to the domain booking
  3. Run the engine
  4. Persist the run, serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed JSON, unparseable dates or decimals
  - 404: Run not found
  - 422: Booking rejected by an engine invariant
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - calc/timeline.go: The engine these handlers delegate to
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/release-engine/calc"
	"github.com/warp/release-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *calc.Engine
	Store  *sqlite.Store
	Log    zerolog.Logger
}

// NewHandler creates a new handler. Store may be nil, in which case runs are
// computed but not persisted and run retrieval returns 404.
func NewHandler(engine *calc.Engine, store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{Engine: engine, Store: store, Log: log}
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// RunCalculation computes every applicable release date for a booking.
// POST /api/calculations
func (h *Handler) RunCalculation(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	booking, err := toBooking(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking", err)
		return
	}

	output, err := h.Engine.Calculate(booking)
	if err != nil {
		if calc.IsInvariantViolation(err) {
			writeError(w, http.StatusUnprocessableEntity, "Booking rejected", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Calculation failed", err)
		return
	}

	runID := uuid.NewString()
	now := time.Now()
	resp := toCalculationResponse(runID, booking.Offender.Reference, output, now)

	h.Log.Info().
		Str("run_id", runID).
		Str("offender", booking.Offender.Reference).
		Int("sentences", len(req.Sentences)).
		Str("tranche", resp.Tranche).
		Msg("calculation complete")

	if h.Store != nil {
		requestJSON, _ := json.Marshal(req)
		resultJSON, _ := json.Marshal(resp)
		record := sqlite.RunRecord{
			ID:                runID,
			OffenderReference: booking.Offender.Reference,
			RequestJSON:       string(requestJSON),
			ResultJSON:        string(resultJSON),
			CreatedAt:         now.UTC(),
		}
		if err := h.Store.SaveRun(r.Context(), record); err != nil {
			// The calculation itself succeeded; log and return it anyway.
			h.Log.Error().Err(err).Str("run_id", runID).Msg("failed to persist calculation run")
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetCalculation returns a stored run's result.
// GET /api/calculations/{id}
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.Store == nil {
		writeError(w, http.StatusNotFound, "Calculation not found", nil)
		return
	}

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load calculation", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Calculation not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(run.ResultJSON))
}

// ListCalculations returns stored run summaries, newest first.
// GET /api/calculations?offender=A1234BC&limit=20
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeJSON(w, http.StatusOK, []RunSummaryDTO{})
		return
	}

	offender := r.URL.Query().Get("offender")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.Store.ListRuns(r.Context(), offender, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}

	dtos := make([]RunSummaryDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunSummaryDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BANK HOLIDAY HANDLERS
// =============================================================================

// ListBankHolidays returns every stored holiday date.
// GET /api/holidays
func (h *Handler) ListBankHolidays(w http.ResponseWriter, r *http.Request) {
	dates, err := h.Store.LoadBankHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateBankHoliday records a bank holiday.
// POST /api/holidays
func (h *Handler) CreateBankHoliday(w http.ResponseWriter, r *http.Request) {
	var req BankHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := calc.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	if err := h.Store.SaveBankHoliday(r.Context(), date, req.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"date": date.String(), "name": req.Name})
}

// DeleteBankHoliday removes a bank holiday.
// DELETE /api/holidays/{date}
func (h *Handler) DeleteBankHoliday(w http.ResponseWriter, r *http.Request) {
	date, err := calc.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	if err := h.Store.DeleteBankHoliday(r.Context(), date); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health is a liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
