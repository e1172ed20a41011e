/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Booking (request side):
    BookingRequest, SentenceDTO, OffenceDTO, DurationDTO, AdjustmentDTO,
    MovementDTO

  Calculation (response side):
    CalculationResponse, BreakdownDTO, SentenceResultDTO, GroupDTO,
    RunSummaryDTO

DATE FORMAT:
  All dates on the wire are ISO "2006-01-02" strings. The engine has no
  concept of time of day.

VALIDATION:
  Conversion helpers validate while converting: an unparseable date or
  decimal fails the whole request with a field-qualified error.

SEE ALSO:
  - handlers.go: Uses these types
  - calc/sentence.go: The domain booking model these convert to
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/release-engine/calc"
	"github.com/warp/release-engine/store/sqlite"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// BookingRequest is the request body for a calculation.
type BookingRequest struct {
	Offender            OffenderDTO     `json:"offender"`
	Sentences           []SentenceDTO   `json:"sentences"`
	Adjustments         []AdjustmentDTO `json:"adjustments,omitempty"`
	ReturnToCustodyDate *string         `json:"return_to_custody_date,omitempty"`
	ExternalMovements   []MovementDTO   `json:"external_movements,omitempty"`
	CalculateERSED      bool            `json:"calculate_ersed,omitempty"`
}

// OffenderDTO identifies the person the booking belongs to.
type OffenderDTO struct {
	Reference   string `json:"reference"`
	DateOfBirth string `json:"date_of_birth"`
}

// SentenceDTO represents one sentence in a booking request.
type SentenceDTO struct {
	ID                string      `json:"id"`
	Kind              string      `json:"kind"`
	Offence           OffenceDTO  `json:"offence"`
	SentencedAt       string      `json:"sentenced_at"`
	Duration          DurationDTO `json:"duration"`
	ExtensionDuration DurationDTO `json:"extension_duration,omitempty"`
	Recall            string      `json:"recall,omitempty"`
	ConsecutiveTo     string      `json:"consecutive_to,omitempty"`
	SDSPlus           bool        `json:"sds_plus,omitempty"`
	ORA               bool        `json:"ora,omitempty"`
	AutomaticRelease  bool        `json:"automatic_release,omitempty"`
	FineAmount        string      `json:"fine_amount,omitempty"`
	HistoricTUSED     *string     `json:"historic_tused,omitempty"`
}

// OffenceDTO carries the offence facts that drive legislative era checks.
type OffenceDTO struct {
	Code                string  `json:"code"`
	CommittedAt         string  `json:"committed_at"`
	EndedAt             *string `json:"ended_at,omitempty"`
	ScheduleFifteenLife bool    `json:"schedule_fifteen_life,omitempty"`
	PCSCSection250      bool    `json:"pcsc_section_250,omitempty"`
}

// DurationDTO is a calendar duration in mixed units.
type DurationDTO struct {
	Years  int `json:"years,omitempty"`
	Months int `json:"months,omitempty"`
	Weeks  int `json:"weeks,omitempty"`
	Days   int `json:"days,omitempty"`
}

// AdjustmentDTO represents one day adjustment in a booking request.
type AdjustmentDTO struct {
	Type                   string  `json:"type"`
	Days                   int     `json:"days"`
	From                   string  `json:"from,omitempty"`
	To                     *string `json:"to,omitempty"`
	AppliesToSentencesFrom string  `json:"applies_to_sentences_from"`
}

// MovementDTO represents an external admission or release.
type MovementDTO struct {
	Date      string `json:"date"`
	Direction string `json:"direction"`
	Reason    string `json:"reason,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CalculationResponse is the full result of one calculation run.
type CalculationResponse struct {
	RunID                   string                  `json:"run_id"`
	OffenderReference       string                  `json:"offender_reference"`
	Dates                   map[string]string       `json:"dates"`
	Breakdowns              map[string]BreakdownDTO `json:"breakdowns"`
	EffectiveSentenceLength DurationDTO             `json:"effective_sentence_length"`
	AllocatedTranche        string                  `json:"allocated_tranche,omitempty"`
	Tranche                 string                  `json:"tranche,omitempty"`
	AffectedByEarlyRelease  bool                    `json:"affected_by_early_release"`
	ShowEarlyReleaseHints   bool                    `json:"show_early_release_hints"`
	Sentences               []SentenceResultDTO     `json:"sentences"`
	Groups                  []GroupDTO              `json:"groups"`
	CalculatedAt            string                  `json:"calculated_at"`
}

// BreakdownDTO is the audit record behind one computed date.
type BreakdownDTO struct {
	Unadjusted   string         `json:"unadjusted"`
	Adjusted     string         `json:"adjusted"`
	AdjustedDays int            `json:"adjusted_days"`
	Rules        []string       `json:"rules,omitempty"`
	RuleDays     map[string]int `json:"rule_days,omitempty"`
}

// SentenceResultDTO is the per-sentence view of a run.
type SentenceResultDTO struct {
	ID                 string                  `json:"id"`
	Kind               string                  `json:"kind"`
	Track              string                  `json:"track"`
	Dates              map[string]string       `json:"dates"`
	Breakdowns         map[string]BreakdownDTO `json:"breakdowns"`
	IsImmediateRelease bool                    `json:"is_immediate_release,omitempty"`
}

// GroupDTO records one continuous custodial episode.
type GroupDTO struct {
	SentenceIDs        []string `json:"sentence_ids"`
	Start              string   `json:"start"`
	End                string   `json:"end"`
	LicenceSentenceIDs []string `json:"licence_sentence_ids,omitempty"`
}

// RunSummaryDTO is a stored run without its payloads, for listings.
type RunSummaryDTO struct {
	RunID             string `json:"run_id"`
	OffenderReference string `json:"offender_reference"`
	CreatedAt         string `json:"created_at"`
}

// BankHolidayRequest is the request to record a bank holiday.
type BankHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION: REQUEST -> DOMAIN
// =============================================================================

func toBooking(req BookingRequest) (*calc.Booking, error) {
	dob, err := calc.ParseDate(req.Offender.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("offender.date_of_birth: %w", err)
	}

	b := &calc.Booking{
		Offender:    calc.Offender{Reference: req.Offender.Reference, DateOfBirth: dob},
		Adjustments: make(calc.BookingAdjustments),
		Options:     calc.CalculationOptions{CalculateERSED: req.CalculateERSED},
	}

	for i, sd := range req.Sentences {
		s, err := toSentence(sd)
		if err != nil {
			return nil, fmt.Errorf("sentences[%d]: %w", i, err)
		}
		b.Sentences = append(b.Sentences, s)
	}

	for i, ad := range req.Adjustments {
		adj, err := toAdjustment(ad)
		if err != nil {
			return nil, fmt.Errorf("adjustments[%d]: %w", i, err)
		}
		t := calc.AdjustmentType(ad.Type)
		b.Adjustments[t] = append(b.Adjustments[t], adj)
	}

	if req.ReturnToCustodyDate != nil {
		d, err := calc.ParseDate(*req.ReturnToCustodyDate)
		if err != nil {
			return nil, fmt.Errorf("return_to_custody_date: %w", err)
		}
		b.ReturnToCustodyDate = &d
	}

	for i, md := range req.ExternalMovements {
		d, err := calc.ParseDate(md.Date)
		if err != nil {
			return nil, fmt.Errorf("external_movements[%d].date: %w", i, err)
		}
		b.ExternalMovements = append(b.ExternalMovements, calc.ExternalMovement{
			Date:      d,
			Direction: calc.MovementDirection(md.Direction),
			Reason:    md.Reason,
		})
	}

	return b, nil
}

func toSentence(sd SentenceDTO) (*calc.Sentence, error) {
	sentencedAt, err := calc.ParseDate(sd.SentencedAt)
	if err != nil {
		return nil, fmt.Errorf("sentenced_at: %w", err)
	}
	committedAt, err := calc.ParseDate(sd.Offence.CommittedAt)
	if err != nil {
		return nil, fmt.Errorf("offence.committed_at: %w", err)
	}

	s := &calc.Sentence{
		ID:   sd.ID,
		Kind: calc.SentenceKind(sd.Kind),
		Offence: calc.Offence{
			Code:                sd.Offence.Code,
			CommittedAt:         committedAt,
			ScheduleFifteenLife: sd.Offence.ScheduleFifteenLife,
			PCSCSection250:      sd.Offence.PCSCSection250,
		},
		SentencedAt:       sentencedAt,
		Duration:          toDuration(sd.Duration),
		ExtensionDuration: toDuration(sd.ExtensionDuration),
		Recall:            calc.RecallType(sd.Recall),
		ConsecutiveToID:   sd.ConsecutiveTo,
		SDSPlus:           sd.SDSPlus,
		ORA:               sd.ORA,
		AutomaticRelease:  sd.AutomaticRelease,
	}

	if sd.Offence.EndedAt != nil {
		d, err := calc.ParseDate(*sd.Offence.EndedAt)
		if err != nil {
			return nil, fmt.Errorf("offence.ended_at: %w", err)
		}
		s.Offence.EndedAt = &d
	}
	if sd.FineAmount != "" {
		amount, err := decimal.NewFromString(sd.FineAmount)
		if err != nil {
			return nil, fmt.Errorf("fine_amount: %w", err)
		}
		s.FineAmount = amount
	}
	if sd.HistoricTUSED != nil {
		d, err := calc.ParseDate(*sd.HistoricTUSED)
		if err != nil {
			return nil, fmt.Errorf("historic_tused: %w", err)
		}
		s.HistoricTUSED = &d
	}

	return s, nil
}

func toDuration(dd DurationDTO) calc.Duration {
	return calc.Duration{Years: dd.Years, Months: dd.Months, Weeks: dd.Weeks, Days: dd.Days}
}

func toAdjustment(ad AdjustmentDTO) (calc.Adjustment, error) {
	var adj calc.Adjustment
	anchor, err := calc.ParseDate(ad.AppliesToSentencesFrom)
	if err != nil {
		return adj, fmt.Errorf("applies_to_sentences_from: %w", err)
	}
	adj = calc.Adjustment{
		Type:                   calc.AdjustmentType(ad.Type),
		Days:                   ad.Days,
		AppliesToSentencesFrom: anchor,
	}
	if ad.From != "" {
		d, err := calc.ParseDate(ad.From)
		if err != nil {
			return adj, fmt.Errorf("from: %w", err)
		}
		adj.From = d
	}
	if ad.To != nil {
		d, err := calc.ParseDate(*ad.To)
		if err != nil {
			return adj, fmt.Errorf("to: %w", err)
		}
		adj.To = &d
	}
	return adj, nil
}

// =============================================================================
// CONVERSION: DOMAIN -> RESPONSE
// =============================================================================

func toCalculationResponse(runID, offenderRef string, out *calc.CalculationOutput, at time.Time) CalculationResponse {
	resp := CalculationResponse{
		RunID:                   runID,
		OffenderReference:       offenderRef,
		Dates:                   make(map[string]string, len(out.Result.Dates)),
		Breakdowns:              make(map[string]BreakdownDTO, len(out.Result.Breakdowns)),
		EffectiveSentenceLength: toDurationDTO(out.Result.EffectiveSentenceLength),
		AllocatedTranche:        out.Result.AllocatedTranche,
		Tranche:                 out.Result.Tranche,
		AffectedByEarlyRelease:  out.Result.AffectedByEarlyRelease,
		ShowEarlyReleaseHints:   out.Result.ShowEarlyReleaseHints,
		CalculatedAt:            at.UTC().Format(time.RFC3339),
	}

	for t, d := range out.Result.Dates {
		resp.Dates[string(t)] = d.String()
	}
	for t, b := range out.Result.Breakdowns {
		resp.Breakdowns[string(t)] = toBreakdownDTO(b)
	}
	for _, s := range out.Sentences {
		resp.Sentences = append(resp.Sentences, toSentenceResultDTO(s))
	}
	for _, g := range out.Groups {
		resp.Groups = append(resp.Groups, toGroupDTO(g))
	}

	return resp
}

func toSentenceResultDTO(s *calc.Sentence) SentenceResultDTO {
	dto := SentenceResultDTO{
		ID:   s.ID,
		Kind: string(s.Kind),
	}
	c := s.Calculation
	if c == nil {
		return dto
	}
	dto.Track = string(c.Track)
	dto.IsImmediateRelease = c.IsImmediateRelease
	dto.Dates = make(map[string]string)
	dto.Breakdowns = make(map[string]BreakdownDTO)
	for _, t := range c.Types.Sorted() {
		b, ok := c.Breakdown[t]
		if !ok {
			continue
		}
		dto.Dates[string(t)] = b.Adjusted.String()
		dto.Breakdowns[string(t)] = toBreakdownDTO(b)
	}
	return dto
}

func toBreakdownDTO(b *calc.ReleaseDateBreakdown) BreakdownDTO {
	dto := BreakdownDTO{
		Unadjusted:   b.Unadjusted.String(),
		Adjusted:     b.Adjusted.String(),
		AdjustedDays: b.AdjustedDays,
	}
	for _, r := range b.Rules {
		dto.Rules = append(dto.Rules, string(r))
	}
	if len(b.RuleDays) > 0 {
		dto.RuleDays = make(map[string]int, len(b.RuleDays))
		for r, days := range b.RuleDays {
			dto.RuleDays[string(r)] = days
		}
	}
	return dto
}

func toGroupDTO(g calc.SentenceGroup) GroupDTO {
	dto := GroupDTO{
		Start:              g.Start.String(),
		End:                g.End.String(),
		LicenceSentenceIDs: g.LicenceSentenceIDs,
	}
	for _, s := range g.Sentences {
		dto.SentenceIDs = append(dto.SentenceIDs, s.ID)
	}
	return dto
}

func toDurationDTO(d calc.Duration) DurationDTO {
	return DurationDTO{Years: d.Years, Months: d.Months, Weeks: d.Weeks, Days: d.Days}
}

func toRunSummaryDTO(r sqlite.RunRecord) RunSummaryDTO {
	return RunSummaryDTO{
		RunID:             r.ID,
		OffenderReference: r.OffenderReference,
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
	}
}
