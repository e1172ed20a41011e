/*
timeline.go - Event-ordered timeline simulation

PURPOSE:
  Replays a booking's whole custodial history in chronological order. Every
  dated fact (a sentence landing, days awarded or restored, an at-large
  period, a tranche commencing, an external movement) is an event; events on
  one date run in fixed priority order, mutate the run state, and say
  whether the custodial dates need recomputing. After each date the engine
  re-runs the full adjustment calculation over the open sentence group and
  advances the latest-release pointer.

STATE:
  All mutable state lives in runState, created per run and discarded with
  it. Configuration (multiplier tables, tranche dates) is shared read-only.

GROUPS:
  Sentences in custody at the same time form a group. When the timeline
  moves past the group's latest release, the group closes into the released
  list (recording which sentences still had an open licence) and a later
  sentence opens a fresh group.
*/
package calc

import (
	"github.com/rs/zerolog"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs calculations. Safe for concurrent use: it holds only
// read-only configuration and collaborator references.
type Engine struct {
	Lookup   *MultiplierLookup
	Services Services
	Log      zerolog.Logger
}

func NewEngine(configs EarlyReleaseConfigurations, sds40 SDS40TrancheConfiguration, services Services, log zerolog.Logger) *Engine {
	return &Engine{
		Lookup:   &MultiplierLookup{Configs: configs, Sds40: sds40},
		Services: services,
		Log:      log,
	}
}

// qualifyingReadmissionReasons are admission reasons that cancel the freeze
// a release movement would otherwise put on the timeline (the person was
// never lawfully out).
var qualifyingReadmissionReasons = map[string]bool{
	"RECAPTURED":          true,
	"RETURN_FROM_ESCAPE":  true,
	"ADMITTED_IN_ERROR":   true,
	"RETURN_FROM_COURT":   true,
}

// =============================================================================
// RUN STATE
// =============================================================================

type handleResult struct {
	requiresCalc bool
	suppress     bool
}

type runState struct {
	booking *Booking
	calc    *Calculator
	lookup  *MultiplierLookup
	log     zerolog.Logger

	// current is the open sentence group; reached is every sentence the
	// timeline has initialised, released or not.
	current    []*Sentence
	reached    []*Sentence
	groupStart Date
	released   []SentenceGroup

	latestRelease         Date
	latestReleaseSentence *Sentence

	// groupUAL/groupADA are the custody-level day totals shared onto
	// sentences joining the open group late.
	groupUAL int
	groupADA int

	// padaDays buffers awarded days that landed while nobody was in
	// custody, to be applied to the next sentences.
	padaDays int

	outOfPrison bool
	lastUALEnd  Date

	allocatedTranche   *Tranche
	beforeTrancheDates map[ReleaseDateType]Date
	stopClock          Date
}

type eventHandler func(st *runState, date Date, batch []timelineEvent) handleResult

// timelineHandlers is the event-type dispatch table; priority ordering is
// the eventQueue's job, not this map's.
var timelineHandlers = map[timelineEventType]eventHandler{
	eventSentenced:         handleSentenced,
	eventAdjustmentDays:    handleAdjustmentDays,
	eventUAL:               handleUAL,
	eventTranche:           handleTranche,
	eventExternalAdmission: handleExternalAdmission,
	eventExternalRelease:   handleExternalRelease,
}

// =============================================================================
// CALCULATE - Full run
// =============================================================================

func (e *Engine) Calculate(b *Booking) (*CalculationOutput, error) {
	if len(b.Sentences) == 0 {
		return nil, invariant("calculate", "", ErrNoSentences)
	}

	working, err := foldConsecutiveChains(b.Sentences)
	if err != nil {
		return nil, err
	}

	st := &runState{
		booking:   b,
		calc:      &Calculator{Booking: b, Services: e.Services, Options: b.Options},
		lookup:    e.Lookup,
		log:       e.Log,
		stopClock: e.Lookup.Sds40.TrancheOne,
	}

	queue := e.buildQueue(b, working)

	// The pointer starts at the earliest sentence's own start date.
	for _, s := range working {
		for _, p := range s.SentenceParts() {
			if st.latestRelease.IsZero() || p.SentencedAt.Before(st.latestRelease) {
				st.latestRelease = p.SentencedAt
			}
		}
	}

	for _, date := range queue.sortedDates() {
		if len(st.current) > 0 && date.After(st.latestRelease) {
			st.closeGroup()
		}

		requires, suppressed := false, false
		for _, batch := range queue.eventsAt(date) {
			res := timelineHandlers[batch[0].kind](st, date, batch)
			requires = requires || res.requiresCalc
			suppressed = suppressed || res.suppress
		}

		if requires && !suppressed {
			if err := st.recalculate(); err != nil {
				return nil, err
			}
		}
	}

	if len(st.current) > 0 {
		st.closeGroup()
	}
	if len(st.released) == 0 {
		return nil, invariant("calculate", "", ErrNoSentences)
	}

	return e.extract(b, st, working)
}

func (e *Engine) buildQueue(b *Booking, working []*Sentence) *eventQueue {
	queue := newEventQueue()

	for _, s := range working {
		for _, p := range s.SentenceParts() {
			queue.add(p.SentencedAt, timelineEvent{kind: eventSentenced, sentence: s})
		}
	}

	for _, t := range []AdjustmentType{AdjustmentADA, AdjustmentRADA} {
		for i := range b.Adjustments[t] {
			adj := &b.Adjustments[t][i]
			queue.add(adj.AppliesToSentencesFrom, timelineEvent{kind: eventAdjustmentDays, adjustment: adj})
		}
	}
	for i := range b.Adjustments[AdjustmentUAL] {
		adj := &b.Adjustments[AdjustmentUAL][i]
		queue.add(adj.AppliesToSentencesFrom, timelineEvent{kind: eventUAL, adjustment: adj})
	}

	for _, tranche := range e.effectiveTranches() {
		t := tranche
		queue.add(t.CommencementDate, timelineEvent{kind: eventTranche, tranche: &t})
	}

	for i := range b.ExternalMovements {
		mv := &b.ExternalMovements[i]
		kind := eventExternalAdmission
		if mv.Direction == MovementOut {
			kind = eventExternalRelease
		}
		queue.add(mv.Date, timelineEvent{kind: kind, movement: mv})
	}

	return queue
}

// effectiveTranches returns the configured tranches, or the default staged
// commencement derived from the SDS40 dates when no configuration carries
// tranches of its own.
func (e *Engine) effectiveTranches() []Tranche {
	var out []Tranche
	for _, c := range e.Lookup.Configs {
		out = append(out, c.Tranches...)
	}
	if len(out) > 0 {
		return out
	}
	s := e.Lookup.Sds40
	return []Tranche{
		{Name: "TRANCHE_1", CommencementDate: s.TrancheOne, AllocationType: TrancheAllocationStandard, MaximumYears: 5},
		{Name: "TRANCHE_2", CommencementDate: s.TrancheTwo, AllocationType: TrancheAllocationStandard, MinimumYears: 5},
		{Name: "TRANCHE_3", CommencementDate: s.TrancheThree, AllocationType: TrancheAllocationThree},
	}
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

func handleSentenced(st *runState, date Date, batch []timelineEvent) handleResult {
	var fresh []*Sentence
	for _, ev := range batch {
		s := ev.sentence
		if s.Calculation == nil {
			track, types := Classify(s, st.booking.Offender, st.calc.Services)
			s.Calculation = &SentenceCalculation{
				Track:        track,
				Types:        types,
				ReleasePoint: st.lookup.FnFor(date),
			}
			st.seedCustodyAdjustments(s)
			st.reached = append(st.reached, s)
			fresh = append(fresh, s)
		}
		if !st.inCurrent(s) {
			st.current = append(st.current, s)
			if st.groupStart.IsZero() {
				st.groupStart = date
			}
		}
	}

	// New arrivals share the custody-level adjustments the open group has
	// already accumulated, plus any days buffered before sentencing.
	for _, s := range fresh {
		s.Calculation.Adjustments.UALDuringCustody += st.groupUAL
		s.Calculation.Adjustments.AwardedDuringCustody += st.groupADA + st.padaDays
	}
	if len(fresh) > 0 {
		st.padaDays = 0
	}

	st.log.Debug().Str("date", date.String()).Int("sentences", len(batch)).Msg("timeline: sentenced")
	return handleResult{requiresCalc: true}
}

func handleAdjustmentDays(st *runState, date Date, batch []timelineEvent) handleResult {
	net := 0
	for _, ev := range batch {
		switch ev.adjustment.Type {
		case AdjustmentADA:
			net += ev.adjustment.Days
		case AdjustmentRADA:
			net -= ev.adjustment.Days
		}
	}
	if net == 0 {
		return handleResult{}
	}

	inCustody := len(st.current) > 0 && !st.outOfPrison
	if !inCustody {
		if st.standardRecallActive() {
			// Dropped: days awarded during a standard recall's licence gap
			// do not carry to later sentences.
			return handleResult{}
		}
		st.padaDays += net
		return handleResult{}
	}

	for _, s := range st.current {
		c := s.Calculation
		if s.IsFixedTermRecall() && !c.AdjustedRelease.IsZero() && date.After(c.AdjustedRelease) {
			c.Adjustments.AwardedAfterRelease += net
		} else {
			c.Adjustments.AwardedDuringCustody += net
		}
	}
	st.groupADA += net
	return handleResult{requiresCalc: true}
}

func handleUAL(st *runState, date Date, batch []timelineEvent) handleResult {
	for _, ev := range batch {
		adj := ev.adjustment
		for _, s := range st.reached {
			c := s.Calculation
			custodial := c.AdjustedRelease.IsZero() || date.BeforeOrEqual(c.AdjustedRelease)
			if custodial {
				c.Adjustments.UALDuringCustody += adj.Days
			} else {
				c.Adjustments.UALAfterRelease += adj.Days
			}
		}
		if st.inCurrentCustody() {
			st.groupUAL += adj.Days
		}

		end := adj.From.AddDays(adj.Days)
		if adj.To != nil {
			end = *adj.To
		}
		st.lastUALEnd = LatestDate(st.lastUALEnd, end)
	}
	return handleResult{requiresCalc: true}
}

func handleTranche(st *runState, date Date, batch []timelineEvent) handleResult {
	for _, ev := range batch {
		t := ev.tranche
		if !t.CommencementDate.Equal(date) {
			continue
		}
		// Allocation is monotonic: the first allocated tranche governs the
		// run; later commencements never reassign it.
		if st.allocatedTranche != nil {
			continue
		}

		eligible := st.eligibleSentences()
		if len(eligible) == 0 {
			continue
		}
		match := t.AllocationType == TrancheAllocationThree
		for _, s := range eligible {
			if t.AppliesToDuration(s) {
				match = true
				break
			}
		}
		if !match {
			continue
		}

		// Snapshot the pre-commencement dates, then recompute with the
		// post-commencement multipliers. Unused awarded days have to be
		// re-derived against the new release points.
		snapshot, _ := consolidatedDates(st.current)
		st.beforeTrancheDates = snapshot
		for _, s := range st.current {
			s.Calculation.Adjustments.UnusedADA = 0
			s.Calculation.Adjustments.UnusedLicenceADA = 0
		}
		for _, s := range eligible {
			s.Calculation.ReleasePoint = st.lookup.Current
		}
		st.allocatedTranche = t

		st.log.Info().Str("tranche", t.Name).Str("date", date.String()).Msg("timeline: tranche allocated")
		return handleResult{requiresCalc: true}
	}
	return handleResult{}
}

func handleExternalAdmission(st *runState, date Date, batch []timelineEvent) handleResult {
	st.outOfPrison = false
	return handleResult{requiresCalc: true}
}

func handleExternalRelease(st *runState, date Date, batch []timelineEvent) handleResult {
	mv := batch[len(batch)-1].movement
	st.outOfPrison = true

	if st.qualifyingReadmissionFollows(mv) {
		return handleResult{requiresCalc: true}
	}
	if mv.Date.AfterOrEqual(st.stopClock) {
		return handleResult{}
	}

	// The recorded release governs: freeze the pointer and stop same-day
	// recalculation from overwriting it.
	st.latestRelease = mv.Date
	return handleResult{suppress: true}
}

// =============================================================================
// RUN STATE HELPERS
// =============================================================================

func (st *runState) inCurrent(s *Sentence) bool {
	for _, cur := range st.current {
		if cur == s {
			return true
		}
	}
	return false
}

// inCurrentCustody reports whether the open group is still custodial.
func (st *runState) inCurrentCustody() bool {
	return len(st.current) > 0 && !st.outOfPrison
}

func (st *runState) standardRecallActive() bool {
	for _, s := range st.reached {
		if s.Recall == RecallStandard {
			return true
		}
	}
	return false
}

// seedCustodyAdjustments applies the booking's served-time adjustments to a
// newly initialised sentence. An adjustment applies to sentences imposed on
// or after its anchor date.
func (st *runState) seedCustodyAdjustments(s *Sentence) {
	apply := func(t AdjustmentType, into *int) {
		for _, adj := range st.booking.Adjustments[t] {
			if s.SentencedAt.AfterOrEqual(adj.AppliesToSentencesFrom) {
				*into += adj.Days
			}
		}
	}
	a := &s.Calculation.Adjustments
	apply(AdjustmentRemand, &a.Remand)
	apply(AdjustmentTaggedBail, &a.TaggedBail)
	apply(AdjustmentRecallRemand, &a.RecallRemand)
	apply(AdjustmentRecallTaggedBail, &a.RecallTaggedBail)
}

func (st *runState) eligibleSentences() []*Sentence {
	var out []*Sentence
	for _, s := range st.current {
		if s.IsRecall() {
			continue
		}
		if st.lookup.ConfigurationFor(s) != nil {
			out = append(out, s)
			continue
		}
		// Without configurations the default scheme covers standard
		// determinate sentences only.
		if len(st.lookup.Configs) == 0 && s.Calculation != nil && s.Calculation.Track == TrackSDSStandard {
			out = append(out, s)
		}
	}
	return out
}

func (st *runState) qualifyingReadmissionFollows(mv *ExternalMovement) bool {
	for i := range st.booking.ExternalMovements {
		next := &st.booking.ExternalMovements[i]
		if next.Date.Before(mv.Date) || next == mv {
			continue
		}
		if next.Direction == MovementIn && next.Date.AfterOrEqual(mv.Date) {
			return qualifyingReadmissionReasons[next.Reason]
		}
	}
	return false
}

func (st *runState) recalculate() error {
	if len(st.current) == 0 {
		return nil
	}
	if err := st.calc.CorrectUnusedAwardedDays(st.current); err != nil {
		return err
	}

	var latest *Sentence
	for _, s := range st.current {
		if latest == nil || s.Calculation.AdjustedRelease.After(latest.Calculation.AdjustedRelease) {
			latest = s
		}
	}
	prev, _ := st.calc.Services.WorkingDay.PreviousWorkingDay(latest.Calculation.AdjustedRelease)
	st.latestRelease = LatestDate(latest.SentencedAt, prev)
	st.latestReleaseSentence = latest
	return nil
}

func (st *runState) closeGroup() {
	var licence []string
	for _, s := range st.current {
		c := s.Calculation
		if c == nil {
			continue
		}
		expiryOpen := c.Types.Contains(SLED) && c.AdjustedExpiry.After(st.latestRelease)
		if b, ok := c.Breakdown[LED]; ok && b.Adjusted.After(st.latestRelease) {
			expiryOpen = true
		}
		if expiryOpen {
			licence = append(licence, s.ID)
		}
	}
	st.released = append(st.released, SentenceGroup{
		Sentences:          st.current,
		Start:              st.groupStart,
		End:                st.latestRelease,
		LicenceSentenceIDs: licence,
	})
	st.current = nil
	st.groupStart = Date{}
	st.groupUAL = 0
	st.groupADA = 0
}

// =============================================================================
// FINAL EXTRACTION
// =============================================================================

func (e *Engine) extract(b *Booking, st *runState, working []*Sentence) (*CalculationOutput, error) {
	final := st.released[len(st.released)-1]

	result := CalculationResult{
		EffectiveSentenceLength: effectiveSentenceLength(st.reached),
	}

	if st.allocatedTranche != nil {
		commencement := st.allocatedTranche.CommencementDate
		applyTrancheDefaulting(final.Sentences, commencement)

		allStartedByCommencement := true
		for _, s := range st.reached {
			if s.SentencedAt.After(commencement) {
				allStartedByCommencement = false
				break
			}
		}
		hintSuppressed := false
		if allStartedByCommencement && st.allocatedTranche.AllocationType == TrancheAllocationStandard {
			hintSuppressed = postTrancheAdjustmentPass(b, final.Sentences, commencement)
		}

		result.AllocatedTranche = st.allocatedTranche.Name
		result.Tranche = st.allocatedTranche.Name

		dates, breakdowns := consolidatedDates(final.Sentences)
		result.Dates = dates
		result.Breakdowns = breakdowns

		for t, d := range dates {
			if before, ok := st.beforeTrancheDates[t]; !ok || !before.Equal(d) {
				result.AffectedByEarlyRelease = true
				break
			}
		}
		result.ShowEarlyReleaseHints = result.AffectedByEarlyRelease && !hintSuppressed
	} else {
		dates, breakdowns := consolidatedDates(final.Sentences)
		result.Dates = dates
		result.Breakdowns = breakdowns
	}

	e.Log.Debug().
		Int("groups", len(st.released)).
		Int("sentences", len(st.reached)).
		Msg("calculation complete")

	return &CalculationOutput{
		Sentences: working,
		Groups:    st.released,
		Result:    result,
	}, nil
}
