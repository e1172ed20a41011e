/*
events.go - Timeline event collection and consecutive chain folding

PURPOSE:
  Builds the date-ordered event queue the timeline replays: every sentence
  date, every adjustment applicability date, every tranche commencement and
  every external movement becomes an event. Events sharing a date are
  processed in a fixed priority order regardless of input order.

CHAIN FOLDING:
  Flat sentences with consecutive links are folded into composite sentences
  before the replay starts. Each part's own sentence date still produces a
  SENTENCED event so the composite is recombined and recalculated whenever a
  new chain member lands.
*/
package calc

import "sort"

// =============================================================================
// EVENT MODEL
// =============================================================================

// timelineEventType doubles as the same-date processing priority: lower
// values run first.
type timelineEventType int

const (
	eventSentenced timelineEventType = iota
	eventAdjustmentDays
	eventUAL
	eventTranche
	eventExternalAdmission
	eventExternalRelease
)

type timelineEvent struct {
	kind       timelineEventType
	sentence   *Sentence
	adjustment *Adjustment
	tranche    *Tranche
	movement   *ExternalMovement
}

// eventQueue is a date-keyed multimap with deterministic iteration order.
type eventQueue struct {
	byDate map[string][]timelineEvent
	dates  map[string]Date
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		byDate: make(map[string][]timelineEvent),
		dates:  make(map[string]Date),
	}
}

func (q *eventQueue) add(date Date, ev timelineEvent) {
	key := date.String()
	q.byDate[key] = append(q.byDate[key], ev)
	q.dates[key] = date
}

// sortedDates returns every event date ascending.
func (q *eventQueue) sortedDates() []Date {
	out := make([]Date, 0, len(q.dates))
	for _, d := range q.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// eventsAt returns the events for a date grouped and ordered by priority,
// with duplicate sentence events collapsed.
func (q *eventQueue) eventsAt(date Date) [][]timelineEvent {
	events := q.byDate[date.String()]
	grouped := make(map[timelineEventType][]timelineEvent)
	for _, ev := range events {
		if ev.kind == eventSentenced {
			dup := false
			for _, seen := range grouped[eventSentenced] {
				if seen.sentence == ev.sentence {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
		}
		grouped[ev.kind] = append(grouped[ev.kind], ev)
	}

	order := []timelineEventType{
		eventSentenced, eventAdjustmentDays, eventUAL,
		eventTranche, eventExternalAdmission, eventExternalRelease,
	}
	var out [][]timelineEvent
	for _, kind := range order {
		if batch, ok := grouped[kind]; ok {
			out = append(out, batch)
		}
	}
	return out
}

// =============================================================================
// CONSECUTIVE CHAIN FOLDING
// =============================================================================

// foldConsecutiveChains replaces linked sentences with composite sentences
// whose Parts hold the chain in service order. Standalone sentences pass
// through untouched.
func foldConsecutiveChains(sentences []*Sentence) ([]*Sentence, error) {
	byID := make(map[string]*Sentence, len(sentences))
	for _, s := range sentences {
		byID[s.ID] = s
	}

	children := make(map[string][]*Sentence)
	linked := 0
	for _, s := range sentences {
		if s.ConsecutiveToID == "" {
			continue
		}
		if _, ok := byID[s.ConsecutiveToID]; !ok {
			return nil, invariant("fold", s.ID, ErrUnknownConsecutiveLink)
		}
		children[s.ConsecutiveToID] = append(children[s.ConsecutiveToID], s)
		linked++
	}

	var out []*Sentence
	visited := make(map[string]bool)
	for _, s := range sentences {
		if s.ConsecutiveToID != "" {
			continue
		}
		if len(children[s.ID]) == 0 {
			out = append(out, s)
			continue
		}
		// Walk the chain breadth-first from its root.
		parts := []*Sentence{s}
		frontier := []*Sentence{s}
		for len(frontier) > 0 {
			next := frontier[0]
			frontier = frontier[1:]
			for _, child := range children[next.ID] {
				if visited[child.ID] {
					return nil, invariant("fold", child.ID, ErrConsecutiveCycle)
				}
				visited[child.ID] = true
				parts = append(parts, child)
				frontier = append(frontier, child)
			}
		}
		out = append(out, newCompositeSentence(parts))
	}

	if len(visited) != linked {
		// Linked sentences unreachable from any root can only form a cycle.
		for _, s := range sentences {
			if s.ConsecutiveToID != "" && !visited[s.ID] {
				return nil, invariant("fold", s.ID, ErrConsecutiveCycle)
			}
		}
	}
	return out, nil
}

func newCompositeSentence(parts []*Sentence) *Sentence {
	root := parts[0]
	comp := &Sentence{
		ID:          root.ID,
		Kind:        SentenceConsecutive,
		Offence:     root.Offence,
		SentencedAt: root.SentencedAt,
		Parts:       parts,
	}
	for _, p := range parts {
		if p.Recall != RecallNone && comp.Recall == RecallNone {
			comp.Recall = p.Recall
		}
		if p.HistoricTUSED != nil && comp.HistoricTUSED == nil {
			comp.HistoricTUSED = p.HistoricTUSED
		}
	}
	return comp
}
