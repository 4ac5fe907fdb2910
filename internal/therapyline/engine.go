// Package therapyline reconstructs ordered lines of therapy for one case
// from its raw treatment timeline. The assignment itself is pure; callers
// persist the result and stamp the member rows inside their own
// transaction.
package therapyline

import (
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

// Average Gregorian month length in days, used for survival intervals.
const monthDays = 30.436875

// SNOMED CT code for "treatment not tolerated".
const terminationNotTolerated = "407563006"

// History carries every row of one case that can influence line
// assignment. Therapies must have their medications and drug concepts
// preloaded; responses need their RECIST concept.
type History struct {
	Case           *types.PatientCase
	Therapies      []*types.SystemicTherapy
	Radiotherapies []*types.Radiotherapy
	Surgeries      []*types.Surgery
	Responses      []*types.TreatmentResponse
	Entities       []*types.NeoplasticEntity
}

// Line is one reconstructed line of therapy with its assigned members.
type Line struct {
	Intent          types.TherapyIntent
	Ordinal         int
	ProgressionDate *time.Time

	Therapies      []*types.SystemicTherapy
	Radiotherapies []*types.Radiotherapy
	Surgeries      []*types.Surgery
}

// Label renders the conventional line label, e.g. PLoT2.
func (l *Line) Label() string {
	return (&types.TherapyLine{Intent: l.Intent, Ordinal: l.Ordinal}).Label()
}

// Row materializes the line for persistence.
func (l *Line) Row(caseID uuid.UUID) *types.TherapyLine {
	return &types.TherapyLine{
		CaseID:          caseID,
		Ordinal:         l.Ordinal,
		Intent:          l.Intent,
		ProgressionDate: l.ProgressionDate,
	}
}

// Start returns the earliest member start date, or nil when every member
// period is open at the start.
func (l *Line) Start() *time.Time {
	return l.Period().Start
}

// Period is the smallest range enclosing all members, inclusive on both
// ends. An open member end leaves the envelope open.
func (l *Line) Period() types.Period {
	var start, end *time.Time
	openStart, openEnd := false, false
	mergeStart := func(s *time.Time) {
		if s == nil {
			openStart = true
			return
		}
		if start == nil || s.Before(*start) {
			start = s
		}
	}
	mergeEnd := func(e *time.Time) {
		if e == nil {
			openEnd = true
			return
		}
		if end == nil || e.After(*end) {
			end = e
		}
	}
	for _, t := range l.Therapies {
		mergeStart(t.Period.Start)
		mergeEnd(t.Period.End)
	}
	for _, rt := range l.Radiotherapies {
		mergeStart(rt.Period.Start)
		mergeEnd(rt.Period.End)
	}
	for _, s := range l.Surgeries {
		d := s.Date
		mergeStart(&d)
		mergeEnd(&d)
	}
	out := types.Period{}
	if !openStart {
		out.Start = start
	}
	if !openEnd {
		out.End = end
	}
	return out
}

// ProgressionFreeSurvival returns the line's PFS in average months,
// measured from the line start to the progression date, the death date,
// or now, whichever applies first in that order. Nil when the line has
// no start.
func (l *Line) ProgressionFreeSurvival(death *time.Time, now time.Time) *float64 {
	start := l.Start()
	if start == nil {
		return nil
	}
	end := now
	switch {
	case l.ProgressionDate != nil:
		end = *l.ProgressionDate
	case death != nil:
		end = *death
	}
	months := end.Sub(*start).Hours() / 24 / monthDays
	return &months
}

type intentState struct {
	counter         int
	line            *Line
	prev            *types.SystemicTherapy
	prevGroup       []*types.SystemicTherapy
	lastNonAdjStart *time.Time
}

// Assign rebuilds the case's therapy lines from scratch. The returned
// lines are ordered by creation; ordinals are dense per intent.
func Assign(h History) []*Line {
	therapies := make([]*types.SystemicTherapy, len(h.Therapies))
	copy(therapies, h.Therapies)
	sort.SliceStable(therapies, func(i, j int) bool {
		return startBefore(therapies[i].Period.Start, therapies[j].Period.Start)
	})

	fallback := fallbackIntent(h.Entities)
	var lines []*Line
	states := map[types.TherapyIntent]*intentState{}

	for _, group := range groupTherapies(therapies) {
		intent := group[0].Intent
		if intent == "" {
			intent = fallback
		}
		st := states[intent]
		if st == nil {
			st = &intentState{}
			states[intent] = st
		}

		line := st.line
		switch {
		case st.line == nil:
			line = nil
		case allAdjunctive(group):
			// joins the running line
		case progressionBetween(h.Responses, st.lastNonAdjStart, groupStart(group)) && !st.prev.Antihormonal():
			line = nil
		case terminatedNotTolerated(st.prev):
			if !st.prev.Antihormonal() && !sameTherapeuticClass(group, st.prevGroup) {
				line = nil
			}
		case introducesNewDrug(group, st.prev) && !st.prev.Antihormonal():
			line = nil
		}

		if line == nil {
			st.counter++
			line = &Line{Intent: intent, Ordinal: st.counter}
			lines = append(lines, line)
		}
		line.Therapies = append(line.Therapies, group...)

		st.line = line
		st.prev = group[len(group)-1]
		st.prevGroup = group
		for _, t := range group {
			if t.AdjunctiveRole != nil || t.Period.Start == nil {
				continue
			}
			if st.lastNonAdjStart == nil || t.Period.Start.After(*st.lastNonAdjStart) {
				st.lastNonAdjStart = t.Period.Start
			}
		}
	}

	ordered := make([]*Line, len(lines))
	copy(ordered, lines)
	sort.SliceStable(ordered, func(i, j int) bool {
		return startBefore(ordered[i].Start(), ordered[j].Start())
	})

	for _, rt := range h.Radiotherapies {
		intent := rt.Intent
		if intent == "" {
			intent = fallback
		}
		for _, line := range ordered {
			if line.Intent == intent && line.Period().Overlaps(rt.Period) {
				line.Radiotherapies = append(line.Radiotherapies, rt)
				break
			}
		}
	}
	for _, s := range h.Surgeries {
		intent := s.Intent
		if intent == "" {
			intent = fallback
		}
		for _, line := range ordered {
			if line.Intent == intent && line.Period().Contains(s.Date) {
				line.Surgeries = append(line.Surgeries, s)
				break
			}
		}
	}

	for _, line := range lines {
		line.ProgressionDate = earliestProgressionFrom(h.Responses, line.Start())
	}
	return lines
}

// groupTherapies folds a start-ordered timeline into groups of
// concurrently given therapies. A therapy joins the open group only when
// it overlaps the group's most recent therapy, shares its intent and
// role, and that therapy is not anti-hormonal.
func groupTherapies(sorted []*types.SystemicTherapy) [][]*types.SystemicTherapy {
	var groups [][]*types.SystemicTherapy
	for _, t := range sorted {
		if len(groups) > 0 {
			last := groups[len(groups)-1]
			prev := last[len(last)-1]
			if t.Period.Overlaps(prev.Period) &&
				!prev.Antihormonal() &&
				t.Intent == prev.Intent &&
				sameRole(t.AdjunctiveRole, prev.AdjunctiveRole) {
				groups[len(groups)-1] = append(last, t)
				continue
			}
		}
		groups = append(groups, []*types.SystemicTherapy{t})
	}
	return groups
}

func sameRole(a, b *types.AdjunctiveRole) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func allAdjunctive(group []*types.SystemicTherapy) bool {
	for _, t := range group {
		if t.AdjunctiveRole == nil {
			return false
		}
	}
	return true
}

func groupStart(group []*types.SystemicTherapy) *time.Time {
	return group[0].Period.Start
}

func terminatedNotTolerated(t *types.SystemicTherapy) bool {
	return t != nil && t.TerminationReason != nil &&
		t.TerminationReason.Code == terminationNotTolerated
}

// sameTherapeuticClass reports whether every drug class of the group was
// already present in the previous group, using 4-character ATC prefixes.
func sameTherapeuticClass(group, prev []*types.SystemicTherapy) bool {
	previous := map[string]struct{}{}
	for _, t := range prev {
		for class := range t.TherapeuticClasses() {
			previous[class] = struct{}{}
		}
	}
	for _, t := range group {
		for class := range t.TherapeuticClasses() {
			if _, ok := previous[class]; !ok {
				return false
			}
		}
	}
	return true
}

// introducesNewDrug reports whether the group prescribes any drug the
// previous therapy did not.
func introducesNewDrug(group []*types.SystemicTherapy, prev *types.SystemicTherapy) bool {
	known := map[string]struct{}{}
	for _, code := range prev.DrugCodes() {
		known[code] = struct{}{}
	}
	for _, t := range group {
		for _, code := range t.DrugCodes() {
			if _, ok := known[code]; !ok {
				return true
			}
		}
	}
	return false
}

// progressionBetween reports a progressive-disease response dated within
// [from, to], inclusive. Without a previous non-adjunctive start there is
// nothing to progress from.
func progressionBetween(responses []*types.TreatmentResponse, from, to *time.Time) bool {
	if from == nil || to == nil {
		return false
	}
	for _, r := range responses {
		if !r.IsProgression() {
			continue
		}
		if !r.Date.Before(*from) && !r.Date.After(*to) {
			return true
		}
	}
	return false
}

func earliestProgressionFrom(responses []*types.TreatmentResponse, start *time.Time) *time.Time {
	if start == nil {
		return nil
	}
	var earliest *time.Time
	for _, r := range responses {
		if !r.IsProgression() || r.Date.Before(*start) {
			continue
		}
		if earliest == nil || r.Date.Before(*earliest) {
			d := r.Date
			earliest = &d
		}
	}
	return earliest
}

func fallbackIntent(entities []*types.NeoplasticEntity) types.TherapyIntent {
	for _, e := range entities {
		if e.IsMetastatic() {
			return types.IntentPalliative
		}
	}
	return types.IntentCurative
}

// startBefore orders nil (open) starts first.
func startBefore(a, b *time.Time) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}
