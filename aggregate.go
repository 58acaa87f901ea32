package main

import (
	"sort"
)

// aggregateActivities folds the activity log into one AggregateTotal per
// member that has at least one activity. Members without activities are
// excluded; they get no leaderboard row at all rather than a zero-total one.
// Name and team are taken from the member snapshot, not from the activity's
// denormalized copy, so profile edits show up on the next rebuild.
//
// Pure function: the result depends only on the two inputs, never on their
// ordering.
func aggregateActivities(members []Member, activities []Activity) ([]AggregateTotal, error) {
	byID := make(map[string]Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	totals := make(map[string]*AggregateTotal)
	var orphans []string

	for _, a := range activities {
		m, ok := byID[a.MemberID]
		if !ok {
			orphans = append(orphans, a.ID)
			continue
		}
		t := totals[m.ID]
		if t == nil {
			t = &AggregateTotal{
				MemberID:   m.ID,
				MemberName: m.Name,
				Team:       m.Team,
			}
			totals[m.ID] = t
		}
		t.TotalCalories += a.Calories
		t.TotalActivities++
	}

	if len(orphans) > 0 {
		sort.Strings(orphans)
		return nil, &DataIntegrityError{ActivityIDs: orphans}
	}

	out := make([]AggregateTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	return out, nil
}
