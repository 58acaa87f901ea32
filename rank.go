package main

import (
	"sort"
)

// rankTotals orders aggregate totals into a dense 1..N ranking. Primary key
// is total calories descending; ties fall back to member name ascending,
// then member id ascending, so two rebuilds over the same data always
// produce the same sequence.
func rankTotals(totals []AggregateTotal) []LeaderboardEntry {
	sorted := make([]AggregateTotal, len(totals))
	copy(sorted, totals)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalCalories != b.TotalCalories {
			return a.TotalCalories > b.TotalCalories
		}
		if a.MemberName != b.MemberName {
			return a.MemberName < b.MemberName
		}
		return a.MemberID < b.MemberID
	})

	entries := make([]LeaderboardEntry, len(sorted))
	for i, t := range sorted {
		entries[i] = LeaderboardEntry{
			Rank:            i + 1,
			MemberID:        t.MemberID,
			MemberName:      t.MemberName,
			Team:            t.Team,
			TotalCalories:   t.TotalCalories,
			TotalActivities: t.TotalActivities,
		}
	}
	return entries
}
