package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSumsCaloriesAndCounts(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "Iron Man", Team: "Team Marvel"},
	}
	activities := []Activity{
		{ID: "a1", MemberID: "m1", Calories: 100},
		{ID: "a2", MemberID: "m1", Calories: 250},
		{ID: "a3", MemberID: "m1", Calories: 50},
	}

	totals, err := aggregateActivities(members, activities)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 400, totals[0].TotalCalories)
	assert.Equal(t, 3, totals[0].TotalActivities)
	assert.Equal(t, "Iron Man", totals[0].MemberName)
	assert.Equal(t, "Team Marvel", totals[0].Team)
}

func TestAggregateExcludesMembersWithoutActivities(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "Active"},
		{ID: "m2", Name: "Inactive"},
	}
	activities := []Activity{
		{ID: "a1", MemberID: "m1", Calories: 120},
	}

	totals, err := aggregateActivities(members, activities)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "m1", totals[0].MemberID)
}

func TestAggregateUsesLiveMemberProfileNotActivitySnapshot(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "Carol Danvers", Team: "Team Marvel"},
	}
	activities := []Activity{
		// Stale snapshot taken before a profile change.
		{ID: "a1", MemberID: "m1", MemberName: "Ms. Marvel", Calories: 300},
	}

	totals, err := aggregateActivities(members, activities)
	require.NoError(t, err)
	assert.Equal(t, "Carol Danvers", totals[0].MemberName)
}

func TestAggregateReportsOrphanedActivities(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "Known"},
	}
	activities := []Activity{
		{ID: "a1", MemberID: "m1", Calories: 100},
		{ID: "a3", MemberID: "ghost", Calories: 50},
		{ID: "a2", MemberID: "ghost", Calories: 75},
	}

	totals, err := aggregateActivities(members, activities)
	assert.Nil(t, totals)

	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, []string{"a2", "a3"}, integrity.ActivityIDs)
}

func TestAggregateIndependentOfInputOrder(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "One"},
		{ID: "m2", Name: "Two"},
	}
	activities := []Activity{
		{ID: "a1", MemberID: "m1", Calories: 10},
		{ID: "a2", MemberID: "m2", Calories: 20},
		{ID: "a3", MemberID: "m1", Calories: 30},
	}
	reversed := []Activity{activities[2], activities[1], activities[0]}

	forward, err := aggregateActivities(members, activities)
	require.NoError(t, err)
	backward, err := aggregateActivities(members, reversed)
	require.NoError(t, err)

	assert.ElementsMatch(t, forward, backward)
}

func TestAggregateEmptyInputs(t *testing.T) {
	totals, err := aggregateActivities(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, totals)
}
