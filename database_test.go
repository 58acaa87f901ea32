package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateSeedsFixtureData(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, populateDB(db))
	ctx := context.Background()

	members, err := (&sqlMemberStore{db: db}).ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 12)

	teams, err := (&sqlTeamStore{db: db}).ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	for _, team := range teams {
		assert.Len(t, team.Members, 6)
	}

	activities, err := (&sqlActivityStore{db: db}).ListActivities(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(activities), 12*5)
	assert.LessOrEqual(t, len(activities), 12*10)

	// Every seeded activity must reference a seeded member, so a rebuild
	// straight after populate never trips the integrity check.
	known := make(map[string]bool)
	for _, m := range members {
		known[m.ID] = true
	}
	for _, a := range activities {
		assert.True(t, known[a.MemberID], "activity %s references unknown member", a.ID)
		assert.Positive(t, a.DurationMinutes)
		assert.GreaterOrEqual(t, a.Calories, a.DurationMinutes*5)
		assert.LessOrEqual(t, a.Calories, a.DurationMinutes*10)
		_, err := parseDate(a.Date)
		assert.NoError(t, err)
	}

	workouts, err := (&sqlWorkoutStore{db: db}).ListWorkouts(ctx)
	require.NoError(t, err)
	require.Len(t, workouts, 6)
	for _, w := range workouts {
		assert.NotEmpty(t, w.Exercises)
	}
}

func TestPopulateClearsBeforeReseeding(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, populateDB(db))
	require.NoError(t, populateDB(db))

	members, err := (&sqlMemberStore{db: db}).ListMembers(context.Background())
	require.NoError(t, err)
	assert.Len(t, members, 12)

	var leaderboardRows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM leaderboard").Scan(&leaderboardRows))
	assert.Zero(t, leaderboardRows)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, seedAdmin(db, "admin@test.local", "secret"))
	require.NoError(t, seedAdmin(db, "admin@test.local", "secret"))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}
