package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemberStore struct {
	members []Member
	err     error
	entered chan struct{}
	block   chan struct{}
}

func (f *fakeMemberStore) ListMembers(ctx context.Context) ([]Member, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	return f.members, f.err
}

func (f *fakeMemberStore) GetMember(ctx context.Context, id string) (*Member, error) {
	for _, m := range f.members {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, ErrMemberNotFound
}

type fakeActivityStore struct {
	activities []Activity
	err        error
}

func (f *fakeActivityStore) ListActivities(ctx context.Context) ([]Activity, error) {
	return f.activities, f.err
}

func newTestRebuilder(t *testing.T, members []Member, activities []Activity) (*Rebuilder, *sqlLeaderboardStore) {
	t.Helper()
	store, err := newLeaderboardStore(newTestDB(t))
	require.NoError(t, err)
	r := NewRebuilder(
		&fakeMemberStore{members: members},
		&fakeActivityStore{activities: activities},
		store,
	)
	return r, store
}

func TestRebuildEndToEnd(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "Iron Man", Email: "tony.stark@marvel.com", Team: "Team Marvel"},
		{ID: "m2", Name: "Superman", Email: "clark.kent@dc.com", Team: "Team DC"},
	}
	activities := []Activity{
		{ID: "a1", MemberID: "m1", Calories: 300},
		{ID: "a2", MemberID: "m1", Calories: 200},
		{ID: "a3", MemberID: "m2", Calories: 700},
	}

	r, store := newTestRebuilder(t, members, activities)
	result, err := r.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.EntryCount)

	entries := store.CurrentGeneration()
	require.Len(t, entries, 2)
	assert.Equal(t, LeaderboardEntry{
		Rank: 1, MemberID: "m2", MemberName: "Superman", Team: "Team DC",
		TotalCalories: 700, TotalActivities: 1,
	}, entries[0])
	assert.Equal(t, LeaderboardEntry{
		Rank: 2, MemberID: "m1", MemberName: "Iron Man", Team: "Team Marvel",
		TotalCalories: 500, TotalActivities: 2,
	}, entries[1])
}

func TestRebuildIdempotent(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "Twin A"},
		{ID: "m2", Name: "Twin B"},
	}
	activities := []Activity{
		{ID: "a1", MemberID: "m1", Calories: 400},
		{ID: "a2", MemberID: "m2", Calories: 400},
	}

	r, store := newTestRebuilder(t, members, activities)

	first, err := r.Rebuild(context.Background())
	require.NoError(t, err)
	firstEntries := store.CurrentGeneration()

	second, err := r.Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstEntries, store.CurrentGeneration())
	assert.Equal(t, first.EntryCount, second.EntryCount)
	assert.Greater(t, second.Generation, first.Generation)
}

func TestRebuildEmptyResultIsValid(t *testing.T) {
	r, store := newTestRebuilder(t, []Member{{ID: "m1", Name: "Idle"}}, nil)

	result, err := r.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.EntryCount)
	assert.Empty(t, store.CurrentGeneration())
}

func TestRebuildDataIntegrityLeavesPreviousGenerationLive(t *testing.T) {
	members := []Member{{ID: "m1", Name: "Known"}}
	activities := &fakeActivityStore{activities: []Activity{
		{ID: "a1", MemberID: "m1", Calories: 100},
	}}

	store, err := newLeaderboardStore(newTestDB(t))
	require.NoError(t, err)
	r := NewRebuilder(&fakeMemberStore{members: members}, activities, store)

	_, err = r.Rebuild(context.Background())
	require.NoError(t, err)
	before := store.CurrentGeneration()
	require.Len(t, before, 1)

	activities.activities = append(activities.activities,
		Activity{ID: "a2", MemberID: "ghost", Calories: 50})

	_, err = r.Rebuild(context.Background())
	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, []string{"a2"}, integrity.ActivityIDs)
	assert.Equal(t, before, store.CurrentGeneration())
}

func TestRebuildStoreUnavailable(t *testing.T) {
	store, err := newLeaderboardStore(newTestDB(t))
	require.NoError(t, err)
	r := NewRebuilder(
		&fakeMemberStore{err: errors.New("connection refused")},
		&fakeActivityStore{},
		store,
	)

	_, err = r.Rebuild(context.Background())
	var unavailable *StoreUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "list members", unavailable.Op)
}

func TestRebuildRejectsConcurrentCall(t *testing.T) {
	members := &fakeMemberStore{
		entered: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	store, err := newLeaderboardStore(newTestDB(t))
	require.NoError(t, err)
	r := NewRebuilder(members, &fakeActivityStore{}, store)

	done := make(chan error, 1)
	go func() {
		_, err := r.Rebuild(context.Background())
		done <- err
	}()

	// Wait for the first rebuild to take the lock before racing it.
	select {
	case <-members.entered:
	case <-time.After(time.Second):
		t.Fatal("rebuild never started")
	}

	_, err = r.Rebuild(context.Background())
	assert.ErrorIs(t, err, ErrRebuildInProgress)

	close(members.block)
	require.NoError(t, <-done)
}

func TestRebuildHonorsCancellation(t *testing.T) {
	db := newTestDB(t)
	store, err := newLeaderboardStore(db)
	require.NoError(t, err)
	r := NewRebuilder(&sqlMemberStore{db: db}, &sqlActivityStore{db: db}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Rebuild(ctx)
	var unavailable *StoreUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRebuildNotifiesOnCommit(t *testing.T) {
	members := []Member{{ID: "m1", Name: "Solo"}}
	activities := []Activity{{ID: "a1", MemberID: "m1", Calories: 250}}

	r, _ := newTestRebuilder(t, members, activities)

	var notified []LeaderboardEntry
	r.onCommit = func(entries []LeaderboardEntry) { notified = entries }

	_, err := r.Rebuild(context.Background())
	require.NoError(t, err)
	require.Len(t, notified, 1)
	assert.Equal(t, "Solo", notified[0].MemberName)
}
