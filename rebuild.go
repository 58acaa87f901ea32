package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// Rebuilder recomputes the whole leaderboard from the member and activity
// stores and publishes the result as a new generation. At most one rebuild
// runs at a time; Publish is therefore never called concurrently.
type Rebuilder struct {
	members     MemberStore
	activities  ActivityStore
	leaderboard LeaderboardStore

	// onCommit runs after a generation is published, e.g. to notify
	// websocket clients. May be nil.
	onCommit func(entries []LeaderboardEntry)

	mu sync.Mutex
}

func NewRebuilder(members MemberStore, activities ActivityStore, leaderboard LeaderboardStore) *Rebuilder {
	return &Rebuilder{
		members:     members,
		activities:  activities,
		leaderboard: leaderboard,
	}
}

// Rebuild snapshots the stores, aggregates, ranks and atomically publishes.
// Any failure before the commit leaves the previous generation live and
// untouched. A concurrent call while a rebuild is in flight returns
// ErrRebuildInProgress.
func (r *Rebuilder) Rebuild(ctx context.Context) (*RebuildResult, error) {
	if !r.mu.TryLock() {
		return nil, ErrRebuildInProgress
	}
	defer r.mu.Unlock()

	start := time.Now()

	members, err := r.members.ListMembers(ctx)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "list members", Err: err}
	}

	activities, err := r.activities.ListActivities(ctx)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "list activities", Err: err}
	}

	totals, err := aggregateActivities(members, activities)
	if err != nil {
		return nil, err
	}

	entries := rankTotals(totals)

	gen, err := r.leaderboard.Publish(ctx, entries)
	if err != nil {
		return nil, &CommitConflictError{Err: err}
	}

	if len(entries) == 0 {
		log.Printf("Leaderboard rebuild produced no entries (no activities recorded)")
	}
	log.Printf("Leaderboard rebuilt: generation %d, %d entries in %s", gen, len(entries), time.Since(start))

	if r.onCommit != nil {
		r.onCommit(entries)
	}

	return &RebuildResult{
		EntryCount: len(entries),
		Generation: gen,
		Elapsed:    time.Since(start),
	}, nil
}
