package main

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRebuildInProgress is returned when a rebuild is requested while another
// one is still running. Concurrent requests are rejected, not queued; the
// caller can retry once the in-flight rebuild finishes.
var ErrRebuildInProgress = errors.New("leaderboard rebuild already in progress")

var ErrMemberNotFound = errors.New("member not found")

// DataIntegrityError reports activities that reference a member missing from
// the member snapshot used for a rebuild. The rebuild is aborted; the
// offending records are never silently dropped.
type DataIntegrityError struct {
	ActivityIDs []string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("activities reference unknown members: %s", strings.Join(e.ActivityIDs, ", "))
}

// StoreUnavailableError wraps a failed fetch from one of the backing stores.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// CommitConflictError wraps a failed publish of a new leaderboard generation.
// The previous generation stays current; retrying is the caller's decision.
type CommitConflictError struct {
	Err error
}

func (e *CommitConflictError) Error() string {
	return fmt.Sprintf("leaderboard commit failed: %v", e.Err)
}

func (e *CommitConflictError) Unwrap() error { return e.Err }
