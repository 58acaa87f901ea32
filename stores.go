package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// The rebuild engine only ever talks to the stores through these interfaces;
// the sqlite implementations below own all the SQL.

type MemberStore interface {
	ListMembers(ctx context.Context) ([]Member, error)
	GetMember(ctx context.Context, id string) (*Member, error)
}

type TeamStore interface {
	ListTeams(ctx context.Context) ([]Team, error)
}

type ActivityStore interface {
	ListActivities(ctx context.Context) ([]Activity, error)
}

// LeaderboardStore owns the persisted ranking. Publish replaces the whole
// collection as one generation; CurrentGeneration hands out the published
// slice, which is immutable once published.
type LeaderboardStore interface {
	Publish(ctx context.Context, entries []LeaderboardEntry) (int64, error)
	CurrentGeneration() []LeaderboardEntry
}

type sqlMemberStore struct {
	db *sql.DB
}

func (s *sqlMemberStore) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, team, created_at FROM members ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Team, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *sqlMemberStore) GetMember(ctx context.Context, id string) (*Member, error) {
	var m Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, team, created_at FROM members WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &m.Email, &m.Team, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *sqlMemberStore) CreateMember(ctx context.Context, m *Member) error {
	m.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, email, team, created_at) VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Email, m.Team, m.CreatedAt)
	return err
}

type sqlTeamStore struct {
	db *sql.DB
}

func (s *sqlTeamStore) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM teams ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Membership lists are derived from the denormalized team column.
	for i := range teams {
		emails, err := s.memberEmails(ctx, teams[i].Name)
		if err != nil {
			return nil, err
		}
		teams[i].Members = emails
	}
	return teams, nil
}

func (s *sqlTeamStore) memberEmails(ctx context.Context, team string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email FROM members WHERE team = ? ORDER BY email
	`, team)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func (s *sqlTeamStore) CreateTeam(ctx context.Context, t *Team) error {
	t.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, description, created_at) VALUES (?, ?, ?, ?)
	`, t.ID, t.Name, t.Description, t.CreatedAt)
	return err
}

type sqlActivityStore struct {
	db *sql.DB
}

func (s *sqlActivityStore) ListActivities(ctx context.Context) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, member_name, activity_type, duration_minutes, calories, date, created_at
		FROM activities
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.MemberID, &a.MemberName, &a.ActivityType,
			&a.DurationMinutes, &a.Calories, &a.Date, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *sqlActivityStore) CreateActivity(ctx context.Context, a *Activity) error {
	a.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, member_id, member_name, activity_type, duration_minutes, calories, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.MemberID, a.MemberName, a.ActivityType, a.DurationMinutes, a.Calories, a.Date, a.CreatedAt)
	return err
}

type sqlWorkoutStore struct {
	db *sql.DB
}

func (s *sqlWorkoutStore) ListWorkouts(ctx context.Context) ([]Workout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, difficulty, duration_minutes, calories_estimate, exercises
		FROM workouts
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		var w Workout
		var exercises string
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.Difficulty,
			&w.DurationMinutes, &w.CaloriesEstimate, &exercises); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(exercises), &w.Exercises); err != nil {
			return nil, fmt.Errorf("workout %s has bad exercises payload: %w", w.ID, err)
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

// generation is one published leaderboard. Entries are never mutated after
// publish; readers share the slice.
type generation struct {
	id      int64
	entries []LeaderboardEntry
}

type sqlLeaderboardStore struct {
	db      *sql.DB
	current atomic.Pointer[generation]
}

func newLeaderboardStore(db *sql.DB) (*sqlLeaderboardStore, error) {
	s := &sqlLeaderboardStore{db: db}
	gen, err := s.loadCurrent()
	if err != nil {
		return nil, fmt.Errorf("failed to load current leaderboard generation: %w", err)
	}
	s.current.Store(gen)
	return s, nil
}

func (s *sqlLeaderboardStore) loadCurrent() (*generation, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(generation) FROM leaderboard`).Scan(&id); err != nil {
		return nil, err
	}
	if !id.Valid {
		return &generation{}, nil
	}

	rows, err := s.db.Query(`
		SELECT rank, member_id, member_name, team, total_calories, total_activities
		FROM leaderboard
		WHERE generation = ?
		ORDER BY rank
	`, id.Int64)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gen := &generation{id: id.Int64}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.MemberID, &e.MemberName, &e.Team,
			&e.TotalCalories, &e.TotalActivities); err != nil {
			return nil, err
		}
		gen.entries = append(gen.entries, e)
	}
	return gen, rows.Err()
}

// Publish writes the new generation in a single transaction and only then
// flips the in-process pointer. Readers either see the whole previous
// generation or the whole new one, never a mix; a failed commit leaves the
// previous generation current.
func (s *sqlLeaderboardStore) Publish(ctx context.Context, entries []LeaderboardEntry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	prev := s.current.Load()
	next := prev.id + 1

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO leaderboard (generation, rank, member_id, member_name, team, total_calories, total_activities)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, next, e.Rank, e.MemberID, e.MemberName, e.Team, e.TotalCalories, e.TotalActivities); err != nil {
			return 0, err
		}
	}

	// Superseded generations are only reclaimed once the new one is in the
	// same transaction, so a crash mid-publish cannot lose both.
	if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard WHERE generation < ?`, next); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	published := make([]LeaderboardEntry, len(entries))
	copy(published, entries)
	s.current.Store(&generation{id: next, entries: published})
	return next, nil
}

func (s *sqlLeaderboardStore) CurrentGeneration() []LeaderboardEntry {
	return s.current.Load().entries
}
