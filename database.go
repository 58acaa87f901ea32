package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

func initDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		team TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- member_id is deliberately not a foreign key: the activity log accepts
	-- whatever the writer sends, and referential integrity is checked at
	-- rebuild time so orphans surface as a typed error instead of a silent
	-- insert failure.
	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		member_name TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL CHECK(duration_minutes > 0),
		calories INTEGER NOT NULL CHECK(calories >= 0),
		date TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS workouts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		calories_estimate INTEGER NOT NULL,
		exercises TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS leaderboard (
		generation INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		member_id TEXT NOT NULL,
		member_name TEXT NOT NULL,
		team TEXT NOT NULL,
		total_calories INTEGER NOT NULL,
		total_activities INTEGER NOT NULL,
		PRIMARY KEY (generation, rank)
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('admin')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_activities_member ON activities(member_id);
	CREATE INDEX IF NOT EXISTS idx_activities_date ON activities(date);
	CREATE INDEX IF NOT EXISTS idx_members_team ON members(team);
	`

	_, err := db.Exec(schema)
	return err
}

func seedAdmin(db *sql.DB, email, password string) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.Exec(
		"INSERT INTO users (id, email, password, role) VALUES (?, ?, ?, ?)",
		uuid.NewString(), email, string(hashed), "admin",
	)
	return err
}

// populateDB clears every store and reseeds the superhero fixture data: two
// teams, twelve members, a random spread of activities and the static
// workout catalog. One transaction, so a half-finished populate never
// becomes visible.
func populateDB(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"activities", "members", "teams", "workouts", "leaderboard"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	teams := []Team{
		{Name: "Team Marvel", Description: "Assemble! The mightiest heroes of the Marvel Universe"},
		{Name: "Team DC", Description: "Justice League - Defenders of truth and justice"},
	}
	for _, t := range teams {
		if _, err := tx.Exec(
			"INSERT INTO teams (id, name, description) VALUES (?, ?, ?)",
			uuid.NewString(), t.Name, t.Description,
		); err != nil {
			return fmt.Errorf("failed to insert team %s: %w", t.Name, err)
		}
	}

	heroes := []Member{
		{Name: "Iron Man", Email: "tony.stark@marvel.com", Team: "Team Marvel"},
		{Name: "Captain America", Email: "steve.rogers@marvel.com", Team: "Team Marvel"},
		{Name: "Thor", Email: "thor.odinson@marvel.com", Team: "Team Marvel"},
		{Name: "Black Widow", Email: "natasha.romanoff@marvel.com", Team: "Team Marvel"},
		{Name: "Hulk", Email: "bruce.banner@marvel.com", Team: "Team Marvel"},
		{Name: "Spider-Man", Email: "peter.parker@marvel.com", Team: "Team Marvel"},
		{Name: "Superman", Email: "clark.kent@dc.com", Team: "Team DC"},
		{Name: "Batman", Email: "bruce.wayne@dc.com", Team: "Team DC"},
		{Name: "Wonder Woman", Email: "diana.prince@dc.com", Team: "Team DC"},
		{Name: "The Flash", Email: "barry.allen@dc.com", Team: "Team DC"},
		{Name: "Aquaman", Email: "arthur.curry@dc.com", Team: "Team DC"},
		{Name: "Green Lantern", Email: "hal.jordan@dc.com", Team: "Team DC"},
	}

	activityTypes := []string{"Running", "Cycling", "Swimming", "Weightlifting", "Yoga", "Combat Training"}
	activityCount := 0

	for _, hero := range heroes {
		memberID := uuid.NewString()
		if _, err := tx.Exec(
			"INSERT INTO members (id, name, email, team) VALUES (?, ?, ?, ?)",
			memberID, hero.Name, hero.Email, hero.Team,
		); err != nil {
			return fmt.Errorf("failed to insert member %s: %w", hero.Name, err)
		}

		// 5-10 activities per hero, calories proportional to duration.
		for i := 0; i < 5+rand.Intn(6); i++ {
			duration := 20 + rand.Intn(101)
			calories := duration * (5 + rand.Intn(6))
			date := time.Now().AddDate(0, 0, -rand.Intn(31)).Format(dateLayout)

			if _, err := tx.Exec(
				`INSERT INTO activities (id, member_id, member_name, activity_type, duration_minutes, calories, date)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), memberID, hero.Name, activityTypes[rand.Intn(len(activityTypes))],
				duration, calories, date,
			); err != nil {
				return fmt.Errorf("failed to insert activity for %s: %w", hero.Name, err)
			}
			activityCount++
		}
	}

	if err := seedWorkouts(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("Database populated: %d teams, %d members, %d activities", len(teams), len(heroes), activityCount)
	return nil
}

func seedWorkouts(tx *sql.Tx) error {
	workouts := []Workout{
		{
			Name:             "Super Soldier Training",
			Description:      "Captain America's legendary training routine",
			Difficulty:       "Hard",
			DurationMinutes:  60,
			CaloriesEstimate: 600,
			Exercises: []Exercise{
				{Name: "Push-ups", Reps: 50},
				{Name: "Pull-ups", Reps: 30},
				{Name: "Squats", Reps: 100},
				{Name: "Sprints", Duration: "10 minutes"},
			},
		},
		{
			Name:             "Asgardian Warrior Workout",
			Description:      "Thor's mighty strength training",
			Difficulty:       "Very Hard",
			DurationMinutes:  90,
			CaloriesEstimate: 900,
			Exercises: []Exercise{
				{Name: "Hammer Swings", Reps: 50},
				{Name: "Battle Rope", Duration: "5 minutes"},
				{Name: "Deadlifts", Reps: 20},
				{Name: "Box Jumps", Reps: 30},
			},
		},
		{
			Name:             "Web-Slinger Cardio",
			Description:      "Spider-Man's agility and cardio routine",
			Difficulty:       "Medium",
			DurationMinutes:  45,
			CaloriesEstimate: 450,
			Exercises: []Exercise{
				{Name: "Burpees", Reps: 30},
				{Name: "Mountain Climbers", Reps: 50},
				{Name: "Jump Rope", Duration: "10 minutes"},
				{Name: "Agility Ladder", Duration: "5 minutes"},
			},
		},
		{
			Name:             "Bat-Training",
			Description:      "Batman's tactical combat conditioning",
			Difficulty:       "Hard",
			DurationMinutes:  75,
			CaloriesEstimate: 750,
			Exercises: []Exercise{
				{Name: "Martial Arts Practice", Duration: "20 minutes"},
				{Name: "Rope Climbing", Reps: 10},
				{Name: "Plank Hold", Duration: "3 minutes"},
				{Name: "Shadow Boxing", Duration: "15 minutes"},
			},
		},
		{
			Name:             "Kryptonian Power Session",
			Description:      "Superman's strength and endurance workout",
			Difficulty:       "Very Hard",
			DurationMinutes:  120,
			CaloriesEstimate: 1200,
			Exercises: []Exercise{
				{Name: "Heavy Lifts", Reps: 50},
				{Name: "Flight Training", Duration: "30 minutes"},
				{Name: "Heat Vision Focus", Duration: "10 minutes"},
				{Name: "Super Speed Runs", Duration: "20 minutes"},
			},
		},
		{
			Name:             "Amazonian Yoga Flow",
			Description:      "Wonder Woman's flexibility and balance routine",
			Difficulty:       "Easy",
			DurationMinutes:  30,
			CaloriesEstimate: 200,
			Exercises: []Exercise{
				{Name: "Warrior Pose", Duration: "5 minutes"},
				{Name: "Balance Training", Duration: "10 minutes"},
				{Name: "Meditation", Duration: "10 minutes"},
				{Name: "Stretching", Duration: "5 minutes"},
			},
		},
	}

	for _, w := range workouts {
		exercises, err := json.Marshal(w.Exercises)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO workouts (id, name, description, difficulty, duration_minutes, calories_estimate, exercises)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), w.Name, w.Description, w.Difficulty,
			w.DurationMinutes, w.CaloriesEstimate, string(exercises),
		); err != nil {
			return fmt.Errorf("failed to insert workout %s: %w", w.Name, err)
		}
	}
	return nil
}
