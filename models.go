package main

import (
	"time"
)

type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Team      string    `json:"team"`
	CreatedAt time.Time `json:"created_at"`
}

type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []string  `json:"members"` // member emails, derived from members.team
	CreatedAt   time.Time `json:"created_at"`
}

type Activity struct {
	ID              string    `json:"id"`
	MemberID        string    `json:"member_id"`
	MemberName      string    `json:"member_name"` // snapshot at write time
	ActivityType    string    `json:"activity_type"`
	DurationMinutes int       `json:"duration_minutes"`
	Calories        int       `json:"calories"`
	Date            string    `json:"date"` // YYYY-MM-DD
	CreatedAt       time.Time `json:"created_at"`
}

type Exercise struct {
	Name     string `json:"name"`
	Reps     int    `json:"reps,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type Workout struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Difficulty       string     `json:"difficulty"`
	DurationMinutes  int        `json:"duration_minutes"`
	CaloriesEstimate int        `json:"calories_estimate"`
	Exercises        []Exercise `json:"exercises"`
}

// AggregateTotal is the per-member fold of the activity log. It only ever
// exists in memory, between aggregation and ranking.
type AggregateTotal struct {
	MemberID        string
	MemberName      string
	Team            string
	TotalCalories   int
	TotalActivities int
}

type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	MemberID        string `json:"member_id"`
	MemberName      string `json:"member_name"`
	Team            string `json:"team"`
	TotalCalories   int    `json:"total_calories"`
	TotalActivities int    `json:"total_activities"`
}

type RebuildResult struct {
	EntryCount int           `json:"entry_count"`
	Generation int64         `json:"generation"`
	Elapsed    time.Duration `json:"elapsed"`
}

type Stats struct {
	LeadingMember   string `json:"leading_member"`
	TotalCalories   int    `json:"total_calories"`
	TotalActivities int    `json:"total_activities"`
	Participants    int    `json:"participants"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      string    `json:"role"` // "admin"
	CreatedAt time.Time `json:"created_at"`
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
