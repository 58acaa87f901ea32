package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"members":     "/api/members",
		"teams":       "/api/teams",
		"activities":  "/api/activities",
		"leaderboard": "/api/leaderboard",
		"workouts":    "/api/workouts",
	})
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	// One snapshot for both the listing and the stats, so a rebuild
	// committing mid-request cannot mix two generations in one response.
	snapshot := s.leaderboard.CurrentGeneration()
	entries := snapshot

	// Team filtering is a read-time projection; ranks stay global.
	if team := r.URL.Query().Get("team"); team != "" {
		filtered := make([]LeaderboardEntry, 0, len(entries))
		for _, e := range entries {
			if e.Team == team {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	writeJSON(w, map[string]interface{}{
		"leaderboard": entries,
		"stats":       leaderboardStats(snapshot),
	})
}

func leaderboardStats(entries []LeaderboardEntry) Stats {
	stats := Stats{Participants: len(entries)}
	for _, e := range entries {
		stats.TotalCalories += e.TotalCalories
		stats.TotalActivities += e.TotalActivities
	}
	if len(entries) > 0 {
		stats.LeadingMember = entries[0].MemberName
	}
	return stats
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if s.getUserFromSession(r) == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := s.rebuilder.Rebuild(r.Context())
	if err != nil {
		var integrity *DataIntegrityError
		var unavailable *StoreUnavailableError
		var conflict *CommitConflictError
		switch {
		case errors.Is(err, ErrRebuildInProgress):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.As(err, &integrity):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.As(err, &unavailable):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case errors.As(err, &conflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Rebuild failed", http.StatusInternalServerError)
		}
		log.Printf("Leaderboard rebuild failed: %v", err)
		return
	}

	writeJSON(w, result)
}

func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	if s.getUserFromSession(r) == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := populateDB(s.db); err != nil {
		http.Error(w, "Failed to populate database", http.StatusInternalServerError)
		log.Printf("Error populating database: %v", err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Database populated with fixture data. Run a rebuild to refresh the leaderboard.",
	})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.members.ListMembers(r.Context())
	if err != nil {
		http.Error(w, "Failed to list members", http.StatusInternalServerError)
		log.Printf("Error listing members: %v", err)
		return
	}
	if members == nil {
		members = []Member{}
	}
	writeJSON(w, members)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := s.members.GetMember(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			http.Error(w, "Member not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
			log.Printf("Error getting member: %v", err)
		}
		return
	}
	writeJSON(w, member)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Team  string `json:"team"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Email == "" || req.Team == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	member := &Member{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Email: req.Email,
		Team:  req.Team,
	}
	if err := s.members.CreateMember(r.Context(), member); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create member", http.StatusInternalServerError)
		log.Printf("Error creating member: %v", err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, member)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teams.ListTeams(r.Context())
	if err != nil {
		http.Error(w, "Failed to list teams", http.StatusInternalServerError)
		log.Printf("Error listing teams: %v", err)
		return
	}
	if teams == nil {
		teams = []Team{}
	}
	writeJSON(w, teams)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	team := &Team{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Members:     []string{},
	}
	if err := s.teams.CreateTeam(r.Context(), team); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "Team already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create team", http.StatusInternalServerError)
		log.Printf("Error creating team: %v", err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, team)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.activities.ListActivities(r.Context())
	if err != nil {
		http.Error(w, "Failed to list activities", http.StatusInternalServerError)
		log.Printf("Error listing activities: %v", err)
		return
	}
	if activities == nil {
		activities = []Activity{}
	}
	writeJSON(w, activities)
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID        string `json:"member_id"`
		ActivityType    string `json:"activity_type"`
		DurationMinutes int    `json:"duration_minutes"`
		Calories        int    `json:"calories"`
		Date            string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.MemberID == "" || req.ActivityType == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		http.Error(w, "Duration must be positive", http.StatusBadRequest)
		return
	}
	if req.Calories < 0 {
		http.Error(w, "Calories must not be negative", http.StatusBadRequest)
		return
	}
	if _, err := parseDate(req.Date); err != nil {
		http.Error(w, "Date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	member, err := s.members.GetMember(r.Context(), req.MemberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			http.Error(w, "Unknown member", http.StatusUnprocessableEntity)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
			log.Printf("Error looking up member: %v", err)
		}
		return
	}

	activity := &Activity{
		ID:              uuid.NewString(),
		MemberID:        member.ID,
		MemberName:      member.Name,
		ActivityType:    req.ActivityType,
		DurationMinutes: req.DurationMinutes,
		Calories:        req.Calories,
		Date:            req.Date,
	}
	if err := s.activities.CreateActivity(r.Context(), activity); err != nil {
		http.Error(w, "Failed to record activity", http.StatusInternalServerError)
		log.Printf("Error recording activity: %v", err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, activity)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := s.workouts.ListWorkouts(r.Context())
	if err != nil {
		http.Error(w, "Failed to list workouts", http.StatusInternalServerError)
		log.Printf("Error listing workouts: %v", err)
		return
	}
	if workouts == nil {
		workouts = []Workout{}
	}
	writeJSON(w, workouts)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var user User
	var hashedPassword string
	err := s.db.QueryRow(`
		SELECT id, email, password, role FROM users WHERE email = ?
	`, credentials.Email).Scan(&user.ID, &user.Email, &hashedPassword, &user.Role)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(credentials.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    user.ID,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   86400,
	})

	writeJSON(w, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	user := s.getUserFromSession(r)
	if user == nil {
		writeJSON(w, map[string]interface{}{"authenticated": false})
		return
	}
	writeJSON(w, map[string]interface{}{
		"authenticated": true,
		"user":          user,
	})
}

// Helper functions

func (s *Server) getUserFromSession(r *http.Request) *User {
	cookie, err := r.Cookie("session")
	if err != nil || cookie.Value == "" {
		return nil
	}

	var user User
	err = s.db.QueryRow(`
		SELECT id, email, role FROM users WHERE id = ?
	`, cookie.Value).Scan(&user.ID, &user.Email, &user.Role)
	if err != nil {
		return nil
	}
	return &user
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
