package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role distinguishes the impostor from everyone else
type Role string

const (
	RoleImpostor Role = "impostor"
	RoleCivilian Role = "civilian"
)

// RoleAssignment is a player's secret role for one round
type RoleAssignment struct {
	Role     Role
	RoleName string // empty for the impostor
}

// Winner is the side that won a round
type Winner string

const (
	WinnerCrew     Winner = "crew"
	WinnerImpostor Winner = "impostor"
)

// Outcome is the closed set of ways a round can end. Only the types in this
// file implement it.
type Outcome interface {
	outcome()
}

// ImpostorIdentified: a civilian accused the real impostor
type ImpostorIdentified struct {
	AccuserID    string `json:"accuser_id"`
	AccuserName  string `json:"accuser_name"`
	ImpostorID   string `json:"impostor_id"`
	ImpostorName string `json:"impostor_name"`
}

// ImpostorMisdirected: a civilian accused an innocent player
type ImpostorMisdirected struct {
	AccuserID    string `json:"accuser_id"`
	AccuserName  string `json:"accuser_name"`
	AccusedID    string `json:"accused_id"`
	AccusedName  string `json:"accused_name"`
	ImpostorID   string `json:"impostor_id"`
	ImpostorName string `json:"impostor_name"`
}

// LocationIdentified: the impostor named the secret location
type LocationIdentified struct {
	ImpostorID   string `json:"impostor_id"`
	ImpostorName string `json:"impostor_name"`
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
}

// LocationMissed: the impostor named the wrong location
type LocationMissed struct {
	ImpostorID          string `json:"impostor_id"`
	ImpostorName        string `json:"impostor_name"`
	GuessedLocationID   string `json:"guessed_location_id"`
	GuessedLocationName string `json:"guessed_location_name"`
	ActualLocationID    string `json:"actual_location_id"`
	ActualLocationName  string `json:"actual_location_name"`
}

func (ImpostorIdentified) outcome()  {}
func (ImpostorMisdirected) outcome() {}
func (LocationIdentified) outcome()  {}
func (LocationMissed) outcome()      {}

// OutcomeKind returns the wire tag for an outcome
func OutcomeKind(o Outcome) string {
	switch o.(type) {
	case ImpostorIdentified:
		return "impostor_identified"
	case ImpostorMisdirected:
		return "impostor_misdirected"
	case LocationIdentified:
		return "location_identified"
	case LocationMissed:
		return "location_missed"
	default:
		panic(fmt.Sprintf("models: unknown outcome %T", o))
	}
}

// WinnerOf returns the side an outcome awards the round to
func WinnerOf(o Outcome) Winner {
	switch o.(type) {
	case ImpostorIdentified, LocationMissed:
		return WinnerCrew
	case ImpostorMisdirected, LocationIdentified:
		return WinnerImpostor
	default:
		panic(fmt.Sprintf("models: unknown outcome %T", o))
	}
}

// Resolution is how a round ended
type Resolution struct {
	Winner     Winner
	Outcome    Outcome
	ResolvedAt time.Time
}

// NewResolution derives the winner from the outcome
func NewResolution(o Outcome, at time.Time) Resolution {
	return Resolution{Winner: WinnerOf(o), Outcome: o, ResolvedAt: at}
}

func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Winner       Winner  `json:"winner"`
		Kind         string  `json:"kind"`
		Outcome      Outcome `json:"outcome"`
		ResolvedAtMs int64   `json:"resolved_at_ms"`
	}{
		Winner:       r.Winner,
		Kind:         OutcomeKind(r.Outcome),
		Outcome:      r.Outcome,
		ResolvedAtMs: r.ResolvedAt.UnixMilli(),
	})
}

// Guess is a player's attempt to end the round. Exactly one field is set.
type Guess struct {
	AccusedPlayerID string `json:"accused_player_id,omitempty"`
	LocationID      string `json:"location_id,omitempty"`
}

// RoundView is the public projection of the active round
type RoundView struct {
	RoundNumber         int             `json:"round_number"`
	TurnOrder           []string        `json:"turn_order"`
	CurrentTurnPlayerID string          `json:"current_turn_player_id"`
	CurrentQuestion     *Question       `json:"current_question"`
	AskedQuestions      []AskedQuestion `json:"asked_questions"`
	RoundTimeSeconds    int             `json:"round_time_seconds"`
	StartedAtMs         int64           `json:"started_at_ms"`
	EndsAtMs            int64           `json:"ends_at_ms"`
	Resolution          *Resolution     `json:"resolution"`
}

// RoundSummary is the immutable record of a finished round
type RoundSummary struct {
	RoundNumber    int        `json:"round_number"`
	LocationID     string     `json:"location_id"`
	LocationName   string     `json:"location_name"`
	ImpostorID     string     `json:"impostor_id"`
	ImpostorName   string     `json:"impostor_name"`
	QuestionsAsked int        `json:"questions_asked"`
	Resolution     Resolution `json:"resolution"`
	StartedAtMs    int64      `json:"started_at_ms"`
	EndedAtMs      int64      `json:"ended_at_ms"`
}

// PlayerAssignment is what one player is allowed to know about the round
type PlayerAssignment struct {
	PlayerID     string `json:"player_id"`
	RoundNumber  int    `json:"round_number"`
	Role         Role   `json:"role"`
	LocationID   string `json:"location_id,omitempty"`
	LocationName string `json:"location_name,omitempty"`
	RoleName     string `json:"role_name,omitempty"`
}

// NextQuestion is the result of advancing the turn
type NextQuestion struct {
	Question         Question `json:"question"`
	NextTurnPlayerID string   `json:"next_turn_player_id"`
	AskedCount       int      `json:"asked_count"`
}
