package models

// GameRules are the host-tunable settings of a room
type GameRules struct {
	MaxPlayers             int      `json:"max_players"`
	RoundTimeSeconds       int      `json:"round_time_seconds"`
	AllowRepeatedQuestions bool     `json:"allow_repeated_questions"`
	LocationPoolSize       int      `json:"location_pool_size"`
	QuestionCategories     []string `json:"question_categories"`
}

// DefaultRules returns the rules used when a room is created without any
func DefaultRules() GameRules {
	return GameRules{
		MaxPlayers:             12,
		RoundTimeSeconds:       120,
		AllowRepeatedQuestions: false,
		LocationPoolSize:       12,
	}
}

// Clone returns a copy that shares no slices with r
func (r GameRules) Clone() GameRules {
	r.QuestionCategories = append([]string(nil), r.QuestionCategories...)
	return r
}

// ScoreEntry is one row of the lobby scoreboard
type ScoreEntry struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	CrewWins     int    `json:"crew_wins"`
	ImpostorWins int    `json:"impostor_wins"`
	TotalWins    int    `json:"total_wins"`
}

// LobbyView is the public, room-wide projection of a room
type LobbyView struct {
	Code         string          `json:"code"`
	LeaderID     string          `json:"leader_id"`
	Rules        GameRules       `json:"rules"`
	Phase        Phase           `json:"phase"`
	Players      []PlayerSummary `json:"players"`
	PlayerCount  int             `json:"player_count"`
	RoundNumber  int             `json:"round_number"`
	RoundsPlayed int             `json:"rounds_played"`
	LastRound    *RoundSummary   `json:"last_round"`
	Scoreboard   []ScoreEntry    `json:"scoreboard"`
	CreatedAtMs  int64           `json:"created_at_ms"`
}

// CreatedRoom is returned to the host once, on room creation
type CreatedRoom struct {
	Code      string    `json:"code"`
	HostToken string    `json:"host_token"`
	LeaderID  string    `json:"leader_id"`
	PlayerID  string    `json:"player_id"`
	Rules     GameRules `json:"rules"`
}

// JoinedRoom is returned to a player joining a room
type JoinedRoom struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
}
