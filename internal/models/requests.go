package models

// CreateRoomRequest opens a new room; Rules may be omitted for the defaults
type CreateRoomRequest struct {
	HostName string     `json:"host_name"`
	Rules    *GameRules `json:"rules,omitempty"`
}

type JoinRoomRequest struct {
	PlayerName string `json:"player_name"`
}

type UpdateRulesRequest struct {
	HostToken string    `json:"host_token"`
	Rules     GameRules `json:"rules"`
}

// HostRequest authorises host-only actions such as starting a round
type HostRequest struct {
	HostToken string `json:"host_token"`
}

// AbortRequest ends the round, or the whole game when Scope is "game"
type AbortRequest struct {
	HostToken string     `json:"host_token"`
	Scope     AbortScope `json:"scope,omitempty"`
}

// PlayerRequest identifies the acting player
type PlayerRequest struct {
	PlayerID string `json:"player_id"`
}

// GuessRequest carries exactly one of AccusedPlayerID or LocationID
type GuessRequest struct {
	PlayerID string `json:"player_id"`
	Guess
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string `json:"message"`
}
