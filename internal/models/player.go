package models

import "time"

// Player represents a member of a room's roster
type Player struct {
	ID           string
	Name         string
	CrewWins     int
	ImpostorWins int
	JoinedAt     time.Time
}

// TotalWins returns the sum of both win counters
func (p *Player) TotalWins() int {
	return p.CrewWins + p.ImpostorWins
}

// PlayerSummary is the public projection of a Player
type PlayerSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CrewWins     int    `json:"crew_wins"`
	ImpostorWins int    `json:"impostor_wins"`
}

// Summary projects a player into its public form
func (p *Player) Summary() PlayerSummary {
	return PlayerSummary{
		ID:           p.ID,
		Name:         p.Name,
		CrewWins:     p.CrewWins,
		ImpostorWins: p.ImpostorWins,
	}
}
