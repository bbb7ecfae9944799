package models

// Phase represents the room's lifecycle state
type Phase string

const (
	PhaseLobby             Phase = "lobby"
	PhaseInRound           Phase = "in_round"
	PhaseAwaitingNextRound Phase = "awaiting_next_round"
)

// Expirable reports whether an idle room in this phase may be removed by the janitor
func (p Phase) Expirable() bool {
	return p == PhaseLobby || p == PhaseAwaitingNextRound
}

// AbortScope selects how much state an abort discards
type AbortScope string

const (
	AbortRound AbortScope = "round"
	AbortGame  AbortScope = "game"
)
