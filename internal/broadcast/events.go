package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aaronzipp/sus-server/internal/models"
)

// Wire type tags
const (
	TypeSnapshot = "snapshot"
	TypeLobby    = "lobby"
	TypeRound    = "round"
	TypePong     = "pong"
)

// Event is the closed set of messages delivered to room subscribers. Only the
// types in this file implement it.
type Event interface {
	event()
}

// Snapshot is the complete state of a room; Round is nil outside a round
type Snapshot struct {
	Lobby models.LobbyView
	Round *models.RoundView
}

// LobbyUpdate carries a fresh lobby view
type LobbyUpdate struct {
	Lobby models.LobbyView
}

// RoundUpdate carries a fresh round view; nil means no active round
type RoundUpdate struct {
	Round *models.RoundView
}

// Pong answers a client liveness ping
type Pong struct {
	ServerTime time.Time
}

func (Snapshot) event()    {}
func (LobbyUpdate) event() {}
func (RoundUpdate) event() {}
func (Pong) event()        {}

// Encode renders an event as the JSON frame sent to sockets
func Encode(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case Snapshot:
		return json.Marshal(struct {
			Type  string            `json:"type"`
			Lobby models.LobbyView  `json:"lobby"`
			Round *models.RoundView `json:"round"`
		}{TypeSnapshot, e.Lobby, e.Round})
	case LobbyUpdate:
		return json.Marshal(struct {
			Type  string           `json:"type"`
			Lobby models.LobbyView `json:"lobby"`
		}{TypeLobby, e.Lobby})
	case RoundUpdate:
		return json.Marshal(struct {
			Type  string            `json:"type"`
			Round *models.RoundView `json:"round"`
		}{TypeRound, e.Round})
	case Pong:
		return json.Marshal(struct {
			Type         string `json:"type"`
			ServerTimeMs int64  `json:"server_time_ms"`
		}{TypePong, e.ServerTime.UnixMilli()})
	default:
		return nil, fmt.Errorf("broadcast: unknown event %T", ev)
	}
}
