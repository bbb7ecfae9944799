package game

import (
	"crypto/subtle"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/aaronzipp/sus-server/internal/broadcast"
	"github.com/aaronzipp/sus-server/internal/catalog"
	"github.com/aaronzipp/sus-server/internal/models"
	"github.com/aaronzipp/sus-server/internal/render"
	"github.com/google/uuid"
)

// Deps are the collaborators every room shares
type Deps struct {
	Catalog     *catalog.Catalog
	Rand        catalog.Rand
	Now         func() time.Time
	EventBuffer int
}

// Room is one game session. It is not safe for concurrent use; the registry
// serialises every call.
type Room struct {
	code      string
	hostToken string
	leaderID  string
	rules     models.GameRules
	players   map[string]*models.Player

	createdAt    time.Time
	lastActivity time.Time

	roundCounter int
	phase        models.Phase
	round        *Round
	lastRound    *models.RoundSummary
	history      []models.RoundSummary

	pool      []models.Location
	used      map[string]bool
	poolStale bool // rebuild the pool once the live round is over

	bus  *broadcast.Bus
	deps Deps
}

// NewRoom creates a room in the lobby phase with the host as its only player
func NewRoom(code, hostName string, rules *models.GameRules, deps Deps) (*Room, models.CreatedRoom, error) {
	name, err := cleanName(hostName, "host name")
	if err != nil {
		return nil, models.CreatedRoom{}, err
	}

	in := models.DefaultRules()
	if rules != nil {
		in = *rules
	}
	if deps.EventBuffer <= 0 {
		deps.EventBuffer = DefaultEventBuffer
	}

	now := deps.Now()
	host := &models.Player{ID: uuid.New().String(), Name: name, JoinedAt: now}
	r := &Room{
		code:         code,
		hostToken:    uuid.New().String(),
		leaderID:     host.ID,
		rules:        NormalizeRules(in, deps.Catalog),
		players:      map[string]*models.Player{host.ID: host},
		createdAt:    now,
		lastActivity: now,
		phase:        models.PhaseLobby,
		used:         make(map[string]bool),
		bus:          broadcast.NewBus(deps.EventBuffer),
		deps:         deps,
	}

	return r, models.CreatedRoom{
		Code:      code,
		HostToken: r.hostToken,
		LeaderID:  host.ID,
		PlayerID:  host.ID,
		Rules:     r.rules.Clone(),
	}, nil
}

// Code is the room's public code
func (r *Room) Code() string { return r.code }

// Phase is the room's lifecycle state
func (r *Room) Phase() models.Phase { return r.phase }

// LastActivity is when the room last changed
func (r *Room) LastActivity() time.Time { return r.lastActivity }

// Bus is the room's event channel
func (r *Room) Bus() *broadcast.Bus { return r.bus }

// Close shuts the event channel down; subscribers see broadcast.ErrClosed
func (r *Room) Close() { r.bus.Close() }

// Authorize checks a host token
func (r *Room) Authorize(token string) error {
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(r.hostToken)) != 1 {
		return Forbidden("host token invalid")
	}
	return nil
}

func (r *Room) touch() {
	r.lastActivity = r.deps.Now()
}

// Join adds a player while the room is still in the lobby
func (r *Room) Join(playerName string) (models.JoinedRoom, error) {
	name, err := cleanName(playerName, "player name")
	if err != nil {
		return models.JoinedRoom{}, err
	}
	if r.phase != models.PhaseLobby {
		return models.JoinedRoom{}, Validation("game already started")
	}
	if len(r.players) >= r.rules.MaxPlayers {
		return models.JoinedRoom{}, Validation("game is full")
	}

	p := &models.Player{ID: uuid.New().String(), Name: name, JoinedAt: r.deps.Now()}
	r.players[p.ID] = p
	r.touch()
	r.publishLobby()
	return models.JoinedRoom{Code: r.code, PlayerID: p.ID}, nil
}

// UpdateRules replaces the rules after normalising them. A new pool size
// discards the current location pool, once any live round is over.
func (r *Room) UpdateRules(token string, rules models.GameRules) (models.GameRules, error) {
	if err := r.Authorize(token); err != nil {
		return models.GameRules{}, err
	}
	next := NormalizeRules(rules, r.deps.Catalog)
	if next.LocationPoolSize != r.rules.LocationPoolSize {
		if r.phase == models.PhaseInRound {
			r.poolStale = true
		} else {
			r.resetPool()
		}
	}
	r.rules = next
	r.touch()
	r.publishLobby()
	return r.rules.Clone(), nil
}

// BeginRound starts the next round from the lobby or between rounds
func (r *Room) BeginRound(token string) (models.RoundView, error) {
	if err := r.Authorize(token); err != nil {
		return models.RoundView{}, err
	}
	if r.phase == models.PhaseInRound {
		return models.RoundView{}, Validation("a round is already in progress")
	}
	if len(r.players) < MinPlayers {
		return models.RoundView{}, Validation("at least %d players are needed to start a round", MinPlayers)
	}

	loc, recycle, err := r.pickLocation()
	if err != nil {
		return models.RoundView{}, err
	}
	round, err := NewRound(r.roundCounter+1, loc, r.roster(), r.rules, r.deps.Catalog, r.deps.Rand, r.deps.Now)
	if err != nil {
		return models.RoundView{}, err
	}

	r.roundCounter++
	r.round = round
	r.phase = models.PhaseInRound
	r.lastRound = nil
	if recycle {
		clear(r.used)
	}
	r.used[loc.ID] = true
	r.touch()

	view := round.View()
	r.publishLobby()
	r.bus.Publish(broadcast.RoundUpdate{Round: &view})
	return view, nil
}

func (r *Room) resetPool() {
	r.pool = nil
	r.poolStale = false
	clear(r.used)
}

// pickLocation builds the pool if needed and returns the first unused
// location in it. recycle reports that every pool entry had been used.
func (r *Room) pickLocation() (models.Location, bool, error) {
	if r.poolStale {
		r.resetPool()
	}
	if len(r.pool) == 0 {
		r.pool = r.deps.Catalog.RandomLocations(r.deps.Rand, r.rules.LocationPoolSize, len(r.players))
		clear(r.used)
		if len(r.pool) == 0 {
			return models.Location{}, false, Validation("no location can seat %d players", len(r.players))
		}
	}
	for _, loc := range r.pool {
		if !r.used[loc.ID] {
			return loc, false, nil
		}
	}
	return r.pool[0], true, nil
}

// roster returns the players in join order
func (r *Room) roster() []*models.Player {
	list := make([]*models.Player, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].JoinedAt.Before(list[j].JoinedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func (r *Room) activeRound(playerID string) (*Round, error) {
	if _, ok := r.players[playerID]; !ok {
		return nil, NotFound("player %s not found", playerID)
	}
	if r.round == nil {
		return nil, Validation("no active round")
	}
	return r.round, nil
}

// NextQuestion lets the current turn holder move the round on
func (r *Room) NextQuestion(playerID string) (models.NextQuestion, error) {
	round, err := r.activeRound(playerID)
	if err != nil {
		return models.NextQuestion{}, err
	}
	next, err := round.NextQuestion(playerID)
	if err != nil {
		return models.NextQuestion{}, err
	}
	r.touch()

	view := round.View()
	r.bus.Publish(broadcast.RoundUpdate{Round: &view})
	return next, nil
}

// SubmitGuess resolves the round, credits the winners and moves the room
// between rounds
func (r *Room) SubmitGuess(playerID string, guess models.Guess) (models.Resolution, error) {
	round, err := r.activeRound(playerID)
	if err != nil {
		return models.Resolution{}, err
	}
	res, err := round.Resolve(playerID, guess)
	if err != nil {
		return models.Resolution{}, err
	}

	r.awardWins(round, res.Winner)
	summary := round.Summary()
	r.history = append(r.history, summary)
	r.lastRound = &summary
	r.round = nil
	r.phase = models.PhaseAwaitingNextRound
	r.touch()

	r.bus.Publish(broadcast.RoundUpdate{Round: nil})
	r.publishLobby()
	return res, nil
}

func (r *Room) awardWins(round *Round, winner models.Winner) {
	for id, p := range r.players {
		role, ok := round.Role(id)
		if !ok {
			continue
		}
		switch winner {
		case models.WinnerCrew:
			if role.Role == models.RoleCivilian {
				p.CrewWins++
			}
		case models.WinnerImpostor:
			if role.Role == models.RoleImpostor {
				p.ImpostorWins++
			}
		}
	}
}

// Abort drops the active round, or with AbortGame resets the room to a fresh lobby
func (r *Room) Abort(token string, scope models.AbortScope) (models.LobbyView, error) {
	if err := r.Authorize(token); err != nil {
		return models.LobbyView{}, err
	}

	switch scope {
	case models.AbortRound, "":
		if r.phase != models.PhaseInRound || r.round == nil {
			return models.LobbyView{}, Validation("no active round to abort")
		}
		delete(r.used, r.round.Location().ID)
		r.round = nil
		r.phase = models.PhaseAwaitingNextRound
	case models.AbortGame:
		if r.round != nil {
			delete(r.used, r.round.Location().ID)
		}
		r.round = nil
		r.history = nil
		r.lastRound = nil
		r.roundCounter = 0
		r.resetPool()
		for _, p := range r.players {
			p.CrewWins = 0
			p.ImpostorWins = 0
		}
		r.phase = models.PhaseLobby
	default:
		return models.LobbyView{}, Validation("unknown abort scope %q", scope)
	}
	r.touch()

	lobby := r.LobbyView()
	r.bus.Publish(broadcast.LobbyUpdate{Lobby: lobby})
	r.bus.Publish(broadcast.RoundUpdate{Round: nil})
	return lobby, nil
}

func (r *Room) publishLobby() {
	r.bus.Publish(broadcast.LobbyUpdate{Lobby: r.LobbyView()})
}

// LobbyView is the room-wide public projection
func (r *Room) LobbyView() models.LobbyView {
	roster := r.roster()
	players := make([]models.PlayerSummary, 0, len(roster))
	for _, p := range roster {
		players = append(players, p.Summary())
	}

	view := models.LobbyView{
		Code:         r.code,
		LeaderID:     r.leaderID,
		Rules:        r.rules.Clone(),
		Phase:        r.phase,
		Players:      players,
		PlayerCount:  len(players),
		RoundNumber:  r.roundCounter,
		RoundsPlayed: len(r.history),
		Scoreboard:   render.Scoreboard(roster),
		CreatedAtMs:  r.createdAt.UnixMilli(),
	}
	if r.lastRound != nil {
		last := *r.lastRound
		view.LastRound = &last
	}
	return view
}

// RoundView is the public projection of the active round
func (r *Room) RoundView() (models.RoundView, error) {
	if r.round == nil {
		return models.RoundView{}, Validation("no active round")
	}
	return r.round.View(), nil
}

// Assignment reveals one player's secret role
func (r *Room) Assignment(playerID string) (models.PlayerAssignment, error) {
	round, err := r.activeRound(playerID)
	if err != nil {
		return models.PlayerAssignment{}, err
	}
	return round.Assignment(playerID)
}

// LocationOptions lists the pool the impostor guesses from
func (r *Room) LocationOptions() []models.LocationOption {
	opts := make([]models.LocationOption, 0, len(r.pool))
	for _, loc := range r.pool {
		opts = append(opts, models.LocationOption{ID: loc.ID, Name: loc.Name})
	}
	return opts
}

// History returns every finished round, oldest first
func (r *Room) History() []models.RoundSummary {
	return slices.Clone(r.history)
}

// LastRound is the most recent finished round since the last round start
func (r *Room) LastRound() (models.RoundSummary, bool) {
	if r.lastRound == nil {
		return models.RoundSummary{}, false
	}
	return *r.lastRound, true
}

// Snapshot is the complete current state for a subscriber
func (r *Room) Snapshot() broadcast.Snapshot {
	snap := broadcast.Snapshot{Lobby: r.LobbyView()}
	if r.round != nil {
		view := r.round.View()
		snap.Round = &view
	}
	return snap
}
