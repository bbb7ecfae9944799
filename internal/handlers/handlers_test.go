package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aaronzipp/sus-server/internal/catalog"
	"github.com/aaronzipp/sus-server/internal/game"
	"github.com/aaronzipp/sus-server/internal/models"
	"github.com/aaronzipp/sus-server/internal/store"
)

type recordingFeed struct {
	mu     sync.Mutex
	rounds []models.RoundSummary
}

func (f *recordingFeed) RoundResolved(code string, summary models.RoundSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds = append(f.rounds, summary)
}

func (f *recordingFeed) RoomExpired(string, time.Time) {}
func (f *recordingFeed) Close()                        {}

// lobbyBody decodes the parts of a lobby view the tests look at
type lobbyBody struct {
	Code         string                 `json:"code"`
	LeaderID     string                 `json:"leader_id"`
	Phase        models.Phase           `json:"phase"`
	Players      []models.PlayerSummary `json:"players"`
	PlayerCount  int                    `json:"player_count"`
	RoundNumber  int                    `json:"round_number"`
	RoundsPlayed int                    `json:"rounds_played"`
	LastRound    *struct {
		ImpostorID string `json:"impostor_id"`
		LocationID string `json:"location_id"`
	} `json:"last_round"`
}

type resolutionBody struct {
	Winner models.Winner `json:"winner"`
	Kind   string        `json:"kind"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	ctx     *Context
	feed    *recordingFeed
}

func newTestServer(t *testing.T, eventBuffer int) *testServer {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}
	feed := &recordingFeed{}
	ctx := &Context{
		Registry: store.NewRegistry(game.Deps{
			Catalog:     cat,
			Rand:        rand.New(rand.NewPCG(42, 7)),
			Now:         time.Now,
			EventBuffer: eventBuffer,
		}),
		Catalog: cat,
		Feed:    feed,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return &testServer{t: t, handler: ctx.Router(), ctx: ctx, feed: feed}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// call performs a request, checks the status and decodes the body into out
func (s *testServer) call(method, path string, body any, status int, out any) {
	s.t.Helper()
	rec := s.do(method, path, body)
	if rec.Code != status {
		s.t.Fatalf("%s %s: status %d, want %d: %s", method, path, rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: decoding %s: %v", method, path, rec.Body.String(), err)
		}
	}
}

type seatedRoom struct {
	created models.CreatedRoom
	players map[string]string
}

func (s *testServer) seatRoom(names ...string) seatedRoom {
	s.t.Helper()
	var created models.CreatedRoom
	s.call(http.MethodPost, "/api/rooms", models.CreateRoomRequest{HostName: "Alice"}, http.StatusCreated, &created)

	room := seatedRoom{created: created, players: map[string]string{"Alice": created.PlayerID}}
	for _, name := range names {
		var joined models.JoinedRoom
		s.call(http.MethodPost, "/api/rooms/"+created.Code+"/join", models.JoinRoomRequest{PlayerName: name}, http.StatusOK, &joined)
		room.players[name] = joined.PlayerID
	}
	return room
}

func (s *testServer) assignments(code string, room seatedRoom) map[string]models.PlayerAssignment {
	s.t.Helper()
	out := make(map[string]models.PlayerAssignment)
	for _, id := range room.players {
		var a models.PlayerAssignment
		s.call(http.MethodGet, "/api/rooms/"+code+"/players/"+id+"/assignment", nil, http.StatusOK, &a)
		out[id] = a
	}
	return out
}

func TestHealthAndCategories(t *testing.T) {
	s := newTestServer(t, 32)

	rec := s.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	var categories []string
	s.call(http.MethodGet, "/api/categories", nil, http.StatusOK, &categories)
	if len(categories) == 0 || len(categories) != len(s.ctx.Catalog.Categories()) {
		t.Errorf("categories = %v", categories)
	}

	rec = s.do(http.MethodOptions, "/api/rooms", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d, headers %v", rec.Code, rec.Header())
	}
}

func TestCreateRoom(t *testing.T) {
	s := newTestServer(t, 32)

	var created models.CreatedRoom
	s.call(http.MethodPost, "/api/rooms", models.CreateRoomRequest{
		HostName: "Alice",
		Rules:    &models.GameRules{MaxPlayers: 1, RoundTimeSeconds: 9999},
	}, http.StatusCreated, &created)
	if created.Rules.MaxPlayers != game.MinPlayers || created.Rules.RoundTimeSeconds != game.MaxRoundSeconds {
		t.Errorf("rules not normalized: %+v", created.Rules)
	}

	var lobby lobbyBody
	s.call(http.MethodGet, "/api/rooms/"+strings.ToLower(created.Code), nil, http.StatusOK, &lobby)
	if lobby.PlayerCount != 1 || lobby.LeaderID != created.PlayerID || lobby.Phase != models.PhaseLobby {
		t.Errorf("unexpected lobby %+v", lobby)
	}

	var failure models.ErrorResponse
	s.call(http.MethodPost, "/api/rooms", models.CreateRoomRequest{HostName: "  "}, http.StatusBadRequest, &failure)
	if failure.Message == "" {
		t.Error("errors should carry a message")
	}
}

func TestEndToEndRounds(t *testing.T) {
	s := newTestServer(t, 32)
	room := s.seatRoom("Bob", "Cara")
	code := room.created.Code
	host := models.HostRequest{HostToken: room.created.HostToken}

	// start
	var round models.RoundView
	s.call(http.MethodPost, "/api/rooms/"+code+"/start", host, http.StatusOK, &round)
	if len(round.TurnOrder) != 3 || round.RoundNumber != 1 {
		t.Fatalf("unexpected round %+v", round)
	}
	s.call(http.MethodPost, "/api/rooms/"+code+"/join", models.JoinRoomRequest{PlayerName: "Dan"}, http.StatusBadRequest, nil)

	// draw a question
	var next models.NextQuestion
	s.call(http.MethodPost, "/api/rooms/"+code+"/round/question", models.PlayerRequest{PlayerID: round.CurrentTurnPlayerID}, http.StatusOK, &next)
	var after models.RoundView
	s.call(http.MethodGet, "/api/rooms/"+code+"/round", nil, http.StatusOK, &after)
	if after.CurrentTurnPlayerID != next.NextTurnPlayerID || len(after.AskedQuestions) != next.AskedCount {
		t.Errorf("round view %+v does not match draw %+v", after, next)
	}
	s.call(http.MethodPost, "/api/rooms/"+code+"/round/question", models.PlayerRequest{PlayerID: round.CurrentTurnPlayerID}, http.StatusForbidden, nil)

	// the impostor guesses a wrong location
	assignments := s.assignments(code, room)
	var impostor, actual string
	for id, a := range assignments {
		if a.Role == models.RoleImpostor {
			impostor = id
		} else {
			actual = a.LocationID
		}
	}
	var options []models.LocationOption
	s.call(http.MethodGet, "/api/rooms/"+code+"/locations", nil, http.StatusOK, &options)
	wrong := ""
	for _, opt := range options {
		if opt.ID != actual {
			wrong = opt.ID
			break
		}
	}
	if impostor == "" || wrong == "" {
		t.Fatalf("could not set up guess: impostor=%q wrong=%q options=%v", impostor, wrong, options)
	}

	var res resolutionBody
	s.call(http.MethodPost, "/api/rooms/"+code+"/round/guess", models.GuessRequest{PlayerID: impostor, Guess: models.Guess{LocationID: wrong}}, http.StatusOK, &res)
	if res.Winner != models.WinnerCrew || res.Kind != "location_missed" {
		t.Errorf("unexpected resolution %+v", res)
	}
	s.call(http.MethodPost, "/api/rooms/"+code+"/round/guess", models.GuessRequest{PlayerID: impostor, Guess: models.Guess{LocationID: actual}}, http.StatusBadRequest, nil)

	var lobby lobbyBody
	s.call(http.MethodGet, "/api/rooms/"+code, nil, http.StatusOK, &lobby)
	if lobby.Phase != models.PhaseAwaitingNextRound || lobby.RoundsPlayed != 1 {
		t.Errorf("unexpected lobby %+v", lobby)
	}
	if lobby.LastRound == nil || lobby.LastRound.ImpostorID != impostor || lobby.LastRound.LocationID != actual {
		t.Errorf("unexpected last round %+v", lobby.LastRound)
	}
	for _, p := range lobby.Players {
		wantCrew := 1
		if p.ID == impostor {
			wantCrew = 0
		}
		if p.CrewWins != wantCrew || p.ImpostorWins != 0 {
			t.Errorf("unexpected counters for %s: %+v", p.Name, p)
		}
	}
	if len(s.feed.rounds) != 1 || s.feed.rounds[0].ImpostorID != impostor {
		t.Errorf("feed should see the finished round, got %+v", s.feed.rounds)
	}

	var history []json.RawMessage
	s.call(http.MethodGet, "/api/rooms/"+code+"/history", nil, http.StatusOK, &history)
	if len(history) != 1 {
		t.Errorf("history has %d entries", len(history))
	}

	// next round, then abort it
	s.call(http.MethodPost, "/api/rooms/"+code+"/next-round", host, http.StatusOK, &round)
	if round.RoundNumber != 2 {
		t.Errorf("round number = %d, want 2", round.RoundNumber)
	}
	s.call(http.MethodPost, "/api/rooms/"+code+"/abort", models.AbortRequest{HostToken: room.created.HostToken}, http.StatusOK, &lobby)
	if lobby.Phase != models.PhaseAwaitingNextRound {
		t.Errorf("phase after abort = %s", lobby.Phase)
	}
	var failure models.ErrorResponse
	s.call(http.MethodGet, "/api/rooms/"+code+"/round", nil, http.StatusBadRequest, &failure)
	if failure.Message != "no active round" {
		t.Errorf("message = %q", failure.Message)
	}
	s.call(http.MethodPost, "/api/rooms/"+code+"/next-round", host, http.StatusOK, &round)
	if round.RoundNumber != 3 {
		t.Errorf("round number = %d, want 3", round.RoundNumber)
	}

	// full reset
	s.call(http.MethodPost, "/api/rooms/"+code+"/abort", models.AbortRequest{HostToken: room.created.HostToken, Scope: models.AbortGame}, http.StatusOK, &lobby)
	if lobby.Phase != models.PhaseLobby || lobby.RoundNumber != 0 || lobby.RoundsPlayed != 0 || lobby.LastRound != nil {
		t.Errorf("game not reset: %+v", lobby)
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t, 32)
	room := s.seatRoom("Bob")
	code := room.created.Code

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown room", http.MethodGet, "/api/rooms/ZZZZ", nil, http.StatusNotFound},
		{"malformed code", http.MethodGet, "/api/rooms/TOOLONG", nil, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/rooms", "{", http.StatusBadRequest},
		{"bad token on rules", http.MethodPatch, "/api/rooms/" + code, models.UpdateRulesRequest{HostToken: "nope"}, http.StatusForbidden},
		{"bad token on start", http.MethodPost, "/api/rooms/" + code + "/start", models.HostRequest{HostToken: "nope"}, http.StatusForbidden},
		{"too few players", http.MethodPost, "/api/rooms/" + code + "/start", models.HostRequest{HostToken: room.created.HostToken}, http.StatusBadRequest},
		{"no round to abort", http.MethodPost, "/api/rooms/" + code + "/abort", models.AbortRequest{HostToken: room.created.HostToken}, http.StatusBadRequest},
		{"unknown player", http.MethodGet, "/api/rooms/" + code + "/players/ghost/assignment", nil, http.StatusNotFound},
		{"no round yet", http.MethodGet, "/api/rooms/" + code + "/round", nil, http.StatusBadRequest},
		{"empty name", http.MethodPost, "/api/rooms/" + code + "/join", models.JoinRoomRequest{}, http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/api/rooms/" + code, nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if rec.Code == http.StatusMethodNotAllowed {
				return
			}
			var failure models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil || failure.Message == "" {
				t.Errorf("expected a JSON message, got %q", rec.Body.String())
			}
		})
	}
}

func TestUpdateRules(t *testing.T) {
	s := newTestServer(t, 32)
	room := s.seatRoom()

	var rules models.GameRules
	s.call(http.MethodPatch, "/api/rooms/"+room.created.Code, models.UpdateRulesRequest{
		HostToken: room.created.HostToken,
		Rules:     models.GameRules{MaxPlayers: 4, RoundTimeSeconds: 45, AllowRepeatedQuestions: true, LocationPoolSize: 3, QuestionCategories: []string{"people"}},
	}, http.StatusOK, &rules)
	if rules.MaxPlayers != 4 || rules.RoundTimeSeconds != 45 || !rules.AllowRepeatedQuestions || rules.LocationPoolSize != 3 {
		t.Errorf("unexpected rules %+v", rules)
	}
	if len(rules.QuestionCategories) != 1 || rules.QuestionCategories[0] != "people" {
		t.Errorf("categories = %v", rules.QuestionCategories)
	}
}

func TestQR(t *testing.T) {
	s := newTestServer(t, 32)
	room := s.seatRoom()

	rec := s.do(http.MethodGet, "/api/rooms/"+room.created.Code+"/qr", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qr = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/ABCD/qr", nil)
	req.Host = "sus.example"
	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	if got := s.ctx.joinURL(req, "ABCD"); got != "https://sus.example/join/ABCD" {
		t.Errorf("joinURL = %q", got)
	}

	s.ctx.PublicURL = "https://play.sus.example/app/"
	if got := s.ctx.joinURL(req, "ABCD"); got != "https://play.sus.example/app/join/ABCD" {
		t.Errorf("joinURL with public base = %q", got)
	}
}
