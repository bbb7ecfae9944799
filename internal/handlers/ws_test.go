package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aaronzipp/sus-server/internal/models"
	"github.com/gorilla/websocket"
)

// frame decodes any server event
type frame struct {
	Type         string            `json:"type"`
	Lobby        *lobbyBody        `json:"lobby"`
	Round        *models.RoundView `json:"round"`
	ServerTimeMs int64             `json:"server_time_ms"`
}

func dial(t *testing.T, srv *httptest.Server, code string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/rooms/" + code + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decoding %s: %v", data, err)
	}
	return f
}

// readUntil reads frames until match accepts one
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	for range 50 {
		if f := readFrame(t, conn); match(f) {
			return f
		}
	}
	t.Fatal("expected frame never arrived")
	return frame{}
}

func TestSubscribeSnapshotAndUpdates(t *testing.T) {
	s := newTestServer(t, 32)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()
	room := s.seatRoom("Bob")
	code := room.created.Code

	conn := dial(t, srv, code)
	snap := readFrame(t, conn)
	if snap.Type != "snapshot" || snap.Lobby == nil || snap.Lobby.PlayerCount != 2 || snap.Round != nil {
		t.Fatalf("unexpected first frame %+v", snap)
	}

	s.call(http.MethodPost, "/api/rooms/"+code+"/join", models.JoinRoomRequest{PlayerName: "Cara"}, http.StatusOK, nil)
	update := readFrame(t, conn)
	if update.Type != "lobby" || update.Lobby.PlayerCount != 3 {
		t.Fatalf("unexpected update %+v", update)
	}

	s.call(http.MethodPost, "/api/rooms/"+code+"/start", models.HostRequest{HostToken: room.created.HostToken}, http.StatusOK, nil)
	round := readUntil(t, conn, func(f frame) bool { return f.Type == "round" })
	if round.Round == nil || round.Round.RoundNumber != 1 {
		t.Fatalf("unexpected round frame %+v", round)
	}

	s.call(http.MethodPost, "/api/rooms/"+code+"/abort", models.AbortRequest{HostToken: room.created.HostToken}, http.StatusOK, nil)
	cleared := readUntil(t, conn, func(f frame) bool { return f.Type == "round" })
	if cleared.Round != nil {
		t.Errorf("abort should publish an empty round, got %+v", cleared.Round)
	}
}

func TestSubscribePingAndSync(t *testing.T) {
	s := newTestServer(t, 32)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()
	room := s.seatRoom()

	conn := dial(t, srv, room.created.Code)
	readFrame(t, conn)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	pong := readFrame(t, conn)
	if pong.Type != "pong" || pong.ServerTimeMs == 0 {
		t.Errorf("unexpected pong %+v", pong)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "sync"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap := readFrame(t, conn)
	if snap.Type != "snapshot" || snap.Lobby.Code != room.created.Code {
		t.Errorf("unexpected sync reply %+v", snap)
	}
}

func TestSubscriberConvergesUnderLag(t *testing.T) {
	s := newTestServer(t, 1)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()
	room := s.seatRoom()
	code := room.created.Code

	conn := dial(t, srv, code)
	readFrame(t, conn)

	names := []string{"Bob", "Cara", "Dan", "Eve", "Finn", "Gus"}
	for _, name := range names {
		s.call(http.MethodPost, "/api/rooms/"+code+"/join", models.JoinRoomRequest{PlayerName: name}, http.StatusOK, nil)
	}
	s.call(http.MethodPost, "/api/rooms/"+code+"/start", models.HostRequest{HostToken: room.created.HostToken}, http.StatusOK, nil)

	// whether the socket kept up or resynchronised, it ends on the true state
	want := len(names) + 1
	readUntil(t, conn, func(f frame) bool {
		switch f.Type {
		case "snapshot":
			return f.Lobby.PlayerCount == want && f.Round != nil && f.Round.RoundNumber == 1
		case "round":
			return f.Round != nil && f.Round.RoundNumber == 1 && len(f.Round.TurnOrder) == want
		}
		return false
	})
}

func TestSubscriberClosedWhenRoomRemoved(t *testing.T) {
	s := newTestServer(t, 32)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()
	room := s.seatRoom()

	conn := dial(t, srv, room.created.Code)
	readFrame(t, conn)

	if !s.ctx.Registry.Delete(room.created.Code) {
		t.Fatal("Delete should find the room")
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseGoingAway {
		t.Errorf("expected a going-away close, got %v", err)
	}
}

func TestSubscriberClosesCleanlyWhenClientStopsSending(t *testing.T) {
	s := newTestServer(t, 32)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()
	room := s.seatRoom()

	conn := dial(t, srv, room.created.Code)
	readFrame(t, conn)

	tcp, ok := conn.NetConn().(*net.TCPConn)
	if !ok {
		t.Fatalf("unexpected transport %T", conn.NetConn())
	}
	if err := tcp.CloseWrite(); err != nil {
		t.Fatalf("CloseWrite: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseNormalClosure {
		t.Errorf("expected a normal close frame, got %v", err)
	}
}

func TestSubscribeUnknownRoom(t *testing.T) {
	s := newTestServer(t, 32)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/rooms/ZZZZ/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial should fail for an unknown room")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %v", resp)
	}
}
