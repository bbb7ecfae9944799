package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aaronzipp/sus-server/internal/broadcast"
	"github.com/aaronzipp/sus-server/internal/game"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is a text frame sent by a subscriber
type clientMessage struct {
	Type string `json:"type"`
}

// delivery is one item from the room's event stream. lagged means events
// were lost and the socket must resynchronise.
type delivery struct {
	event  broadcast.Event
	lagged bool
}

type subscriber struct {
	conn   *websocket.Conn
	code   string
	ctx    *Context
	logger *slog.Logger
}

// HandleSubscribe upgrades to a WebSocket that receives a snapshot of the
// room and then every lobby and round update
func (ctx *Context) HandleSubscribe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var snap broadcast.Snapshot
	var sub *broadcast.Subscription
	var code string
	// snapshot and subscription are taken together so no update falls between them
	err := ctx.Registry.View(ps.ByName("code"), func(room *game.Room) error {
		code = room.Code()
		snap = room.Snapshot()
		sub = room.Bus().Subscribe()
		return nil
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ctx.Logger.Debug("websocket upgrade failed", "code", code, "error", err)
		return
	}

	s := &subscriber{
		conn:   conn,
		code:   code,
		ctx:    ctx,
		logger: ctx.Logger.With("code", code, "remote", r.RemoteAddr),
	}
	s.logger.Debug("subscriber connected")
	s.serve(snap, sub)
	s.logger.Debug("subscriber disconnected")
}

var errRoomClosed = errors.New("room closed")

// serve is the socket's only writer. It multiplexes the keepalive ticker,
// inbound client frames and the room's event stream until one side closes,
// then sends a best-effort close frame.
func (s *subscriber) serve(snap broadcast.Snapshot, sub *broadcast.Subscription) {
	var err error
	defer func() {
		if errors.Is(err, errRoomClosed) {
			s.closeWith(websocket.CloseGoingAway, "room closed")
		} else {
			s.closeWith(websocket.CloseNormalClosure, "")
		}
		s.conn.Close()
	}()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := make(chan clientMessage, 8)
	events := make(chan delivery, 8)
	go s.readPump(runCtx, inbound)
	go s.eventPump(runCtx, sub, events)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err = s.send(snap); err != nil {
		return
	}

	for {
		select {
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err = s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case msg, ok := <-inbound:
			if !ok {
				return
			}
			switch msg.Type {
			case "ping":
				err = s.send(broadcast.Pong{ServerTime: time.Now()})
			case "sync":
				err = s.resync()
			default:
				s.logger.Debug("ignoring client message", "type", msg.Type)
			}
			if err != nil {
				return
			}

		case d, ok := <-events:
			if !ok {
				err = errRoomClosed
				return
			}
			if d.lagged {
				err = s.resync()
			} else {
				err = s.send(d.event)
			}
			if err != nil {
				return
			}
		}
	}
}

// readPump forwards client text frames. It closes inbound once the
// connection fails or the client closes it.
func (s *subscriber) readPump(ctx context.Context, inbound chan<- clientMessage) {
	defer close(inbound)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("invalid client message", "error", err)
			continue
		}
		select {
		case inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// eventPump turns bus receives into deliveries. It closes events when the
// bus is closed or ctx is done.
func (s *subscriber) eventPump(ctx context.Context, sub *broadcast.Subscription, events chan<- delivery) {
	defer close(events)

	for {
		ev, err := sub.Recv(ctx)
		var d delivery
		switch {
		case err == nil:
			d = delivery{event: ev}
		case errors.Is(err, broadcast.ErrLagged):
			s.logger.Debug("subscriber lagged", "error", err)
			d = delivery{lagged: true}
		default:
			return
		}
		select {
		case events <- d:
		case <-ctx.Done():
			return
		}
	}
}

// resync sends the room's current state in full
func (s *subscriber) resync() error {
	var snap broadcast.Snapshot
	err := s.ctx.Registry.View(s.code, func(room *game.Room) error {
		snap = room.Snapshot()
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errRoomClosed, err)
	}
	return s.send(snap)
}

func (s *subscriber) send(ev broadcast.Event) error {
	data, err := broadcast.Encode(ev)
	if err != nil {
		s.logger.Error("failed to encode event", "error", err)
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *subscriber) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
