package handlers

import (
	"net/http"

	"github.com/aaronzipp/sus-server/internal/game"
	"github.com/aaronzipp/sus-server/internal/models"
	"github.com/julienschmidt/httprouter"
)

// HandleCreateRoom opens a room with the caller as host
func (ctx *Context) HandleCreateRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req models.CreateRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}

	created, err := ctx.Registry.Create(req.HostName, req.Rules)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	ctx.Logger.Info("room created", "code", created.Code, "host", created.PlayerID, "rooms", ctx.Registry.Len())
	writeJSON(w, http.StatusCreated, created)
}

// HandleJoinRoom adds a player to a room still in its lobby
func (ctx *Context) HandleJoinRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req models.JoinRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}

	var joined models.JoinedRoom
	err := ctx.Registry.Update(ps.ByName("code"), func(room *game.Room) error {
		var err error
		joined, err = room.Join(req.PlayerName)
		return err
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	ctx.Logger.Info("player joined", "code", joined.Code, "player", joined.PlayerID)
	writeJSON(w, http.StatusOK, joined)
}

// HandleGetRoom returns the lobby view
func (ctx *Context) HandleGetRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var view models.LobbyView
	err := ctx.Registry.View(ps.ByName("code"), func(room *game.Room) error {
		view = room.LobbyView()
		return nil
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleUpdateRules lets the host change the rules
func (ctx *Context) HandleUpdateRules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req models.UpdateRulesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}

	var rules models.GameRules
	err := ctx.Registry.Update(ps.ByName("code"), func(room *game.Room) error {
		var err error
		rules, err = room.UpdateRules(req.HostToken, req.Rules)
		return err
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	ctx.Logger.Debug("rules updated", "code", ps.ByName("code"), "rules", rules)
	writeJSON(w, http.StatusOK, rules)
}
