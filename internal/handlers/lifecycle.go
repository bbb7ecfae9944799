package handlers

import (
	"net/http"

	"github.com/aaronzipp/sus-server/internal/game"
	"github.com/aaronzipp/sus-server/internal/models"
	"github.com/julienschmidt/httprouter"
)

// HandleStartRound starts the first round from the lobby, or the next one
// after a resolution or abort
func (ctx *Context) HandleStartRound(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req models.HostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}

	var view models.RoundView
	var code string
	err := ctx.Registry.Update(ps.ByName("code"), func(room *game.Room) error {
		var err error
		code = room.Code()
		view, err = room.BeginRound(req.HostToken)
		return err
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	ctx.Logger.Info("round started", "code", code, "round", view.RoundNumber, "players", len(view.TurnOrder))
	writeJSON(w, http.StatusOK, view)
}

// HandleAbort drops the active round, or resets the whole game
func (ctx *Context) HandleAbort(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req models.AbortRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}

	var lobby models.LobbyView
	err := ctx.Registry.Update(ps.ByName("code"), func(room *game.Room) error {
		var err error
		lobby, err = room.Abort(req.HostToken, req.Scope)
		return err
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	scope := req.Scope
	if scope == "" {
		scope = models.AbortRound
	}
	ctx.Logger.Info("round aborted", "code", lobby.Code, "scope", scope, "phase", lobby.Phase)
	writeJSON(w, http.StatusOK, lobby)
}
