package handlers

import (
	"net/http"

	"github.com/aaronzipp/sus-server/internal/game"
	"github.com/aaronzipp/sus-server/internal/models"
	"github.com/julienschmidt/httprouter"
)

// HandleGetRound returns the public view of the active round
func (ctx *Context) HandleGetRound(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var view models.RoundView
	err := ctx.Registry.View(ps.ByName("code"), func(room *game.Room) error {
		var err error
		view, err = room.RoundView()
		return err
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleNextQuestion lets the player holding the turn draw the next question
func (ctx *Context) HandleNextQuestion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req models.PlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}

	var next models.NextQuestion
	err := ctx.Registry.Update(ps.ByName("code"), func(room *game.Room) error {
		var err error
		next, err = room.NextQuestion(req.PlayerID)
		return err
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	ctx.Logger.Debug("question drawn", "code", ps.ByName("code"), "player", req.PlayerID, "asked", next.AskedCount)
	writeJSON(w, http.StatusOK, next)
}

// HandleSubmitGuess resolves the round with an accusation or a location guess
func (ctx *Context) HandleSubmitGuess(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req models.GuessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}

	var res models.Resolution
	var summary models.RoundSummary
	var code string
	err := ctx.Registry.Update(ps.ByName("code"), func(room *game.Room) error {
		var err error
		res, err = room.SubmitGuess(req.PlayerID, req.Guess)
		if err != nil {
			return err
		}
		code = room.Code()
		summary, _ = room.LastRound()
		return nil
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	ctx.Logger.Info("round resolved", "code", code, "round", summary.RoundNumber, "winner", res.Winner, "outcome", models.OutcomeKind(res.Outcome))
	ctx.Feed.RoundResolved(code, summary)
	writeJSON(w, http.StatusOK, res)
}

// HandleAssignment reveals one player's secret role
func (ctx *Context) HandleAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var assignment models.PlayerAssignment
	err := ctx.Registry.View(ps.ByName("code"), func(room *game.Room) error {
		var err error
		assignment, err = room.Assignment(ps.ByName("player"))
		return err
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

// HandleLocations lists the locations the impostor can guess from
func (ctx *Context) HandleLocations(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var options []models.LocationOption
	err := ctx.Registry.View(ps.ByName("code"), func(room *game.Room) error {
		options = room.LocationOptions()
		return nil
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}
