package handlers

import (
	"net/http"
	"strings"

	"github.com/aaronzipp/sus-server/internal/game"
	"github.com/aaronzipp/sus-server/internal/models"
	"github.com/aaronzipp/sus-server/internal/render"
	"github.com/julienschmidt/httprouter"
)

// HandleHistory lists every finished round of a room, oldest first
func (ctx *Context) HandleHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var history []models.RoundSummary
	err := ctx.Registry.View(ps.ByName("code"), func(room *game.Room) error {
		history = room.History()
		return nil
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []models.RoundSummary{}
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleQR renders a QR code of the room's join link for sharing at the table
func (ctx *Context) HandleQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var code string
	err := ctx.Registry.View(ps.ByName("code"), func(room *game.Room) error {
		code = room.Code()
		return nil
	})
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	png, err := render.JoinQR(ctx.joinURL(r, code))
	if err != nil {
		ctx.writeError(w, r, game.Unexpected(err, "qr generation failed"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// joinURL is the link a phone opens to join a room. Without a configured
// base it is derived from the request, respecting TLS and X-Forwarded-Proto.
func (ctx *Context) joinURL(r *http.Request, code string) string {
	if ctx.PublicURL != "" {
		return strings.TrimSuffix(ctx.PublicURL, "/") + "/join/" + code
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(proto)
	}
	return scheme + "://" + r.Host + "/join/" + code
}
