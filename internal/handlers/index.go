package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaronzipp/sus-server/internal/catalog"
	"github.com/aaronzipp/sus-server/internal/feed"
	"github.com/aaronzipp/sus-server/internal/store"
	"github.com/julienschmidt/httprouter"
)

// Context holds shared application dependencies
type Context struct {
	Registry *store.Registry
	Catalog  *catalog.Catalog
	Feed     feed.Publisher
	Logger   *slog.Logger

	// PublicURL is the base of join links; empty derives it from the request
	PublicURL string
}

// Router wires every route
func (ctx *Context) Router() http.Handler {
	router := httprouter.New()

	router.GET("/healthz", ctx.HandleHealth)
	router.GET("/api/categories", ctx.HandleCategories)

	router.POST("/api/rooms", ctx.HandleCreateRoom)
	router.GET("/api/rooms/:code", ctx.HandleGetRoom)
	router.PATCH("/api/rooms/:code", ctx.HandleUpdateRules)
	router.POST("/api/rooms/:code/join", ctx.HandleJoinRoom)

	router.POST("/api/rooms/:code/start", ctx.HandleStartRound)
	router.POST("/api/rooms/:code/next-round", ctx.HandleStartRound)
	router.POST("/api/rooms/:code/abort", ctx.HandleAbort)

	router.GET("/api/rooms/:code/round", ctx.HandleGetRound)
	router.POST("/api/rooms/:code/round/question", ctx.HandleNextQuestion)
	router.POST("/api/rooms/:code/round/guess", ctx.HandleSubmitGuess)
	router.GET("/api/rooms/:code/players/:player/assignment", ctx.HandleAssignment)
	router.GET("/api/rooms/:code/locations", ctx.HandleLocations)

	router.GET("/api/rooms/:code/history", ctx.HandleHistory)
	router.GET("/api/rooms/:code/qr", ctx.HandleQR)
	router.GET("/api/rooms/:code/ws", ctx.HandleSubscribe)

	return corsMiddleware(router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HandleHealth reports liveness
func (ctx *Context) HandleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// HandleCategories lists every question category the catalog knows
func (ctx *Context) HandleCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, ctx.Catalog.Categories())
}
