package discover

import (
	"net/http"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/server"

	"github.com/gorilla/mux"
)

// Registrar ties the discover service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the discover service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the discover routes to the router
func (r *Registrar) Register(router *mux.Router) {
	h := &handler{svc: NewService(r.appCtx)}
	router.HandleFunc("/v1/discover", h.candidates).Methods(http.MethodPost)
	router.HandleFunc("/v1/users/{id}/liked-you", h.likedYou(false)).Methods(http.MethodGet)
	router.HandleFunc("/v1/users/{id}/liked-you/new", h.likedYou(true)).Methods(http.MethodGet)
	router.HandleFunc("/v1/users/{id}/liked-you/count", h.countLikedYou).Methods(http.MethodGet)
}

type handler struct {
	svc *Service
}

type candidatesBody struct {
	UserID     uint64   `json:"userId"`
	Mode       string   `json:"mode"`
	ExcludeIDs []uint64 `json:"excludeIds"`
	Origin     *LatLon  `json:"origin"`
	Limit      int      `json:"limit"`
	Recycle    bool     `json:"recycle"`
}

func (h *handler) candidates(w http.ResponseWriter, r *http.Request) {
	var body candidatesBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.WriteError(w, err)
		return
	}

	candidates, err := h.svc.GetCandidates(r.Context(), CandidatesRequest{
		UserID:     body.UserID,
		Mode:       db.Mode(body.Mode),
		ExcludeIDs: body.ExcludeIDs,
		Origin:     body.Origin,
		Limit:      body.Limit,
		Recycle:    body.Recycle,
	})
	if err != nil {
		server.WriteError(w, err)
		return
	}

	// exhausted (empty, no error) is distinguishable from a fetch failure
	server.WriteJSON(w, http.StatusOK, map[string]any{
		"candidates": candidates,
		"exhausted":  len(candidates) == 0,
	})
}

func (h *handler) likedYou(newOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := server.PathID(r, "id")
		if err != nil {
			server.WriteError(w, err)
			return
		}
		mode := db.Mode(r.URL.Query().Get("mode"))
		var token *string
		if t := r.URL.Query().Get("token"); t != "" {
			token = &t
		}

		var page *LikersPage
		if newOnly {
			page, err = h.svc.ListNewLikedYou(r.Context(), userID, mode, token)
		} else {
			page, err = h.svc.ListLikedYou(r.Context(), userID, mode, token)
		}
		if err != nil {
			server.WriteError(w, err)
			return
		}
		server.WriteJSON(w, http.StatusOK, page)
	}
}

func (h *handler) countLikedYou(w http.ResponseWriter, r *http.Request) {
	userID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	count, err := h.svc.CountLikedYou(r.Context(), userID, db.Mode(r.URL.Query().Get("mode")))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}
