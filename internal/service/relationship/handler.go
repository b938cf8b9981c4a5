package relationship

import (
	"net/http"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/server"

	"github.com/gorilla/mux"
)

// Registrar ties the relationship service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the relationship service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the swipe and match routes to the router
func (r *Registrar) Register(router *mux.Router) {
	h := &handler{svc: NewService(r.appCtx)}
	router.HandleFunc("/v1/swipes", h.recordSwipe).Methods(http.MethodPost)
	router.HandleFunc("/v1/users/{id}/matches", h.listMatches).Methods(http.MethodGet)
}

type handler struct {
	svc *Service
}

type swipeBody struct {
	ActorUserID  uint64 `json:"actorUserId"`
	TargetUserID uint64 `json:"targetUserId"`
	Direction    string `json:"direction"`
	Mode         string `json:"mode"`
}

func (h *handler) recordSwipe(w http.ResponseWriter, r *http.Request) {
	var body swipeBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.WriteError(w, err)
		return
	}

	match, err := h.svc.RecordSwipe(r.Context(),
		body.ActorUserID, body.TargetUserID,
		db.Direction(body.Direction), db.Mode(body.Mode))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	server.WriteJSON(w, http.StatusOK, map[string]any{"match": match})
}

func (h *handler) listMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	matches, err := h.svc.ListMatches(r.Context(), userID, db.Mode(r.URL.Query().Get("mode")))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
