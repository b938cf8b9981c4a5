package social

import (
	"net/http"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/server"

	"github.com/gorilla/mux"
)

// Registrar ties the social service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the social service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the friend request, block and exclusion routes
func (r *Registrar) Register(router *mux.Router) {
	h := &handler{svc: NewService(r.appCtx)}
	router.HandleFunc("/v1/friend-requests", h.sendRequest).Methods(http.MethodPost)
	router.HandleFunc("/v1/friend-requests/{id}/respond", h.respond).Methods(http.MethodPost)
	router.HandleFunc("/v1/users/{id}/friend-requests/pending", h.pending).Methods(http.MethodGet)
	router.HandleFunc("/v1/users/{id}/friends", h.friends).Methods(http.MethodGet)
	router.HandleFunc("/v1/blocks", h.block).Methods(http.MethodPost)
	router.HandleFunc("/v1/users/{id}/exclusions/swiped", h.swiped).Methods(http.MethodGet)
	router.HandleFunc("/v1/users/{id}/exclusions/blocked", h.blocked).Methods(http.MethodGet)
}

type handler struct {
	svc *Service
}

type requestBody struct {
	RequesterUserID uint64 `json:"requesterUserId"`
	AddresseeUserID uint64 `json:"addresseeUserId"`
}

func (h *handler) sendRequest(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.WriteError(w, err)
		return
	}
	view, err := h.svc.SendFriendRequest(r.Context(), body.RequesterUserID, body.AddresseeUserID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, view)
}

type respondBody struct {
	ResponderUserID uint64 `json:"responderUserId"`
	Accept          bool   `json:"accept"`
}

func (h *handler) respond(w http.ResponseWriter, r *http.Request) {
	requestID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	var body respondBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.WriteError(w, err)
		return
	}
	view, err := h.svc.RespondToFriendRequest(r.Context(), requestID, body.ResponderUserID, body.Accept)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, view)
}

func (h *handler) pending(w http.ResponseWriter, r *http.Request) {
	userID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	views, err := h.svc.ListPendingRequests(r.Context(), userID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"requests": views})
}

func (h *handler) friends(w http.ResponseWriter, r *http.Request) {
	userID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	ids, err := h.svc.FriendIDs(r.Context(), userID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"friendIds": ids})
}

type blockBody struct {
	BlockerUserID uint64 `json:"blockerUserId"`
	BlockedUserID uint64 `json:"blockedUserId"`
}

func (h *handler) block(w http.ResponseWriter, r *http.Request) {
	var body blockBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.WriteError(w, err)
		return
	}
	if err := h.svc.BlockUser(r.Context(), body.BlockerUserID, body.BlockedUserID); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) swiped(w http.ResponseWriter, r *http.Request) {
	userID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	ids, err := h.svc.SwipedIDs(r.Context(), userID, db.Mode(r.URL.Query().Get("mode")))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"userIds": ids})
}

func (h *handler) blocked(w http.ResponseWriter, r *http.Request) {
	userID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	ids, err := h.svc.BlockedExclusionIDs(r.Context(), userID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"userIds": ids})
}
