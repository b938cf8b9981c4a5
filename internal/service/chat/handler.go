package chat

import (
	"context"
	"net/http"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/server"

	"github.com/gorilla/mux"
)

// Registrar ties the chat service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the chat service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the conversation and message routes to the router
func (r *Registrar) Register(router *mux.Router) {
	h := &handler{svc: NewService(r.appCtx)}
	router.HandleFunc("/v1/conversations", h.fetchOrCreate).Methods(http.MethodPost)
	router.HandleFunc("/v1/users/{id}/conversations", h.listConversations).Methods(http.MethodGet)
	router.HandleFunc("/v1/users/{id}/unread-count", h.countUnread).Methods(http.MethodGet)
	router.HandleFunc("/v1/conversations/{id}/messages", h.sendMessage).Methods(http.MethodPost)
	router.HandleFunc("/v1/conversations/{id}/messages", h.listMessages).Methods(http.MethodGet)
	router.HandleFunc("/v1/conversations/{id}/hide", h.visibility((*Service).Hide)).Methods(http.MethodPost)
	router.HandleFunc("/v1/conversations/{id}/unhide", h.visibility((*Service).Unhide)).Methods(http.MethodPost)
	router.HandleFunc("/v1/conversations/{id}/leave", h.visibility((*Service).Leave)).Methods(http.MethodPost)
	router.HandleFunc("/v1/conversations/{id}/read", h.markRead).Methods(http.MethodPost)
}

type handler struct {
	svc *Service
}

type createBody struct {
	UserAID uint64 `json:"userAId"`
	UserBID uint64 `json:"userBId"`
	Type    string `json:"type"`
}

func (h *handler) fetchOrCreate(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.WriteError(w, err)
		return
	}
	conv, err := h.svc.FetchOrCreate(r.Context(),
		body.UserAID, body.UserBID, db.ConversationType(body.Type))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, conv)
}

func (h *handler) listConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	hidden := r.URL.Query().Get("hidden") == "true"
	convs, err := h.svc.ListConversations(r.Context(), userID, hidden)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (h *handler) countUnread(w http.ResponseWriter, r *http.Request) {
	userID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	count, err := h.svc.CountUnread(r.Context(), userID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

type messageBody struct {
	SenderUserID uint64 `json:"senderUserId"`
	Body         string `json:"body"`
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	convID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	var body messageBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.WriteError(w, err)
		return
	}
	msg, err := h.svc.SendMessage(r.Context(), convID, body.SenderUserID, body.Body)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, msg)
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	convID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	userID, err := server.QueryUint64(r, "user_id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	limit := 0
	if raw, err := server.QueryUint64(r, "limit"); err == nil {
		limit = int(raw)
	}
	msgs, err := h.svc.ListMessages(r.Context(), convID, userID, limit)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type memberBody struct {
	UserID uint64 `json:"userId"`
}

// visibility adapts the hide/unhide/leave service calls, which share a shape.
func (h *handler) visibility(op func(*Service, context.Context, uint64, uint64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convID, err := server.PathID(r, "id")
		if err != nil {
			server.WriteError(w, err)
			return
		}
		var body memberBody
		if err := server.DecodeJSON(r, &body); err != nil {
			server.WriteError(w, err)
			return
		}
		if err := op(h.svc, r.Context(), convID, body.UserID); err != nil {
			server.WriteError(w, err)
			return
		}
		server.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	convID, err := server.PathID(r, "id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	var body memberBody
	if err := server.DecodeJSON(r, &body); err != nil {
		server.WriteError(w, err)
		return
	}
	if err := h.svc.MarkRead(r.Context(), convID, body.UserID); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
