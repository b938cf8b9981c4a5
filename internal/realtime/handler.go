package realtime

import (
	"net/http"
	"strings"

	svcErr "github.com/kindredapp/engine/internal/errors"
	"github.com/kindredapp/engine/internal/server"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Registrar exposes the websocket subscribe endpoint on the HTTP server
type Registrar struct {
	hub *Hub
}

// NewRegistrar creates a new Registrar for the realtime hub
func NewRegistrar(hub *Hub) *Registrar {
	return &Registrar{hub: hub}
}

// Register attaches the subscribe route to the router
func (r *Registrar) Register(router *mux.Router) {
	h := &handler{
		hub: r.hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	router.HandleFunc("/ws", h.subscribe).Methods(http.MethodGet)
}

type handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// subscribe upgrades GET /ws?user_id=<id>&topics=matches,conversations to a
// websocket delivering that user's events. Omitting topics subscribes to all.
func (h *handler) subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := server.QueryUint64(r, "user_id")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if userID == 0 {
		server.WriteError(w, svcErr.InvalidArgument("user_id is required"))
		return
	}

	var topics []Topic
	if raw := r.URL.Query().Get("topics"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			name := strings.TrimSpace(t)
			if !ValidTopic(name) {
				server.WriteError(w, svcErr.InvalidArgument("unknown topic: "+name))
				return
			}
			topics = append(topics, Topic(name))
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}

	client, err := h.hub.Register(userID, conn, topics)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		_ = conn.Close()
		return
	}
	client.ReadLoop()
}
