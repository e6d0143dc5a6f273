// handlers/events.go - websocket feed of pipeline progress events
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"dbclone/common"
	"dbclone/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// session auth already ran in the middleware chain
	CheckOrigin: func(r *http.Request) bool { return true },
}

func SetupEventRoutes(router chi.Router) {
	router.Get("/clones/events", streamEvents)
}

// streamEvents pushes pipeline progress events to the client until it goes
// away. Reads are only serviced to notice the close handshake.
func streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		common.ErrorLog("events: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := services.Events.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
