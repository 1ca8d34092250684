package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// reloadMessage is pushed to connected browsers after every successful
// rebuild.
const reloadMessage = "reload"

// handleReload upgrades the connection and parks it until the client goes
// away. Clients only listen; anything they send is drained and dropped.
func (s *DevServer) handleReload(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMutex.Unlock()

	defer func() {
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		s.clientsMutex.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

// broadcastReload tells every connected client to refresh. Writes race with
// client disconnects; a failed write just drops that client.
func (s *DevServer) broadcastReload(ctx context.Context) {
	s.clientsMutex.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clientsMutex.Unlock()

	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := conn.Write(writeCtx, websocket.MessageText, []byte(reloadMessage)); err != nil {
			conn.Close(websocket.StatusGoingAway, "write failed")
		}
		cancel()
	}
}

func (s *DevServer) closeClients() {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	for conn := range s.clients {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	s.clients = make(map[*websocket.Conn]struct{})
}
