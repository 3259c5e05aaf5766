package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatMessage is the incoming WebSocket message format.
type chatMessage struct {
	Type    string `json:"type"` // only "message" for now
	Content string `json:"content"`
}

// chatReply is the outgoing WebSocket message format.
type chatReply struct {
	Type    string `json:"type"` // "response" or "error"
	Content string `json:"content"`
}

// handleChat upgrades the connection and runs one chat session for its
// lifetime. History lives in the session, so turns on one connection
// build on each other and connections never share state.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	session := s.newChat()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			sendReply(conn, chatReply{Type: "error", Content: "invalid message format"})
			continue
		}
		if req.Content == "" {
			sendReply(conn, chatReply{Type: "error", Content: "content is required"})
			continue
		}
		if req.Type != "" && req.Type != "message" {
			sendReply(conn, chatReply{Type: "error", Content: "unknown message type: " + req.Type})
			continue
		}

		answer := session.Turn(r.Context(), req.Content)
		sendReply(conn, chatReply{Type: "response", Content: answer})
	}
}

func sendReply(conn *websocket.Conn, reply chatReply) {
	if err := conn.WriteJSON(reply); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}
