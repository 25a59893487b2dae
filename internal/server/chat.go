package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/docsentry/docsentry/internal/engine"
	"github.com/docsentry/docsentry/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	SessionID string `json:"session_id"` // empty for new sessions
	UserID    string `json:"user_id"`    // required when session_id is empty
	Content   string `json:"content"`
	Route     bool   `json:"route"` // run keyword routing on this message
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string          `json:"type"` // "response" or "error"
	SessionID string          `json:"session_id"`
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content"`
	ChunkRefs []string        `json:"chunk_refs,omitempty"`
	Routed    json.RawMessage `json:"routed,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "err", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "", "invalid message format")
			continue
		}
		if req.Content == "" {
			s.sendError(conn, req.SessionID, "content is required")
			continue
		}

		s.handleChatMessage(conn, r, req)
	}
}

func (s *Server) handleChatMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	ctx := r.Context()
	sessionID := req.SessionID

	if sessionID == "" {
		if req.UserID == "" {
			s.sendError(conn, "", "user_id is required for a new session")
			return
		}
		sess, err := s.sessions.CreateSession(ctx, req.UserID)
		if err != nil {
			s.sendError(conn, "", "failed to create session: "+err.Error())
			return
		}
		sessionID = sess.ID
	}

	reply, err := s.engine.Process(ctx, engine.Request{
		SessionID:     sessionID,
		Message:       req.Content,
		RouteKeywords: req.Route,
	})
	if err != nil {
		s.sendError(conn, sessionID, "processing failed: "+err.Error())
		return
	}

	resp := chatResponse{
		Type:      "response",
		SessionID: sessionID,
		Role:      string(reply.Role),
		Content:   reply.Content,
	}
	if reply.Role != session.RoleSystemError {
		for _, res := range reply.Retrieved {
			resp.ChunkRefs = append(resp.ChunkRefs, res.Record.ID)
		}
		if reply.Routed != nil {
			if encoded, err := json.Marshal(reply.Routed); err == nil {
				resp.Routed = encoded
			}
		}
	}
	s.sendResponse(conn, resp)
}

func (s *Server) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		slog.Warn("websocket write failed", "err", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, sessionID, msg string) {
	s.sendResponse(conn, chatResponse{Type: "error", SessionID: sessionID, Content: msg})
}
