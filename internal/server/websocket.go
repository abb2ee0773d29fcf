package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/kshou/lualab/internal/sandbox"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // classroom deployments sit behind a trusted proxy
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type   string   `json:"type"`
	Code   string   `json:"code"`
	Inputs []string `json:"inputs"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type     string `json:"type"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	TimedOut bool   `json:"timed_out,omitempty"`
	Valid    bool   `json:"valid,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// handlePlaygroundWS serves a persistent run channel: the client sends run
// and validate requests and receives one result message per request.
func (s *Server) handlePlaygroundWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Printf("websocket read error: %v", err)
			return
		}

		switch msg.Type {
		case "run":
			wsWriteJSON(conn, s.runForWS(r, msg))
		case "validate":
			verdict := s.validator.Validate(msg.Code)
			wsWriteJSON(conn, wsOutgoing{Type: "validated", Valid: verdict.OK, Reason: verdict.Reason})
		default:
			wsWriteJSON(conn, wsOutgoing{Type: "error", Error: "unknown message type"})
		}
	}
}

func (s *Server) runForWS(r *http.Request, msg wsIncoming) wsOutgoing {
	if err := sandbox.CheckLimits(msg.Code, msg.Inputs); err != nil {
		return wsOutgoing{Type: "result", Error: err.Error()}
	}
	if verdict := s.validator.Validate(msg.Code); !verdict.OK {
		return wsOutgoing{Type: "result", Error: verdict.Reason}
	}

	result := s.runner.Run(r.Context(), msg.Code, msg.Inputs)
	return wsOutgoing{
		Type:     "result",
		Output:   result.Output,
		Error:    result.Err,
		TimedOut: result.TimedOut,
	}
}

func wsWriteJSON(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}
