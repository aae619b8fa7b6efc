package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/cstopics/cstopics/sim/scenario"
)

// MaxInterval caps the delay between streamed events.
const MaxInterval = 5 * time.Second

// Message types sent on the playback socket.
const (
	MessageEvent  = "event"
	MessageResult = "result"
	MessageError  = "error"
	MessageDone   = "done"
)

// PlayRequest is the first and only message a playback client sends.
type PlayRequest struct {
	Run        scenario.RunSpec `json:"run"`
	IntervalMS int              `json:"interval_ms,omitempty"`
	Seed       *int64           `json:"seed,omitempty"`
}

// PlayMessage is one message streamed to a playback client.
type PlayMessage struct {
	Type    string            `json:"type"`
	RunID   string            `json:"run_id,omitempty"`
	Index   int               `json:"index"`
	Total   int               `json:"total,omitempty"`
	Event   any               `json:"event,omitempty"`
	Outcome *scenario.Outcome `json:"outcome,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func (r PlayRequest) interval() time.Duration {
	d := time.Duration(r.IntervalMS) * time.Millisecond
	if d < 0 {
		return 0
	}
	return min(d, MaxInterval)
}

// handlePlay computes the whole timeline up front, then streams it one event
// per interval, finishing with a done message that carries the outcome.
// Computations without a timeline get a single result message instead.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("[api] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var req PlayRequest
	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	if err := decodeStrict(data, &req); err != nil {
		s.send(conn, PlayMessage{Type: MessageError, Error: "invalid play request: " + err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Drain client frames so close and ping are processed.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	seed := s.seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	out := s.execute(req.Run, seed)
	if !out.OK() {
		s.send(conn, PlayMessage{Type: MessageError, RunID: out.RunID, Error: out.Error, Outcome: &out})
		return
	}
	if out.Timeline == nil {
		s.send(conn, PlayMessage{Type: MessageResult, RunID: out.RunID, Outcome: &out})
		return
	}

	interval := req.interval()
	total := len(out.Timeline)
	for i, e := range out.Timeline {
		if err := s.send(conn, PlayMessage{Type: MessageEvent, RunID: out.RunID, Index: i, Total: total, Event: e}); err != nil {
			return
		}
		if interval == 0 {
			continue
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logrus.Debugf("[api] playback %s stopped by client at %d/%d", out.RunID, i+1, total)
			return
		case <-timer.C:
		}
	}
	s.send(conn, PlayMessage{Type: MessageDone, RunID: out.RunID, Total: total, Outcome: &out})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}

func (s *Server) send(conn *websocket.Conn, msg PlayMessage) error {
	if err := conn.WriteJSON(msg); err != nil {
		logrus.Warnf("[api] failed to send %s message: %v", msg.Type, err)
		return err
	}
	return nil
}
