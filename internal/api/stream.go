package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tourplan/internal/model"
)

const (
	sseHeartbeat = 15 * time.Second
	wsPing       = 20 * time.Second
	wsPongWait   = 60 * time.Second
	wsWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// replay returns the terminal event of id when the run finished before the
// caller subscribed. It must be called after Subscribe.
func (s *Server) replay(r *http.Request, id string) (model.RunEvent, bool) {
	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		return model.RunEvent{}, false
	}
	return finalEvent(run)
}

func writeSSE(w http.ResponseWriter, evt model.RunEvent) {
	b, _ := json.Marshal(evt)
	fmt.Fprintf(w, "event: %s\n", evt.Type)
	fmt.Fprintf(w, "data: %s\n\n", b)
}

// streamRunEvents serves run events as server-sent events until the run
// finishes or the client goes away.
func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	heartbeat := func() {
		writeSSE(w, model.RunEvent{Type: "heartbeat", RunID: id, TS: time.Now().UTC()})
		flusher.Flush()
	}
	heartbeat()
	if evt, done := s.replay(r, id); done {
		writeSSE(w, evt)
		flusher.Flush()
		return
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, evt)
			flusher.Flush()
			if terminal(evt) {
				return
			}
		case <-ticker.C:
			heartbeat()
		}
	}
}

// runEventsWS streams run events as JSON text messages over a WebSocket and
// closes normally after the terminal event.
func (s *Server) runEventsWS(w http.ResponseWriter, r *http.Request, id string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	// Read loop: only control frames are expected; it ends when the peer
	// closes or stops answering pings.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(1 << 10)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(evt model.RunEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(evt)
	}
	finish := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	}

	if evt, done := s.replay(r, id); done {
		if send(evt) == nil {
			finish()
		}
		return
	}
	ticker := time.NewTicker(wsPing)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := send(evt); err != nil {
				return
			}
			if terminal(evt) {
				finish()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
