package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/wsmsg"
)

type (
	// hub fans saved documents out to the websockets watching them. Bursts of
	// updates to one score are coalesced into a single message.
	hub struct {
		mu         sync.Mutex
		watchers   map[string]map[*watcher]struct{}
		pending    map[string]score.Document
		debouncers map[string]func(func())
		wait       time.Duration
		log        *log.Logger
	}

	watcher struct {
		id   uuid.UUID
		conn *websocket.Conn
		send chan wsmsg.Envelope
	}
)

// Messages queued per watcher before it is considered stuck.
const sendBuffer = 16

func newHub(wait time.Duration, l *log.Logger) *hub {
	return &hub{
		watchers:   make(map[string]map[*watcher]struct{}),
		pending:    make(map[string]score.Document),
		debouncers: make(map[string]func(func())),
		wait:       wait,
		log:        l,
	}
}

func (h *hub) join(scoreID string, conn *websocket.Conn) *watcher {
	w := &watcher{id: uuid.New(), conn: conn, send: make(chan wsmsg.Envelope, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[scoreID] == nil {
		h.watchers[scoreID] = make(map[*watcher]struct{})
	}
	h.watchers[scoreID][w] = struct{}{}
	return w
}

func (h *hub) leave(scoreID string, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.watchers[scoreID][w]; !ok {
		return
	}
	delete(h.watchers[scoreID], w)
	if len(h.watchers[scoreID]) == 0 {
		delete(h.watchers, scoreID)
	}
	close(w.send)
}

// publish schedules an update for the document's watchers.
func (h *hub) publish(doc score.Document) {
	h.mu.Lock()
	h.pending[doc.ID] = doc
	d, ok := h.debouncers[doc.ID]
	if !ok {
		d = debounce.New(h.wait)
		h.debouncers[doc.ID] = d
	}
	h.mu.Unlock()

	d(func() { h.flush(doc.ID) })
}

func (h *hub) flush(scoreID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	doc, ok := h.pending[scoreID]
	if !ok {
		return
	}
	delete(h.pending, scoreID)

	env, err := wsmsg.New(wsmsg.UPDATED, scoreID, wsmsg.UpdatedMsg{Document: doc})
	if err != nil {
		h.log.Printf("live %s: %v", scoreID, err)
		return
	}
	for w := range h.watchers[scoreID] {
		select {
		case w.send <- env:
		default:
			h.log.Printf("live %s: watcher %s is not keeping up, dropping update", scoreID, w.id)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ws := range h.watchers {
		for w := range ws {
			w.conn.Close()
		}
	}
}

func (w *watcher) writeLoop() {
	for env := range w.send {
		if err := w.conn.WriteJSON(env); err != nil {
			return
		}
	}
	w.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}

// handleLive streams updates of one score until the client disconnects.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("live %s: upgrade: %v", id, err)
		return
	}
	defer conn.Close()

	wt := s.hub.join(id, conn)
	defer s.hub.leave(id, wt)

	hello, err := wsmsg.New(wsmsg.CONNECT, id, wsmsg.ConnectMsg{ClientID: wt.id})
	if err == nil {
		wt.send <- hello
	}
	go wt.writeLoop()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Printf("live %s: %v", id, err)
			}
			return
		}
	}
}
