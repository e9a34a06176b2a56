package daemon

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"jobdraft/internal/api"
	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/logging"
)

const (
	watchWriteWait    = 10 * time.Second
	watchPingInterval = 30 * time.Second
)

// watchMessage is one frame of the draft watch stream. The first frame
// carries only the draft; later frames carry the event and the refreshed
// draft.
type watchMessage struct {
	Event *api.EventView `json:"event,omitempty"`
	Draft *api.DraftView `json:"draft,omitempty"`
	Done  bool           `json:"done"`
}

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleWatch streams status changes for one draft over a websocket until
// the draft reaches a terminal state or the client goes away.
func (s *apiServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	// Subscribe before reading the draft so no transition between the read
	// and the first frame is lost.
	events, cancel := s.daemon.bus.Subscribe(id)
	defer cancel()
	draft, err := s.daemon.store.Get(ctx, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(msg watchMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
		return conn.WriteJSON(msg) == nil
	}

	view := api.FromDraft(draft)
	done := terminal(draft) && !s.inFlight(id)
	if !send(watchMessage{Draft: &view, Done: done}) || done {
		s.closeWatch(conn)
		return
	}

	ping := time.NewTicker(watchPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg := watchMessage{Event: eventView(ev)}
			if current, err := s.daemon.store.Get(ctx, id); err == nil {
				refreshed := api.FromDraft(current)
				msg.Draft = &refreshed
				msg.Done = terminal(current)
			}
			if !send(msg) {
				return
			}
			if msg.Done {
				s.closeWatch(conn)
				return
			}
		}
	}
}

func (s *apiServer) closeWatch(conn *websocket.Conn) {
	deadline := time.Now().Add(watchWriteWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "draft finished"), deadline)
}

func (s *apiServer) inFlight(id string) bool {
	for _, running := range s.daemon.Orchestrator().InFlight() {
		if running == id {
			return true
		}
	}
	return false
}

func eventView(ev eventlog.Event) *api.EventView {
	view := api.FromEvent(ev)
	return &view
}

func terminal(draft *drafts.Draft) bool {
	return draft != nil && (draft.Status == drafts.StatusCompleted || draft.Status == drafts.StatusFailed)
}
