package introspect

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// pollInterval is how often a watcher re-snapshots its tree and pushes an
// update, mirroring the keepalive cadence backend.memSession uses for its
// ping ticker.
const pollInterval = 500 * time.Millisecond

// watcher owns one websocket connection, polling a single named tree in
// the registry and pushing a Snapshot every tick until the connection
// closes or the tree is unregistered.
type watcher struct {
	conn *websocket.Conn
	reg  *Registry
	name string
	log  *log.Logger
}

func (w *watcher) serve() {
	defer w.conn.Close()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for range ticker.C {
		snap, ok := w.reg.Snapshot(w.name)
		if !ok {
			w.writeClose("tree no longer registered")
			return
		}
		if err := w.write(snap); err != nil {
			w.log.Printf("introspect: %s: %v", w.name, err)
			return
		}
	}
}

func (w *watcher) write(snap Snapshot) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, encoded)
}

func (w *watcher) writeClose(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = w.conn.WriteMessage(websocket.CloseMessage, msg)
}
