// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ledbridge/opcbridge/internal/stats"
)

// statsPushInterval is how often /ws/stats pushes a fresh snapshot to
// each connected client.
const statsPushInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewStatsHandler returns an http.Handler serving /ws/stats from b: a
// websocket feed that pushes a JSON stats.Snapshot array as a text
// message every statsPushInterval. Its client in this repository is
// the status CLI; the monitor dashboard reads the control socket.
func NewStatsHandler(b *Bridge) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/stats", func(w http.ResponseWriter, r *http.Request) {
		serveStats(w, r, b)
	})
	return mux
}

func serveStats(w http.ResponseWriter, r *http.Request, b *Bridge) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(snapshotAll(b)); err != nil {
			return
		}
	}
}

// snapshotAll pairs each registered output's counters with its
// route's dropped-by-replacement and dropped-by-short-payload totals,
// in registration order (routes and stats outputs are built pairwise
// in Bridge.New).
func snapshotAll(b *Bridge) []stats.Snapshot {
	outs := b.Stats().Outputs()
	routes := b.Router().Routes()

	snaps := make([]stats.Snapshot, len(outs))
	for i, o := range outs {
		var replaced, short uint64
		if i < len(routes) {
			replaced = routes[i].Slot.Dropped()
			short = routes[i].Skipped()
		}
		snaps[i] = o.Snapshot(replaced, short)
	}
	return snaps
}
