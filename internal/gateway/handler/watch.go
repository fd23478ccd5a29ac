package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	watchWriteWait = 10 * time.Second
	watchPongWait  = 60 * time.Second
	watchPingEvery = (watchPongWait * 9) / 10
)

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type watchInbound struct {
	Type string `json:"type"`
}

type watchOutbound struct {
	Type    string `json:"type"`
	View    *View  `json:"view,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandleWatch streams the session view over a websocket: one "state" message
// on connect and one per change. Slow clients skip intermediate views. Clients may send {"type":"ping"}.
func (h *SessionHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(watchPongWait)); err != nil {
		h.log.Debug("watch set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})

	writeCh := make(chan watchOutbound, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(watchPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	subCh := m.Subscribe(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-subCh:
				if !ok {
					return
				}
				v := h.views.build(ctx, id, snap)
				select {
				case writeCh <- watchOutbound{Type: "state", View: &v}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		var in watchInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushWatch(writeCh, watchOutbound{Type: "pong"})
		case "":
			pushWatch(writeCh, watchOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		default:
			pushWatch(writeCh, watchOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + in.Type})
		}
	}
}

// pushWatch drops the oldest pending message when the buffer is full.
func pushWatch(writeCh chan watchOutbound, out watchOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
