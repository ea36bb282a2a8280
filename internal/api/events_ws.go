/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/weatherslots/internal/events"
	"github.com/friendsincode/weatherslots/internal/telemetry"
)

const eventPingInterval = 15 * time.Second

type streamMessage struct {
	Type    events.EventType `json:"type"`
	Payload any              `json:"payload"`
}

// handleSessionEvents streams one session's reveal events over a WebSocket.
// The first message is a snapshot so late joiners can render immediately.
func (a *API) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	// CloseRead discards client frames and cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	// One subscriber for every type keeps slot and lifecycle events in publish order.
	sub := a.bus.Subscribe(events.RevealEvents...)
	defer a.bus.Unsubscribe(sub)

	if err := writeMessage(ctx, conn, streamMessage{Type: "snapshot", Payload: s.Snapshot()}); err != nil {
		a.logger.Debug().Err(err).Msg("websocket snapshot write failed")
		return
	}

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := writeMessage(ctx, conn, streamMessage{Type: "ping"}); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		case ev := <-sub:
			if ev.Payload["session_id"] != s.ID() {
				continue
			}
			if err := writeMessage(ctx, conn, streamMessage{Type: ev.Type, Payload: ev.Payload}); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
			if ev.Type == events.EventSessionClosed {
				conn.Close(ws.StatusNormalClosure, "session closed")
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *ws.Conn, msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(writeCtx, ws.MessageText, data)
}
