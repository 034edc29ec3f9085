// SPDX-License-Identifier: AGPL-3.0-or-later
// termchat - a real-time multi-party audiovisual chat fabric
// Copyright (C) 2023 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//

// Package websocket bridges a spectator's browser to one session's rendered
// ASCII output, read-only, over the pubsub fabric (§6 "Spectator bridge").
package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/termchat/termchat/internal/config"
	"github.com/termchat/termchat/internal/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const bufferSize = 1024

// SpectatorTopic names the pubsub topic a session's outbound broadcast task
// publishes its rendered ANSI frames to, for a given client ID.
func SpectatorTopic(clientID uint32) string {
	return fmt.Sprintf("spectate:%d", clientID)
}

type Handler struct {
	wsUpgrader websocket.Upgrader
	pubsub     pubsub.PubSub
}

func CreateHandler(cfg *config.Config, ps pubsub.PubSub) *Handler {
	return &Handler{
		pubsub: ps,
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return len(cfg.HTTP.CORSHosts) == 0
				}
				for _, host := range cfg.HTTP.CORSHosts {
					h := host
					if strings.HasSuffix(h, ":443") && strings.HasPrefix(origin, "https://") {
						h = strings.TrimSuffix(h, ":443")
					}
					if strings.HasSuffix(h, ":80") && strings.HasPrefix(origin, "http://") {
						h = strings.TrimSuffix(h, ":80")
					}
					if strings.Contains(origin, h) {
						return true
					}
				}
				return false
			},
			EnableCompression: true,
		},
	}
}

func (h *Handler) spectate(ctx context.Context, clientID uint32, w http.ResponseWriter, r *http.Request) {
	conn, err := h.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade spectator websocket", "error", err, "client_id", clientID)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Error("failed to close spectator websocket", "error", err)
		}
	}()

	sub := h.pubsub.Subscribe(SpectatorTopic(clientID))
	defer func() {
		if err := sub.Close(); err != nil {
			slog.Error("failed to unsubscribe spectator", "error", err)
		}
	}()

	// The spectator connection is write-only from the server's perspective;
	// still drain reads so a client-initiated close is observed promptly.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case frame, ok := <-sub.Channel():
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
	}
}

// ApplyRoutes registers GET /spectator/:clientId on r.
func (h *Handler) ApplyRoutes(r *gin.Engine, middlewares ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, middlewares...), func(c *gin.Context) {
		var clientID uint32
		if _, err := fmt.Sscanf(c.Param("clientId"), "%d", &clientID); err != nil {
			c.String(http.StatusBadRequest, "invalid client id")
			return
		}
		h.spectate(c.Request.Context(), clientID, c.Writer, c.Request)
	})
	r.GET("/spectator/:clientId", handlers...)
}
