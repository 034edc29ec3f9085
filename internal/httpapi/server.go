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

// Package httpapi is the ambient admin HTTP surface: health, the spectator
// websocket bridge, and (when debug mode is on) pprof. §6 scopes this out of
// the data-plane protocol entirely — it never touches a session's packets.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/termchat/termchat/internal/config"
	"github.com/termchat/termchat/internal/httpapi/ratelimit"
	"github.com/termchat/termchat/internal/httpapi/websocket"
	"github.com/termchat/termchat/internal/pubsub"
	ginratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	ginpprof "github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrFailed = errors.New("failed to start server")

const defTimeout = 10 * time.Second
const debugWriteTimeout = 60 * time.Second

type Server struct {
	*http.Server
	shutdownChannel chan struct{}
}

// MakeServer builds the admin HTTP surface. db backs the rate limiter's hit
// counters; ps carries spectator frames published by session outbound tasks.
func MakeServer(cfg *config.Config, db *gorm.DB, ps pubsub.PubSub, version, commit string) Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := createRouter(cfg, db, ps, version, commit)

	writeTimeout := defTimeout
	if cfg.Debug {
		writeTimeout = debugWriteTimeout
	}

	s := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Bind, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  defTimeout,
		WriteTimeout: writeTimeout,
	}
	s.SetKeepAlivesEnabled(false)

	return Server{
		Server:          s,
		shutdownChannel: make(chan struct{}),
	}
}

func createRouter(cfg *config.Config, db *gorm.DB, ps pubsub.PubSub, version, commit string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		slog.Error("failed setting trusted proxies", "error", err)
	}

	if cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("termchat-httpapi"))
	}

	if cfg.Debug {
		ginpprof.Register(r)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = false
	corsConfig.AllowOrigins = cfg.HTTP.CORSHosts
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version,
			"commit":  commit,
		})
	})

	if cfg.HTTP.SpectatorEnabled {
		store := ratelimit.NewGORMStore(&ratelimit.GORMOptions{
			DB:    db,
			Rate:  cfg.HTTP.RateLimitRate,
			Limit: cfg.HTTP.RateLimitLimit,
		})
		limiter := ginratelimit.RateLimiter(store, &ginratelimit.Options{
			ErrorHandler: func(c *gin.Context, info ginratelimit.Info) {
				c.String(http.StatusTooManyRequests, "too many requests, retry in "+time.Until(info.ResetTime).String())
			},
			KeyFunc: func(c *gin.Context) string {
				return c.ClientIP()
			},
		})
		websocket.CreateHandler(cfg, ps).ApplyRoutes(r, limiter)
	}

	return r
}

func (s *Server) Stop() {
	const timeout = 5 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down HTTP server", "error", err)
		return
	}
	<-s.shutdownChannel
}

func (s *Server) Start() error {
	g := new(errgroup.Group)
	g.Go(func() error {
		err := s.ListenAndServe()
		close(s.shutdownChannel)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, http.ErrServerClosed):
			return nil
		default:
			slog.Error("failed to start HTTP server", "error", err)
			return ErrFailed
		}
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("httpapi server: %w", err)
	}
	return nil
}
